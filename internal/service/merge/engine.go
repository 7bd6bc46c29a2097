package merge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IM594/vivi-server-merge-tool/internal/execlog"
	"github.com/IM594/vivi-server-merge-tool/internal/model"
)

// Input 一次检测所需的全部输入（均已由解析器读入内存）
type Input struct {
	Sources   [][]model.RawRecord // 每个统计文件一组
	Plan      *model.Plan
	PairsText string
}

// Result 一次检测的全部产物
type Result struct {
	TotalServers int `json:"totalServers"`

	Pairs      []model.CandidatePair `json:"pairs"`
	Duplicates []string              `json:"duplicates"`

	AlertGroups     []model.AlertGroup    `json:"alertGroups"`
	SecondaryGroups []model.AlertGroup    `json:"secondaryGroups"`
	NormalPairs     []model.CandidatePair `json:"normalPairs"`
	Report          []model.ReportRow     `json:"report"`

	Plan        *model.Plan          `json:"plan"`
	SwapLog     []model.SwapLogEntry `json:"swapLog"`
	ChangedRows []int                `json:"changedRows"`
	MergeCount  int                  `json:"mergeCount"`

	Notices []model.Notice `json:"notices"`
}

// Engine 警报检测与计划改写引擎；单次调用内单线程执行
type Engine struct {
	rules  Rules
	logger *slog.Logger
}

// NewEngine 创建引擎；logger 为 nil 时使用 slog.Default()
func NewEngine(rules Rules, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{rules: rules, logger: logger}
}

// Run 依次执行：排名 → 解析检测对 → 初级检测 → 二次检测 → 合并改写 → 报表
func (e *Engine) Run(in Input) (*Result, error) {
	user, dev := execlog.User(e.logger), execlog.Dev(e.logger)

	if len(in.Sources) == 0 {
		return nil, ErrNoInputTable
	}
	var raw []model.RawRecord
	for _, src := range in.Sources {
		raw = append(raw, src...)
	}

	dev.Debug("执行数据排序: 前2名战力之和 (降序)")
	table, err := RankAll(raw)
	if err != nil {
		return nil, fmt.Errorf("rank servers: %w", err)
	}
	user.Info(fmt.Sprintf("数据合并完成，共 %d 条记录", table.Len()))

	res := &Result{TotalServers: table.Len()}

	parsed := ParsePairs(in.PairsText)
	res.Pairs = parsed.Pairs
	res.Duplicates = parsed.Duplicates
	for _, line := range parsed.Malformed {
		dev.Debug("忽略无法解析的输入行", "line", line)
		res.Notices = append(res.Notices, model.Notice{
			Kind:    model.NoticeMalformedLine,
			Level:   model.LevelInfo,
			Message: fmt.Sprintf("忽略无法解析的输入行: %q", line),
		})
	}
	if n := len(parsed.Duplicates); n > 0 {
		user.Warn(fmt.Sprintf("发现并忽略 %d 组重复检测对", n))
		if n <= 5 {
			for _, d := range parsed.Duplicates {
				dev.Warn("忽略重复: " + d)
			}
		} else {
			dev.Warn(fmt.Sprintf("重复列表 (前5个): %s...", strings.Join(parsed.Duplicates[:5], ", ")))
		}
		for _, d := range parsed.Duplicates {
			res.Notices = append(res.Notices, model.Notice{
				Kind:    model.NoticeDuplicatePair,
				Level:   model.LevelWarn,
				Message: "忽略重复: " + d,
			})
		}
	}
	user.Info(fmt.Sprintf("解析输入：共 %d 组有效检测区服", len(res.Pairs)))

	dev.Debug("开始执行初级警报检测")
	detector := NewDetector(e.rules)
	alerts, normal, missing := detector.Partition(res.Pairs, table)
	for _, n := range missing {
		user.Warn(n.Message)
	}
	res.Notices = append(res.Notices, missing...)
	for _, g := range alerts {
		user.Warn(fmt.Sprintf("发现警报：%d 和 %d - %s", g.Members[0], g.Members[1], g.Reason))
	}
	res.AlertGroups = alerts
	res.NormalPairs = normal
	user.Info(fmt.Sprintf("检测完成：发现 %d 组警报，%d 组正常", len(alerts), len(normal)))

	plan := in.Plan.Clone()
	index := BuildPlanIndex(plan)
	dev.Debug("计划索引构建完成", "rows", len(plan.Rows), "servers", index.Len())

	secondary := SecondaryCheck(alerts, table, index, e.rules)
	for _, g := range secondary.Groups {
		user.Warn(fmt.Sprintf("触发独立二次警报: %s - %s", g.Key, g.Reason))
	}
	res.SecondaryGroups = secondary.Groups

	rows := PrimaryRows(alerts, table)
	rows = append(rows, secondary.Rows...)
	res.Report = AssembleReport(rows)

	user.Info("正在处理正常组的合并申请...")
	rec := Reconcile(normal, plan, index)
	for _, entry := range rec.Log {
		if entry.Status == model.SwapMerged {
			user.Log(context.Background(), execlog.LevelSuccess, fmt.Sprintf(
				"成功合并 %d + %d：行%d %s ➔ %s，行%d %s ➔ %s",
				entry.Pair.A, entry.Pair.B,
				entry.Row1, entry.Before1, entry.After1,
				entry.Row2, entry.Before2, entry.After2,
			))
		}
	}
	for _, n := range rec.Notices {
		dev.Debug(n.Message)
	}
	res.Notices = append(res.Notices, rec.Notices...)
	res.Plan = rec.Plan
	res.SwapLog = rec.Log
	res.ChangedRows = rec.ChangedRows
	res.MergeCount = rec.Merged

	return res, nil
}
