package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/IM594/vivi-server-merge-tool/internal/config"
	"github.com/IM594/vivi-server-merge-tool/internal/execlog"
	"github.com/IM594/vivi-server-merge-tool/internal/exporter"
	"github.com/IM594/vivi-server-merge-tool/internal/model"
	"github.com/IM594/vivi-server-merge-tool/internal/parser"
	"github.com/IM594/vivi-server-merge-tool/internal/service/merge"
	"github.com/IM594/vivi-server-merge-tool/internal/store"
)

// 事件类型
const (
	EventStart    = "start"
	EventInfo     = "info"
	EventWarning  = "warning"
	EventProgress = "progress"
	EventDone     = "done"
	EventError    = "error"
)

// Coordinator 检测运行协调器：解析 → 检测 → 导出 → 写历史
type Coordinator struct {
	store   *store.Store // 可为 nil（离线模式不写历史）
	cfg     *config.AppConfig
	outRoot string
	logger  *slog.Logger
}

// NewCoordinator 创建协调器；outRoot 下每次运行一个子目录
func NewCoordinator(st *store.Store, cfg *config.AppConfig, outRoot string, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{store: st, cfg: cfg, outRoot: outRoot, logger: logger}
}

// RunOptions 运行选项
type RunOptions struct {
	RunID      string // 为空时自动生成
	StatsFiles []parser.InputFile
	PlanFile   parser.InputFile
	PairsText  string
	OutDir     string // 为空时使用 outRoot/RunID
}

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RunReport 一次运行的完整产物
type RunReport struct {
	RunID               string             `json:"runId"`
	OutDir              string             `json:"-"`
	Files               exporter.Files     `json:"files"`
	Stats               []parser.StatsFile `json:"stats"`
	PlanHeaderMatched   bool               `json:"planHeaderMatched"`
	Rules               merge.Rules        `json:"rules"`
	Result              *merge.Result      `json:"result"`
	AlertCount          int                `json:"alertCount"`
	SecondaryAlertCount int                `json:"secondaryAlertCount"`
	MergeCount          int                `json:"mergeCount"`
	Logs                []execlog.Entry    `json:"logs"`
	Duration            time.Duration      `json:"duration"`
}

// RunError 失败运行的错误及其执行日志
type RunError struct {
	RunID string
	Err   error
	Logs  []execlog.Entry
}

func (e *RunError) Error() string { return e.Err.Error() }
func (e *RunError) Unwrap() error { return e.Err }

// OutputDir 返回运行的输出目录
func (c *Coordinator) OutputDir(runID string) string {
	return filepath.Join(c.outRoot, runID)
}

// Run 异步执行，返回进度通道；通道在 done/error 事件后关闭
func (c *Coordinator) Run(ctx context.Context, opts RunOptions) <-chan ProgressEvent {
	ch := make(chan ProgressEvent, 100)
	go func() {
		defer close(ch)
		c.doRun(ctx, opts, ch)
	}()
	return ch
}

// RunSync 同步执行并返回报告
func (c *Coordinator) RunSync(ctx context.Context, opts RunOptions) (*RunReport, error) {
	var report *RunReport
	var runErr error
	for ev := range c.Run(ctx, opts) {
		switch ev.Type {
		case EventDone:
			report, _ = ev.Data.(*RunReport)
		case EventError:
			if re, ok := ev.Data.(*RunError); ok {
				runErr = re
			} else {
				runErr = errors.New(ev.Message)
			}
		}
	}
	if runErr != nil {
		return nil, runErr
	}
	if report == nil {
		return nil, errors.New("run finished without report")
	}
	return report, nil
}

// Rules 当前生效的阈值：配置文件为底，界面保存的覆盖优先
func (c *Coordinator) Rules() merge.Rules {
	rules := c.cfg.Rules.MergeRules()
	if c.store == nil {
		return rules
	}
	saved, found, err := c.store.LoadRules()
	if err != nil {
		c.logger.Warn("load saved rules failed", "error", err)
		return rules
	}
	if found && saved.Validate() == nil {
		return saved
	}
	return rules
}

func (c *Coordinator) doRun(ctx context.Context, opts RunOptions, ch chan ProgressEvent) {
	start := time.Now()
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.OutDir == "" {
		opts.OutDir = c.OutputDir(opts.RunID)
	}

	collector := execlog.NewCollector()
	logger := execlog.Tee(c.logger.With("run", opts.RunID), collector)
	user, dev := execlog.User(logger), execlog.Dev(logger)

	fail := func(err error) {
		user.Error(fmt.Sprintf("处理失败: %v", err))
		if c.store != nil {
			if ferr := c.store.FailRun(opts.RunID, err.Error()); ferr != nil {
				dev.Error("记录失败状态出错", "error", ferr)
			}
		}
		c.finish(ctx, ch, ProgressEvent{
			Type:      EventError,
			Message:   err.Error(),
			Data:      &RunError{RunID: opts.RunID, Err: err, Logs: collector.Entries()},
			Timestamp: time.Now(),
		})
	}

	run := &model.Run{
		ID:        opts.RunID,
		PairsText: opts.PairsText,
		PlanFile:  opts.PlanFile.Name,
		OutputDir: opts.OutDir,
	}
	for _, f := range opts.StatsFiles {
		run.Sources = append(run.Sources, displayName(f))
	}
	if c.store != nil {
		if err := c.store.CreateRun(run); err != nil {
			fail(err)
			return
		}
	}

	c.sendProgress(ch, ProgressEvent{
		Type:      EventStart,
		Message:   "开始检测",
		Data:      map[string]any{"runId": opts.RunID, "files": len(opts.StatsFiles)},
		Timestamp: time.Now(),
	})

	// 1. 统计表
	user.Info(fmt.Sprintf("正在处理 %d 个服务器数据文件...", len(opts.StatsFiles)))
	statsParser := parser.NewStatsParser(c.cfg.Columns.Aliases, c.cfg.Columns.HeaderRow)
	stats, err := statsParser.ParseFiles(opts.StatsFiles)
	for _, n := range stats.Notices {
		user.Error(n.Message)
		c.sendProgress(ch, ProgressEvent{Type: EventWarning, Message: n.Message, Timestamp: time.Now()})
	}
	if err != nil {
		fail(fmt.Errorf("parse statistics: %w", err))
		return
	}
	for _, f := range stats.Files {
		dev.Debug(fmt.Sprintf("读取 %s 成功，行数: %d", f.Name, f.Rows), "header_row", f.Header.Row)
	}
	if err := ctx.Err(); err != nil {
		fail(err)
		return
	}

	// 2. 合服计划表
	planParser := parser.NewPlanParser(c.cfg.Plan.TargetHeader, c.cfg.Plan.ParticipantHeader)
	sheet, err := planParser.ParseFile(opts.PlanFile.Path)
	if err != nil {
		fail(fmt.Errorf("parse plan: %w", err))
		return
	}
	user.Info(fmt.Sprintf("合服计划表读取成功，共 %d 行", len(sheet.Plan.Rows)))
	if !sheet.HeaderMatched {
		user.Warn("未找到“目标服/参与服”表头，按 A/B 列读取")
	}
	c.sendProgress(ch, ProgressEvent{
		Type:      EventInfo,
		Message:   "输入文件解析完成",
		Data:      map[string]any{"statsFiles": len(stats.Files), "planRows": len(sheet.Plan.Rows)},
		Timestamp: time.Now(),
	})

	// 3. 检测与改写
	rules := c.Rules()
	res, err := merge.NewEngine(rules, logger).Run(merge.Input{
		Sources:   stats.Sources(),
		Plan:      sheet.Plan,
		PairsText: opts.PairsText,
	})
	if err != nil {
		fail(err)
		return
	}
	res.Notices = append(append([]model.Notice{}, stats.Notices...), res.Notices...)
	if err := ctx.Err(); err != nil {
		fail(err)
		return
	}

	// 4. 导出
	layout := exporter.PlanLayout{
		SourcePath:     opts.PlanFile.Path,
		Sheet:          sheet.Sheet,
		TargetCol:      sheet.TargetCol,
		ParticipantCol: sheet.ParticipantCol,
	}
	exp := exporter.NewExporter(opts.OutDir, c.cfg.Plan.HighlightColor)
	files, err := exp.ExportAll(res, layout, func(ev exporter.ProgressEvent) {
		c.sendProgress(ch, ProgressEvent{Type: EventProgress, Message: ev.Stage, Data: ev, Timestamp: time.Now()})
	})
	if err != nil {
		fail(fmt.Errorf("export: %w", err))
		return
	}
	user.Log(ctx, execlog.LevelSuccess, "所有任务处理完成！")

	summary := model.RunSummary{
		TotalServers:        res.TotalServers,
		PairCount:           len(res.Pairs),
		AlertCount:          len(res.AlertGroups),
		SecondaryAlertCount: len(res.SecondaryGroups),
		MergeCount:          res.MergeCount,
	}
	if _, err := exp.WriteManifest(exporter.Manifest{
		RunID:     opts.RunID,
		CreatedAt: start.UTC(),
		Sources:   run.Sources,
		PlanFile:  run.PlanFile,
		PairsText: opts.PairsText,
		Rules:     rules,
		Summary:   summary,
		Files:     files,
		Notices:   res.Notices,
		Logs:      collector.Entries(),
	}); err != nil {
		dev.Warn("写入运行清单失败", "error", err)
	}

	// 5. 历史
	if c.store != nil {
		if err := c.store.InsertMerges(opts.RunID, res.SwapLog); err != nil {
			dev.Error("写入合并日志失败", "error", err)
		}
		if err := c.store.InsertNotices(opts.RunID, res.Notices); err != nil {
			dev.Error("写入提示失败", "error", err)
		}
		if err := c.store.FinishRun(opts.RunID, summary); err != nil {
			dev.Error("更新运行记录失败", "error", err)
		}
	}

	report := &RunReport{
		RunID:               opts.RunID,
		OutDir:              opts.OutDir,
		Files:               files,
		Stats:               stats.Files,
		PlanHeaderMatched:   sheet.HeaderMatched,
		Rules:               rules,
		Result:              res,
		AlertCount:          summary.AlertCount,
		SecondaryAlertCount: summary.SecondaryAlertCount,
		MergeCount:          summary.MergeCount,
		Logs:                collector.Entries(),
		Duration:            time.Since(start),
	}
	c.finish(ctx, ch, ProgressEvent{
		Type:      EventDone,
		Message:   "检测完成",
		Data:      report,
		Timestamp: time.Now(),
	})
}

func displayName(f parser.InputFile) string {
	if f.Name != "" {
		return f.Name
	}
	return filepath.Base(f.Path)
}

// sendProgress 发送进度事件；通道已满时丢弃
func (c *Coordinator) sendProgress(ch chan ProgressEvent, event ProgressEvent) {
	select {
	case ch <- event:
	default:
	}
}

// finish 终止事件必须送达，除非调用方已放弃
func (c *Coordinator) finish(ctx context.Context, ch chan ProgressEvent, event ProgressEvent) {
	select {
	case ch <- event:
	case <-ctx.Done():
	}
}
