package merge

import (
	"fmt"
	"math"
	"strings"

	"github.com/IM594/vivi-server-merge-tool/internal/model"
)

// Rules 警报阈值
type Rules struct {
	RankGap           int     `json:"rankGap"`           // 排名差阈值
	TopRatio          float64 `json:"topRatio"`          // 高战区间比例（按排名）
	RechargeThreshold float64 `json:"rechargeThreshold"` // 最高玩家累充阈值
	PowerGap          float64 `json:"powerGap"`          // 战力差阈值（绝对值）
	DAUThreshold      float64 `json:"dauThreshold"`      // 二次检测 DAU 阈值
}

// DefaultRules 默认阈值
func DefaultRules() Rules {
	return Rules{
		RankGap:           5,
		TopRatio:          0.25,
		RechargeThreshold: 5000,
		PowerGap:          1_000_000_000,
		DAUThreshold:      5,
	}
}

// Validate 检查阈值是否合法
func (r Rules) Validate() error {
	switch {
	case r.RankGap < 0:
		return fmt.Errorf("rankGap must be >= 0, got %d", r.RankGap)
	case r.TopRatio <= 0 || r.TopRatio > 1:
		return fmt.Errorf("topRatio must be in (0, 1], got %g", r.TopRatio)
	case r.RechargeThreshold < 0:
		return fmt.Errorf("rechargeThreshold must be >= 0, got %g", r.RechargeThreshold)
	case r.PowerGap < 0:
		return fmt.Errorf("powerGap must be >= 0, got %g", r.PowerGap)
	case r.DAUThreshold < 0:
		return fmt.Errorf("dauThreshold must be >= 0, got %g", r.DAUThreshold)
	}
	return nil
}

// AlertOutcome 单个检测对的初级检测结果
type AlertOutcome struct {
	Triggered bool
	Rules     []model.RuleTag
	Reasons   []string
	RankDiff  int
}

// Has 是否命中指定规则
func (o AlertOutcome) Has(tag model.RuleTag) bool {
	for _, r := range o.Rules {
		if r == tag {
			return true
		}
	}
	return false
}

// Reason 拼接后的警报原因
func (o AlertOutcome) Reason() string {
	return strings.Join(o.Reasons, "; ")
}

// Detector 初级警报检测器
type Detector struct {
	rules Rules
}

// NewDetector 创建检测器
func NewDetector(rules Rules) *Detector {
	return &Detector{rules: rules}
}

// Check 对两条已解析的记录依次评估三条规则，记录所有命中项
func (d *Detector) Check(a, b model.ServerRecord, total int) AlertOutcome {
	out := AlertOutcome{RankDiff: absInt(a.Rank - b.Rank)}

	if out.RankDiff <= d.rules.RankGap {
		out.Rules = append(out.Rules, model.RuleRankProximity)
		out.Reasons = append(out.Reasons, fmt.Sprintf("排名接近(差%d)", out.RankDiff))
	}

	topN := d.TopTierCutoff(total)
	if a.Rank <= topN && b.Rank <= topN &&
		a.MaxRecharge >= d.rules.RechargeThreshold && b.MaxRecharge >= d.rules.RechargeThreshold {
		out.Rules = append(out.Rules, model.RuleHighTierSpend)
		out.Reasons = append(out.Reasons, fmt.Sprintf("高战高充(前%s)", percent(d.rules.TopRatio)))
	}

	if math.Abs(a.PowerScore-b.PowerScore) <= d.rules.PowerGap {
		out.Rules = append(out.Rules, model.RulePowerProximity)
		out.Reasons = append(out.Reasons, fmt.Sprintf("战力接近(差<=%s)", humanAmount(d.rules.PowerGap)))
	}

	out.Triggered = len(out.Rules) > 0
	return out
}

// CheckPair 查表后检测；missing 为不在统计表中的区服，非空时不做检测
func (d *Detector) CheckPair(p model.CandidatePair, table *Table) (out AlertOutcome, missing []model.ServerID) {
	ra, okA := table.Lookup(p.A)
	rb, okB := table.Lookup(p.B)
	if !okA {
		missing = append(missing, p.A)
	}
	if !okB {
		missing = append(missing, p.B)
	}
	if len(missing) > 0 {
		return AlertOutcome{}, missing
	}
	return d.Check(ra, rb, table.Len()), nil
}

// TopTierCutoff 高战区间的排名上限 ceil(ratio * N)
func (d *Detector) TopTierCutoff(total int) int {
	return int(math.Ceil(d.rules.TopRatio * float64(total)))
}

// Partition 对检测对执行初级检测：警报组、正常组与缺失数据提示互斥
func (d *Detector) Partition(pairs []model.CandidatePair, table *Table) (alerts []model.AlertGroup, normal []model.CandidatePair, notices []model.Notice) {
	alerts = []model.AlertGroup{}
	normal = []model.CandidatePair{}
	for _, p := range pairs {
		out, missing := d.CheckPair(p, table)
		for _, id := range missing {
			notices = append(notices, missingRecordNotice(id))
		}
		if len(missing) > 0 {
			continue
		}
		if !out.Triggered {
			normal = append(normal, p)
			continue
		}
		key := p.Key()
		alerts = append(alerts, model.AlertGroup{
			Key:     model.GroupKey(model.AlertPrimary, key.Low, key.High),
			Kind:    model.AlertPrimary,
			Members: [2]model.ServerID{key.Low, key.High},
			Reason:  out.Reason(),
			Rules:   out.Rules,
		})
	}
	return alerts, normal, notices
}

func missingRecordNotice(id model.ServerID) model.Notice {
	return model.Notice{
		Kind:    model.NoticeMissingRecord,
		Level:   model.LevelWarn,
		Message: fmt.Sprintf("警告：区服 %d 数据缺失，已跳过", id),
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func percent(ratio float64) string {
	return fmt.Sprintf("%g%%", ratio*100)
}

// humanAmount 以“亿/万”为单位展示阈值
func humanAmount(v float64) string {
	switch {
	case v >= 1e8 && math.Mod(v, 1e8) == 0:
		return fmt.Sprintf("%g亿", v/1e8)
	case v >= 1e4 && math.Mod(v, 1e4) == 0:
		return fmt.Sprintf("%g万", v/1e4)
	default:
		return fmt.Sprintf("%g", v)
	}
}
