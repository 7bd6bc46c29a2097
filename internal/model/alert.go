package model

import "fmt"

// RuleTag 初级警报规则标识
type RuleTag string

const (
	RuleRankProximity  RuleTag = "rank_proximity"  // 排名接近
	RuleHighTierSpend  RuleTag = "high_tier_spend" // 高战高充
	RulePowerProximity RuleTag = "power_proximity" // 战力接近
)

// AlertKind 警报组类型
type AlertKind string

const (
	AlertPrimary   AlertKind = "primary"
	AlertSecondary AlertKind = "secondary"
)

// GroupKey 由排序后的成员 ID 推导出的警报组键；二次警报带后缀以便与初级组区分
func GroupKey(kind AlertKind, a, b ServerID) string {
	if a > b {
		a, b = b, a
	}
	key := fmt.Sprintf("Group_%d_%d", a, b)
	if kind == AlertSecondary {
		key += "_DAU"
	}
	return key
}

// FlaggedServer 二次检测中 DAU 过低的区服
type FlaggedServer struct {
	ID       ServerID `json:"id"`
	DAU      float64  `json:"dau"`
	IsMember bool     `json:"isMember"` // 是否为原检测对成员（否则为计划中的关联服）
}

// AlertGroup 警报组；初级与二次警报各自独立成组
type AlertGroup struct {
	Key     string      `json:"key"`
	Kind    AlertKind   `json:"kind"`
	Members [2]ServerID `json:"members"` // 升序
	Reason  string      `json:"reason"`

	Rules   []RuleTag       `json:"rules,omitempty"`   // 初级警报触发的规则
	Flagged []FlaggedServer `json:"flagged,omitempty"` // 二次警报命中的区服
}

// Pair 返回组成员对应的检测对
func (g AlertGroup) Pair() CandidatePair {
	return CandidatePair{A: g.Members[0], B: g.Members[1]}
}

// ReportRow 警报报表行（固定结构，可选指标为指针）
type ReportRow struct {
	Separator bool `json:"separator,omitempty"`

	GroupKey string   `json:"groupKey"`
	Reason   string   `json:"reason"`

	// 排序用：所属组的升序成员与组类型
	Members [2]ServerID `json:"-"`
	Kind    AlertKind   `json:"-"`

	Rank     int      `json:"rank"`
	ServerID ServerID `json:"serverId"`
	DAU      float64  `json:"dau"`

	Income3d      *float64 `json:"income3d,omitempty"`
	Income7d      *float64 `json:"income7d,omitempty"`
	Power1        *float64 `json:"power1,omitempty"`
	Power2        *float64 `json:"power2,omitempty"`
	Power3        *float64 `json:"power3,omitempty"`
	Top2Power     float64  `json:"top2Power"`
	Top3Power     *float64 `json:"top3Power,omitempty"`
	Top10AvgPower *float64 `json:"top10AvgPower,omitempty"`
	Top10AvgLevel *float64 `json:"top10AvgLevel,omitempty"`
	MaxRecharge   float64  `json:"maxRecharge"`
}

// NewReportRow 由区服记录生成所属警报组的报表行
func NewReportRow(rec ServerRecord, g AlertGroup) ReportRow {
	opt := func(field string) *float64 {
		if v, ok := rec.Metric(field); ok {
			return &v
		}
		return nil
	}
	return ReportRow{
		GroupKey:      g.Key,
		Reason:        g.Reason,
		Members:       g.Members,
		Kind:          g.Kind,
		Rank:          rec.Rank,
		ServerID:      rec.ID,
		DAU:           rec.DAU,
		Income3d:      opt(FieldIncome3d),
		Income7d:      opt(FieldIncome7d),
		Power1:        opt(FieldPower1),
		Power2:        opt(FieldPower2),
		Power3:        opt(FieldPower3),
		Top2Power:     rec.PowerScore,
		Top3Power:     opt(FieldTop3Power),
		Top10AvgPower: opt(FieldTop10AvgPower),
		Top10AvgLevel: opt(FieldTop10AvgLevel),
		MaxRecharge:   rec.MaxRecharge,
	}
}

// SwapStatus 合并申请的处理结果
type SwapStatus string

const (
	SwapMerged  SwapStatus = "merged"
	SwapSkipped SwapStatus = "skipped"
)

// SwapLogEntry 合并审计日志
type SwapLogEntry struct {
	Pair    CandidatePair `json:"pair"`
	Status  SwapStatus    `json:"status"`
	Reason  string        `json:"reason,omitempty"` // 跳过原因
	Row1    int           `json:"row1"`             // 工作表行号，未找到时为 0
	Row2    int           `json:"row2"`
	Before1 string        `json:"before1,omitempty"`
	After1  string        `json:"after1,omitempty"`
	Before2 string        `json:"before2,omitempty"`
	After2  string        `json:"after2,omitempty"`
}

// NoticeKind 非致命提示类型
type NoticeKind string

const (
	NoticeDuplicatePair  NoticeKind = "duplicate_pair"
	NoticeMalformedLine  NoticeKind = "malformed_line"
	NoticeMissingRecord  NoticeKind = "missing_record"
	NoticeCannotMerge    NoticeKind = "cannot_merge"
	NoticeUnreadableFile NoticeKind = "unreadable_file"
)

// NoticeLevel 提示级别
type NoticeLevel string

const (
	LevelInfo  NoticeLevel = "info"
	LevelWarn  NoticeLevel = "warn"
	LevelError NoticeLevel = "error"
)

// Notice 单条跳过/重复提示
type Notice struct {
	Kind    NoticeKind  `json:"kind"`
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}
