package model

import "fmt"

// ServerID 区服 ID；0 表示空位
type ServerID int64

// 原始记录中的规范字段名（由统计表解析器从表头映射而来）
const (
	FieldID          = "id"
	FieldPowerScore  = "power_score"
	FieldMaxRecharge = "max_recharge"
	FieldDAU         = "dau"

	FieldIncome3d      = "income_3d"
	FieldIncome7d      = "income_7d"
	FieldPower1        = "power_1"
	FieldPower2        = "power_2"
	FieldPower3        = "power_3"
	FieldTop3Power     = "top3_power"
	FieldTop10AvgPower = "top10_avg_power"
	FieldTop10AvgLevel = "top10_avg_level"
)

// OptionalFields 报表中保留的可选指标列（按输出顺序）
var OptionalFields = []string{
	FieldIncome3d,
	FieldIncome7d,
	FieldPower1,
	FieldPower2,
	FieldPower3,
	FieldTop3Power,
	FieldTop10AvgPower,
	FieldTop10AvgLevel,
}

// RawRecord 未经数值转换的原始统计行，键为规范字段名
type RawRecord map[string]string

// ServerRecord 单个区服的统计记录（排名后不可变）
type ServerRecord struct {
	ID          ServerID `json:"id"`
	PowerScore  float64  `json:"powerScore"`  // 前2名战力之和
	MaxRecharge float64  `json:"maxRecharge"` // 最高玩家累充金额
	DAU         float64  `json:"dau"`
	Rank        int      `json:"rank"` // 真实排名，从 1 开始

	// 可选指标：源表缺列时为 nil
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// Metric 读取可选指标
func (r ServerRecord) Metric(field string) (float64, bool) {
	v, ok := r.Metrics[field]
	return v, ok
}

// CandidatePair 运营提交的待检测区服对
type CandidatePair struct {
	A ServerID `json:"a"`
	B ServerID `json:"b"`
}

// PairKey 去重用的规范键（升序）
type PairKey struct {
	Low  ServerID
	High ServerID
}

// Key 返回规范键
func (p CandidatePair) Key() PairKey {
	if p.A <= p.B {
		return PairKey{Low: p.A, High: p.B}
	}
	return PairKey{Low: p.B, High: p.A}
}

func (p CandidatePair) String() string {
	return fmt.Sprintf("%d+%d", p.A, p.B)
}
