package parser

import (
	"errors"

	"github.com/IM594/vivi-server-merge-tool/internal/model"
)

// ErrPlanSheetEmpty 合服计划表没有任何数据行
var ErrPlanSheetEmpty = errors.New("plan sheet has no data rows")

// HeaderDetection 表头识别结果
type HeaderDetection struct {
	Row        int            `json:"row"`        // 表头所在行（从 1 开始）
	Columns    map[string]int `json:"columns"`    // 规范字段名 → 列下标
	Unmapped   []string       `json:"unmapped"`   // 未识别的表头
	Confidence float64        `json:"confidence"` // 必需字段命中比例 0-1
}

// StatsFile 单个统计文件的解析结果
type StatsFile struct {
	Name    string            `json:"name"`
	Header  HeaderDetection   `json:"header"`
	Records []model.RawRecord `json:"-"`
	Rows    int               `json:"rows"`
}

// StatsResult 多个统计文件的解析结果
type StatsResult struct {
	Files   []StatsFile    `json:"files"`
	Notices []model.Notice `json:"notices,omitempty"`
}

// Sources 每个可读文件一组原始记录
func (r StatsResult) Sources() [][]model.RawRecord {
	out := make([][]model.RawRecord, 0, len(r.Files))
	for _, f := range r.Files {
		out = append(out, f.Records)
	}
	return out
}

// PlanSheet 合服计划表解析结果
type PlanSheet struct {
	Sheet          string      `json:"sheet"`
	TargetCol      int         `json:"targetCol"`
	ParticipantCol int         `json:"participantCol"`
	HeaderMatched  bool        `json:"headerMatched"` // false 表示按 A/B 列回退
	Plan           *model.Plan `json:"plan"`
}
