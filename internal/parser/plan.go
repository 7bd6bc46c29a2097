package parser

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/IM594/vivi-server-merge-tool/internal/model"
)

// PlanParser 合服计划表解析器
type PlanParser struct {
	targetHeader      string
	participantHeader string
}

// NewPlanParser 创建解析器
func NewPlanParser(targetHeader, participantHeader string) *PlanParser {
	return &PlanParser{
		targetHeader:      NormalizeColumnName(targetHeader),
		participantHeader: NormalizeColumnName(participantHeader),
	}
}

// ParseFile 打开并解析计划表
func (p *PlanParser) ParseFile(path string) (PlanSheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return PlanSheet{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return p.Parse(f)
}

// Parse 读取活动工作表：第 1 行为表头，其余每行一个计划行。
// 表头中找不到目标服/参与服时回退到 A/B 列。
func (p *PlanParser) Parse(f *excelize.File) (PlanSheet, error) {
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if sheet == "" {
		return PlanSheet{}, ErrPlanSheetEmpty
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return PlanSheet{}, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(rows) < 2 {
		return PlanSheet{}, ErrPlanSheetEmpty
	}

	ps := PlanSheet{Sheet: sheet, TargetCol: 0, ParticipantCol: 1}
	t, okT := p.findColumn(rows[0], p.targetHeader)
	pc, okP := p.findColumn(rows[0], p.participantHeader)
	if okT && okP && t != pc {
		ps.TargetCol, ps.ParticipantCol = t, pc
		ps.HeaderMatched = true
	}

	plan := &model.Plan{Rows: make([]model.PlanRow, 0, len(rows)-1)}
	for i := 1; i < len(rows); i++ {
		row := model.PlanRow{Number: i + 1}
		row.Slots[model.SlotTarget] = cellID(rows[i], ps.TargetCol)
		row.Slots[model.SlotParticipant] = cellID(rows[i], ps.ParticipantCol)
		plan.Rows = append(plan.Rows, row)
	}
	ps.Plan = plan
	return ps, nil
}

// findColumn 先精确匹配表头，再退而匹配包含关键字的表头
func (p *PlanParser) findColumn(headers []string, want string) (int, bool) {
	if want == "" {
		return 0, false
	}
	for i, h := range headers {
		if NormalizeColumnName(h) == want {
			return i, true
		}
	}
	for i, h := range headers {
		if ContainsAny(NormalizeColumnName(h), []string{want}) {
			return i, true
		}
	}
	return 0, false
}

func cellID(row []string, col int) model.ServerID {
	if col >= len(row) {
		return 0
	}
	id, _ := ParseServerID(row[col])
	return id
}
