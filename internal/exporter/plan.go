package exporter

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/IM594/vivi-server-merge-tool/internal/model"
)

// WritePlan 在原计划表副本上改写变动行并整行高亮，其余内容保持原样
func (e *Exporter) WritePlan(dstPath string, layout PlanLayout, plan *model.Plan, changed []int) error {
	f, err := excelize.OpenFile(layout.SourcePath)
	if err != nil {
		return fmt.Errorf("打开合服计划表失败: %w", err)
	}
	defer f.Close()

	sheet := layout.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}

	byNumber := make(map[int]model.PlanRow, len(plan.Rows))
	for _, r := range plan.Rows {
		byNumber[r.Number] = r
	}

	lastCol, err := usedColumns(f, sheet)
	if err != nil {
		return err
	}
	lastCol = max(lastCol, layout.TargetCol+1, layout.ParticipantCol+1)

	hl := newHighlighter(f, e.highlight)
	for _, n := range changed {
		row, ok := byNumber[n]
		if !ok {
			continue
		}
		if err := writeSlot(f, sheet, layout.TargetCol, n, row.Target()); err != nil {
			return err
		}
		if err := writeSlot(f, sheet, layout.ParticipantCol, n, row.Participant()); err != nil {
			return err
		}
		if err := hl.row(sheet, n, lastCol); err != nil {
			return err
		}
	}
	return f.SaveAs(dstPath)
}

func writeSlot(f *excelize.File, sheet string, col, rowNum int, id model.ServerID) error {
	cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
	if err != nil {
		return err
	}
	if id <= 0 {
		return f.SetCellValue(sheet, cell, nil)
	}
	return f.SetCellValue(sheet, cell, int64(id))
}

// usedColumns 工作表中最宽一行的列数
func usedColumns(f *excelize.File, sheet string) (int, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0, fmt.Errorf("failed to read sheet: %w", err)
	}
	n := 0
	for _, r := range rows {
		n = max(n, len(r))
	}
	return n, nil
}

// highlighter 只替换单元格的填充色，保留字体、边框与数字格式
type highlighter struct {
	f     *excelize.File
	color string
	cache map[int]int // 原样式 → 高亮样式
}

func newHighlighter(f *excelize.File, color string) *highlighter {
	return &highlighter{
		f:     f,
		color: strings.TrimPrefix(color, "#"),
		cache: make(map[int]int),
	}
}

func (h *highlighter) row(sheet string, rowNum, cols int) error {
	for c := 1; c <= cols; c++ {
		cell, err := excelize.CoordinatesToCellName(c, rowNum)
		if err != nil {
			return err
		}
		orig, err := h.f.GetCellStyle(sheet, cell)
		if err != nil {
			return err
		}
		styleID, err := h.styleFor(orig)
		if err != nil {
			return err
		}
		if err := h.f.SetCellStyle(sheet, cell, cell, styleID); err != nil {
			return err
		}
	}
	return nil
}

func (h *highlighter) styleFor(orig int) (int, error) {
	if id, ok := h.cache[orig]; ok {
		return id, nil
	}
	style := &excelize.Style{}
	if orig != 0 {
		if s, err := h.f.GetStyle(orig); err == nil && s != nil {
			style = s
		}
	}
	style.Fill = excelize.Fill{Type: "pattern", Color: []string{h.color}, Pattern: 1}
	id, err := h.f.NewStyle(style)
	if err != nil {
		return 0, err
	}
	h.cache[orig] = id
	return id, nil
}

// HighlightColor 读取单元格的填充色（测试与校验用）
func HighlightColor(f *excelize.File, sheet, cell string) (string, error) {
	id, err := f.GetCellStyle(sheet, cell)
	if err != nil {
		return "", err
	}
	if id == 0 {
		return "", nil
	}
	s, err := f.GetStyle(id)
	if err != nil {
		return "", err
	}
	if len(s.Fill.Color) == 0 {
		return "", nil
	}
	color := strings.ToUpper(strings.TrimPrefix(s.Fill.Color[0], "#"))
	if len(color) == 8 {
		color = color[2:] // ARGB
	}
	return color, nil
}
