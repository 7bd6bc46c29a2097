package exporter

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/IM594/vivi-server-merge-tool/internal/model"
)

const utf8BOM = "\ufeff"

// reportColumn 报表列；opt 非空表示可选列，所有行都缺失时整列省略
type reportColumn struct {
	header string
	value  func(r model.ReportRow) any
	opt    func(r model.ReportRow) *float64
}

func optional(header string, get func(r model.ReportRow) *float64) reportColumn {
	return reportColumn{
		header: header,
		opt:    get,
		value: func(r model.ReportRow) any {
			if v := get(r); v != nil {
				return *v
			}
			return nil
		},
	}
}

var reportColumns = []reportColumn{
	{header: "真实排名", value: func(r model.ReportRow) any { return r.Rank }},
	{header: "警报组ID", value: func(r model.ReportRow) any { return r.GroupKey }},
	{header: "警报原因", value: func(r model.ReportRow) any { return r.Reason }},
	{header: "区服ID", value: func(r model.ReportRow) any { return int64(r.ServerID) }},
	{header: "DAU", value: func(r model.ReportRow) any { return int64(r.DAU) }},
	optional("近3日收入", func(r model.ReportRow) *float64 { return r.Income3d }),
	optional("近7日收入", func(r model.ReportRow) *float64 { return r.Income7d }),
	optional("第一名战力", func(r model.ReportRow) *float64 { return r.Power1 }),
	optional("第二名战力", func(r model.ReportRow) *float64 { return r.Power2 }),
	optional("第三名战力", func(r model.ReportRow) *float64 { return r.Power3 }),
	{header: "前2名战力之和", value: func(r model.ReportRow) any { return r.Top2Power }},
	optional("前3名战力之和", func(r model.ReportRow) *float64 { return r.Top3Power }),
	optional("前十平均战力", func(r model.ReportRow) *float64 { return r.Top10AvgPower }),
	optional("前十平均等级", func(r model.ReportRow) *float64 { return r.Top10AvgLevel }),
	{header: "最高玩家累充金额", value: func(r model.ReportRow) any { return r.MaxRecharge }},
}

// activeColumns 保留至少一行有值的可选列
func activeColumns(rows []model.ReportRow) []reportColumn {
	cols := make([]reportColumn, 0, len(reportColumns))
	for _, c := range reportColumns {
		if c.opt == nil {
			cols = append(cols, c)
			continue
		}
		for _, r := range rows {
			if !r.Separator && c.opt(r) != nil {
				cols = append(cols, c)
				break
			}
		}
	}
	return cols
}

// ReportHeaders 报表实际输出的列名
func ReportHeaders(rows []model.ReportRow) []string {
	cols := activeColumns(rows)
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.header
	}
	return out
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// WriteReportCSV 写出带 BOM 的 UTF-8 CSV；分隔行输出为空行
func WriteReportCSV(path string, rows []model.ReportRow) error {
	cols := activeColumns(rows)
	records := make([][]string, 0, len(rows)+1)

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.header
	}
	records = append(records, header)

	for _, r := range rows {
		rec := make([]string, len(cols))
		if !r.Separator {
			for i, c := range cols {
				rec[i] = formatValue(c.value(r))
			}
		}
		records = append(records, rec)
	}
	return writeCSV(path, records)
}

// WriteReportXLSX 写出警报报表工作簿
func WriteReportXLSX(path string, rows []model.ReportRow) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "警报结果"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	cols := activeColumns(rows)
	for i, c := range cols {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, c.header); err != nil {
			return err
		}
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(sheetName, 1, 1, headerStyle); err != nil {
		return err
	}

	for i, r := range rows {
		if r.Separator {
			continue
		}
		for j, c := range cols {
			v := c.value(r)
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return err
			}
		}
	}

	if len(cols) > 0 {
		last, _ := excelize.ColumnNumberToName(len(cols))
		_ = f.SetColWidth(sheetName, "A", last, 14)
		_ = f.SetColWidth(sheetName, "C", "C", 40)
	}
	return f.SaveAs(path)
}

func writeCSV(path string, records [][]string) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fh.Close()

	bw := bufio.NewWriter(fh)
	if _, err := bw.WriteString(utf8BOM); err != nil {
		return err
	}
	w := csv.NewWriter(bw)
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return fh.Close()
}
