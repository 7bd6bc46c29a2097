package merge

import (
	"sort"

	"github.com/IM594/vivi-server-merge-tool/internal/model"
)

// PrimaryRows 初级警报组成员的报表行
func PrimaryRows(groups []model.AlertGroup, table *Table) []model.ReportRow {
	rows := make([]model.ReportRow, 0, len(groups)*2)
	for _, g := range groups {
		for _, id := range g.Members {
			if rec, ok := table.Lookup(id); ok {
				rows = append(rows, model.NewReportRow(rec, g))
			}
		}
	}
	return rows
}

// AssembleReport 按组成员 ID（数值）、组类型、真实排名排序，组与组之间插入空行；
// 二次警报组紧跟在同一检测对的初级组之后
func AssembleReport(rows []model.ReportRow) []model.ReportRow {
	sorted := make([]model.ReportRow, 0, len(rows))
	for _, r := range rows {
		if !r.Separator {
			sorted = append(sorted, r)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Members != b.Members {
			if a.Members[0] != b.Members[0] {
				return a.Members[0] < b.Members[0]
			}
			return a.Members[1] < b.Members[1]
		}
		if a.Kind != b.Kind {
			return kindOrder(a.Kind) < kindOrder(b.Kind)
		}
		if a.GroupKey != b.GroupKey {
			return a.GroupKey < b.GroupKey
		}
		return a.Rank < b.Rank
	})

	out := make([]model.ReportRow, 0, len(sorted)*3/2)
	for i, r := range sorted {
		if i > 0 && r.GroupKey != sorted[i-1].GroupKey {
			out = append(out, model.ReportRow{Separator: true})
		}
		out = append(out, r)
	}
	return out
}

func kindOrder(k model.AlertKind) int {
	if k == model.AlertSecondary {
		return 1
	}
	return 0
}
