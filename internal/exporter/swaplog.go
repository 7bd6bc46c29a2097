package exporter

import (
	"strconv"

	"github.com/IM594/vivi-server-merge-tool/internal/model"
	"github.com/IM594/vivi-server-merge-tool/internal/service/merge"
)

var swapLogHeader = []string{"合并申请", "原始行号1", "原始行号2", "Before1", "After1", "Before2", "After2", "状态", "原因"}

// WriteSwapLog 写出合并审计日志 CSV
func WriteSwapLog(path string, entries []model.SwapLogEntry) error {
	records := make([][]string, 0, len(entries)+1)
	records = append(records, swapLogHeader)
	for _, e := range entries {
		records = append(records, []string{
			e.Pair.String(),
			rowText(e.Row1),
			rowText(e.Row2),
			e.Before1,
			e.After1,
			e.Before2,
			e.After2,
			statusText(e.Status),
			reasonText(e.Reason),
		})
	}
	return writeCSV(path, records)
}

func rowText(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func statusText(s model.SwapStatus) string {
	if s == model.SwapMerged {
		return "已合并"
	}
	return "已跳过"
}

func reasonText(reason string) string {
	switch reason {
	case "":
		return ""
	case merge.SkipSameRow:
		return "已在同一行"
	case merge.SkipNotInPlan:
		return "未在合服计划中找到"
	default:
		return reason
	}
}
