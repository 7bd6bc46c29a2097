package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/IM594/vivi-server-merge-tool/internal/model"
)

var spaceRe = regexp.MustCompile(`\s+`)

// NormalizeColumnName 规范化列名，去除 BOM、空白和全角空格
func NormalizeColumnName(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	name = strings.ReplaceAll(name, "\u3000", "")
	return spaceRe.ReplaceAllString(strings.TrimSpace(name), "")
}

// ContainsAny 检查字符串是否包含任意一个关键词
func ContainsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// ParseServerID 单元格转区服 ID；"101"、"101.0"、" 101 " 均可，其他视为空位
func ParseServerID(cell string) (model.ServerID, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(cell, 10, 64); err == nil {
		if n <= 0 {
			return 0, false
		}
		return model.ServerID(n), true
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil || f <= 0 || f != math.Trunc(f) || f > math.MaxInt64 {
		return 0, false
	}
	return model.ServerID(f), true
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
