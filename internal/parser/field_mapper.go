package parser

import (
	"sort"

	"github.com/IM594/vivi-server-merge-tool/internal/model"
)

// RequiredFields 排名与检测必需的字段
var RequiredFields = []string{
	model.FieldID,
	model.FieldPowerScore,
	model.FieldMaxRecharge,
	model.FieldDAU,
}

// FieldMapper 字段映射器：表头名 → 规范字段名
type FieldMapper struct {
	byHeader map[string]string
}

// NewFieldMapper 由别名表创建映射器；别名按规范化后比较
func NewFieldMapper(aliases map[string][]string) *FieldMapper {
	m := &FieldMapper{byHeader: make(map[string]string)}

	// 按字段名排序，保证同名别名冲突时结果稳定
	fields := make([]string, 0, len(aliases))
	for f := range aliases {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	for _, field := range fields {
		for _, alias := range aliases[field] {
			key := NormalizeColumnName(alias)
			if key == "" {
				continue
			}
			if _, taken := m.byHeader[key]; !taken {
				m.byHeader[key] = field
			}
		}
	}
	return m
}

// Field 返回表头对应的规范字段名
func (m *FieldMapper) Field(header string) (string, bool) {
	f, ok := m.byHeader[NormalizeColumnName(header)]
	return f, ok
}

// Map 映射一行表头；同一字段出现多次时取第一列
func (m *FieldMapper) Map(headers []string) (columns map[string]int, unmapped []string) {
	columns = make(map[string]int)
	for idx, h := range headers {
		if NormalizeColumnName(h) == "" {
			continue
		}
		field, ok := m.Field(h)
		if !ok {
			unmapped = append(unmapped, h)
			continue
		}
		if _, seen := columns[field]; !seen {
			columns[field] = idx
		}
	}
	return columns, unmapped
}

// MissingRequired 列出未映射到的必需字段
func MissingRequired(columns map[string]int) []string {
	var missing []string
	for _, f := range RequiredFields {
		if _, ok := columns[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}
