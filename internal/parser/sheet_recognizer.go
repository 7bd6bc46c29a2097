package parser

import "github.com/IM594/vivi-server-merge-tool/internal/model"

// maxHeaderScan 自动识别表头时最多扫描的行数
const maxHeaderScan = 5

// HeaderRecognizer 表头行识别器
type HeaderRecognizer struct {
	mapper *FieldMapper
}

// NewHeaderRecognizer 创建识别器
func NewHeaderRecognizer(mapper *FieldMapper) *HeaderRecognizer {
	return &HeaderRecognizer{mapper: mapper}
}

// Recognize 先尝试配置的表头行（从 1 开始），未命中区服 ID 列时在前几行中选置信度最高的一行
func (r *HeaderRecognizer) Recognize(rows [][]string, preferred int) (HeaderDetection, bool) {
	if preferred >= 1 && preferred <= len(rows) {
		det := r.detect(rows[preferred-1], preferred)
		if _, ok := det.Columns[model.FieldID]; ok {
			return det, true
		}
	}

	best := HeaderDetection{}
	for i := 0; i < len(rows) && i < maxHeaderScan; i++ {
		det := r.detect(rows[i], i+1)
		if _, ok := det.Columns[model.FieldID]; !ok {
			continue
		}
		if det.Confidence > best.Confidence {
			best = det
		}
	}
	return best, best.Row > 0
}

func (r *HeaderRecognizer) detect(headers []string, row int) HeaderDetection {
	columns, unmapped := r.mapper.Map(headers)
	hit := len(RequiredFields) - len(MissingRequired(columns))
	return HeaderDetection{
		Row:        row,
		Columns:    columns,
		Unmapped:   unmapped,
		Confidence: float64(hit) / float64(len(RequiredFields)),
	}
}
