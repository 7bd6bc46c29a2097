package merge

import (
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/IM594/vivi-server-merge-tool/internal/model"
)

var (
	// ErrEmptyDataset 数值转换后没有任何可用的区服记录
	ErrEmptyDataset = errors.New("no server records after coercion")
	// ErrNoInputTable 没有任何可用的统计表
	ErrNoInputTable = errors.New("no usable statistics table")
)

// Table 合并、排名后的区服统计表
type Table struct {
	records []model.ServerRecord
	byID    map[model.ServerID]int
}

// RankAll 转换数值字段、按战力降序排序并分配排名
func RankAll(raw []model.RawRecord) (*Table, error) {
	records := make([]model.ServerRecord, 0, len(raw))
	for _, r := range raw {
		rec := coerceRecord(r)
		if rec.ID <= 0 {
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].PowerScore > records[j].PowerScore
	})

	t := &Table{
		records: records,
		byID:    make(map[model.ServerID]int, len(records)),
	}
	for i := range t.records {
		t.records[i].Rank = i + 1
		// 同一 ID 出现多次时保留排名靠前的一条
		if _, ok := t.byID[t.records[i].ID]; !ok {
			t.byID[t.records[i].ID] = i
		}
	}
	return t, nil
}

// Lookup 按区服 ID 查询；不存在时返回 false
func (t *Table) Lookup(id model.ServerID) (model.ServerRecord, bool) {
	idx, ok := t.byID[id]
	if !ok {
		return model.ServerRecord{}, false
	}
	return t.records[idx], true
}

// Len 记录总数 N
func (t *Table) Len() int {
	return len(t.records)
}

// Records 按排名顺序返回全部记录
func (t *Table) Records() []model.ServerRecord {
	out := make([]model.ServerRecord, len(t.records))
	copy(out, t.records)
	return out
}

func coerceRecord(r model.RawRecord) model.ServerRecord {
	rec := model.ServerRecord{
		ID:          model.ServerID(ParseNumber(r[model.FieldID])),
		PowerScore:  ParseNumber(r[model.FieldPowerScore]),
		MaxRecharge: ParseNumber(r[model.FieldMaxRecharge]),
		DAU:         ParseNumber(r[model.FieldDAU]),
	}
	for _, field := range model.OptionalFields {
		v, ok := r[field]
		if !ok {
			continue
		}
		if rec.Metrics == nil {
			rec.Metrics = make(map[string]float64)
		}
		rec.Metrics[field] = ParseNumber(v)
	}
	return rec
}

// ParseNumber 宽松数值解析：去除千分位与空白，无法解析时返回 0
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
