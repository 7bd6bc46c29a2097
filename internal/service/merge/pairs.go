package merge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/IM594/vivi-server-merge-tool/internal/model"
)

// PairParseResult 检测对解析结果
type PairParseResult struct {
	Pairs      []model.CandidatePair `json:"pairs"`
	Duplicates []string              `json:"duplicates"` // 形如 "9 ↔ 5"
	Malformed  []string              `json:"malformed"`  // 被跳过的原始行
}

// ParsePairs 解析手工输入的区服对，每行一对，逗号（含全角逗号）分隔
func ParsePairs(text string) PairParseResult {
	res := PairParseResult{
		Pairs:      []model.CandidatePair{},
		Duplicates: []string{},
		Malformed:  []string{},
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return res
	}

	seen := make(map[model.PairKey]struct{})
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		pair, ok := parsePairLine(line)
		if !ok {
			if strings.TrimSpace(line) != "" {
				res.Malformed = append(res.Malformed, line)
			}
			continue
		}

		key := pair.Key()
		if _, dup := seen[key]; dup {
			res.Duplicates = append(res.Duplicates, fmt.Sprintf("%d ↔ %d", pair.A, pair.B))
			continue
		}
		seen[key] = struct{}{}
		res.Pairs = append(res.Pairs, pair)
	}
	return res
}

func parsePairLine(line string) (model.CandidatePair, bool) {
	parts := strings.Split(strings.ReplaceAll(line, "，", ","), ",")
	if len(parts) < 2 {
		return model.CandidatePair{}, false
	}
	a, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return model.CandidatePair{}, false
	}
	b, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return model.CandidatePair{}, false
	}
	if a <= 0 || b <= 0 || a == b {
		return model.CandidatePair{}, false
	}
	return model.CandidatePair{A: model.ServerID(a), B: model.ServerID(b)}, true
}
