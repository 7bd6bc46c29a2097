package merge

import (
	"strconv"

	"github.com/IM594/vivi-server-merge-tool/internal/model"
)

type stat struct {
	id       int64
	power    float64
	recharge float64
	dau      float64
}

func raw(stats ...stat) []model.RawRecord {
	out := make([]model.RawRecord, 0, len(stats))
	for _, s := range stats {
		out = append(out, model.RawRecord{
			model.FieldID:          strconv.FormatInt(s.id, 10),
			model.FieldPowerScore:  strconv.FormatFloat(s.power, 'f', -1, 64),
			model.FieldMaxRecharge: strconv.FormatFloat(s.recharge, 'f', -1, 64),
			model.FieldDAU:         strconv.FormatFloat(s.dau, 'f', -1, 64),
		})
	}
	return out
}

// descendingStats 区服 1..n，战力随 ID 严格递减，间隔 1e10
func descendingStats(n int) []stat {
	out := make([]stat, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, stat{id: int64(i), power: float64(n+1-i) * 1e10, dau: 100})
	}
	return out
}

func planOf(rows ...[2]model.ServerID) *model.Plan {
	p := &model.Plan{}
	for i, r := range rows {
		p.Rows = append(p.Rows, model.PlanRow{Number: i + 2, Slots: r})
	}
	return p
}

func row(a, b model.ServerID) [2]model.ServerID {
	return [2]model.ServerID{a, b}
}
