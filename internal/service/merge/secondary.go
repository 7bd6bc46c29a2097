package merge

import (
	"fmt"
	"strings"

	"github.com/IM594/vivi-server-merge-tool/internal/model"
)

// SecondaryResult 二次检测产物
type SecondaryResult struct {
	Groups []model.AlertGroup
	Rows   []model.ReportRow
}

// SecondaryCheck 对每个初级警报组，沿计划索引找到两个成员的现有搭档，
// 对成员与搭档逐个检查 DAU；命中时生成独立键控的新警报组
func SecondaryCheck(groups []model.AlertGroup, table *Table, index *PlanIndex, rules Rules) SecondaryResult {
	res := SecondaryResult{
		Groups: []model.AlertGroup{},
		Rows:   []model.ReportRow{},
	}

	for _, g := range groups {
		if g.Kind != model.AlertPrimary {
			continue
		}
		a, b := g.Members[0], g.Members[1]

		var flagged []model.FlaggedServer
		check := func(id model.ServerID, member bool) {
			rec, ok := table.Lookup(id)
			if ok && rec.DAU <= rules.DAUThreshold {
				flagged = append(flagged, model.FlaggedServer{ID: id, DAU: rec.DAU, IsMember: member})
			}
		}
		check(a, true)
		check(b, true)
		for _, p := range partnersOf(index, a, b) {
			check(p, false)
		}
		if len(flagged) == 0 {
			continue
		}

		sg := model.AlertGroup{
			Key:     model.GroupKey(model.AlertSecondary, a, b),
			Kind:    model.AlertSecondary,
			Members: [2]model.ServerID{a, b},
			Reason:  secondaryReason(flagged),
			Flagged: flagged,
		}
		res.Groups = append(res.Groups, sg)

		ids := []model.ServerID{a, b}
		for _, f := range flagged {
			if !f.IsMember {
				ids = append(ids, f.ID)
			}
		}
		for _, id := range ids {
			if rec, ok := table.Lookup(id); ok {
				res.Rows = append(res.Rows, model.NewReportRow(rec, sg))
			}
		}
	}
	return res
}

// partnersOf 返回两个成员在计划中的搭档，去掉空位、成员自身与重复项
func partnersOf(index *PlanIndex, a, b model.ServerID) []model.ServerID {
	var out []model.ServerID
	for _, m := range []model.ServerID{a, b} {
		_, p, ok := index.FindPartner(m)
		if !ok || p <= 0 || p == a || p == b {
			continue
		}
		if len(out) == 1 && out[0] == p {
			continue
		}
		out = append(out, p)
	}
	return out
}

func secondaryReason(flagged []model.FlaggedServer) string {
	parts := make([]string, 0, len(flagged))
	for _, f := range flagged {
		if f.IsMember {
			parts = append(parts, fmt.Sprintf("%d本身DAU过低(%d)", f.ID, int64(f.DAU)))
		} else {
			parts = append(parts, fmt.Sprintf("关联服%dDAU过低(%d)", f.ID, int64(f.DAU)))
		}
	}
	return strings.Join(parts, " | ")
}
