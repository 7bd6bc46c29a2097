package merge

import (
	"fmt"
	"sort"

	"github.com/IM594/vivi-server-merge-tool/internal/model"
)

// 跳过原因
const (
	SkipNotInPlan = "not_in_plan"
	SkipSameRow   = "same_row"
)

// ReconcileResult 合并改写结果
type ReconcileResult struct {
	Plan        *model.Plan
	Log         []model.SwapLogEntry
	Notices     []model.Notice
	ChangedRows []int // 被改写的工作表行号（升序、去重）
	Merged      int
}

// Reconcile 将每个正常组并入同一行，原搭档（剩余服）移入另一行。
// plan 与 index 原地修改；index 必须由同一个 plan 构建。
func Reconcile(normal []model.CandidatePair, plan *model.Plan, index *PlanIndex) ReconcileResult {
	res := ReconcileResult{
		Plan: plan,
		Log:  []model.SwapLogEntry{},
	}
	changed := make(map[int]struct{})

	for _, p := range normal {
		s1, s2 := p.A, p.B
		pos1, ok1 := index.RowOf(s1)
		pos2, ok2 := index.RowOf(s2)

		if !ok1 || !ok2 || pos1 == pos2 {
			entry := model.SwapLogEntry{Pair: p, Status: model.SwapSkipped, Reason: SkipNotInPlan}
			if ok1 {
				entry.Row1 = plan.Rows[pos1].Number
			}
			if ok2 {
				entry.Row2 = plan.Rows[pos2].Number
			}
			if ok1 && ok2 {
				entry.Reason = SkipSameRow
			}
			res.Log = append(res.Log, entry)
			res.Notices = append(res.Notices, model.Notice{
				Kind:    model.NoticeCannotMerge,
				Level:   model.LevelInfo,
				Message: fmt.Sprintf("无法合并 (%d, %d): %s", s1, s2, skipText(entry.Reason)),
			})
			continue
		}

		row1, row2 := &plan.Rows[pos1], &plan.Rows[pos2]
		before1, before2 := row1.String(), row2.String()

		left1 := leftovers(*row1, s1, s2)
		left2 := leftovers(*row2, s2, s1)
		rest := append(left1, left2...)

		row1.Slots = model.Canonical(s1, s2)
		row2.Slots = model.Canonical(rest...)

		index.assign(s1, pos1)
		index.assign(s2, pos1)
		for _, id := range rest {
			index.assign(id, pos2)
		}

		res.Log = append(res.Log, model.SwapLogEntry{
			Pair:    p,
			Status:  model.SwapMerged,
			Row1:    row1.Number,
			Row2:    row2.Number,
			Before1: before1,
			After1:  row1.String(),
			Before2: before2,
			After2:  row2.String(),
		})
		changed[row1.Number] = struct{}{}
		changed[row2.Number] = struct{}{}
		res.Merged++
	}

	res.ChangedRows = make([]int, 0, len(changed))
	for n := range changed {
		res.ChangedRows = append(res.ChangedRows, n)
	}
	sort.Ints(res.ChangedRows)
	return res
}

// leftovers 返回行中除 self 与 other 之外的区服
func leftovers(row model.PlanRow, self, other model.ServerID) []model.ServerID {
	var out []model.ServerID
	for _, id := range row.Slots {
		if id > 0 && id != self && id != other {
			out = append(out, id)
		}
	}
	return out
}

func skipText(reason string) string {
	switch reason {
	case SkipSameRow:
		return "已在同一行"
	default:
		return "未在合服计划中找到"
	}
}
