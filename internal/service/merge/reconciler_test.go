package merge

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IM594/vivi-server-merge-tool/internal/model"
)

func slotsOf(p *model.Plan) [][2]model.ServerID {
	out := make([][2]model.ServerID, 0, len(p.Rows))
	for _, r := range p.Rows {
		out = append(out, r.Slots)
	}
	return out
}

func TestReconcile_MergesPairAndRepairsLeftovers(t *testing.T) {
	t.Parallel()

	plan := planOf(row(10, 30), row(31, 11), row(1, 2))
	index := BuildPlanIndex(plan)

	res := Reconcile([]model.CandidatePair{{A: 10, B: 11}}, plan, index)

	want := [][2]model.ServerID{{10, 11}, {30, 31}, {1, 2}}
	if diff := cmp.Diff(want, slotsOf(res.Plan)); diff != "" {
		t.Fatalf("plan mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, res.Log, 1)
	entry := res.Log[0]
	assert.Equal(t, model.SwapMerged, entry.Status)
	assert.Equal(t, 2, entry.Row1)
	assert.Equal(t, 3, entry.Row2)
	assert.Equal(t, "[10 + 30]", entry.Before1)
	assert.Equal(t, "[10 + 11]", entry.After1)
	assert.Equal(t, "[31 + 11]", entry.Before2)
	assert.Equal(t, "[30 + 31]", entry.After2)
	assert.Equal(t, []int{2, 3}, res.ChangedRows)
	assert.Equal(t, 1, res.Merged)
}

func TestReconcile_SkipsSameRowAndMissing(t *testing.T) {
	t.Parallel()

	plan := planOf(row(1, 2), row(3, 4))
	index := BuildPlanIndex(plan)

	res := Reconcile([]model.CandidatePair{{A: 2, B: 1}, {A: 3, B: 77}}, plan, index)

	assert.Equal(t, [][2]model.ServerID{{1, 2}, {3, 4}}, slotsOf(plan))
	require.Len(t, res.Log, 2)
	assert.Equal(t, model.SwapSkipped, res.Log[0].Status)
	assert.Equal(t, SkipSameRow, res.Log[0].Reason)
	assert.Equal(t, SkipNotInPlan, res.Log[1].Reason)
	assert.Equal(t, 3, res.Log[1].Row1)
	assert.Zero(t, res.Log[1].Row2)
	assert.Len(t, res.Notices, 2)
	assert.Empty(t, res.ChangedRows)
	assert.Zero(t, res.Merged)
}

func TestReconcile_SingleAndNoLeftovers(t *testing.T) {
	t.Parallel()

	plan := planOf(row(5, 0), row(6, 9))
	index := BuildPlanIndex(plan)

	res := Reconcile([]model.CandidatePair{{A: 6, B: 5}}, plan, index)
	assert.Equal(t, [][2]model.ServerID{{9, 0}, {5, 6}}, slotsOf(plan))
	assert.Equal(t, "[9 + 空]", res.Log[0].After2)

	plan = planOf(row(5, 0), row(0, 6))
	index = BuildPlanIndex(plan)
	Reconcile([]model.CandidatePair{{A: 5, B: 6}}, plan, index)
	assert.Equal(t, [][2]model.ServerID{{5, 6}, {0, 0}}, slotsOf(plan))
}

func TestReconcile_IndexSeesEarlierSteps(t *testing.T) {
	t.Parallel()

	plan := planOf(row(1, 2), row(3, 4), row(5, 6))
	index := BuildPlanIndex(plan)

	res := Reconcile([]model.CandidatePair{{A: 1, B: 3}}, plan, index)
	require.Equal(t, 1, res.Merged)

	pos, partner, ok := index.FindPartner(1)
	require.True(t, ok)
	assert.Equal(t, 0, pos)
	assert.Equal(t, model.ServerID(3), partner)
	_, partner, _ = index.FindPartner(4)
	assert.Equal(t, model.ServerID(2), partner)

	// 2 刚被移到第二行，下一步必须读到新位置
	res = Reconcile([]model.CandidatePair{{A: 2, B: 5}}, plan, index)
	require.Equal(t, 1, res.Merged)
	assert.Equal(t, [][2]model.ServerID{{1, 3}, {2, 5}, {4, 6}}, slotsOf(plan))

	pos, partner, _ = index.FindPartner(6)
	assert.Equal(t, 2, pos)
	assert.Equal(t, model.ServerID(4), partner)
}

func TestReconcile_PreservesEveryServer(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		var rows [][2]model.ServerID
		next := model.ServerID(1)
		for i := 0; i < 12; i++ {
			switch rng.Intn(4) {
			case 0:
				rows = append(rows, row(next, 0))
				next++
			default:
				rows = append(rows, row(next, next+1))
				next += 2
			}
		}
		plan := planOf(rows...)
		before := plan.IDs()

		var pairs []model.CandidatePair
		for i := 0; i < 20; i++ {
			a := model.ServerID(rng.Int63n(int64(next-1)) + 1)
			b := model.ServerID(rng.Int63n(int64(next-1)) + 1)
			if a != b {
				pairs = append(pairs, model.CandidatePair{A: a, B: b})
			}
		}

		index := BuildPlanIndex(plan)
		Reconcile(pairs, plan, index)

		require.Len(t, plan.Rows, len(rows))
		after := plan.IDs()
		require.Equal(t, len(before), len(after), "round %d", round)
		for id := range before {
			require.Equal(t, 1, after[id], "round %d id %d", round, id)
			pos, ok := index.RowOf(id)
			require.True(t, ok)
			_, inRow := plan.Rows[pos].Other(id)
			require.True(t, inRow, "round %d id %d indexed to wrong row", round, id)
		}
	}
}
