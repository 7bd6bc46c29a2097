package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IM594/vivi-server-merge-tool/internal/model"
)

func secondaryFixture(t *testing.T, partnerDAU map[int64]float64) (*Table, []model.AlertGroup, *PlanIndex) {
	t.Helper()

	stats := descendingStats(20)
	for id, dau := range partnerDAU {
		stats = append(stats, stat{id: id, power: 1, dau: dau})
	}
	table, err := RankAll(raw(stats...))
	require.NoError(t, err)

	alerts, _, _ := NewDetector(DefaultRules()).Partition([]model.CandidatePair{{A: 1, B: 2}}, table)
	require.Len(t, alerts, 1)

	plan := planOf(row(1, 40), row(41, 2), row(3, 4))
	return table, alerts, BuildPlanIndex(plan)
}

func TestSecondaryCheck_LowDAUPartner(t *testing.T) {
	t.Parallel()

	table, alerts, index := secondaryFixture(t, map[int64]float64{40: 3, 41: 100})
	res := SecondaryCheck(alerts, table, index, DefaultRules())

	require.Len(t, res.Groups, 1)
	g := res.Groups[0]
	assert.Equal(t, model.AlertSecondary, g.Kind)
	assert.Equal(t, "Group_1_2_DAU", g.Key)
	assert.NotEqual(t, alerts[0].Key, g.Key)
	assert.Equal(t, [2]model.ServerID{1, 2}, g.Members)
	assert.Equal(t, "关联服40DAU过低(3)", g.Reason)
	assert.Equal(t, []model.FlaggedServer{{ID: 40, DAU: 3}}, g.Flagged)

	var ids []model.ServerID
	for _, r := range res.Rows {
		assert.Equal(t, g.Key, r.GroupKey)
		ids = append(ids, r.ServerID)
	}
	assert.Equal(t, []model.ServerID{1, 2, 40}, ids)
}

func TestSecondaryCheck_NoFlagIsSilent(t *testing.T) {
	t.Parallel()

	table, alerts, index := secondaryFixture(t, map[int64]float64{40: 6, 41: 100})
	res := SecondaryCheck(alerts, table, index, DefaultRules())
	assert.Empty(t, res.Groups)
	assert.Empty(t, res.Rows)
}

func TestSecondaryCheck_MemberAndPartnerFlagged(t *testing.T) {
	t.Parallel()

	stats := descendingStats(20)
	stats[1].dau = 2 // 区服 2
	stats = append(stats, stat{id: 40, power: 1, dau: 5}, stat{id: 41, power: 1, dau: 0})
	table, err := RankAll(raw(stats...))
	require.NoError(t, err)

	alerts, _, _ := NewDetector(DefaultRules()).Partition([]model.CandidatePair{{A: 2, B: 1}}, table)
	index := BuildPlanIndex(planOf(row(1, 40), row(41, 2)))

	res := SecondaryCheck(alerts, table, index, DefaultRules())
	require.Len(t, res.Groups, 1)
	assert.Equal(t, "2本身DAU过低(2) | 关联服40DAU过低(5) | 关联服41DAU过低(0)", res.Groups[0].Reason)
	assert.Len(t, res.Rows, 4)
}

func TestSecondaryCheck_PartnerAbsentOrMember(t *testing.T) {
	t.Parallel()

	table, err := RankAll(raw(descendingStats(20)...))
	require.NoError(t, err)
	alerts, _, _ := NewDetector(DefaultRules()).Partition([]model.CandidatePair{{A: 1, B: 2}}, table)

	// 1 与 2 已同行，另有区服不在计划中
	index := BuildPlanIndex(planOf(row(1, 2), row(5, 0)))
	res := SecondaryCheck(alerts, table, index, DefaultRules())
	assert.Empty(t, res.Groups)

	assert.Empty(t, partnersOf(index, 1, 2))
}

func TestSecondaryCheck_PartnerMissingFromStats(t *testing.T) {
	t.Parallel()

	table, err := RankAll(raw(descendingStats(20)...))
	require.NoError(t, err)
	alerts, _, _ := NewDetector(DefaultRules()).Partition([]model.CandidatePair{{A: 1, B: 2}}, table)

	index := BuildPlanIndex(planOf(row(1, 500), row(2, 501)))
	res := SecondaryCheck(alerts, table, index, DefaultRules())
	assert.Empty(t, res.Groups)
}
