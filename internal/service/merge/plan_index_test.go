package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IM594/vivi-server-merge-tool/internal/model"
)

func TestBuildPlanIndex_FindPartner(t *testing.T) {
	t.Parallel()

	idx := BuildPlanIndex(planOf(row(1, 2), row(3, 0)))
	assert.Equal(t, 3, idx.Len())

	pos, partner, ok := idx.FindPartner(2)
	require.True(t, ok)
	assert.Equal(t, 0, pos)
	assert.Equal(t, model.ServerID(1), partner)

	pos, partner, ok = idx.FindPartner(3)
	require.True(t, ok)
	assert.Equal(t, 1, pos)
	assert.Equal(t, model.ServerID(0), partner)

	_, _, ok = idx.FindPartner(99)
	assert.False(t, ok)
}

func TestBuildPlanIndex_LastWriteWins(t *testing.T) {
	t.Parallel()

	idx := BuildPlanIndex(planOf(row(7, 8), row(7, 9)))

	pos, partner, ok := idx.FindPartner(7)
	require.True(t, ok)
	assert.Equal(t, 1, pos)
	assert.Equal(t, model.ServerID(9), partner)

	// 被覆盖的一行仍能查到其他成员
	pos, ok = idx.RowOf(8)
	require.True(t, ok)
	assert.Equal(t, 0, pos)
}
