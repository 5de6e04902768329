package progress

import (
	"context"
	"testing"

	"clmm-admin-sol/internal/types"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Store = (*RedisProgressStore)(nil)
	_ Store = (*MemoryProgressStore)(nil)
	_ redis.Cmdable = (*redis.Client)(nil)
)

func TestProposalState_Fingerprint(t *testing.T) {
	a := ProposalState{Status: "Active", Approved: 1}
	b := ProposalState{Status: "Active", Approved: 2}
	assert.Equal(t, "Active:1:0:0", a.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint(), "投票数变化应改变指纹")
}

func TestRedisKeys(t *testing.T) {
	ms := types.PubkeyFromBase58("SQDS4ep65T869zMMBKyuUq6aD6EgTu8psMjkvj52pCf")
	assert.Equal(t, "progress:proposal:SQDS4ep65T869zMMBKyuUq6aD6EgTu8psMjkvj52pCf:12", proposalKey(ms, 12))
	assert.Equal(t, "progress:cursor:SQDS4ep65T869zMMBKyuUq6aD6EgTu8psMjkvj52pCf", cursorKey(ms))
}

func TestMemoryProgressStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryProgressStore()
	a, b := types.Pubkey{1}, types.Pubkey{2}

	state, err := s.GetProposalState(ctx, a, 1)
	require.NoError(t, err)
	assert.Empty(t, state)

	require.NoError(t, s.MarkProposalState(ctx, a, 1, "Active:0:0:0"))
	state, _ = s.GetProposalState(ctx, a, 1)
	assert.Equal(t, "Active:0:0:0", state)
	state, _ = s.GetProposalState(ctx, b, 1)
	assert.Empty(t, state, "不同 multisig 互不影响")

	cursor, err := s.GetCursor(ctx, a)
	require.NoError(t, err)
	assert.Zero(t, cursor)
	require.NoError(t, s.SetCursor(ctx, a, 5))
	cursor, _ = s.GetCursor(ctx, a)
	assert.Equal(t, uint64(5), cursor)
}
