package grpc

import (
	"testing"
	"time"

	"clmm-admin-sol/internal/consts"
	"clmm-admin-sol/internal/types"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSubscribeRequest(t *testing.T) {
	ms := types.Pubkey{7, 7, 7}
	req := buildSubscribeRequest(consts.SquadsProgram, ms)

	require.NotNil(t, req.Commitment)
	assert.Equal(t, pb.CommitmentLevel_CONFIRMED, *req.Commitment)
	require.Len(t, req.Accounts, 2)
	assert.Equal(t, []string{ms.ToBase58()}, req.Accounts["multisig"].Account)

	proposals := req.Accounts["proposals"]
	assert.Equal(t, []string{consts.SquadsProgram.ToBase58()}, proposals.Owner)
	require.Len(t, proposals.Filters, 1)
	memcmp := proposals.Filters[0].GetMemcmp()
	require.NotNil(t, memcmp)
	assert.Equal(t, uint64(8), memcmp.Offset)
	assert.Equal(t, ms.ToBase58(), memcmp.GetBase58())
	assert.Empty(t, req.Blocks, "不订阅区块")
}

func TestDispatch(t *testing.T) {
	var got []AccountUpdate
	m := &AccountStreamManager{handler: func(u AccountUpdate) { got = append(got, u) }}

	key := types.Pubkey{1, 2, 3}
	m.dispatch(&pb.SubscribeUpdate{
		UpdateOneof: &pb.SubscribeUpdate_Account{
			Account: &pb.SubscribeUpdateAccount{
				Slot: 42,
				Account: &pb.SubscribeUpdateAccountInfo{
					Pubkey: key[:],
					Owner:  consts.SquadsProgram.Bytes(),
				},
			},
		},
	})
	// ping 与畸形账户不触发回调
	m.dispatch(&pb.SubscribeUpdate{UpdateOneof: &pb.SubscribeUpdate_Ping{Ping: &pb.SubscribeUpdatePing{}}})
	m.dispatch(&pb.SubscribeUpdate{
		UpdateOneof: &pb.SubscribeUpdate_Account{
			Account: &pb.SubscribeUpdateAccount{Account: &pb.SubscribeUpdateAccountInfo{Pubkey: []byte{1}}},
		},
	})

	require.Len(t, got, 1)
	assert.Equal(t, key, got[0].Pubkey)
	assert.Equal(t, consts.SquadsProgram, got[0].Owner)
	assert.Equal(t, uint64(42), got[0].Slot)
}

func TestIdleTimeout(t *testing.T) {
	assert.Equal(t, 30*time.Second, idleTimeout(time.Second))
	assert.Equal(t, 60*time.Second, idleTimeout(20*time.Second))
}
