package clmm

import (
	"context"
	"testing"

	"clmm-admin-sol/internal/consts"
	"clmm-admin-sol/internal/ledger"
	"clmm-admin-sol/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFetcher struct {
	accounts map[types.Pubkey]*ledger.Account
	calls    int
}

func (f *countingFetcher) GetAccount(_ context.Context, addr types.Pubkey) (*ledger.Account, error) {
	f.calls++
	acc, ok := f.accounts[addr]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	return acc, nil
}

func mintData(size int, decimals uint8) []byte {
	data := make([]byte, size)
	data[mintDecimalsOffset] = decimals
	return data
}

func TestMintResolver(t *testing.T) {
	ctx := context.Background()
	spl, t22, notMint, short := key(0x11), key(0x12), key(0x13), key(0x14)
	f := &countingFetcher{accounts: map[types.Pubkey]*ledger.Account{
		spl:     {Owner: consts.TokenProgram, Data: mintData(mintAccountLen, 8)},
		t22:     {Owner: consts.TokenProgram2022, Data: mintData(mintAccountLen+90, 2)},
		notMint: {Owner: consts.SystemProgram, Data: mintData(mintAccountLen, 0)},
		short:   {Owner: consts.TokenProgram, Data: make([]byte, 40)},
	}}
	r := NewMintResolver(f)

	info, err := r.Resolve(ctx, spl)
	require.NoError(t, err)
	assert.Equal(t, MintInfo{Mint: spl, TokenProgram: consts.TokenProgram, Decimals: 8}, info)

	info, err = r.Resolve(ctx, t22)
	require.NoError(t, err)
	assert.Equal(t, consts.TokenProgram2022, info.TokenProgram, "带扩展的 token-2022 mint")
	assert.Equal(t, uint8(2), info.Decimals)

	_, err = r.Resolve(ctx, spl)
	require.NoError(t, err)
	assert.Equal(t, 2, f.calls, "命中缓存不再读链")

	info, err = r.Resolve(ctx, consts.USDCMint)
	require.NoError(t, err)
	assert.Equal(t, uint8(USDCDecimals), info.Decimals)
	assert.Equal(t, 2, f.calls, "常用 mint 不读链")

	_, err = r.Resolve(ctx, notMint)
	assert.ErrorIs(t, err, ErrNotMint)
	_, err = r.Resolve(ctx, short)
	assert.ErrorIs(t, err, ErrNotMint)
	_, err = r.Resolve(ctx, key(0x15))
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}
