package main

import (
	"bytes"
	"context"
	"testing"

	"clmm-admin-sol/internal/consts"
	"clmm-admin-sol/internal/logic/clmm"
	"clmm-admin-sol/internal/logic/multisig"
	"clmm-admin-sol/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPubkeyFlag(t *testing.T) {
	f := &pubkeyFlag{}
	assert.Nil(t, f.ptr())
	assert.Equal(t, consts.TokenProgram, f.or(consts.TokenProgram))
	assert.Empty(t, f.String())

	require.NoError(t, f.Set(" "+consts.SystemProgram.ToBase58()+" "))
	assert.True(t, f.set, "全 0 地址也算已提供")
	require.NotNil(t, f.ptr())
	assert.Equal(t, consts.SystemProgram, *f.ptr())
	assert.Equal(t, consts.SystemProgram, f.or(consts.TokenProgram))

	assert.Error(t, (&pubkeyFlag{}).Set("not-base58!"))
}

func TestPubkeyListFlag(t *testing.T) {
	var f pubkeyListFlag
	require.NoError(t, f.Set(consts.TokenProgram.ToBase58()+", "+consts.TokenProgram2022.ToBase58()+","))
	require.NoError(t, f.Set(consts.MemoProgram.ToBase58()))
	assert.Equal(t, pubkeyListFlag{consts.TokenProgram, consts.TokenProgram2022, consts.MemoProgram}, f)
}

func TestMemberListFlag(t *testing.T) {
	var f memberListFlag
	k1, k2 := consts.TokenProgram, consts.MemoProgram
	require.NoError(t, f.Set(k1.ToBase58()+":vote+execute,"+k2.ToBase58()))
	require.Len(t, f, 2)
	assert.Equal(t, k1, f[0].Key)
	assert.True(t, f[0].Permissions.Has(multisig.PermissionVote))
	assert.True(t, f[0].Permissions.Has(multisig.PermissionExecute))
	assert.False(t, f[0].Permissions.Has(multisig.PermissionInitiate))
	assert.Equal(t, multisig.AllPermissions(), f[1].Permissions, "省略权限时为全部权限")

	assert.Error(t, f.Set(k1.ToBase58()+":fly"))
}

func TestRequired(t *testing.T) {
	set := &pubkeyFlag{set: true}
	assert.NoError(t, required(map[string]*pubkeyFlag{"pool": set}))
	err := required(map[string]*pubkeyFlag{"pool": set, "mint": {}, "b": {}})
	require.Error(t, err)
	assert.Equal(t, "missing required flags: -b, -mint", err.Error())
}

func TestParseUpdateTag(t *testing.T) {
	cases := map[string]clmm.UpdateTag{
		"trade_fee_rate": clmm.UpdateTradeFeeRate,
		"Fund_Owner":     clmm.UpdateNewFundOwner,
		"1":              clmm.UpdateProtocolFeeRate,
		"owner":          clmm.UpdateNewOwner,
	}
	for in, want := range cases {
		got, err := parseUpdateTag(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseUpdateTag("fee")
	assert.ErrorIs(t, err, clmm.ErrUnknownUpdateTag)
}

func TestParseBaseFlag(t *testing.T) {
	lo, hi := types.Pubkey{1}, types.Pubkey{2}

	v, err := parseBaseFlag("", lo, hi)
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = parseBaseFlag("a", lo, hi)
	require.NoError(t, err)
	assert.True(t, *v)

	// mint-a 排序后为 token1
	v, err = parseBaseFlag("a", hi, lo)
	require.NoError(t, err)
	assert.False(t, *v)

	v, err = parseBaseFlag("b", hi, lo)
	require.NoError(t, err)
	assert.True(t, *v)

	_, err = parseBaseFlag("c", lo, hi)
	assert.Error(t, err)
}

func offlineApp() (*app, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &app{asm: clmm.NewAssembler(consts.ClmmProgram), out: out}, out
}

func TestRunPrice(t *testing.T) {
	a, out := offlineApp()
	require.NoError(t, runPrice(context.Background(), a, []string{"-fee-rate", "2500"}))
	assert.Equal(t, "fee percent: 0.25%\n", out.String())

	out.Reset()
	require.NoError(t, runPrice(context.Background(), a, []string{"-fee-percent", "0.05"}))
	assert.Equal(t, "fee rate: 500\n", out.String())

	out.Reset()
	require.NoError(t, runPrice(context.Background(), a, []string{"-price", "1"}))
	assert.Equal(t, "sqrt_price_x64: 18446744073709551616\n", out.String())

	assert.Error(t, runPrice(context.Background(), a, nil))
}

func TestRunPda(t *testing.T) {
	a, out := offlineApp()
	require.NoError(t, runPda(context.Background(), a, []string{"-kind", "amm-config", "-index", "3"}))
	want, err := a.asm.Deriver().AmmConfig(3)
	require.NoError(t, err)
	assert.Equal(t, want.String()+"\n", out.String())

	err = runPda(context.Background(), a, []string{"-kind", "pool"})
	assert.ErrorContains(t, err, "-mint-a")

	assert.Error(t, runPda(context.Background(), a, []string{"-kind", "nope"}))
}
