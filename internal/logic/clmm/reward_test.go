package clmm

import (
	"encoding/binary"
	"testing"

	"clmm-admin-sol/internal/consts"
	"clmm-admin-sol/internal/pda"
	"clmm-admin-sol/internal/types"

	soltypes "github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type metaFlags struct {
	key      types.Pubkey
	signer   bool
	writable bool
}

func flagsOf(ix soltypes.Instruction) []metaFlags {
	out := make([]metaFlags, 0, len(ix.Accounts))
	for _, m := range ix.Accounts {
		out = append(out, metaFlags{m.PubKey, m.IsSigner, m.IsWritable})
	}
	return out
}

func discOf(ix soltypes.Instruction) uint64 {
	return binary.BigEndian.Uint64(ix.Data[:8])
}

func TestOffchainReward_Accounts(t *testing.T) {
	asm := NewAssembler(consts.ClmmProgram)
	d := asm.Deriver()
	pool, mint, payer, authority, token := key(0x50), key(0x60), key(0x90), key(0x91), key(0x92)

	adminGroup, err := d.AdminGroup()
	require.NoError(t, err)
	cfg, err := d.OffchainReward(pool)
	require.NoError(t, err)
	vault, err := pda.AssociatedTokenAddress(cfg.Address, mint, consts.TokenProgram2022)
	require.NoError(t, err)

	p := RewardParams{Pool: pool, Mint: mint, TokenProgram: consts.TokenProgram2022, Amount: 1_000_000}

	ix, err := asm.DepositOffchainReward(payer, authority, token, p)
	require.NoError(t, err)
	assert.Equal(t, DiscDepositOffchainReward, discOf(ix))
	assert.Equal(t, uint64(1_000_000), binary.LittleEndian.Uint64(ix.Data[8:16]))
	assert.Equal(t, []metaFlags{
		{payer, true, true},
		{authority, true, false},
		{adminGroup.Address, false, false},
		{pool, false, false},
		{mint, false, false},
		{token, false, true},
		{cfg.Address, false, true},
		{vault.Address, false, true},
		{consts.TokenProgram2022, false, false},
		{consts.AssociatedTokenProgram, false, false},
		{consts.SystemProgram, false, false},
	}, flagsOf(ix))

	ix, err = asm.ClaimOffchainReward(payer, authority, token, p)
	require.NoError(t, err)
	assert.Equal(t, DiscClaimOffchainReward, discOf(ix))
	require.Len(t, ix.Accounts, 10)
	assert.Equal(t, metaFlags{vault.Address, false, true}, flagsOf(ix)[6])
	assert.Equal(t, metaFlags{cfg.Address, false, false}, flagsOf(ix)[7], "领取时 reward config 只读")

	ix, err = asm.WithdrawOffchainReward(authority, token, p)
	require.NoError(t, err)
	assert.Equal(t, DiscWithdrawOffchainReward, discOf(ix))
	require.Len(t, ix.Accounts, 9)
	assert.Equal(t, metaFlags{authority, true, false}, flagsOf(ix)[0])
	assert.Equal(t, metaFlags{cfg.Address, false, true}, flagsOf(ix)[6])

	// 未指定 token program 时使用 SPL Token
	p.TokenProgram = types.ZeroPubkey
	ix, err = asm.WithdrawOffchainReward(authority, token, p)
	require.NoError(t, err)
	assert.Equal(t, consts.TokenProgram, ix.Accounts[7].PubKey)

	_, err = asm.DepositOffchainReward(payer, types.ZeroPubkey, token, p)
	assert.ErrorIs(t, err, ErrIncompleteAccounts)
	_, err = asm.ClaimOffchainReward(payer, authority, token, RewardParams{Pool: pool})
	assert.ErrorIs(t, err, ErrIncompleteAccounts)
}

func TestCollectFundFee_SortsAmountsWithMints(t *testing.T) {
	asm := NewAssembler(consts.ClmmProgram)
	pool, keeper := key(0x50), key(0x70)
	lo := MintInfo{Mint: key(0x01), TokenProgram: consts.TokenProgram}
	hi := MintInfo{Mint: key(0x02), TokenProgram: consts.TokenProgram2022}

	ix, err := asm.CollectFundFee(CollectFundFeeParams{Pool: pool, Mint0: hi, Mint1: lo, FeeKeeper: keeper, Amount0Max: 7, Amount1Max: 9})
	require.NoError(t, err)
	assert.Equal(t, DiscCollectFundFee, discOf(ix))
	assert.Equal(t, uint64(9), binary.LittleEndian.Uint64(ix.Data[8:16]), "数量随 mint 一起交换")
	assert.Equal(t, uint64(7), binary.LittleEndian.Uint64(ix.Data[16:24]))

	require.Len(t, ix.Accounts, 11)
	assert.Equal(t, lo.Mint, ix.Accounts[4].PubKey)
	assert.Equal(t, hi.Mint, ix.Accounts[5].PubKey)
	recipient1, err := pda.AssociatedTokenAddress(keeper, hi.Mint, consts.TokenProgram2022)
	require.NoError(t, err)
	assert.Equal(t, recipient1.Address, ix.Accounts[7].PubKey, "接收账户使用各自 mint 的 token program")
	for _, m := range ix.Accounts {
		assert.False(t, m.IsSigner, "collect_fund_fee 无需签名")
	}

	_, err = asm.CollectFundFee(CollectFundFeeParams{Pool: pool, Mint0: lo, Mint1: hi})
	assert.ErrorIs(t, err, ErrIncompleteAccounts)
}

func TestAdminMiscInstructions(t *testing.T) {
	asm := NewAssembler(consts.ClmmProgram)
	d := asm.Deriver()
	owner, pool, newOwner, mint := key(0x90), key(0x50), key(0x93), key(0x61)

	ix, err := asm.TransferRewardOwner(owner, pool, newOwner)
	require.NoError(t, err)
	assert.Equal(t, DiscTransferRewardOwner, discOf(ix))
	assert.Equal(t, newOwner[:], ix.Data[8:40])
	assert.Equal(t, metaFlags{pool, false, true}, flagsOf(ix)[2])

	ix, err = asm.CreateOperationAccount(owner)
	require.NoError(t, err)
	assert.Len(t, ix.Data, 8)
	op, err := d.Operation()
	require.NoError(t, err)
	assert.Equal(t, metaFlags{op.Address, false, true}, flagsOf(ix)[2])

	ix, err = asm.CreateSupportMintAssociated(owner, mint)
	require.NoError(t, err)
	assert.Equal(t, DiscCreateSupportMintAssociated, discOf(ix))
	support, err := d.SupportMint(mint)
	require.NoError(t, err)
	assert.Equal(t, []metaFlags{
		{owner, true, true},
		{ix.Accounts[1].PubKey, false, false},
		{mint, false, false},
		{support.Address, false, true},
		{consts.SystemProgram, false, false},
	}, flagsOf(ix))

	_, err = asm.TransferRewardOwner(owner, pool, types.ZeroPubkey)
	assert.ErrorIs(t, err, ErrIncompleteAccounts)
	_, err = asm.CreateSupportMintAssociated(types.ZeroPubkey, mint)
	assert.ErrorIs(t, err, ErrIncompleteAccounts)
}
