package clmm

import (
	"fmt"

	"clmm-admin-sol/internal/bitmap"
	"clmm-admin-sol/internal/consts"
	"clmm-admin-sol/internal/types"

	soltypes "github.com/blocto/solana-go-sdk/types"
)

// RewardAccounts 每个活跃奖励对应一组 [池子奖励金库, 用户奖励账户, 奖励 mint]
type RewardAccounts struct {
	PoolRewardVault  types.Pubkey
	OwnerRewardVault types.Pubkey
	RewardMint       types.Pubkey
}

// PositionSide 单边 token 参数；mint、账户、数量作为一个整体参与排序
type PositionSide struct {
	Mint         MintInfo
	TokenAccount types.Pubkey
	Amount       uint64 // increase 时为上限，decrease 时为下限
}

type LiquidityParams struct {
	NftOwner    types.Pubkey
	NftAccount  types.Pubkey
	NftMint     types.Pubkey
	Pool        types.Pubkey
	TickSpacing uint16
	TickLower   int32
	TickUpper   int32
	SideA       PositionSide
	SideB       PositionSide
	Liquidity   Uint128
	Rewards     []RewardAccounts
}

type positionAccounts struct {
	side0, side1     PositionSide
	protocolPosition types.Pubkey
	personalPosition types.Pubkey
	tickArrayLower   types.Pubkey
	tickArrayUpper   types.Pubkey
	vault0, vault1   types.Pubkey
	aux              []AuxAccount
}

// LiquidityAuxAccounts 流动性指令的附加账户：
// tick array 超出默认位图时先放 bitmap extension (w)，然后每个奖励依次放 [pool vault (w), owner vault (w), mint (r)]
func (a *Assembler) LiquidityAuxAccounts(pool types.Pubkey, tickSpacing uint16, lowerStart, upperStart int32, rewards []RewardAccounts) ([]AuxAccount, error) {
	aux := make([]AuxAccount, 0, 1+3*len(rewards))
	if bitmap.IsOverflowDefaultTickArrayBitmap(tickSpacing, lowerStart, upperStart) {
		ext, err := a.pda.TickArrayBitmapExtension(pool)
		if err != nil {
			return nil, err
		}
		aux = append(aux, AuxAccount{Pubkey: ext.Address, IsWritable: true})
	}
	for i, r := range rewards {
		if types.IsZero(r.PoolRewardVault) || types.IsZero(r.OwnerRewardVault) || types.IsZero(r.RewardMint) {
			return nil, fmt.Errorf("%w: reward #%d is missing an account", ErrIncompleteAccounts, i)
		}
		aux = append(aux,
			AuxAccount{Pubkey: r.PoolRewardVault, IsWritable: true},
			AuxAccount{Pubkey: r.OwnerRewardVault, IsWritable: true},
			AuxAccount{Pubkey: r.RewardMint},
		)
	}
	return aux, nil
}

func (a *Assembler) positionAccounts(op string, p LiquidityParams) (*positionAccounts, error) {
	err := checkAccounts(op,
		field{"nft_owner", p.NftOwner},
		field{"nft_account", p.NftAccount},
		field{"nft_mint", p.NftMint},
		field{"pool", p.Pool},
		field{"mint_a", p.SideA.Mint.Mint},
		field{"mint_b", p.SideB.Mint.Mint},
		field{"token_account_a", p.SideA.TokenAccount},
		field{"token_account_b", p.SideB.TokenAccount},
	)
	if err != nil {
		return nil, err
	}
	if p.TickSpacing == 0 || p.TickLower >= p.TickUpper {
		return nil, fmt.Errorf("%s: invalid tick range [%d, %d) spacing=%d", op, p.TickLower, p.TickUpper, p.TickSpacing)
	}

	out := &positionAccounts{side0: p.SideA, side1: p.SideB}
	if types.ComparePubkey(p.SideA.Mint.Mint, p.SideB.Mint.Mint) > 0 {
		out.side0, out.side1 = p.SideB, p.SideA
	}

	lowerStart := bitmap.TickArrayStartIndex(p.TickLower, p.TickSpacing)
	upperStart := bitmap.TickArrayStartIndex(p.TickUpper, p.TickSpacing)

	protocol, err := a.pda.ProtocolPosition(p.Pool, p.TickLower, p.TickUpper)
	if err != nil {
		return nil, err
	}
	personal, err := a.pda.PersonalPosition(p.NftMint)
	if err != nil {
		return nil, err
	}
	lower, err := a.pda.TickArray(p.Pool, lowerStart)
	if err != nil {
		return nil, err
	}
	upper, err := a.pda.TickArray(p.Pool, upperStart)
	if err != nil {
		return nil, err
	}
	vault0, err := a.pda.PoolVault(p.Pool, out.side0.Mint.Mint)
	if err != nil {
		return nil, err
	}
	vault1, err := a.pda.PoolVault(p.Pool, out.side1.Mint.Mint)
	if err != nil {
		return nil, err
	}
	aux, err := a.LiquidityAuxAccounts(p.Pool, p.TickSpacing, lowerStart, upperStart, p.Rewards)
	if err != nil {
		return nil, err
	}

	out.protocolPosition = protocol.Address
	out.personalPosition = personal.Address
	out.tickArrayLower = lower.Address
	out.tickArrayUpper = upper.Address
	out.vault0 = vault0.Address
	out.vault1 = vault1.Address
	out.aux = aux
	return out, nil
}

type increaseLiquidityV2Args struct {
	Liquidity  Uint128
	Amount0Max uint64
	Amount1Max uint64
	BaseFlag   *bool
}

// IncreaseLiquidityV2 baseFlag 为 nil 时按 liquidity 计算，否则以 token0(true)/token1(false) 数量为基准
func (a *Assembler) IncreaseLiquidityV2(p LiquidityParams, baseFlag *bool) (soltypes.Instruction, error) {
	acc, err := a.positionAccounts("increase_liquidity_v2", p)
	if err != nil {
		return soltypes.Instruction{}, err
	}
	metas := []soltypes.AccountMeta{
		signer(p.NftOwner, false),
		readonly(p.NftAccount),
		writable(p.Pool),
		writable(acc.protocolPosition),
		writable(acc.personalPosition),
		writable(acc.tickArrayLower),
		writable(acc.tickArrayUpper),
		writable(acc.side0.TokenAccount),
		writable(acc.side1.TokenAccount),
		writable(acc.vault0),
		writable(acc.vault1),
		readonly(consts.TokenProgram),
		readonly(consts.TokenProgram2022),
		readonly(acc.side0.Mint.Mint),
		readonly(acc.side1.Mint.Mint),
	}
	args := increaseLiquidityV2Args{
		Liquidity:  p.Liquidity,
		Amount0Max: acc.side0.Amount,
		Amount1Max: acc.side1.Amount,
		BaseFlag:   baseFlag,
	}
	return a.instruction(DiscIncreaseLiquidityV2, args, appendAux(metas, acc.aux))
}

type decreaseLiquidityV2Args struct {
	Liquidity  Uint128
	Amount0Min uint64
	Amount1Min uint64
}

func (a *Assembler) DecreaseLiquidityV2(p LiquidityParams) (soltypes.Instruction, error) {
	acc, err := a.positionAccounts("decrease_liquidity_v2", p)
	if err != nil {
		return soltypes.Instruction{}, err
	}
	metas := []soltypes.AccountMeta{
		signer(p.NftOwner, false),
		readonly(p.NftAccount),
		writable(acc.personalPosition),
		writable(p.Pool),
		writable(acc.protocolPosition),
		writable(acc.vault0),
		writable(acc.vault1),
		writable(acc.tickArrayLower),
		writable(acc.tickArrayUpper),
		writable(acc.side0.TokenAccount),
		writable(acc.side1.TokenAccount),
		readonly(consts.TokenProgram),
		readonly(consts.TokenProgram2022),
		readonly(consts.MemoProgram),
		readonly(acc.side0.Mint.Mint),
		readonly(acc.side1.Mint.Mint),
	}
	args := decreaseLiquidityV2Args{
		Liquidity:  p.Liquidity,
		Amount0Min: acc.side0.Amount,
		Amount1Min: acc.side1.Amount,
	}
	return a.instruction(DiscDecreaseLiquidityV2, args, appendAux(metas, acc.aux))
}
