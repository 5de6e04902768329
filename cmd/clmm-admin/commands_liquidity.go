package main

import (
	"context"
	"flag"
	"fmt"
	"math"

	"clmm-admin-sol/internal/consts"
	"clmm-admin-sol/internal/logic/clmm"
	"clmm-admin-sol/internal/pda"
	"clmm-admin-sol/internal/types"
)

func init() {
	register("increase-liquidity", command{usage: "add liquidity to an existing position", run: runIncreaseLiquidity})
	register("decrease-liquidity", command{usage: "remove liquidity from an existing position", run: runDecreaseLiquidity})
}

type liquidityFlags struct {
	pool        *pubkeyFlag
	nftMint     *pubkeyFlag
	nftAccount  *pubkeyFlag
	nftProgram  *pubkeyFlag
	tickSpacing *uint
	tickLower   *int
	tickUpper   *int
	mintA       mintFlags
	mintB       mintFlags
	tokenA      *pubkeyFlag
	tokenB      *pubkeyFlag
	amountA     *uint64
	amountB     *uint64
	liquidity   *string
	rewardMints *pubkeyListFlag
}

func liquidityVar(fs *flag.FlagSet, amountUsage string) *liquidityFlags {
	f := &liquidityFlags{
		pool:        pubkeyVar(fs, "pool", "pool address"),
		nftMint:     pubkeyVar(fs, "nft-mint", "position nft mint"),
		nftAccount:  pubkeyVar(fs, "nft-account", "position nft token account (default: associated token account)"),
		nftProgram:  pubkeyVar(fs, "nft-program", "position nft token program (default SPL Token)"),
		tickSpacing: fs.Uint("tick-spacing", 0, "tick spacing of the pool"),
		tickLower:   fs.Int("tick-lower", 0, "lower tick of the position"),
		tickUpper:   fs.Int("tick-upper", 0, "upper tick of the position"),
		mintA:       mintVar(fs, "mint-a"),
		mintB:       mintVar(fs, "mint-b"),
		tokenA:      pubkeyVar(fs, "token-a", "owner token account of mint-a (default: associated token account)"),
		tokenB:      pubkeyVar(fs, "token-b", "owner token account of mint-b (default: associated token account)"),
		amountA:     fs.Uint64("amount-a", 0, "mint-a amount "+amountUsage),
		amountB:     fs.Uint64("amount-b", 0, "mint-b amount "+amountUsage),
		liquidity:   fs.String("liquidity", "0", "liquidity as a decimal u128"),
		rewardMints: &pubkeyListFlag{},
	}
	fs.Var(f.rewardMints, "reward-mint", "active reward mints of the pool, in reward order")
	return f
}

func (f *liquidityFlags) params(ctx context.Context, a *app, owner types.Pubkey) (clmm.LiquidityParams, error) {
	if err := required(map[string]*pubkeyFlag{"pool": f.pool, "nft-mint": f.nftMint}); err != nil {
		return clmm.LiquidityParams{}, err
	}
	if *f.tickSpacing == 0 || *f.tickSpacing > math.MaxUint16 {
		return clmm.LiquidityParams{}, fmt.Errorf("tick spacing must be in [1, %d]", math.MaxUint16)
	}
	if *f.tickLower < math.MinInt32 || *f.tickUpper > math.MaxInt32 {
		return clmm.LiquidityParams{}, fmt.Errorf("ticks must fit in i32")
	}
	liquidity, err := clmm.Uint128FromString(*f.liquidity)
	if err != nil {
		return clmm.LiquidityParams{}, fmt.Errorf("liquidity: %w", err)
	}
	mintA, err := f.mintA.info(ctx, a)
	if err != nil {
		return clmm.LiquidityParams{}, fmt.Errorf("mint-a: %w", err)
	}
	mintB, err := f.mintB.info(ctx, a)
	if err != nil {
		return clmm.LiquidityParams{}, fmt.Errorf("mint-b: %w", err)
	}

	nftAccount, err := ataOr(f.nftAccount, owner, f.nftMint.key, f.nftProgram.or(consts.TokenProgram))
	if err != nil {
		return clmm.LiquidityParams{}, err
	}
	tokenA, err := ataOr(f.tokenA, owner, mintA.Mint, programOf(mintA))
	if err != nil {
		return clmm.LiquidityParams{}, err
	}
	tokenB, err := ataOr(f.tokenB, owner, mintB.Mint, programOf(mintB))
	if err != nil {
		return clmm.LiquidityParams{}, err
	}

	rewards := make([]clmm.RewardAccounts, 0, len(*f.rewardMints))
	for _, mint := range *f.rewardMints {
		vault, err := a.asm.Deriver().PoolRewardVault(f.pool.key, mint)
		if err != nil {
			return clmm.LiquidityParams{}, err
		}
		ownerVault, err := pda.AssociatedTokenAddress(owner, mint, consts.TokenProgram)
		if err != nil {
			return clmm.LiquidityParams{}, err
		}
		rewards = append(rewards, clmm.RewardAccounts{
			PoolRewardVault:  vault.Address,
			OwnerRewardVault: ownerVault.Address,
			RewardMint:       mint,
		})
	}

	return clmm.LiquidityParams{
		NftOwner:    owner,
		NftAccount:  nftAccount,
		NftMint:     f.nftMint.key,
		Pool:        f.pool.key,
		TickSpacing: uint16(*f.tickSpacing),
		TickLower:   int32(*f.tickLower),
		TickUpper:   int32(*f.tickUpper),
		SideA:       clmm.PositionSide{Mint: mintA, TokenAccount: tokenA, Amount: *f.amountA},
		SideB:       clmm.PositionSide{Mint: mintB, TokenAccount: tokenB, Amount: *f.amountB},
		Liquidity:   liquidity,
		Rewards:     rewards,
	}, nil
}

func programOf(m clmm.MintInfo) types.Pubkey {
	if types.IsZero(m.TokenProgram) {
		return consts.TokenProgram
	}
	return m.TokenProgram
}

// ataOr 未指定账户时使用 owner 的 ATA
func ataOr(f *pubkeyFlag, owner, mint, program types.Pubkey) (types.Pubkey, error) {
	if f.set {
		return f.key, nil
	}
	ata, err := pda.AssociatedTokenAddress(owner, mint, program)
	if err != nil {
		return types.Pubkey{}, err
	}
	return ata.Address, nil
}

// parseBaseFlag "" 按 liquidity 计算，"a"/"b" 以对应 mint 的数量为基准
func parseBaseFlag(s string, mintA, mintB types.Pubkey) (*bool, error) {
	var aIsBase bool
	switch s {
	case "":
		return nil, nil
	case "a":
		aIsBase = true
	case "b":
		aIsBase = false
	default:
		return nil, fmt.Errorf("base must be a or b, got %q", s)
	}
	// base_flag 以排序后的 token0 为 true
	aIsToken0 := types.ComparePubkey(mintA, mintB) < 0
	v := aIsBase == aIsToken0
	return &v, nil
}

func runIncreaseLiquidity(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("increase-liquidity")
	lf := liquidityVar(fs, "upper bound")
	base := fs.String("base", "", "a | b: compute liquidity from this side's amount instead of -liquidity")
	if err := fs.Parse(args); err != nil {
		return err
	}
	owner, err := a.authority()
	if err != nil {
		return err
	}
	p, err := lf.params(ctx, a, owner)
	if err != nil {
		return err
	}
	baseFlag, err := parseBaseFlag(*base, p.SideA.Mint.Mint, p.SideB.Mint.Mint)
	if err != nil {
		return err
	}
	ix, err := a.asm.IncreaseLiquidityV2(p, baseFlag)
	if err != nil {
		return err
	}
	return a.submit(ctx, ix)
}

func runDecreaseLiquidity(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("decrease-liquidity")
	lf := liquidityVar(fs, "lower bound")
	if err := fs.Parse(args); err != nil {
		return err
	}
	owner, err := a.authority()
	if err != nil {
		return err
	}
	p, err := lf.params(ctx, a, owner)
	if err != nil {
		return err
	}
	ix, err := a.asm.DecreaseLiquidityV2(p)
	if err != nil {
		return err
	}
	return a.submit(ctx, ix)
}
