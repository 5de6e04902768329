package main

import (
	"context"
	"fmt"
	"math"

	"clmm-admin-sol/internal/consts"
	"clmm-admin-sol/internal/logic/clmm"
	"clmm-admin-sol/internal/pda"
)

func init() {
	register("pda", command{usage: "derive program addresses", offline: true, run: runPda})
	register("price", command{usage: "convert between human price and sqrt_price_x64, or fee percent and rate", offline: true, run: runPrice})
	register("decode", command{usage: "fetch and decode the admin group or an amm config", run: runDecode})
}

func runPda(_ context.Context, a *app, args []string) error {
	fs := newFlagSet("pda")
	kind := fs.String("kind", "admin-group", "admin-group | amm-config | pool | pool-vault | observation | bitmap-extension | tick-array | support-mint | offchain-reward | operation | ata")
	index := fs.Uint("index", 0, "amm config index")
	start := fs.Int("start", 0, "tick array start index")
	pool := pubkeyVar(fs, "pool", "pool address")
	mintA := pubkeyVar(fs, "mint-a", "mint (unordered for pool)")
	mintB := pubkeyVar(fs, "mint-b", "second mint for pool")
	owner := pubkeyVar(fs, "owner", "owner for ata")
	tokenProgram := pubkeyVar(fs, "token-program", "token program for ata (default SPL Token)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *index > math.MaxUint16 {
		return fmt.Errorf("index must fit in u16")
	}
	d := a.asm.Deriver()

	var (
		addr pda.DerivedAddress
		err  error
	)
	switch *kind {
	case "admin-group":
		addr, err = d.AdminGroup()
	case "amm-config":
		addr, err = d.AmmConfig(uint16(*index))
	case "pool":
		if err = required(map[string]*pubkeyFlag{"mint-a": mintA, "mint-b": mintB}); err != nil {
			return err
		}
		var cfg pda.DerivedAddress
		if cfg, err = d.AmmConfig(uint16(*index)); err != nil {
			return err
		}
		m0, m1 := pda.SortMints(mintA.key, mintB.key)
		addr, err = d.Pool(cfg.Address, m0, m1)
	case "pool-vault":
		if err = required(map[string]*pubkeyFlag{"pool": pool, "mint-a": mintA}); err != nil {
			return err
		}
		addr, err = d.PoolVault(pool.key, mintA.key)
	case "observation":
		addr, err = d.Observation(pool.key)
	case "bitmap-extension":
		addr, err = d.TickArrayBitmapExtension(pool.key)
	case "tick-array":
		if *start < math.MinInt32 || *start > math.MaxInt32 {
			return fmt.Errorf("start must fit in i32")
		}
		addr, err = d.TickArray(pool.key, int32(*start))
	case "support-mint":
		addr, err = d.SupportMint(mintA.key)
	case "offchain-reward":
		addr, err = d.OffchainReward(pool.key)
	case "operation":
		addr, err = d.Operation()
	case "ata":
		if err = required(map[string]*pubkeyFlag{"owner": owner, "mint-a": mintA}); err != nil {
			return err
		}
		addr, err = pda.AssociatedTokenAddress(owner.key, mintA.key, tokenProgram.or(consts.TokenProgram))
	default:
		return fmt.Errorf("unknown kind %q", *kind)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, addr)
	return nil
}

func runPrice(_ context.Context, a *app, args []string) error {
	fs := newFlagSet("price")
	price := decimalVar(fs, "price", "human price: how many mint-b one mint-a is worth")
	sqrt := fs.String("sqrt", "", "sqrt_price_x64 as a decimal u128")
	fee := decimalVar(fs, "fee-percent", "fee in percent")
	rate := fs.Uint("fee-rate", 0, "fee rate in millionths")
	decimalsA := fs.Uint("decimals-a", 0, "decimals of mint-a")
	decimalsB := fs.Uint("decimals-b", 0, "decimals of mint-b")
	precision := fs.Int("precision", 12, "fractional digits of the printed price")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *decimalsA > math.MaxUint8 || *decimalsB > math.MaxUint8 {
		return fmt.Errorf("decimals must fit in u8")
	}
	da, db := uint8(*decimalsA), uint8(*decimalsB)

	switch {
	case price.set:
		v, err := clmm.Price2SqrtPriceX64(price.v, da, db)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "sqrt_price_x64: %s\n", v)
	case *sqrt != "":
		v, err := clmm.Uint128FromString(*sqrt)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "price: %s\n", clmm.SqrtPriceX64ToPrice(v, da, db, int32(*precision)))
	case fee.set:
		r, err := clmm.PercentToFeeRate(fee.v)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "fee rate: %d\n", r)
	case *rate > 0:
		if *rate > math.MaxUint32 {
			return fmt.Errorf("fee rate must fit in u32")
		}
		fmt.Fprintf(a.out, "fee percent: %s%%\n", clmm.FeeRateToPercent(uint32(*rate)))
	default:
		return fmt.Errorf("one of -price, -sqrt, -fee-percent or -fee-rate is required")
	}
	return nil
}

func runDecode(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("decode")
	kind := fs.String("kind", "admin-group", "admin-group | amm-config")
	index := fs.Uint("index", 0, "amm config index")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *index > math.MaxUint16 {
		return fmt.Errorf("index must fit in u16")
	}
	d := a.asm.Deriver()

	switch *kind {
	case "admin-group":
		addr, err := d.AdminGroup()
		if err != nil {
			return err
		}
		data, err := a.sc.Ledger.GetAccountData(ctx, addr.Address)
		if err != nil {
			return err
		}
		g, err := clmm.DecodeAdminGroup(data)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "admin group %s\n  fee keeper:            %s\n  reward config manager: %s\n  reward claim manager:  %s\n  pool manager:          %s\n  emergency manager:     %s\n  normal manager:        %s\n",
			addr.Address.ToBase58(), g.FeeKeeper.ToBase58(), g.RewardConfigManager.ToBase58(), g.RewardClaimManager.ToBase58(),
			g.PoolManager.ToBase58(), g.EmergencyManager.ToBase58(), g.NormalManager.ToBase58())
	case "amm-config":
		addr, err := d.AmmConfig(uint16(*index))
		if err != nil {
			return err
		}
		data, err := a.sc.Ledger.GetAccountData(ctx, addr.Address)
		if err != nil {
			return err
		}
		c, err := clmm.DecodeAmmConfig(data)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "amm config %s\n  index:        %d\n  owner:        %s\n  tick spacing: %d\n  trade fee:    %s%%\n  protocol fee: %s%%\n  fund fee:     %s%%\n  fund owner:   %s\n",
			addr.Address.ToBase58(), c.Index, c.Owner.ToBase58(), c.TickSpacing,
			clmm.FeeRateToPercent(c.TradeFeeRate), clmm.FeeRateToPercent(c.ProtocolFeeRate), clmm.FeeRateToPercent(c.FundFeeRate),
			c.FundOwner.ToBase58())
	default:
		return fmt.Errorf("unknown kind %q", *kind)
	}
	return nil
}
