package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"strconv"
	"strings"

	"clmm-admin-sol/internal/consts"
	"clmm-admin-sol/internal/logic/clmm"
	"clmm-admin-sol/internal/pda"
	"clmm-admin-sol/internal/types"
)

func init() {
	register("init-admin-group", command{usage: "initialize the admin group with six roles", run: runInitAdminGroup})
	register("update-admin-group", command{usage: "update some roles of the admin group", run: runUpdateAdminGroup})
	register("create-amm-config", command{usage: "create a fee tier config", run: runCreateAmmConfig})
	register("update-amm-config", command{usage: "update one parameter of a fee tier config", run: runUpdateAmmConfig})
	register("create-pool", command{usage: "create a pool from a human price", run: runCreatePool})
	register("update-pool-status", command{usage: "set the pool status bitmask", run: runUpdatePoolStatus})
	register("create-support-mint", command{usage: "register a token-2022 mint as supported", run: runCreateSupportMint})
	register("collect-fund-fee", command{usage: "collect fund fees into the fee keeper", run: runCollectFundFee})
	register("transfer-reward-owner", command{usage: "transfer the reward owner of a pool", run: runTransferRewardOwner})
	register("create-operation-account", command{usage: "create the operation account", run: runCreateOperationAccount})
	register("deposit-reward", command{usage: "deposit offchain reward tokens into a pool", run: runDepositReward})
	register("claim-reward", command{usage: "claim offchain reward tokens", run: runClaimReward})
	register("withdraw-reward", command{usage: "withdraw offchain reward tokens", run: runWithdrawReward})
}

func runInitAdminGroup(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("init-admin-group")
	roles := adminRoleFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(roles); err != nil {
		return err
	}
	payer, err := a.authority()
	if err != nil {
		return err
	}
	ix, err := a.asm.InitAdminGroup(payer, clmm.AdminGroup{
		FeeKeeper:           roles["fee-keeper"].key,
		RewardConfigManager: roles["reward-config-manager"].key,
		RewardClaimManager:  roles["reward-claim-manager"].key,
		PoolManager:         roles["pool-manager"].key,
		EmergencyManager:    roles["emergency-manager"].key,
		NormalManager:       roles["normal-manager"].key,
	})
	if err != nil {
		return err
	}
	return a.submit(ctx, ix)
}

func runUpdateAdminGroup(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("update-admin-group")
	roles := adminRoleFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	update := clmm.AdminGroupUpdate{
		FeeKeeper:           roles["fee-keeper"].ptr(),
		RewardConfigManager: roles["reward-config-manager"].ptr(),
		RewardClaimManager:  roles["reward-claim-manager"].ptr(),
		PoolManager:         roles["pool-manager"].ptr(),
		EmergencyManager:    roles["emergency-manager"].ptr(),
		NormalManager:       roles["normal-manager"].ptr(),
	}
	if update.IsEmpty() {
		fmt.Fprintln(a.out, "warning: no role given, the update is a no-op")
	}
	payer, err := a.authority()
	if err != nil {
		return err
	}
	ix, err := a.asm.UpdateAdminGroup(payer, update)
	if err != nil {
		return err
	}
	return a.submit(ctx, ix)
}

func adminRoleFlags(fs *flag.FlagSet) map[string]*pubkeyFlag {
	names := []string{"fee-keeper", "reward-config-manager", "reward-claim-manager", "pool-manager", "emergency-manager", "normal-manager"}
	roles := make(map[string]*pubkeyFlag, len(names))
	for _, n := range names {
		f := &pubkeyFlag{}
		fs.Var(f, n, n+" address")
		roles[n] = f
	}
	return roles
}

func runCreateAmmConfig(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("create-amm-config")
	index := fs.Uint("index", 0, "config index")
	tickSpacing := fs.Uint("tick-spacing", 0, "tick spacing")
	tradeFee := decimalVar(fs, "trade-fee", "trade fee in percent, e.g. 0.25")
	protocolFee := decimalVar(fs, "protocol-fee", "protocol share of the trade fee in percent")
	fundFee := decimalVar(fs, "fund-fee", "fund share of the trade fee in percent")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *index > math.MaxUint16 || *tickSpacing > math.MaxUint16 {
		return fmt.Errorf("index and tick spacing must fit in u16")
	}

	var rates [3]uint32
	for i, f := range []*decimalFlag{tradeFee, protocolFee, fundFee} {
		r, err := clmm.PercentToFeeRate(f.v)
		if err != nil {
			return err
		}
		rates[i] = r
	}

	owner, err := a.authority()
	if err != nil {
		return err
	}
	ix, err := a.asm.CreateAmmConfig(owner, clmm.CreateAmmConfigArgs{
		Index:           uint16(*index),
		TickSpacing:     uint16(*tickSpacing),
		TradeFeeRate:    rates[0],
		ProtocolFeeRate: rates[1],
		FundFeeRate:     rates[2],
	})
	if err != nil {
		return err
	}
	cfg, err := a.asm.Deriver().AmmConfig(uint16(*index))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "amm config: %s (trade fee rate %d)\n", cfg.Address.ToBase58(), rates[0])
	return a.submit(ctx, ix)
}

// parseUpdateTag 接受名称或数字
func parseUpdateTag(s string) (clmm.UpdateTag, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	for t := clmm.UpdateTradeFeeRate; t <= clmm.UpdateNewFundOwner; t++ {
		if s == t.String() {
			return t, nil
		}
	}
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", clmm.ErrUnknownUpdateTag, s)
	}
	return clmm.UpdateTag(n), nil
}

func runUpdateAmmConfig(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("update-amm-config")
	index := fs.Uint("index", 0, "config index")
	param := fs.String("param", "", "trade_fee_rate | protocol_fee_rate | fund_fee_rate | owner | fund_owner (or 0..4)")
	value := decimalVar(fs, "value", "new fee in percent for fee params")
	address := pubkeyVar(fs, "address", "new address for owner / fund_owner")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *index > math.MaxUint16 {
		return fmt.Errorf("index must fit in u16")
	}
	tag, err := parseUpdateTag(*param)
	if err != nil {
		return err
	}

	// 附加账户的数量由 assembler 校验
	var rate uint32
	var aux []clmm.AuxAccount
	if address.set {
		aux = append(aux, clmm.AuxAccount{Pubkey: address.key})
	}
	if !tag.IsAddressTyped() {
		if !value.set {
			return fmt.Errorf("missing -value for %s", tag)
		}
		if rate, err = clmm.PercentToFeeRate(value.v); err != nil {
			return err
		}
	}

	owner, err := a.authority()
	if err != nil {
		return err
	}
	ix, err := a.asm.UpdateAmmConfig(owner, uint16(*index), tag, rate, aux)
	if err != nil {
		return err
	}
	return a.submit(ctx, ix)
}

type mintFlags struct {
	mint     *pubkeyFlag
	program  *pubkeyFlag
	decimals *int
}

func mintVar(fs *flag.FlagSet, prefix string) mintFlags {
	return mintFlags{
		mint:     pubkeyVar(fs, prefix, prefix+" address"),
		program:  pubkeyVar(fs, prefix+"-program", prefix+" token program (default: read from chain)"),
		decimals: fs.Int(prefix+"-decimals", -1, prefix+" decimals (default: read from chain)"),
	}
}

// info 精度未指定时从链上读取 mint；显式指定的 token program 优先
func (m mintFlags) info(ctx context.Context, a *app) (clmm.MintInfo, error) {
	if !m.mint.set {
		return clmm.MintInfo{}, fmt.Errorf("missing mint")
	}
	if *m.decimals > math.MaxUint8 {
		return clmm.MintInfo{}, fmt.Errorf("decimals %d out of range", *m.decimals)
	}
	if *m.decimals >= 0 {
		return clmm.MintInfo{Mint: m.mint.key, TokenProgram: m.program.key, Decimals: uint8(*m.decimals)}, nil
	}
	info, err := a.sc.Mints.Resolve(ctx, m.mint.key)
	if err != nil {
		return clmm.MintInfo{}, err
	}
	if m.program.set {
		info.TokenProgram = m.program.key
	}
	return info, nil
}

func runCreatePool(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("create-pool")
	configIndex := fs.Uint("config-index", 0, "amm config index")
	mintA := mintVar(fs, "mint-a")
	mintB := mintVar(fs, "mint-b")
	price := decimalVar(fs, "price", "how many mint-b one mint-a is worth")
	openTime := fs.Uint64("open-time", 0, "unix timestamp when swaps open")
	poolManager := pubkeyVar(fs, "pool-manager", "pool manager (default: authority)")
	supportMints := &pubkeyListFlag{}
	fs.Var(supportMints, "support-mint", "token-2022 mints whose support-mint accounts are appended")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *configIndex > math.MaxUint16 {
		return fmt.Errorf("config index must fit in u16")
	}
	a0, err := mintA.info(ctx, a)
	if err != nil {
		return fmt.Errorf("mint-a: %w", err)
	}
	b0, err := mintB.info(ctx, a)
	if err != nil {
		return fmt.Errorf("mint-b: %w", err)
	}
	if !price.set {
		return fmt.Errorf("missing -price")
	}

	creator, err := a.authority()
	if err != nil {
		return err
	}
	supportAccounts, err := a.asm.SupportMintAccounts(*supportMints...)
	if err != nil {
		return err
	}
	ix, addrs, err := a.asm.CreatePool(clmm.CreatePoolParams{
		Creator:             creator,
		PoolManager:         poolManager.or(creator),
		AmmConfigIndex:      uint16(*configIndex),
		MintA:               a0,
		MintB:               b0,
		Price:               price.v,
		OpenTime:            *openTime,
		SupportMintAccounts: supportAccounts,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "pool:        %s\nmint0:       %s\nmint1:       %s\nvault0:      %s\nvault1:      %s\nobservation: %s\nsqrt price:  %s (swapped=%t)\n",
		addrs.Pool.ToBase58(), addrs.Mint0.Mint.ToBase58(), addrs.Mint1.Mint.ToBase58(),
		addrs.Vault0.ToBase58(), addrs.Vault1.ToBase58(), addrs.Observation.ToBase58(),
		addrs.SqrtPriceX64, addrs.Swapped)
	return a.submit(ctx, ix)
}

func runUpdatePoolStatus(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("update-pool-status")
	pool := pubkeyVar(fs, "pool", "pool address")
	status := fs.Uint("status", 0, "status bitmask: 1 open/increase, 2 decrease, 4 collect fee, 8 collect reward, 16 swap; 0 enables all")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(map[string]*pubkeyFlag{"pool": pool}); err != nil {
		return err
	}
	if *status > math.MaxUint8 {
		return fmt.Errorf("status must fit in u8")
	}
	authority, err := a.authority()
	if err != nil {
		return err
	}
	s := clmm.PoolStatus(*status)
	ix, err := a.asm.UpdatePoolStatus(authority, pool.key, s)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "pool status -> %s\n", s)
	return a.submit(ctx, ix)
}

func runCreateSupportMint(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("create-support-mint")
	mint := pubkeyVar(fs, "mint", "token-2022 mint")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(map[string]*pubkeyFlag{"mint": mint}); err != nil {
		return err
	}
	owner, err := a.authority()
	if err != nil {
		return err
	}
	ix, err := a.asm.CreateSupportMintAssociated(owner, mint.key)
	if err != nil {
		return err
	}
	return a.submit(ctx, ix)
}

func runCollectFundFee(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("collect-fund-fee")
	pool := pubkeyVar(fs, "pool", "pool address")
	mint0 := mintVar(fs, "mint0")
	mint1 := mintVar(fs, "mint1")
	feeKeeper := pubkeyVar(fs, "fee-keeper", "owner of the receiving token accounts")
	amount0 := fs.Uint64("amount0", math.MaxUint64, "max amount of token0")
	amount1 := fs.Uint64("amount1", math.MaxUint64, "max amount of token1")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(map[string]*pubkeyFlag{"pool": pool, "fee-keeper": feeKeeper}); err != nil {
		return err
	}
	m0, err := mint0.info(ctx, a)
	if err != nil {
		return fmt.Errorf("mint0: %w", err)
	}
	m1, err := mint1.info(ctx, a)
	if err != nil {
		return fmt.Errorf("mint1: %w", err)
	}
	ix, err := a.asm.CollectFundFee(clmm.CollectFundFeeParams{
		Pool:       pool.key,
		Mint0:      m0,
		Mint1:      m1,
		FeeKeeper:  feeKeeper.key,
		Amount0Max: *amount0,
		Amount1Max: *amount1,
	})
	if err != nil {
		return err
	}
	return a.submit(ctx, ix)
}

func runTransferRewardOwner(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("transfer-reward-owner")
	pool := pubkeyVar(fs, "pool", "pool address")
	newOwner := pubkeyVar(fs, "new-owner", "new reward owner")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(map[string]*pubkeyFlag{"pool": pool, "new-owner": newOwner}); err != nil {
		return err
	}
	authority, err := a.authority()
	if err != nil {
		return err
	}
	ix, err := a.asm.TransferRewardOwner(authority, pool.key, newOwner.key)
	if err != nil {
		return err
	}
	return a.submit(ctx, ix)
}

func runCreateOperationAccount(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("create-operation-account")
	if err := fs.Parse(args); err != nil {
		return err
	}
	owner, err := a.authority()
	if err != nil {
		return err
	}
	ix, err := a.asm.CreateOperationAccount(owner)
	if err != nil {
		return err
	}
	return a.submit(ctx, ix)
}

type rewardFlags struct {
	pool    *pubkeyFlag
	mint    *pubkeyFlag
	program *pubkeyFlag
	token   *pubkeyFlag
	amount  *uint64
}

func rewardVar(fs *flag.FlagSet, tokenFlag string) rewardFlags {
	return rewardFlags{
		pool:    pubkeyVar(fs, "pool", "pool address"),
		mint:    pubkeyVar(fs, "mint", "reward mint"),
		program: pubkeyVar(fs, "token-program", "reward token program (default SPL Token)"),
		token:   pubkeyVar(fs, tokenFlag, "token account (default: associated token account)"),
		amount:  fs.Uint64("amount", 0, "amount in base units"),
	}
}

func (r rewardFlags) params() (clmm.RewardParams, error) {
	if err := required(map[string]*pubkeyFlag{"pool": r.pool, "mint": r.mint}); err != nil {
		return clmm.RewardParams{}, err
	}
	return clmm.RewardParams{Pool: r.pool.key, Mint: r.mint.key, TokenProgram: r.program.key, Amount: *r.amount}, nil
}

// tokenAccount 未指定时使用 owner 的 ATA
func (r rewardFlags) tokenAccount(owner types.Pubkey) (types.Pubkey, error) {
	if r.token.set {
		return r.token.key, nil
	}
	ata, err := pda.AssociatedTokenAddress(owner, r.mint.key, r.program.or(consts.TokenProgram))
	if err != nil {
		return types.Pubkey{}, err
	}
	return ata.Address, nil
}

func runDepositReward(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("deposit-reward")
	rf := rewardVar(fs, "payer-token")
	if err := fs.Parse(args); err != nil {
		return err
	}
	p, err := rf.params()
	if err != nil {
		return err
	}
	authority, err := a.authority()
	if err != nil {
		return err
	}
	payerToken, err := rf.tokenAccount(authority)
	if err != nil {
		return err
	}
	ix, err := a.asm.DepositOffchainReward(authority, authority, payerToken, p)
	if err != nil {
		return err
	}
	return a.submit(ctx, ix)
}

func runClaimReward(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("claim-reward")
	rf := rewardVar(fs, "claimer-token")
	claimer := pubkeyVar(fs, "claimer", "claimer paying for the token account (default: local keypair)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	p, err := rf.params()
	if err != nil {
		return err
	}
	authority, err := a.authority()
	if err != nil {
		return err
	}
	signer, err := a.loadSigner()
	if err != nil {
		return err
	}
	claimerKey := claimer.or(signer.PublicKey())
	if a.propose && !claimer.set {
		claimerKey = authority
	}
	claimerToken, err := rf.tokenAccount(claimerKey)
	if err != nil {
		return err
	}
	ix, err := a.asm.ClaimOffchainReward(claimerKey, authority, claimerToken, p)
	if err != nil {
		return err
	}
	return a.submit(ctx, ix)
}

func runWithdrawReward(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("withdraw-reward")
	rf := rewardVar(fs, "receiver-token")
	if err := fs.Parse(args); err != nil {
		return err
	}
	p, err := rf.params()
	if err != nil {
		return err
	}
	authority, err := a.authority()
	if err != nil {
		return err
	}
	receiverToken, err := rf.tokenAccount(authority)
	if err != nil {
		return err
	}
	ix, err := a.asm.WithdrawOffchainReward(authority, receiverToken, p)
	if err != nil {
		return err
	}
	return a.submit(ctx, ix)
}

