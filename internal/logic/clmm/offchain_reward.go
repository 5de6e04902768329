package clmm

import (
	"clmm-admin-sol/internal/consts"
	"clmm-admin-sol/internal/pda"
	"clmm-admin-sol/internal/types"

	soltypes "github.com/blocto/solana-go-sdk/types"
)

// RewardParams 链下奖励三件套（存入 / 领取 / 提取）共用参数。
// reward vault 是 reward config PDA 在该 mint 下的 ATA。
type RewardParams struct {
	Pool         types.Pubkey
	Mint         types.Pubkey
	TokenProgram types.Pubkey // 为空时使用 SPL Token
	Amount       uint64
}

type rewardAmountArgs struct {
	Amount uint64
}

type rewardAccounts struct {
	adminGroup   types.Pubkey
	rewardConfig types.Pubkey
	rewardVault  types.Pubkey
	tokenProgram types.Pubkey
}

func (a *Assembler) rewardAccounts(op string, p RewardParams) (*rewardAccounts, error) {
	if err := checkAccounts(op, field{"pool", p.Pool}, field{"mint", p.Mint}); err != nil {
		return nil, err
	}
	tokenProgram := p.TokenProgram
	if types.IsZero(tokenProgram) {
		tokenProgram = consts.TokenProgram
	}
	adminGroup, err := a.adminGroup()
	if err != nil {
		return nil, err
	}
	cfg, err := a.pda.OffchainReward(p.Pool)
	if err != nil {
		return nil, err
	}
	vault, err := pda.AssociatedTokenAddress(cfg.Address, p.Mint, tokenProgram)
	if err != nil {
		return nil, err
	}
	return &rewardAccounts{
		adminGroup:   adminGroup,
		rewardConfig: cfg.Address,
		rewardVault:  vault.Address,
		tokenProgram: tokenProgram,
	}, nil
}

// DepositOffchainReward authority 须为 reward_config_manager
func (a *Assembler) DepositOffchainReward(payer, authority, payerToken types.Pubkey, p RewardParams) (soltypes.Instruction, error) {
	const op = "deposit_offchain_reward"
	err := checkAccounts(op, field{"payer", payer}, field{"authority", authority}, field{"payer_token_account", payerToken})
	if err != nil {
		return soltypes.Instruction{}, err
	}
	acc, err := a.rewardAccounts(op, p)
	if err != nil {
		return soltypes.Instruction{}, err
	}
	return a.instruction(DiscDepositOffchainReward, rewardAmountArgs{Amount: p.Amount}, []soltypes.AccountMeta{
		signer(payer, true),
		signer(authority, false),
		readonly(acc.adminGroup),
		readonly(p.Pool),
		readonly(p.Mint),
		writable(payerToken),
		writable(acc.rewardConfig),
		writable(acc.rewardVault),
		readonly(acc.tokenProgram),
		readonly(consts.AssociatedTokenProgram),
		readonly(consts.SystemProgram),
	})
}

// ClaimOffchainReward authority 须为 reward_claim_manager
func (a *Assembler) ClaimOffchainReward(claimer, authority, claimerToken types.Pubkey, p RewardParams) (soltypes.Instruction, error) {
	const op = "claim_offchain_reward"
	err := checkAccounts(op, field{"claimer", claimer}, field{"authority", authority}, field{"claimer_token_account", claimerToken})
	if err != nil {
		return soltypes.Instruction{}, err
	}
	acc, err := a.rewardAccounts(op, p)
	if err != nil {
		return soltypes.Instruction{}, err
	}
	return a.instruction(DiscClaimOffchainReward, rewardAmountArgs{Amount: p.Amount}, []soltypes.AccountMeta{
		signer(claimer, true),
		signer(authority, false),
		readonly(acc.adminGroup),
		readonly(p.Pool),
		readonly(p.Mint),
		writable(claimerToken),
		writable(acc.rewardVault),
		readonly(acc.rewardConfig),
		readonly(acc.tokenProgram),
		readonly(consts.AssociatedTokenProgram),
	})
}

// WithdrawOffchainReward authority 须为 reward_config_manager
func (a *Assembler) WithdrawOffchainReward(authority, receiverToken types.Pubkey, p RewardParams) (soltypes.Instruction, error) {
	const op = "withdraw_offchain_reward"
	err := checkAccounts(op, field{"authority", authority}, field{"receiver_token_account", receiverToken})
	if err != nil {
		return soltypes.Instruction{}, err
	}
	acc, err := a.rewardAccounts(op, p)
	if err != nil {
		return soltypes.Instruction{}, err
	}
	return a.instruction(DiscWithdrawOffchainReward, rewardAmountArgs{Amount: p.Amount}, []soltypes.AccountMeta{
		signer(authority, false),
		readonly(acc.adminGroup),
		readonly(p.Pool),
		readonly(p.Mint),
		writable(receiverToken),
		writable(acc.rewardVault),
		writable(acc.rewardConfig),
		readonly(acc.tokenProgram),
		readonly(consts.AssociatedTokenProgram),
	})
}
