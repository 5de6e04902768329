package clmm

import (
	"clmm-admin-sol/internal/consts"
	"clmm-admin-sol/internal/pda"
	"clmm-admin-sol/internal/types"

	soltypes "github.com/blocto/solana-go-sdk/types"
)

type CollectFundFeeParams struct {
	Pool       types.Pubkey
	Mint0      MintInfo
	Mint1      MintInfo
	FeeKeeper  types.Pubkey // 接收方 ATA 的 owner
	Amount0Max uint64
	Amount1Max uint64
}

type collectFundFeeArgs struct {
	Amount0Requested uint64
	Amount1Requested uint64
}

// CollectFundFee 任何人都可以触发，资金进入 fee_keeper 的 ATA，因此没有 signer
func (a *Assembler) CollectFundFee(p CollectFundFeeParams) (soltypes.Instruction, error) {
	err := checkAccounts("collect_fund_fee",
		field{"pool", p.Pool},
		field{"mint0", p.Mint0.Mint},
		field{"mint1", p.Mint1.Mint},
		field{"fee_keeper", p.FeeKeeper},
	)
	if err != nil {
		return soltypes.Instruction{}, err
	}
	mint0, mint1, _ := NormalizeMintPair(p.Mint0, p.Mint1)
	amount0, amount1 := p.Amount0Max, p.Amount1Max
	if mint0.Mint != p.Mint0.Mint {
		amount0, amount1 = amount1, amount0
	}

	adminGroup, err := a.adminGroup()
	if err != nil {
		return soltypes.Instruction{}, err
	}
	vault0, err := a.pda.PoolVault(p.Pool, mint0.Mint)
	if err != nil {
		return soltypes.Instruction{}, err
	}
	vault1, err := a.pda.PoolVault(p.Pool, mint1.Mint)
	if err != nil {
		return soltypes.Instruction{}, err
	}
	recipient0, err := pda.AssociatedTokenAddress(p.FeeKeeper, mint0.Mint, mint0.program())
	if err != nil {
		return soltypes.Instruction{}, err
	}
	recipient1, err := pda.AssociatedTokenAddress(p.FeeKeeper, mint1.Mint, mint1.program())
	if err != nil {
		return soltypes.Instruction{}, err
	}

	return a.instruction(DiscCollectFundFee, collectFundFeeArgs{Amount0Requested: amount0, Amount1Requested: amount1}, []soltypes.AccountMeta{
		readonly(adminGroup),
		writable(p.Pool),
		writable(vault0.Address),
		writable(vault1.Address),
		readonly(mint0.Mint),
		readonly(mint1.Mint),
		writable(recipient0.Address),
		writable(recipient1.Address),
		readonly(consts.TokenProgram),
		readonly(consts.TokenProgram2022),
		readonly(consts.AssociatedTokenProgram),
	})
}

type transferRewardOwnerArgs struct {
	NewOwner types.Pubkey
}

func (a *Assembler) TransferRewardOwner(authority, pool, newOwner types.Pubkey) (soltypes.Instruction, error) {
	err := checkAccounts("transfer_reward_owner",
		field{"authority", authority},
		field{"pool", pool},
		field{"new_owner", newOwner},
	)
	if err != nil {
		return soltypes.Instruction{}, err
	}
	adminGroup, err := a.adminGroup()
	if err != nil {
		return soltypes.Instruction{}, err
	}
	return a.instruction(DiscTransferRewardOwner, transferRewardOwnerArgs{NewOwner: newOwner}, []soltypes.AccountMeta{
		signer(authority, false),
		readonly(adminGroup),
		writable(pool),
	})
}

func (a *Assembler) CreateOperationAccount(owner types.Pubkey) (soltypes.Instruction, error) {
	if err := checkAccounts("create_operation_account", field{"owner", owner}); err != nil {
		return soltypes.Instruction{}, err
	}
	adminGroup, err := a.adminGroup()
	if err != nil {
		return soltypes.Instruction{}, err
	}
	op, err := a.pda.Operation()
	if err != nil {
		return soltypes.Instruction{}, err
	}
	return a.instruction(DiscCreateOperationAccount, nil, []soltypes.AccountMeta{
		signer(owner, true),
		readonly(adminGroup),
		writable(op.Address),
		readonly(consts.SystemProgram),
	})
}
