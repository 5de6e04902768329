package clmm

import (
	"clmm-admin-sol/internal/consts"
	"clmm-admin-sol/internal/types"

	soltypes "github.com/blocto/solana-go-sdk/types"
)

// AdminGroup 六个角色，字段顺序即链上 borsh 顺序
type AdminGroup struct {
	FeeKeeper           types.Pubkey
	RewardConfigManager types.Pubkey
	RewardClaimManager  types.Pubkey
	PoolManager         types.Pubkey
	EmergencyManager    types.Pubkey
	NormalManager       types.Pubkey
}

func (g AdminGroup) validate(op string) error {
	return checkAccounts(op,
		field{"fee_keeper", g.FeeKeeper},
		field{"reward_config_manager", g.RewardConfigManager},
		field{"reward_claim_manager", g.RewardClaimManager},
		field{"pool_manager", g.PoolManager},
		field{"emergency_manager", g.EmergencyManager},
		field{"normal_manager", g.NormalManager},
	)
}

// AdminGroupUpdate 部分更新：nil 表示不修改，编码为 Option::None，
// 不会和任何合法地址（包括全 0 地址）混淆
type AdminGroupUpdate struct {
	FeeKeeper           *types.Pubkey
	RewardConfigManager *types.Pubkey
	RewardClaimManager  *types.Pubkey
	PoolManager         *types.Pubkey
	EmergencyManager    *types.Pubkey
	NormalManager       *types.Pubkey
}

func (u AdminGroupUpdate) IsEmpty() bool {
	return u.FeeKeeper == nil && u.RewardConfigManager == nil && u.RewardClaimManager == nil &&
		u.PoolManager == nil && u.EmergencyManager == nil && u.NormalManager == nil
}

// Apply 返回应用更新后的角色组，用于展示与校验更新效果（链上以程序执行结果为准）
func (u AdminGroupUpdate) Apply(cur AdminGroup) AdminGroup {
	set := func(dst *types.Pubkey, v *types.Pubkey) {
		if v != nil {
			*dst = *v
		}
	}
	set(&cur.FeeKeeper, u.FeeKeeper)
	set(&cur.RewardConfigManager, u.RewardConfigManager)
	set(&cur.RewardClaimManager, u.RewardClaimManager)
	set(&cur.PoolManager, u.PoolManager)
	set(&cur.EmergencyManager, u.EmergencyManager)
	set(&cur.NormalManager, u.NormalManager)
	return cur
}

// InitAdminGroup 全局只初始化一次
func (a *Assembler) InitAdminGroup(payer types.Pubkey, group AdminGroup) (soltypes.Instruction, error) {
	if err := checkAccounts("init_amm_admin_group", field{"payer", payer}); err != nil {
		return soltypes.Instruction{}, err
	}
	if err := group.validate("init_amm_admin_group"); err != nil {
		return soltypes.Instruction{}, err
	}
	adminGroup, err := a.adminGroup()
	if err != nil {
		return soltypes.Instruction{}, err
	}
	return a.instruction(DiscInitAmmAdminGroup, group, []soltypes.AccountMeta{
		signer(payer, true),
		writable(adminGroup),
		readonly(consts.SystemProgram),
	})
}

// UpdateAdminGroup 空更新同样合法，链上表现为 no-op
func (a *Assembler) UpdateAdminGroup(payer types.Pubkey, update AdminGroupUpdate) (soltypes.Instruction, error) {
	if err := checkAccounts("update_amm_admin_group", field{"payer", payer}); err != nil {
		return soltypes.Instruction{}, err
	}
	adminGroup, err := a.adminGroup()
	if err != nil {
		return soltypes.Instruction{}, err
	}
	return a.instruction(DiscUpdateAmmAdminGroup, update, []soltypes.AccountMeta{
		signer(payer, true),
		writable(adminGroup),
	})
}
