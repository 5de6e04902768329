package clmm

import "encoding/binary"

// Anchor 指令 discriminator（sha256("global:<name>")[:8]，按大端 uint64 书写）
const (
	DiscInitAmmAdminGroup           uint64 = 0xd16c20f69dd6ed56
	DiscUpdateAmmAdminGroup         uint64 = 0x3db7b9bc52518dc5
	DiscCreateAmmConfig             uint64 = 0x8934edd4d7756c68
	DiscUpdateAmmConfig             uint64 = 0x313cae889a1c74c8
	DiscCreatePool                  uint64 = 0xe992d18ecf6840bc
	DiscUpdatePoolStatus            uint64 = 0x82576c062ee0757b
	DiscDepositOffchainReward       uint64 = 0x617d30a95cf12c8e
	DiscClaimOffchainReward         uint64 = 0xc357dd958dc39213
	DiscWithdrawOffchainReward      uint64 = 0x56353b4cd92647d5
	DiscCreateSupportMintAssociated uint64 = 0x11fb415c88f20ea9
	DiscCollectFundFee              uint64 = 0xa78a4e95dfc2067e
	DiscTransferRewardOwner         uint64 = 0x07160c53f22b3079
	DiscCreateOperationAccount      uint64 = 0x3f5794216d230868
	DiscIncreaseLiquidityV2         uint64 = 0x851d59df45eeb00a
	DiscDecreaseLiquidityV2         uint64 = 0x3a7fbc3e4f52c460
)

// Anchor 账户 discriminator
const (
	DiscAccountAmmAdminGroup uint64 = 0x8080ea1e3dacbc7b
	DiscAccountAmmConfig     uint64 = 0xdaf42168cbcb2b6f
)

var instructionNames = map[uint64]string{
	DiscInitAmmAdminGroup:           "init_amm_admin_group",
	DiscUpdateAmmAdminGroup:         "update_amm_admin_group",
	DiscCreateAmmConfig:             "create_amm_config",
	DiscUpdateAmmConfig:             "update_amm_config",
	DiscCreatePool:                  "create_pool",
	DiscUpdatePoolStatus:            "update_pool_status",
	DiscDepositOffchainReward:       "deposit_offchain_reward",
	DiscClaimOffchainReward:         "claim_offchain_reward",
	DiscWithdrawOffchainReward:      "withdraw_offchain_reward",
	DiscCreateSupportMintAssociated: "create_support_mint_associated",
	DiscCollectFundFee:              "collect_fund_fee",
	DiscTransferRewardOwner:         "transfer_reward_owner",
	DiscCreateOperationAccount:      "create_operation_account",
	DiscIncreaseLiquidityV2:         "increase_liquidity_v2",
	DiscDecreaseLiquidityV2:         "decrease_liquidity_v2",
}

// InstructionName 根据 data 前 8 字节识别 CLMM 指令
func InstructionName(data []byte) (string, bool) {
	if len(data) < 8 {
		return "", false
	}
	name, ok := instructionNames[binary.BigEndian.Uint64(data[:8])]
	return name, ok
}
