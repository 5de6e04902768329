package consts

// CLMM 程序 PDA seed
const (
	SeedAdminGroup               = "admin_group"
	SeedAmmConfig                = "amm_config"
	SeedPool                     = "pool"
	SeedPoolVault                = "pool_vault"
	SeedPoolRewardVault          = "pool_reward_vault"
	SeedPosition                 = "position"
	SeedTickArray                = "tick_array"
	SeedOperation                = "operation"
	SeedTickArrayBitmapExtension = "pool_tick_array_bitmap_extension"
	SeedObservation              = "observation"
	SeedSupportMint              = "support_mint"
	SeedOffchainReward           = "offchain_reward"
)

// Squads v4 PDA seed
const (
	SeedSquadsPrefix        = "multisig"
	SeedSquadsProgramConfig = "program_config"
	SeedSquadsMultisig      = "multisig"
	SeedSquadsVault         = "vault"
	SeedSquadsTransaction   = "transaction"
	SeedSquadsProposal      = "proposal"
	SeedSquadsEphemeral     = "ephemeral_signer"
)
