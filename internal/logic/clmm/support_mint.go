package clmm

import (
	"clmm-admin-sol/internal/consts"
	"clmm-admin-sol/internal/types"

	soltypes "github.com/blocto/solana-go-sdk/types"
)

// CreateSupportMintAssociated 登记一个允许建池的 Token-2022 mint
func (a *Assembler) CreateSupportMintAssociated(owner, mint types.Pubkey) (soltypes.Instruction, error) {
	err := checkAccounts("create_support_mint_associated", field{"owner", owner}, field{"mint", mint})
	if err != nil {
		return soltypes.Instruction{}, err
	}
	adminGroup, err := a.adminGroup()
	if err != nil {
		return soltypes.Instruction{}, err
	}
	support, err := a.pda.SupportMint(mint)
	if err != nil {
		return soltypes.Instruction{}, err
	}
	return a.instruction(DiscCreateSupportMintAssociated, nil, []soltypes.AccountMeta{
		signer(owner, true),
		readonly(adminGroup),
		readonly(mint),
		writable(support.Address),
		readonly(consts.SystemProgram),
	})
}

// SupportMintAccounts 建池时作为附加账户传入的 support mint PDA 列表
func (a *Assembler) SupportMintAccounts(mints ...types.Pubkey) ([]types.Pubkey, error) {
	out := make([]types.Pubkey, 0, len(mints))
	for _, m := range mints {
		d, err := a.pda.SupportMint(m)
		if err != nil {
			return nil, err
		}
		out = append(out, d.Address)
	}
	return out, nil
}
