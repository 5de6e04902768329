package multisig

import (
	"encoding/binary"

	"clmm-admin-sol/internal/consts"
	"clmm-admin-sol/internal/pda"
	"clmm-admin-sol/internal/types"
)

// Squads 的 u64 index 用小端序，和 CLMM 的大端 seed 不同，不要统一

func ProgramConfigPda(programID types.Pubkey) (pda.DerivedAddress, error) {
	return pda.Derive([][]byte{
		[]byte(consts.SeedSquadsPrefix),
		[]byte(consts.SeedSquadsProgramConfig),
	}, programID)
}

func MultisigPda(programID, createKey types.Pubkey) (pda.DerivedAddress, error) {
	return pda.Derive([][]byte{
		[]byte(consts.SeedSquadsPrefix),
		[]byte(consts.SeedSquadsMultisig),
		createKey[:],
	}, programID)
}

func VaultPda(programID, multisig types.Pubkey, index uint8) (pda.DerivedAddress, error) {
	return pda.Derive([][]byte{
		[]byte(consts.SeedSquadsPrefix),
		multisig[:],
		[]byte(consts.SeedSquadsVault),
		{index},
	}, programID)
}

func TransactionPda(programID, multisig types.Pubkey, index uint64) (pda.DerivedAddress, error) {
	return pda.Derive([][]byte{
		[]byte(consts.SeedSquadsPrefix),
		multisig[:],
		[]byte(consts.SeedSquadsTransaction),
		u64LE(index),
	}, programID)
}

func ProposalPda(programID, multisig types.Pubkey, index uint64) (pda.DerivedAddress, error) {
	return pda.Derive([][]byte{
		[]byte(consts.SeedSquadsPrefix),
		multisig[:],
		[]byte(consts.SeedSquadsTransaction),
		u64LE(index),
		[]byte(consts.SeedSquadsProposal),
	}, programID)
}

func EphemeralSignerPda(programID, transaction types.Pubkey, index uint8) (pda.DerivedAddress, error) {
	return pda.Derive([][]byte{
		[]byte(consts.SeedSquadsPrefix),
		transaction[:],
		[]byte(consts.SeedSquadsEphemeral),
		{index},
	}, programID)
}

func u64LE(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf
}
