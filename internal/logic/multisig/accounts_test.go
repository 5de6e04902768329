package multisig

import (
	"encoding/binary"
	"testing"

	"clmm-admin-sol/internal/consts"
	"clmm-admin-sol/internal/types"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultisig_EncodeDecode(t *testing.T) {
	collector := key(0x09)
	ms := &Multisig{
		CreateKey:             key(1),
		ConfigAuthority:       key(2),
		Threshold:             2,
		TimeLock:              30,
		TransactionIndex:      7,
		StaleTransactionIndex: 3,
		RentCollector:         &collector,
		Bump:                  254,
		Members: []Member{
			{Key: key(0xa1), Permissions: AllPermissions()},
			{Key: key(0xa2), Permissions: NewPermissions(PermissionVote)},
		},
	}
	raw, err := ms.Encode()
	require.NoError(t, err)

	got, err := DecodeMultisig(raw)
	require.NoError(t, err)
	assert.Equal(t, ms, got)

	m, ok := got.Member(key(0xa2))
	assert.True(t, ok)
	assert.Equal(t, "Vote", m.Permissions.String())
	_, ok = got.Member(key(0xff))
	assert.False(t, ok)
}

func TestProposal_ExecutingHasNoTimestamp(t *testing.T) {
	p := &Proposal{
		Multisig:         key(1),
		TransactionIndex: 5,
		Status:           ProposalStatus{Kind: ProposalExecuting},
		Bump:             255,
		Approved:         []types.Pubkey{key(0xa1)},
		Rejected:         []types.Pubkey{},
		Cancelled:        []types.Pubkey{},
	}
	raw, err := p.Encode()
	require.NoError(t, err)
	// disc + multisig + index + variant + bump + 3 个 vec 长度 + 1 个 key
	assert.Len(t, raw, 8+32+8+1+1+4*3+32)

	got, err := DecodeProposal(raw)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	p.Status = ProposalStatus{Kind: ProposalApproved, Timestamp: 1700000000}
	raw, err = p.Encode()
	require.NoError(t, err)
	got, err = DecodeProposal(raw)
	require.NoError(t, err)
	assert.Equal(t, ProposalApproved, got.Status.Kind)
	assert.Equal(t, int64(1700000000), got.Status.Timestamp)
}

func TestDecode_DiscriminatorMismatch(t *testing.T) {
	raw, err := (&ProgramConfig{Authority: key(1), MultisigCreationFee: 10, Treasury: key(2)}).Encode()
	require.NoError(t, err)

	_, err = DecodeMultisig(raw)
	assert.ErrorIs(t, err, ErrDiscriminatorMismatch)
	_, err = DecodeProposal([]byte{1, 2})
	assert.ErrorIs(t, err, ErrDiscriminatorMismatch)

	cfg, err := DecodeProgramConfig(raw)
	require.NoError(t, err)
	assert.Equal(t, key(2), cfg.Treasury)
}

func TestVaultTransaction_EncodeDecode(t *testing.T) {
	msg, err := CompileTransactionMessage(key(0x01), sampleInstructions())
	require.NoError(t, err)

	tx := &VaultTransaction{
		Multisig:             key(0x77),
		Creator:              key(0x55),
		Index:                9,
		Bump:                 250,
		VaultIndex:           0,
		VaultBump:            253,
		EphemeralSignerBumps: []uint8{},
		Message:              msg,
	}
	raw, err := tx.Encode()
	require.NoError(t, err)

	got, err := DecodeVaultTransaction(raw)
	require.NoError(t, err)
	assert.Equal(t, tx, got)
}

func TestPda_LittleEndianIndex(t *testing.T) {
	ms := key(0x77)
	got, err := TransactionPda(consts.SquadsProgram, ms, 1)
	require.NoError(t, err)

	idx := make([]byte, 8)
	binary.LittleEndian.PutUint64(idx, 1)
	want, _, err := common.FindProgramAddress([][]byte{[]byte("multisig"), ms[:], []byte("transaction"), idx}, consts.SquadsProgram)
	require.NoError(t, err)
	assert.Equal(t, want, got.Address, "Squads 交易索引必须使用小端序")

	p1, err := ProposalPda(consts.SquadsProgram, ms, 1)
	require.NoError(t, err)
	assert.NotEqual(t, got.Address, p1.Address)
}

func TestPermissions(t *testing.T) {
	assert.Equal(t, "All", AllPermissions().String())
	assert.Equal(t, "None", Permissions{}.String())
	assert.Equal(t, "Initiate, Vote", NewPermissions(PermissionInitiate, PermissionVote).String())

	p, err := ParsePermissions([]string{"vote", "Execute"})
	require.NoError(t, err)
	assert.Equal(t, uint8(6), p.Mask)

	_, err = ParsePermissions([]string{"admin"})
	assert.Error(t, err)
}

func TestInstructionName(t *testing.T) {
	b := NewBuilder(consts.SquadsProgram, key(0x77))
	ix, err := b.ProposalApprove(1, key(0xa1), nil)
	require.NoError(t, err)

	name, ok := InstructionName(ix.Data)
	assert.True(t, ok)
	assert.Equal(t, "proposal_approve", name)
	assert.Len(t, ix.Data, 9, "memo 为空时只有 discriminator + option tag")
}
