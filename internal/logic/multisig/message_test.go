package multisig

import (
	"testing"

	"clmm-admin-sol/internal/consts"
	"clmm-admin-sol/internal/types"

	soltypes "github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(b byte) types.Pubkey {
	var p types.Pubkey
	p[0] = b
	p[31] = b
	return p
}

// 两条指令：P1[A(s,w), B, C(w)]，P2[B(w), D(s)]
func sampleInstructions() []soltypes.Instruction {
	return []soltypes.Instruction{
		{
			ProgramID: key(0x10),
			Accounts: []soltypes.AccountMeta{
				{PubKey: key(0xa1), IsSigner: true, IsWritable: true},
				{PubKey: key(0xb2)},
				{PubKey: key(0xc3), IsWritable: true},
			},
			Data: []byte{1, 2, 3},
		},
		{
			ProgramID: key(0x20),
			Accounts: []soltypes.AccountMeta{
				{PubKey: key(0xb2), IsWritable: true},
				{PubKey: key(0xd4), IsSigner: true},
			},
			Data: []byte{9},
		},
	}
}

func TestCompileTransactionMessage_Order(t *testing.T) {
	payer := key(0x01)
	msg, err := CompileTransactionMessage(payer, sampleInstructions())
	require.NoError(t, err)

	wantKeys := []types.Pubkey{payer, key(0xa1), key(0xd4), key(0xb2), key(0xc3), key(0x10), key(0x20)}
	assert.Equal(t, wantKeys, msg.AccountKeys, "账户分组顺序不符")
	assert.Equal(t, uint8(3), msg.NumSigners)
	assert.Equal(t, uint8(2), msg.NumWritableSigners)
	assert.Equal(t, uint8(2), msg.NumWritableNonSigners)

	require.Len(t, msg.Instructions, 2)
	assert.Equal(t, uint8(5), msg.Instructions[0].ProgramIDIndex)
	assert.Equal(t, []uint8{1, 3, 4}, msg.Instructions[0].AccountIndexes)
	assert.Equal(t, uint8(6), msg.Instructions[1].ProgramIDIndex)
	assert.Equal(t, []uint8{3, 2}, msg.Instructions[1].AccountIndexes)

	writable := []bool{true, true, false, true, true, false, false}
	for i, w := range writable {
		assert.Equal(t, w, msg.IsWritable(i), "index %d writable 不符", i)
		assert.Equal(t, i < 3, msg.IsSigner(i), "index %d signer 不符", i)
	}
}

func TestCompileTransactionMessage_Errors(t *testing.T) {
	_, err := CompileTransactionMessage(key(1), nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)

	big := soltypes.Instruction{ProgramID: key(2), Data: make([]byte, maxIxDataLength+1)}
	_, err = CompileTransactionMessage(key(1), []soltypes.Instruction{big})
	assert.ErrorIs(t, err, ErrInstructionTooLarge)

	accounts := make([]soltypes.AccountMeta, 0, 300)
	for i := 0; i < 300; i++ {
		var p types.Pubkey
		p[0], p[1] = byte(i), byte(i>>8)
		p[2] = 0xee
		accounts = append(accounts, soltypes.AccountMeta{PubKey: p})
	}
	_, err = CompileTransactionMessage(key(1), []soltypes.Instruction{{ProgramID: key(2), Accounts: accounts}})
	assert.ErrorIs(t, err, ErrTooManyAccounts)
}

func TestTransactionMessage_EncodeDecode(t *testing.T) {
	msg, err := CompileTransactionMessage(key(0x01), sampleInstructions())
	require.NoError(t, err)

	raw, err := msg.Encode()
	require.NoError(t, err)
	// header 3 + keys(1+7*32) + ixs(1 + (1+1+3+2+3) + (1+1+2+2+1)) + lookups 1
	assert.Len(t, raw, 3+1+7*32+1+10+7+1)

	got, err := DecodeTransactionMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, msg, got)

	_, err = DecodeTransactionMessage(raw[:len(raw)-2])
	assert.ErrorIs(t, err, ErrMalformedMessage)
	_, err = DecodeTransactionMessage(append(raw, 0))
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestVaultTransactionExecute_SignerFlags(t *testing.T) {
	ms := key(0x77)
	vault, err := VaultPda(consts.SquadsProgram, ms, 0)
	require.NoError(t, err)

	msg, err := CompileTransactionMessage(vault.Address, sampleInstructions())
	require.NoError(t, err)

	b := NewBuilder(consts.SquadsProgram, ms)
	member := key(0x55)
	ix, err := b.VaultTransactionExecute(&VaultTransaction{Multisig: ms, Index: 3, Message: msg}, member)
	require.NoError(t, err)

	require.Len(t, ix.Accounts, 4+len(msg.AccountKeys))
	assert.Equal(t, member, ix.Accounts[3].PubKey)
	assert.True(t, ix.Accounts[3].IsSigner)

	remaining := ix.Accounts[4:]
	assert.Equal(t, vault.Address, remaining[0].PubKey)
	assert.False(t, remaining[0].IsSigner, "vault 是 PDA，不能作为 signer")
	assert.True(t, remaining[0].IsWritable)
	assert.True(t, remaining[1].IsSigner)
	assert.True(t, remaining[2].IsSigner)
	assert.False(t, remaining[2].IsWritable)
	assert.False(t, remaining[5].IsWritable)
}
