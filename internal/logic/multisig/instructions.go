package multisig

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"clmm-admin-sol/internal/consts"
	"clmm-admin-sol/internal/types"

	soltypes "github.com/blocto/solana-go-sdk/types"
	bin "github.com/gagliardetto/binary"
)

type Member struct {
	Key         types.Pubkey
	Permissions Permissions
}

// Builder 绑定 Squads 程序地址与某个多签账户
type Builder struct {
	programID types.Pubkey
	multisig  types.Pubkey
}

func NewBuilder(programID, multisig types.Pubkey) *Builder {
	return &Builder{programID: programID, multisig: multisig}
}

func (b *Builder) ProgramID() types.Pubkey { return b.programID }
func (b *Builder) Multisig() types.Pubkey  { return b.multisig }

type MultisigCreateParams struct {
	CreateKey       types.Pubkey
	Creator         types.Pubkey
	Treasury        types.Pubkey
	ConfigAuthority *types.Pubkey
	Threshold       uint16
	Members         []Member
	TimeLock        uint32
	RentCollector   *types.Pubkey
	Memo            *string
}

// MultisigCreateV2 创建多签，multisig 地址由 CreateKey 派生（与 Builder 绑定的地址无关）
func MultisigCreateV2(programID types.Pubkey, p MultisigCreateParams) (soltypes.Instruction, types.Pubkey, error) {
	if p.Threshold == 0 || int(p.Threshold) > len(p.Members) {
		return soltypes.Instruction{}, types.Pubkey{}, fmt.Errorf("multisig: invalid threshold %d for %d members", p.Threshold, len(p.Members))
	}
	programConfig, err := ProgramConfigPda(programID)
	if err != nil {
		return soltypes.Instruction{}, types.Pubkey{}, err
	}
	ms, err := MultisigPda(programID, p.CreateKey)
	if err != nil {
		return soltypes.Instruction{}, types.Pubkey{}, err
	}

	w := newArgWriter(DiscMultisigCreateV2)
	w.optPubkey(p.ConfigAuthority)
	w.u16(p.Threshold)
	w.u32(uint32(len(p.Members)))
	for _, m := range p.Members {
		w.pubkey(m.Key)
		w.u8(m.Permissions.Mask)
	}
	w.u32(p.TimeLock)
	w.optPubkey(p.RentCollector)
	w.optString(p.Memo)
	data, err := w.bytes()
	if err != nil {
		return soltypes.Instruction{}, types.Pubkey{}, err
	}

	return soltypes.Instruction{
		ProgramID: programID,
		Accounts: []soltypes.AccountMeta{
			{PubKey: programConfig.Address},
			{PubKey: p.Treasury, IsWritable: true},
			{PubKey: ms.Address, IsWritable: true},
			{PubKey: p.CreateKey, IsSigner: true},
			{PubKey: p.Creator, IsSigner: true, IsWritable: true},
			{PubKey: consts.SystemProgram},
		},
		Data: data,
	}, ms.Address, nil
}

type VaultTransactionCreateParams struct {
	TransactionIndex uint64
	VaultIndex       uint8
	EphemeralSigners uint8
	Message          *TransactionMessage
	Creator          types.Pubkey
	RentPayer        types.Pubkey
	Memo             *string
}

func (b *Builder) VaultTransactionCreate(p VaultTransactionCreateParams) (soltypes.Instruction, error) {
	txPda, err := TransactionPda(b.programID, b.multisig, p.TransactionIndex)
	if err != nil {
		return soltypes.Instruction{}, err
	}
	encoded, err := p.Message.Encode()
	if err != nil {
		return soltypes.Instruction{}, err
	}

	w := newArgWriter(DiscVaultTransactionCreate)
	w.u8(p.VaultIndex)
	w.u8(p.EphemeralSigners)
	w.u32(uint32(len(encoded)))
	w.raw(encoded)
	w.optString(p.Memo)
	data, err := w.bytes()
	if err != nil {
		return soltypes.Instruction{}, err
	}

	return soltypes.Instruction{
		ProgramID: b.programID,
		Accounts: []soltypes.AccountMeta{
			{PubKey: b.multisig, IsWritable: true},
			{PubKey: txPda.Address, IsWritable: true},
			{PubKey: p.Creator, IsSigner: true},
			{PubKey: p.RentPayer, IsSigner: true, IsWritable: true},
			{PubKey: consts.SystemProgram},
		},
		Data: data,
	}, nil
}

func (b *Builder) ProposalCreate(index uint64, creator, rentPayer types.Pubkey, draft bool) (soltypes.Instruction, error) {
	proposal, err := ProposalPda(b.programID, b.multisig, index)
	if err != nil {
		return soltypes.Instruction{}, err
	}

	w := newArgWriter(DiscProposalCreate)
	w.u64(index)
	w.boolean(draft)
	data, err := w.bytes()
	if err != nil {
		return soltypes.Instruction{}, err
	}

	return soltypes.Instruction{
		ProgramID: b.programID,
		Accounts: []soltypes.AccountMeta{
			{PubKey: b.multisig},
			{PubKey: proposal.Address, IsWritable: true},
			{PubKey: creator, IsSigner: true},
			{PubKey: rentPayer, IsSigner: true, IsWritable: true},
			{PubKey: consts.SystemProgram},
		},
		Data: data,
	}, nil
}

func (b *Builder) ProposalApprove(index uint64, member types.Pubkey, memo *string) (soltypes.Instruction, error) {
	return b.proposalVote(DiscProposalApprove, index, member, memo)
}

func (b *Builder) ProposalReject(index uint64, member types.Pubkey, memo *string) (soltypes.Instruction, error) {
	return b.proposalVote(DiscProposalReject, index, member, memo)
}

func (b *Builder) ProposalCancel(index uint64, member types.Pubkey, memo *string) (soltypes.Instruction, error) {
	return b.proposalVote(DiscProposalCancel, index, member, memo)
}

func (b *Builder) proposalVote(disc uint64, index uint64, member types.Pubkey, memo *string) (soltypes.Instruction, error) {
	proposal, err := ProposalPda(b.programID, b.multisig, index)
	if err != nil {
		return soltypes.Instruction{}, err
	}

	w := newArgWriter(disc)
	w.optString(memo)
	data, err := w.bytes()
	if err != nil {
		return soltypes.Instruction{}, err
	}

	return soltypes.Instruction{
		ProgramID: b.programID,
		Accounts: []soltypes.AccountMeta{
			{PubKey: b.multisig},
			{PubKey: member, IsSigner: true, IsWritable: true},
			{PubKey: proposal.Address, IsWritable: true},
		},
		Data: data,
	}, nil
}

// VaultTransactionExecute 固定账户之后按消息 key 顺序追加 remaining accounts。
// vault 和 ephemeral signer 是 PDA，不能标记为 signer。
func (b *Builder) VaultTransactionExecute(tx *VaultTransaction, member types.Pubkey) (soltypes.Instruction, error) {
	proposal, err := ProposalPda(b.programID, b.multisig, tx.Index)
	if err != nil {
		return soltypes.Instruction{}, err
	}
	txPda, err := TransactionPda(b.programID, b.multisig, tx.Index)
	if err != nil {
		return soltypes.Instruction{}, err
	}
	vault, err := VaultPda(b.programID, b.multisig, tx.VaultIndex)
	if err != nil {
		return soltypes.Instruction{}, err
	}
	ephemeral := make(map[types.Pubkey]struct{}, len(tx.EphemeralSignerBumps))
	for i := range tx.EphemeralSignerBumps {
		e, err := EphemeralSignerPda(b.programID, txPda.Address, uint8(i))
		if err != nil {
			return soltypes.Instruction{}, err
		}
		ephemeral[e.Address] = struct{}{}
	}

	msg := tx.Message
	if len(msg.AddressTableLookups) > 0 {
		return soltypes.Instruction{}, fmt.Errorf("multisig: address lookup tables are not supported (tx %d)", tx.Index)
	}

	accounts := []soltypes.AccountMeta{
		{PubKey: b.multisig},
		{PubKey: proposal.Address, IsWritable: true},
		{PubKey: txPda.Address},
		{PubKey: member, IsSigner: true},
	}
	for i, k := range msg.AccountKeys {
		_, isEphemeral := ephemeral[k]
		accounts = append(accounts, soltypes.AccountMeta{
			PubKey:     k,
			IsWritable: msg.IsWritable(i),
			IsSigner:   msg.IsSigner(i) && k != vault.Address && !isEphemeral,
		})
	}

	return soltypes.Instruction{
		ProgramID: b.programID,
		Accounts:  accounts,
		Data:      discBytes(DiscVaultTransactionExecute),
	}, nil
}

// argWriter 顺序写 borsh 参数，第一个错误之后的写入全部跳过
type argWriter struct {
	buf *bytes.Buffer
	enc *bin.Encoder
	err error
}

func newArgWriter(disc uint64) *argWriter {
	buf := new(bytes.Buffer)
	buf.Write(discBytes(disc))
	return &argWriter{buf: buf, enc: bin.NewBorshEncoder(buf)}
}

func (w *argWriter) do(fn func() error) {
	if w.err == nil {
		w.err = fn()
	}
}

func (w *argWriter) u8(v uint8)   { w.do(func() error { return w.enc.WriteUint8(v) }) }
func (w *argWriter) u16(v uint16) { w.do(func() error { return w.enc.WriteUint16(v, binary.LittleEndian) }) }
func (w *argWriter) u32(v uint32) { w.do(func() error { return w.enc.WriteUint32(v, binary.LittleEndian) }) }
func (w *argWriter) u64(v uint64) { w.do(func() error { return w.enc.WriteUint64(v, binary.LittleEndian) }) }
func (w *argWriter) raw(b []byte) { w.do(func() error { return w.enc.WriteBytes(b, false) }) }
func (w *argWriter) pubkey(p types.Pubkey) {
	w.raw(p[:])
}

func (w *argWriter) boolean(v bool) {
	w.do(func() error { return w.enc.WriteBool(v) })
}

func (w *argWriter) optPubkey(p *types.Pubkey) {
	if p == nil {
		w.u8(0)
		return
	}
	w.u8(1)
	w.pubkey(*p)
}

func (w *argWriter) optString(s *string) {
	if s == nil {
		w.u8(0)
		return
	}
	w.u8(1)
	w.u32(uint32(len(*s)))
	w.raw([]byte(*s))
}

func (w *argWriter) bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.buf.Bytes(), nil
}
