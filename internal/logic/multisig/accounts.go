package multisig

import (
	"encoding/binary"
	"errors"
	"fmt"

	"clmm-admin-sol/internal/types"

	bin "github.com/gagliardetto/binary"
)

var ErrDiscriminatorMismatch = errors.New("multisig: account discriminator mismatch")

type Multisig struct {
	CreateKey             types.Pubkey
	ConfigAuthority       types.Pubkey
	Threshold             uint16
	TimeLock              uint32
	TransactionIndex      uint64
	StaleTransactionIndex uint64
	RentCollector         *types.Pubkey
	Bump                  uint8
	Members               []Member
}

// Member 查找成员，不存在时 ok=false
func (m *Multisig) Member(key types.Pubkey) (Member, bool) {
	for _, mem := range m.Members {
		if mem.Key == key {
			return mem, true
		}
	}
	return Member{}, false
}

type ProposalStatusKind uint8

const (
	ProposalDraft ProposalStatusKind = iota
	ProposalActive
	ProposalRejected
	ProposalApproved
	ProposalExecuting
	ProposalExecuted
	ProposalCancelled
)

func (k ProposalStatusKind) String() string {
	switch k {
	case ProposalDraft:
		return "Draft"
	case ProposalActive:
		return "Active"
	case ProposalRejected:
		return "Rejected"
	case ProposalApproved:
		return "Approved"
	case ProposalExecuting:
		return "Executing"
	case ProposalExecuted:
		return "Executed"
	case ProposalCancelled:
		return "Cancelled"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(k))
	}
}

// ProposalStatus 链上枚举，Executing 没有时间戳
type ProposalStatus struct {
	Kind      ProposalStatusKind
	Timestamp int64
}

type Proposal struct {
	Multisig         types.Pubkey
	TransactionIndex uint64
	Status           ProposalStatus
	Bump             uint8
	Approved         []types.Pubkey
	Rejected         []types.Pubkey
	Cancelled        []types.Pubkey
}

type VaultTransaction struct {
	Multisig             types.Pubkey
	Creator              types.Pubkey
	Index                uint64
	Bump                 uint8
	VaultIndex           uint8
	VaultBump            uint8
	EphemeralSignerBumps []uint8
	Message              *TransactionMessage
}

type ProgramConfig struct {
	Authority           types.Pubkey
	MultisigCreationFee uint64
	Treasury            types.Pubkey
}

func DecodeMultisig(data []byte) (*Multisig, error) {
	dec, err := accountDecoder(data, DiscAccountMultisig)
	if err != nil {
		return nil, err
	}
	r := &reader{dec: dec}
	m := &Multisig{}
	m.CreateKey = r.pubkey()
	m.ConfigAuthority = r.pubkey()
	m.Threshold = r.u16()
	m.TimeLock = r.u32()
	m.TransactionIndex = r.u64()
	m.StaleTransactionIndex = r.u64()
	m.RentCollector = r.optPubkey()
	m.Bump = r.u8()
	n := r.vecLen()
	for i := 0; i < n && r.err == nil; i++ {
		m.Members = append(m.Members, Member{Key: r.pubkey(), Permissions: Permissions{Mask: r.u8()}})
	}
	if r.err != nil {
		return nil, fmt.Errorf("decode multisig: %w", r.err)
	}
	return m, nil
}

func (m *Multisig) Encode() ([]byte, error) {
	w := newArgWriter(DiscAccountMultisig)
	w.pubkey(m.CreateKey)
	w.pubkey(m.ConfigAuthority)
	w.u16(m.Threshold)
	w.u32(m.TimeLock)
	w.u64(m.TransactionIndex)
	w.u64(m.StaleTransactionIndex)
	w.optPubkey(m.RentCollector)
	w.u8(m.Bump)
	w.u32(uint32(len(m.Members)))
	for _, mem := range m.Members {
		w.pubkey(mem.Key)
		w.u8(mem.Permissions.Mask)
	}
	return w.bytes()
}

func DecodeProposal(data []byte) (*Proposal, error) {
	dec, err := accountDecoder(data, DiscAccountProposal)
	if err != nil {
		return nil, err
	}
	r := &reader{dec: dec}
	p := &Proposal{}
	p.Multisig = r.pubkey()
	p.TransactionIndex = r.u64()
	p.Status.Kind = ProposalStatusKind(r.u8())
	if p.Status.Kind > ProposalCancelled && r.err == nil {
		return nil, fmt.Errorf("decode proposal: unknown status variant %d", p.Status.Kind)
	}
	if p.Status.Kind != ProposalExecuting {
		p.Status.Timestamp = r.i64()
	}
	p.Bump = r.u8()
	p.Approved = r.pubkeyVec()
	p.Rejected = r.pubkeyVec()
	p.Cancelled = r.pubkeyVec()
	if r.err != nil {
		return nil, fmt.Errorf("decode proposal: %w", r.err)
	}
	return p, nil
}

func (p *Proposal) Encode() ([]byte, error) {
	w := newArgWriter(DiscAccountProposal)
	w.pubkey(p.Multisig)
	w.u64(p.TransactionIndex)
	w.u8(uint8(p.Status.Kind))
	if p.Status.Kind != ProposalExecuting {
		w.u64(uint64(p.Status.Timestamp))
	}
	w.u8(p.Bump)
	for _, set := range [][]types.Pubkey{p.Approved, p.Rejected, p.Cancelled} {
		w.u32(uint32(len(set)))
		for _, k := range set {
			w.pubkey(k)
		}
	}
	return w.bytes()
}

func DecodeVaultTransaction(data []byte) (*VaultTransaction, error) {
	dec, err := accountDecoder(data, DiscAccountVaultTransaction)
	if err != nil {
		return nil, err
	}
	r := &reader{dec: dec}
	tx := &VaultTransaction{}
	tx.Multisig = r.pubkey()
	tx.Creator = r.pubkey()
	tx.Index = r.u64()
	tx.Bump = r.u8()
	tx.VaultIndex = r.u8()
	tx.VaultBump = r.u8()
	tx.EphemeralSignerBumps = r.bytesVec()
	if r.err != nil {
		return nil, fmt.Errorf("decode vault transaction: %w", r.err)
	}
	msg, err := decodeMessage(dec, borshVecLen)
	if err != nil {
		return nil, fmt.Errorf("decode vault transaction message: %w", err)
	}
	tx.Message = msg
	return tx, nil
}

// Encode 账户内的消息使用 borsh Vec（u32 长度），与 SmallVec 指令参数不同
func (tx *VaultTransaction) Encode() ([]byte, error) {
	w := newArgWriter(DiscAccountVaultTransaction)
	w.pubkey(tx.Multisig)
	w.pubkey(tx.Creator)
	w.u64(tx.Index)
	w.u8(tx.Bump)
	w.u8(tx.VaultIndex)
	w.u8(tx.VaultBump)
	w.u32(uint32(len(tx.EphemeralSignerBumps)))
	w.raw(tx.EphemeralSignerBumps)

	m := tx.Message
	if m == nil {
		return nil, ErrEmptyMessage
	}
	w.u8(m.NumSigners)
	w.u8(m.NumWritableSigners)
	w.u8(m.NumWritableNonSigners)
	w.u32(uint32(len(m.AccountKeys)))
	for _, k := range m.AccountKeys {
		w.pubkey(k)
	}
	w.u32(uint32(len(m.Instructions)))
	for _, ix := range m.Instructions {
		w.u8(ix.ProgramIDIndex)
		w.u32(uint32(len(ix.AccountIndexes)))
		w.raw(ix.AccountIndexes)
		w.u32(uint32(len(ix.Data)))
		w.raw(ix.Data)
	}
	w.u32(uint32(len(m.AddressTableLookups)))
	for _, l := range m.AddressTableLookups {
		w.pubkey(l.AccountKey)
		w.u32(uint32(len(l.WritableIndexes)))
		w.raw(l.WritableIndexes)
		w.u32(uint32(len(l.ReadonlyIndexes)))
		w.raw(l.ReadonlyIndexes)
	}
	return w.bytes()
}

func DecodeProgramConfig(data []byte) (*ProgramConfig, error) {
	dec, err := accountDecoder(data, DiscAccountProgramConfig)
	if err != nil {
		return nil, err
	}
	r := &reader{dec: dec}
	c := &ProgramConfig{
		Authority:           r.pubkey(),
		MultisigCreationFee: r.u64(),
		Treasury:            r.pubkey(),
	}
	if r.err != nil {
		return nil, fmt.Errorf("decode program config: %w", r.err)
	}
	return c, nil
}

func (c *ProgramConfig) Encode() ([]byte, error) {
	w := newArgWriter(DiscAccountProgramConfig)
	w.pubkey(c.Authority)
	w.u64(c.MultisigCreationFee)
	w.pubkey(c.Treasury)
	w.raw(make([]byte, 64))
	return w.bytes()
}

func accountDecoder(data []byte, disc uint64) (*bin.Decoder, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: data too short (%d bytes)", ErrDiscriminatorMismatch, len(data))
	}
	if got := binary.BigEndian.Uint64(data[:8]); got != disc {
		return nil, fmt.Errorf("%w: got %016x, want %016x", ErrDiscriminatorMismatch, got, disc)
	}
	return bin.NewBorshDecoder(data[8:]), nil
}

// reader 顺序读取，记录第一个错误，之后的读取全部返回零值
type reader struct {
	dec *bin.Decoder
	err error
}

func (r *reader) u8() uint8 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint8()
	r.err = err
	return v
}

func (r *reader) u16() uint16 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint16(binary.LittleEndian)
	r.err = err
	return v
}

func (r *reader) u32() uint32 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint32(binary.LittleEndian)
	r.err = err
	return v
}

func (r *reader) u64() uint64 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint64(binary.LittleEndian)
	r.err = err
	return v
}

func (r *reader) i64() int64 {
	return int64(r.u64())
}

func (r *reader) pubkey() types.Pubkey {
	if r.err != nil {
		return types.Pubkey{}
	}
	p, err := readPubkey(r.dec)
	r.err = err
	return p
}

func (r *reader) optPubkey() *types.Pubkey {
	switch r.u8() {
	case 0:
		return nil
	case 1:
		p := r.pubkey()
		if r.err != nil {
			return nil
		}
		return &p
	default:
		if r.err == nil {
			r.err = errors.New("invalid option tag")
		}
		return nil
	}
}

func (r *reader) vecLen() int {
	if r.err != nil {
		return 0
	}
	n, err := borshVecLen(r.dec, false)
	r.err = err
	return n
}

func (r *reader) pubkeyVec() []types.Pubkey {
	n := r.vecLen()
	out := make([]types.Pubkey, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		out = append(out, r.pubkey())
	}
	return out
}

func (r *reader) bytesVec() []uint8 {
	n := r.vecLen()
	if r.err != nil {
		return nil
	}
	if n == 0 {
		return []uint8{}
	}
	b, err := r.dec.ReadNBytes(n)
	r.err = err
	return append([]uint8(nil), b...)
}
