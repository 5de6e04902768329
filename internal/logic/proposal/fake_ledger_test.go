package proposal

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"clmm-admin-sol/internal/ledger"
	"clmm-admin-sol/internal/logic/multisig"
	"clmm-admin-sol/internal/types"

	soltypes "github.com/blocto/solana-go-sdk/types"
	bin "github.com/gagliardetto/binary"
)

const testBlockhash = "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N"

// 测试用的 Squads 错误码，0x7d6 与链上 seeds 约束失败一致
const (
	codeSeedsConstraint  = 0x7d6
	codeNotAMember       = 0x1771
	codeUnauthorized     = 0x1772
	codeInvalidStatus    = 0x1773
	codeAlreadyVoted     = 0x1774
	codeStale            = 0x1775
	codeInvalidAccounts  = 0x1776
	codeInvalidIndex     = 0x1777
	codeMissingAccount   = 0x1778
	codeInvalidArguments = 0x1779
)

// fakeLedger 内存账本，按 Squads v4 的规则执行收到的多签指令。
// 一笔交易内的指令全部成功才提交，非 Squads 指令直接忽略。
type fakeLedger struct {
	mu        sync.Mutex
	programID types.Pubkey
	accounts  map[types.Pubkey][]byte
	sigs      map[string]struct{}
	seq       int
	executed  []*multisig.TransactionMessage
	now       int64

	// afterRead 在读取账户并释放锁之后调用，用于构造并发时序
	afterRead func(addr types.Pubkey)
}

func newFakeLedger(programID types.Pubkey) *fakeLedger {
	return &fakeLedger{
		programID: programID,
		accounts:  make(map[types.Pubkey][]byte),
		sigs:      make(map[string]struct{}),
		now:       1_700_000_000,
	}
}

func (f *fakeLedger) put(addr types.Pubkey, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[addr] = data
}

func (f *fakeLedger) remove(addr types.Pubkey) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.accounts, addr)
}

func (f *fakeLedger) executedMessages() []*multisig.TransactionMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*multisig.TransactionMessage(nil), f.executed...)
}

func (f *fakeLedger) GetLatestBlockhash(context.Context) (string, error) {
	return testBlockhash, nil
}

func (f *fakeLedger) GetAccountData(_ context.Context, addr types.Pubkey) ([]byte, error) {
	data, err := f.read(addr)
	if f.afterRead != nil {
		f.afterRead(addr)
	}
	return data, err
}

func (f *fakeLedger) read(addr types.Pubkey) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.accounts[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ledger.ErrAccountNotFound, addr.ToBase58())
	}
	return append([]byte(nil), data...), nil
}

func (f *fakeLedger) SendTransaction(_ context.Context, env *ledger.Envelope) (string, error) {
	if _, err := env.Sign(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	state, executed, err := f.run(env)
	if err != nil {
		return "", ledger.WrapRPCError("sendTransaction", err)
	}
	f.accounts = state
	f.executed = append(f.executed, executed...)
	f.seq++
	sig := fmt.Sprintf("fake-sig-%d", f.seq)
	f.sigs[sig] = struct{}{}
	return sig, nil
}

func (f *fakeLedger) ConfirmTransaction(_ context.Context, sig string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sigs[sig]; !ok {
		return fmt.Errorf("%w: unknown signature %s", ledger.ErrTransport, sig)
	}
	return nil
}

func (f *fakeLedger) SimulateTransaction(_ context.Context, env *ledger.Envelope) (*ledger.Simulation, error) {
	if _, err := env.Sign(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, _, err := f.run(env); err != nil {
		return &ledger.Simulation{Err: err.Error()}, nil
	}
	return &ledger.Simulation{Logs: []string{"Program log: simulated"}}, nil
}

// run 在状态副本上执行，调用方持锁
func (f *fakeLedger) run(env *ledger.Envelope) (map[types.Pubkey][]byte, []*multisig.TransactionMessage, error) {
	state := make(map[types.Pubkey][]byte, len(f.accounts))
	for k, v := range f.accounts {
		state[k] = v
	}
	x := &fakeExec{f: f, state: state}
	for i, ix := range env.AllInstructions() {
		x.ixIndex = i
		if ix.ProgramID != f.programID {
			continue
		}
		if err := x.apply(ix); err != nil {
			return nil, nil, err
		}
	}
	return state, x.executed, nil
}

type fakeExec struct {
	f        *fakeLedger
	state    map[types.Pubkey][]byte
	ixIndex  int
	executed []*multisig.TransactionMessage
}

func (x *fakeExec) fail(code int) error {
	return fmt.Errorf("Transaction simulation failed: Error processing Instruction %d: custom program error: 0x%x", x.ixIndex, code)
}

func (x *fakeExec) alreadyInUse(addr types.Pubkey) error {
	return fmt.Errorf("Allocate: account Address { address: %s, base: None } already in use", addr.ToBase58())
}

func (x *fakeExec) apply(ix soltypes.Instruction) error {
	if len(ix.Data) < 8 {
		return x.fail(codeInvalidArguments)
	}
	args := &argReader{dec: bin.NewBorshDecoder(ix.Data[8:])}
	switch binary.BigEndian.Uint64(ix.Data[:8]) {
	case multisig.DiscMultisigCreateV2:
		return x.multisigCreate(ix, args)
	case multisig.DiscVaultTransactionCreate:
		return x.vaultTransactionCreate(ix, args)
	case multisig.DiscProposalCreate:
		return x.proposalCreate(ix, args)
	case multisig.DiscProposalApprove, multisig.DiscProposalReject, multisig.DiscProposalCancel:
		return x.vote(ix, binary.BigEndian.Uint64(ix.Data[:8]))
	case multisig.DiscVaultTransactionExecute:
		return x.execute(ix)
	default:
		return x.fail(codeInvalidArguments)
	}
}

func (x *fakeExec) loadMultisig(addr types.Pubkey) (*multisig.Multisig, error) {
	data, ok := x.state[addr]
	if !ok {
		return nil, x.fail(codeMissingAccount)
	}
	ms, err := multisig.DecodeMultisig(data)
	if err != nil {
		return nil, x.fail(codeInvalidAccounts)
	}
	return ms, nil
}

func (x *fakeExec) loadProposal(addr types.Pubkey) (*multisig.Proposal, error) {
	data, ok := x.state[addr]
	if !ok {
		return nil, x.fail(codeMissingAccount)
	}
	p, err := multisig.DecodeProposal(data)
	if err != nil {
		return nil, x.fail(codeInvalidAccounts)
	}
	return p, nil
}

func (x *fakeExec) store(addr types.Pubkey, enc interface{ Encode() ([]byte, error) }) error {
	data, err := enc.Encode()
	if err != nil {
		return err
	}
	x.state[addr] = data
	return nil
}

func (x *fakeExec) requirePerm(ms *multisig.Multisig, key types.Pubkey, perm multisig.Permission) error {
	m, ok := ms.Member(key)
	if !ok {
		return x.fail(codeNotAMember)
	}
	if !m.Permissions.Has(perm) {
		return x.fail(codeUnauthorized)
	}
	return nil
}

func (x *fakeExec) multisigCreate(ix soltypes.Instruction, args *argReader) error {
	if len(ix.Accounts) < 6 {
		return x.fail(codeInvalidAccounts)
	}
	msAddr, createKey := ix.Accounts[2].PubKey, ix.Accounts[3].PubKey
	if _, ok := x.state[ix.Accounts[0].PubKey]; !ok {
		return x.fail(codeMissingAccount)
	}
	expected, err := multisig.MultisigPda(x.f.programID, createKey)
	if err != nil || expected.Address != msAddr {
		return x.fail(codeSeedsConstraint)
	}
	if _, ok := x.state[msAddr]; ok {
		return x.alreadyInUse(msAddr)
	}

	ms := &multisig.Multisig{CreateKey: createKey, Bump: expected.Nonce}
	if auth := args.optPubkey(); auth != nil {
		ms.ConfigAuthority = *auth
	}
	ms.Threshold = args.u16()
	n := args.u32()
	for i := uint32(0); i < n && args.err == nil; i++ {
		ms.Members = append(ms.Members, multisig.Member{Key: args.pubkey(), Permissions: multisig.Permissions{Mask: args.u8()}})
	}
	ms.TimeLock = args.u32()
	ms.RentCollector = args.optPubkey()
	if args.err != nil || ms.Threshold == 0 || int(ms.Threshold) > len(ms.Members) {
		return x.fail(codeInvalidArguments)
	}
	return x.store(msAddr, ms)
}

func (x *fakeExec) vaultTransactionCreate(ix soltypes.Instruction, args *argReader) error {
	if len(ix.Accounts) < 5 {
		return x.fail(codeInvalidAccounts)
	}
	msAddr, txAddr, creator := ix.Accounts[0].PubKey, ix.Accounts[1].PubKey, ix.Accounts[2].PubKey
	ms, err := x.loadMultisig(msAddr)
	if err != nil {
		return err
	}
	if err := x.requirePerm(ms, creator, multisig.PermissionInitiate); err != nil {
		return err
	}

	vaultIndex := args.u8()
	ephemeral := args.u8()
	raw := args.bytes(int(args.u32()))
	if args.err != nil {
		return x.fail(codeInvalidArguments)
	}
	msg, err := multisig.DecodeTransactionMessage(raw)
	if err != nil {
		return x.fail(codeInvalidArguments)
	}

	index := ms.TransactionIndex + 1
	expected, err := multisig.TransactionPda(x.f.programID, msAddr, index)
	if err != nil || expected.Address != txAddr {
		return x.fail(codeSeedsConstraint)
	}
	if _, ok := x.state[txAddr]; ok {
		return x.alreadyInUse(txAddr)
	}
	vault, err := multisig.VaultPda(x.f.programID, msAddr, vaultIndex)
	if err != nil {
		return err
	}
	tx := &multisig.VaultTransaction{
		Multisig:   msAddr,
		Creator:    creator,
		Index:      index,
		Bump:       expected.Nonce,
		VaultIndex: vaultIndex,
		VaultBump:  vault.Nonce,
		Message:    msg,
	}
	for i := uint8(0); i < ephemeral; i++ {
		e, err := multisig.EphemeralSignerPda(x.f.programID, txAddr, i)
		if err != nil {
			return err
		}
		tx.EphemeralSignerBumps = append(tx.EphemeralSignerBumps, e.Nonce)
	}
	if err := x.store(txAddr, tx); err != nil {
		return err
	}
	ms.TransactionIndex = index
	return x.store(msAddr, ms)
}

func (x *fakeExec) proposalCreate(ix soltypes.Instruction, args *argReader) error {
	if len(ix.Accounts) < 5 {
		return x.fail(codeInvalidAccounts)
	}
	msAddr, proposalAddr, creator := ix.Accounts[0].PubKey, ix.Accounts[1].PubKey, ix.Accounts[2].PubKey
	ms, err := x.loadMultisig(msAddr)
	if err != nil {
		return err
	}
	if err := x.requirePerm(ms, creator, multisig.PermissionInitiate); err != nil {
		return err
	}
	index := args.u64()
	draft := args.u8() == 1
	if args.err != nil {
		return x.fail(codeInvalidArguments)
	}
	if index == 0 || index > ms.TransactionIndex {
		return x.fail(codeInvalidIndex)
	}
	expected, err := multisig.ProposalPda(x.f.programID, msAddr, index)
	if err != nil || expected.Address != proposalAddr {
		return x.fail(codeSeedsConstraint)
	}
	if _, ok := x.state[proposalAddr]; ok {
		return x.alreadyInUse(proposalAddr)
	}
	status := multisig.ProposalActive
	if draft {
		status = multisig.ProposalDraft
	}
	return x.store(proposalAddr, &multisig.Proposal{
		Multisig:         msAddr,
		TransactionIndex: index,
		Status:           multisig.ProposalStatus{Kind: status, Timestamp: x.f.now},
		Bump:             expected.Nonce,
	})
}

func (x *fakeExec) vote(ix soltypes.Instruction, disc uint64) error {
	if len(ix.Accounts) < 3 {
		return x.fail(codeInvalidAccounts)
	}
	msAddr, member, proposalAddr := ix.Accounts[0].PubKey, ix.Accounts[1].PubKey, ix.Accounts[2].PubKey
	ms, err := x.loadMultisig(msAddr)
	if err != nil {
		return err
	}
	if err := x.requirePerm(ms, member, multisig.PermissionVote); err != nil {
		return err
	}
	p, err := x.loadProposal(proposalAddr)
	if err != nil {
		return err
	}

	switch disc {
	case multisig.DiscProposalApprove, multisig.DiscProposalReject:
		if p.Status.Kind != multisig.ProposalActive {
			return x.fail(codeInvalidStatus)
		}
		if p.TransactionIndex <= ms.StaleTransactionIndex {
			return x.fail(codeStale)
		}
		if disc == multisig.DiscProposalApprove {
			if containsKey(p.Approved, member) {
				return x.fail(codeAlreadyVoted)
			}
			p.Rejected = without(p.Rejected, member)
			p.Approved = append(p.Approved, member)
			if len(p.Approved) >= int(ms.Threshold) {
				p.Status = multisig.ProposalStatus{Kind: multisig.ProposalApproved, Timestamp: x.f.now}
			}
		} else {
			if containsKey(p.Rejected, member) {
				return x.fail(codeAlreadyVoted)
			}
			p.Approved = without(p.Approved, member)
			p.Rejected = append(p.Rejected, member)
			if len(p.Rejected) >= cutoff(ms) {
				p.Status = multisig.ProposalStatus{Kind: multisig.ProposalRejected, Timestamp: x.f.now}
			}
		}
	case multisig.DiscProposalCancel:
		if p.Status.Kind != multisig.ProposalApproved {
			return x.fail(codeInvalidStatus)
		}
		if containsKey(p.Cancelled, member) {
			return x.fail(codeAlreadyVoted)
		}
		p.Cancelled = append(p.Cancelled, member)
		if len(p.Cancelled) >= int(ms.Threshold) {
			p.Status = multisig.ProposalStatus{Kind: multisig.ProposalCancelled, Timestamp: x.f.now}
		}
	}
	return x.store(proposalAddr, p)
}

func (x *fakeExec) execute(ix soltypes.Instruction) error {
	if len(ix.Accounts) < 4 {
		return x.fail(codeInvalidAccounts)
	}
	msAddr, proposalAddr, txAddr, member := ix.Accounts[0].PubKey, ix.Accounts[1].PubKey, ix.Accounts[2].PubKey, ix.Accounts[3].PubKey
	ms, err := x.loadMultisig(msAddr)
	if err != nil {
		return err
	}
	if err := x.requirePerm(ms, member, multisig.PermissionExecute); err != nil {
		return err
	}
	p, err := x.loadProposal(proposalAddr)
	if err != nil {
		return err
	}
	if p.Status.Kind != multisig.ProposalApproved {
		return x.fail(codeInvalidStatus)
	}
	data, ok := x.state[txAddr]
	if !ok {
		return x.fail(codeMissingAccount)
	}
	tx, err := multisig.DecodeVaultTransaction(data)
	if err != nil {
		return x.fail(codeInvalidAccounts)
	}

	remaining := ix.Accounts[4:]
	if len(remaining) != len(tx.Message.AccountKeys) {
		return x.fail(codeInvalidAccounts)
	}
	for i, k := range tx.Message.AccountKeys {
		if remaining[i].PubKey != k || remaining[i].IsWritable != tx.Message.IsWritable(i) {
			return x.fail(codeInvalidAccounts)
		}
	}

	p.Status = multisig.ProposalStatus{Kind: multisig.ProposalExecuted, Timestamp: x.f.now}
	x.executed = append(x.executed, tx.Message)
	return x.store(proposalAddr, p)
}

// cutoff 拒绝票达到该数量后提案不可能再通过
func cutoff(ms *multisig.Multisig) int {
	voters := 0
	for _, m := range ms.Members {
		if m.Permissions.Has(multisig.PermissionVote) {
			voters++
		}
	}
	return voters - int(ms.Threshold) + 1
}

func without(keys []types.Pubkey, k types.Pubkey) []types.Pubkey {
	out := keys[:0:0]
	for _, x := range keys {
		if x != k {
			out = append(out, x)
		}
	}
	return out
}

type argReader struct {
	dec *bin.Decoder
	err error
}

func (r *argReader) do(fn func() error) {
	if r.err == nil {
		r.err = fn()
	}
}

func (r *argReader) u8() (v uint8) {
	r.do(func() (err error) { v, err = r.dec.ReadUint8(); return })
	return
}

func (r *argReader) u16() (v uint16) {
	r.do(func() (err error) { v, err = r.dec.ReadUint16(binary.LittleEndian); return })
	return
}

func (r *argReader) u32() (v uint32) {
	r.do(func() (err error) { v, err = r.dec.ReadUint32(binary.LittleEndian); return })
	return
}

func (r *argReader) u64() (v uint64) {
	r.do(func() (err error) { v, err = r.dec.ReadUint64(binary.LittleEndian); return })
	return
}

func (r *argReader) bytes(n int) (v []byte) {
	r.do(func() (err error) {
		if n < 0 || n > r.dec.Remaining() {
			return errors.New("length out of range")
		}
		v, err = r.dec.ReadNBytes(n)
		return
	})
	return
}

func (r *argReader) pubkey() (p types.Pubkey) {
	copy(p[:], r.bytes(32))
	return
}

func (r *argReader) optPubkey() *types.Pubkey {
	if r.u8() != 1 || r.err != nil {
		return nil
	}
	p := r.pubkey()
	return &p
}
