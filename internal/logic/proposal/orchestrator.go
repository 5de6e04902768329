package proposal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clmm-admin-sol/internal/consts"
	"clmm-admin-sol/internal/ledger"
	"clmm-admin-sol/internal/logic/clmm"
	"clmm-admin-sol/internal/logic/multisig"
	"clmm-admin-sol/internal/types"
	"clmm-admin-sol/pkg/logger"
)

// InstructionNamer 根据指令数据识别指令名
type InstructionNamer func(data []byte) (string, bool)

// Orchestrator 驱动一个多签账户上的提案流程：创建 -> 投票 -> 执行。
// 每次调用都重新读取链上状态，不做缓存。
type Orchestrator struct {
	ledger     ledger.Ledger
	builder    *multisig.Builder
	vaultIndex uint8
	sink       EventSink
	budget     ledger.ComputeBudget
	namers     map[types.Pubkey]InstructionNamer
	now        func() time.Time
}

type Option func(*Orchestrator)

func WithVaultIndex(i uint8) Option {
	return func(o *Orchestrator) { o.vaultIndex = i }
}

func WithEventSink(s EventSink) Option {
	return func(o *Orchestrator) { o.sink = s }
}

func WithComputeBudget(b ledger.ComputeBudget) Option {
	return func(o *Orchestrator) { o.budget = b }
}

// WithInstructionNamer 注册额外的程序指令识别，ParseInstructions 使用
func WithInstructionNamer(programID types.Pubkey, fn InstructionNamer) Option {
	return func(o *Orchestrator) { o.namers[programID] = fn }
}

func NewOrchestrator(l ledger.Ledger, programID, multisigAddr types.Pubkey, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		ledger:  l,
		builder: multisig.NewBuilder(programID, multisigAddr),
		namers: map[types.Pubkey]InstructionNamer{
			consts.ClmmProgram: clmm.InstructionName,
			programID:          multisig.InstructionName,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) Multisig() types.Pubkey {
	return o.builder.Multisig()
}

func (o *Orchestrator) ProgramID() types.Pubkey {
	return o.builder.ProgramID()
}

// Vault 提案中指令的执行身份
func (o *Orchestrator) Vault() (types.Pubkey, error) {
	v, err := multisig.VaultPda(o.builder.ProgramID(), o.builder.Multisig(), o.vaultIndex)
	if err != nil {
		return types.Pubkey{}, err
	}
	return v.Address, nil
}

func (o *Orchestrator) GetMultisig(ctx context.Context) (*multisig.Multisig, error) {
	data, err := o.ledger.GetAccountData(ctx, o.builder.Multisig())
	if err != nil {
		return nil, fmt.Errorf("load multisig %s: %w", o.builder.Multisig().ToBase58(), err)
	}
	return multisig.DecodeMultisig(data)
}

func (o *Orchestrator) GetProposal(ctx context.Context, index uint64) (*multisig.Proposal, error) {
	addr, err := multisig.ProposalPda(o.builder.ProgramID(), o.builder.Multisig(), index)
	if err != nil {
		return nil, err
	}
	data, err := o.ledger.GetAccountData(ctx, addr.Address)
	if err != nil {
		return nil, fmt.Errorf("load proposal #%d: %w", index, err)
	}
	return multisig.DecodeProposal(data)
}

func (o *Orchestrator) GetTransaction(ctx context.Context, index uint64) (*multisig.VaultTransaction, error) {
	addr, err := multisig.TransactionPda(o.builder.ProgramID(), o.builder.Multisig(), index)
	if err != nil {
		return nil, err
	}
	data, err := o.ledger.GetAccountData(ctx, addr.Address)
	if err != nil {
		return nil, fmt.Errorf("load vault transaction #%d: %w", index, err)
	}
	return multisig.DecodeVaultTransaction(data)
}

// GetProposals 按 1..transactionIndex 顺序读取，不存在（未创建或已关闭）的跳过
func (o *Orchestrator) GetProposals(ctx context.Context) ([]*multisig.Proposal, error) {
	ms, err := o.GetMultisig(ctx)
	if err != nil {
		return nil, err
	}
	return o.proposalsInRange(ctx, 1, ms.TransactionIndex)
}

func (o *Orchestrator) proposalsInRange(ctx context.Context, from, to uint64) ([]*multisig.Proposal, error) {
	var out []*multisig.Proposal
	for i := from; i <= to && i >= from; i++ {
		p, err := o.GetProposal(ctx, i)
		if errors.Is(err, ledger.ErrAccountNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (o *Orchestrator) publish(ctx context.Context, ev Event) {
	if o.sink == nil {
		return
	}
	ev.Multisig = o.builder.Multisig()
	if ev.Timestamp == 0 {
		ev.Timestamp = o.now().Unix()
	}
	if err := o.sink.Publish(ctx, ev); err != nil {
		logger.Warnf("[Proposal] 事件投递失败: type=%s, index=%d, err=%v", ev.Type, ev.TransactionIndex, err)
	}
}

func (o *Orchestrator) envelope(feePayer ledger.Signer, signers ...ledger.Signer) *ledger.Envelope {
	return &ledger.Envelope{FeePayer: feePayer, Signers: signers, Budget: o.budget}
}

// requireMember 校验 signer 是拥有 perm 权限的成员
func requireMember(ms *multisig.Multisig, key types.Pubkey, perm multisig.Permission) error {
	m, ok := ms.Member(key)
	if !ok || !m.Permissions.Has(perm) {
		return fmt.Errorf("%w: %s lacks %s", ErrUnauthorizedMember, key.ToBase58(), multisig.NewPermissions(perm))
	}
	return nil
}
