package proposal

import (
	"context"
	"errors"
	"fmt"

	"clmm-admin-sol/internal/ledger"
	"clmm-admin-sol/internal/logic/multisig"
	"clmm-admin-sol/internal/types"
	"clmm-admin-sol/pkg/logger"

	soltypes "github.com/blocto/solana-go-sdk/types"
)

type CreateParams struct {
	Instructions     []soltypes.Instruction
	Creator          ledger.Signer // 需要 Initiate 权限
	FeePayer         ledger.Signer // 支付手续费与租金，为空时使用 Creator
	EphemeralSigners uint8
	Memo             *string
	Draft            bool
}

type CreateResult struct {
	TransactionIndex  uint64
	Transaction       types.Pubkey
	Proposal          types.Pubkey
	CreateSignature   string
	ProposalSignature string
}

// CreateProposal 读取 transactionIndex，以 +1 作为新提案编号。
// 并发创建时后到的一方会得到可重试的 ledger.ErrIndexConflict，这里不做内部重试。
func (o *Orchestrator) CreateProposal(ctx context.Context, p CreateParams) (*CreateResult, error) {
	if len(p.Instructions) == 0 {
		return nil, ErrEmptyInstructions
	}
	if p.Creator == nil {
		return nil, fmt.Errorf("%w: creator is required", ErrUnauthorizedMember)
	}
	feePayer := p.FeePayer
	if feePayer == nil {
		feePayer = p.Creator
	}

	ms, err := o.GetMultisig(ctx)
	if err != nil {
		return nil, err
	}
	creator := p.Creator.PublicKey()
	if err := requireMember(ms, creator, multisig.PermissionInitiate); err != nil {
		return nil, err
	}

	vault, err := o.Vault()
	if err != nil {
		return nil, err
	}
	msg, err := multisig.CompileTransactionMessage(vault, p.Instructions)
	if err != nil {
		return nil, err
	}

	index := ms.TransactionIndex + 1
	createIx, err := o.builder.VaultTransactionCreate(multisig.VaultTransactionCreateParams{
		TransactionIndex: index,
		VaultIndex:       o.vaultIndex,
		EphemeralSigners: p.EphemeralSigners,
		Message:          msg,
		Creator:          creator,
		RentPayer:        feePayer.PublicKey(),
		Memo:             p.Memo,
	})
	if err != nil {
		return nil, err
	}
	proposalIx, err := o.builder.ProposalCreate(index, creator, feePayer.PublicKey(), p.Draft)
	if err != nil {
		return nil, err
	}

	res := &CreateResult{TransactionIndex: index}
	txPda, err := multisig.TransactionPda(o.builder.ProgramID(), o.builder.Multisig(), index)
	if err != nil {
		return nil, err
	}
	proposalPda, err := multisig.ProposalPda(o.builder.ProgramID(), o.builder.Multisig(), index)
	if err != nil {
		return nil, err
	}
	res.Transaction, res.Proposal = txPda.Address, proposalPda.Address

	env := o.envelope(feePayer, p.Creator)
	env.Instructions = append(env.Instructions, createIx)
	res.CreateSignature, err = ledger.SubmitAndConfirm(ctx, o.ledger, env)
	if err != nil {
		return nil, fmt.Errorf("create vault transaction #%d: %w", index, err)
	}
	logger.Infof("[Proposal] vault transaction 已创建: multisig=%s, index=%d, sig=%s",
		o.builder.Multisig().ToBase58(), index, res.CreateSignature)

	env = o.envelope(feePayer, p.Creator)
	env.Instructions = append(env.Instructions, proposalIx)
	res.ProposalSignature, err = ledger.SubmitAndConfirm(ctx, o.ledger, env)
	if err != nil {
		return nil, fmt.Errorf("create proposal #%d: %w", index, err)
	}
	logger.Infof("[Proposal] 提案已创建: index=%d, sig=%s", index, res.ProposalSignature)

	o.publish(ctx, Event{
		Type:             EventProposalCreated,
		TransactionIndex: index,
		Actor:            creator,
		Signature:        res.ProposalSignature,
		Status:           proposalStatusAfterCreate(p.Draft).String(),
		Threshold:        ms.Threshold,
	})
	return res, nil
}

func proposalStatusAfterCreate(draft bool) multisig.ProposalStatusKind {
	if draft {
		return multisig.ProposalDraft
	}
	return multisig.ProposalActive
}

// checkOpen 已执行、已关闭、已过期的提案不能再投票或执行
func checkOpen(ms *multisig.Multisig, p *multisig.Proposal) error {
	switch p.Status.Kind {
	case multisig.ProposalExecuted:
		return fmt.Errorf("%w: #%d", ErrAlreadyExecuted, p.TransactionIndex)
	case multisig.ProposalRejected, multisig.ProposalCancelled:
		return fmt.Errorf("%w: #%d is %s", ErrProposalClosed, p.TransactionIndex, p.Status.Kind)
	}
	if p.TransactionIndex <= ms.StaleTransactionIndex {
		return fmt.Errorf("%w: #%d <= stale index %d", ErrStaleProposal, p.TransactionIndex, ms.StaleTransactionIndex)
	}
	return nil
}

func containsKey(keys []types.Pubkey, k types.Pubkey) bool {
	for _, x := range keys {
		if x == k {
			return true
		}
	}
	return false
}

// errVoteRecorded 成员已投过同样的票，不再重复提交
var errVoteRecorded = errors.New("proposal: vote already recorded")

type vote struct {
	event EventType
	perm  multisig.Permission
	build func(index uint64, member types.Pubkey, memo *string) (soltypes.Instruction, error)
	check func(p *multisig.Proposal, member types.Pubkey) error
}

// Approve 同一成员重复赞成时直接返回空签名，不提交交易。
// 之前投过反对票的成员再赞成，以最新一票为准。
func (o *Orchestrator) Approve(ctx context.Context, index uint64, member, feePayer ledger.Signer, memo *string) (string, error) {
	return o.vote(ctx, index, member, feePayer, memo, vote{
		event: EventApproved,
		perm:  multisig.PermissionVote,
		build: o.builder.ProposalApprove,
		check: func(p *multisig.Proposal, k types.Pubkey) error {
			if containsKey(p.Approved, k) {
				return errVoteRecorded
			}
			if p.Status.Kind != multisig.ProposalActive {
				return fmt.Errorf("%w: #%d is %s", ErrProposalNotActive, p.TransactionIndex, p.Status.Kind)
			}
			return nil
		},
	})
}

// Reject 与 Approve 对称，重复反对同样返回空签名
func (o *Orchestrator) Reject(ctx context.Context, index uint64, member, feePayer ledger.Signer, memo *string) (string, error) {
	return o.vote(ctx, index, member, feePayer, memo, vote{
		event: EventRejected,
		perm:  multisig.PermissionVote,
		build: o.builder.ProposalReject,
		check: func(p *multisig.Proposal, k types.Pubkey) error {
			if containsKey(p.Rejected, k) {
				return errVoteRecorded
			}
			if p.Status.Kind != multisig.ProposalActive {
				return fmt.Errorf("%w: #%d is %s", ErrProposalNotActive, p.TransactionIndex, p.Status.Kind)
			}
			return nil
		},
	})
}

// Cancel 只能取消已通过但尚未执行的提案
func (o *Orchestrator) Cancel(ctx context.Context, index uint64, member, feePayer ledger.Signer, memo *string) (string, error) {
	return o.vote(ctx, index, member, feePayer, memo, vote{
		event: EventCancelled,
		perm:  multisig.PermissionVote,
		build: o.builder.ProposalCancel,
		check: func(p *multisig.Proposal, k types.Pubkey) error {
			if containsKey(p.Cancelled, k) {
				return errVoteRecorded
			}
			if p.Status.Kind != multisig.ProposalApproved {
				return fmt.Errorf("%w: #%d is %s", ErrProposalNotApproved, p.TransactionIndex, p.Status.Kind)
			}
			return nil
		},
	})
}

func (o *Orchestrator) vote(ctx context.Context, index uint64, member, feePayer ledger.Signer, memo *string, v vote) (string, error) {
	if member == nil {
		return "", fmt.Errorf("%w: member is required", ErrUnauthorizedMember)
	}
	if feePayer == nil {
		feePayer = member
	}
	ms, err := o.GetMultisig(ctx)
	if err != nil {
		return "", err
	}
	key := member.PublicKey()
	if err := requireMember(ms, key, v.perm); err != nil {
		return "", err
	}
	p, err := o.GetProposal(ctx, index)
	if err != nil {
		return "", err
	}
	if err := checkOpen(ms, p); err != nil {
		return "", err
	}
	if err := v.check(p, key); err != nil {
		if errors.Is(err, errVoteRecorded) {
			logger.Infof("[Proposal] %s skipped, vote already recorded: index=%d, member=%s", v.event, index, key.ToBase58())
			return "", nil
		}
		return "", err
	}

	ix, err := v.build(index, key, memo)
	if err != nil {
		return "", err
	}
	env := o.envelope(feePayer, member)
	env.Instructions = append(env.Instructions, ix)
	sig, err := ledger.SubmitAndConfirm(ctx, o.ledger, env)
	if err != nil {
		return "", fmt.Errorf("%s #%d: %w", v.event, index, err)
	}
	logger.Infof("[Proposal] %s: index=%d, member=%s, sig=%s", v.event, index, key.ToBase58(), sig)

	ev := Event{Type: v.event, TransactionIndex: index, Actor: key, Signature: sig, Threshold: ms.Threshold}
	if after, err := o.GetProposal(ctx, index); err == nil {
		ev.Status = after.Status.Kind.String()
		ev.Approved, ev.Rejected = len(after.Approved), len(after.Rejected)
	}
	o.publish(ctx, ev)
	return sig, nil
}

// Execute 执行已达到门限的提案。extraSigners 用于消息中除 vault 以外需要签名的账户。
func (o *Orchestrator) Execute(ctx context.Context, index uint64, member, feePayer ledger.Signer, extraSigners []ledger.Signer) (string, error) {
	if member == nil {
		return "", fmt.Errorf("%w: member is required", ErrUnauthorizedMember)
	}
	if feePayer == nil {
		feePayer = member
	}
	ms, err := o.GetMultisig(ctx)
	if err != nil {
		return "", err
	}
	key := member.PublicKey()
	if err := requireMember(ms, key, multisig.PermissionExecute); err != nil {
		return "", err
	}
	p, err := o.GetProposal(ctx, index)
	if err != nil {
		return "", err
	}
	if err := checkOpen(ms, p); err != nil {
		return "", err
	}
	if len(p.Approved) < int(ms.Threshold) {
		return "", fmt.Errorf("%w: #%d has %d/%d", ErrInsufficientApprovals, index, len(p.Approved), ms.Threshold)
	}

	tx, err := o.GetTransaction(ctx, index)
	if err != nil {
		return "", err
	}
	ix, err := o.builder.VaultTransactionExecute(tx, key)
	if err != nil {
		return "", err
	}

	env := o.envelope(feePayer, append([]ledger.Signer{member}, extraSigners...)...)
	env.Instructions = append(env.Instructions, ix)
	sig, err := ledger.SubmitAndConfirm(ctx, o.ledger, env)
	if err != nil {
		return "", fmt.Errorf("execute #%d: %w", index, err)
	}
	logger.Infof("[Proposal] 提案已执行: index=%d, executor=%s, sig=%s", index, key.ToBase58(), sig)

	o.publish(ctx, Event{
		Type:             EventExecuted,
		TransactionIndex: index,
		Actor:            key,
		Signature:        sig,
		Status:           multisig.ProposalExecuted.String(),
		Approved:         len(p.Approved),
		Rejected:         len(p.Rejected),
		Threshold:        ms.Threshold,
	})
	return sig, nil
}
