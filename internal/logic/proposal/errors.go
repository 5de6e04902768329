package proposal

import (
	"errors"

	"clmm-admin-sol/internal/ledger"
)

// 链上状态不满足操作条件，重试不会改变结果
var (
	ErrInsufficientApprovals = ledger.NewKindError(ledger.KindLedgerState, "proposal: insufficient approvals")
	ErrAlreadyExecuted       = ledger.NewKindError(ledger.KindLedgerState, "proposal: already executed")
	ErrStaleProposal         = ledger.NewKindError(ledger.KindLedgerState, "proposal: stale")
	ErrProposalClosed        = ledger.NewKindError(ledger.KindLedgerState, "proposal: rejected or cancelled")
	ErrProposalNotActive     = ledger.NewKindError(ledger.KindLedgerState, "proposal: not active")
	ErrProposalNotApproved   = ledger.NewKindError(ledger.KindLedgerState, "proposal: not approved")
)

// 本地校验
var (
	ErrUnauthorizedMember = errors.New("proposal: signer is not a member with the required permission")
	ErrEmptyInstructions  = errors.New("proposal: no instructions to propose")
)
