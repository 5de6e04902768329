package proposal

import (
	"context"

	"clmm-admin-sol/internal/types"
)

type EventType string

const (
	EventProposalCreated EventType = "proposal_created"
	EventApproved        EventType = "proposal_approved"
	EventRejected        EventType = "proposal_rejected"
	EventCancelled       EventType = "proposal_cancelled"
	EventExecuted        EventType = "proposal_executed"
	EventStatusChanged   EventType = "proposal_status_changed" // watcher 观察到的状态变化
	EventMultisigCreated EventType = "multisig_created"
)

// Event 提案生命周期事件，只在链上确认之后发布
type Event struct {
	Type             EventType
	Multisig         types.Pubkey
	TransactionIndex uint64
	Actor            types.Pubkey // 发起操作的成员，watcher 事件为空
	Signature        string
	Status           string
	Approved         int
	Rejected         int
	Threshold        uint16
	Timestamp        int64
}

// EventSink 事件投递，失败只记录日志，不影响已确认的链上操作
type EventSink interface {
	Publish(ctx context.Context, ev Event) error
}

// EventSinkFunc 便于测试和简单场景
type EventSinkFunc func(ctx context.Context, ev Event) error

func (f EventSinkFunc) Publish(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}
