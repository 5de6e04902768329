package progress

import (
	"context"
	"fmt"

	"clmm-admin-sol/internal/types"
)

// Store 记录 watcher 的进度：每个提案最后一次发布的状态指纹，以及每个 multisig 的扫描游标。
// 状态不存在时返回空字符串，游标不存在时返回 0。
type Store interface {
	GetProposalState(ctx context.Context, multisig types.Pubkey, index uint64) (string, error)
	MarkProposalState(ctx context.Context, multisig types.Pubkey, index uint64, state string) error
	GetCursor(ctx context.Context, multisig types.Pubkey) (uint64, error)
	SetCursor(ctx context.Context, multisig types.Pubkey, cursor uint64) error
}

// ProposalState 一次观察到的提案状态
type ProposalState struct {
	Status    string
	Approved  int
	Rejected  int
	Cancelled int
}

// Fingerprint 状态或任一投票数变化都会改变指纹
func (s ProposalState) Fingerprint() string {
	return fmt.Sprintf("%s:%d:%d:%d", s.Status, s.Approved, s.Rejected, s.Cancelled)
}
