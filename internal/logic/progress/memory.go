package progress

import (
	"context"
	"sync"

	"clmm-admin-sol/internal/types"
)

type proposalSlot struct {
	multisig types.Pubkey
	index    uint64
}

// MemoryProgressStore 未配置 Redis 时使用，进程重启后从头扫描
type MemoryProgressStore struct {
	mu      sync.Mutex
	states  map[proposalSlot]string
	cursors map[types.Pubkey]uint64
}

func NewMemoryProgressStore() *MemoryProgressStore {
	return &MemoryProgressStore{
		states:  make(map[proposalSlot]string),
		cursors: make(map[types.Pubkey]uint64),
	}
}

func (m *MemoryProgressStore) GetProposalState(_ context.Context, multisig types.Pubkey, index uint64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[proposalSlot{multisig, index}], nil
}

func (m *MemoryProgressStore) MarkProposalState(_ context.Context, multisig types.Pubkey, index uint64, state string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[proposalSlot{multisig, index}] = state
	return nil
}

func (m *MemoryProgressStore) GetCursor(_ context.Context, multisig types.Pubkey) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursors[multisig], nil
}

func (m *MemoryProgressStore) SetCursor(_ context.Context, multisig types.Pubkey, cursor uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursors[multisig] = cursor
	return nil
}
