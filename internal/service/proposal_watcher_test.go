package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"clmm-admin-sol/internal/consts"
	"clmm-admin-sol/internal/ledger"
	"clmm-admin-sol/internal/logic/multisig"
	"clmm-admin-sol/internal/logic/progress"
	"clmm-admin-sol/internal/logic/proposal"
	"clmm-admin-sol/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// accountLedger 只支持读账户的只读账本
type accountLedger struct {
	ledger.Ledger
	mu       sync.Mutex
	accounts map[types.Pubkey][]byte
}

func (l *accountLedger) GetAccountData(_ context.Context, addr types.Pubkey) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	data, ok := l.accounts[addr]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	return data, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []proposal.Event
	err    error
}

func (s *recordingSink) Publish(_ context.Context, ev proposal.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) snapshot() []proposal.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]proposal.Event(nil), s.events...)
}

func (s *recordingSink) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

type watcherEnv struct {
	ledger   *accountLedger
	multisig types.Pubkey
	members  []types.Pubkey
	store    *progress.MemoryProgressStore
	sink     *recordingSink
	watcher  *ProposalWatcher
}

func newWatcherEnv(t *testing.T, opts WatcherOptions) *watcherEnv {
	t.Helper()
	e := &watcherEnv{
		ledger:   &accountLedger{accounts: make(map[types.Pubkey][]byte)},
		multisig: types.Pubkey{0xaa, 0x01},
		members:  []types.Pubkey{{1}, {2}, {3}},
		store:    progress.NewMemoryProgressStore(),
		sink:     &recordingSink{},
	}
	orch := proposal.NewOrchestrator(e.ledger, consts.SquadsProgram, e.multisig)
	e.watcher = NewProposalWatcher(orch, e.store, e.sink, opts)
	e.watcher.now = func() time.Time { return time.Unix(1700000000, 0) }
	return e
}

func (e *watcherEnv) putMultisig(t *testing.T, txIndex, staleIndex uint64) {
	t.Helper()
	ms := &multisig.Multisig{
		Threshold:             2,
		TransactionIndex:      txIndex,
		StaleTransactionIndex: staleIndex,
	}
	for _, m := range e.members {
		ms.Members = append(ms.Members, multisig.Member{Key: m, Permissions: multisig.AllPermissions()})
	}
	data, err := ms.Encode()
	require.NoError(t, err)
	e.ledger.mu.Lock()
	e.ledger.accounts[e.multisig] = data
	e.ledger.mu.Unlock()
}

func (e *watcherEnv) putProposal(t *testing.T, index uint64, kind multisig.ProposalStatusKind, approved int) {
	t.Helper()
	p := &multisig.Proposal{
		Multisig:         e.multisig,
		TransactionIndex: index,
		Status:           multisig.ProposalStatus{Kind: kind, Timestamp: 1},
		Approved:         e.members[:approved],
	}
	data, err := p.Encode()
	require.NoError(t, err)
	addr, err := multisig.ProposalPda(consts.SquadsProgram, e.multisig, index)
	require.NoError(t, err)
	e.ledger.mu.Lock()
	e.ledger.accounts[addr.Address] = data
	e.ledger.mu.Unlock()
}

func (e *watcherEnv) cursor(t *testing.T) uint64 {
	c, err := e.store.GetCursor(context.Background(), e.multisig)
	require.NoError(t, err)
	return c
}

func statuses(evs []proposal.Event) []string {
	out := make([]string, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.Status)
	}
	return out
}

func TestProposalWatcher_PublishesChangesOnce(t *testing.T) {
	ctx := context.Background()
	e := newWatcherEnv(t, WatcherOptions{})
	e.putMultisig(t, 3, 0)
	e.putProposal(t, 1, multisig.ProposalExecuted, 2)
	e.putProposal(t, 2, multisig.ProposalActive, 1)
	e.putProposal(t, 3, multisig.ProposalApproved, 2)

	n, err := e.watcher.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	evs := e.sink.snapshot()
	assert.Equal(t, []string{"Executed", "Active", "Approved"}, statuses(evs), "按提案编号顺序发布")
	assert.Equal(t, proposal.EventStatusChanged, evs[0].Type)
	assert.Equal(t, e.multisig, evs[1].Multisig)
	assert.Equal(t, uint64(2), evs[1].TransactionIndex)
	assert.Equal(t, 1, evs[1].Approved)
	assert.Equal(t, uint16(2), evs[1].Threshold)
	assert.Equal(t, int64(1700000000), evs[1].Timestamp)
	assert.Equal(t, uint64(2), e.cursor(t), "游标停在第一个未结束的提案")

	// 无变化不重复发布
	n, err = e.watcher.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// 投票数变化也发布
	e.putProposal(t, 2, multisig.ProposalActive, 2)
	n, err = e.watcher.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	last := e.sink.snapshot()[3]
	assert.Equal(t, uint64(2), last.TransactionIndex)
	assert.Equal(t, 2, last.Approved)

	e.putProposal(t, 2, multisig.ProposalExecuted, 2)
	e.putProposal(t, 3, multisig.ProposalCancelled, 2)
	n, err = e.watcher.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, uint64(4), e.cursor(t))

	n, err = e.watcher.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "游标越过最新提案后不再读取")
}

func TestProposalWatcher_StaleAndMissing(t *testing.T) {
	ctx := context.Background()
	e := newWatcherEnv(t, WatcherOptions{})
	e.putMultisig(t, 4, 2)
	// #1 已关闭（缺失），#2 stale 且仍为 Active，#3 缺失（可能仍在创建中），#4 Active
	e.putProposal(t, 2, multisig.ProposalActive, 1)
	e.putProposal(t, 4, multisig.ProposalActive, 0)

	n, err := e.watcher.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"Stale", "Active"}, statuses(e.sink.snapshot()))
	assert.Equal(t, uint64(3), e.cursor(t), "stale 之后的缺失提案阻止游标前进")
}

func TestProposalWatcher_SinkFailureRetries(t *testing.T) {
	ctx := context.Background()
	e := newWatcherEnv(t, WatcherOptions{})
	e.putMultisig(t, 1, 0)
	e.putProposal(t, 1, multisig.ProposalRejected, 0)

	e.sink.setErr(errors.New("kafka down"))
	n, err := e.watcher.Poll(ctx)
	require.NoError(t, err, "投递失败只记录日志")
	assert.Zero(t, n)
	assert.Equal(t, uint64(1), e.cursor(t))

	state, err := e.store.GetProposalState(ctx, e.multisig, 1)
	require.NoError(t, err)
	assert.Empty(t, state, "投递失败时不记录状态")

	e.sink.setErr(nil)
	n, err = e.watcher.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"Rejected"}, statuses(e.sink.snapshot()))
	assert.Equal(t, uint64(2), e.cursor(t))
}

func TestProposalWatcher_ScanWindow(t *testing.T) {
	ctx := context.Background()
	e := newWatcherEnv(t, WatcherOptions{ScanWindow: 2, Workers: 2})
	e.putMultisig(t, 5, 0)
	for i := uint64(1); i <= 5; i++ {
		e.putProposal(t, i, multisig.ProposalActive, 0)
	}

	n, err := e.watcher.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	evs := e.sink.snapshot()
	assert.Equal(t, uint64(4), evs[0].TransactionIndex)
	assert.Equal(t, uint64(5), evs[1].TransactionIndex)
	assert.Equal(t, uint64(4), e.cursor(t))
}

func TestProposalWatcher_MissingMultisig(t *testing.T) {
	e := newWatcherEnv(t, WatcherOptions{})
	_, err := e.watcher.Poll(context.Background())
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestProposalWatcher_StartTriggerStop(t *testing.T) {
	e := newWatcherEnv(t, WatcherOptions{PollInterval: time.Hour})
	e.putMultisig(t, 1, 0)
	e.putProposal(t, 1, multisig.ProposalActive, 0)

	done := make(chan struct{})
	go func() {
		e.watcher.Start()
		close(done)
	}()

	require.Eventually(t, func() bool { return len(e.sink.snapshot()) == 1 }, time.Second, 5*time.Millisecond, "启动时立即扫描")

	e.putProposal(t, 1, multisig.ProposalApproved, 2)
	e.watcher.Trigger()
	e.watcher.Trigger() // 合并，不阻塞
	require.Eventually(t, func() bool { return len(e.sink.snapshot()) == 2 }, time.Second, 5*time.Millisecond, "触发后立即扫描")

	e.watcher.Stop()
	e.watcher.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop 后 Start 未返回")
	}
}
