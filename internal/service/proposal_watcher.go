package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"clmm-admin-sol/internal/ledger"
	"clmm-admin-sol/internal/logic/multisig"
	"clmm-admin-sol/internal/logic/progress"
	"clmm-admin-sol/internal/logic/proposal"
	"clmm-admin-sol/pkg/logger"
	"clmm-admin-sol/pkg/utils"
)

const (
	statusStale       = "Stale"
	defaultPollPeriod = 10 * time.Second
	defaultWorkers    = 4
	pollTimeout       = 30 * time.Second
)

type WatcherOptions struct {
	PollInterval time.Duration
	ScanWindow   uint64 // 每轮最多回看的提案数量，0 表示不限制
	Workers      int    // 并发读取提案的协程数
}

// ProposalWatcher 周期性扫描 multisig 的提案，把状态或投票变化发布为 proposal_status_changed 事件。
// 已发布的状态指纹与扫描游标记录在 progress.Store 中，重启后不会重复发布。
type ProposalWatcher struct {
	orch     *proposal.Orchestrator
	store    progress.Store
	sink     proposal.EventSink
	interval time.Duration
	window   uint64
	workers  int
	now      func() time.Time

	trigger  chan struct{}
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewProposalWatcher(orch *proposal.Orchestrator, store progress.Store, sink proposal.EventSink, opts WatcherOptions) *ProposalWatcher {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollPeriod
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	return &ProposalWatcher{
		orch:     orch,
		store:    store,
		sink:     sink,
		interval: opts.PollInterval,
		window:   opts.ScanWindow,
		workers:  opts.Workers,
		now:      time.Now,
		trigger:  make(chan struct{}, 1),
		stopChan: make(chan struct{}),
	}
}

// Start 阻塞运行直到 Stop，启动时立即扫描一次
func (w *ProposalWatcher) Start() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.pollOnce()
	for {
		select {
		case <-ticker.C:
			w.pollOnce()
		case <-w.trigger:
			w.pollOnce()
		case <-w.stopChan:
			return
		}
	}
}

func (w *ProposalWatcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
}

// Trigger 请求尽快扫描一次，不阻塞；积压的请求合并为一次
func (w *ProposalWatcher) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

func (w *ProposalWatcher) pollOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[ProposalWatcher] panic: %v", r)
		}
	}()

	n, err := w.Poll(ctx)
	if err != nil {
		logger.Warnf("[ProposalWatcher] 扫描失败: %v", err)
		return
	}
	if n > 0 {
		logger.Infof("[ProposalWatcher] 本轮发布 %d 条状态变化", n)
	}
}

type fetchedProposal struct {
	index    uint64
	proposal *multisig.Proposal
	err      error
}

// Poll 扫描一轮，返回发布的事件数。
// 游标之前的提案都已处于终态；游标只在连续的终态提案上前进。
func (w *ProposalWatcher) Poll(ctx context.Context) (int, error) {
	ms, err := w.orch.GetMultisig(ctx)
	if err != nil {
		return 0, err
	}
	msAddr := w.orch.Multisig()

	cursor, err := w.store.GetCursor(ctx, msAddr)
	if err != nil {
		return 0, err
	}
	from := w.scanFrom(cursor, ms.TransactionIndex)
	if from > ms.TransactionIndex {
		return 0, nil
	}

	indexes := make([]uint64, 0, ms.TransactionIndex-from+1)
	for i := from; i <= ms.TransactionIndex; i++ {
		indexes = append(indexes, i)
	}
	fetched := utils.ParallelMap(indexes, w.workers, func(i uint64) fetchedProposal {
		p, err := w.orch.GetProposal(ctx, i)
		return fetchedProposal{index: i, proposal: p, err: err}
	})

	published := 0
	next := from
	advancing := true
	var pollErr error
	for _, f := range fetched {
		done, n, err := w.observe(ctx, ms, f)
		if err != nil {
			pollErr = err
			break
		}
		published += n
		if advancing && done {
			next = f.index + 1
		} else {
			advancing = false
		}
	}

	if next != cursor {
		if err := w.store.SetCursor(ctx, msAddr, next); err != nil && pollErr == nil {
			pollErr = err
		}
	}
	return published, pollErr
}

func (w *ProposalWatcher) scanFrom(cursor, latest uint64) uint64 {
	from := cursor
	if from == 0 {
		from = 1
	}
	if w.window > 0 && latest >= w.window && latest-w.window+1 > from {
		from = latest - w.window + 1
	}
	return from
}

// observe 处理单个提案，done 表示该提案已处于终态且状态已记录
func (w *ProposalWatcher) observe(ctx context.Context, ms *multisig.Multisig, f fetchedProposal) (done bool, published int, err error) {
	if errors.Is(f.err, ledger.ErrAccountNotFound) {
		// 尚未创建或已关闭；stale 之前的缺失提案不会再出现
		return f.index <= ms.StaleTransactionIndex, 0, nil
	}
	if f.err != nil {
		return false, 0, f.err
	}

	state, terminal := stateOf(ms, f.proposal)
	fp := state.Fingerprint()
	msAddr := w.orch.Multisig()

	prev, err := w.store.GetProposalState(ctx, msAddr, f.index)
	if err != nil {
		return false, 0, err
	}
	if prev == fp {
		return terminal, 0, nil
	}

	if w.sink != nil {
		ev := proposal.Event{
			Type:             proposal.EventStatusChanged,
			Multisig:         msAddr,
			TransactionIndex: f.index,
			Status:           state.Status,
			Approved:         state.Approved,
			Rejected:         state.Rejected,
			Threshold:        ms.Threshold,
			Timestamp:        w.now().Unix(),
		}
		if err := w.sink.Publish(ctx, ev); err != nil {
			// 不记录状态，下一轮重试
			logger.Warnf("[ProposalWatcher] 事件投递失败: index=%d, err=%v", f.index, err)
			return false, 0, nil
		}
	}
	if err := w.store.MarkProposalState(ctx, msAddr, f.index, fp); err != nil {
		return false, 1, err
	}
	logger.Infof("[ProposalWatcher] 提案 #%d 状态变化: %q -> %q", f.index, prev, fp)
	return terminal, 1, nil
}

// stateOf 计算对外可见的状态；stale 且未结束的提案视为终态 Stale
func stateOf(ms *multisig.Multisig, p *multisig.Proposal) (progress.ProposalState, bool) {
	state := progress.ProposalState{
		Status:    p.Status.Kind.String(),
		Approved:  len(p.Approved),
		Rejected:  len(p.Rejected),
		Cancelled: len(p.Cancelled),
	}
	switch p.Status.Kind {
	case multisig.ProposalExecuted, multisig.ProposalRejected, multisig.ProposalCancelled:
		return state, true
	}
	if p.TransactionIndex <= ms.StaleTransactionIndex {
		state.Status = statusStale
		return state, true
	}
	return state, false
}
