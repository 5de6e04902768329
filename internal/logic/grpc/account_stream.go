package grpc

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"clmm-admin-sol/internal/config"
	"clmm-admin-sol/internal/types"
	"clmm-admin-sol/pkg/logger"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
)

// multisig 与 proposal / vault transaction 账户在 discriminator 之后都以 multisig 地址开头
const multisigFieldOffset = 8

// AccountUpdate 订阅到的账户变化
type AccountUpdate struct {
	Pubkey types.Pubkey
	Owner  types.Pubkey
	Slot   uint64
}

type AccountHandler func(AccountUpdate)

// AccountStreamManager 订阅 multisig 及其提案账户的变化，断线自动重连
type AccountStreamManager struct {
	mu                sync.Mutex                // 互斥锁，保护并发安全
	conn              *grpc.ClientConn          // gRPC 连接对象
	client            pb.GeyserClient           // gRPC 客户端
	stream            pb.Geyser_SubscribeClient // gRPC 订阅流
	stopped           bool                      // 标记是否已经停止
	reconnectAttempts int                       // 已重连次数
	reconnectInterval time.Duration             // 重连基础间隔
	xToken            string                    // 认证用的 x-token
	pingInterval      time.Duration             // Stream 心跳包发送间隔
	idleTimeout       time.Duration             // 超过该时间未收到任何消息则重连
	sendTimeout       time.Duration             // gRPC 发送超时
	connCtx           context.Context           // 当前连接的 context
	connCancel        context.CancelFunc        // 当前连接的 cancel 函数

	programID types.Pubkey
	multisig  types.Pubkey
	handler   AccountHandler
}

func NewAccountStreamManager(conf config.GrpcConfig, programID, multisig types.Pubkey, handler AccountHandler) (*AccountStreamManager, error) {
	if conf.Endpoint == "" {
		return nil, errors.New("grpc endpoint is empty")
	}
	dialCtx, cancel := context.WithTimeout(context.Background(), time.Duration(conf.ConnectTimeoutSec)*time.Second)
	defer cancel()

	callOpts := []grpc.CallOption{}
	if conf.MaxCallSendMsgSize > 0 {
		callOpts = append(callOpts, grpc.MaxCallSendMsgSize(conf.MaxCallSendMsgSize))
	}
	if conf.MaxCallRecvMsgSize > 0 {
		callOpts = append(callOpts, grpc.MaxCallRecvMsgSize(conf.MaxCallRecvMsgSize))
	}
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{})),
		grpc.WithBlock(),
	}
	if len(callOpts) > 0 {
		dialOpts = append(dialOpts, grpc.WithDefaultCallOptions(callOpts...))
	}
	if conf.KeepalivePingIntervalSec > 0 {
		dialOpts = append(dialOpts, grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                time.Duration(conf.KeepalivePingIntervalSec) * time.Second,
			Timeout:             time.Duration(conf.KeepalivePingTimeoutSec) * time.Second,
			PermitWithoutStream: true,
		}))
	}

	conn, err := grpc.DialContext(dialCtx, conf.Endpoint, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	pingInterval := time.Duration(conf.StreamPingIntervalSec) * time.Second
	return &AccountStreamManager{
		conn:              conn,
		client:            pb.NewGeyserClient(conn),
		reconnectInterval: time.Duration(conf.ReconnectIntervalSec) * time.Second,
		xToken:            conf.XToken,
		pingInterval:      pingInterval,
		idleTimeout:       idleTimeout(pingInterval),
		sendTimeout:       time.Duration(conf.SendTimeoutSec) * time.Second,
		programID:         programID,
		multisig:          multisig,
		handler:           handler,
	}, nil
}

// idleTimeout 服务端会回应 ping，连续三个周期没有任何消息视为断流
func idleTimeout(pingInterval time.Duration) time.Duration {
	t := 3 * pingInterval
	if t < 30*time.Second {
		t = 30 * time.Second
	}
	return t
}

func (m *AccountStreamManager) Start() {
	m.mustConnect()
}

func (m *AccountStreamManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopped = true
	if m.connCancel != nil {
		m.connCancel()
		m.connCancel = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
	}
}

// 内部循环直到连接成功
func (m *AccountStreamManager) mustConnect() {
	for {
		m.mu.Lock()
		if m.stopped {
			m.mu.Unlock()
			return
		}
		attempts := m.reconnectAttempts
		m.reconnectAttempts++
		m.mu.Unlock()

		if attempts > 0 {
			if attempts > 3 {
				time.Sleep(m.reconnectInterval * 2)
			} else {
				time.Sleep(m.reconnectInterval)
			}
		}
		logger.Infof("[AccountStream] connecting, attempt %d", attempts+1)
		err := m.connect()
		if err == nil {
			return
		}
		logger.Warnf("[AccountStream] connect failed: %v, will retry", err)
	}
}

// buildSubscribeRequest multisig 账户本身 + 该 multisig 名下的 proposal / vault transaction 账户
func buildSubscribeRequest(programID, multisig types.Pubkey) *pb.SubscribeRequest {
	accounts := map[string]*pb.SubscribeRequestFilterAccounts{
		"multisig": {
			Account: []string{multisig.ToBase58()},
		},
		"proposals": {
			Owner: []string{programID.ToBase58()},
			Filters: []*pb.SubscribeRequestFilterAccountsFilter{
				{
					Filter: &pb.SubscribeRequestFilterAccountsFilter_Memcmp{
						Memcmp: &pb.SubscribeRequestFilterAccountsFilterMemcmp{
							Offset: multisigFieldOffset,
							Data: &pb.SubscribeRequestFilterAccountsFilterMemcmp_Base58{
								Base58: multisig.ToBase58(),
							},
						},
					},
				},
			},
		},
	}
	commitment := pb.CommitmentLevel_CONFIRMED
	return &pb.SubscribeRequest{
		Accounts:   accounts,
		Commitment: &commitment,
	}
}

// connect 只尝试一次连接
func (m *AccountStreamManager) connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return errors.New("manager is stopped")
	}

	// 先关闭旧的 context，优雅退出旧 goroutine
	if m.connCancel != nil {
		m.connCancel()
		m.connCancel = nil
	}
	m.connCtx, m.connCancel = context.WithCancel(context.Background())

	metaCtx := metadata.NewOutgoingContext(
		m.connCtx,
		metadata.New(map[string]string{"x-token": m.xToken}),
	)
	stream, err := m.client.Subscribe(metaCtx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	req := buildSubscribeRequest(m.programID, m.multisig)
	if err := sendWithTimeout(m.connCtx, stream.Send, req, m.sendTimeout); err != nil {
		return fmt.Errorf("send subscribe request: %w", err)
	}

	m.stream = stream
	m.reconnectAttempts = 0
	logger.Infof("[AccountStream] subscribed: multisig=%s", m.multisig.ToBase58())

	go m.pingLoop(m.connCtx, stream)
	go m.recvLoop(m.connCtx, stream)
	return nil
}

func (m *AccountStreamManager) recvLoop(ctx context.Context, stream pb.Geyser_SubscribeClient) {
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		update, err := stream.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				logger.Warnf("[AccountStream] stream closed by server (EOF), will reconnect")
				m.reconnect()
				return
			}
			logger.Warnf("[AccountStream] stream error: %v", err)
			if m.reconnectIfIdle(last) {
				return
			}
			time.Sleep(100 * time.Millisecond)
			continue
		}

		last = time.Now()
		m.dispatch(update)
	}
}

// dispatch 只关心账户更新，ping/pong 仅用于刷新活跃时间
func (m *AccountStreamManager) dispatch(update *pb.SubscribeUpdate) {
	u, ok := update.GetUpdateOneof().(*pb.SubscribeUpdate_Account)
	if !ok || u.Account == nil || u.Account.Account == nil {
		return
	}
	info := u.Account.Account
	var ev AccountUpdate
	if len(info.Pubkey) != 32 {
		logger.Warnf("[AccountStream] unexpected pubkey length %d", len(info.Pubkey))
		return
	}
	copy(ev.Pubkey[:], info.Pubkey)
	if len(info.Owner) == 32 {
		copy(ev.Owner[:], info.Owner)
	}
	ev.Slot = u.Account.Slot
	logger.Debugf("[AccountStream] account updated: %s at slot %d", ev.Pubkey.ToBase58(), ev.Slot)
	if m.handler != nil {
		m.handler(ev)
	}
}

// 带超时的 Send
func sendWithTimeout[T any](ctx context.Context, sendFunc func(T) error, req T, timeout time.Duration) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- sendFunc(req)
	}()

	select {
	case <-timeoutCtx.Done():
		return timeoutCtx.Err()
	case err := <-done:
		return err
	}
}

// 心跳检测
func (m *AccountStreamManager) pingLoop(ctx context.Context, stream pb.Geyser_SubscribeClient) {
	ticker := time.NewTicker(m.pingInterval)
	defer ticker.Stop()
	var id int32
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			id++
			pingReq := &pb.SubscribeRequest{
				Ping: &pb.SubscribeRequestPing{Id: id},
			}
			if err := sendWithTimeout(ctx, stream.Send, pingReq, m.sendTimeout); err != nil {
				// 这里只记录日志，不触发重连
				logger.Warnf("[AccountStream] ping failed: %v", err)
			}
		}
	}
}

func (m *AccountStreamManager) reconnectIfIdle(last time.Time) bool {
	if time.Since(last) > m.idleTimeout {
		logger.Warnf("[AccountStream] %v 未收到任何消息，触发重连", m.idleTimeout)
		m.reconnect()
		return true
	}
	return false
}

func (m *AccountStreamManager) reconnect() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	if m.connCancel != nil {
		m.connCancel()
		m.connCancel = nil
	}
	m.mu.Unlock()

	go m.mustConnect()
}
