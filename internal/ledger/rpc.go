package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clmm-admin-sol/internal/types"
	"clmm-admin-sol/pkg/logger"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/rpc"
)

type RPCOptions struct {
	Endpoint        string
	RequestTimeout  time.Duration // 单次 RPC 超时
	ConfirmTimeout  time.Duration // 等待确认的总超时
	ConfirmInterval time.Duration // 查询签名状态的间隔
}

func (o *RPCOptions) setDefaults() {
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 10 * time.Second
	}
	if o.ConfirmTimeout <= 0 {
		o.ConfirmTimeout = 60 * time.Second
	}
	if o.ConfirmInterval <= 0 {
		o.ConfirmInterval = 500 * time.Millisecond
	}
}

// RPCLedger 基于 JSON-RPC 的 Ledger 实现
type RPCLedger struct {
	client *client.Client
	opts   RPCOptions
}

func NewRPCLedger(opts RPCOptions) (*RPCLedger, error) {
	if opts.Endpoint == "" {
		return nil, errors.New("rpc endpoint is empty")
	}
	opts.setDefaults()
	c := client.NewClient(opts.Endpoint)
	if c == nil {
		return nil, errors.New("rpc client init failed")
	}
	return &RPCLedger{client: c, opts: opts}, nil
}

func (r *RPCLedger) GetLatestBlockhash(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.RequestTimeout)
	defer cancel()

	resp, err := r.client.GetLatestBlockhash(ctx)
	if err != nil {
		return "", WrapRPCError("getLatestBlockhash", err)
	}
	return resp.Blockhash, nil
}

func (r *RPCLedger) SendTransaction(ctx context.Context, env *Envelope) (string, error) {
	tx, err := env.Sign()
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, r.opts.RequestTimeout)
	defer cancel()

	start := time.Now()
	sig, err := r.client.SendTransaction(ctx, tx)
	if err != nil {
		return "", WrapRPCError("sendTransaction", err)
	}
	logger.Infof("[RPCLedger] 交易已发送: sig=%s, ixs=%d, 耗时=%v", sig, len(env.Instructions), time.Since(start))
	return sig, nil
}

// ConfirmTransaction 轮询签名状态直到 confirmed，链上执行失败时按错误内容分类
func (r *RPCLedger) ConfirmTransaction(ctx context.Context, signature string) error {
	ctx, cancel := context.WithTimeout(ctx, r.opts.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(r.opts.ConfirmInterval)
	defer ticker.Stop()

	for {
		status, err := r.client.GetSignatureStatus(ctx, signature)
		switch {
		case err != nil:
			logger.Warnf("[RPCLedger] 查询签名状态失败: sig=%s, err=%v", signature, err)
		case status == nil:
			// 尚未被节点看到
		case status.Err != nil:
			return WrapRPCError("confirm "+signature, fmt.Errorf("%v", status.Err))
		case status.ConfirmationStatus != nil &&
			(*status.ConfirmationStatus == rpc.CommitmentConfirmed || *status.ConfirmationStatus == rpc.CommitmentFinalized):
			return nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return ctx.Err()
			}
			return fmt.Errorf("%w: sig=%s after %v", ErrConfirmTimeout, signature, r.opts.ConfirmTimeout)
		case <-ticker.C:
		}
	}
}

// Account 账户原始内容
type Account struct {
	Owner    types.Pubkey
	Lamports uint64
	Data     []byte
}

func (r *RPCLedger) GetAccount(ctx context.Context, address types.Pubkey) (*Account, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.RequestTimeout)
	defer cancel()

	info, err := r.client.GetAccountInfo(ctx, address.ToBase58())
	if err != nil {
		return nil, WrapRPCError("getAccountInfo", err)
	}
	// 不存在的账户返回零值
	if info.Lamports == 0 && len(info.Data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, address.ToBase58())
	}
	return &Account{Owner: info.Owner, Lamports: info.Lamports, Data: info.Data}, nil
}

func (r *RPCLedger) GetAccountData(ctx context.Context, address types.Pubkey) ([]byte, error) {
	acc, err := r.GetAccount(ctx, address)
	if err != nil {
		return nil, err
	}
	return acc.Data, nil
}

func (r *RPCLedger) SimulateTransaction(ctx context.Context, env *Envelope) (*Simulation, error) {
	tx, err := env.Sign()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, r.opts.RequestTimeout)
	defer cancel()

	resp, err := r.client.SimulateTransaction(ctx, tx)
	if err != nil {
		return nil, WrapRPCError("simulateTransaction", err)
	}
	out := &Simulation{Logs: resp.Logs}
	if resp.Err != nil {
		out.Err = fmt.Sprintf("%v", resp.Err)
	}
	return out, nil
}
