package ledger

import (
	"context"
	"fmt"

	"clmm-admin-sol/internal/types"

	soltypes "github.com/blocto/solana-go-sdk/types"
)

// Ledger 链上读写的最小接口。实现方负责签名与网络传输，调用方不缓存任何链上状态。
type Ledger interface {
	GetLatestBlockhash(ctx context.Context) (string, error)
	SendTransaction(ctx context.Context, env *Envelope) (string, error)
	ConfirmTransaction(ctx context.Context, signature string) error
	// GetAccountData 账户不存在时返回 ErrAccountNotFound
	GetAccountData(ctx context.Context, address types.Pubkey) ([]byte, error)
	SimulateTransaction(ctx context.Context, env *Envelope) (*Simulation, error)
}

// Signer 签名方，私钥托管不在本模块范围内
type Signer interface {
	PublicKey() types.Pubkey
	Sign(message []byte) ([]byte, error)
}

// Simulation 模拟执行结果，Err 为空表示成功
type Simulation struct {
	Err  string
	Logs []string
}

// Envelope 一笔待签名交易：费用支付方、其余签名方、指令与 blockhash
type Envelope struct {
	FeePayer        Signer
	Signers         []Signer
	Instructions    []soltypes.Instruction
	RecentBlockhash string
	Budget          ComputeBudget
}

// AllInstructions compute budget 指令在前，业务指令在后
func (e *Envelope) AllInstructions() []soltypes.Instruction {
	prefix := e.Budget.Instructions()
	if len(prefix) == 0 {
		return e.Instructions
	}
	return append(prefix, e.Instructions...)
}

// SignerKeys fee payer 在前，去重
func (e *Envelope) SignerKeys() []types.Pubkey {
	keys := make([]types.Pubkey, 0, 1+len(e.Signers))
	seen := make(map[types.Pubkey]struct{}, 1+len(e.Signers))
	add := func(s Signer) {
		if s == nil {
			return
		}
		k := s.PublicKey()
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	add(e.FeePayer)
	for _, s := range e.Signers {
		add(s)
	}
	return keys
}

func (e *Envelope) Message() (soltypes.Message, error) {
	if e.FeePayer == nil {
		return soltypes.Message{}, ErrNoFeePayer
	}
	if e.RecentBlockhash == "" {
		return soltypes.Message{}, fmt.Errorf("%w: recent blockhash is empty", ErrTransport)
	}
	return soltypes.NewMessage(soltypes.NewMessageParam{
		FeePayer:        e.FeePayer.PublicKey(),
		RecentBlockhash: e.RecentBlockhash,
		Instructions:    e.AllInstructions(),
	}), nil
}

// Sign 生成完整签名的交易，缺少任何一个必需签名方都会报 ErrMissingSigner
func (e *Envelope) Sign() (soltypes.Transaction, error) {
	msg, err := e.Message()
	if err != nil {
		return soltypes.Transaction{}, err
	}
	raw, err := msg.Serialize()
	if err != nil {
		return soltypes.Transaction{}, fmt.Errorf("serialize message: %w", err)
	}

	byKey := make(map[types.Pubkey]Signer, 1+len(e.Signers))
	byKey[e.FeePayer.PublicKey()] = e.FeePayer
	for _, s := range e.Signers {
		byKey[s.PublicKey()] = s
	}

	n := int(msg.Header.NumRequireSignatures)
	sigs := make([]soltypes.Signature, n)
	for i := 0; i < n; i++ {
		k := msg.Accounts[i]
		s, ok := byKey[k]
		if !ok {
			return soltypes.Transaction{}, fmt.Errorf("%w: %s", ErrMissingSigner, k.ToBase58())
		}
		sig, err := s.Sign(raw)
		if err != nil {
			return soltypes.Transaction{}, fmt.Errorf("sign with %s: %w", k.ToBase58(), err)
		}
		sigs[i] = sig
	}
	return soltypes.Transaction{Signatures: sigs, Message: msg}, nil
}

// SubmitAndConfirm 取最新 blockhash、发送并等待确认，返回交易签名
func SubmitAndConfirm(ctx context.Context, l Ledger, env *Envelope) (string, error) {
	if env.RecentBlockhash == "" {
		hash, err := l.GetLatestBlockhash(ctx)
		if err != nil {
			return "", err
		}
		env.RecentBlockhash = hash
	}
	sig, err := l.SendTransaction(ctx, env)
	if err != nil {
		return "", err
	}
	if err := l.ConfirmTransaction(ctx, sig); err != nil {
		return sig, err
	}
	return sig, nil
}

// Simulate 只模拟不上链，用于发送前检查
func Simulate(ctx context.Context, l Ledger, env *Envelope) (*Simulation, error) {
	if env.RecentBlockhash == "" {
		hash, err := l.GetLatestBlockhash(ctx)
		if err != nil {
			return nil, err
		}
		env.RecentBlockhash = hash
	}
	return l.SimulateTransaction(ctx, env)
}
