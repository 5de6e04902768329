package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind 错误分类，决定调用方能否重试
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindLedgerState
	KindConflict
	KindTransport
	KindTransactionFailed
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindLedgerState:
		return "ledger-state"
	case KindConflict:
		return "conflict"
	case KindTransport:
		return "transport"
	case KindTransactionFailed:
		return "transaction-failed"
	default:
		return "unknown"
	}
}

// KindError 带分类的哨兵错误，其他包可以用 NewKindError 定义自己的链上状态错误
type KindError struct {
	kind Kind
	msg  string
}

func NewKindError(kind Kind, msg string) *KindError {
	return &KindError{kind: kind, msg: msg}
}

func (e *KindError) Error() string { return e.msg }

func (e *KindError) Kind() Kind { return e.kind }

var (
	ErrAccountNotFound   = NewKindError(KindLedgerState, "ledger: account not found")
	ErrIndexConflict     = NewKindError(KindConflict, "ledger: transaction index already in use")
	ErrTransport         = NewKindError(KindTransport, "ledger: transport error")
	ErrConfirmTimeout    = NewKindError(KindTransport, "ledger: confirmation timed out")
	ErrTransactionFailed = NewKindError(KindTransactionFailed, "ledger: transaction failed")
	ErrMissingSigner     = NewKindError(KindValidation, "ledger: missing signer")
	ErrNoFeePayer        = NewKindError(KindValidation, "ledger: fee payer is required")
)

// Classify 把任意错误归类。没有分类信息的错误都是本地产生的，按 validation 处理。
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var ke *KindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTransport
	}
	return KindValidation
}

// IsRetryable index 冲突与网络错误可以由调用方重试；调用方主动取消的不算
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	switch Classify(err) {
	case KindConflict, KindTransport:
		return true
	default:
		return false
	}
}

// classifyText 按 RPC 返回的错误文本归类。
// 0x7d6 / Custom:2006 是 Squads 交易账户已存在时的错误码。
func classifyText(text string) *KindError {
	switch {
	case strings.Contains(text, "already in use"),
		strings.Contains(text, "0x7d6"),
		strings.Contains(text, "Custom:2006"):
		return ErrIndexConflict
	case strings.Contains(text, "custom program error"),
		strings.Contains(text, "Error processing Instruction"),
		strings.Contains(text, "InstructionError"):
		return ErrTransactionFailed
	default:
		return ErrTransport
	}
}

// WrapRPCError 给 RPC 层返回的原始错误加上分类，已分类的错误原样返回
func WrapRPCError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ke *KindError
	if errors.As(err, &ke) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, classifyText(err.Error()), err)
}
