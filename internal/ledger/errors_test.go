package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapRPCError(t *testing.T) {
	cases := []struct {
		msg       string
		want      error
		kind      Kind
		retryable bool
	}{
		{"Allocate: account Address { address: 9x.., base: None } already in use", ErrIndexConflict, KindConflict, true},
		{"Transaction simulation failed: Error processing Instruction 1: custom program error: 0x7d6", ErrIndexConflict, KindConflict, true},
		{"map[InstructionError:[1 map[Custom:2006]]]", ErrIndexConflict, KindConflict, true},
		{"Transaction simulation failed: Error processing Instruction 0: custom program error: 0x1771", ErrTransactionFailed, KindTransactionFailed, false},
		{"map[InstructionError:[0 map[Custom:6001]]]", ErrTransactionFailed, KindTransactionFailed, false},
		{"dial tcp 127.0.0.1:8899: connect: connection refused", ErrTransport, KindTransport, true},
	}
	for _, c := range cases {
		err := WrapRPCError("sendTransaction", errors.New(c.msg))
		assert.ErrorIs(t, err, c.want, c.msg)
		assert.Equal(t, c.kind, Classify(err), c.msg)
		assert.Equal(t, c.retryable, IsRetryable(err), c.msg)
		assert.Contains(t, err.Error(), c.msg, "原始错误信息需要保留")
	}

	assert.NoError(t, WrapRPCError("x", nil))

	wrapped := fmt.Errorf("outer: %w", ErrAccountNotFound)
	assert.Same(t, wrapped, WrapRPCError("x", wrapped), "已分类错误原样返回")
}

func TestClassify(t *testing.T) {
	assert.Equal(t, KindUnknown, Classify(nil))
	assert.Equal(t, KindValidation, Classify(errors.New("clmm: incomplete accounts")))
	assert.Equal(t, KindLedgerState, Classify(fmt.Errorf("load: %w", ErrAccountNotFound)))
	assert.Equal(t, KindTransport, Classify(ErrConfirmTimeout))
	assert.True(t, IsRetryable(ErrConfirmTimeout))

	assert.Equal(t, KindTransport, Classify(context.DeadlineExceeded))
	assert.True(t, IsRetryable(fmt.Errorf("x: %w", context.DeadlineExceeded)))
	assert.False(t, IsRetryable(context.Canceled), "调用方取消不应重试")

	custom := NewKindError(KindLedgerState, "proposal: stale")
	assert.Equal(t, KindLedgerState, Classify(fmt.Errorf("execute #3: %w", custom)))
	assert.False(t, IsRetryable(custom))
	assert.Equal(t, "ledger-state", Classify(custom).String())
}
