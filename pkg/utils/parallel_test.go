package utils

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallelMap(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		var emptyInput []int
		result := ParallelMap(emptyInput, 4, func(i int) int { return i * 2 })
		assert.Empty(t, result)
	})

	t.Run("single input", func(t *testing.T) {
		result := ParallelMap([]int{42}, 4, func(i int) int { return i * 2 })
		assert.Equal(t, []int{84}, result)
	})

	t.Run("multiple inputs with order", func(t *testing.T) {
		input := []int{1, 2, 3, 4, 5}
		result := ParallelMap(input, 3, func(i int) int {
			// 越靠前的元素越晚完成，检验结果顺序与完成顺序无关
			time.Sleep(time.Duration(6-i) * 5 * time.Millisecond)
			return i * 2
		})
		assert.Equal(t, []int{2, 4, 6, 8, 10}, result)
	})

	t.Run("concurrency bounded by workers", func(t *testing.T) {
		input := make([]int, 40)
		for i := range input {
			input[i] = i
		}

		var maxConcurrent, currentConcurrent int32
		result := ParallelMap(input, 4, func(i int) int {
			current := atomic.AddInt32(&currentConcurrent, 1)
			for {
				m := atomic.LoadInt32(&maxConcurrent)
				if current <= m || atomic.CompareAndSwapInt32(&maxConcurrent, m, current) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&currentConcurrent, -1)
			return i * i
		})

		require.Len(t, result, len(input))
		for i, v := range result {
			assert.Equal(t, i*i, v)
		}
		assert.LessOrEqual(t, maxConcurrent, int32(4), "并发数不应超过 workers")
		assert.GreaterOrEqual(t, maxConcurrent, int32(1))
	})
}

func TestPartitionHashBytes(t *testing.T) {
	key := make([]byte, 32)
	key[7], key[15], key[19], key[27] = 1, 2, 3, 0x0b

	assert.Equal(t, uint32(0), PartitionHashBytes(key, 1))
	assert.Equal(t, uint32(0), PartitionHashBytes(key[:20], 8), "长度不足时固定分区 0")
	assert.Equal(t, uint32(0x0b&7), PartitionHashBytes(key, 8))

	hash := uint32(1)<<24 | uint32(2)<<16 | uint32(3)<<8 | 0x0b
	assert.Equal(t, hash%6, PartitionHashBytes(key, 6))
}
