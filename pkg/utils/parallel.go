package utils

import "sync"

// ParallelMap 以最多 workers 个协程并发执行 fn，结果顺序与输入一致。
// 输入为空或只有一个元素时直接在当前协程执行。
func ParallelMap[T any, R any](input []T, workers int, fn func(T) R) []R {
	result := make([]R, len(input))
	if len(input) == 0 {
		return result
	}
	if len(input) == 1 || workers <= 1 {
		for i, v := range input {
			result[i] = fn(v)
		}
		return result
	}
	if workers > len(input) {
		workers = len(input)
	}

	indexes := make(chan int, len(input))
	for i := range input {
		indexes <- i
	}
	close(indexes)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range indexes {
				result[i] = fn(input[i]) // 每个下标只由一个协程写入
			}
		}()
	}
	wg.Wait()
	return result
}
