package bitmap

import (
	"errors"
	"fmt"
)

const (
	TickArraySize       = 60
	TickArrayBitmapSize = 512 // 默认位图正负各 512 个 tick array
	DefaultBitmapWidth  = TickArrayBitmapSize * 2
	MinTick             = -443636
	MaxTick             = 443636
)

var ErrInvalidStartIndex = errors.New("bitmap: invalid tick array start index")

// TickCount 一个 tick array 覆盖的 tick 数
func TickCount(tickSpacing uint16) int32 {
	return int32(tickSpacing) * TickArraySize
}

// TickArrayStartIndex tick 所在 tick array 的起始 tick（向下取整）
func TickArrayStartIndex(tick int32, tickSpacing uint16) int32 {
	n := TickCount(tickSpacing)
	return floorDiv(tick, n) * n
}

// IsValidStartIndex 是否为合法的 tick array 起始位置
func IsValidStartIndex(start int32, tickSpacing uint16) bool {
	if start%TickCount(tickSpacing) != 0 {
		return false
	}
	return start >= TickArrayStartIndex(MinTick, tickSpacing) && start <= TickArrayStartIndex(MaxTick, tickSpacing)
}

// MaxTickInTickArrayBitmap 默认位图能表示的 tick 上界
func MaxTickInTickArrayBitmap(tickSpacing uint16) int32 {
	return TickCount(tickSpacing) * TickArrayBitmapSize
}

// TickRange 默认位图覆盖的 [min, max) 起始区间，两端会被 MinTick/MaxTick 收紧
func TickRange(tickSpacing uint16) (minBoundary, maxBoundary int32) {
	maxBoundary = MaxTickInTickArrayBitmap(tickSpacing)
	minBoundary = -maxBoundary
	if maxBoundary > MaxTick {
		maxBoundary = TickArrayStartIndex(MaxTick, tickSpacing) + TickCount(tickSpacing)
	}
	if minBoundary < MinTick {
		minBoundary = TickArrayStartIndex(MinTick, tickSpacing)
	}
	return minBoundary, maxBoundary
}

// IsOverflowDefaultTickArrayBitmap 任意一个起始位置超出默认位图时返回 true，
// 此时指令需要带上 bitmap extension 账户
func IsOverflowDefaultTickArrayBitmap(tickSpacing uint16, startIndexes ...int32) bool {
	minBoundary, maxBoundary := TickRange(tickSpacing)
	for _, s := range startIndexes {
		if s >= maxBoundary || s < minBoundary {
			return true
		}
	}
	return false
}

// NextInitializedTickArrayStartIndex 在默认位图中沿价格方向查找下一个已初始化的 tick array。
// zeroForOne=true 向小 tick 方向查找。找不到时返回边界值和 false。
func NextInitializedTickArrayStartIndex(bm *Bitmap, lastStartIndex int32, tickSpacing uint16, zeroForOne bool) (int32, bool, error) {
	if bm.Width() != DefaultBitmapWidth {
		return 0, false, fmt.Errorf("bitmap: expect %d-bit pool bitmap, got %d", DefaultBitmapWidth, bm.Width())
	}
	if !IsValidStartIndex(lastStartIndex, tickSpacing) {
		return 0, false, fmt.Errorf("%w: %d (spacing=%d)", ErrInvalidStartIndex, lastStartIndex, tickSpacing)
	}

	boundary := MaxTickInTickArrayBitmap(tickSpacing)
	multiplier := TickCount(tickSpacing)
	next := lastStartIndex + multiplier
	if zeroForOne {
		next = lastStartIndex - multiplier
	}
	if next < -boundary || next >= boundary {
		return lastStartIndex, false, nil
	}

	bitPos := int(floorDiv(next, multiplier) + TickArrayBitmapSize)
	if bitPos < 0 {
		bitPos = -bitPos
	}

	if zeroForOne {
		// 把 bitPos 移到最高位，再找最高的 1
		offset := bm.Shl(DefaultBitmapWidth - bitPos - 1)
		if nextBit, ok := offset.MostSignificantBit(); ok {
			return int32(bitPos-nextBit-TickArrayBitmapSize) * multiplier, true, nil
		}
		return -boundary, false, nil
	}

	offset := bm.Shr(bitPos)
	if nextBit, ok := offset.LeastSignificantBit(); ok {
		return int32(bitPos+nextBit-TickArrayBitmapSize) * multiplier, true, nil
	}
	return boundary - multiplier, false, nil
}

func floorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
