package bitmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickArrayStartIndex(t *testing.T) {
	cases := []struct {
		tick    int32
		spacing uint16
		want    int32
	}{
		{100, 10, 0},
		{600, 10, 600},
		{-1, 10, -600},
		{-600, 10, -600},
		{-601, 10, -1200},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, TickArrayStartIndex(c.tick, c.spacing), "tick=%d spacing=%d", c.tick, c.spacing)
	}
}

func TestIsOverflowDefaultTickArrayBitmap(t *testing.T) {
	assert.Equal(t, int32(30720), MaxTickInTickArrayBitmap(1))

	assert.False(t, IsOverflowDefaultTickArrayBitmap(1, -30720, 30660))
	assert.True(t, IsOverflowDefaultTickArrayBitmap(1, 30720))
	assert.True(t, IsOverflowDefaultTickArrayBitmap(1, 0, -30780))

	// spacing=60 时边界被 MaxTick 收紧
	minB, maxB := TickRange(60)
	assert.Equal(t, int32(-446400), minB)
	assert.Equal(t, int32(446400), maxB)
	assert.False(t, IsOverflowDefaultTickArrayBitmap(60, 442800, -446400))
	assert.True(t, IsOverflowDefaultTickArrayBitmap(60, 446400))
}

func TestNextInitializedTickArrayStartIndex(t *testing.T) {
	bm := New(DefaultBitmapWidth).SetBit(510).SetBit(512).SetBit(515) // -120, 0, 180

	next, ok, err := NextInitializedTickArrayStartIndex(bm, 0, 1, false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int32(180), next)

	next, ok, err = NextInitializedTickArrayStartIndex(bm, 180, 1, true)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int32(0), next)

	next, ok, err = NextInitializedTickArrayStartIndex(bm, 0, 1, true)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int32(-120), next)
}

func TestNextInitializedTickArrayStartIndex_Boundary(t *testing.T) {
	empty := New(DefaultBitmapWidth)

	next, ok, err := NextInitializedTickArrayStartIndex(empty, 0, 1, false)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int32(30660), next)

	next, ok, err = NextInitializedTickArrayStartIndex(empty, 30660, 1, false)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int32(30660), next, "越界时返回原起始位置")

	_, _, err = NextInitializedTickArrayStartIndex(empty, 7, 1, false)
	assert.ErrorIs(t, err, ErrInvalidStartIndex)

	_, _, err = NextInitializedTickArrayStartIndex(New(64), 0, 1, false)
	assert.Error(t, err)
}
