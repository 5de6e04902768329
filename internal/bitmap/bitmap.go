package bitmap

import (
	"fmt"
	"math/big"
)

// Bitmap 固定宽度位图，所有扫描只看低 width 位
type Bitmap struct {
	width int
	v     *big.Int
}

// New 创建全 0 位图
func New(width int) *Bitmap {
	if width <= 0 {
		panic(fmt.Sprintf("bitmap: invalid width %d", width))
	}
	return &Bitmap{width: width, v: new(big.Int)}
}

// FromBig 以 v 的低 width 位构造位图（v 不会被修改）
func FromBig(width int, v *big.Int) *Bitmap {
	b := New(width)
	if v != nil {
		b.v.Set(v)
		b.truncate()
	}
	return b
}

func FromUint64(width int, v uint64) *Bitmap {
	return FromBig(width, new(big.Int).SetUint64(v))
}

// FromWords 小端 u64 数组（链上 [u64; N] 位图布局）
func FromWords(words []uint64) *Bitmap {
	v := new(big.Int)
	for i := len(words) - 1; i >= 0; i-- {
		v.Lsh(v, 64)
		v.Or(v, new(big.Int).SetUint64(words[i]))
	}
	return FromBig(len(words)*64, v)
}

func (b *Bitmap) Width() int {
	return b.width
}

// Big 返回底层值的拷贝
func (b *Bitmap) Big() *big.Int {
	return new(big.Int).Set(b.v)
}

func (b *Bitmap) Bit(i int) bool {
	if i < 0 || i >= b.width {
		return false
	}
	return b.v.Bit(i) == 1
}

func (b *Bitmap) SetBit(i int) *Bitmap {
	if i >= 0 && i < b.width {
		b.v.SetBit(b.v, i, 1)
	}
	return b
}

func (b *Bitmap) ClearBit(i int) *Bitmap {
	if i >= 0 && i < b.width {
		b.v.SetBit(b.v, i, 0)
	}
	return b
}

func (b *Bitmap) IsZero() bool {
	return b.v.Sign() == 0
}

// LeadingZeros 从最高位 (width-1) 往下数连续的 0
func (b *Bitmap) LeadingZeros() int {
	if b.IsZero() {
		return b.width
	}
	return b.width - b.v.BitLen()
}

// TrailingZeros 从最低位往上数连续的 0
func (b *Bitmap) TrailingZeros() int {
	if b.IsZero() {
		return b.width
	}
	return int(b.v.TrailingZeroBits())
}

// MostSignificantBit 最高位 1 距顶端的位置（即 LeadingZeros），全 0 时 ok=false
func (b *Bitmap) MostSignificantBit() (int, bool) {
	if b.IsZero() {
		return 0, false
	}
	return b.LeadingZeros(), true
}

// LeastSignificantBit 最低位 1 的位置（即 TrailingZeros），全 0 时 ok=false
func (b *Bitmap) LeastSignificantBit() (int, bool) {
	if b.IsZero() {
		return 0, false
	}
	return b.TrailingZeros(), true
}

// Shl 左移 n 位，超出 width 的部分丢弃
func (b *Bitmap) Shl(n int) *Bitmap {
	out := &Bitmap{width: b.width, v: new(big.Int)}
	if n < 0 {
		return b.Shr(-n)
	}
	out.v.Lsh(b.v, uint(n))
	out.truncate()
	return out
}

// Shr 逻辑右移 n 位
func (b *Bitmap) Shr(n int) *Bitmap {
	out := &Bitmap{width: b.width, v: new(big.Int)}
	if n < 0 {
		return b.Shl(-n)
	}
	out.v.Rsh(b.v, uint(n))
	return out
}

func (b *Bitmap) String() string {
	return fmt.Sprintf("%0*b", b.width, b.v)
}

func (b *Bitmap) truncate() {
	if b.v.Sign() < 0 {
		// 负数按 width 位补码处理
		mod := new(big.Int).Lsh(big.NewInt(1), uint(b.width))
		b.v.Mod(b.v, mod)
		return
	}
	if b.v.BitLen() <= b.width {
		return
	}
	mask := new(big.Int).Lsh(big.NewInt(1), uint(b.width))
	mask.Sub(mask, big.NewInt(1))
	b.v.And(b.v, mask)
}
