package clmm

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Uint128 borsh u128，小端 16 字节
type Uint128 [16]byte

var (
	maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	q128       = new(big.Int).Lsh(big.NewInt(1), 128)

	MinSqrtPriceX64, _ = new(big.Int).SetString("4295048016", 10)
	MaxSqrtPriceX64, _ = new(big.Int).SetString("79226673521066979257578248091", 10)
)

func Uint128FromBig(v *big.Int) (Uint128, error) {
	var u Uint128
	if v == nil || v.Sign() < 0 || v.Cmp(maxUint128) > 0 {
		return u, fmt.Errorf("value %v out of u128 range", v)
	}
	lo := new(big.Int).And(v, new(big.Int).SetUint64(^uint64(0))).Uint64()
	hi := new(big.Int).Rsh(v, 64).Uint64()
	binary.LittleEndian.PutUint64(u[:8], lo)
	binary.LittleEndian.PutUint64(u[8:], hi)
	return u, nil
}

func Uint128FromString(s string) (Uint128, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Uint128{}, fmt.Errorf("invalid u128 %q", s)
	}
	return Uint128FromBig(v)
}

func (u Uint128) Big() *big.Int {
	hi := new(big.Int).SetUint64(binary.LittleEndian.Uint64(u[8:]))
	lo := new(big.Int).SetUint64(binary.LittleEndian.Uint64(u[:8]))
	return hi.Lsh(hi, 64).Or(hi, lo)
}

func (u Uint128) String() string {
	return u.Big().String()
}

// Price2SqrtPriceX64 price 为 1 个 tokenA 折合多少 tokenB（UI 单位）：
// floor(sqrt(price * 10^(decB-decA)) * 2^64)，全程整数运算
func Price2SqrtPriceX64(price decimal.Decimal, decimalsA, decimalsB uint8) (Uint128, error) {
	return sqrtPriceX64(price, decimalsA, decimalsB, false)
}

// invert=true 时按 1/price 计算（mint 对交换后使用）
func sqrtPriceX64(price decimal.Decimal, decimalsA, decimalsB uint8, invert bool) (Uint128, error) {
	if !price.IsPositive() {
		return Uint128{}, fmt.Errorf("%w: price must be positive, got %s", ErrInvalidPrice, price)
	}

	// price * 10^(decB-decA) = num / den
	exp := int64(price.Exponent()) + int64(decimalsB) - int64(decimalsA)
	num := new(big.Int).Set(price.Coefficient())
	den := big.NewInt(1)
	pow := new(big.Int).Exp(big.NewInt(10), big.NewInt(abs64(exp)), nil)
	if exp >= 0 {
		num.Mul(num, pow)
	} else {
		den.Mul(den, pow)
	}
	if invert {
		num, den = den, num
	}

	x := new(big.Int).Mul(num, q128)
	x.Quo(x, den)
	root := new(big.Int).Sqrt(x)

	if root.Cmp(MinSqrtPriceX64) < 0 || root.Cmp(MaxSqrtPriceX64) >= 0 {
		return Uint128{}, fmt.Errorf("%w: sqrt price %s out of range", ErrInvalidPrice, root)
	}
	return Uint128FromBig(root)
}

// SqrtPriceX64ToPrice 逆运算，结果保留 precision 位小数
func SqrtPriceX64ToPrice(sqrtPriceX64 Uint128, decimalsA, decimalsB uint8, precision int32) decimal.Decimal {
	x := sqrtPriceX64.Big()
	sq := decimal.NewFromBigInt(new(big.Int).Mul(x, x), 0)
	p := sq.DivRound(decimal.NewFromBigInt(q128, 0), precision+int32(decimalsB)+8)
	return p.Shift(int32(decimalsA) - int32(decimalsB)).Round(precision)
}

// FeeRateToPercent 费率（分母 1e6）转百分比，例如 2500 -> 0.25
func FeeRateToPercent(rate uint32) decimal.Decimal {
	return decimal.New(int64(rate), -4)
}

// PercentToFeeRate 百分比转费率，精度不足 1e-4% 的部分视为非法
func PercentToFeeRate(pct decimal.Decimal) (uint32, error) {
	v := pct.Shift(4)
	if !v.IsInteger() || v.IsNegative() || v.GreaterThan(decimal.NewFromInt(FeeRateDenominator)) {
		return 0, fmt.Errorf("%w: %s%%", ErrInvalidFeeRate, pct)
	}
	return uint32(v.IntPart()), nil
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
