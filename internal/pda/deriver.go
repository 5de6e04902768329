package pda

import (
	"errors"
	"fmt"

	"clmm-admin-sol/internal/types"

	"github.com/blocto/solana-go-sdk/common"
)

const (
	maxSeeds      = 16 // 含 nonce
	maxSeedLength = 32
)

var (
	ErrDerivationExhausted = errors.New("pda: no valid nonce in [0, 255]")
	ErrInvalidSeeds        = errors.New("pda: invalid seeds")
)

// createProgramAddress 对落在曲线上的候选地址返回错误，测试中可替换
var createProgramAddress = common.CreateProgramAddress

// DerivedAddress 程序派生地址 + nonce(bump)
type DerivedAddress struct {
	Address types.Pubkey
	Nonce   uint8
}

func (d DerivedAddress) String() string {
	return fmt.Sprintf("%s(bump=%d)", d.Address.ToBase58(), d.Nonce)
}

// Derive 从 nonce=255 开始递减尝试，返回第一个不在曲线上的地址。
// 同一组 (seeds, programID) 永远得到同一个结果。
func Derive(seeds [][]byte, programID types.Pubkey) (DerivedAddress, error) {
	if len(seeds)+1 > maxSeeds {
		return DerivedAddress{}, fmt.Errorf("%w: %d seeds exceeds limit %d", ErrInvalidSeeds, len(seeds), maxSeeds-1)
	}
	for i, s := range seeds {
		if len(s) > maxSeedLength {
			return DerivedAddress{}, fmt.Errorf("%w: seed #%d has %d bytes (max %d)", ErrInvalidSeeds, i, len(s), maxSeedLength)
		}
	}

	withNonce := make([][]byte, len(seeds)+1)
	copy(withNonce, seeds)
	nonce := []byte{0}
	withNonce[len(seeds)] = nonce

	for n := 255; n >= 0; n-- {
		nonce[0] = byte(n)
		addr, err := createProgramAddress(withNonce, programID)
		if err == nil {
			return DerivedAddress{Address: addr, Nonce: uint8(n)}, nil
		}
	}
	return DerivedAddress{}, ErrDerivationExhausted
}

// MustDerive 仅用于固定 seed 的包级常量
func MustDerive(seeds [][]byte, programID types.Pubkey) DerivedAddress {
	d, err := Derive(seeds, programID)
	if err != nil {
		panic(err)
	}
	return d
}
