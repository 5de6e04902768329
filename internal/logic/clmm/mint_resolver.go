package clmm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"clmm-admin-sol/internal/consts"
	"clmm-admin-sol/internal/ledger"
	"clmm-admin-sol/internal/types"
)

const (
	mintAccountLen     = 82
	mintDecimalsOffset = 44 // COption<Pubkey>(36) + supply(8)

	WSOLDecimals = 9
	USDCDecimals = 6
	USDTDecimals = 6
)

var ErrNotMint = errors.New("clmm: account is not a token mint")

// AccountFetcher 读取账户 owner 与数据
type AccountFetcher interface {
	GetAccount(ctx context.Context, address types.Pubkey) (*ledger.Account, error)
}

// MintResolver 解析 mint 的 token program 与精度，结果按 mint 缓存
type MintResolver struct {
	fetcher AccountFetcher

	mu    sync.Mutex
	cache []MintInfo
}

func NewMintResolver(fetcher AccountFetcher) *MintResolver {
	return &MintResolver{fetcher: fetcher, cache: make([]MintInfo, 0, 4)}
}

func (r *MintResolver) Resolve(ctx context.Context, mint types.Pubkey) (MintInfo, error) {
	switch mint {
	case consts.WSOLMint:
		return MintInfo{Mint: mint, TokenProgram: consts.TokenProgram, Decimals: WSOLDecimals}, nil
	case consts.USDCMint:
		return MintInfo{Mint: mint, TokenProgram: consts.TokenProgram, Decimals: USDCDecimals}, nil
	case consts.USDTMint:
		return MintInfo{Mint: mint, TokenProgram: consts.TokenProgram, Decimals: USDTDecimals}, nil
	}

	r.mu.Lock()
	for _, item := range r.cache {
		if item.Mint == mint {
			r.mu.Unlock()
			return item, nil
		}
	}
	r.mu.Unlock()

	acc, err := r.fetcher.GetAccount(ctx, mint)
	if err != nil {
		return MintInfo{}, err
	}
	info, err := decodeMint(mint, acc)
	if err != nil {
		return MintInfo{}, err
	}

	r.mu.Lock()
	r.cache = append(r.cache, info)
	r.mu.Unlock()
	return info, nil
}

// decodeMint token-2022 的 mint 在 82 字节基础布局之后追加扩展
func decodeMint(mint types.Pubkey, acc *ledger.Account) (MintInfo, error) {
	if !consts.IsTokenProgram(acc.Owner) {
		return MintInfo{}, fmt.Errorf("%w: %s is owned by %s", ErrNotMint, mint.ToBase58(), acc.Owner.ToBase58())
	}
	if len(acc.Data) < mintAccountLen {
		return MintInfo{}, fmt.Errorf("%w: %s has %d bytes", ErrNotMint, mint.ToBase58(), len(acc.Data))
	}
	return MintInfo{Mint: mint, TokenProgram: acc.Owner, Decimals: acc.Data[mintDecimalsOffset]}, nil
}
