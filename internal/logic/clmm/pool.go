package clmm

import (
	"clmm-admin-sol/internal/consts"
	"clmm-admin-sol/internal/pda"
	"clmm-admin-sol/internal/types"

	soltypes "github.com/blocto/solana-go-sdk/types"
	"github.com/shopspring/decimal"
)

// MintInfo mint 与其 token program、精度绑定为一个整体，交换顺序时必须整体交换
type MintInfo struct {
	Mint         types.Pubkey
	TokenProgram types.Pubkey
	Decimals     uint8
}

func (m MintInfo) program() types.Pubkey {
	if types.IsZero(m.TokenProgram) {
		return consts.TokenProgram
	}
	return m.TokenProgram
}

// NormalizeMintPair 按字节序排序，返回 (mint0, mint1, 是否交换)
func NormalizeMintPair(a, b MintInfo) (MintInfo, MintInfo, bool) {
	if types.ComparePubkey(a.Mint, b.Mint) > 0 {
		return b, a, true
	}
	return a, b, false
}

type CreatePoolParams struct {
	Creator        types.Pubkey
	PoolManager    types.Pubkey
	AmmConfigIndex uint16
	MintA          MintInfo
	MintB          MintInfo
	// Price 1 个 MintA 折合多少 MintB；SqrtPriceX64 非 nil 时直接使用（已按 mint0/mint1 排序）
	Price        decimal.Decimal
	SqrtPriceX64 *Uint128
	OpenTime     uint64
	// SupportMintAccounts 以只读附加账户按顺序追加
	SupportMintAccounts []types.Pubkey
}

// PoolAddresses 建池涉及的派生地址，便于调用方展示与后续操作
type PoolAddresses struct {
	AmmConfig       types.Pubkey
	Pool            types.Pubkey
	Mint0           MintInfo
	Mint1           MintInfo
	Vault0          types.Pubkey
	Vault1          types.Pubkey
	Observation     types.Pubkey
	BitmapExtension types.Pubkey
	OffchainReward  types.Pubkey
	SqrtPriceX64    Uint128
	Swapped         bool
}

type createPoolArgs struct {
	SqrtPriceX64 Uint128
	OpenTime     uint64
}

func (a *Assembler) CreatePool(p CreatePoolParams) (soltypes.Instruction, *PoolAddresses, error) {
	err := checkAccounts("create_pool",
		field{"creator", p.Creator},
		field{"pool_manager", p.PoolManager},
		field{"mint_a", p.MintA.Mint},
		field{"mint_b", p.MintB.Mint},
	)
	if err != nil {
		return soltypes.Instruction{}, nil, err
	}
	if p.MintA.Mint == p.MintB.Mint {
		return soltypes.Instruction{}, nil, ErrSameMint
	}

	mint0, mint1, swapped := NormalizeMintPair(p.MintA, p.MintB)
	var sqrtPrice Uint128
	if p.SqrtPriceX64 != nil {
		sqrtPrice = *p.SqrtPriceX64
	} else {
		// 价格按原始 A/B 方向给出，交换后取倒数
		sqrtPrice, err = sqrtPriceX64(p.Price, p.MintA.Decimals, p.MintB.Decimals, swapped)
		if err != nil {
			return soltypes.Instruction{}, nil, err
		}
	}

	addrs, err := a.PoolAddresses(p.AmmConfigIndex, mint0, mint1)
	if err != nil {
		return soltypes.Instruction{}, nil, err
	}
	addrs.SqrtPriceX64 = sqrtPrice
	addrs.Swapped = swapped

	adminGroup, err := a.adminGroup()
	if err != nil {
		return soltypes.Instruction{}, nil, err
	}

	metas := []soltypes.AccountMeta{
		signer(p.Creator, true),
		signer(p.PoolManager, false),
		readonly(adminGroup),
		readonly(addrs.AmmConfig),
		writable(addrs.Pool),
		writable(addrs.OffchainReward),
		readonly(mint0.Mint),
		readonly(mint1.Mint),
		writable(addrs.Vault0),
		writable(addrs.Vault1),
		writable(addrs.Observation),
		writable(addrs.BitmapExtension),
		readonly(mint0.program()),
		readonly(mint1.program()),
		readonly(consts.SystemProgram),
		readonly(consts.SysvarRent),
	}
	for _, k := range p.SupportMintAccounts {
		metas = append(metas, readonly(k))
	}

	ix, err := a.instruction(DiscCreatePool, createPoolArgs{SqrtPriceX64: sqrtPrice, OpenTime: p.OpenTime}, metas)
	if err != nil {
		return soltypes.Instruction{}, nil, err
	}
	return ix, addrs, nil
}

// PoolAddresses 派生池子相关地址，mint0/mint1 须已排序
func (a *Assembler) PoolAddresses(configIndex uint16, mint0, mint1 MintInfo) (*PoolAddresses, error) {
	cfg, err := a.pda.AmmConfig(configIndex)
	if err != nil {
		return nil, err
	}
	pool, err := a.pda.Pool(cfg.Address, mint0.Mint, mint1.Mint)
	if err != nil {
		return nil, err
	}
	out := &PoolAddresses{AmmConfig: cfg.Address, Pool: pool.Address, Mint0: mint0, Mint1: mint1}

	steps := []struct {
		dst *types.Pubkey
		fn  func() (pda.DerivedAddress, error)
	}{
		{&out.Vault0, func() (pda.DerivedAddress, error) { return a.pda.PoolVault(pool.Address, mint0.Mint) }},
		{&out.Vault1, func() (pda.DerivedAddress, error) { return a.pda.PoolVault(pool.Address, mint1.Mint) }},
		{&out.Observation, func() (pda.DerivedAddress, error) { return a.pda.Observation(pool.Address) }},
		{&out.BitmapExtension, func() (pda.DerivedAddress, error) { return a.pda.TickArrayBitmapExtension(pool.Address) }},
		{&out.OffchainReward, func() (pda.DerivedAddress, error) { return a.pda.OffchainReward(pool.Address) }},
	}
	for _, s := range steps {
		d, err := s.fn()
		if err != nil {
			return nil, err
		}
		*s.dst = d.Address
	}
	return out, nil
}
