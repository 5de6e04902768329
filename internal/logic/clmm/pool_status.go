package clmm

import (
	"strings"

	"clmm-admin-sol/internal/types"

	soltypes "github.com/blocto/solana-go-sdk/types"
)

// PoolStatus 每一位表示禁用一种操作，0 为全部启用
type PoolStatus uint8

const (
	PoolStatusDisableOpenPositionOrIncrease PoolStatus = 1 << 0
	PoolStatusDisableDecreaseLiquidity      PoolStatus = 1 << 1
	PoolStatusDisableCollectFee             PoolStatus = 1 << 2
	PoolStatusDisableCollectReward          PoolStatus = 1 << 3
	PoolStatusDisableSwap                   PoolStatus = 1 << 4

	PoolStatusEnabled     PoolStatus = 0
	PoolStatusDisabledAll PoolStatus = 255
)

func (s PoolStatus) Disabled(bit PoolStatus) bool {
	return s&bit != 0
}

// String 展示被禁用的操作
func (s PoolStatus) String() string {
	if s == PoolStatusEnabled {
		return "enabled"
	}
	names := []struct {
		bit  PoolStatus
		name string
	}{
		{PoolStatusDisableOpenPositionOrIncrease, "open/increase"},
		{PoolStatusDisableDecreaseLiquidity, "decrease"},
		{PoolStatusDisableCollectFee, "collect_fee"},
		{PoolStatusDisableCollectReward, "collect_reward"},
		{PoolStatusDisableSwap, "swap"},
	}
	var parts []string
	for _, n := range names {
		if s.Disabled(n.bit) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "reserved bits only"
	}
	return "disabled: " + strings.Join(parts, ",")
}

type updatePoolStatusArgs struct {
	Status uint8
}

// UpdatePoolStatus status 原样透传，不校验位组合
func (a *Assembler) UpdatePoolStatus(authority, pool types.Pubkey, status PoolStatus) (soltypes.Instruction, error) {
	err := checkAccounts("update_pool_status", field{"authority", authority}, field{"pool", pool})
	if err != nil {
		return soltypes.Instruction{}, err
	}
	adminGroup, err := a.adminGroup()
	if err != nil {
		return soltypes.Instruction{}, err
	}
	return a.instruction(DiscUpdatePoolStatus, updatePoolStatusArgs{Status: uint8(status)}, []soltypes.AccountMeta{
		signer(authority, false),
		readonly(adminGroup),
		writable(pool),
	})
}
