package clmm

import (
	"fmt"

	"clmm-admin-sol/internal/consts"
	"clmm-admin-sol/internal/types"

	soltypes "github.com/blocto/solana-go-sdk/types"
)

// FeeRateDenominator 费率分母，1e6 = 100%
const FeeRateDenominator = 1_000_000

type CreateAmmConfigArgs struct {
	Index           uint16
	TickSpacing     uint16
	TradeFeeRate    uint32
	ProtocolFeeRate uint32
	FundFeeRate     uint32
}

func (c CreateAmmConfigArgs) validate() error {
	if c.TickSpacing == 0 {
		return fmt.Errorf("%w: tick spacing must be positive", ErrInvalidFeeRate)
	}
	if c.TradeFeeRate >= FeeRateDenominator {
		return fmt.Errorf("%w: trade fee rate %d >= %d", ErrInvalidFeeRate, c.TradeFeeRate, FeeRateDenominator)
	}
	if c.ProtocolFeeRate > FeeRateDenominator || c.FundFeeRate > FeeRateDenominator {
		return fmt.Errorf("%w: protocol=%d fund=%d", ErrInvalidFeeRate, c.ProtocolFeeRate, c.FundFeeRate)
	}
	if uint64(c.ProtocolFeeRate)+uint64(c.FundFeeRate) > FeeRateDenominator {
		return fmt.Errorf("%w: protocol+fund = %d exceeds %d", ErrInvalidFeeRate, uint64(c.ProtocolFeeRate)+uint64(c.FundFeeRate), FeeRateDenominator)
	}
	return nil
}

func (a *Assembler) CreateAmmConfig(owner types.Pubkey, args CreateAmmConfigArgs) (soltypes.Instruction, error) {
	if err := checkAccounts("create_amm_config", field{"owner", owner}); err != nil {
		return soltypes.Instruction{}, err
	}
	if err := args.validate(); err != nil {
		return soltypes.Instruction{}, err
	}
	adminGroup, err := a.adminGroup()
	if err != nil {
		return soltypes.Instruction{}, err
	}
	cfg, err := a.pda.AmmConfig(args.Index)
	if err != nil {
		return soltypes.Instruction{}, err
	}
	return a.instruction(DiscCreateAmmConfig, args, []soltypes.AccountMeta{
		signer(owner, true),
		readonly(adminGroup),
		writable(cfg.Address),
		readonly(consts.SystemProgram),
	})
}

// UpdateTag update_amm_config 的 param
type UpdateTag uint8

const (
	UpdateTradeFeeRate    UpdateTag = 0
	UpdateProtocolFeeRate UpdateTag = 1
	UpdateFundFeeRate     UpdateTag = 2
	UpdateNewOwner        UpdateTag = 3 // 新地址通过附加账户传入
	UpdateNewFundOwner    UpdateTag = 4 // 同上
)

func (t UpdateTag) String() string {
	switch t {
	case UpdateTradeFeeRate:
		return "trade_fee_rate"
	case UpdateProtocolFeeRate:
		return "protocol_fee_rate"
	case UpdateFundFeeRate:
		return "fund_fee_rate"
	case UpdateNewOwner:
		return "owner"
	case UpdateNewFundOwner:
		return "fund_owner"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// IsAddressTyped 地址类参数，值通过附加账户传递
func (t UpdateTag) IsAddressTyped() bool {
	return t == UpdateNewOwner || t == UpdateNewFundOwner
}

type updateAmmConfigArgs struct {
	Param uint8
	Value uint32
}

// UpdateAmmConfig 按 tag 更新 config：
// 数值类 (0/1/2) 的新值放在 value 中，不能带附加账户；
// 地址类 (3/4) 必须恰好带一个附加账户，并强制为 writable、非 signer，value 置 0。
func (a *Assembler) UpdateAmmConfig(owner types.Pubkey, index uint16, tag UpdateTag, value uint32, aux []AuxAccount) (soltypes.Instruction, error) {
	if err := checkAccounts("update_amm_config", field{"owner", owner}); err != nil {
		return soltypes.Instruction{}, err
	}

	switch {
	case tag.IsAddressTyped():
		if len(aux) != 1 || types.IsZero(aux[0].Pubkey) {
			return soltypes.Instruction{}, fmt.Errorf("%w: tag %s got %d", ErrMissingAuxiliaryAccount, tag, len(aux))
		}
		aux = []AuxAccount{{Pubkey: aux[0].Pubkey, IsWritable: true}}
		value = 0
	case tag <= UpdateFundFeeRate:
		if len(aux) != 0 {
			return soltypes.Instruction{}, fmt.Errorf("%w: tag %s got %d", ErrUnexpectedAuxiliaryAccount, tag, len(aux))
		}
		if tag == UpdateTradeFeeRate && value >= FeeRateDenominator || value > FeeRateDenominator {
			return soltypes.Instruction{}, fmt.Errorf("%w: %s=%d", ErrInvalidFeeRate, tag, value)
		}
	default:
		return soltypes.Instruction{}, fmt.Errorf("%w: %d", ErrUnknownUpdateTag, uint8(tag))
	}

	adminGroup, err := a.adminGroup()
	if err != nil {
		return soltypes.Instruction{}, err
	}
	cfg, err := a.pda.AmmConfig(index)
	if err != nil {
		return soltypes.Instruction{}, err
	}
	metas := []soltypes.AccountMeta{
		signer(owner, false),
		readonly(adminGroup),
		writable(cfg.Address),
	}
	return a.instruction(DiscUpdateAmmConfig, updateAmmConfigArgs{Param: uint8(tag), Value: value}, appendAux(metas, aux))
}
