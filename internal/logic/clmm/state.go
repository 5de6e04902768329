package clmm

import (
	"encoding/binary"
	"fmt"

	"clmm-admin-sol/internal/types"

	"github.com/near/borsh-go"
)

const (
	adminGroupLen = 6 * 32
	ammConfigLen  = 1 + 2 + 32 + 4 + 4 + 2 + 4 + 4 + 32 + 3*8
)

// AmmConfig 链上 AmmConfig 账户（去掉 discriminator）
type AmmConfig struct {
	Bump            uint8
	Index           uint16
	Owner           types.Pubkey
	ProtocolFeeRate uint32
	TradeFeeRate    uint32
	TickSpacing     uint16
	FundFeeRate     uint32
	PaddingU32      uint32
	FundOwner       types.Pubkey
	Padding         [3]uint64
}

func DecodeAdminGroup(data []byte) (*AdminGroup, error) {
	var g AdminGroup
	if err := decodeAccount(data, DiscAccountAmmAdminGroup, adminGroupLen, &g); err != nil {
		return nil, fmt.Errorf("decode admin group: %w", err)
	}
	return &g, nil
}

func DecodeAmmConfig(data []byte) (*AmmConfig, error) {
	var c AmmConfig
	if err := decodeAccount(data, DiscAccountAmmConfig, ammConfigLen, &c); err != nil {
		return nil, fmt.Errorf("decode amm config: %w", err)
	}
	return &c, nil
}

// EncodeAdminGroup 生成账户数据（本地模拟与测试使用）
func EncodeAdminGroup(g AdminGroup) ([]byte, error) {
	return encodeData(DiscAccountAmmAdminGroup, g)
}

func EncodeAmmConfig(c AmmConfig) ([]byte, error) {
	return encodeData(DiscAccountAmmConfig, c)
}

// decodeAccount 校验 discriminator 后只解析定长部分，忽略尾部 padding
func decodeAccount(data []byte, disc uint64, bodyLen int, out any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("borsh panic: %v", r)
		}
	}()
	if len(data) < 8+bodyLen {
		return fmt.Errorf("%w: data too short (%d < %d)", ErrDiscriminatorMismatch, len(data), 8+bodyLen)
	}
	if got := binary.BigEndian.Uint64(data[:8]); got != disc {
		return fmt.Errorf("%w: got %016x, want %016x", ErrDiscriminatorMismatch, got, disc)
	}
	return borsh.Deserialize(out, data[8:8+bodyLen])
}
