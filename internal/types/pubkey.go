package types

import (
	"bytes"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/mr-tron/base58"
)

// Pubkey 统一使用 blocto 的 32 字节公钥类型，避免指令构造时来回转换
type Pubkey = common.PublicKey

// ZeroPubkey 全 0 公钥，在参数校验中表示“未提供”
var ZeroPubkey Pubkey

// TryPubkeyFromBase58 解析 base58 字符串为 Pubkey，失败时返回 error（用于不信任输入路径）
func TryPubkeyFromBase58(s string) (Pubkey, error) {
	data, err := base58.Decode(s)
	if err != nil {
		return Pubkey{}, fmt.Errorf("failed to decode base58 pubkey %q: %w", s, err)
	}
	if len(data) != 32 {
		return Pubkey{}, fmt.Errorf("invalid pubkey length: got %d, want 32, input=%q", len(data), s)
	}
	var p Pubkey
	copy(p[:], data)
	return p, nil
}

// PubkeyFromBase58 仅用于常量初始化，解析失败直接 panic
func PubkeyFromBase58(s string) Pubkey {
	p, err := TryPubkeyFromBase58(s)
	if err != nil {
		panic(err)
	}
	return p
}

// PubkeysFromBase58 批量解析（不信任输入）
func PubkeysFromBase58(strs []string) ([]Pubkey, error) {
	result := make([]Pubkey, 0, len(strs))
	for _, s := range strs {
		p, err := TryPubkeyFromBase58(s)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, nil
}

// ComparePubkey 按字节序比较，a<b 返回 -1，a>b 返回 1，相等返回 0
func ComparePubkey(a, b Pubkey) int {
	return bytes.Compare(a[:], b[:])
}

func IsZero(p Pubkey) bool {
	return p == ZeroPubkey
}

// ShortString 日志展示用：前 4 + 后 4
func ShortString(p Pubkey) string {
	s := p.ToBase58()
	if len(s) <= 10 {
		return s
	}
	return s[:4] + ".." + s[len(s)-4:]
}
