package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"clmm-admin-sol/internal/types"

	soltypes "github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"
)

// KeypairSigner 本地 ed25519 私钥签名
type KeypairSigner struct {
	account soltypes.Account
}

func NewKeypairSigner(account soltypes.Account) *KeypairSigner {
	return &KeypairSigner{account: account}
}

// NewRandomSigner 生成一次性密钥，例如 multisig create_key
func NewRandomSigner() *KeypairSigner {
	return &KeypairSigner{account: soltypes.NewAccount()}
}

func (s *KeypairSigner) PublicKey() types.Pubkey {
	return s.account.PublicKey
}

func (s *KeypairSigner) Sign(message []byte) ([]byte, error) {
	return s.account.Sign(message), nil
}

// LoadKeypair 支持 solana-keygen 的 JSON 数组格式，以及 base58 编码的 64 字节私钥
func LoadKeypair(path string) (*KeypairSigner, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keypair %s: %w", path, err)
	}
	return ParseKeypair(raw)
}

func ParseKeypair(raw []byte) (*KeypairSigner, error) {
	text := strings.TrimSpace(string(raw))
	var secret []byte
	if strings.HasPrefix(text, "[") {
		if err := json.Unmarshal([]byte(text), &secret); err != nil {
			return nil, fmt.Errorf("parse keypair json: %w", err)
		}
	} else {
		b, err := base58.Decode(text)
		if err != nil {
			return nil, fmt.Errorf("parse keypair base58: %w", err)
		}
		secret = b
	}
	account, err := soltypes.AccountFromBytes(secret)
	if err != nil {
		return nil, fmt.Errorf("invalid keypair: %w", err)
	}
	return NewKeypairSigner(account), nil
}
