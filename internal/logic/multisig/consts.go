package multisig

import (
	"encoding/binary"
	"strings"
)

// Anchor 指令 discriminator（sha256("global:<name>")[:8]，按大端 uint64 书写）
const (
	DiscMultisigCreateV2        uint64 = 0x32ddc75d28f58be9
	DiscVaultTransactionCreate  uint64 = 0x30fa4ea8d0e2dad3
	DiscProposalCreate          uint64 = 0xdc3c49e01e6c4f9f
	DiscProposalApprove         uint64 = 0x9025a488bcd82af8
	DiscProposalReject          uint64 = 0xf33e869ce66af687
	DiscProposalCancel          uint64 = 0x1b2a7fed26a354cb
	DiscVaultTransactionExecute uint64 = 0xc208a15799a419ab
)

// Anchor 账户 discriminator（sha256("account:<Name>")[:8]）
const (
	DiscAccountMultisig         uint64 = 0xe07479ba44a14fec
	DiscAccountProposal         uint64 = 0x1a5ebdbb74883521
	DiscAccountVaultTransaction uint64 = 0xa8faa264510ea2cf
	DiscAccountProgramConfig    uint64 = 0xc4d25ae790958c3f
)

var instructionNames = map[uint64]string{
	DiscMultisigCreateV2:        "multisig_create_v2",
	DiscVaultTransactionCreate:  "vault_transaction_create",
	DiscProposalCreate:          "proposal_create",
	DiscProposalApprove:         "proposal_approve",
	DiscProposalReject:          "proposal_reject",
	DiscProposalCancel:          "proposal_cancel",
	DiscVaultTransactionExecute: "vault_transaction_execute",
}

// InstructionName 根据 data 前 8 字节识别 Squads 指令
func InstructionName(data []byte) (string, bool) {
	if len(data) < 8 {
		return "", false
	}
	name, ok := instructionNames[binary.BigEndian.Uint64(data[:8])]
	return name, ok
}

func discBytes(d uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, d)
	return buf
}

// Permission 成员权限位
type Permission uint8

const (
	PermissionInitiate Permission = 1 << 0
	PermissionVote     Permission = 1 << 1
	PermissionExecute  Permission = 1 << 2
)

// Permissions 链上 {mask: u8}
type Permissions struct {
	Mask uint8
}

func NewPermissions(ps ...Permission) Permissions {
	var m uint8
	for _, p := range ps {
		m |= uint8(p)
	}
	return Permissions{Mask: m}
}

func AllPermissions() Permissions {
	return NewPermissions(PermissionInitiate, PermissionVote, PermissionExecute)
}

// ParsePermissions 解析 "initiate" / "vote" / "execute" / "all"
func ParsePermissions(names []string) (Permissions, error) {
	var ps []Permission
	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "initiate":
			ps = append(ps, PermissionInitiate)
		case "vote":
			ps = append(ps, PermissionVote)
		case "execute":
			ps = append(ps, PermissionExecute)
		case "all":
			return AllPermissions(), nil
		default:
			return Permissions{}, &UnknownPermissionError{Name: n}
		}
	}
	return NewPermissions(ps...), nil
}

func (p Permissions) Has(perm Permission) bool {
	return p.Mask&uint8(perm) != 0
}

// String 展示用：全权限显示 "All"，无权限显示 "None"
func (p Permissions) String() string {
	if p.Mask == AllPermissions().Mask {
		return "All"
	}
	var parts []string
	if p.Has(PermissionInitiate) {
		parts = append(parts, "Initiate")
	}
	if p.Has(PermissionVote) {
		parts = append(parts, "Vote")
	}
	if p.Has(PermissionExecute) {
		parts = append(parts, "Execute")
	}
	if len(parts) == 0 {
		return "None"
	}
	return strings.Join(parts, ", ")
}

type UnknownPermissionError struct {
	Name string
}

func (e *UnknownPermissionError) Error() string {
	return "multisig: unknown permission " + e.Name
}
