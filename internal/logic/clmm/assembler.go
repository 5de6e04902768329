package clmm

import (
	"encoding/binary"
	"fmt"

	"clmm-admin-sol/internal/pda"
	"clmm-admin-sol/internal/types"

	soltypes "github.com/blocto/solana-go-sdk/types"
	"github.com/near/borsh-go"
)

// Assembler 构造 CLMM 管理类指令。所有校验都在本地完成，不访问网络。
type Assembler struct {
	programID types.Pubkey
	pda       *pda.Deriver
}

func NewAssembler(programID types.Pubkey) *Assembler {
	return &Assembler{programID: programID, pda: pda.NewDeriver(programID)}
}

func (a *Assembler) ProgramID() types.Pubkey {
	return a.programID
}

func (a *Assembler) Deriver() *pda.Deriver {
	return a.pda
}

// AuxAccount 附加账户（remaining accounts），接收方按位置索引，顺序必须保持
type AuxAccount struct {
	Pubkey     types.Pubkey
	IsSigner   bool
	IsWritable bool
}

func (x AuxAccount) meta() soltypes.AccountMeta {
	return soltypes.AccountMeta{PubKey: x.Pubkey, IsSigner: x.IsSigner, IsWritable: x.IsWritable}
}

func appendAux(metas []soltypes.AccountMeta, aux []AuxAccount) []soltypes.AccountMeta {
	for _, x := range aux {
		metas = append(metas, x.meta())
	}
	return metas
}

func signer(k types.Pubkey, writable bool) soltypes.AccountMeta {
	return soltypes.AccountMeta{PubKey: k, IsSigner: true, IsWritable: writable}
}

func writable(k types.Pubkey) soltypes.AccountMeta {
	return soltypes.AccountMeta{PubKey: k, IsWritable: true}
}

func readonly(k types.Pubkey) soltypes.AccountMeta {
	return soltypes.AccountMeta{PubKey: k}
}

// encodeData discriminator + borsh(args)，args 为 nil 时只有 discriminator
func encodeData(disc uint64, args any) ([]byte, error) {
	data := make([]byte, 8, 64)
	binary.BigEndian.PutUint64(data, disc)
	if args == nil {
		return data, nil
	}
	body, err := borsh.Serialize(args)
	if err != nil {
		return nil, fmt.Errorf("borsh serialize %T: %w", args, err)
	}
	return append(data, body...), nil
}

func (a *Assembler) instruction(disc uint64, args any, metas []soltypes.AccountMeta) (soltypes.Instruction, error) {
	data, err := encodeData(disc, args)
	if err != nil {
		return soltypes.Instruction{}, err
	}
	return soltypes.Instruction{ProgramID: a.programID, Accounts: metas, Data: data}, nil
}

func (a *Assembler) adminGroup() (types.Pubkey, error) {
	d, err := a.pda.AdminGroup()
	if err != nil {
		return types.Pubkey{}, err
	}
	return d.Address, nil
}
