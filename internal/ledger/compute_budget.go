package ledger

import (
	"clmm-admin-sol/internal/consts"

	soltypes "github.com/blocto/solana-go-sdk/types"
	"github.com/near/borsh-go"
)

const (
	computeBudgetSetUnitLimit uint8 = 2
	computeBudgetSetUnitPrice uint8 = 3
)

// ComputeBudget 为 0 的字段不生成指令
type ComputeBudget struct {
	UnitLimit uint32
	UnitPrice uint64 // micro-lamports
}

type setUnitLimitArgs struct {
	Instruction uint8
	Units       uint32
}

type setUnitPriceArgs struct {
	Instruction   uint8
	MicroLamports uint64
}

func (b ComputeBudget) Instructions() []soltypes.Instruction {
	var ixs []soltypes.Instruction
	if b.UnitLimit > 0 {
		ixs = append(ixs, computeBudgetInstruction(setUnitLimitArgs{computeBudgetSetUnitLimit, b.UnitLimit}))
	}
	if b.UnitPrice > 0 {
		ixs = append(ixs, computeBudgetInstruction(setUnitPriceArgs{computeBudgetSetUnitPrice, b.UnitPrice}))
	}
	return ixs
}

func computeBudgetInstruction(args any) soltypes.Instruction {
	// 定长结构体序列化不会失败
	data, _ := borsh.Serialize(args)
	return soltypes.Instruction{ProgramID: consts.ComputeBudgetProgram, Data: data}
}
