package proposal

import (
	"context"
	"fmt"

	"clmm-admin-sol/internal/consts"
	"clmm-admin-sol/internal/logic/multisig"
	"clmm-admin-sol/internal/types"
)

type ParsedAccount struct {
	Pubkey     types.Pubkey
	IsSigner   bool
	IsWritable bool
}

// ParsedInstruction vault transaction 中的一条指令，Name 为空表示无法识别
type ParsedInstruction struct {
	ProgramID types.Pubkey
	Accounts  []ParsedAccount
	Data      []byte
	Name      string
}

// ParseInstructions 解析提案对应的 vault transaction，账户权限来自消息头
func (o *Orchestrator) ParseInstructions(ctx context.Context, index uint64) ([]ParsedInstruction, error) {
	tx, err := o.GetTransaction(ctx, index)
	if err != nil {
		return nil, err
	}
	return o.decodeMessage(tx.Message)
}

func (o *Orchestrator) decodeMessage(msg *multisig.TransactionMessage) ([]ParsedInstruction, error) {
	keys := msg.AccountKeys
	out := make([]ParsedInstruction, 0, len(msg.Instructions))
	for i, ix := range msg.Instructions {
		if int(ix.ProgramIDIndex) >= len(keys) {
			return nil, fmt.Errorf("%w: instruction %d program index %d out of range", multisig.ErrMalformedMessage, i, ix.ProgramIDIndex)
		}
		parsed := ParsedInstruction{
			ProgramID: keys[ix.ProgramIDIndex],
			Data:      ix.Data,
			Accounts:  make([]ParsedAccount, 0, len(ix.AccountIndexes)),
		}
		for _, ai := range ix.AccountIndexes {
			if int(ai) >= len(keys) {
				return nil, fmt.Errorf("%w: instruction %d account index %d out of range", multisig.ErrMalformedMessage, i, ai)
			}
			parsed.Accounts = append(parsed.Accounts, ParsedAccount{
				Pubkey:     keys[ai],
				IsSigner:   msg.IsSigner(int(ai)),
				IsWritable: msg.IsWritable(int(ai)),
			})
		}
		parsed.Name = o.instructionName(parsed.ProgramID, ix.Data)
		out = append(out, parsed)
	}
	return out, nil
}

func (o *Orchestrator) instructionName(programID types.Pubkey, data []byte) string {
	if fn, ok := o.namers[programID]; ok {
		if name, ok := fn(data); ok {
			return name
		}
	}
	switch programID {
	case consts.ComputeBudgetProgram:
		return "compute_budget"
	case consts.MemoProgram:
		return "memo"
	case consts.SystemProgram:
		return "system"
	}
	return ""
}
