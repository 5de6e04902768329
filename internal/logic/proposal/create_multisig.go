package proposal

import (
	"context"
	"fmt"

	"clmm-admin-sol/internal/ledger"
	"clmm-admin-sol/internal/logic/multisig"
	"clmm-admin-sol/internal/types"
	"clmm-admin-sol/pkg/logger"
)

type CreateMultisigParams struct {
	Creator         ledger.Signer // 支付租金与创建费
	CreateKey       ledger.Signer // 为空时随机生成，multisig 地址由它派生
	ConfigAuthority *types.Pubkey // 为空表示自治多签
	Threshold       uint16
	Members         []multisig.Member
	TimeLock        uint32
	RentCollector   *types.Pubkey
	Memo            *string
}

type CreateMultisigResult struct {
	Multisig  types.Pubkey
	CreateKey types.Pubkey
	Signature string
}

// CreateMultisig 读取 program config 获取 treasury 后提交 multisig_create_v2
func CreateMultisig(ctx context.Context, l ledger.Ledger, programID types.Pubkey, p CreateMultisigParams) (*CreateMultisigResult, error) {
	if p.Creator == nil {
		return nil, ledger.ErrNoFeePayer
	}
	createKey := p.CreateKey
	if createKey == nil {
		createKey = ledger.NewRandomSigner()
	}

	cfgAddr, err := multisig.ProgramConfigPda(programID)
	if err != nil {
		return nil, err
	}
	data, err := l.GetAccountData(ctx, cfgAddr.Address)
	if err != nil {
		return nil, fmt.Errorf("load program config: %w", err)
	}
	cfg, err := multisig.DecodeProgramConfig(data)
	if err != nil {
		return nil, err
	}

	ix, msAddr, err := multisig.MultisigCreateV2(programID, multisig.MultisigCreateParams{
		CreateKey:       createKey.PublicKey(),
		Creator:         p.Creator.PublicKey(),
		Treasury:        cfg.Treasury,
		ConfigAuthority: p.ConfigAuthority,
		Threshold:       p.Threshold,
		Members:         p.Members,
		TimeLock:        p.TimeLock,
		RentCollector:   p.RentCollector,
		Memo:            p.Memo,
	})
	if err != nil {
		return nil, err
	}

	env := &ledger.Envelope{FeePayer: p.Creator, Signers: []ledger.Signer{createKey}}
	env.Instructions = append(env.Instructions, ix)
	sig, err := ledger.SubmitAndConfirm(ctx, l, env)
	if err != nil {
		return nil, fmt.Errorf("create multisig: %w", err)
	}
	logger.Infof("[Proposal] 多签已创建: multisig=%s, threshold=%d, members=%d, fee=%d lamports, sig=%s",
		msAddr.ToBase58(), p.Threshold, len(p.Members), cfg.MultisigCreationFee, sig)
	return &CreateMultisigResult{Multisig: msAddr, CreateKey: createKey.PublicKey(), Signature: sig}, nil
}
