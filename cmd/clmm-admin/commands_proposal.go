package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"strings"
	"time"

	"clmm-admin-sol/internal/ledger"
	"clmm-admin-sol/internal/logic/multisig"
	"clmm-admin-sol/internal/logic/proposal"
	"clmm-admin-sol/internal/types"

	soltypes "github.com/blocto/solana-go-sdk/types"
)

func init() {
	register("create-multisig", command{usage: "create a squads v4 multisig", run: runCreateMultisig})
	register("approve", command{usage: "approve a proposal", run: voteCommand("approve")})
	register("reject", command{usage: "reject a proposal", run: voteCommand("reject")})
	register("cancel", command{usage: "cancel an approved proposal", run: voteCommand("cancel")})
	register("execute", command{usage: "execute an approved proposal", run: runExecute})
	register("list", command{usage: "list proposals of the multisig", run: runList})
	register("show", command{usage: "show the multisig or one proposal", run: runShow})
	register("parse", command{usage: "decode the instructions of a proposal", run: runParse})
}

// proposalParams 本地 keypair 同时作为发起人与手续费支付方
func proposalParams(ixs []soltypes.Instruction, signer ledger.Signer, memo *string) proposal.CreateParams {
	return proposal.CreateParams{
		Instructions: ixs,
		Creator:      signer,
		Memo:         memo,
	}
}

// memberListFlag "pubkey:vote+execute"，权限省略时为 all
type memberListFlag []multisig.Member

func (f *memberListFlag) String() string {
	parts := make([]string, 0, len(*f))
	for _, m := range *f {
		parts = append(parts, m.Key.ToBase58()+":"+m.Permissions.String())
	}
	return strings.Join(parts, ",")
}

func (f *memberListFlag) Set(s string) error {
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, perms, _ := strings.Cut(part, ":")
		k, err := types.TryPubkeyFromBase58(key)
		if err != nil {
			return err
		}
		p := multisig.AllPermissions()
		if perms != "" {
			if p, err = multisig.ParsePermissions(strings.Split(perms, "+")); err != nil {
				return err
			}
		}
		*f = append(*f, multisig.Member{Key: k, Permissions: p})
	}
	return nil
}

func runCreateMultisig(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("create-multisig")
	members := &memberListFlag{}
	fs.Var(members, "member", "member as pubkey[:initiate+vote+execute], comma separated or repeated")
	threshold := fs.Uint("threshold", 1, "approvals required")
	timeLock := fs.Uint("time-lock", 0, "seconds between approval and execution")
	configAuthority := pubkeyVar(fs, "config-authority", "config authority (default: autonomous)")
	rentCollector := pubkeyVar(fs, "rent-collector", "rent collector for closed accounts")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *threshold > 0xffff || *timeLock > 0xffffffff {
		return fmt.Errorf("threshold must fit in u16 and time lock in u32")
	}

	signer, err := a.loadSigner()
	if err != nil {
		return err
	}
	program, err := a.cfg.MultisigProgram()
	if err != nil {
		return err
	}
	res, err := proposal.CreateMultisig(ctx, a.sc.Ledger, program, proposal.CreateMultisigParams{
		Creator:         signer,
		ConfigAuthority: configAuthority.ptr(),
		Threshold:       uint16(*threshold),
		Members:         *members,
		TimeLock:        uint32(*timeLock),
		RentCollector:   rentCollector.ptr(),
		Memo:            a.memoPtr(),
	})
	if err != nil {
		return err
	}
	vault, err := multisig.VaultPda(program, res.Multisig, 0)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "multisig:   %s\ncreate key: %s\nvault #0:   %s\nsignature:  %s\n",
		res.Multisig.ToBase58(), res.CreateKey.ToBase58(), vault.Address.ToBase58(), res.Signature)
	return nil
}

func indexVar(fs *flag.FlagSet) *uint64 {
	return fs.Uint64("index", 0, "proposal transaction index")
}

func requireIndex(index uint64) error {
	if index == 0 {
		return fmt.Errorf("missing -index")
	}
	return nil
}

func voteCommand(action string) func(context.Context, *app, []string) error {
	return func(ctx context.Context, a *app, args []string) error {
		fs := newFlagSet(action)
		index := indexVar(fs)
		if err := fs.Parse(args); err != nil {
			return err
		}
		if err := requireIndex(*index); err != nil {
			return err
		}
		orch, err := a.sc.RequireOrchestrator()
		if err != nil {
			return err
		}
		signer, err := a.loadSigner()
		if err != nil {
			return err
		}

		var sig string
		switch action {
		case "approve":
			sig, err = orch.Approve(ctx, *index, signer, signer, a.memoPtr())
		case "reject":
			sig, err = orch.Reject(ctx, *index, signer, signer, a.memoPtr())
		default:
			sig, err = orch.Cancel(ctx, *index, signer, signer, a.memoPtr())
		}
		if err != nil {
			return err
		}
		if sig == "" {
			fmt.Fprintf(a.out, "%s #%d: vote already recorded\n", action, *index)
			return nil
		}
		fmt.Fprintf(a.out, "%s #%d: %s\n", action, *index, sig)
		return nil
	}
}

func runExecute(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("execute")
	index := indexVar(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireIndex(*index); err != nil {
		return err
	}
	orch, err := a.sc.RequireOrchestrator()
	if err != nil {
		return err
	}
	signer, err := a.loadSigner()
	if err != nil {
		return err
	}
	sig, err := orch.Execute(ctx, *index, signer, signer, nil)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "execute #%d: %s\n", *index, sig)
	return nil
}

func runList(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	orch, err := a.sc.RequireOrchestrator()
	if err != nil {
		return err
	}
	ms, err := orch.GetMultisig(ctx)
	if err != nil {
		return err
	}
	proposals, err := orch.GetProposals(ctx)
	if err != nil {
		return err
	}
	if len(proposals) == 0 {
		fmt.Fprintln(a.out, "no open proposals")
		return nil
	}
	fmt.Fprintf(a.out, "%-6s %-10s %-9s %-9s %s\n", "INDEX", "STATUS", "APPROVED", "REJECTED", "UPDATED")
	for _, p := range proposals {
		fmt.Fprintf(a.out, "%-6d %-10s %-9s %-9d %s\n",
			p.TransactionIndex, p.Status.Kind, fmt.Sprintf("%d/%d", len(p.Approved), ms.Threshold), len(p.Rejected), formatTimestamp(p.Status.Timestamp))
	}
	return nil
}

func formatTimestamp(ts int64) string {
	if ts == 0 {
		return "-"
	}
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}

func runShow(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("show")
	index := fs.Uint64("index", 0, "proposal index; 0 shows the multisig")
	if err := fs.Parse(args); err != nil {
		return err
	}
	orch, err := a.sc.RequireOrchestrator()
	if err != nil {
		return err
	}
	ms, err := orch.GetMultisig(ctx)
	if err != nil {
		return err
	}

	if *index == 0 {
		vault, err := orch.Vault()
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "multisig:          %s\nvault:             %s\nthreshold:         %d/%d\ntime lock:         %ds\ntransaction index: %d\nstale index:       %d\n",
			orch.Multisig().ToBase58(), vault.ToBase58(), ms.Threshold, len(ms.Members), ms.TimeLock, ms.TransactionIndex, ms.StaleTransactionIndex)
		if !types.IsZero(ms.ConfigAuthority) {
			fmt.Fprintf(a.out, "config authority:  %s\n", ms.ConfigAuthority.ToBase58())
		}
		fmt.Fprintln(a.out, "members:")
		for _, m := range ms.Members {
			fmt.Fprintf(a.out, "  %s %s\n", m.Key.ToBase58(), m.Permissions)
		}
		return nil
	}

	p, err := orch.GetProposal(ctx, *index)
	if err != nil {
		return err
	}
	status := p.Status.Kind.String()
	if *index <= ms.StaleTransactionIndex {
		status += " (stale)"
	}
	fmt.Fprintf(a.out, "proposal #%d\nstatus:    %s\nupdated:   %s\nthreshold: %d\n", p.TransactionIndex, status, formatTimestamp(p.Status.Timestamp), ms.Threshold)
	printVoters(a, "approved", p.Approved)
	printVoters(a, "rejected", p.Rejected)
	printVoters(a, "cancelled", p.Cancelled)
	return nil
}

func printVoters(a *app, label string, keys []types.Pubkey) {
	fmt.Fprintf(a.out, "%s (%d):\n", label, len(keys))
	for _, k := range keys {
		fmt.Fprintf(a.out, "  %s\n", k.ToBase58())
	}
}

func runParse(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("parse")
	index := indexVar(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireIndex(*index); err != nil {
		return err
	}
	orch, err := a.sc.RequireOrchestrator()
	if err != nil {
		return err
	}
	ixs, err := orch.ParseInstructions(ctx, *index)
	if err != nil {
		return err
	}
	for i, ix := range ixs {
		name := ix.Name
		if name == "" {
			name = "unknown"
		}
		fmt.Fprintf(a.out, "#%d %s program=%s\n", i, name, ix.ProgramID.ToBase58())
		for j, acc := range ix.Accounts {
			fmt.Fprintf(a.out, "   [%2d] %s%s %s\n", j, flagChar(acc.IsSigner, "s"), flagChar(acc.IsWritable, "w"), acc.Pubkey.ToBase58())
		}
		fmt.Fprintf(a.out, "   data: %s\n", hex.EncodeToString(ix.Data))
	}
	return nil
}
