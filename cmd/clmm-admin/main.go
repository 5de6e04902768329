package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"clmm-admin-sol/internal/config"
	"clmm-admin-sol/internal/ledger"
	"clmm-admin-sol/internal/logic/clmm"
	"clmm-admin-sol/internal/svc"
	"clmm-admin-sol/internal/types"
	"clmm-admin-sol/pkg/logger"

	soltypes "github.com/blocto/solana-go-sdk/types"
)

var (
	configFile  = flag.String("f", "etc/clmm-admin.yaml", "the config file")
	keypairPath = flag.String("keypair", "", "signer keypair file, overrides the config")
	propose     = flag.Bool("propose", false, "wrap the instructions into a multisig proposal (vault as authority)")
	simulate    = flag.Bool("simulate", false, "simulate instead of submitting; with -propose only print the instructions")
	memo        = flag.String("memo", "", "memo attached to proposal operations")
)

// command 子命令；offline 的命令不需要 RPC
type command struct {
	usage   string
	offline bool
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{}

func register(name string, cmd command) {
	commands[name] = cmd
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "usage: clmm-admin [global flags] <command> [command flags]\n\nglobal flags:\n")
	flag.PrintDefaults()
	fmt.Fprintf(out, "\ncommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-26s %s\n", name, commands[name].usage)
	}
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	name := flag.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", name)
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cmd.offline)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		os.Exit(1)
	}
	defer a.close()

	if err := cmd.run(ctx, a, flag.Args()[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		if kind := ledger.Classify(err); kind != ledger.KindValidation {
			fmt.Fprintf(os.Stderr, "error kind: %s, retryable: %t\n", kind, ledger.IsRetryable(err))
		}
		os.Exit(1)
	}
}

// app 一次命令执行所需的上下文
type app struct {
	cfg      *config.Config
	sc       *svc.ServiceContext // offline 命令为 nil
	asm      *clmm.Assembler
	signer   ledger.Signer
	propose  bool
	simulate bool
	memo     string
	out      io.Writer
}

func newApp(offline bool) (*app, error) {
	cfg, err := config.Load(*configFile)
	if err != nil {
		if !offline {
			return nil, err
		}
		// 离线命令允许没有配置文件
		cfg, _ = config.Parse(nil)
	}
	if err := logger.InitLogger(cfg.LogConf.ToLogOption()); err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		propose:  *propose,
		simulate: *simulate,
		memo:     *memo,
		out:      os.Stdout,
	}
	if offline {
		program, err := cfg.ClmmProgram()
		if err != nil {
			return nil, err
		}
		a.asm = clmm.NewAssembler(program)
		return a, nil
	}

	a.sc, err = svc.NewServiceContext(cfg)
	if err != nil {
		return nil, err
	}
	a.asm = a.sc.Assembler
	return a, nil
}

func (a *app) close() {
	if a.sc != nil {
		a.sc.Close()
	}
	logger.Sync()
}

// loadSigner 命令行 -keypair 优先，其次配置文件
func (a *app) loadSigner() (ledger.Signer, error) {
	if a.signer != nil {
		return a.signer, nil
	}
	path := *keypairPath
	if path == "" {
		path = a.cfg.Keypair
	}
	if path == "" {
		return nil, ledger.ErrNoFeePayer
	}
	s, err := ledger.LoadKeypair(expandHome(path))
	if err != nil {
		return nil, err
	}
	a.signer = s
	return s, nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// authority 管理指令的签名者：-propose 时为 multisig vault，否则为本地 keypair
func (a *app) authority() (types.Pubkey, error) {
	if a.propose {
		orch, err := a.sc.RequireOrchestrator()
		if err != nil {
			return types.Pubkey{}, err
		}
		return orch.Vault()
	}
	s, err := a.loadSigner()
	if err != nil {
		return types.Pubkey{}, err
	}
	return s.PublicKey(), nil
}

func (a *app) memoPtr() *string {
	if a.memo == "" {
		return nil
	}
	m := a.memo
	return &m
}

// submit 直接提交、模拟，或包装为提案
func (a *app) submit(ctx context.Context, ixs ...soltypes.Instruction) error {
	signer, err := a.loadSigner()
	if err != nil {
		return err
	}

	if a.propose {
		if a.simulate {
			a.printInstructions(ixs)
			return nil
		}
		orch, err := a.sc.RequireOrchestrator()
		if err != nil {
			return err
		}
		res, err := orch.CreateProposal(ctx, proposalParams(ixs, signer, a.memoPtr()))
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "proposal #%d created\n  transaction: %s\n  proposal:    %s\n  signatures:  %s, %s\n",
			res.TransactionIndex, res.Transaction.ToBase58(), res.Proposal.ToBase58(), res.CreateSignature, res.ProposalSignature)
		return nil
	}

	env := &ledger.Envelope{
		FeePayer:     signer,
		Instructions: ixs,
		Budget:       a.cfg.ComputeBudget.ToComputeBudget(),
	}
	if a.simulate {
		sim, err := ledger.Simulate(ctx, a.sc.Ledger, env)
		if err != nil {
			return err
		}
		for _, line := range sim.Logs {
			fmt.Fprintln(a.out, line)
		}
		if sim.Err != "" {
			return fmt.Errorf("%w: %s", ledger.ErrTransactionFailed, sim.Err)
		}
		fmt.Fprintln(a.out, "simulation ok")
		return nil
	}

	sig, err := ledger.SubmitAndConfirm(ctx, a.sc.Ledger, env)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "confirmed: %s\n", sig)
	return nil
}

func (a *app) printInstructions(ixs []soltypes.Instruction) {
	for i, ix := range ixs {
		name, _ := clmm.InstructionName(ix.Data)
		fmt.Fprintf(a.out, "#%d %s program=%s data=%d bytes\n", i, name, ix.ProgramID.ToBase58(), len(ix.Data))
		for j, m := range ix.Accounts {
			fmt.Fprintf(a.out, "   [%2d] %s%s %s\n", j, flagChar(m.IsSigner, "s"), flagChar(m.IsWritable, "w"), m.PubKey.ToBase58())
		}
	}
}

func flagChar(on bool, c string) string {
	if on {
		return c
	}
	return "-"
}
