package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"
	portfolio "github.com/rcolo88/Trading-sub001"
	"github.com/rcolo88/Trading-sub001/renderer"
)

// runCmd holds the flags for the 'run' subcommand.
type runCmd struct {
	dryRun      bool
	force       bool
	openingCash float64
	policy      string
	reserve     float64
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "parse an advisory document and execute its orders" }
func (*runCmd) Usage() string {
	return `tsub run [-n] [-force] [-policy <name>] <orders.md>

  Parses the ORDERS section of a markdown advisory document, plans cash
  flows (sells first, then buys by priority), executes against the ledger,
  and cross-validates the result. With -n nothing is executed or written;
  the plan is printed instead.
`
}

func (c *runCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.dryRun, "n", false, "plan only, execute nothing and write nothing")
	f.BoolVar(&c.force, "force", false, "run even when the market is closed")
	f.Float64Var(&c.openingCash, "cash", 100, "opening cash when starting a new ledger")
	f.StringVar(&c.policy, "policy", "", "override the fill policy: automatic, reject, ask or smart")
	f.Float64Var(&c.reserve, "reserve", -1, "override the minimum cash reserve")
}

func (c *runCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: expected exactly one advisory document")
		return subcommands.ExitUsageError
	}

	cfg, err := appConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}

	if !c.dryRun && !c.force {
		open, err := cfg.Hours.IsOpen(time.Now())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error checking market hours: %v\n", err)
			return subcommands.ExitFailure
		}
		if !open {
			fmt.Fprintln(os.Stderr, "Market is closed; use -force to run anyway or -n to preview")
			return subcommands.ExitFailure
		}
	}

	doc, err := os.ReadFile(f.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading advisory document: %v\n", err)
		return subcommands.ExitFailure
	}

	ledger, err := decodeLedger(cfg, portfolio.USD(c.openingCash))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.policy != "" {
		p, err := portfolio.ParseFillPolicy(c.policy)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
		_, params := ledger.Policy()
		ledger.SetPolicy(p, params)
	}
	if c.reserve >= 0 {
		p, params := ledger.Policy()
		params.MinCashReserve = portfolio.USD(c.reserve)
		ledger.SetPolicy(p, params)
	}

	prior, err := portfolio.LoadTradeLog(cfg.TradeLogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading trade log: %v\n", err)
		return subcommands.ExitFailure
	}
	history, err := portfolio.LoadHistory(cfg.HistoryFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading history: %v\n", err)
		return subcommands.ExitFailure
	}
	approvals, err := portfolio.LoadApprovals(cfg.ApprovalsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading approvals: %v\n", err)
		return subcommands.ExitFailure
	}

	out, err := portfolio.Run(doc, ledger, cfg.NewFeed(), approvals, prior, history, c.dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	if !c.dryRun {
		if err := persistRun(cfg, ledger, out); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving run: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	printMarkdown(renderer.RunMarkdown(renderer.NewRun(out, ledger.Cash())))

	if !c.dryRun && !out.Validation.Consensus() {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// persistRun writes the three run artifacts: the ledger (atomically), the
// trade log (append) and the history export (append). The trade log is
// written first so a crash between the two leaves trades re-playable rather
// than lost.
func persistRun(cfg *portfolio.Config, ledger *portfolio.Ledger, out *portfolio.RunOutcome) error {
	if err := portfolio.AppendTradeLog(cfg.TradeLogFile, out.Results); err != nil {
		return err
	}
	if err := portfolio.SaveLedger(cfg.LedgerFile, ledger); err != nil {
		return err
	}
	positions := 0
	for range ledger.Positions() {
		positions++
	}
	return portfolio.AppendHistory(cfg.HistoryFile, portfolio.HistoryRecord{
		On:        time.Now(),
		NAV:       out.NAV,
		Cash:      ledger.Cash(),
		Positions: positions,
	})
}
