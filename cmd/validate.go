package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	portfolio "github.com/rcolo88/Trading-sub001"
	"github.com/rcolo88/Trading-sub001/renderer"
)

// validateCmd holds the flags for the 'validate' subcommand.
type validateCmd struct {
	offline bool
}

func (*validateCmd) Name() string { return "validate" }
func (*validateCmd) Synopsis() string {
	return "cross-check the ledger against the trade log and history"
}
func (*validateCmd) Usage() string {
	return `tsub validate [-offline]

  Recomputes the portfolio value independently from the ledger, from a full
  trade-log replay, and from the history export, and reports any
  disagreement. The check is read-only and idempotent: validating twice in
  a row yields the same report. Exits non-zero on a consensus failure.
`
}

func (c *validateCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.offline, "offline", false, "do not fetch quotes, compare cash and positions only")
}

func (c *validateCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := appConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	ledger, err := portfolio.LoadLedger(cfg.LedgerFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	results, err := portfolio.LoadTradeLog(cfg.TradeLogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading trade log: %v\n", err)
		return subcommands.ExitFailure
	}
	history, err := portfolio.LoadHistory(cfg.HistoryFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading history: %v\n", err)
		return subcommands.ExitFailure
	}

	quotes := map[string]portfolio.Quote{}
	if !c.offline {
		var failures map[string]error
		quotes, failures = portfolio.FetchQuotes(cfg.NewFeed(), holdingTickers(ledger))
		for ticker, err := range failures {
			fmt.Fprintf(os.Stderr, "warning: no quote for %s: %v\n", ticker, err)
		}
	}

	report := portfolio.Validate(ledger, results, history, quotes)
	printMarkdown(renderer.ValidationMarkdown(renderer.NewValidation(report)))

	if !report.Consensus() {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
