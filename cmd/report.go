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

// reportCmd holds the flags for the 'report' subcommand.
type reportCmd struct {
	offline bool
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "display current holdings, cash and net asset value" }
func (*reportCmd) Usage() string {
	return `tsub report [-offline]

  Displays the portfolio state from the ledger. Quotes are fetched to value
  positions; -offline skips the fetch and leaves the value columns empty.
  The report never mutates any state file.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.offline, "offline", false, "do not fetch quotes")
}

func (c *reportCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	quotes := map[string]portfolio.Quote{}
	if !c.offline {
		var failures map[string]error
		quotes, failures = portfolio.FetchQuotes(cfg.NewFeed(), holdingTickers(ledger))
		for ticker, err := range failures {
			fmt.Fprintf(os.Stderr, "warning: no quote for %s: %v\n", ticker, err)
		}
	}

	printMarkdown(renderer.HoldingMarkdown(renderer.NewHolding(ledger, quotes, nil)))
	return subcommands.ExitSuccess
}

func holdingTickers(l *portfolio.Ledger) []string {
	var tickers []string
	for t := range l.Positions() {
		tickers = append(tickers, t)
	}
	return tickers
}
