package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/subcommands"
	portfolio "github.com/rcolo88/Trading-sub001"
)

// approveCmd holds the flags for the 'approve' subcommand.
type approveCmd struct {
	action string
}

func (*approveCmd) Name() string     { return "approve" }
func (*approveCmd) Synopsis() string { return "release a deferred order for the next run" }
func (*approveCmd) Usage() string {
	return `tsub approve [-a <action>] <ticker> <shares>

  Records an approval for an order the ask policy deferred. On the next run
  a matching order executes as if the policy were automatic. The approval
  matches on ticker, action and exact share count.

Usage Examples:
# Release a deferred buy of 15 NVDA shares.
$ tsub approve NVDA 15
`
}

func (c *approveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.action, "a", "BUY", "action the approval applies to")
}

func (c *approveCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "Error: expected a ticker and a share count")
		return subcommands.ExitUsageError
	}
	ticker := f.Arg(0)
	if !portfolio.ValidTicker(ticker) {
		fmt.Fprintf(os.Stderr, "Error: %q is not a valid ticker\n", ticker)
		return subcommands.ExitUsageError
	}
	shares, err := strconv.ParseInt(f.Arg(1), 10, 64)
	if err != nil || shares <= 0 {
		fmt.Fprintf(os.Stderr, "Error: %q is not a positive share count\n", f.Arg(1))
		return subcommands.ExitUsageError
	}

	cfg, err := appConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}

	a := portfolio.Approval{
		Ticker:   ticker,
		Action:   portfolio.Action(c.action),
		Quantity: portfolio.Q(shares),
		On:       time.Now(),
	}
	if err := portfolio.AppendApproval(cfg.ApprovalsFile, a); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing approval: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Successfully recorded approval for %s %s x%d\n", a.Action, a.Ticker, shares)
	return subcommands.ExitSuccess
}
