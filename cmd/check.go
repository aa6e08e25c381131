package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	portfolio "github.com/rcolo88/Trading-sub001"
)

// checkCmd holds the flags for the 'check' subcommand.
type checkCmd struct{}

func (*checkCmd) Name() string     { return "check" }
func (*checkCmd) Synopsis() string { return "parse an advisory document without executing anything" }
func (*checkCmd) Usage() string {
	return `tsub check <orders.md>

  Parses the document and reports every extracted order, parse error and
  warning. Nothing is fetched, executed or written. Exits non-zero when the
  document contains malformed order lines.
`
}

func (*checkCmd) SetFlags(_ *flag.FlagSet) {}

func (c *checkCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: expected exactly one advisory document")
		return subcommands.ExitUsageError
	}
	doc, err := os.ReadFile(f.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading advisory document: %v\n", err)
		return subcommands.ExitFailure
	}

	orders, perrs, warns, err := portfolio.ParseDocument(doc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	for _, o := range orders {
		fmt.Printf("line %d: [%s] %s\n", o.SourceLine, o.Priority, o)
	}
	for _, w := range warns {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	for _, e := range perrs {
		fmt.Fprintf(os.Stderr, "error: %s\n", e)
	}

	fmt.Printf("%d orders, %d errors, %d warnings\n", len(orders), len(perrs), len(warns))
	if len(perrs) > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
