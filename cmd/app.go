// Package cmd implements the CLI application that turns advisory documents
// into executed trades.
package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	portfolio "github.com/rcolo88/Trading-sub001"
)

// Commands lists the subcommands in help order. A main package registers
// them on its commander.
var Commands = []subcommands.Command{
	&runCmd{},
	&checkCmd{},
	&reportCmd{},
	&validateCmd{},
	&approveCmd{},
	&draftCmd{},
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var configFile = flag.String("config", "tsub.yaml", "Path to the YAML configuration file")

// appConfig loads the configuration once per invocation.
func appConfig() (*portfolio.Config, error) {
	return portfolio.LoadConfig(*configFile)
}

// decodeLedger loads the ledger, creating a fresh one when the file does not
// exist yet.
func decodeLedger(cfg *portfolio.Config, openingCash portfolio.Money) (*portfolio.Ledger, error) {
	l, err := portfolio.LoadLedger(cfg.LedgerFile)
	if errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: ledger %q does not exist, starting a new one\n", cfg.LedgerFile)
		return portfolio.NewLedger(openingCash, time.Now()), nil
	}
	return l, err
}

// printMarkdown renders markdown to the terminal. Rendering failures fall
// back to the raw text so a styling problem never hides a report.
func printMarkdown(md string) {
	out, err := glamour.Render(md, "auto")
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}
