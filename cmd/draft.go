package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"
	portfolio "github.com/rcolo88/Trading-sub001"
	"github.com/rcolo88/Trading-sub001/renderer"
	"google.golang.org/genai"
)

// draftCmd holds the flags for the 'draft' subcommand.
type draftCmd struct {
	model string
}

func (*draftCmd) Name() string     { return "draft" }
func (*draftCmd) Synopsis() string { return "draft an advisory document from the current holdings" }
func (*draftCmd) Usage() string {
	return `tsub draft [-m <model>] [instructions...]

  Asks Gemini to draft an advisory document for the current portfolio, in
  the exact markdown grammar the run command parses (an ORDERS section with
  priority subsections and bold order lines). The draft is printed to
  stdout for review; nothing is executed.
`
}

func (c *draftCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.model, "m", "gemini-2.5-flash", "Gemini model to draft with")
}

func (c *draftCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error initializing Gemini's client:", err)
		return subcommands.ExitFailure
	}

	chat, err := client.Chats.Create(ctx, c.model, nil, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error starting chat:", err)
		return subcommands.ExitFailure
	}

	prompt := draftPrompt(ledger, strings.Join(f.Args(), " "))
	resp, err := chat.Send(ctx, &genai.Part{Text: prompt})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error drafting document:", err)
		return subcommands.ExitFailure
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		fmt.Fprintln(os.Stderr, "Error: empty response from model")
		return subcommands.ExitFailure
	}

	fmt.Println(resp.Candidates[0].Content.Parts[0].Text)
	return subcommands.ExitSuccess
}

// draftPrompt assembles the drafting instructions: the grammar the parser
// accepts, the current holdings, and whatever the operator asked for.
func draftPrompt(l *portfolio.Ledger, instructions string) string {
	var b strings.Builder
	b.WriteString("Draft a markdown trade advisory document. It must contain a '## ORDERS' section ")
	b.WriteString("with '### HIGH PRIORITY', '### MEDIUM PRIORITY' and '### LOW PRIORITY' subsections. ")
	b.WriteString("Each order is a single bold line starting with one of: BUY, SELL, SELL ALL, HOLD, ")
	b.WriteString("REDUCE, SET STOP-LOSS, UPDATE PROFIT-TARGET; followed by an explicit share count ")
	b.WriteString("(or a percent for risk updates), the uppercase ticker, a ' - ' separator and a reasoning clause.\n\n")
	b.WriteString("Current portfolio:\n\n")
	b.WriteString(renderer.HoldingMarkdown(renderer.NewHolding(l, nil, nil)))
	if instructions != "" {
		b.WriteString("\nAdditional instructions: ")
		b.WriteString(instructions)
		b.WriteString("\n")
	}
	return b.String()
}
