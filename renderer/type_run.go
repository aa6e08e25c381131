package renderer

import (
	"fmt"

	portfolio "github.com/rcolo88/Trading-sub001"
)

// Run is the flat view of one run outcome, ready for templating.
type Run struct {
	Title       string
	DryRun      bool
	ResultRows  []ResultRow
	PlanRows    []ResultRow
	ParseErrors []string
	Warnings    []string
	NAV         string
	Cash        string
	Consensus   bool
	Failures    []string
	Drift       []string
	Valuations  []ValuationRow
}

// ResultRow is one order outcome line.
type ResultRow struct {
	Line      int
	Action    string
	Ticker    string
	Requested string
	Filled    string
	Price     string
	Status    string
	Reason    string
}

// ValuationRow is one NAV recomputation line.
type ValuationRow struct {
	Method string
	NAV    string
	Detail string
}

// NewRun builds the run view from a run outcome and the ledger it ran
// against.
func NewRun(out *portfolio.RunOutcome, cash portfolio.Money) *Run {
	v := &Run{
		Title:     "Trade Execution Report",
		DryRun:    out.DryRun,
		NAV:       out.NAV.String(),
		Cash:      cash.String(),
		Consensus: out.Validation.Consensus(),
	}
	if out.DryRun {
		v.Title = "Trade Plan (dry run)"
		for _, so := range out.Schedule.Orders() {
			v.PlanRows = append(v.PlanRows, ResultRow{
				Line:      so.SourceLine,
				Action:    string(so.Action),
				Ticker:    so.Ticker,
				Requested: so.Resolved.String(),
				Filled:    so.Decision.Fill.String(),
				Price:     so.Quote.Price.String(),
				Status:    string(so.Decision.Status),
				Reason:    so.Decision.Reason,
			})
		}
	}
	for _, r := range out.Results {
		v.ResultRows = append(v.ResultRows, ResultRow{
			Line:      r.SourceLine,
			Action:    string(r.Action),
			Ticker:    r.Ticker,
			Requested: r.Requested.String(),
			Filled:    r.Filled.String(),
			Price:     r.Price.String(),
			Status:    string(r.Status),
			Reason:    r.Reason,
		})
	}
	for _, e := range out.ParseErrors {
		v.ParseErrors = append(v.ParseErrors, e.Error())
	}
	for _, w := range out.Warnings {
		v.Warnings = append(v.Warnings, w.String())
	}
	for _, f := range out.Validation.Failures {
		v.Failures = append(v.Failures, f.String())
	}
	v.Drift = append(v.Drift, out.Validation.Drift...)
	for _, val := range out.Validation.Valuations {
		v.Valuations = append(v.Valuations, ValuationRow{
			Method: string(val.Method),
			NAV:    val.NAV.String(),
			Detail: val.Detail,
		})
	}
	return v
}

// RunMarkdown renders the Run view to a markdown string.
func RunMarkdown(r *Run) string {
	partials := map[string]string{
		"run_orders":     "run_orders.md",
		"run_errors":     "run_errors.md",
		"run_validation": "run_validation.md",
	}
	return renderTemplate("run", "run.md", partials, r)
}

// Holding is the flat view of current portfolio state.
type Holding struct {
	AsOf   string
	Cash   string
	NAV    string
	Policy string
	Rows   []HoldingRow
}

// HoldingRow is one position line.
type HoldingRow struct {
	Ticker string
	Shares string
	Price  string
	Value  string
	Score  string
}

// NewHolding builds the holdings view. The scorer is optional; when nil the
// score column renders as "-".
func NewHolding(l *portfolio.Ledger, quotes map[string]portfolio.Quote, scorer portfolio.Scorer) *Holding {
	policy, _ := l.Policy()
	h := &Holding{
		AsOf:   l.AsOf().Format("2006-01-02 15:04"),
		Cash:   l.Cash().String(),
		Policy: policy.String(),
	}
	total := l.Cash()
	for ticker, shares := range l.Positions() {
		row := HoldingRow{Ticker: ticker, Shares: shares.String(), Price: "-", Value: "-", Score: "-"}
		if q, ok := quotes[ticker]; ok {
			value := q.Price.Mul(shares)
			total = total.Add(value)
			row.Price = q.Price.String()
			row.Value = value.String()
		}
		if scorer != nil {
			if s, err := scorer.Score(ticker); err == nil {
				row.Score = fmt.Sprintf("%.0f", s)
			}
		}
		h.Rows = append(h.Rows, row)
	}
	h.NAV = total.String()
	return h
}

// HoldingMarkdown renders the Holding view to a markdown string.
func HoldingMarkdown(h *Holding) string {
	return renderTemplate("holding", "holding.md", nil, h)
}
