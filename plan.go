package portfolio

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"
)

// ScheduledOrder is one order annotated by the planner with everything the
// execution engine needs: the resolved quantity, the quote used, and the
// fill decision.
type ScheduledOrder struct {
	Order
	// Resolved is the requested quantity after resolving the "all" sentinel
	// and capping sells at the owned share count.
	Resolved Quantity
	Quote    Quote
	Decision FillDecision
}

// Schedule is the planner's output: sells first in document order, then buys
// in priority order, then the orders that touch no cash (holds and risk
// parameter updates).
type Schedule struct {
	Sells       []ScheduledOrder
	Buys        []ScheduledOrder
	Adjustments []ScheduledOrder
}

// Orders iterates the schedule in execution order.
func (s *Schedule) Orders() []ScheduledOrder {
	all := make([]ScheduledOrder, 0, len(s.Sells)+len(s.Buys)+len(s.Adjustments))
	all = append(all, s.Sells...)
	all = append(all, s.Buys...)
	all = append(all, s.Adjustments...)
	return all
}

// Plan computes an execution schedule. It is a pure function of its inputs:
// it never mutates the snapshot and performs no I/O (quotes and quote
// failures are resolved by the caller beforehand).
//
// Sells are scheduled first, in document order, and each sell's proceeds are
// immediately available to subsequent buys. Buys run against a cash balance
// that starts at snapshot cash minus the configured reserve, ordered
// HIGH over MEDIUM over LOW, then document order within a tier.
func Plan(orders []Order, snap Snapshot, quotes map[string]Quote, quoteErrs map[string]error, approvals Approvals) *Schedule {
	s := &Schedule{}

	var sells, buys, adjusts []Order
	for _, o := range orders {
		switch {
		case o.Action.IsSell():
			sells = append(sells, o)
		case o.Action == ActionBuy:
			buys = append(buys, o)
		default:
			adjusts = append(adjusts, o)
		}
	}
	// Stable: document order is preserved within a priority tier.
	slices.SortStableFunc(buys, func(a, b Order) int { return int(a.Priority) - int(b.Priority) })

	running := snap.Cash.Sub(snap.Params.MinCashReserve)
	projected := maps.Clone(snap.Holdings)
	if projected == nil {
		projected = make(map[string]Quantity)
	}

	for _, o := range sells {
		so := planSell(o, projected, quotes, quoteErrs)
		if so.Decision.Fill.IsPositive() {
			projected[o.Ticker] = projected[o.Ticker].Sub(so.Decision.Fill)
			running = running.Add(so.Quote.Price.Mul(so.Decision.Fill))
		}
		s.Sells = append(s.Sells, so)
	}

	for _, o := range buys {
		so := planBuy(o, running, snap, quotes, quoteErrs, approvals)
		if so.Decision.Fill.IsPositive() {
			projected[o.Ticker] = projected[o.Ticker].Add(so.Decision.Fill)
			running = running.Sub(so.Quote.Price.Mul(so.Decision.Fill))
		}
		s.Buys = append(s.Buys, so)
	}

	// Adjustments execute last, so a stop-loss on a ticker bought earlier in
	// the same document is valid. They are checked against the projected
	// holdings, not the opening snapshot.
	for _, o := range adjusts {
		s.Adjustments = append(s.Adjustments, planAdjustment(o, projected, quotes))
	}
	return s
}

// planSell resolves and caps one sell-side order against the projected
// holdings.
func planSell(o Order, projected map[string]Quantity, quotes map[string]Quote, quoteErrs map[string]error) ScheduledOrder {
	so := ScheduledOrder{Order: o}

	owned := projected[o.Ticker]
	if owned.IsZero() {
		so.Decision = notHeld(o.Ticker)
		return so
	}

	// Resolve the "all" sentinel at plan time, not parse time: holdings may
	// have changed since the document was written.
	requested := owned
	if o.Quantity.Kind == QtyShares {
		requested = o.Quantity.Shares
	}
	so.Resolved = requested

	var capped bool
	if requested.GreaterThan(owned) {
		// A sell for more shares than owned is not an error: it caps at the
		// owned quantity, and the cap is flagged prominently in the reason.
		requested = owned
		capped = true
	}

	q, ok := priceFor(o.Ticker, quotes, quoteErrs, &so)
	if !ok {
		return so
	}
	so.Quote = q

	so.Decision = FillDecision{Status: Executed, Fill: requested}
	if capped {
		so.Decision.Reason = fmt.Sprintf("capped at owned quantity %s (requested %s)", owned, so.Resolved)
	}
	annotateStale(&so)
	return so
}

// planBuy evaluates one buy order against the remaining cash balance under
// the snapshot's partial-fill policy.
func planBuy(o Order, running Money, snap Snapshot, quotes map[string]Quote, quoteErrs map[string]error, approvals Approvals) ScheduledOrder {
	so := ScheduledOrder{Order: o}

	if o.Quantity.Kind != QtyShares {
		// "buy all" has no referent; the grammar should not produce it.
		so.Decision = FillDecision{Status: Rejected, Fill: Q(0), Reason: "AMBIGUOUS_QUANTITY: buy requires an explicit share count"}
		return so
	}
	so.Resolved = o.Quantity.Shares

	q, ok := priceFor(o.Ticker, quotes, quoteErrs, &so)
	if !ok {
		return so
	}
	so.Quote = q

	required := q.Price.Mul(so.Resolved)
	policy := snap.Policy
	approval, approved := approvals.Match(o)
	if policy == FillAskConfirmation && approved {
		// The out-of-band approval releases the deferred order; it fills
		// whatever is affordable now.
		policy = FillAutomatic
	}

	so.Decision = decideFill(policy, running, required, q.Price, so.Resolved, snap.Params)
	if approved && so.Decision.Status != Deferred {
		so.Decision.Reason = joinReason(so.Decision.Reason, "approved on "+approval.On.Format(time.DateOnly))
	}
	annotateStale(&so)
	return so
}

// planAdjustment handles HOLD and the SET-style risk parameter orders, which
// never move shares or cash.
func planAdjustment(o Order, projected map[string]Quantity, quotes map[string]Quote) ScheduledOrder {
	so := ScheduledOrder{Order: o}
	if q, ok := quotes[o.Ticker]; ok {
		so.Quote = q
	}

	switch o.Action {
	case ActionHold:
		// A hold always executes and reports the current position, zero
		// included: it changes no state, so there is nothing to reject.
		so.Resolved = projected[o.Ticker]
		so.Decision = FillDecision{Status: Executed, Fill: so.Resolved, Reason: "position held"}
	case ActionSetStopLoss:
		if !projected[o.Ticker].IsPositive() {
			so.Decision = notHeld(o.Ticker)
			return so
		}
		so.Decision = FillDecision{Status: Executed, Fill: Q(0), Reason: fmt.Sprintf("stop-loss set to %s", o.Quantity.Percent.SignedString())}
	case ActionUpdateProfitTarget:
		if !projected[o.Ticker].IsPositive() {
			so.Decision = notHeld(o.Ticker)
			return so
		}
		so.Decision = FillDecision{Status: Executed, Fill: Q(0), Reason: fmt.Sprintf("profit target set to %s", o.Quantity.Percent.SignedString())}
	default:
		so.Decision = FillDecision{Status: Rejected, Fill: Q(0), Reason: fmt.Sprintf("unsupported action %s", o.Action)}
	}
	return so
}

func notHeld(ticker string) FillDecision {
	return FillDecision{Status: Rejected, Fill: Q(0), Reason: "NOT_HELD: no position in " + ticker}
}

// priceFor fills in the quote for a scheduled order, or records the terminal
// decision when no price is available. An unknown ticker is a rejection, a
// transient feed failure defers the order to a later run.
func priceFor(ticker string, quotes map[string]Quote, quoteErrs map[string]error, so *ScheduledOrder) (Quote, bool) {
	if q, ok := quotes[ticker]; ok {
		return q, true
	}
	err := quoteErrs[ticker]
	if errors.Is(err, ErrNoPriceData) {
		so.Decision = FillDecision{Status: Rejected, Fill: Q(0), Reason: "NO_PRICE_DATA: " + ticker + " unknown to the price feed"}
	} else {
		so.Decision = FillDecision{Status: Deferred, Fill: Q(0), Reason: fmt.Sprintf("PRICE_UNAVAILABLE: %v", err)}
	}
	return Quote{}, false
}

// annotateStale records in the reason that the plan used a stale cached
// price.
func annotateStale(so *ScheduledOrder) {
	if !so.Quote.Stale {
		return
	}
	note := fmt.Sprintf("stale price %s as of %s", so.Quote.Price, so.Quote.On.Format(time.RFC3339))
	so.Decision.Reason = joinReason(so.Decision.Reason, note)
}

func joinReason(reason, note string) string {
	if reason == "" {
		return note
	}
	return reason + "; " + note
}
