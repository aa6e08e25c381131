package portfolio

import (
	"strings"
	"testing"
	"time"
)

func testEngine(l *Ledger, prior []TradeResult) *Engine {
	e := NewEngine(l, prior)
	// Deterministic clock so result keys are stable across the test.
	tick := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	e.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	return e
}

func TestEngine_SellAll(t *testing.T) {
	l := NewLedger(USD(2), time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
	if err := l.Commit([]Delta{{Ticker: "SOUN", Shares: Q(19), Cash: USD(0)}}); err != nil {
		t.Fatal(err)
	}

	orders := []Order{{Action: ActionSellAll, Ticker: "SOUN", Quantity: QuantityExpr{Kind: QtyAll}, SourceLine: 12}}
	quotes := quotesOf(map[string]float64{"SOUN": 10.65})
	s := Plan(orders, l.Snapshot(), quotes, nil, nil)

	results := testEngine(l, nil).Execute(s)

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	r := results[0]
	if r.Status != Executed || r.Filled.Int() != 19 {
		t.Fatalf("result = %+v, want 19 shares executed", r)
	}
	if !r.CashDelta.Equal(USD(202.35)) {
		t.Errorf("cash delta = %s, want $202.35", r.CashDelta)
	}
	if !l.Cash().Equal(USD(204.35)) {
		t.Errorf("cash = %s, want $204.35", l.Cash())
	}
	if l.Holds("SOUN") {
		t.Error("SOUN position should be gone after SELL ALL")
	}
}

func TestEngine_BuyMovesCashAndShares(t *testing.T) {
	l := NewLedger(USD(500), time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))

	orders := []Order{{Action: ActionBuy, Ticker: "NVDA", Quantity: QuantityExpr{Kind: QtyShares, Shares: Q(3)}}}
	s := Plan(orders, l.Snapshot(), quotesOf(map[string]float64{"NVDA": 150}), nil, nil)

	results := testEngine(l, nil).Execute(s)

	if r := results[0]; r.Status != Executed || r.Filled.Int() != 3 {
		t.Fatalf("result = %+v, want 3 shares executed", r)
	}
	if !l.Cash().Equal(USD(50)) {
		t.Errorf("cash = %s, want $50.00", l.Cash())
	}
	if got := l.Position("NVDA").Int(); got != 3 {
		t.Errorf("position = %d, want 3", got)
	}
}

func TestEngine_RejectedOrderDoesNotMutate(t *testing.T) {
	l := NewLedger(USD(50), time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
	l.SetPolicy(FillReject, DefaultPolicyParams())

	orders := []Order{{Action: ActionBuy, Ticker: "NVDA", Quantity: QuantityExpr{Kind: QtyShares, Shares: Q(15)}}}
	s := Plan(orders, l.Snapshot(), quotesOf(map[string]float64{"NVDA": 170}), nil, nil)

	results := testEngine(l, nil).Execute(s)

	if r := results[0]; r.Status != Rejected || !r.Filled.IsZero() {
		t.Fatalf("result = %+v, want rejection with zero fill", r)
	}
	if !l.Cash().Equal(USD(50)) {
		t.Errorf("cash = %s, rejected order must not touch it", l.Cash())
	}
	if l.Holds("NVDA") {
		t.Error("rejected order must not open a position")
	}
}

func TestEngine_RunContinuesAfterFailure(t *testing.T) {
	// Order 2 of 3 fails on a missing price; 1 and 3 still settle. The run
	// is per-order atomic, not transactional as a whole.
	l := NewLedger(USD(1000), time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))

	orders := []Order{
		{Action: ActionBuy, Ticker: "AAA", Priority: High, Quantity: QuantityExpr{Kind: QtyShares, Shares: Q(1)}},
		{Action: ActionBuy, Ticker: "BBB", Priority: Medium, Quantity: QuantityExpr{Kind: QtyShares, Shares: Q(1)}},
		{Action: ActionBuy, Ticker: "CCC", Priority: Low, Quantity: QuantityExpr{Kind: QtyShares, Shares: Q(1)}},
	}
	quotes := quotesOf(map[string]float64{"AAA": 10, "CCC": 10})
	quoteErrs := map[string]error{"BBB": ErrNoPriceData}

	s := Plan(orders, l.Snapshot(), quotes, quoteErrs, nil)
	results := testEngine(l, nil).Execute(s)

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	statuses := []Status{results[0].Status, results[1].Status, results[2].Status}
	want := []Status{Executed, Rejected, Executed}
	for i := range want {
		if statuses[i] != want[i] {
			t.Errorf("result %d status = %s, want %s", i, statuses[i], want[i])
		}
	}
	if !l.Cash().Equal(USD(980)) {
		t.Errorf("cash = %s, want $980.00 after the two good buys", l.Cash())
	}
}

func TestEngine_SkipsAlreadyAppliedResults(t *testing.T) {
	l := NewLedger(USD(100), time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))

	orders := []Order{{Action: ActionBuy, Ticker: "NVDA", Quantity: QuantityExpr{Kind: QtyShares, Shares: Q(1)}}}
	s := Plan(orders, l.Snapshot(), quotesOf(map[string]float64{"NVDA": 10}), nil, nil)

	e := testEngine(l, nil)
	first := e.Execute(s)
	if len(first) != 1 {
		t.Fatalf("got %d results, want 1", len(first))
	}

	// Feed the same result key back as prior log: a second engine with the
	// same clock must skip the order entirely.
	l2 := NewLedger(USD(100), time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
	second := testEngine(l2, first).Execute(s)
	if len(second) != 0 {
		t.Fatalf("replayed run produced %d results, want 0", len(second))
	}
	if !l2.Cash().Equal(USD(100)) {
		t.Errorf("cash = %s after a skipped duplicate, want $100.00 untouched", l2.Cash())
	}
}

func TestEngine_RiskOrders(t *testing.T) {
	l := NewLedger(USD(0), time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
	if err := l.Commit([]Delta{{Ticker: "AMD", Shares: Q(8), Cash: USD(0)}}); err != nil {
		t.Fatal(err)
	}

	orders := []Order{
		{Action: ActionSetStopLoss, Ticker: "AMD", Quantity: QuantityExpr{Kind: QtyPercent, Percent: Percent(-8)}},
		{Action: ActionUpdateProfitTarget, Ticker: "AMD", Quantity: QuantityExpr{Kind: QtyPercent, Percent: Percent(25)}},
	}
	s := Plan(orders, l.Snapshot(), quotesOf(map[string]float64{"AMD": 100}), nil, nil)
	results := testEngine(l, nil).Execute(s)

	for _, r := range results {
		if r.Status != Executed {
			t.Errorf("result %s = %s, want EXECUTED", r.Action, r.Status)
		}
	}
	risk, ok := l.Risk("AMD")
	if !ok {
		t.Fatal("no risk parameters recorded for AMD")
	}
	if !risk.StopLoss.Equal(Percent(-8)) {
		t.Errorf("stop-loss = %v, want -8%%", risk.StopLoss)
	}
	if !risk.ProfitTarget.Equal(Percent(25)) {
		t.Errorf("profit target = %v, want +25%%", risk.ProfitTarget)
	}
}

func TestEngine_RiskOrderAfterFullExit(t *testing.T) {
	// SELL ALL then SET STOP-LOSS on the same ticker in one document: the
	// stop-loss misses its position and must reject without the invariant
	// label, leaving the sell's effects in place.
	l := NewLedger(USD(0), time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
	if err := l.Commit([]Delta{{Ticker: "SOUN", Shares: Q(19), Cash: USD(0)}}); err != nil {
		t.Fatal(err)
	}

	orders := []Order{
		{Action: ActionSellAll, Ticker: "SOUN", Quantity: QuantityExpr{Kind: QtyAll}},
		{Action: ActionSetStopLoss, Ticker: "SOUN", Quantity: QuantityExpr{Kind: QtyPercent, Percent: Percent(-8)}},
	}
	s := Plan(orders, l.Snapshot(), quotesOf(map[string]float64{"SOUN": 10}), nil, nil)
	results := testEngine(l, nil).Execute(s)

	if results[0].Status != Executed {
		t.Fatalf("sell result = %+v, want executed", results[0])
	}
	r := results[1]
	if r.Status != Rejected {
		t.Fatalf("stop-loss result = %+v, want rejected", r)
	}
	if strings.Contains(r.Reason, "INVARIANT_VIOLATION") {
		t.Errorf("reason = %q; a missing position is not an invariant violation", r.Reason)
	}
	if !l.Cash().Equal(USD(190)) {
		t.Errorf("cash = %s, the sell must stay committed", l.Cash())
	}
}
