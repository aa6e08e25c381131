package portfolio

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func sampleResults() []TradeResult {
	t0 := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	return []TradeResult{
		{
			On: t0, Ticker: "SOUN", Action: ActionSellAll,
			Requested: Q(19), Filled: Q(19), Price: USD(10.65),
			CashDelta: USD(202.35), ShareDelta: Q(-19),
			Status: Executed, SourceLine: 12,
		},
		{
			On: t0.Add(time.Second), Ticker: "NVDA", Action: ActionBuy,
			Requested: Q(15), Filled: Q(15), Price: USD(13),
			CashDelta: USD(-195), ShareDelta: Q(15),
			Status: Executed, Reason: "funded by SOUN exit", SourceLine: 14,
		},
		{
			On: t0.Add(2 * time.Second), Ticker: "AMD", Action: ActionBuy,
			Requested: Q(100), Filled: Q(0), Price: USD(170),
			Status: Rejected, Reason: "INSUFFICIENT_FUNDS", SourceLine: 16,
		},
	}
}

func TestTradeLog_RoundTrip(t *testing.T) {
	results := sampleResults()

	var buf bytes.Buffer
	for _, r := range results {
		if err := EncodeTradeResult(&buf, r); err != nil {
			t.Fatal(err)
		}
	}

	decoded, err := DecodeTradeLog(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded) != len(results) {
		t.Fatalf("decoded %d results, want %d", len(decoded), len(results))
	}
	for i, want := range results {
		got := decoded[i]
		if got.Key() != want.Key() {
			t.Errorf("result %d key = %s, want %s", i, got.Key(), want.Key())
		}
		if got.Status != want.Status || !got.Filled.Equal(want.Filled) || !got.CashDelta.Equal(want.CashDelta) {
			t.Errorf("result %d = %+v, want %+v", i, got, want)
		}
		if got.SourceLine != want.SourceLine {
			t.Errorf("result %d line = %d, want %d", i, got.SourceLine, want.SourceLine)
		}
	}
}

func TestTradeLog_AppendOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.jsonl")
	results := sampleResults()

	if err := AppendTradeLog(path, results[:1]); err != nil {
		t.Fatal(err)
	}
	if err := AppendTradeLog(path, results[1:]); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadTradeLog(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 3 {
		t.Fatalf("loaded %d results, want 3", len(loaded))
	}
	if loaded[0].Ticker != "SOUN" || loaded[2].Ticker != "AMD" {
		t.Errorf("append reordered the log: %v", loaded)
	}
}

func TestTradeLog_LoadMissingFileIsEmpty(t *testing.T) {
	loaded, err := LoadTradeLog(filepath.Join(t.TempDir(), "absent.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 0 {
		t.Fatalf("loaded %d results from a missing file, want 0", len(loaded))
	}
}

func TestReplay(t *testing.T) {
	opening := Opening{
		On:       time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		Cash:     USD(2),
		Holdings: map[string]Quantity{"SOUN": Q(19)},
	}

	holdings, cash := Replay(opening, sampleResults())

	if !cash.Equal(USD(9.35)) {
		t.Errorf("cash = %s, want $9.35 (2 + 202.35 - 195)", cash)
	}
	if q, ok := holdings["SOUN"]; ok && !q.IsZero() {
		t.Errorf("SOUN = %s after replay, want the position closed", q)
	}
	if holdings["NVDA"].Int() != 15 {
		t.Errorf("NVDA = %s, want 15", holdings["NVDA"])
	}
	if _, ok := holdings["AMD"]; ok {
		t.Error("rejected order must not appear in replayed holdings")
	}
}

func TestReplay_DuplicateKeysApplyOnce(t *testing.T) {
	opening := Opening{Cash: USD(100), Holdings: map[string]Quantity{}}
	r := TradeResult{
		On: time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC), Ticker: "NVDA", Action: ActionBuy,
		Requested: Q(1), Filled: Q(1), Price: USD(10),
		CashDelta: USD(-10), ShareDelta: Q(1), Status: Executed,
	}

	holdings, cash := Replay(opening, []TradeResult{r, r})

	if !cash.Equal(USD(90)) {
		t.Errorf("cash = %s, want $90.00 (duplicate applied once)", cash)
	}
	if holdings["NVDA"].Int() != 1 {
		t.Errorf("NVDA = %s, want 1", holdings["NVDA"])
	}
}

func TestTradeResult_StableFieldOrder(t *testing.T) {
	data, err := sampleResults()[0].MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	// Stable key order keeps the JSONL log diffable across runs.
	for i, key := range []string{`"on"`, `"ticker"`, `"action"`, `"requested"`, `"filled"`, `"price"`} {
		if !strings.Contains(s, key) {
			t.Fatalf("marshaled result missing %s: %s", key, s)
		}
		if i > 0 && strings.Index(s, key) < strings.Index(s, `"on"`) {
			t.Errorf("field %s appears before \"on\": %s", key, s)
		}
	}
}
