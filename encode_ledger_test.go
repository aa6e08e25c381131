package portfolio

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLedger_SaveLoadRoundTrip(t *testing.T) {
	l := NewLedger(USD(1000), time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
	l.SetPolicy(FillSmart, PolicyParams{MinCashReserve: USD(25), SmartThreshold: 0.7})
	if err := l.Commit([]Delta{
		{Ticker: "NVDA", Shares: Q(3), Cash: USD(-450)},
		{Ticker: "AMD", Shares: Q(2), Cash: USD(-200)},
	}); err != nil {
		t.Fatal(err)
	}
	sl := Percent(-8)
	if err := l.SetRisk("AMD", &sl, nil); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "ledger.json")
	if err := SaveLedger(path, l); err != nil {
		t.Fatal(err)
	}

	got, err := LoadLedger(path)
	if err != nil {
		t.Fatal(err)
	}

	if !got.Cash().Equal(l.Cash()) {
		t.Errorf("cash = %s, want %s", got.Cash(), l.Cash())
	}
	if got.Position("NVDA").Int() != 3 || got.Position("AMD").Int() != 2 {
		t.Errorf("positions did not round-trip")
	}
	policy, params := got.Policy()
	if policy != FillSmart || params.SmartThreshold != 0.7 || !params.MinCashReserve.Equal(USD(25)) {
		t.Errorf("policy = %v %+v, want smart with threshold 0.7 and reserve $25", policy, params)
	}
	risk, ok := got.Risk("AMD")
	if !ok || !risk.StopLoss.Equal(Percent(-8)) {
		t.Errorf("risk = %+v, want AMD stop-loss -8%%", risk)
	}
	if !got.Opening().Cash.Equal(USD(1000)) {
		t.Errorf("opening cash = %s, want $1,000.00", got.Opening().Cash)
	}
}

func TestLedger_EncodeIsStable(t *testing.T) {
	l := NewLedger(USD(100), time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
	if err := l.Commit([]Delta{
		{Ticker: "ZZZ", Shares: Q(1), Cash: USD(-10)},
		{Ticker: "AAA", Shares: Q(1), Cash: USD(-10)},
	}); err != nil {
		t.Fatal(err)
	}

	var a, b bytes.Buffer
	if err := EncodeLedger(&a, l); err != nil {
		t.Fatal(err)
	}
	if err := EncodeLedger(&b, l); err != nil {
		t.Fatal(err)
	}
	if a.String() != b.String() {
		t.Error("two encodings of the same ledger differ")
	}
	if strings.Index(a.String(), `"AAA"`) > strings.Index(a.String(), `"ZZZ"`) {
		t.Error("holdings are not written in ticker order")
	}
	if !strings.HasPrefix(a.String(), "{\n") {
		t.Error("ledger file is not indented")
	}
}

func TestLoadLedger_RejectsNegativeBalances(t *testing.T) {
	dir := t.TempDir()

	testCases := []struct {
		name string
		body string
	}{
		{
			name: "negative cash",
			body: `{"asOf":"2025-07-01T00:00:00Z","cash":{"currency":"USD","amount":-5},"policy":"automatic","minCashReserve":{"currency":"USD","amount":0},"smartThreshold":0.8,"holdings":{},"risk":{},"opening":{"on":"2025-07-01T00:00:00Z","cash":{"currency":"USD","amount":0},"holdings":{}}}`,
		},
		{
			name: "negative position",
			body: `{"asOf":"2025-07-01T00:00:00Z","cash":{"currency":"USD","amount":10},"policy":"automatic","minCashReserve":{"currency":"USD","amount":0},"smartThreshold":0.8,"holdings":{"NVDA":-3},"risk":{},"opening":{"on":"2025-07-01T00:00:00Z","cash":{"currency":"USD","amount":0},"holdings":{}}}`,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tc.name, " ", "_")+".json")
			if err := os.WriteFile(path, []byte(tc.body), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadLedger(path); err == nil {
				t.Fatal("hand-edited negative balance loaded without error")
			}
		})
	}
}

func TestSaveLedger_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.json")
	l := NewLedger(USD(100), time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))

	if err := SaveLedger(path, l); err != nil {
		t.Fatal(err)
	}
	if err := SaveLedger(path, l); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "ledger.json" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory contains %v, want only ledger.json", names)
	}
}
