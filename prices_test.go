package portfolio

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

// flakyFeed fails a fixed number of times before succeeding.
type flakyFeed struct {
	failures int
	calls    int
	quote    Quote
	err      error
}

func (f *flakyFeed) Quote(string) (Quote, error) {
	f.calls++
	if f.calls <= f.failures {
		return Quote{}, f.err
	}
	return f.quote, nil
}

func TestStaticFeed(t *testing.T) {
	feed := StaticFeed{"NVDA": USD(170)}

	q, err := feed.Quote("NVDA")
	if err != nil {
		t.Fatal(err)
	}
	if !q.Price.Equal(USD(170)) {
		t.Errorf("price = %s, want $170.00", q.Price)
	}

	if _, err := feed.Quote("GONE"); !errors.Is(err, ErrNoPriceData) {
		t.Errorf("err = %v, want ErrNoPriceData", err)
	}
}

func TestWithRetry_RecoversFromTransientFailure(t *testing.T) {
	base := &flakyFeed{
		failures: 2,
		err:      errors.New("connection reset"),
		quote:    Quote{Price: USD(42), On: time.Now()},
	}

	q, err := WithRetry(base, 3).Quote("NVDA")
	if err != nil {
		t.Fatal(err)
	}
	if base.calls != 3 {
		t.Errorf("feed called %d times, want 3", base.calls)
	}
	if !q.Price.Equal(USD(42)) {
		t.Errorf("price = %s, want $42.00", q.Price)
	}
}

func TestWithRetry_NoPriceDataIsPermanent(t *testing.T) {
	base := &flakyFeed{failures: 10, err: ErrNoPriceData}

	_, err := WithRetry(base, 5).Quote("GONE")
	if !errors.Is(err, ErrNoPriceData) {
		t.Fatalf("err = %v, want ErrNoPriceData", err)
	}
	if base.calls != 1 {
		t.Errorf("feed called %d times for a permanent error, want 1", base.calls)
	}
}

func TestWithRetry_GivesUpAfterAttempts(t *testing.T) {
	base := &flakyFeed{failures: 10, err: errors.New("connection reset")}

	if _, err := WithRetry(base, 1).Quote("NVDA"); err == nil {
		t.Fatal("exhausted retries must return the error")
	}
	if base.calls != 1 {
		t.Errorf("feed called %d times, want exactly the 1 configured attempt", base.calls)
	}
}

func TestWithLastKnown_ServesStaleQuoteOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.json")
	on := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)

	// First run: the live feed works and the cache learns the price.
	live := &flakyFeed{quote: Quote{Price: USD(10.65), On: on}}
	if _, err := WithLastKnown(live, path).Quote("SOUN"); err != nil {
		t.Fatal(err)
	}

	// Second run, fresh process: the live feed is down, the persisted cache
	// answers with the stale flag set.
	down := &flakyFeed{failures: 1000, err: errors.New("connection reset")}
	q, err := WithLastKnown(down, path).Quote("SOUN")
	if err != nil {
		t.Fatal(err)
	}
	if !q.Stale {
		t.Error("cached quote is not flagged stale")
	}
	if !q.Price.Equal(USD(10.65)) {
		t.Errorf("price = %s, want the cached $10.65", q.Price)
	}
}

func TestWithLastKnown_UnknownTickerIsNotCached(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.json")
	feed := WithLastKnown(StaticFeed{}, path)

	if _, err := feed.Quote("GONE"); !errors.Is(err, ErrNoPriceData) {
		t.Fatalf("err = %v, want ErrNoPriceData passed through", err)
	}
}

func TestFetchQuotes(t *testing.T) {
	feed := StaticFeed{"NVDA": USD(170), "AMD": USD(110)}

	quotes, errs := FetchQuotes(feed, []string{"NVDA", "AMD", "GONE", "NVDA"})

	if len(quotes) != 2 {
		t.Errorf("got %d quotes, want 2", len(quotes))
	}
	if len(errs) != 1 {
		t.Errorf("got %d errors, want 1", len(errs))
	}
	if !errors.Is(errs["GONE"], ErrNoPriceData) {
		t.Errorf("GONE error = %v, want ErrNoPriceData", errs["GONE"])
	}
}
