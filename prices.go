package portfolio

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/shopspring/decimal"
)

// Quote is one price observation for a ticker.
type Quote struct {
	Price Money
	On    time.Time
	// Stale marks a quote served from the last-known cache after the live
	// feed failed. A stale quote is usable for planning, but the resulting
	// order's reason records the staleness.
	Stale bool
}

// PriceFeed provides current prices for tickers.
type PriceFeed interface {
	// Quote returns the current price for a ticker. It returns
	// ErrNoPriceData when the ticker is unknown to the feed, and any other
	// error for transient failures.
	Quote(ticker string) (Quote, error)
}

// ErrNoPriceData signals that the feed does not know the ticker at all.
// Orders for such a ticker are rejected, not retried.
var ErrNoPriceData = errors.New("no price data for ticker")

// StaticFeed is a fixed in-memory price table. It backs tests and offline
// planning runs.
type StaticFeed map[string]Money

func (f StaticFeed) Quote(ticker string) (Quote, error) {
	p, ok := f[ticker]
	if !ok {
		return Quote{}, fmt.Errorf("%w: %s", ErrNoPriceData, ticker)
	}
	return Quote{Price: p, On: time.Now()}, nil
}

// retryFeed wraps a feed with a bounded exponential-backoff retry for
// transient failures. ErrNoPriceData is permanent and never retried.
type retryFeed struct {
	base     PriceFeed
	attempts uint64
}

// WithRetry returns a feed that retries transient failures up to 'attempts'
// total tries with exponential backoff.
func WithRetry(base PriceFeed, attempts uint64) PriceFeed {
	if attempts == 0 {
		attempts = 3
	}
	return &retryFeed{base: base, attempts: attempts}
}

func (f *retryFeed) Quote(ticker string) (Quote, error) {
	var q Quote
	boff := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), f.attempts-1)
	err := backoff.Retry(func() error {
		var err error
		q, err = f.base.Quote(ticker)
		if errors.Is(err, ErrNoPriceData) {
			return backoff.Permanent(err)
		}
		if err != nil {
			log.Printf("price lookup for %s failed, will retry: %v", ticker, err)
		}
		return err
	}, boff)
	return q, err
}

// cachedFeed remembers every successful quote in a small JSON file and serves
// the last-known price, flagged stale, when the live feed fails transiently.
type cachedFeed struct {
	base PriceFeed
	path string
	mem  map[string]Quote
}

// WithLastKnown wraps a feed with a last-known-price cache persisted at path.
func WithLastKnown(base PriceFeed, path string) PriceFeed {
	c := &cachedFeed{base: base, path: path, mem: make(map[string]Quote)}
	c.load()
	return c
}

func (c *cachedFeed) Quote(ticker string) (Quote, error) {
	q, err := c.base.Quote(ticker)
	if err == nil {
		c.mem[ticker] = q
		c.save()
		return q, nil
	}
	if errors.Is(err, ErrNoPriceData) {
		return Quote{}, err
	}
	if last, ok := c.mem[ticker]; ok {
		log.Printf("price feed failed for %s, using stale price %s from %s", ticker, last.Price, last.On.Format(time.RFC3339))
		last.Stale = true
		return last, nil
	}
	return Quote{}, err
}

// jquote is the persisted form of a cached quote.
type jquote struct {
	Price decimal.Decimal `json:"price"`
	On    string          `json:"on"`
}

func (c *cachedFeed) load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return // no cache yet
	}
	var raw map[string]jquote
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Printf("ignoring unreadable price cache %q: %v", c.path, err)
		return
	}
	for t, j := range raw {
		on, err := time.Parse(time.RFC3339Nano, j.On)
		if err != nil {
			continue
		}
		c.mem[t] = Quote{Price: USD(j.Price), On: on}
	}
}

func (c *cachedFeed) save() {
	raw := make(map[string]jquote, len(c.mem))
	for t, q := range c.mem {
		raw[t] = jquote{Price: q.Price.value, On: q.On.Format(time.RFC3339Nano)}
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		log.Printf("cannot marshal price cache: %v", err)
		return
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		log.Printf("cache write err (ignored): %v", err)
	}
}

// FetchQuotes resolves quotes for a set of tickers, returning one map of
// quotes and one map of lookup errors. A ticker appears in exactly one of
// the two.
func FetchQuotes(feed PriceFeed, tickers []string) (map[string]Quote, map[string]error) {
	quotes := make(map[string]Quote, len(tickers))
	errs := make(map[string]error)
	for _, t := range tickers {
		if _, ok := quotes[t]; ok {
			continue
		}
		if _, ok := errs[t]; ok {
			continue
		}
		q, err := feed.Quote(t)
		if err != nil {
			errs[t] = err
			continue
		}
		quotes[t] = q
	}
	return quotes, errs
}
