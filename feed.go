package portfolio

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
)

const eodhdKeyEnv = "EODHD_API_KEY"

// WebFeed fetches real-time quotes from an EODHD-style HTTP endpoint. The
// URL template and the jsonpath expressions are configurable so other
// JSON-speaking quote services can be plugged in without code changes.
//
// A typical payload looks like:
//
//	{"code":"NVDA.US","timestamp":1756480920,"close":170.00,"previousClose":168.2}
type WebFeed struct {
	// URL is the request template; "{ticker}" and "{token}" are substituted.
	URL string
	// PricePath extracts the price from the payload, e.g. "$.close".
	PricePath string
	// TimestampPath extracts the unix timestamp, e.g. "$.timestamp".
	// Optional; when empty the quote is stamped with the current time.
	TimestampPath string
	// Token is the API token. When empty it is read from EODHD_API_KEY.
	Token string

	client *http.Client
}

// NewWebFeed returns a feed for the EODHD real-time endpoint, with responses
// cached on disk for the day.
func NewWebFeed() *WebFeed {
	return &WebFeed{
		URL:           "https://eodhd.com/api/real-time/{ticker}.US?api_token={token}&fmt=json",
		PricePath:     "$.close",
		TimestampPath: "$.timestamp",
		client:        daily(),
	}
}

func (f *WebFeed) token() string {
	if f.Token != "" {
		return f.Token
	}
	return os.Getenv(eodhdKeyEnv)
}

// Quote implements PriceFeed.
func (f *WebFeed) Quote(ticker string) (Quote, error) {
	addr := strings.ReplaceAll(f.URL, "{ticker}", ticker)
	addr = strings.ReplaceAll(addr, "{token}", f.token())

	client := f.client
	if client == nil {
		client = daily()
	}

	var jobj any
	if err := jwget(client, addr, &jobj); err != nil {
		return Quote{}, fmt.Errorf("error retrieving %q: %w", ticker, err)
	}

	val, err := f.number(jobj, f.PricePath, ticker)
	if err != nil {
		return Quote{}, err
	}
	if val == 0 {
		// the service answers 0 or "NA" for tickers it does not know
		return Quote{}, fmt.Errorf("%w: %s", ErrNoPriceData, ticker)
	}

	on := time.Now()
	if f.TimestampPath != "" {
		if ts, err := f.number(jobj, f.TimestampPath, ticker); err == nil && ts > 0 {
			on = time.Unix(int64(ts), 0)
		}
	}
	return Quote{Price: USD(val), On: on}, nil
}

// number extracts a float at a jsonpath, tolerating the string-typed numbers
// this kind of API occasionally returns.
func (f *WebFeed) number(jobj any, path, ticker string) (float64, error) {
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return 0, fmt.Errorf("error parsing %q: %q %w", ticker, path, err)
	}
	// because jsonpath is never clear about whether it returns a list of 1
	// answer, or a single answer: by this call I keep the first one if any
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}

	switch v := jval.(type) {
	case float64:
		return v, nil
	case string:
		if v == "NA" || v == "./." {
			return 0, nil
		}
		s := strings.ReplaceAll(v, ",", ".")
		s = strings.ReplaceAll(s, " ", "")
		val, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot read value for %q: invalid string %q: %w", ticker, v, err)
		}
		return val, nil
	default:
		return 0, fmt.Errorf("cannot read value for %q: %q is neither a float nor a string", ticker, path)
	}
}
