package portfolio

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testWebFeed(t *testing.T, handler http.HandlerFunc) *WebFeed {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &WebFeed{
		URL:           srv.URL + "/real-time/{ticker}?api_token={token}&fmt=json",
		PricePath:     "$.close",
		TimestampPath: "$.timestamp",
		Token:         "demo",
		client:        srv.Client(),
	}
}

func TestWebFeed_Quote(t *testing.T) {
	feed := testWebFeed(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_token") != "demo" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"code":"NVDA.US","timestamp":1756480920,"close":170.25,"previousClose":168.2}`)
	})

	q, err := feed.Quote("NVDA")
	if err != nil {
		t.Fatal(err)
	}
	if !q.Price.Equal(USD(170.25)) {
		t.Errorf("price = %s, want $170.25", q.Price)
	}
	if q.On.Unix() != 1756480920 {
		t.Errorf("timestamp = %d, want 1756480920", q.On.Unix())
	}
}

func TestWebFeed_StringTypedNumbers(t *testing.T) {
	// Some services answer with string-typed numbers, comma decimals
	// included.
	feed := testWebFeed(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"close":"10,65","timestamp":"1756480920"}`)
	})

	q, err := feed.Quote("SOUN")
	if err != nil {
		t.Fatal(err)
	}
	if !q.Price.Equal(USD(10.65)) {
		t.Errorf("price = %s, want $10.65", q.Price)
	}
}

func TestWebFeed_UnknownTicker(t *testing.T) {
	feed := testWebFeed(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"close":"NA","timestamp":0}`)
	})

	_, err := feed.Quote("GONE")
	if !errors.Is(err, ErrNoPriceData) {
		t.Fatalf("err = %v, want ErrNoPriceData", err)
	}
}
