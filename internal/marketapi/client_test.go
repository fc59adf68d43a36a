package marketapi

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nadfun-trader/internal/retry"
)

// fastRetry keeps failing tests from sleeping through backoff windows.
func fastRetry() *retry.Config {
	return &retry.Config{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
}

func newTestClient(apiHandler, baseHandler http.Handler) (*Client, func()) {
	api := httptest.NewServer(apiHandler)
	base := httptest.NewServer(baseHandler)
	c := NewClient(api.URL, base.URL, 5*time.Second)
	c.retryCfg = fastRetry()
	return c, func() {
		api.Close()
		base.Close()
	}
}

func TestHoldings(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/agent/holdings/0xwallet" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("limit") != "100" {
			t.Errorf("limit = %s, want 100", r.URL.Query().Get("limit"))
		}
		w.Write([]byte(`{"tokens":[
			{"token_info":{"token_id":"0xaaa","symbol":"AAA","name":"Alpha","is_graduated":false}},
			{"token_info":{"token_id":"0xbbb","symbol":"BBB","name":"Beta","is_graduated":true}}
		]}`))
	})
	c, done := newTestClient(handler, http.NotFoundHandler())
	defer done()

	holdings, err := c.Holdings(context.Background(), "0xwallet")
	if err != nil {
		t.Fatalf("Holdings: %v", err)
	}
	if len(holdings) != 2 {
		t.Fatalf("got %d holdings, want 2", len(holdings))
	}
	if holdings[0].TokenInfo.Symbol != "AAA" || !holdings[1].TokenInfo.IsGraduated {
		t.Errorf("unexpected holdings: %+v", holdings)
	}
}

func TestPrice(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"market_info":{"price":"0.00125","reserve_native":"0","holder_count":3,"volume":"0"}}`))
	})
	c, done := newTestClient(handler, http.NotFoundHandler())
	defer done()

	price, err := c.Price(context.Background(), "0xaaa")
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if price != 0.00125 {
		t.Errorf("price = %v, want 0.00125", price)
	}
}

func TestPriceRejectsMissingOrZero(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no market info", `{}`},
		{"empty price", `{"market_info":{"price":""}}`},
		{"zero price", `{"market_info":{"price":"0"}}`},
		{"junk price", `{"market_info":{"price":"n/a"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})
			c, done := newTestClient(handler, http.NotFoundHandler())
			defer done()

			if _, err := c.Price(context.Background(), "0xaaa"); err == nil {
				t.Error("unusable price must error")
			}
		})
	}
}

func TestNewEventTokensFiltersGraduated(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/token/new-event" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`[
			{"token_info":{"token_id":"0xaaa","symbol":"AAA","is_graduated":false}},
			{"token_info":{"token_id":"0xbbb","symbol":"BBB","is_graduated":true}},
			{"token_info":null}
		]`))
	})
	c, done := newTestClient(http.NotFoundHandler(), handler)
	defer done()

	tokens, err := c.NewEventTokens(context.Background())
	if err != nil {
		t.Fatalf("NewEventTokens: %v", err)
	}
	if len(tokens) != 1 || tokens[0].TokenID != "0xaaa" {
		t.Errorf("unexpected tokens: %+v", tokens)
	}
}

func TestRecentTokensDecodesBase64(t *testing.T) {
	payload := `{"tokens":[
		{"token_info":{"token_id":"0xaaa","symbol":"AAA","is_graduated":false}},
		{"token_info":{"token_id":"","symbol":"NONE","is_graduated":false}},
		{"token_info":{"token_id":"0xbbb","symbol":"BBB","is_graduated":true}}
	]}`
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(base64.StdEncoding.EncodeToString([]byte(payload))))
	})
	c, done := newTestClient(handler, http.NotFoundHandler())
	defer done()

	tokens, err := c.RecentTokens(context.Background())
	if err != nil {
		t.Fatalf("RecentTokens: %v", err)
	}
	if len(tokens) != 1 || tokens[0].TokenID != "0xaaa" {
		t.Errorf("unexpected tokens: %+v", tokens)
	}
}

func TestServerErrorSurfaces(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})
	c, done := newTestClient(handler, http.NotFoundHandler())
	defer done()

	if _, err := c.Holdings(context.Background(), "0xwallet"); err == nil {
		t.Error("5xx responses must error after retries")
	}
}

func TestRetryRecovers(t *testing.T) {
	attempts := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, "try again", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"tokens":[]}`))
	})
	c, done := newTestClient(handler, http.NotFoundHandler())
	defer done()

	if _, err := c.Holdings(context.Background(), "0xwallet"); err != nil {
		t.Fatalf("Holdings should recover on retry: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}
