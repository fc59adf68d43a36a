// Package marketapi provides the off-chain nad.fun API client used for
// holdings discovery, fallback pricing and market scanning.
package marketapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/nadfun-trader/internal/logging"
	"github.com/nadfun-trader/internal/retry"
)

// Client handles API calls to the nad.fun indexer and frontend endpoints.
type Client struct {
	apiURL     string
	baseURL    string
	httpClient *http.Client
	retryCfg   *retry.Config
}

// NewClient creates a nad.fun API client. apiURL is the indexer API
// (api.nadapp.net), baseURL the frontend host serving the new-event feed.
func NewClient(apiURL, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiURL:     apiURL,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		retryCfg:   retry.DefaultConfig(),
	}
}

// TokenInfo describes a token as reported by the API.
type TokenInfo struct {
	TokenID     string `json:"token_id"`
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	IsGraduated bool   `json:"is_graduated"`
}

// Holding is one entry of the wallet holdings response.
type Holding struct {
	TokenInfo *TokenInfo `json:"token_info"`
}

// holdingsResponse represents GET /agent/holdings/{wallet}.
type holdingsResponse struct {
	Tokens []Holding `json:"tokens"`
}

// MarketInfo carries pricing and liquidity figures for a token. Numeric
// fields arrive as decimal strings.
type MarketInfo struct {
	Price         string `json:"price"`
	ReserveNative string `json:"reserve_native"`
	HolderCount   int    `json:"holder_count"`
	Volume        string `json:"volume"`
}

// MarketData represents GET /agent/market/{token}.
type MarketData struct {
	MarketInfo *MarketInfo `json:"market_info"`
	TokenInfo  *TokenInfo  `json:"token_info"`
	Percent    string      `json:"percent"`
}

// Holdings fetches the wallet's token holdings from the indexer.
func (c *Client) Holdings(ctx context.Context, wallet string) ([]Holding, error) {
	var resp holdingsResponse
	url := fmt.Sprintf("%s/agent/holdings/%s?limit=100", c.apiURL, wallet)
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("fetch holdings: %w", err)
	}
	return resp.Tokens, nil
}

// Market fetches market data for a single token.
func (c *Client) Market(ctx context.Context, token string) (*MarketData, error) {
	var data MarketData
	url := fmt.Sprintf("%s/agent/market/%s", c.apiURL, token)
	if err := c.getJSON(ctx, url, &data); err != nil {
		return nil, fmt.Errorf("fetch market %s: %w", token, err)
	}
	return &data, nil
}

// Price returns the token's spot price in native units per token, or an
// error when the market endpoint has no usable price.
func (c *Client) Price(ctx context.Context, token string) (float64, error) {
	data, err := c.Market(ctx, token)
	if err != nil {
		return 0, err
	}
	if data.MarketInfo == nil || data.MarketInfo.Price == "" {
		return 0, fmt.Errorf("no price for token %s", token)
	}
	price, err := strconv.ParseFloat(data.MarketInfo.Price, 64)
	if err != nil || price <= 0 {
		return 0, fmt.Errorf("unusable price %q for token %s", data.MarketInfo.Price, token)
	}
	return price, nil
}

// newEvent is one entry of the frontend new-event feed.
type newEvent struct {
	TokenInfo *TokenInfo `json:"token_info"`
}

// NewEventTokens fetches the frontend's new-token event feed and returns
// tokens still on the bonding curve.
func (c *Client) NewEventTokens(ctx context.Context) ([]TokenInfo, error) {
	var events []newEvent
	url := c.baseURL + "/api/token/new-event"
	if err := c.getJSON(ctx, url, &events); err != nil {
		return nil, fmt.Errorf("fetch new events: %w", err)
	}

	var tokens []TokenInfo
	for _, ev := range events {
		if ev.TokenInfo != nil && !ev.TokenInfo.IsGraduated {
			tokens = append(tokens, *ev.TokenInfo)
		}
	}
	return tokens, nil
}

// creationTimeResponse represents the decoded creation_time listing.
type creationTimeResponse struct {
	Tokens []struct {
		TokenInfo *TokenInfo `json:"token_info"`
	} `json:"tokens"`
}

// RecentTokens fetches the creation-time listing. The endpoint returns its
// JSON body base64-encoded.
func (c *Client) RecentTokens(ctx context.Context) ([]TokenInfo, error) {
	url := c.apiURL + "/order/creation_time?page=1&limit=100&is_nsfw=false&direction=DESC"
	body, err := c.getRaw(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch recent tokens: %w", err)
	}

	decoded, err := base64.StdEncoding.DecodeString(string(body))
	if err != nil {
		return nil, fmt.Errorf("decode recent tokens: %w", err)
	}

	var resp creationTimeResponse
	if err := json.Unmarshal(decoded, &resp); err != nil {
		return nil, fmt.Errorf("parse recent tokens: %w", err)
	}

	var tokens []TokenInfo
	for _, entry := range resp.Tokens {
		info := entry.TokenInfo
		if info != nil && !info.IsGraduated && info.TokenID != "" {
			tokens = append(tokens, *info)
		}
	}
	return tokens, nil
}

// getJSON fetches a URL with retry and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	body, err := c.getRaw(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// getRaw fetches a URL with retry and returns the raw body.
func (c *Client) getRaw(ctx context.Context, url string) ([]byte, error) {
	logger := logging.FromContext(ctx)

	var body []byte
	err := retry.Do(ctx, c.retryCfg, func(ctx context.Context, attempt int) error {
		req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "nadfun-trader/1.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("API error: status=%d, body=%s", resp.StatusCode, truncate(string(data), 200))
		}

		body = data
		return nil
	})
	if err != nil {
		logger.WithField("url", url).WithError(err).Debug("API request exhausted retries")
		return nil, err
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
