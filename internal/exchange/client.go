package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUnavailable indicates the rate feed could not be reached or answered
// with a non-success status. Conversions report an empty result for it.
var ErrUnavailable = errors.New("exchange rate feed unavailable")

const defaultTimeout = 10 * time.Second

// Client fetches exchange rates from the external currency feed.
//
// Every conversion triggers a fresh fetch. The feed is cheap, the rates
// move, and the original design traded staleness for simplicity; no
// caching layer is kept on purpose.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Rates fetches the current currency-code-to-rate mapping.
func (c *Client) Rates(ctx context.Context) (map[string]decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/currency_exchange", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var rates map[string]decimal.Decimal
	if err := json.NewDecoder(resp.Body).Decode(&rates); err != nil {
		return nil, fmt.Errorf("%w: decode rates: %v", ErrUnavailable, err)
	}
	return rates, nil
}

// Convert multiplies amount by the current rate for code, rounded to two
// decimal places. ok is false when the code is unknown; the feed being
// down surfaces as ErrUnavailable.
func (c *Client) Convert(ctx context.Context, amount decimal.Decimal, code string) (result decimal.Decimal, ok bool, err error) {
	rates, err := c.Rates(ctx)
	if err != nil {
		return decimal.Zero, false, err
	}

	rate, found := rates[code]
	if !found {
		return decimal.Zero, false, nil
	}
	return amount.Mul(rate).Round(2), true, nil
}
