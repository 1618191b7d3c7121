package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrRateUnavailable = errors.New("exchange rate unavailable")

type ratesResponse struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// RateClient reads rates from an exchangerate-api style endpoint:
// GET {base}/{from} returns every rate relative to from.
type RateClient struct {
	BaseURL string
	Client  *http.Client
}

func NewRateClient(baseURL string, timeout time.Duration) *RateClient {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	return &RateClient{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
	}
}

// Rate returns how many units of to one unit of from buys.
// A target missing from the response counts as 1; a rate that is not
// positive is an error.
func (c *RateClient) Rate(ctx context.Context, from, to Currency) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/%s", c.BaseURL, url.PathEscape(from.String()))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrRateUnavailable, err)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrRateUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return decimal.Zero, fmt.Errorf("%w: status=%d", ErrRateUnavailable, resp.StatusCode)
	}

	var body ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("%w: decode: %v", ErrRateUnavailable, err)
	}

	rate, ok := body.Rates[to.String()]
	if !ok {
		return decimal.NewFromInt(1), nil
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s->%s rate %s is not positive", ErrRateUnavailable, from, to, rate)
	}
	return rate, nil
}
