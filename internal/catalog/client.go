package catalog

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

	"PokeStore/internal/commerce"
	"PokeStore/internal/pricing"
)

var (
	ErrFetchFailed  = errors.New("item fetch failed")
	ErrItemNotFound = errors.New("item not found")
)

type apiPokemon struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Height  int    `json:"height"`
	Weight  int    `json:"weight"`
	Sprites struct {
		FrontDefault string `json:"front_default"`
		Other        map[string]struct {
			FrontDefault string `json:"front_default"`
		} `json:"other"`
	} `json:"sprites"`
	Types []struct {
		Type struct {
			Name string `json:"name"`
		} `json:"type"`
	} `json:"types"`
	Stats []struct {
		BaseStat int `json:"base_stat"`
		Stat     struct {
			Name string `json:"name"`
		} `json:"stat"`
	} `json:"stats"`
}

// PriceAssigner gives a freshly fetched item its price and currency.
type PriceAssigner interface {
	Assign() (decimal.Decimal, pricing.Currency)
}

// Client fetches creature records from a PokeAPI compatible endpoint.
type Client struct {
	BaseURL string
	Client  *http.Client
	Prices  PriceAssigner
}

func NewClient(baseURL string, timeout time.Duration, prices PriceAssigner) *Client {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
		Prices:  prices,
	}
}

// FetchItem returns the record for id with a newly assigned price. Every
// call draws a new price, so callers that need a stable price read the cache.
func (c *Client) FetchItem(ctx context.Context, id int) (commerce.Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/pokemon/%d", c.BaseURL, id), nil)
	if err != nil {
		return commerce.Item{}, fmt.Errorf("%w: %d: %v", ErrFetchFailed, id, err)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return commerce.Item{}, fmt.Errorf("%w: %d: %v", ErrFetchFailed, id, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return commerce.Item{}, fmt.Errorf("%w: %w: %d", ErrFetchFailed, ErrItemNotFound, id)
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return commerce.Item{}, fmt.Errorf("%w: %d: status=%d", ErrFetchFailed, id, resp.StatusCode)
	}

	var p apiPokemon
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return commerce.Item{}, fmt.Errorf("%w: %d: decode: %v", ErrFetchFailed, id, err)
	}

	item, err := toItem(p)
	if err != nil {
		return commerce.Item{}, fmt.Errorf("%w: %d: %v", ErrFetchFailed, id, err)
	}
	item.Price, item.Currency = c.Prices.Assign()
	return item, nil
}

func toItem(p apiPokemon) (commerce.Item, error) {
	if p.ID <= 0 || p.Name == "" {
		return commerce.Item{}, errors.New("record has no id or name")
	}
	if len(p.Stats) < 6 {
		return commerce.Item{}, fmt.Errorf("record has %d stats, want 6", len(p.Stats))
	}

	image := p.Sprites.Other["official-artwork"].FrontDefault
	if image == "" {
		image = p.Sprites.FrontDefault
	}

	types := make([]string, 0, len(p.Types))
	for _, t := range p.Types {
		types = append(types, t.Type.Name)
	}

	return commerce.Item{
		ID:     p.ID,
		Name:   p.Name,
		Image:  image,
		Types:  types,
		Height: p.Height,
		Weight: p.Weight,
		Stats: commerce.Stats{
			HP:             p.Stats[0].BaseStat,
			Attack:         p.Stats[1].BaseStat,
			Defense:        p.Stats[2].BaseStat,
			SpecialAttack:  p.Stats[3].BaseStat,
			SpecialDefense: p.Stats[4].BaseStat,
			Speed:          p.Stats[5].BaseStat,
		},
	}, nil
}
