// Package catalog turns the remote creature API into priced, cached items:
// a page loader that tolerates per-item failures and a name filter.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"PokeStore/internal/commerce"
)

const (
	PageSize  = 20
	MaxItemID = 151

	fetchConcurrency = 4
)

var ErrInvalidPage = errors.New("invalid page")

type Fetcher interface {
	FetchItem(ctx context.Context, id int) (commerce.Item, error)
}

// Cache is the part of the commerce manager the loader writes through.
type Cache interface {
	CacheItemIfAbsent(ctx context.Context, item commerce.Item) (commerce.Item, error)
	CachedItem(ctx context.Context, id int) (commerce.Item, bool, error)
}

type Page struct {
	Number  int             `json:"page"`
	Items   []commerce.Item `json:"items"`
	HasMore bool            `json:"has_more"`
	Failed  []int           `json:"failed,omitempty"`
}

type Loader struct {
	Fetcher Fetcher
	Cache   Cache
	Log     *zap.Logger

	// OnFetchFailed, when set, is called once per skipped id. It may run
	// concurrently from several fetch goroutines.
	OnFetchFailed func(id int, err error)
}

func NewLoader(f Fetcher, c Cache, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{Fetcher: f, Cache: c, Log: log}
}

// LoadPage fetches ids (page-1)*PageSize+1 .. page*PageSize, capped at
// MaxItemID. Ids already cached are served from the cache, price included;
// the rest are fetched and cached. Items that fail to fetch or cache are
// logged and left out; the page itself still succeeds. Items keep id order.
func (l *Loader) LoadPage(ctx context.Context, page int) (Page, error) {
	first := (page-1)*PageSize + 1
	if page < 1 || first > MaxItemID {
		return Page{}, fmt.Errorf("%w: %d", ErrInvalidPage, page)
	}
	last := min(page*PageSize, MaxItemID)

	results := make([]*commerce.Item, last-first+1)
	failed := make([]bool, len(results))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i := range results {
		id := first + i
		g.Go(func() error {
			item, err := l.Item(gctx, id)
			if err != nil {
				failed[i] = true
				l.skip(id, err)
				return nil
			}
			results[i] = &item
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Page{}, err
	}

	p := Page{
		Number:  page,
		Items:   make([]commerce.Item, 0, len(results)),
		HasMore: last < MaxItemID,
	}
	for i, r := range results {
		if failed[i] {
			p.Failed = append(p.Failed, first+i)
			continue
		}
		p.Items = append(p.Items, *r)
	}
	return p, nil
}

// Item returns the cached record for id, fetching and caching it first when
// the cache has none. The cached price is the one the user pays.
func (l *Loader) Item(ctx context.Context, id int) (commerce.Item, error) {
	item, ok, err := l.Cache.CachedItem(ctx, id)
	if err != nil {
		return commerce.Item{}, err
	}
	if ok {
		return item, nil
	}
	return l.fetchAndCache(ctx, id)
}

func (l *Loader) fetchAndCache(ctx context.Context, id int) (commerce.Item, error) {
	item, err := l.Fetcher.FetchItem(ctx, id)
	if err != nil {
		return commerce.Item{}, err
	}
	kept, err := l.Cache.CacheItemIfAbsent(ctx, item)
	if err != nil {
		return commerce.Item{}, fmt.Errorf("cache item %d: %w", id, err)
	}
	return kept, nil
}

func (l *Loader) skip(id int, err error) {
	l.Log.Warn("item skipped", zap.Int("item_id", id), zap.Error(err))
	if l.OnFetchFailed != nil {
		l.OnFetchFailed(id, err)
	}
}

// Filter keeps items whose name contains term, ignoring case. An empty term
// keeps everything.
func Filter(items []commerce.Item, term string) []commerce.Item {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return items
	}

	out := make([]commerce.Item, 0, len(items))
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Name), term) {
			out = append(out, it)
		}
	}
	return out
}
