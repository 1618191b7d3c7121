package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"PokeStore/internal/commerce"
	"PokeStore/internal/pricing"
	"PokeStore/internal/store"
)

type fixedPrice struct{}

func (fixedPrice) Assign() (decimal.Decimal, pricing.Currency) {
	return decimal.NewFromInt(300), pricing.EUR
}

const bulbasaur = `{
  "id": 1, "name": "bulbasaur", "height": 7, "weight": 69,
  "sprites": {"front_default": "front.png", "other": {"official-artwork": {"front_default": "art.png"}}},
  "types": [{"slot": 1, "type": {"name": "grass"}}, {"slot": 2, "type": {"name": "poison"}}],
  "stats": [
    {"base_stat": 45, "stat": {"name": "hp"}},
    {"base_stat": 49, "stat": {"name": "attack"}},
    {"base_stat": 49, "stat": {"name": "defense"}},
    {"base_stat": 65, "stat": {"name": "special-attack"}},
    {"base_stat": 65, "stat": {"name": "special-defense"}},
    {"base_stat": 45, "stat": {"name": "speed"}}
  ]
}`

func newPokeAPI(t *testing.T) *httptest.Server {
	t.Helper()

	r := chi.NewRouter()
	r.Get("/pokemon/{id}", func(w http.ResponseWriter, r *http.Request) {
		switch chi.URLParam(r, "id") {
		case "1":
			_, _ = w.Write([]byte(bulbasaur))
		case "2":
			_, _ = w.Write([]byte(`{"id": 2, "name": "ivysaur", "sprites": {"front_default": "ivy.png"}, "stats": []}`))
		case "3":
			_, _ = w.Write([]byte(`{not json`))
		case "500":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

func TestClient_FetchItem(t *testing.T) {
	ts := newPokeAPI(t)
	c := NewClient(ts.URL+"/", time.Second, fixedPrice{})

	item, err := c.FetchItem(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 1, item.ID)
	assert.Equal(t, "bulbasaur", item.Name)
	assert.Equal(t, "art.png", item.Image)
	assert.Equal(t, []string{"grass", "poison"}, item.Types)
	assert.Equal(t, 7, item.Height)
	assert.Equal(t, 69, item.Weight)
	assert.Equal(t, commerce.Stats{HP: 45, Attack: 49, Defense: 49, SpecialAttack: 65, SpecialDefense: 65, Speed: 45}, item.Stats)
	assert.Equal(t, "300", item.Price.String())
	assert.Equal(t, pricing.EUR, item.Currency)
}

func TestClient_FetchItemFailures(t *testing.T) {
	ts := newPokeAPI(t)
	c := NewClient(ts.URL, time.Second, fixedPrice{})

	cases := []struct {
		name     string
		id       int
		notFound bool
	}{
		{name: "missing stats", id: 2},
		{name: "bad json", id: 3},
		{name: "upstream error", id: 500},
		{name: "not found", id: 999, notFound: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.FetchItem(context.Background(), tc.id)
			require.ErrorIs(t, err, ErrFetchFailed)
			assert.Equal(t, tc.notFound, errors.Is(err, ErrItemNotFound))
		})
	}
}

func TestClient_FetchItemUnreachable(t *testing.T) {
	ts := newPokeAPI(t)
	url := ts.URL
	ts.Close()

	c := NewClient(url, 200*time.Millisecond, fixedPrice{})
	_, err := c.FetchItem(context.Background(), 1)
	assert.ErrorIs(t, err, ErrFetchFailed)
}

// fakeFetcher serves items by id; ids in fail return ErrFetchFailed.
type fakeFetcher struct {
	mu    sync.Mutex
	fail  map[int]bool
	calls []int
}

func (f *fakeFetcher) FetchItem(_ context.Context, id int) (commerce.Item, error) {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	f.mu.Unlock()

	if f.fail[id] {
		return commerce.Item{}, fmt.Errorf("%w: %d", ErrFetchFailed, id)
	}
	return commerce.Item{
		ID:       id,
		Name:     "mon-" + strconv.Itoa(id),
		Price:    decimal.NewFromInt(int64(id)),
		Currency: pricing.MXN,
	}, nil
}

func newManager(t *testing.T) *commerce.Manager {
	t.Helper()
	st := store.New(store.NewMemBackend(), zap.NewNop())
	return commerce.NewManager(st, pricing.NewConverter(nil, zap.NewNop()), pricing.NewPricer(nil), zap.NewNop())
}

func TestLoader_SkipsFailedItems(t *testing.T) {
	m := newManager(t)
	f := &fakeFetcher{fail: map[int]bool{5: true}}
	l := NewLoader(f, m, zap.NewNop())

	var skipped []int
	var mu sync.Mutex
	l.OnFetchFailed = func(id int, err error) {
		mu.Lock()
		skipped = append(skipped, id)
		mu.Unlock()
	}

	p, err := l.LoadPage(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, p.Items, 19)
	for i, it := range p.Items {
		if i < 4 {
			assert.Equal(t, i+1, it.ID)
		} else {
			assert.Equal(t, i+2, it.ID, "order preserved around the gap")
		}
	}
	assert.Equal(t, []int{5}, p.Failed)
	assert.Equal(t, []int{5}, skipped)
	assert.True(t, p.HasMore)

	_, ok, err := m.CachedItem(context.Background(), 4)
	require.NoError(t, err)
	assert.True(t, ok, "fetched items are cached")
	_, ok, err = m.CachedItem(context.Background(), 5)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoader_FetchOneFailOne(t *testing.T) {
	m := newManager(t)
	ts := newPokeAPI(t)
	l := NewLoader(NewClient(ts.URL, time.Second, fixedPrice{}), m, zap.NewNop())

	p, err := l.LoadPage(context.Background(), 1)
	require.NoError(t, err, "per-item failures never fail the page")
	require.Len(t, p.Items, 1)
	assert.Equal(t, "bulbasaur", p.Items[0].Name)
	assert.Len(t, p.Failed, 19)
}

func TestLoader_LastPageIsCapped(t *testing.T) {
	m := newManager(t)
	f := &fakeFetcher{}
	l := NewLoader(f, m, zap.NewNop())

	p, err := l.LoadPage(context.Background(), 8)
	require.NoError(t, err)
	assert.False(t, p.HasMore)
	require.Len(t, p.Items, 11)
	assert.Equal(t, 141, p.Items[0].ID)
	assert.Equal(t, MaxItemID, p.Items[10].ID)

	for _, bad := range []int{0, -1, 9} {
		_, err := l.LoadPage(context.Background(), bad)
		assert.ErrorIs(t, err, ErrInvalidPage, "page %d", bad)
	}
}

func TestLoader_ItemPrefersCache(t *testing.T) {
	m := newManager(t)
	f := &fakeFetcher{}
	l := NewLoader(f, m, zap.NewNop())
	ctx := context.Background()

	cached := commerce.Item{ID: 7, Name: "squirtle", Price: decimal.NewFromInt(999), Currency: pricing.GBP}
	require.NoError(t, m.CacheItem(ctx, cached))

	got, err := l.Item(ctx, 7)
	require.NoError(t, err)
	assert.True(t, got.Equal(cached))

	got, err = l.Item(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, "mon-8", got.Name)
	assert.Equal(t, []int{8}, f.calls)
}

func TestLoader_CancelledContext(t *testing.T) {
	m := newManager(t)
	l := NewLoader(&fakeFetcher{}, m, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.LoadPage(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFilter(t *testing.T) {
	items := []commerce.Item{{ID: 1, Name: "Bulbasaur"}, {ID: 2, Name: "ivysaur"}, {ID: 4, Name: "charmander"}}

	assert.Len(t, Filter(items, ""), 3)
	assert.Len(t, Filter(items, "  "), 3)

	got := Filter(items, "SAUR")
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].ID)
	assert.Equal(t, 2, got[1].ID)

	assert.Empty(t, Filter(items, "pikachu"))
	assert.True(t, strings.Contains(Filter(items, "char")[0].Name, "char"))
}

// repricingFetcher draws whatever price is current at fetch time, like the
// real client does on every call.
type repricingFetcher struct {
	mu    sync.Mutex
	price int64
	calls int
}

func (f *repricingFetcher) setPrice(p int64) {
	f.mu.Lock()
	f.price = p
	f.mu.Unlock()
}

func (f *repricingFetcher) FetchItem(_ context.Context, id int) (commerce.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return commerce.Item{ID: id, Name: "mon-" + strconv.Itoa(id), Price: decimal.NewFromInt(f.price), Currency: pricing.MXN}, nil
}

func TestLoader_ReloadKeepsCachedPrice(t *testing.T) {
	m := newManager(t)
	f := &repricingFetcher{price: 100}
	l := NewLoader(f, m, zap.NewNop())
	ctx := context.Background()

	p, err := l.LoadPage(ctx, 1)
	require.NoError(t, err)
	_, err = m.AddToCart(ctx, p.Items[2])
	require.NoError(t, err)

	view, err := m.CartView(ctx)
	require.NoError(t, err)
	require.Equal(t, "100", view.Total.String())

	f.setPrice(4000)
	callsBefore := f.calls
	p, err = l.LoadPage(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "100", p.Items[2].Price.String())
	assert.Equal(t, callsBefore, f.calls, "cached ids are not fetched again")

	view, err = m.CartView(ctx)
	require.NoError(t, err)
	assert.Equal(t, "100", view.Total.String())

	receipt, err := m.Checkout(ctx)
	require.NoError(t, err)
	assert.Equal(t, "100", receipt.Total.String())

	coll, err := m.Collection(ctx)
	require.NoError(t, err)
	require.Len(t, coll.Items, 1)
	assert.Equal(t, "100", coll.Items[0].Price.String())
}

// racingCache caches a competing record between the loader's cache check
// and its write, as a concurrent request would.
type racingCache struct {
	*commerce.Manager
	first commerce.Item
}

func (c racingCache) CachedItem(ctx context.Context, id int) (commerce.Item, bool, error) {
	_, _ = c.Manager.CacheItemIfAbsent(ctx, c.first)
	return commerce.Item{}, false, nil
}

func TestLoader_ItemKeepsConcurrentlyCachedRecord(t *testing.T) {
	m := newManager(t)
	first := commerce.Item{ID: 12, Name: "butterfree", Price: decimal.NewFromInt(55), Currency: pricing.JPY}
	l := NewLoader(&repricingFetcher{price: 999}, racingCache{Manager: m, first: first}, zap.NewNop())

	got, err := l.Item(context.Background(), 12)
	require.NoError(t, err)
	assert.True(t, got.Equal(first), "got %+v", got)
}
