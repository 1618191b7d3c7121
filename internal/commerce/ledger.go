package commerce

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"PokeStore/internal/store"
)

func (m *Manager) OwnedIDs(ctx context.Context) ([]int, error) {
	return loadOwned(m.direct(ctx))
}

func (m *Manager) IsOwned(ctx context.Context, id int) (bool, error) {
	owned, err := m.OwnedIDs(ctx)
	if err != nil {
		return false, err
	}
	return slices.Contains(owned, id), nil
}

// CacheItem stores item under its id; the last write wins.
func (m *Manager) CacheItem(ctx context.Context, item Item) error {
	return m.store.Update(ctx, store.KindItemCached, func(tx *store.Tx) error {
		cache, err := loadCache(tx.Get)
		if err != nil {
			return err
		}
		cache[item.ID] = item
		return tx.Set(store.TableItemCache, cache)
	})
}

// CacheItemIfAbsent stores item only when its id has no cache record yet and
// returns the record that is cached afterwards. An item keeps the price it
// was first cached with.
func (m *Manager) CacheItemIfAbsent(ctx context.Context, item Item) (Item, error) {
	kept := item
	err := m.store.Update(ctx, store.KindItemCached, func(tx *store.Tx) error {
		cache, err := loadCache(tx.Get)
		if err != nil {
			return err
		}
		if existing, ok := cache[item.ID]; ok {
			kept = existing
			return nil
		}
		cache[item.ID] = item
		return tx.Set(store.TableItemCache, cache)
	})
	if err != nil {
		return Item{}, err
	}
	return kept, nil
}

func (m *Manager) CachedItem(ctx context.Context, id int) (Item, bool, error) {
	cache, err := loadCache(m.direct(ctx))
	if err != nil {
		return Item{}, false, err
	}
	item, ok := cache[id]
	return item, ok, nil
}

// Collection resolves owned ids against the cache in purchase order. Owned
// ids with no cache record are reported in Missing and logged.
func (m *Manager) Collection(ctx context.Context) (Collection, error) {
	get := m.direct(ctx)
	owned, err := loadOwned(get)
	if err != nil {
		return Collection{}, err
	}
	cache, err := loadCache(get)
	if err != nil {
		return Collection{}, err
	}

	c := Collection{Items: make([]Item, 0, len(owned))}
	for _, id := range owned {
		item, ok := cache[id]
		if !ok {
			c.Missing = append(c.Missing, id)
			continue
		}
		c.Items = append(c.Items, item)
	}
	if len(c.Missing) > 0 {
		m.log.Warn("owned items missing from cache", zap.Ints("item_ids", c.Missing))
	}
	return c, nil
}
