// Package store persists the four commerce tables as JSON documents over a
// pluggable Backend and broadcasts a typed Event after every committed write.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Table string

const (
	TableWallet    Table = "wallet"
	TableCart      Table = "cart"
	TableOwned     Table = "owned"
	TableItemCache Table = "item_cache"
)

// Tables lists every table Clear removes.
var Tables = []Table{TableWallet, TableCart, TableOwned, TableItemCache}

var tableKeys = map[Table]string{
	TableWallet:    "pokemon_store_wallet",
	TableCart:      "pokemon_store_cart",
	TableOwned:     "pokemon_store_owned_pokemon",
	TableItemCache: "pokemon_store_cache",
}

var ErrUnknownTable = errors.New("unknown table")

// Key is the backend key the table is persisted under.
func (t Table) Key() (string, error) {
	k, ok := tableKeys[t]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTable, string(t))
	}
	return k, nil
}

// Write is one entry of an atomic backend batch. A nil Value deletes the key.
type Write struct {
	Key   string
	Value []byte
}

type Backend interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Apply(ctx context.Context, writes []Write) error
	Ping(ctx context.Context) error
}

type Store struct {
	backend Backend
	log     *zap.Logger
	now     func() time.Time

	// mu serializes read-modify-write cycles; notifyMu keeps delivery in
	// commit order.
	mu       sync.Mutex
	notifyMu sync.Mutex

	subMu  sync.RWMutex
	subs   map[uint64]func(Event)
	nextID uint64
}

func New(backend Backend, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		backend: backend,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
		subs:    make(map[uint64]func(Event)),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

// Get decodes the table into dst. found is false when the table is absent,
// in which case dst is left untouched and the caller applies its default.
func (s *Store) Get(ctx context.Context, t Table, dst any) (bool, error) {
	key, err := t.Key()
	if err != nil {
		return false, err
	}

	raw, ok, err := s.backend.Load(ctx, key)
	if err != nil {
		return false, fmt.Errorf("load %s: %w", t, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", t, err)
	}
	return true, nil
}

func (s *Store) Set(ctx context.Context, t Table, v any) error {
	return s.Update(ctx, KindSet, func(tx *Tx) error { return tx.Set(t, v) })
}

func (s *Store) Remove(ctx context.Context, t Table) error {
	return s.Update(ctx, KindRemove, func(tx *Tx) error { return tx.Remove(t) })
}

// Clear removes all four tables in one batch and broadcasts once, even when
// the tables were already absent.
func (s *Store) Clear(ctx context.Context) error {
	return s.update(ctx, KindClear, true, func(tx *Tx) error {
		for _, t := range Tables {
			if err := tx.Remove(t); err != nil {
				return err
			}
		}
		return nil
	})
}

// Update runs fn as one read-modify-write cycle. Writes staged on tx are
// committed in a single backend batch and announced with a single event of
// the given kind. If fn fails or stages nothing, nothing is written or
// broadcast.
func (s *Store) Update(ctx context.Context, kind Kind, fn func(tx *Tx) error) error {
	return s.update(ctx, kind, false, fn)
}

func (s *Store) update(ctx context.Context, kind Kind, always bool, fn func(tx *Tx) error) error {
	s.mu.Lock()

	tx := &Tx{ctx: ctx, store: s}
	if err := fn(tx); err != nil {
		s.mu.Unlock()
		return err
	}
	if len(tx.writes) == 0 && !always {
		s.mu.Unlock()
		return nil
	}

	if err := s.backend.Apply(ctx, tx.batch()); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("apply %s: %w", kind, err)
	}

	ev := Event{Kind: kind, Tables: tx.tables(), At: s.now()}

	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	s.broadcast(ev)
	return nil
}

// Subscribe registers fn for every future event. fn runs synchronously on the
// writer's goroutine and must not write to the store.
func (s *Store) Subscribe(fn func(Event)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) broadcast(ev Event) {
	s.subMu.RLock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.RUnlock()

	s.log.Debug("store changed",
		zap.String("kind", string(ev.Kind)),
		zap.Any("tables", ev.Tables),
		zap.Int("subscribers", len(fns)),
	)

	for _, fn := range fns {
		fn(ev)
	}
}
