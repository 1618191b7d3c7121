package store

import (
	"context"
	"encoding/json"
	"fmt"
)

type stagedWrite struct {
	table Table
	key   string
	value []byte
}

// Tx stages writes for Store.Update. Reads see the tx's own staged writes.
type Tx struct {
	ctx    context.Context
	store  *Store
	writes []stagedWrite
}

func (tx *Tx) Get(t Table, dst any) (bool, error) {
	for i := len(tx.writes) - 1; i >= 0; i-- {
		w := tx.writes[i]
		if w.table != t {
			continue
		}
		if w.value == nil {
			return false, nil
		}
		if err := json.Unmarshal(w.value, dst); err != nil {
			return false, fmt.Errorf("decode staged %s: %w", t, err)
		}
		return true, nil
	}
	return tx.store.Get(tx.ctx, t, dst)
}

func (tx *Tx) Set(t Table, v any) error {
	key, err := t.Key()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", t, err)
	}
	tx.stage(stagedWrite{table: t, key: key, value: raw})
	return nil
}

func (tx *Tx) Remove(t Table) error {
	key, err := t.Key()
	if err != nil {
		return err
	}
	tx.stage(stagedWrite{table: t, key: key})
	return nil
}

func (tx *Tx) stage(w stagedWrite) {
	for i := range tx.writes {
		if tx.writes[i].table == w.table {
			tx.writes[i] = w
			return
		}
	}
	tx.writes = append(tx.writes, w)
}

func (tx *Tx) batch() []Write {
	out := make([]Write, 0, len(tx.writes))
	for _, w := range tx.writes {
		out = append(out, Write{Key: w.key, Value: w.value})
	}
	return out
}

func (tx *Tx) tables() []Table {
	out := make([]Table, 0, len(tx.writes))
	for _, w := range tx.writes {
		out = append(out, w.table)
	}
	return out
}
