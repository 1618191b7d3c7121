package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
)

// Dialect carries the statements that differ between SQL engines.
type Dialect struct {
	Name   string
	Driver string

	createTable string
	selectValue string
	upsertValue string
	deleteValue string
}

var (
	SQLite = Dialect{
		Name:        "sqlite",
		Driver:      "sqlite",
		createTable: `CREATE TABLE IF NOT EXISTS kv (key TEXT PRIMARY KEY, value TEXT NOT NULL, updated_at TIMESTAMP NOT NULL)`,
		selectValue: `SELECT value FROM kv WHERE key = ?`,
		upsertValue: `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		deleteValue: `DELETE FROM kv WHERE key = ?`,
	}

	Postgres = Dialect{
		Name:        "postgres",
		Driver:      "pgx",
		createTable: `CREATE TABLE IF NOT EXISTS kv (key TEXT PRIMARY KEY, value TEXT NOT NULL, updated_at TIMESTAMPTZ NOT NULL)`,
		selectValue: `SELECT value FROM kv WHERE key = $1`,
		upsertValue: `INSERT INTO kv (key, value, updated_at) VALUES ($1, $2, $3)
			ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		deleteValue: `DELETE FROM kv WHERE key = $1`,
	}
)

// SQLBackend keeps every table as one row of a key/value table.
type SQLBackend struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQL opens dsn with the dialect's driver and creates the kv table.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*SQLBackend, error) {
	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Name, err)
	}
	if dialect.Name == SQLite.Name {
		// One writer at a time keeps SQLite from returning SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}

	b := NewSQLBackend(db, dialect)
	if err := b.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

func NewSQLBackend(db *sql.DB, dialect Dialect) *SQLBackend {
	return &SQLBackend{db: db, dialect: dialect}
}

func (b *SQLBackend) Migrate(ctx context.Context) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		if _, err := b.db.ExecContext(ctx, b.dialect.createTable); err != nil {
			return fmt.Errorf("create kv table: %w", err)
		}
		return nil
	})
}

func (b *SQLBackend) Close() error {
	return b.db.Close()
}

func (b *SQLBackend) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return b.db.PingContext(ctx)
	})
}

func (b *SQLBackend) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var v string
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return b.db.QueryRowContext(ctx, b.dialect.selectValue, key).Scan(&v)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(v), true, nil
}

func (b *SQLBackend) Apply(ctx context.Context, writes []Write) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		tx, err := b.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		now := time.Now().UTC()
		for _, w := range writes {
			if w.Value == nil {
				_, err = tx.ExecContext(ctx, b.dialect.deleteValue, w.Key)
			} else {
				_, err = tx.ExecContext(ctx, b.dialect.upsertValue, w.Key, string(w.Value), now)
			}
			if err != nil {
				return fmt.Errorf("write %s: %w", w.Key, err)
			}
		}
		return tx.Commit()
	})
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
