// Package database is the durable append-only log of captured items, kept
// independent of the in-memory history's capacity.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/d8349565/clipboard/internal/clipboard"
)

type Repository struct {
	db *bun.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	repo := &Repository{db: db}

	if err := repo.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	ctx := context.Background()

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := r.db.Exec(p); err != nil {
			return fmt.Errorf("failed to apply pragma: %w", err)
		}
	}

	if _, err := r.db.NewCreateTable().Model((*HistoryRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	if _, err := r.db.Exec("CREATE INDEX IF NOT EXISTS idx_created_at ON clipboard_items(created_at_ms DESC)"); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// Insert appends one item without trimming.
func (r *Repository) Insert(ctx context.Context, item *clipboard.Item) error {
	row, err := encodeRow(item)
	if err != nil {
		return err
	}
	if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert clipboard item: %w", err)
	}
	return nil
}

// InsertAndTrim appends item and deletes every row not among the limit
// most-recently-created, committed as one transaction. A crash between the
// two steps can therefore never leave the store over its bound.
func (r *Repository) InsertAndTrim(ctx context.Context, item *clipboard.Item, limit int) error {
	row, err := encodeRow(item)
	if err != nil {
		return err
	}
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert clipboard item: %w", err)
		}
		if limit > 0 {
			if err := trim(ctx, tx, limit); err != nil {
				return err
			}
		}
		return nil
	})
}

// TrimToLimit deletes all rows not among the limit most-recently-created.
func (r *Repository) TrimToLimit(ctx context.Context, limit int) error {
	if limit <= 0 {
		return nil
	}
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return trim(ctx, tx, limit)
	})
}

func trim(ctx context.Context, tx bun.Tx, limit int) error {
	keep := tx.NewSelect().
		Model((*HistoryRow)(nil)).
		Column("id").
		Order("created_at_ms DESC", "id DESC").
		Limit(limit)

	_, err := tx.NewDelete().
		Model((*HistoryRow)(nil)).
		Where("id NOT IN (?)", keep).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to trim clipboard items: %w", err)
	}
	return nil
}

// LoadRecent returns up to limit items, most recent first. Malformed rows are
// skipped so one corrupted record never blocks rehydration of the rest.
func (r *Repository) LoadRecent(ctx context.Context, limit int) ([]*clipboard.Item, error) {
	if limit <= 0 {
		return nil, nil
	}

	var rows []*HistoryRow
	err := r.db.NewSelect().
		Model(&rows).
		Order("created_at_ms DESC", "id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent items: %w", err)
	}

	items := make([]*clipboard.Item, 0, len(rows))
	for _, row := range rows {
		item, err := decodeRow(row)
		if err != nil {
			slog.Warn("skipping malformed history row", "id", row.ID, "err", err)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *Repository) Clear(ctx context.Context) error {
	_, err := r.db.NewDelete().Model((*HistoryRow)(nil)).Where("1=1").Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to clear clipboard items: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
