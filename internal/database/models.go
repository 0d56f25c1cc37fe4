package database

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/d8349565/clipboard/internal/clipboard"
)

// HistoryRow is the persisted form of one captured clipboard item. Image
// side-channel bytes are deliberately not persisted; only the authoritative
// payload survives a restart.
type HistoryRow struct {
	bun.BaseModel `bun:"table:clipboard_items"`

	ID            int64   `bun:"id,pk,autoincrement"`
	CreatedAtMs   int64   `bun:"created_at_ms,notnull"`
	ItemType      string  `bun:"item_type,notnull"`
	Text          *string `bun:"text"`
	FilePathsJSON *string `bun:"file_paths_json"`
	RawBytes      []byte  `bun:"raw_bytes"`
}

func encodeRow(item *clipboard.Item) (*HistoryRow, error) {
	row := &HistoryRow{
		CreatedAtMs: item.CreatedAt.UnixMilli(),
		ItemType:    string(item.Type),
		RawBytes:    item.RawBytes,
	}
	if item.Text != "" || item.Type == clipboard.TypeText {
		text := item.Text
		row.Text = &text
	}
	if item.FilePaths != nil {
		data, err := json.Marshal(item.FilePaths)
		if err != nil {
			return nil, fmt.Errorf("encode file paths: %w", err)
		}
		s := string(data)
		row.FilePathsJSON = &s
	}
	return row, nil
}

func decodeRow(row *HistoryRow) (*clipboard.Item, error) {
	item := &clipboard.Item{
		CreatedAt: time.UnixMilli(row.CreatedAtMs).UTC(),
		Type:      clipboard.CoerceType(row.ItemType),
		RawBytes:  row.RawBytes,
	}
	if row.Text != nil {
		item.Text = *row.Text
	}
	if row.FilePathsJSON != nil {
		if err := json.Unmarshal([]byte(*row.FilePathsJSON), &item.FilePaths); err != nil {
			return nil, fmt.Errorf("decode file paths: %w", err)
		}
	}
	return item, nil
}
