package database

import (
	"fmt"
	"os"
	"path/filepath"

	"dropmirror/internal/config"
	"dropmirror/internal/mirror"
)

// HistoryFileName is the sqlite file created under history.data_dir.
const HistoryFileName = "history.db"

// NewHistoryFromConfig creates a History implementation based on the history config type.
func NewHistoryFromConfig(cfg config.HistoryConfig) (mirror.History, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite history")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
		return openSQLite(filepath.Join(cfg.DataDir, HistoryFileName))
	case "memory":
		return openSQLite(":memory:")
	case "none", "":
		return mirror.NopHistory{}, nil
	default:
		return nil, fmt.Errorf("unknown history type: %s", cfg.Type)
	}
}

// openSQLite keeps a failed open from turning into a non-nil interface.
func openSQLite(path string) (mirror.History, error) {
	h, err := NewSQLiteHistory(path)
	if err != nil {
		return nil, err
	}
	return h, nil
}
