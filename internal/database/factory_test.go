package database

import (
	"os"
	"path/filepath"
	"testing"

	"dropmirror/internal/config"
	"dropmirror/internal/mirror"
)

func TestNewHistoryFromConfig(t *testing.T) {
	t.Run("memory history", func(t *testing.T) {
		got, err := NewHistoryFromConfig(config.HistoryConfig{Type: "memory"})
		if err != nil {
			t.Fatalf("NewHistoryFromConfig() unexpected error: %v", err)
		}
		defer got.Close()

		if _, ok := got.(*SQLiteHistory); !ok {
			t.Errorf("NewHistoryFromConfig() = %T, want *SQLiteHistory", got)
		}
	})

	t.Run("sqlite history", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "db")
		got, err := NewHistoryFromConfig(config.HistoryConfig{Type: "sqlite", DataDir: dir})
		if err != nil {
			t.Fatalf("NewHistoryFromConfig() unexpected error: %v", err)
		}
		defer got.Close()

		if _, err := os.Stat(filepath.Join(dir, HistoryFileName)); err != nil {
			t.Errorf("history file not created: %v", err)
		}
	})

	t.Run("sqlite history without data_dir", func(t *testing.T) {
		got, err := NewHistoryFromConfig(config.HistoryConfig{Type: "sqlite"})
		if err == nil {
			t.Error("NewHistoryFromConfig() expected error for missing data_dir, got nil")
		}
		if got != nil {
			t.Error("NewHistoryFromConfig() should return nil on error")
		}
	})

	t.Run("disabled history", func(t *testing.T) {
		for _, typ := range []string{"none", ""} {
			got, err := NewHistoryFromConfig(config.HistoryConfig{Type: typ})
			if err != nil {
				t.Fatalf("NewHistoryFromConfig(%q) unexpected error: %v", typ, err)
			}
			if _, ok := got.(mirror.NopHistory); !ok {
				t.Errorf("NewHistoryFromConfig(%q) = %T, want mirror.NopHistory", typ, got)
			}
		}
	})

	t.Run("unknown history type", func(t *testing.T) {
		got, err := NewHistoryFromConfig(config.HistoryConfig{Type: "postgres"})
		if err == nil {
			t.Error("NewHistoryFromConfig() expected error for unknown type, got nil")
		}
		if got != nil {
			t.Error("NewHistoryFromConfig() should return nil on error")
		}
	})
}
