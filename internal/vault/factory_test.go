package vault

import (
	"context"
	"path/filepath"
	"testing"

	"dropmirror/internal/config"
)

func TestNewVaultFromConfig(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.VaultConfig
		wantErr  bool
		wantName string
	}{
		{
			name: "memory vault",
			cfg: config.VaultConfig{
				Type: "memory",
				Name: "test-memory",
			},
			wantName: "test-memory",
		},
		{
			name: "filesystem vault",
			cfg: config.VaultConfig{
				Type:        "filesystem",
				Name:        "test-fs",
				FSVaultRoot: filepath.Join(t.TempDir(), "vault"),
			},
			wantName: "test-fs",
		},
		{
			name: "filesystem vault without root",
			cfg: config.VaultConfig{
				Type: "filesystem",
				Name: "test-fs",
			},
			wantErr: true,
		},
		{
			name: "s3 vault without bucket",
			cfg: config.VaultConfig{
				Type: "s3",
				Name: "test-s3",
			},
			wantErr: true,
		},
		{
			name: "unknown vault type",
			cfg: config.VaultConfig{
				Type: "unknown",
				Name: "test-unknown",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewVaultFromConfig(context.Background(), tt.cfg)

			if (err != nil) != tt.wantErr {
				t.Fatalf("NewVaultFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if got != nil {
					t.Errorf("NewVaultFromConfig() = %v, want nil on error", got)
				}
				return
			}
			if got.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", got.Name(), tt.wantName)
			}
		})
	}
}

func TestNewVaultsFromConfig(t *testing.T) {
	t.Run("keeps order", func(t *testing.T) {
		vaults, err := NewVaultsFromConfig(context.Background(), []config.VaultConfig{
			{Type: "memory", Name: "first"},
			{Type: "memory", Name: "second"},
		})
		if err != nil {
			t.Fatalf("NewVaultsFromConfig() error = %v", err)
		}
		if len(vaults) != 2 || vaults[0].Name() != "first" || vaults[1].Name() != "second" {
			t.Errorf("NewVaultsFromConfig() returned unexpected vaults")
		}
	})

	t.Run("fails on any bad entry", func(t *testing.T) {
		vaults, err := NewVaultsFromConfig(context.Background(), []config.VaultConfig{
			{Type: "memory", Name: "ok"},
			{Type: "bogus", Name: "bad"},
		})
		if err == nil {
			t.Fatal("NewVaultsFromConfig() expected error")
		}
		if vaults != nil {
			t.Errorf("NewVaultsFromConfig() = %v, want nil", vaults)
		}
	})

	t.Run("no vaults configured", func(t *testing.T) {
		vaults, err := NewVaultsFromConfig(context.Background(), nil)
		if err != nil {
			t.Fatalf("NewVaultsFromConfig() error = %v", err)
		}
		if len(vaults) != 0 {
			t.Errorf("len(vaults) = %d, want 0", len(vaults))
		}
	})
}
