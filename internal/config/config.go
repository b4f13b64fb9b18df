package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Environment variables that override credentials from the config file.
const (
	EnvUsername = "DROPMIRROR_USERNAME"
	EnvPassword = "DROPMIRROR_PASSWORD"
)

// Config represents the main configuration for dropmirror.
type Config struct {
	Account    string           `toml:"account"`
	BaseURL    string           `toml:"base_url,omitempty"` // overrides the URL derived from Account
	Username   string           `toml:"username"`
	Password   string           `toml:"password,omitempty"`
	OutputDir  string           `toml:"output_dir"`
	LogDir     string           `toml:"log_dir"`
	History    HistoryConfig    `toml:"history"`
	Vaults     []VaultConfig    `toml:"vaults"`
	Archive    ArchiveConfig    `toml:"archive"`
	Encryption EncryptionConfig `toml:"encryption"`
	Metrics    MetricsConfig    `toml:"metrics"`
}

// EncryptionConfig holds paths to the age key pair used to encrypt archives.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "none" (default), "age", or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// VaultConfig represents configuration for an archive destination.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"` // S3-compatible services such as MinIO
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// HistoryConfig represents configuration for the run history database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type HistoryConfig struct {
	Type    string `toml:"type"`               // "sqlite", "memory", or "none"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// ArchiveConfig controls which mirrored files are copied to vaults.
type ArchiveConfig struct {
	Exclude []string `toml:"exclude,omitempty"` // glob patterns; a '/' matches the path within the collection
}

// MetricsConfig controls the Prometheus textfile written after each run.
type MetricsConfig struct {
	Textfile string `toml:"textfile,omitempty"` // empty disables metrics output
}

// NewConfig creates a new Config for account with defaults rooted at homeDir.
func NewConfig(account, homeDir string) *Config {
	return &Config{
		Account:   account,
		OutputDir: ".",
		LogDir:    filepath.Join(homeDir, "log"),
		History: HistoryConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(homeDir, "db"),
		},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(homeDir, "keys", "dropmirror.pub"),
			PrivateKeyPath: filepath.Join(homeDir, "keys", "dropmirror.key"),
		},
	}
}

// AccountURL returns the account root: BaseURL when set, otherwise the URL
// derived from Account.
func (c *Config) AccountURL() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	if c.Account == "" {
		return ""
	}
	return "https://" + c.Account + ".dropmark.com"
}

// Validate reports the first missing required setting.
func (c *Config) Validate() error {
	if c.AccountURL() == "" {
		return errors.New("config: account or base_url is required")
	}
	if c.Username == "" {
		return fmt.Errorf("config: username is required (set it in the config file or %s)", EnvUsername)
	}
	if c.Password == "" {
		return fmt.Errorf("config: password is required (set it in the config file or %s)", EnvPassword)
	}
	return nil
}

// ApplyEnv overrides credentials with non-empty values from getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvUsername); v != "" {
		c.Username = v
	}
	if v := getenv(EnvPassword); v != "" {
		c.Password = v
	}
}

// LoadDotEnv loads variables from a .env file into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading %s: %w", path, err)
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to path. The file may hold a password, so it
// is created owner-readable only.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
