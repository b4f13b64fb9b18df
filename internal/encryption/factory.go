package encryption

import (
	"fmt"

	"github.com/spf13/afero"

	"dropmirror/internal/config"
	"dropmirror/internal/mirror"
)

// NewEncryptorFromConfig creates the archive Encryptor for cfg.Type. It
// returns nil for "none", meaning archives are uploaded in plaintext.
func NewEncryptorFromConfig(fs afero.Fs, cfg config.EncryptionConfig) (mirror.Encryptor, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "age":
		return NewAgeEncryptor(fs, cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
