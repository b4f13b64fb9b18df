package mirror

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/afero"
)

// EncryptedSuffix is appended to object keys of encrypted archive copies.
const EncryptedSuffix = ".age"

// Vault is an archive destination for mirrored collections. Objects are
// addressed by slash-separated keys.
type Vault interface {
	// Name identifies the vault in logs.
	Name() string

	// PutObject stores size bytes read from r under key, replacing any
	// existing object.
	PutObject(ctx context.Context, key string, r io.Reader, size int64) error

	// GetObject writes the object stored under key to w.
	GetObject(ctx context.Context, key string, w io.Writer) error

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup(ctx context.Context) error
}

// Encryptor encrypts archive copies with a public key. Decryption needs the
// private key, unlocked with a passphrase.
type Encryptor interface {
	// Setup generates a key pair; the private key is protected by passphrase.
	Setup(passphrase string) error

	// Encrypt encrypts data read from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key and returns a context for decryption.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured returns true if both key files exist.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key for one session.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}

// ArchiveResult summarizes one collection's upload.
type ArchiveResult struct {
	Files    int   // files considered, after exclusions
	Uploads  int   // successful (file, vault) uploads
	Failures int   // failed (file, vault) uploads
	Bytes    int64 // bytes uploaded, after encryption
}

// Archiver copies finished collection directories to vaults.
type Archiver struct {
	fs        afero.Fs
	vaults    []Vault
	encryptor Encryptor
	logger    Logger
	exclude   *ExcludeMatcher
}

// NewArchiver creates an Archiver. A nil encryptor uploads plaintext.
func NewArchiver(fs afero.Fs, vaults []Vault, encryptor Encryptor, logger Logger) *Archiver {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Archiver{fs: fs, vaults: vaults, encryptor: encryptor, logger: logger}
}

// SetExclude leaves files matching patterns out of every archive.
func (a *Archiver) SetExclude(patterns []string) {
	a.exclude = NewExcludeMatcher(patterns)
}

// ObjectKey returns the vault key for a file at rel (relative to the
// collection directory dir) within run runID.
func ObjectKey(runID, dir, rel string) string {
	return path.Join(runID, filepath.Base(dir), filepath.ToSlash(rel))
}

// ArchiveCollection uploads every file under report.Dir to every vault.
// Aborted collections are not archived. Upload failures are logged and
// counted; they never affect the local mirror.
func (a *Archiver) ArchiveCollection(ctx context.Context, runID string, report *CollectionReport) ArchiveResult {
	var res ArchiveResult
	if len(a.vaults) == 0 || report.Status != StatusDone {
		return res
	}

	err := afero.Walk(a.fs, report.Dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(report.Dir, p)
		if err != nil {
			return err
		}
		if a.exclude.Match(rel) {
			a.logger.Debug("excluded from archive", "file", rel)
			return nil
		}
		res.Files++

		key := ObjectKey(runID, report.Dir, rel)
		n, uploads, failures := a.archiveFile(ctx, p, key, info.Size())
		res.Bytes += n
		res.Uploads += uploads
		res.Failures += failures
		return nil
	})
	if err != nil {
		a.logger.Warn("archive walk failed", "collection", report.Collection.Name, "error", err)
	}

	a.logger.Info("collection archived",
		"collection", report.Collection.Name,
		"files", res.Files,
		"uploads", res.Uploads,
		"failures", res.Failures,
	)
	return res
}

// archiveFile uploads one file to every vault, encrypting it first when an
// encryptor is configured.
func (a *Archiver) archiveFile(ctx context.Context, p, key string, size int64) (int64, int, int) {
	src := p
	if a.encryptor != nil {
		encPath, encSize, err := a.encryptToTemp(p)
		if err != nil {
			a.logger.Warn("archive encryption failed", "file", p, "error", err)
			return 0, 0, len(a.vaults)
		}
		defer a.fs.Remove(encPath)
		src, size, key = encPath, encSize, key+EncryptedSuffix
	}

	var bytes int64
	uploads, failures := 0, 0
	for _, v := range a.vaults {
		if err := a.upload(ctx, v, src, key, size); err != nil {
			a.logger.Warn("archive upload failed", "vault", v.Name(), "key", key, "error", err)
			failures++
			continue
		}
		a.logger.Debug("archived", "vault", v.Name(), "key", key, "bytes", size)
		uploads++
		bytes += size
	}
	return bytes, uploads, failures
}

func (a *Archiver) upload(ctx context.Context, v Vault, src, key string, size int64) error {
	f, err := a.fs.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer f.Close()
	return v.PutObject(ctx, key, f, size)
}

// encryptToTemp writes the encrypted form of p to a temporary file and
// returns its path and size. The caller removes it.
func (a *Archiver) encryptToTemp(p string) (string, int64, error) {
	in, err := a.fs.Open(p)
	if err != nil {
		return "", 0, fmt.Errorf("opening %s: %w", p, err)
	}
	defer in.Close()

	tmp, err := afero.TempFile(a.fs, "", "dropmirror-archive-*")
	if err != nil {
		return "", 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := a.encryptor.Encrypt(in, tmp); err != nil {
		tmp.Close()
		a.fs.Remove(tmpPath)
		return "", 0, err
	}
	info, err := tmp.Stat()
	if err != nil {
		tmp.Close()
		a.fs.Remove(tmpPath)
		return "", 0, fmt.Errorf("stat temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		a.fs.Remove(tmpPath)
		return "", 0, fmt.Errorf("closing temp file: %w", err)
	}
	return tmpPath, info.Size(), nil
}
