package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/afero"

	"dropmirror/internal/config"
	"dropmirror/internal/database"
	"dropmirror/internal/encryption"
	"dropmirror/internal/metrics"
	"dropmirror/internal/mirror"
	"dropmirror/internal/model"
	"dropmirror/internal/remote"
	"dropmirror/internal/vault"
)

// ErrAlreadyRan is returned when Download is called twice on one App.
var ErrAlreadyRan = errors.New("app: a download has already run")

// Options carries the collaborators NewApp does not build from config.
// Zero values select the production implementations.
type Options struct {
	FS         afero.Fs           // default: OS filesystem
	Progress   mirror.Progress    // default: no progress output
	Console    io.Writer          // log lines besides the log file; default: stderr
	Verbose    bool               // show info-level log lines on the console
	Clock      mirror.Clock       // default: RealClock
	IDs        mirror.IDGenerator // default: UUIDGenerator
	HTTPClient *http.Client       // used for both JSON and binary requests
}

// App is the application layer between the CLI and mirror.Service. It
// constructs all dependencies from config and owns their lifecycle. One App
// performs at most one download run; its run id tags every log line.
type App struct {
	cfg       *config.Config
	fs        afero.Fs
	service   *mirror.Service
	history   mirror.History
	vaults    []mirror.Vault
	encryptor mirror.Encryptor
	clock     mirror.Clock
	logger    mirror.Logger
	logFile   *os.File
	runID     string
	ran       bool
}

// NewApp creates a fully wired App from cfg. The caller must call Close.
func NewApp(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.FS == nil {
		opts.FS = afero.NewOsFs()
	}
	if opts.Console == nil {
		opts.Console = os.Stderr
	}
	if opts.Clock == nil {
		opts.Clock = mirror.RealClock{}
	}
	if opts.IDs == nil {
		opts.IDs = mirror.UUIDGenerator{}
	}

	runID := opts.IDs.New()
	consoleLevel := slog.LevelWarn
	if opts.Verbose {
		consoleLevel = slog.LevelInfo
	}
	sl, logFile, err := newLogger(cfg.LogDir, runID, opts.Console, consoleLevel)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: sl}

	history, err := database.NewHistoryFromConfig(cfg.History)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("opening history: %w", err)
	}

	vaults, err := vault.NewVaultsFromConfig(ctx, cfg.Vaults)
	if err != nil {
		history.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating vaults: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(opts.FS, cfg.Encryption)
	if err != nil {
		history.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	rcfg := remote.Config{
		BaseURL:  cfg.AccountURL(),
		Username: cfg.Username,
		Password: cfg.Password,
	}
	client := remote.New(rcfg)
	if opts.HTTPClient != nil {
		client = remote.NewWithHTTPClient(rcfg, opts.HTTPClient, opts.HTTPClient)
	}

	svc := mirror.NewService(client, opts.FS, opts.Progress, logger, client.BaseURL())

	return &App{
		cfg:       cfg,
		fs:        opts.FS,
		service:   svc,
		history:   history,
		vaults:    vaults,
		encryptor: enc,
		clock:     opts.Clock,
		logger:    logger,
		logFile:   logFile,
		runID:     runID,
	}, nil
}

// RunID returns the id of this App's run.
func (a *App) RunID() string {
	return a.runID
}

// Collections lists the collections discovered from the activity feed.
// Discovery failures yield an empty list.
func (a *App) Collections(ctx context.Context) []mirror.Collection {
	return a.service.DiscoverCollections(ctx)
}

// ResolveManual resolves each raw id or URL. Inputs that do not resolve are
// logged and returned as errors; the rest are returned in input order.
func (a *App) ResolveManual(ctx context.Context, inputs []string) ([]mirror.Collection, []error) {
	var collections []mirror.Collection
	var errs []error
	for _, raw := range inputs {
		c, err := a.service.ResolveManual(ctx, raw)
		if err != nil {
			a.logger.Error("manual resolution failed", "input", raw, "error", err)
			errs = append(errs, err)
			continue
		}
		collections = append(collections, c)
	}
	return collections, errs
}

// Download mirrors collections into a new timestamped run directory under
// the configured output dir. Each finished collection is recorded in
// history, archived to the configured vaults, and counted in metrics.
// Only a failure to create the run directory is returned as an error.
func (a *App) Download(ctx context.Context, mode string, collections []mirror.Collection) (*model.Run, error) {
	if a.ran {
		return nil, ErrAlreadyRan
	}
	a.ran = true

	archiver, err := a.newArchiver(ctx)
	if err != nil {
		return nil, err
	}

	var rc *metrics.RunCollector
	if a.cfg.Metrics.Textfile != "" {
		if rc, err = metrics.NewRunCollector(); err != nil {
			return nil, err
		}
	}

	started := a.clock.Now()
	op := NewRunOperation(a.runID, mode, RunRoot(a.cfg.OutputDir, started), started)
	if err := a.history.CreateRun(op.Run); err != nil {
		a.logger.Warn("recording run failed", "error", err)
	}

	a.logger.Info("run started", "mode", mode, "collections", len(collections), "dir", op.Run.RootDir)

	_, runErr := a.service.DownloadAll(ctx, collections, op.Run.RootDir, func(report *mirror.CollectionReport) {
		if err := a.history.RecordCollection(op.Record(report)); err != nil {
			a.logger.Warn("recording collection failed", "collection", report.Collection.Name, "error", err)
		}
		res := archiver.ArchiveCollection(ctx, a.runID, report)
		if rc != nil {
			rc.ObserveCollection(report)
			rc.ObserveArchive(res)
		}
	})
	if runErr != nil {
		a.logger.Error("run failed", "error", runErr)
	}

	op.Finish(a.clock.Now(), runErr)
	if err := a.history.FinishRun(op.Run); err != nil {
		a.logger.Warn("recording run result failed", "error", err)
	}

	if rc != nil {
		rc.ObserveRun(mode, runErr == nil && op.Run.Aborted == 0, op.Duration(), *op.Run.FinishedAt)
		if err := rc.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
			a.logger.Warn("writing metrics failed", "error", err)
		}
	}

	a.logger.Info("run finished",
		"status", op.Run.Status,
		"collections", op.Run.Collections,
		"aborted", op.Run.Aborted,
		"written", op.Run.Written,
		"skipped", op.Run.Skipped,
		"failed", op.Run.Failed,
	)
	return op.Run, runErr
}

// newArchiver returns an Archiver over the vaults that pass ValidateSetup.
// Encryption without keys is a configuration error since nothing could be
// archived.
func (a *App) newArchiver(ctx context.Context) (*mirror.Archiver, error) {
	if len(a.vaults) > 0 && a.encryptor != nil && !a.encryptor.IsConfigured() {
		return nil, errors.New("archive encryption is enabled but no keys exist: run `dropmirror config keys`")
	}

	var ready []mirror.Vault
	for _, v := range a.vaults {
		if err := v.ValidateSetup(ctx); err != nil {
			a.logger.Warn("vault unavailable, not archiving to it", "vault", v.Name(), "error", err)
			continue
		}
		ready = append(ready, v)
	}
	archiver := mirror.NewArchiver(a.fs, ready, a.encryptor, a.logger)
	archiver.SetExclude(a.cfg.Archive.Exclude)
	return archiver, nil
}

// History returns the most recent runs, newest first.
func (a *App) History(limit int) ([]*model.Run, error) {
	return a.history.ListRuns(limit)
}

// RunCollections returns the recorded collections of one run.
func (a *App) RunCollections(runID string) ([]*model.RunCollection, error) {
	return a.history.ListRunCollections(runID)
}

// FetchArchived writes the archived object key from the named vault (the
// first vault when name is empty) to w. Objects with the encrypted suffix are
// decrypted; passphrase is only called in that case.
func (a *App) FetchArchived(ctx context.Context, vaultName, key string, passphrase func() (string, error), w io.Writer) error {
	v, err := a.findVault(vaultName)
	if err != nil {
		return err
	}

	if !strings.HasSuffix(key, mirror.EncryptedSuffix) {
		return v.GetObject(ctx, key, w)
	}
	if a.encryptor == nil {
		return fmt.Errorf("%s is encrypted but encryption is not configured", key)
	}

	pass, err := passphrase()
	if err != nil {
		return fmt.Errorf("reading passphrase: %w", err)
	}
	dc, err := a.encryptor.Unlock(pass)
	if err != nil {
		return err
	}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(v.GetObject(ctx, key, pw))
	}()
	err = dc.Decrypt(pr, w)
	pr.Close()
	return err
}

func (a *App) findVault(name string) (mirror.Vault, error) {
	if len(a.vaults) == 0 {
		return nil, errors.New("no vaults configured")
	}
	if name == "" {
		return a.vaults[0], nil
	}
	for _, v := range a.vaults {
		if v.Name() == name {
			return v, nil
		}
	}
	return nil, fmt.Errorf("no vault named %q", name)
}

// Close releases the history database and the log file.
func (a *App) Close() error {
	var firstErr error
	if err := a.history.Close(); err != nil {
		firstErr = fmt.Errorf("closing history: %w", err)
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log file: %w", err)
		}
	}
	return firstErr
}
