package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// IndexFileName is the name of the persisted manifest in a collection directory.
const IndexFileName = "index.json"

// CollectionStatus is the terminal state of one collection's processing.
type CollectionStatus int

const (
	// StatusDone means every item was attempted.
	StatusDone CollectionStatus = iota
	// StatusAborted means processing stopped before any item was attempted.
	StatusAborted
)

func (s CollectionStatus) String() string {
	if s == StatusAborted {
		return "aborted"
	}
	return "done"
}

// CollectionReport summarizes one collection's processing.
type CollectionReport struct {
	Collection Collection
	Dir        string
	Status     CollectionStatus
	Err        error // why the collection was aborted
	Items      []ItemResult
}

// Count returns the number of items with the given outcome.
func (r *CollectionReport) Count(o Outcome) int {
	n := 0
	for _, it := range r.Items {
		if it.Outcome == o {
			n++
		}
	}
	return n
}

// ReportFunc is called once for every collection processed by DownloadAll,
// in processing order, after the collection reaches a terminal state.
type ReportFunc func(report *CollectionReport)

// DownloadAll ensures baseDir exists and downloads each collection in order.
// Only a failure to create baseDir is returned; per-collection problems are
// logged and reported through the returned reports and fn (which may be nil).
func (s *Service) DownloadAll(ctx context.Context, collections []Collection, baseDir string, fn ReportFunc) ([]*CollectionReport, error) {
	if err := s.fs.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	reports := make([]*CollectionReport, 0, len(collections))
	for _, c := range collections {
		report := s.DownloadCollection(ctx, c, baseDir)
		reports = append(reports, report)
		if fn != nil {
			fn(report)
		}
	}
	return reports, nil
}

// DownloadCollection mirrors one collection into baseDir/<sanitized name>.
//
// The directory is created first, then the manifest is fetched and written
// verbatim to index.json before any item is touched. Items are materialized
// in manifest order; a failing item is logged and skipped, and progress
// advances exactly once per item either way.
func (s *Service) DownloadCollection(ctx context.Context, c Collection, baseDir string) *CollectionReport {
	dir := filepath.Join(baseDir, Sanitize(c.Name))
	report := &CollectionReport{Collection: c, Dir: dir}

	s.logger.Info("processing collection", "collection", c.Name, "id", c.ID)

	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return s.abort(report, fmt.Errorf("creating collection directory: %w", err))
	}

	manifest, err := s.FetchManifest(ctx, c.ID)
	if err != nil {
		return s.abort(report, err)
	}

	if err := s.writeIndex(dir, manifest); err != nil {
		return s.abort(report, err)
	}

	s.logger.Info("manifest fetched", "collection", c.Name, "items", len(manifest.Items))

	report.Items = make([]ItemResult, 0, len(manifest.Items))
	s.progress.Start(c.Name, len(manifest.Items))
	for i, raw := range manifest.Items {
		var res ItemResult
		if item, err := DecodeItem(raw); err != nil {
			res = ItemResult{Outcome: OutcomeFailed, Err: err}
		} else {
			res = s.Materialize(ctx, item, dir)
		}
		switch res.Outcome {
		case OutcomeFailed:
			s.logger.Warn("item failed", "collection", c.Name, "index", i, "item", res.ItemID, "error", res.Err)
		case OutcomeSkipped:
			s.logger.Debug("item skipped", "collection", c.Name, "item", res.ItemID, "type", res.Type, "reason", res.Reason)
		case OutcomeWritten:
			s.logger.Debug("item written", "collection", c.Name, "item", res.ItemID, "path", res.Path, "bytes", res.Bytes)
		}
		report.Items = append(report.Items, res)
		s.progress.Increment()
	}
	s.progress.Finish()

	report.Status = StatusDone
	s.logger.Info("collection complete",
		"collection", c.Name,
		"written", report.Count(OutcomeWritten),
		"skipped", report.Count(OutcomeSkipped),
		"failed", report.Count(OutcomeFailed),
	)
	return report
}

// writeIndex persists the manifest as received, indented with two spaces.
func (s *Service) writeIndex(dir string, m *Manifest) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(m.Raw), "", "  "); err != nil {
		return fmt.Errorf("formatting %s: %w", IndexFileName, err)
	}
	buf.WriteByte('\n')

	path := filepath.Join(dir, IndexFileName)
	if err := afero.WriteFile(s.fs, path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func (s *Service) abort(report *CollectionReport, err error) *CollectionReport {
	report.Status = StatusAborted
	report.Err = err
	s.logger.Error("collection aborted", "collection", report.Collection.Name, "id", report.Collection.ID, "error", err)
	return report
}
