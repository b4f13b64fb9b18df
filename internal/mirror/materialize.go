package mirror

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Outcome is what materializing one item did to the filesystem.
type Outcome int

const (
	// OutcomeSkipped means the item has no on-disk representation: an
	// unsupported type, or no source URL or link.
	OutcomeSkipped Outcome = iota
	// OutcomeWritten means exactly one file was written.
	OutcomeWritten
	// OutcomeFailed means the fetch or write failed. A partially streamed
	// file may remain at Path.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeWritten:
		return "written"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// ItemResult describes what happened to one item.
type ItemResult struct {
	ItemID  string
	Type    string
	Outcome Outcome
	Path    string
	Bytes   int64
	Reason  string // why an item was skipped
	Err     error  // set when Outcome is OutcomeFailed; wraps ErrItem
}

const linkFileTemplate = "[InternetShortcut]\nURL=%s"

// Materialize writes the on-disk representation of item into dir. It never
// panics and never returns an error directly: failures are reported through
// the result so the caller can move on to the next item.
func (s *Service) Materialize(ctx context.Context, item Item, dir string) ItemResult {
	switch {
	case item.Type == TypeLink:
		return s.materializeLink(item, dir)
	case item.IsBinary():
		return s.materializeBinary(ctx, item, dir)
	default:
		return skipped(item, "unsupported type")
	}
}

func (s *Service) materializeLink(item Item, dir string) ItemResult {
	if item.Link == "" {
		return skipped(item, "no link")
	}

	dest := filepath.Join(dir, LinkName(item))
	body := fmt.Sprintf(linkFileTemplate, item.Link)
	if err := afero.WriteFile(s.fs, dest, []byte(body), 0644); err != nil {
		return failed(item, dest, 0, fmt.Errorf("%w: writing %s: %w", ErrItem, dest, err))
	}

	return ItemResult{
		ItemID:  string(item.ID),
		Type:    item.Type,
		Outcome: OutcomeWritten,
		Path:    dest,
		Bytes:   int64(len(body)),
	}
}

func (s *Service) materializeBinary(ctx context.Context, item Item, dir string) ItemResult {
	source := item.SourceURL()
	if source == "" {
		return skipped(item, "no source url")
	}

	dest := filepath.Join(dir, DestinationName(item, source))

	body, err := s.remote.FetchBinary(ctx, source)
	if err != nil {
		return failed(item, dest, 0, fmt.Errorf("%w: fetching %s: %w", ErrItem, source, err))
	}
	defer body.Close()

	// The destination is written in place. If the stream breaks midway the
	// truncated file stays behind; there is no integrity marker.
	f, err := s.fs.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return failed(item, dest, 0, fmt.Errorf("%w: creating %s: %w", ErrItem, dest, err))
	}

	n, err := io.Copy(f, body)
	closeErr := f.Close()
	if err != nil {
		return failed(item, dest, n, fmt.Errorf("%w: streaming %s: %w", ErrItem, source, err))
	}
	if closeErr != nil {
		return failed(item, dest, n, fmt.Errorf("%w: closing %s: %w", ErrItem, dest, closeErr))
	}

	return ItemResult{
		ItemID:  string(item.ID),
		Type:    item.Type,
		Outcome: OutcomeWritten,
		Path:    dest,
		Bytes:   n,
	}
}

func skipped(item Item, reason string) ItemResult {
	return ItemResult{
		ItemID:  string(item.ID),
		Type:    item.Type,
		Outcome: OutcomeSkipped,
		Reason:  reason,
	}
}

func failed(item Item, dest string, n int64, err error) ItemResult {
	return ItemResult{
		ItemID:  string(item.ID),
		Type:    item.Type,
		Outcome: OutcomeFailed,
		Path:    dest,
		Bytes:   n,
		Err:     err,
	}
}
