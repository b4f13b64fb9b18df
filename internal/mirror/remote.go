package mirror

import (
	"context"
	"io"
)

// Remote is the read-only view of the collection service the pipeline needs.
// Implementations carry no business logic and never retry.
type Remote interface {
	// FetchJSON performs an authenticated GET of path (relative to the account
	// base URL) and returns the response body as received.
	FetchJSON(ctx context.Context, path string) ([]byte, error)

	// FetchBinary performs an unauthenticated GET of an absolute URL and
	// returns the body stream. The caller must close it.
	FetchBinary(ctx context.Context, url string) (io.ReadCloser, error)
}
