package mirror

import (
	"strings"

	"github.com/spf13/afero"
)

// Service is the fetch-and-materialize pipeline. It discovers collections,
// fetches manifests, and writes every item of a collection to disk.
//
// A Service is driven from a single goroutine: items and collections are
// processed strictly in order with at most one request in flight.
type Service struct {
	remote   Remote
	fs       afero.Fs
	progress Progress
	logger   Logger
	baseURL  string
}

// NewService creates a Service. fs receives all output; baseURL is the
// account root used to build URLs for manually resolved collections.
// A nil progress or logger is replaced with a no-op implementation.
func NewService(remote Remote, fs afero.Fs, progress Progress, logger Logger, baseURL string) *Service {
	if progress == nil {
		progress = NopProgress{}
	}
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Service{
		remote:   remote,
		fs:       fs,
		progress: progress,
		logger:   logger,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}
