package testutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"dropmirror/internal/mirror"
)

// ErrBrokenStream is returned mid-read by streams registered with SetBrokenBinary.
var ErrBrokenStream = errors.New("connection reset by peer")

// FakeRemote is an in-memory mirror.Remote. JSON bodies are keyed by request
// path, binary payloads by absolute URL. Anything unregistered is a 404-style error.
type FakeRemote struct {
	mu          sync.Mutex
	json        map[string][]byte
	jsonErr     map[string]error
	binary      map[string][]byte
	binaryErr   map[string]error
	brokenAfter map[string]int

	JSONCalls   []string
	BinaryCalls []string
}

// NewFakeRemote creates an empty FakeRemote.
func NewFakeRemote() *FakeRemote {
	return &FakeRemote{
		json:        make(map[string][]byte),
		jsonErr:     make(map[string]error),
		binary:      make(map[string][]byte),
		binaryErr:   make(map[string]error),
		brokenAfter: make(map[string]int),
	}
}

// SetJSON registers the body returned for path.
func (f *FakeRemote) SetJSON(path, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.json[path] = []byte(body)
	delete(f.jsonErr, path)
}

// SetJSONError makes requests for path fail with err.
func (f *FakeRemote) SetJSONError(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jsonErr[path] = err
}

// SetBinary registers the payload returned for url.
func (f *FakeRemote) SetBinary(url string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.binary[url] = data
	delete(f.binaryErr, url)
	delete(f.brokenAfter, url)
}

// SetBinaryError makes requests for url fail before any byte is returned.
func (f *FakeRemote) SetBinaryError(url string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.binaryErr[url] = err
}

// SetBrokenBinary registers a payload whose stream fails with ErrBrokenStream
// after failAfter bytes.
func (f *FakeRemote) SetBrokenBinary(url string, data []byte, failAfter int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.binary[url] = data
	f.brokenAfter[url] = failAfter
	delete(f.binaryErr, url)
}

func (f *FakeRemote) FetchJSON(_ context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.JSONCalls = append(f.JSONCalls, path)

	if err, ok := f.jsonErr[path]; ok {
		return nil, err
	}
	body, ok := f.json[path]
	if !ok {
		return nil, fmt.Errorf("GET %s: 404 Not Found", path)
	}
	return append([]byte(nil), body...), nil
}

func (f *FakeRemote) FetchBinary(_ context.Context, url string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.BinaryCalls = append(f.BinaryCalls, url)

	if err, ok := f.binaryErr[url]; ok {
		return nil, err
	}
	data, ok := f.binary[url]
	if !ok {
		return nil, fmt.Errorf("GET %s: 404 Not Found", url)
	}
	if n, broken := f.brokenAfter[url]; broken {
		return io.NopCloser(&brokenReader{data: data[:n]}), nil
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// brokenReader yields data and then fails instead of returning io.EOF.
type brokenReader struct {
	data []byte
	off  int
}

func (r *brokenReader) Read(p []byte) (int, error) {
	if r.off >= len(r.data) {
		return 0, ErrBrokenStream
	}
	n := copy(p, r.data[r.off:])
	r.off += n
	return n, nil
}

// Compile-time check
var _ mirror.Remote = (*FakeRemote)(nil)
