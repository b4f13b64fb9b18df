package remote

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"dropmirror/internal/mirror"
)

// DefaultUserAgent is sent when Config.UserAgent is empty.
const DefaultUserAgent = "dropmirror/1.0"

// Config describes how to reach one account.
type Config struct {
	BaseURL   string // e.g. https://me.dropmark.com
	Username  string
	Password  string
	UserAgent string
}

// Client is the HTTP implementation of mirror.Remote. It performs exactly one
// request per call: no retries, no caching.
type Client struct {
	baseURL   string
	auth      string
	userAgent string
	json      *http.Client
	binary    *http.Client
}

// New creates a Client using fresh http.Clients. Requests carry no timeout of
// their own; only the transport's defaults and ctx bound them.
func New(cfg Config) *Client {
	return NewWithHTTPClient(cfg, &http.Client{}, &http.Client{})
}

// NewWithHTTPClient creates a Client on top of caller-supplied http.Clients,
// one for authenticated JSON requests and one for binary downloads.
func NewWithHTTPClient(cfg Config, jsonClient, binaryClient *http.Client) *Client {
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		auth:      basicAuth(cfg.Username, cfg.Password),
		userAgent: ua,
		json:      jsonClient,
		binary:    binaryClient,
	}
}

// BaseURL returns the account root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchJSON performs an authenticated GET of baseURL+path and returns the body.
func (c *Client) FetchJSON(ctx context.Context, path string) ([]byte, error) {
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Method: http.MethodGet, URL: url, Err: err}
	}
	req.Header.Set("Authorization", c.auth)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.json.Do(req)
	if err != nil {
		return nil, &FetchError{Method: http.MethodGet, URL: url, Err: err}
	}
	defer resp.Body.Close()

	if !successful(resp.StatusCode) {
		return nil, &FetchError{Method: http.MethodGet, URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Method: http.MethodGet, URL: url, StatusCode: resp.StatusCode, Err: err}
	}
	return body, nil
}

// FetchBinary performs an unauthenticated GET of an absolute URL. Content
// URLs point at a CDN that must not receive account credentials.
func (c *Client) FetchBinary(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Method: http.MethodGet, URL: url, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.binary.Do(req)
	if err != nil {
		return nil, &FetchError{Method: http.MethodGet, URL: url, Err: err}
	}
	if !successful(resp.StatusCode) {
		resp.Body.Close()
		return nil, &FetchError{Method: http.MethodGet, URL: url, StatusCode: resp.StatusCode}
	}
	return resp.Body, nil
}

// FetchError describes a failed request: either a transport error (Err set)
// or a non-2xx response (StatusCode set).
type FetchError struct {
	Method     string
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func successful(status int) bool {
	return status >= 200 && status <= 299
}

func basicAuth(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

// Compile-time check
var _ mirror.Remote = (*Client)(nil)
