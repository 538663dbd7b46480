package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Transport fetches a physical location relative to the asset root.
// Implementations report a missing resource with an error matching
// fs.ErrNotExist and any other non-success response with *StatusError.
type Transport interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// HTTPTransport fetches assets from a web server.
type HTTPTransport struct {
	baseURL    string
	httpClient *http.Client
}

var _ Transport = (*HTTPTransport)(nil)

// HTTPOption configures an HTTPTransport.
type HTTPOption func(*HTTPTransport)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(t *HTTPTransport) {
		if client != nil {
			t.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) HTTPOption {
	return func(t *HTTPTransport) {
		if d > 0 {
			t.httpClient.Timeout = d
		}
	}
}

// NewHTTPTransport creates a transport rooted at baseURL, which should point at
// the asset root (for example http://host/assets).
func NewHTTPTransport(baseURL string, opts ...HTTPOption) (*HTTPTransport, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("assets: base url required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("assets: parse base url: %w", err)
	}
	t := &HTTPTransport{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Fetch issues a GET for path below the base URL.
func (t *HTTPTransport) Fetch(ctx context.Context, path string) ([]byte, error) {
	endpoint, err := url.JoinPath(t.baseURL, path)
	if err != nil {
		return nil, fmt.Errorf("build url for %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("GET %s: %w", endpoint, fs.ErrNotExist)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", endpoint, err)
	}
	return data, nil
}

// FSTransport reads assets from a file system such as os.DirFS or an embed.FS.
type FSTransport struct {
	fsys fs.FS
}

var _ Transport = (*FSTransport)(nil)

// NewFSTransport wraps fsys, which should be rooted at the asset root.
func NewFSTransport(fsys fs.FS) *FSTransport {
	return &FSTransport{fsys: fsys}
}

// Fetch reads path from the file system.
func (t *FSTransport) Fetch(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !fs.ValidPath(path) {
		return nil, fmt.Errorf("invalid asset path %q", path)
	}
	return fs.ReadFile(t.fsys, path)
}
