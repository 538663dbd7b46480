package assets

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/singleflight"
)

// DefaultManifestPath is the manifest location relative to the asset root.
const DefaultManifestPath = "objects.json"

// Location is where a logical path is physically served from.
type Location struct {
	Logical string
	// Path is relative to the asset root.
	Path   string
	Hashed bool
	Entry  ManifestEntry

	root string
}

// URL returns the full fetch path including the asset root.
func (l Location) URL() string {
	root := l.root
	if root == "" {
		root = DefaultRoot
	}
	return path.Join(root, l.Path)
}

// Store resolves logical paths against the content-addressed manifest and
// fetches their bytes.
type Store struct {
	transport    Transport
	manifestPath string
	root         string
	retries      int
	retryDelay   time.Duration
	verify       bool
	logger       *slog.Logger

	mu       sync.RWMutex
	manifest *Manifest
	loaded   bool

	fetches singleflight.Group
}

// Option configures a Store.
type Option func(*Store)

// WithManifestPath overrides DefaultManifestPath.
func WithManifestPath(p string) Option {
	return func(s *Store) {
		if p = CleanPath(p); p != "" {
			s.manifestPath = p
		}
	}
}

// WithRoot overrides DefaultRoot in reported URLs.
func WithRoot(root string) Option {
	return func(s *Store) {
		if root != "" {
			s.root = root
		}
	}
}

// WithManifestRetries sets how many attempts Load makes when the transport
// fails, and the initial delay between them.
func WithManifestRetries(attempts int, initialDelay time.Duration) Option {
	return func(s *Store) {
		if attempts > 0 {
			s.retries = attempts
		}
		if initialDelay > 0 {
			s.retryDelay = initialDelay
		}
	}
}

// WithVerify enables size and SHA-1 checks of hashed objects.
func WithVerify(verify bool) Option {
	return func(s *Store) {
		s.verify = verify
	}
}

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates a store reading through transport. Load must be called
// before any path is resolved.
func NewStore(transport Transport, opts ...Option) *Store {
	s := &Store{
		transport:    transport,
		manifestPath: DefaultManifestPath,
		root:         DefaultRoot,
		retries:      3,
		retryDelay:   100 * time.Millisecond,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fetches and parses the manifest. It may succeed only once.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return ErrManifestLoaded
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.retryDelay

	data, err := backoff.Retry(ctx, func() ([]byte, error) {
		data, err := s.transport.Fetch(ctx, s.manifestPath)
		if err == nil {
			return data, nil
		}
		var status *StatusError
		if errors.As(err, &status) || errors.Is(err, fs.ErrNotExist) || ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(s.retries)),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.logger.Warn("manifest fetch failed, retrying", "path", s.manifestPath, "in", next, "error", err)
		}),
	)
	if err != nil {
		return manifestLoadError(err)
	}

	manifest, err := ParseManifest(data)
	if err != nil {
		return &ManifestLoadError{Reason: err.Error(), Err: err}
	}

	s.manifest = manifest
	s.loaded = true
	s.logger.Info("asset manifest loaded",
		"path", s.manifestPath,
		"objects", manifest.Len(),
		"total", humanize.Bytes(uint64(manifest.TotalSize())))
	return nil
}

func manifestLoadError(err error) *ManifestLoadError {
	var status *StatusError
	switch {
	case errors.As(err, &status):
		return &ManifestLoadError{Status: status.Code, Reason: status.Status, Err: err}
	case errors.Is(err, fs.ErrNotExist):
		return &ManifestLoadError{Status: http.StatusNotFound, Reason: "not found", Err: err}
	default:
		return &ManifestLoadError{Reason: err.Error(), Err: err}
	}
}

// Loaded reports whether Load has succeeded.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Manifest returns the loaded manifest, or nil before Load.
func (s *Store) Manifest() *Manifest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manifest
}

// Resolve maps a logical path to its physical location. Paths in the manifest
// resolve to their sharded object; anything else passes through unchanged.
func (s *Store) Resolve(logical string) (Location, error) {
	s.mu.RLock()
	manifest, loaded := s.manifest, s.loaded
	s.mu.RUnlock()
	if !loaded {
		return Location{}, ErrManifestNotLoaded
	}

	clean := CleanPath(logical)
	if clean == "" {
		return Location{}, fmt.Errorf("assets: empty logical path")
	}
	if entry, ok := manifest.Lookup(clean); ok {
		return Location{Logical: clean, Path: entry.ObjectPath(), Hashed: true, Entry: entry, root: s.root}, nil
	}
	return Location{Logical: clean, Path: clean, root: s.root}, nil
}

// FetchBytes resolves logical and returns its content. Concurrent fetches of
// the same location share one transport request, and a caller that gives up
// does not cancel it for the others.
func (s *Store) FetchBytes(ctx context.Context, logical string) ([]byte, error) {
	loc, err := s.Resolve(logical)
	if err != nil {
		return nil, err
	}

	// The shared request outlives any single caller. Each caller waits on its
	// own ctx.
	ch := s.fetches.DoChan(loc.Path, func() (any, error) {
		return s.transport.Fetch(context.WithoutCancel(ctx), loc.Path)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, classifyFetchError(loc, ctx.Err())
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, classifyFetchError(loc, res.Err)
	}
	data := res.Val.([]byte)
	shared := res.Shared

	if s.verify && loc.Hashed {
		if err := verifyObject(loc.Entry, data); err != nil {
			return nil, &TransportError{Location: loc, Err: err}
		}
	}

	s.logger.Debug("asset fetched",
		"logical", loc.Logical,
		"url", loc.URL(),
		"size", humanize.Bytes(uint64(len(data))),
		"shared", shared)
	return data, nil
}

func classifyFetchError(loc Location, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return &ResourceNotFoundError{Location: loc}
	}
	te := &TransportError{Location: loc, Err: err}
	var status *StatusError
	if errors.As(err, &status) {
		te.Status = status.Code
	}
	return te
}

func verifyObject(entry ManifestEntry, data []byte) error {
	if int64(len(data)) != entry.Size {
		return fmt.Errorf("%w: size %d, manifest says %d", ErrIntegrity, len(data), entry.Size)
	}
	sum := sha1.Sum(data)
	if got := hex.EncodeToString(sum[:]); got != entry.Hash {
		return fmt.Errorf("%w: sha1 %s, manifest says %s", ErrIntegrity, got, entry.Hash)
	}
	return nil
}
