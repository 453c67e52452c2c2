// Package xmlstore persists collections as whole XML files under a data root
// and keeps decoded copies in an expiring in-memory cache.
package xmlstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"xmllibrary/internal/adapters/persistence/codec"
	"xmllibrary/internal/core/domain"
	"xmllibrary/internal/pkg/metrics"
)

// Store reads and writes collection files under root.
// Save is a full rewrite followed by cache eviction; the cache is never updated in place.
// Load caches what it read only when no Save evicted the file in the meantime.
type Store struct {
	root  string
	cache *Cache

	sliding  time.Duration
	absolute time.Duration
	now      func() time.Time

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// Option configures a Store
type Option func(*Store)

// WithExpiry overrides the sliding and absolute cache windows
func WithExpiry(sliding, absolute time.Duration) Option {
	return func(s *Store) {
		s.sliding = sliding
		s.absolute = absolute
	}
}

// WithClock overrides the cache clock
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a store rooted at root, creating the directory if needed
func New(root string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, &domain.ArgumentError{Name: "root", Reason: "empty data directory"}
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}

	s := &Store{
		root:     root,
		sliding:  DefaultSlidingExpiry,
		absolute: DefaultAbsoluteExpiry,
		now:      time.Now,
		locks:    make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cache = NewCache(s.sliding, s.absolute, s.now)
	return s, nil
}

// Root returns the data directory
func (s *Store) Root() string { return s.root }

// Cache returns the document cache
func (s *Store) Cache() *Cache { return s.cache }

// Load returns a private copy of the collection stored in fileName, or nil when
// the file is missing or blank. Callers may mutate the result freely.
func Load[T any, PT interface {
	*T
	domain.Collection
	Clone() *T
}](ctx context.Context, s *Store, fileName string) (PT, error) {
	var zero PT
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	path, err := s.pathFor(fileName)
	if err != nil {
		return zero, err
	}

	if v, ok := s.cache.Get(fileName); ok {
		if cached, ok := v.(PT); ok {
			metrics.CacheRequests.WithLabelValues(fileName, metrics.ResultHit).Inc()
			return PT(cached.Clone()), nil
		}
	}
	metrics.CacheRequests.WithLabelValues(fileName, metrics.ResultMiss).Inc()

	// a Save that lands while the file is read makes this copy stale
	gen := s.cache.Generation(fileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return zero, nil
	}
	if err != nil {
		return zero, fmt.Errorf("read %s: %w", fileName, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return zero, nil
	}

	var v T
	decoded := PT(&v)
	if err := codec.Decode(string(data), decoded); err != nil {
		return zero, err
	}

	s.cache.SetIfGeneration(fileName, decoded, gen)
	return PT(decoded.Clone()), nil
}

// Save encodes c, replaces fileName atomically and evicts its cache entry
func (s *Store) Save(ctx context.Context, c domain.Collection, fileName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.pathFor(fileName)
	if err != nil {
		return err
	}

	text, err := codec.Encode(c)
	if err != nil {
		return err
	}

	if err := writeFileAtomic(path, []byte(text)); err != nil {
		metrics.StoreWrites.WithLabelValues(fileName, metrics.ResultError).Inc()
		return fmt.Errorf("save %s: %w", fileName, err)
	}

	s.cache.Remove(fileName)
	metrics.StoreWrites.WithLabelValues(fileName, metrics.ResultOK).Inc()
	return nil
}

// WithLock runs fn holding the per-file locks of fileNames.
// Locks are taken in sorted order so callers locking overlapping sets cannot deadlock.
func (s *Store) WithLock(ctx context.Context, fn func(ctx context.Context) error, fileNames ...string) error {
	names := append([]string(nil), fileNames...)
	sort.Strings(names)

	var held []*sync.Mutex
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}()

	for i, name := range names {
		if i > 0 && names[i-1] == name {
			continue
		}
		m := s.lockFor(name)
		m.Lock()
		held = append(held, m)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

func (s *Store) lockFor(fileName string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	m, ok := s.locks[fileName]
	if !ok {
		m = &sync.Mutex{}
		s.locks[fileName] = m
	}
	return m
}

// pathFor maps a bare file name to its path under root
func (s *Store) pathFor(fileName string) (string, error) {
	if strings.TrimSpace(fileName) == "" {
		return "", &domain.ArgumentError{Name: "fileName", Reason: "empty"}
	}
	if strings.Contains(fileName, "..") || filepath.IsAbs(fileName) || strings.ContainsAny(fileName, `/\`) {
		return "", &domain.ArgumentError{Name: "fileName", Reason: fmt.Sprintf("%q must be a plain file name", fileName)}
	}
	return filepath.Join(s.root, fileName), nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
