package jobs

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/JonMunkholm/jobinsights/internal/logging"
)

// ContextCheckInterval is how often (in rows) parsing checks for cancellation.
var ContextCheckInterval = 100

// Observer receives loader events. internal/metrics provides the Prometheus
// implementation; a nil Observer is replaced with a no-op.
type Observer interface {
	CacheHit(path string)
	CacheMiss(path string)
	DatasetLoaded(path string, records int, elapsed time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) CacheHit(string)                                 {}
func (nopObserver) CacheMiss(string)                                {}
func (nopObserver) DatasetLoaded(string, int, time.Duration, error) {}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithObserver reports cache and load events to o.
func WithObserver(o Observer) LoaderOption {
	return func(l *Loader) {
		if o != nil {
			l.observer = o
		}
	}
}

// WithParseLimiter bounds concurrent file parses with pl.
func WithParseLimiter(pl *ParseLimiter) LoaderOption {
	return func(l *Loader) {
		l.limiter = pl
	}
}

// Loader parses dataset files and memoizes the result by path.
//
// The cache key is the path string exactly as given; the file's contents and
// modification time are never consulted once a path is cached. Callers that
// need fresh data call Invalidate or Reset.
//
// A Loader is safe for concurrent use. Concurrent first loads of the same
// path share one parse.
type Loader struct {
	mu    sync.RWMutex
	cache map[string]*Dataset

	// gens advances on Invalidate; epoch advances on Reset. A parse only
	// stores its result when neither moved while it ran.
	gens  map[string]uint64
	epoch uint64

	flight   singleflight.Group
	observer Observer
	limiter  *ParseLimiter
}

// NewLoader creates an empty loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		cache:    make(map[string]*Dataset),
		gens:     make(map[string]uint64),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the dataset stored at path, parsing the file on first use.
// Every later call with the same path returns the same *Dataset without
// touching the file system.
//
// Errors wrap ErrFileNotFound when the file cannot be opened and
// ErrEmptyFile when it has no header row.
func (l *Loader) Load(ctx context.Context, path string) (*Dataset, error) {
	logger := logging.WithFields(ctx, "path", path)

	if ds := l.lookup(path); ds != nil {
		l.observer.CacheHit(path)
		logger.Debug("dataset cache hit", "dataset_id", ds.ID)
		return ds, nil
	}
	l.observer.CacheMiss(path)

	v, err, _ := l.flight.Do(path, func() (any, error) {
		// Another flight may have filled the entry while we waited.
		if ds := l.lookup(path); ds != nil {
			return ds, nil
		}
		gen := l.generationOf(path)

		if l.limiter != nil {
			if err := l.limiter.Acquire(ctx); err != nil {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
			defer l.limiter.Release()
		}

		start := time.Now()
		ds, err := parseFile(ctx, path)
		elapsed := time.Since(start)
		l.observer.DatasetLoaded(path, ds.Len(), elapsed, err)
		if err != nil {
			return nil, err
		}

		if !l.store(path, ds, gen) {
			logger.Info("dataset invalidated during load, not cached", "dataset_id", ds.ID)
			return ds, nil
		}

		logger.Info("dataset loaded",
			"dataset_id", ds.ID,
			"records", ds.Len(),
			"duration_ms", elapsed.Milliseconds(),
		)
		return ds, nil
	})
	if err != nil {
		logger.Warn("dataset load failed", "error", err)
		return nil, err
	}
	return v.(*Dataset), nil
}

// Warm loads every path concurrently. A failing path does not stop the
// others; the returned error joins every failure.
func (l *Loader) Warm(ctx context.Context, paths ...string) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, path := range paths {
		g.Go(func() error {
			if _, err := l.Load(ctx, path); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Invalidate drops the cached dataset for path. It reports whether an entry
// was removed.
func (l *Loader) Invalidate(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.flight.Forget(path)
	l.gens[path]++
	if _, ok := l.cache[path]; !ok {
		return false
	}
	delete(l.cache, path)
	return true
}

// Reset drops every cached dataset.
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for path := range l.cache {
		l.flight.Forget(path)
	}
	l.cache = make(map[string]*Dataset)
	l.gens = make(map[string]uint64)
	l.epoch++
}

// Cached returns the cached paths in sorted order.
func (l *Loader) Cached() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	paths := make([]string, 0, len(l.cache))
	for path := range l.cache {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Len returns the number of cached datasets.
func (l *Loader) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.cache)
}

type generation struct {
	epoch, n uint64
}

func (l *Loader) generationOf(path string) generation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return generation{epoch: l.epoch, n: l.gens[path]}
}

// store caches ds unless path was invalidated after gen was taken.
func (l *Loader) store(path string, ds *Dataset, gen generation) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if (generation{epoch: l.epoch, n: l.gens[path]}) != gen {
		return false
	}
	l.cache[path] = ds
	return true
}

func (l *Loader) lookup(path string) *Dataset {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cache[path]
}

func parseFile(ctx context.Context, path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFileNotFound, path, err)
	}
	defer f.Close()

	header, records, err := ReadRecords(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return &Dataset{
		ID:       uuid.New(),
		Path:     path,
		Header:   header,
		Records:  records,
		LoadedAt: time.Now(),
	}, nil
}

// ReadRecords parses CSV data whose first row is the header and returns one
// Record per data row, in input order.
//
// Parsing is lenient: rows may have any number of cells and stray quotes are
// accepted. Cells past the header width are dropped; columns a short row does
// not reach are left out of its Record. Blank lines are skipped.
func ReadRecords(ctx context.Context, r io.Reader) ([]string, []Record, error) {
	cr := csv.NewReader(NewCleanReader(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, ErrEmptyFile
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	var records []Record
	for i := 0; ; i++ {
		if i%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, fmt.Errorf("operation cancelled at row %d: %w", i+1, err)
			}
		}

		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row %d: %w", i+1, err)
		}

		rec := make(Record, len(header))
		for col, name := range header {
			if col >= len(row) {
				break
			}
			rec[name] = row[col]
		}
		records = append(records, rec)
	}

	return header, records, nil
}
