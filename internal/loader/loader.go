// Package loader fetches sales CSVs and memoizes the parsed tables by source URL.
package loader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Veraticus/the-sales-must-flow/internal/common"
	"github.com/Veraticus/the-sales-must-flow/internal/model"
	"github.com/Veraticus/the-sales-must-flow/internal/service"
	"golang.org/x/sync/singleflight"
)

var _ service.TableLoader = (*Loader)(nil)

// DefaultHTTPTimeout bounds a single HTTP fetch.
const DefaultHTTPTimeout = 30 * time.Second

// Config holds loader configuration.
type Config struct {
	Logger      *slog.Logger
	Sources     map[string]Source // Keyed by URL scheme; "" is a bare path
	Progress    io.Writer
	HTTPTimeout time.Duration
}

// Option is a functional option for configuring the loader.
type Option func(*Config)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithHTTPTimeout bounds each HTTP fetch.
func WithHTTPTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.HTTPTimeout = timeout
	}
}

// WithProgress draws a download bar for HTTP sources on w.
func WithProgress(w io.Writer) Option {
	return func(c *Config) {
		c.Progress = w
	}
}

// WithSource registers a source for a URL scheme, replacing the default.
func WithSource(scheme string, source Source) Option {
	return func(c *Config) {
		if c.Sources == nil {
			c.Sources = make(map[string]Source)
		}
		c.Sources[scheme] = source
	}
}

// Entry describes one cached table.
type Entry struct {
	LoadedAt time.Time `json:"loaded_at"`
	Source   string    `json:"source"`
	Rows     int       `json:"rows"`
}

// Stats summarizes cache activity since the loader was created.
type Stats struct {
	Entries []Entry `json:"entries"`
	Fetches int     `json:"fetches"`
	Hits    int     `json:"hits"`
}

// Loader loads tables and caches them per source URL.
// Concurrent first loads of one URL share a single fetch.
type Loader struct {
	logger  *slog.Logger
	sources map[string]Source
	tables  map[string]*model.Table
	gens    map[string]uint64
	group   singleflight.Group
	mu      sync.RWMutex
	fetches int
	hits    int
}

// New creates a loader with http, https, gs, file and bare-path sources.
func New(opts ...Option) *Loader {
	cfg := Config{HTTPTimeout: DefaultHTTPTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	httpSource := NewHTTPSource(cfg.HTTPTimeout)
	httpSource.Progress = cfg.Progress

	sources := map[string]Source{
		"http":  httpSource,
		"https": httpSource,
		"gs":    GCSSource{},
		"file":  FileSource{},
		"":      FileSource{},
	}
	for scheme, source := range cfg.Sources {
		sources[scheme] = source
	}

	return &Loader{
		logger:  common.LoggerOrDefault(cfg.Logger),
		sources: sources,
		tables:  make(map[string]*model.Table),
		gens:    make(map[string]uint64),
	}
}

// Load returns the table for sourceURL, fetching it on first use.
// Failed loads are not cached; the next call tries again.
func (l *Loader) Load(ctx context.Context, sourceURL string) (*model.Table, error) {
	if table, ok := l.cached(sourceURL); ok {
		l.logger.Debug("Cache hit", "source", sourceURL, "rows", table.Len())
		return table, nil
	}

	ch := l.group.DoChan(sourceURL, func() (any, error) {
		if table, ok := l.cached(sourceURL); ok {
			return table, nil
		}

		gen := l.generation(sourceURL)
		// Waiters share this fetch, so one caller's cancellation must not abort it.
		table, err := l.fetch(context.WithoutCancel(ctx), sourceURL)
		if err != nil {
			return nil, err
		}
		l.store(sourceURL, gen, table)
		return table, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		table, ok := res.Val.(*model.Table)
		if !ok {
			return nil, fmt.Errorf("unexpected cache value %T", res.Val)
		}
		return table, nil
	}
}

// Invalidate drops the cached table for sourceURL.
// A fetch already in flight still answers its waiters but is not cached.
func (l *Loader) Invalidate(sourceURL string) {
	l.mu.Lock()
	delete(l.tables, sourceURL)
	l.gens[sourceURL]++
	l.mu.Unlock()
	l.group.Forget(sourceURL)
	l.logger.Info("Invalidated cached table", "source", sourceURL)
}

// InvalidateAll drops every cached table.
func (l *Loader) InvalidateAll() {
	l.mu.Lock()
	urls := make([]string, 0, len(l.tables)+len(l.gens))
	for url := range l.tables {
		urls = append(urls, url)
	}
	for url := range l.gens {
		urls = append(urls, url)
	}
	l.tables = make(map[string]*model.Table)
	for _, url := range urls {
		l.gens[url]++
	}
	l.mu.Unlock()

	for _, url := range urls {
		l.group.Forget(url)
	}
	l.logger.Info("Invalidated all cached tables")
}

// Stats reports what is cached and how often sources were fetched.
func (l *Loader) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := Stats{
		Entries: make([]Entry, 0, len(l.tables)),
		Fetches: l.fetches,
		Hits:    l.hits,
	}
	for url, table := range l.tables {
		stats.Entries = append(stats.Entries, Entry{
			Source:   url,
			Rows:     table.Len(),
			LoadedAt: table.LoadedAt(),
		})
	}
	sort.Slice(stats.Entries, func(i, j int) bool {
		return stats.Entries[i].Source < stats.Entries[j].Source
	})
	return stats
}

func (l *Loader) cached(sourceURL string) (*model.Table, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	table, ok := l.tables[sourceURL]
	if ok {
		l.hits++
	}
	return table, ok
}

func (l *Loader) generation(sourceURL string) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.gens[sourceURL]
}

func (l *Loader) store(sourceURL string, gen uint64, table *model.Table) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gens[sourceURL] != gen {
		l.logger.Debug("Discarding table invalidated mid-fetch", "source", sourceURL)
		return
	}
	l.tables[sourceURL] = table
}

func (l *Loader) fetch(ctx context.Context, sourceURL string) (*model.Table, error) {
	start := time.Now()

	l.mu.Lock()
	l.fetches++
	l.mu.Unlock()

	source, ok := l.sources[schemeOf(sourceURL)]
	if !ok {
		return nil, &common.LoadError{
			Source: sourceURL,
			Err:    fmt.Errorf("unsupported scheme %q", schemeOf(sourceURL)),
		}
	}

	l.logger.Info("Fetching sales data", "source", sourceURL)
	rc, err := source.Open(ctx, sourceURL)
	if err != nil {
		return nil, &common.LoadError{Source: sourceURL, Err: err}
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil {
			l.logger.Warn("Failed to close source", "source", sourceURL, "error", closeErr)
		}
	}()

	table, err := Parse(rc, sourceURL)
	if err != nil {
		return nil, err
	}

	l.logger.Info("Loaded sales data",
		"source", sourceURL,
		"rows", table.Len(),
		"duration", time.Since(start).Round(time.Millisecond))
	return table, nil
}
