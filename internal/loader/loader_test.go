package loader

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Veraticus/the-sales-must-flow/internal/common"
	"github.com/Veraticus/the-sales-must-flow/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = "date_of_sale,city,product_category,sales_amount\n" +
	"2022-03-01,Tokyo,Books,100\n" +
	"2023-03-01,Tokyo,Books,150\n" +
	"2023-04-01,Osaka,Toys,80\n"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingSource serves fixed content and counts opens.
type countingSource struct {
	release chan struct{}
	content string
	opens   atomic.Int32
}

func (s *countingSource) Open(ctx context.Context, _ string) (io.ReadCloser, error) {
	s.opens.Add(1)
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return io.NopCloser(strings.NewReader(s.content)), nil
}

func TestLoader_LoadsOverHTTP(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/csv")
		_, _ = io.WriteString(w, sampleCSV)
	}))
	defer server.Close()

	l := New(WithLogger(quietLogger()), WithHTTPTimeout(5*time.Second))

	table, err := l.Load(context.Background(), server.URL+"/sales.csv")
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())

	again, err := l.Load(context.Background(), server.URL+"/sales.csv")
	require.NoError(t, err)
	assert.Same(t, table, again)
	assert.Equal(t, int32(1), hits.Load())

	stats := l.Stats()
	assert.Equal(t, 1, stats.Fetches)
	require.Len(t, stats.Entries, 1)
	assert.Equal(t, 3, stats.Entries[0].Rows)
}

func TestLoader_HTTPStatusIsLoadError(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if fail.Load() {
			http.Error(w, "gone", http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, sampleCSV)
	}))
	defer server.Close()

	l := New(WithLogger(quietLogger()))

	_, err := l.Load(context.Background(), server.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrLoad)
	assert.Empty(t, l.Stats().Entries)

	// Failures are not cached.
	fail.Store(false)
	table, err := l.Load(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())
}

func TestLoader_SchemaErrorPropagates(t *testing.T) {
	var opened []string
	source := SourceFunc(func(_ context.Context, location string) (io.ReadCloser, error) {
		opened = append(opened, location)
		return io.NopCloser(strings.NewReader("date,city\n2023-01-01,Tokyo\n")), nil
	})
	l := New(WithLogger(quietLogger()), WithSource("mem", source))

	_, err := l.Load(context.Background(), "mem://bad")
	assert.ErrorIs(t, err, common.ErrSchema)
	assert.Equal(t, []string{"mem://bad"}, opened)
}

func TestLoader_ConcurrentFirstAccessFetchesOnce(t *testing.T) {
	source := &countingSource{content: sampleCSV, release: make(chan struct{})}
	l := New(WithLogger(quietLogger()), WithSource("mem", source))

	const callers = 16
	var wg sync.WaitGroup
	tables := make([]*model.Table, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tables[i], errs[i] = l.Load(context.Background(), "mem://sales")
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(source.release)
	wg.Wait()

	assert.Equal(t, int32(1), source.opens.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.True(t, tables[0].Equal(tables[i]))
	}
}

func TestLoader_InvalidateRefetches(t *testing.T) {
	source := &countingSource{content: sampleCSV}
	l := New(WithLogger(quietLogger()), WithSource("mem", source))
	ctx := context.Background()

	first, err := l.Load(ctx, "mem://a")
	require.NoError(t, err)
	_, err = l.Load(ctx, "mem://b")
	require.NoError(t, err)
	assert.Equal(t, int32(2), source.opens.Load())

	l.Invalidate("mem://a")
	second, err := l.Load(ctx, "mem://a")
	require.NoError(t, err)
	assert.Equal(t, int32(3), source.opens.Load())
	assert.NotSame(t, first, second)
	assert.True(t, first.Equal(second))

	l.InvalidateAll()
	assert.Empty(t, l.Stats().Entries)
	_, err = l.Load(ctx, "mem://b")
	require.NoError(t, err)
	assert.Equal(t, int32(4), source.opens.Load())
}

func TestLoader_CancelledCallerDoesNotAbortSharedFetch(t *testing.T) {
	source := &countingSource{content: sampleCSV, release: make(chan struct{})}
	l := New(WithLogger(quietLogger()), WithSource("mem", source))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := l.Load(ctx, "mem://sales")
		done <- err
	}()

	waiter := make(chan *model.Table, 1)
	go func() {
		table, err := l.Load(context.Background(), "mem://sales")
		assert.NoError(t, err)
		waiter <- table
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(source.release)
	table := <-waiter
	require.NotNil(t, table)
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, int32(1), source.opens.Load())
}

func TestLoader_FileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o600))

	l := New(WithLogger(quietLogger()))

	table, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())

	viaURL, err := l.Load(context.Background(), "file://"+path)
	require.NoError(t, err)
	assert.True(t, table.Equal(viaURL))

	_, err = l.Load(context.Background(), filepath.Join(dir, "missing.csv"))
	assert.ErrorIs(t, err, common.ErrLoad)
}

func TestLoader_UnsupportedScheme(t *testing.T) {
	l := New(WithLogger(quietLogger()))
	_, err := l.Load(context.Background(), "ftp://example.com/sales.csv")
	assert.ErrorIs(t, err, common.ErrLoad)
}

func TestSplitGCSLocation(t *testing.T) {
	bucket, object, err := splitGCSLocation("gs://sales-data/2023/store_sales.csv")
	require.NoError(t, err)
	assert.Equal(t, "sales-data", bucket)
	assert.Equal(t, "2023/store_sales.csv", object)

	_, _, err = splitGCSLocation("gs://sales-data/")
	assert.Error(t, err)
}
