package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/Veraticus/the-sales-must-flow/internal/config"
	"github.com/schollz/progressbar/v3"
)

// Source opens the raw bytes behind a location.
type Source interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, location string) (io.ReadCloser, error)

// Open calls f.
func (f SourceFunc) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	return f(ctx, location)
}

// schemeOf returns the lower-cased URL scheme, or "" for a bare path.
func schemeOf(location string) string {
	u, err := url.Parse(location)
	if err != nil || len(u.Scheme) < 2 {
		// Windows drive letters parse as one-letter schemes.
		return ""
	}
	return strings.ToLower(u.Scheme)
}

// HTTPSource fetches CSVs over http and https.
type HTTPSource struct {
	Client   *http.Client
	Progress io.Writer // When set, a download bar is drawn here
}

// NewHTTPSource creates an HTTP source with the given timeout.
func NewHTTPSource(timeout time.Duration) *HTTPSource {
	return &HTTPSource{Client: &http.Client{Timeout: timeout}}
}

// Open issues a GET and returns the body. Non-2xx statuses are errors.
func (s *HTTPSource) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.5")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	if s.Progress == nil {
		return resp.Body, nil
	}

	bar := progressbar.NewOptions64(resp.ContentLength,
		progressbar.OptionSetWriter(s.Progress),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Downloading sales data...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(s.Progress)
		}),
	)
	return &progressReader{
		Reader: io.TeeReader(resp.Body, bar),
		body:   resp.Body,
		bar:    bar,
	}, nil
}

type progressReader struct {
	io.Reader
	body io.Closer
	bar  *progressbar.ProgressBar
}

func (r *progressReader) Close() error {
	_ = r.bar.Finish()
	return r.body.Close()
}

// GCSSource reads objects addressed as gs://bucket/object.
type GCSSource struct{}

// Open creates a storage client for the duration of the read.
func (GCSSource) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	bucket, object, err := splitGCSLocation(location)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("open GCS object reader: %w", err)
	}
	return &gcsReader{Reader: r, client: client}, nil
}

type gcsReader struct {
	*storage.Reader
	client *storage.Client
}

func (r *gcsReader) Close() error {
	readErr := r.Reader.Close()
	if err := r.client.Close(); err != nil {
		return err
	}
	return readErr
}

func splitGCSLocation(location string) (bucket, object string, err error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", "", fmt.Errorf("parse GCS location: %w", err)
	}
	bucket = u.Host
	object = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || object == "" {
		return "", "", fmt.Errorf("GCS location %q must look like gs://bucket/object", location)
	}
	return bucket, object, nil
}

// FileSource reads local files. It accepts file:// URLs and bare paths with ~ or $VAR.
type FileSource struct{}

// Open opens the file for reading.
func (FileSource) Open(_ context.Context, location string) (io.ReadCloser, error) {
	path := location
	if schemeOf(location) == "file" {
		u, err := url.Parse(location)
		if err != nil {
			return nil, fmt.Errorf("parse file URL: %w", err)
		}
		path = u.Path
	}
	f, err := os.Open(config.ExpandPath(path))
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}
