package inventory

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// HTTP client timeout for source fetches
	fetchTimeout = 2 * time.Minute

	cacheFileName = "radio_links.cache"
)

// Fetcher retrieves the radio-links sheet. Remote sources are fetched over
// HTTP with If-Modified-Since against an on-disk cache file, so an unchanged
// sheet costs one conditional request. A source without an http(s) scheme is
// treated as a local file path and read directly.
type Fetcher struct {
	source     string
	cacheDir   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewFetcher creates a fetcher for the given source. rateLimit caps fetches
// per second (0 = no limit); it only matters when refreshes are triggered
// aggressively through the API.
func NewFetcher(source, cacheDir string, rateLimit float64) *Fetcher {
	var limiter *rate.Limiter
	if rateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(rateLimit), 1)
	}

	return &Fetcher{
		source:   source,
		cacheDir: cacheDir,
		httpClient: &http.Client{
			Timeout: fetchTimeout,
		},
		limiter: limiter,
	}
}

// Fetch returns the local path of the current sheet, downloading it first
// when the source is remote and the cached copy is stale.
func (f *Fetcher) Fetch(ctx context.Context) (string, error) {
	if !strings.HasPrefix(f.source, "http://") && !strings.HasPrefix(f.source, "https://") {
		if _, err := os.Stat(f.source); err != nil {
			return "", fmt.Errorf("inventory source %s: %w", f.source, err)
		}
		return f.source, nil
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	if err := os.MkdirAll(f.cacheDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache dir: %w", err)
	}
	cachePath := filepath.Join(f.cacheDir, cacheFileName)

	var ifModifiedSince time.Time
	if stat, err := os.Stat(cachePath); err == nil {
		ifModifiedSince = stat.ModTime()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", f.source, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if !ifModifiedSince.IsZero() {
		req.Header.Set("If-Modified-Since", ifModifiedSince.UTC().Format(http.TimeFormat))
	}

	log.Printf("INFO: Fetching inventory from %s", f.source)
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("inventory fetch failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		log.Printf("INFO: Inventory not modified, using cached copy")
		return cachePath, nil
	case http.StatusOK:
		// fall through to download
	default:
		return "", fmt.Errorf("inventory fetch failed: HTTP %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(f.cacheDir, cacheFileName+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to download inventory: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to write inventory: %w", err)
	}

	if err := os.Rename(tmpName, cachePath); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to replace cache file: %w", err)
	}

	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := time.Parse(http.TimeFormat, lm); err == nil {
			os.Chtimes(cachePath, t, t)
		}
	}

	return cachePath, nil
}

// LoadFile parses a sheet from disk into an Index.
func LoadFile(path string) (*Index, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open inventory file: %w", err)
	}
	defer file.Close()

	rows, err := ParseTable(file)
	if err != nil {
		return nil, err
	}

	ix := Build(rows)
	if dropped := len(rows) - ix.Len(); dropped > 0 {
		log.Printf("WARN: Dropped %d inventory rows with invalid addresses", dropped)
	}
	log.Printf("INFO: Inventory loaded: %d records", ix.Len())

	return ix, nil
}
