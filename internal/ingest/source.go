package ingest

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alexivanou/citybrowser/internal/config"
	"github.com/alexivanou/citybrowser/internal/model"
	"golang.org/x/time/rate"
)

// Source downloads the full city dataset.
// Every error it returns wraps model.ErrNetworkFailure.
type Source interface {
	Fetch(ctx context.Context) ([]model.RawCity, error)
}

// NewSource picks an HTTP or file source from the configured location.
func NewSource(cfg config.IngestConfig) Source {
	if strings.HasPrefix(cfg.Source, "http://") || strings.HasPrefix(cfg.Source, "https://") {
		return NewHTTPSource(cfg.Source, cfg.DownloadTimeout, cfg.RetryInterval)
	}
	return NewFileSource(cfg.Source)
}

// HTTPSource fetches the dataset with a single GET.
type HTTPSource struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPSource creates a source for url. Consecutive fetches are spaced at
// least retryInterval apart so a caller retrying in a loop cannot hammer the
// upstream; the first fetch is never delayed.
func NewHTTPSource(url string, timeout, retryInterval time.Duration) *HTTPSource {
	limit := rate.Inf
	if retryInterval > 0 {
		limit = rate.Every(retryInterval)
	}
	return &HTTPSource{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context) ([]model.RawCity, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrNetworkFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", model.ErrNetworkFailure, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to execute request: %v", model.ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status code: %d", model.ErrNetworkFailure, resp.StatusCode)
	}

	return decodeDataset(resp.Body)
}

// FileSource reads the dataset from a local .json file or from the first
// .json entry of a .zip archive.
type FileSource struct {
	path string
}

// NewFileSource creates a source reading path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Fetch implements Source.
func (s *FileSource) Fetch(ctx context.Context) ([]model.RawCity, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrNetworkFailure, err)
	}

	if strings.EqualFold(filepath.Ext(s.path), ".zip") {
		return s.fetchFromZip()
	}

	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %v", model.ErrNetworkFailure, s.path, err)
	}
	defer file.Close()

	return decodeDataset(file)
}

func (s *FileSource) fetchFromZip() ([]model.RawCity, error) {
	r, err := zip.OpenReader(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open zip: %v", model.ErrNetworkFailure, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".json") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to open file in zip: %v", model.ErrNetworkFailure, err)
		}
		defer rc.Close()
		return decodeDataset(rc)
	}

	return nil, fmt.Errorf("%w: no json file found in zip", model.ErrNetworkFailure)
}

// decodeDataset stream-decodes a JSON array of cities without buffering the
// whole payload.
func decodeDataset(r io.Reader) ([]model.RawCity, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read dataset: %v", model.ErrNetworkFailure, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("%w: dataset is not a JSON array", model.ErrNetworkFailure)
	}

	var cities []model.RawCity
	for dec.More() {
		var c model.RawCity
		if err := dec.Decode(&c); err != nil {
			return nil, fmt.Errorf("%w: failed to decode city %d: %v", model.ErrNetworkFailure, len(cities), err)
		}
		cities = append(cities, c)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: truncated dataset: %v", model.ErrNetworkFailure, err)
	}

	return cities, nil
}
