package ingest

import (
	"archive/zip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alexivanou/citybrowser/internal/config"
	"github.com/alexivanou/citybrowser/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const datasetJSON = `[
	{"country":"UA","name":"Hurzuf","_id":707860,"coord":{"lon":34.283333,"lat":44.549999}},
	{"country":"RU","name":"Novinki","_id":519188,"coord":{"lon":37.666668,"lat":55.683334}},
	{"country":"NP","name":"Gorkhā","_id":1283378,"coord":{"lon":84.633331,"lat":28}}
]`

func TestHTTPSource_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(datasetJSON))
	}))
	defer server.Close()

	src := NewHTTPSource(server.URL, 5*time.Second, 0)
	cities, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, cities, 3)

	assert.Equal(t, 707860, cities[0].ID)
	assert.Equal(t, "Hurzuf", cities[0].Name)
	assert.Equal(t, "UA", cities[0].Country)
	assert.InDelta(t, 34.283333, cities[0].Coord.Lon, 1e-9)
	assert.InDelta(t, 44.549999, cities[0].Coord.Lat, 1e-9)
	assert.Equal(t, "gorkhā, np", cities[2].ToCity().SearchKey)
}

func TestHTTPSource_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{name: "server error", status: http.StatusInternalServerError, payload: "boom"},
		{name: "not found", status: http.StatusNotFound, payload: ""},
		{name: "not an array", status: http.StatusOK, payload: `{"_id": 1}`},
		{name: "malformed entry", status: http.StatusOK, payload: `[{"_id": "x"}]`},
		{name: "truncated", status: http.StatusOK, payload: `[{"_id": 1, "name": "A"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.payload))
			}))
			defer server.Close()

			_, err := NewHTTPSource(server.URL, 5*time.Second, 0).Fetch(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, model.ErrNetworkFailure)
		})
	}
}

func TestHTTPSource_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewHTTPSource(url, time.Second, 0).Fetch(context.Background())
	assert.ErrorIs(t, err, model.ErrNetworkFailure)
}

func TestHTTPSource_RetrySpacing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	src := NewHTTPSource(server.URL, 5*time.Second, time.Hour)
	_, err := src.Fetch(context.Background())
	require.NoError(t, err)

	// The second attempt would have to wait an hour.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = src.Fetch(ctx)
	assert.ErrorIs(t, err, model.ErrNetworkFailure)
}

func TestFileSource_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cities.json")
	require.NoError(t, os.WriteFile(path, []byte(datasetJSON), 0o644))

	cities, err := NewFileSource(path).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, cities, 3)
}

func TestFileSource_Zip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cities.zip")
	f, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	readme, err := zw.Create("README.txt")
	require.NoError(t, err)
	readme.Write([]byte("not the dataset"))
	entry, err := zw.Create("data/cities.json")
	require.NoError(t, err)
	entry.Write([]byte(datasetJSON))
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	cities, err := NewFileSource(path).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, cities, 3)
	assert.Equal(t, "Novinki", cities[1].Name)
}

func TestFileSource_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewFileSource(filepath.Join(dir, "missing.json")).Fetch(context.Background())
	assert.ErrorIs(t, err, model.ErrNetworkFailure)

	path := filepath.Join(dir, "empty.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, zip.NewWriter(f).Close())
	require.NoError(t, f.Close())

	_, err = NewFileSource(path).Fetch(context.Background())
	assert.ErrorIs(t, err, model.ErrNetworkFailure)
}

func TestNewSource(t *testing.T) {
	assert.IsType(t, &HTTPSource{}, NewSource(config.IngestConfig{Source: "https://example.com/cities.json"}))
	assert.IsType(t, &HTTPSource{}, NewSource(config.IngestConfig{Source: "http://localhost/cities.json"}))
	assert.IsType(t, &FileSource{}, NewSource(config.IngestConfig{Source: "data/cities.zip"}))
}
