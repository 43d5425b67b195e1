package testutil

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alexivanou/citybrowser/internal/config"
	"github.com/alexivanou/citybrowser/internal/database"
	"github.com/alexivanou/citybrowser/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

var dbSeq atomic.Int64

// NewMemoryDB opens a uniquely named shared-cache memory database with the
// schema applied. It is closed when the test ends.
func NewMemoryDB(t testing.TB) (*sqlx.DB, config.DBConfig) {
	t.Helper()

	cfg := config.DBConfig{
		Type: config.DBTypeMemory,
		Name: fmt.Sprintf("testdb_%d_%d", time.Now().UnixNano(), dbSeq.Add(1)),
	}

	db, err := database.Connect(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(db, cfg))
	return db, cfg
}

// SampleCities returns nine cities with mixed-case names, in no particular order.
func SampleCities() []model.City {
	return []model.City{
		model.NewCity(1, "Sydney", "AU", -33.8688, 151.2093),
		model.NewCity(2, "Alabama", "US", 32.3182, -86.9023),
		model.NewCity(3, "Paris", "FR", 48.8566, 2.3522),
		model.NewCity(4, "Albuquerque", "US", 35.0844, -106.6504),
		model.NewCity(5, "London", "GB", 51.5074, -0.1278),
		model.NewCity(6, "Anaheim", "US", 33.8366, -117.9143),
		model.NewCity(7, "New York", "US", 40.7128, -74.0060),
		model.NewCity(8, "Arizona", "US", 34.0489, -111.0937),
		model.NewCity(9, "newark", "US", 40.7357, -74.1724),
	}
}

// RawCities converts cities back into dataset entries.
func RawCities(cities []model.City) []model.RawCity {
	raw := make([]model.RawCity, len(cities))
	for i, c := range cities {
		raw[i] = model.RawCity{
			ID:      c.ID,
			Name:    c.Name,
			Country: c.CountryCode,
			Coord:   model.RawCoord{Lon: c.Lon, Lat: c.Lat},
		}
	}
	return raw
}

var (
	syllables = []string{"al", "an", "ba", "ber", "ca", "do", "el", "fra", "go", "ha", "in", "lon", "ma", "new", "o", "par", "qu", "ro", "san", "to", "ur", "vi", "york", "za"}
	countries = []string{"AR", "AU", "BR", "DE", "ES", "FR", "GB", "IT", "MX", "US"}
)

// GenerateCities builds n cities with ids 1..n and pseudo-random names.
// Names repeat often enough to exercise the ordering tie-breaks.
func GenerateCities(seed int64, n int) []model.City {
	rng := rand.New(rand.NewSource(seed))
	cities := make([]model.City, n)
	for i := range cities {
		var b strings.Builder
		parts := 1 + rng.Intn(3)
		for j := 0; j < parts; j++ {
			b.WriteString(syllables[rng.Intn(len(syllables))])
		}
		name := b.String()
		if rng.Intn(2) == 0 {
			name = strings.ToUpper(name[:1]) + name[1:]
		}
		city := model.NewCity(i+1, name, countries[rng.Intn(len(countries))],
			rng.Float64()*180-90, rng.Float64()*360-180)
		city.IsFavorite = rng.Intn(5) == 0
		cities[i] = city
	}
	return cities
}

// ExactSearch is the linear ground truth for a prefix search: every city
// whose lowercased "name, country" starts with the normalized prefix,
// ordered by (name, country_code, id).
func ExactSearch(cities []model.City, prefix string, onlyFavorites bool) []model.City {
	p := strings.ToLower(strings.TrimSpace(prefix))
	var out []model.City
	for _, c := range cities {
		if onlyFavorites && !c.IsFavorite {
			continue
		}
		if !strings.HasPrefix(strings.ToLower(c.Name+", "+c.CountryCode), p) {
			continue
		}
		out = append(out, c)
	}
	SortCities(out)
	return out
}

// SortCities orders cities by (name, country_code, id) bytewise.
func SortCities(cities []model.City) {
	sort.Slice(cities, func(i, j int) bool {
		a, b := cities[i], cities[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.CountryCode != b.CountryCode {
			return a.CountryCode < b.CountryCode
		}
		return a.ID < b.ID
	})
}

// Names extracts city names in order.
func Names(cities []model.City) []string {
	names := make([]string, len(cities))
	for i, c := range cities {
		names[i] = c.Name
	}
	return names
}
