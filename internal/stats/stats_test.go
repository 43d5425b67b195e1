package stats

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alexivanou/citybrowser/internal/config"
	"github.com/alexivanou/citybrowser/internal/database"
	"github.com/alexivanou/citybrowser/internal/repository"
	"github.com/alexivanou/citybrowser/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Collect(t *testing.T) {
	db, cfg := testutil.NewMemoryDB(t)
	ctx := context.Background()

	repo := repository.NewCityRepository(db, cfg.Type)
	require.NoError(t, repo.UpsertMany(ctx, testutil.SampleCities()))
	require.NoError(t, repo.SetFavorite(ctx, 3, true))
	require.NoError(t, repo.SetFavorite(ctx, 5, true))

	collector := NewCollector(db, cfg)

	stats, err := collector.Collect(ctx)
	require.NoError(t, err)

	assert.Equal(t, "memory", stats.Database.Type)
	assert.True(t, stats.Database.Migrated)
	assert.Equal(t, uint(1), stats.Database.SchemaVersion)
	assert.Equal(t, int64(9), stats.Database.Cities)
	assert.Equal(t, int64(2), stats.Database.Favorites)
	assert.Greater(t, stats.Database.SizeBytes, int64(0))

	var citiesCount int64
	for _, ts := range stats.Database.TableStats {
		if ts.Name == "cities" {
			citiesCount = ts.RowCount
		}
	}
	assert.Equal(t, int64(9), citiesCount)

	assert.Greater(t, stats.Memory.Alloc, uint64(0))
	assert.Greater(t, stats.Memory.HeapInuse, uint64(0))
	assert.GreaterOrEqual(t, stats.Runtime.NumGoroutines, 1)

	// Memory figures are cached between calls.
	stats2, err := collector.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, stats.Memory, stats2.Memory)
}

func TestCollector_EmptyDB(t *testing.T) {
	db, cfg := testutil.NewMemoryDB(t)

	stats, err := NewCollector(db, cfg).Collect(context.Background())
	require.NoError(t, err)

	assert.True(t, stats.Database.Migrated)
	assert.Equal(t, int64(0), stats.Database.Cities)
	assert.Equal(t, int64(0), stats.Database.Favorites)
}

func TestCollector_UnmigratedDBIsLeftAlone(t *testing.T) {
	cfg := config.DBConfig{
		Type: config.DBTypeMemory,
		Name: fmt.Sprintf("statstest_%d", time.Now().UnixNano()),
	}
	db, err := database.Connect(context.Background(), cfg)
	require.NoError(t, err)
	defer db.Close()

	stats, err := NewCollector(db, cfg).Collect(context.Background())
	require.NoError(t, err)

	assert.False(t, stats.Database.Migrated)
	assert.Equal(t, int64(0), stats.Database.Cities)
	assert.Empty(t, stats.Database.TableStats)

	var tableCount int
	require.NoError(t, db.Get(&tableCount, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table'"))
	assert.Equal(t, 0, tableCount, "collecting statistics must not create tables")

	var out bytes.Buffer
	require.NoError(t, stats.WriteText(&out))
	assert.Contains(t, out.String(), "not migrated")
}

func TestStats_WriteText(t *testing.T) {
	s := &Stats{
		Timestamp: time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
		Memory:    MemoryStats{Alloc: 2048, TotalAlloc: 3 << 20, HeapInuse: 1536, NumGC: 7},
		Database: DatabaseStats{
			Type:          "sqlite",
			Migrated:      true,
			SchemaVersion: 1,
			Cities:        209557,
			Favorites:     3,
			SizeBytes:     5 << 20,
			TableStats:    []TableStat{{Name: "cities", RowCount: 209557}},
		},
		Runtime: RuntimeStats{NumGoroutines: 4, NumCPU: 8, UptimeSeconds: 61},
	}

	var out bytes.Buffer
	require.NoError(t, s.WriteText(&out))
	text := out.String()

	assert.Contains(t, text, "Timestamp: 2024-05-01 12:30:00")
	assert.Contains(t, text, "Heap In Use:      1.50 KB")
	assert.Contains(t, text, "GC Cycles:        7")
	assert.Contains(t, text, "Schema:          version 1")
	assert.Contains(t, text, "Cities:          209557")
	assert.Contains(t, text, "Favorites:       3")
	assert.Contains(t, text, "Size:            5.00 MB")
	assert.Contains(t, text, "Uptime:          61s")
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "0 B", FormatBytes(0))
	assert.Equal(t, "1023 B", FormatBytes(1023))
	assert.Equal(t, "1.00 KB", FormatBytes(1024))
	assert.Equal(t, "1.50 KB", FormatBytes(1536))
	assert.Equal(t, "3.00 MB", FormatBytes(3<<20))
	assert.Equal(t, "1.00 GB", FormatBytes(1<<30))
}
