package stats

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/alexivanou/citybrowser/internal/config"
	"github.com/jmoiron/sqlx"
)

type Stats struct {
	Timestamp time.Time     `json:"timestamp"`
	Memory    MemoryStats   `json:"memory"`
	Database  DatabaseStats `json:"database"`
	Runtime   RuntimeStats  `json:"runtime"`
}

type MemoryStats struct {
	Alloc        uint64 `json:"alloc"`
	TotalAlloc   uint64 `json:"total_alloc"`
	Sys          uint64 `json:"sys"`
	NumGC        uint32 `json:"num_gc"`
	HeapAlloc    uint64 `json:"heap_alloc"`
	HeapInuse    uint64 `json:"heap_inuse"`
	HeapReleased uint64 `json:"heap_released"`
}

// DatabaseStats describes the store. Counts are zero when the schema has not
// been migrated; the collector never migrates it.
type DatabaseStats struct {
	Type          string      `json:"type"`
	Migrated      bool        `json:"migrated"`
	SchemaVersion uint        `json:"schema_version"`
	Cities        int64       `json:"cities"`
	Favorites     int64       `json:"favorites"`
	SizeBytes     int64       `json:"size_bytes"`
	TableStats    []TableStat `json:"table_stats"`
}

type TableStat struct {
	Name      string `json:"name"`
	RowCount  int64  `json:"row_count"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
}

type RuntimeStats struct {
	NumGoroutines int   `json:"num_goroutines"`
	NumCPU        int   `json:"num_cpu"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// memStatsTTL bounds how often runtime.ReadMemStats, which stops the world,
// is called.
const memStatsTTL = 5 * time.Second

var tables = []string{"cities", "schema_migrations"}

// Collector gathers process and store statistics.
type Collector struct {
	db        *sqlx.DB
	config    config.DBConfig
	startTime time.Time

	memMu     sync.Mutex
	mem       MemoryStats
	memReadAt time.Time
}

func NewCollector(db *sqlx.DB, cfg config.DBConfig) *Collector {
	return &Collector{
		db:        db,
		config:    cfg,
		startTime: time.Now(),
	}
}

func (c *Collector) Collect(ctx context.Context) (*Stats, error) {
	dbStats, err := c.collectDatabase(ctx)
	if err != nil {
		return nil, err
	}

	return &Stats{
		Timestamp: time.Now(),
		Memory:    c.memory(),
		Database:  dbStats,
		Runtime: RuntimeStats{
			NumGoroutines: runtime.NumGoroutine(),
			NumCPU:        runtime.NumCPU(),
			UptimeSeconds: int64(time.Since(c.startTime).Seconds()),
		},
	}, nil
}

func (c *Collector) memory() MemoryStats {
	c.memMu.Lock()
	defer c.memMu.Unlock()

	if !c.memReadAt.IsZero() && time.Since(c.memReadAt) < memStatsTTL {
		return c.mem
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	c.mem = MemoryStats{
		Alloc:        m.Alloc,
		TotalAlloc:   m.TotalAlloc,
		Sys:          m.Sys,
		NumGC:        m.NumGC,
		HeapAlloc:    m.HeapAlloc,
		HeapInuse:    m.HeapInuse,
		HeapReleased: m.HeapReleased,
	}
	c.memReadAt = time.Now()
	return c.mem
}

func (c *Collector) collectDatabase(ctx context.Context) (DatabaseStats, error) {
	stats := DatabaseStats{
		Type: string(c.config.Type),
	}

	if size, err := c.databaseSize(ctx); err == nil {
		stats.SizeBytes = size
	}

	version, ok := c.schemaVersion(ctx)
	if !ok {
		return stats, nil
	}
	stats.Migrated = true
	stats.SchemaVersion = version

	var counts struct {
		Cities    int64 `db:"cities"`
		Favorites int64 `db:"favorites"`
	}
	err := c.db.GetContext(ctx, &counts, `
		SELECT COUNT(*) AS cities,
		       COALESCE(SUM(CASE WHEN is_favorite THEN 1 ELSE 0 END), 0) AS favorites
		FROM cities
	`)
	if err != nil {
		return stats, fmt.Errorf("failed to count cities: %w", err)
	}
	stats.Cities = counts.Cities
	stats.Favorites = counts.Favorites
	stats.TableStats = c.tableStats(ctx)

	return stats, nil
}

// schemaVersion reads golang-migrate's bookkeeping table. A missing table,
// no applied version or a dirty migration all count as not migrated.
func (c *Collector) schemaVersion(ctx context.Context) (uint, bool) {
	var row struct {
		Version int64 `db:"version"`
		Dirty   bool  `db:"dirty"`
	}
	if err := c.db.GetContext(ctx, &row, "SELECT version, dirty FROM schema_migrations LIMIT 1"); err != nil {
		return 0, false
	}
	if row.Dirty || row.Version <= 0 {
		return uint(max(row.Version, 0)), false
	}
	return uint(row.Version), true
}

func (c *Collector) databaseSize(ctx context.Context) (int64, error) {
	query := "SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()"
	if c.config.Type == config.DBTypePostgreSQL {
		query = "SELECT pg_database_size(current_database())"
	}

	var size int64
	if err := c.db.GetContext(ctx, &size, query); err != nil {
		return 0, err
	}
	return size, nil
}

func (c *Collector) tableStats(ctx context.Context) []TableStat {
	var out []TableStat
	for _, table := range tables {
		stat := TableStat{Name: table}
		if err := c.db.GetContext(ctx, &stat.RowCount, "SELECT COUNT(*) FROM "+table); err != nil {
			continue
		}
		stat.SizeBytes = c.tableSize(ctx, table)
		out = append(out, stat)
	}
	return out
}

// tableSize is best effort: dbstat is only compiled into some sqlite builds.
func (c *Collector) tableSize(ctx context.Context, table string) int64 {
	query := `SELECT COALESCE(SUM(pgsize), 0) FROM dbstat WHERE name = ?`
	if c.config.Type == config.DBTypePostgreSQL {
		query = `SELECT COALESCE(pg_total_relation_size($1::regclass), 0)`
	}

	var size int64
	if err := c.db.GetContext(ctx, &size, query, table); err != nil {
		return 0
	}
	return size
}
