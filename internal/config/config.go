package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultDatasetURL is the canonical cities dataset.
const DefaultDatasetURL = "https://gist.githubusercontent.com/hernan-uala/dce8843a8edbe0b0018b32e137bc2b3a/raw/0996accf70cb0ca0e16f9a99e0ee185fafca7af1/cities.json"

// Config holds application configuration
type Config struct {
	DB     DBConfig
	Server ServerConfig
	Ingest IngestConfig
	Search SearchConfig
}

// DBType represents database type
type DBType string

const (
	DBTypePostgreSQL DBType = "postgres"
	DBTypeSQLite     DBType = "sqlite"
	DBTypeMemory     DBType = "memory"
)

// DBConfig holds database configuration
type DBConfig struct {
	Type     DBType
	Path     string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// IngestConfig holds settings for the dataset ingestion pipeline
type IngestConfig struct {
	// Source is an http(s) URL or a local .json/.zip path.
	Source          string
	ChunkSize       int
	Workers         int
	ProgressEvery   int
	DownloadTimeout time.Duration
	RetryInterval   time.Duration
}

// SearchConfig holds settings for listing and the query controller
type SearchConfig struct {
	PageSize    int
	MaxPageSize int
	Debounce    time.Duration
}

// DSN returns the database connection string
func (c DBConfig) DSN() string {
	switch c.Type {
	case DBTypeMemory:
		// SQLite in-memory database
		if c.Name != "" && c.Name != "citybrowser" {
			return fmt.Sprintf("file:%s?mode=memory&cache=shared", c.Name)
		}
		return "file::memory:?cache=shared"
	case DBTypeSQLite:
		return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", c.Path)
	}
	// PostgreSQL connection string
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// IsMemory returns true if using in-memory database
func (c DBConfig) IsMemory() bool {
	return c.Type == DBTypeMemory
}

// IsSQLite returns true for both the file and the in-memory sqlite backends
func (c DBConfig) IsSQLite() bool {
	return c.Type == DBTypeSQLite || c.Type == DBTypeMemory
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbType := DBType(getEnv("DB_TYPE", string(DBTypeSQLite)))
	if dbType != DBTypePostgreSQL && dbType != DBTypeMemory && dbType != DBTypeSQLite {
		dbType = DBTypeSQLite
	}

	config := &Config{
		DB: DBConfig{
			Type:     dbType,
			Path:     getEnv("DB_PATH", "cities.db"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "citybrowser"),
			Password: getEnv("DB_PASSWORD", "citybrowser_password"),
			Name:     getEnv("DB_NAME", "citybrowser"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Server: ServerConfig{
			Port: getEnv("APP_PORT", "8080"),
		},
		Ingest: IngestConfig{
			Source:          getEnv("INGEST_SOURCE", DefaultDatasetURL),
			ChunkSize:       getEnvAsInt("INGEST_CHUNK_SIZE", 2000),
			Workers:         getEnvAsInt("INGEST_WORKERS", 1),
			ProgressEvery:   getEnvAsInt("INGEST_PROGRESS_EVERY", 3),
			DownloadTimeout: getEnvAsDuration("INGEST_DOWNLOAD_TIMEOUT", 60*time.Second),
			RetryInterval:   getEnvAsDuration("INGEST_RETRY_INTERVAL", 5*time.Second),
		},
		Search: SearchConfig{
			PageSize:    getEnvAsInt("SEARCH_PAGE_SIZE", 50),
			MaxPageSize: getEnvAsInt("SEARCH_MAX_PAGE_SIZE", 500),
			Debounce:    getEnvAsDuration("SEARCH_DEBOUNCE", 300*time.Millisecond),
		},
	}

	if config.Ingest.ChunkSize <= 0 {
		config.Ingest.ChunkSize = 2000
	}
	if config.Ingest.Workers <= 0 {
		config.Ingest.Workers = 1
	}
	if config.Search.PageSize <= 0 {
		config.Search.PageSize = 50
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		// Bare integers are milliseconds.
		if ms, err := strconv.Atoi(value); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}
