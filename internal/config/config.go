// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Store selects the score store backend: memory or sqlite.
	Store string `koanf:"store"`

	// SQLitePath locates the sqlite database file (sqlite store only).
	SQLitePath string `koanf:"sqlite_path"`

	// CatalogPath locates the chart catalog YAML (memory store only; the
	// sqlite store reads its charts table).
	CatalogPath string `koanf:"catalog_path"`

	// MaxLookupLimit caps the GET /score/lookup page size.
	MaxLookupLimit int `koanf:"max_lookup_limit"`

	// RequireToken rejects submissions without a previously issued token.
	RequireToken bool `koanf:"require_token"`

	// TokenCacheSize bounds the outstanding submission-token registry.
	TokenCacheSize int `koanf:"token_cache_size"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		Addr:           ":9080",
		Store:          StoreMemory,
		SQLitePath:     "zircon.db",
		CatalogPath:    "charts.yaml",
		MaxLookupLimit: 60,
		RequireToken:   false,
		TokenCacheSize: 50_000,
	}
}
