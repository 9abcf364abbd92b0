package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if ZRCN_CONFIG is set
//  3. env (prefix ZRCN_)
func Load() (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("ZRCN_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: ZRCN_ADDR, ZRCN_MAX_LOOKUP_LIMIT, ...
	// Map env keys like ZRCN_SQLITE_PATH -> sqlite_path (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("ZRCN_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "zrcn_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Basic validation
	switch {
	case cfg.Addr == "":
		return nil, fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case cfg.Store != StoreMemory && cfg.Store != StoreSQLite:
		return nil, fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, cfg.Store)
	case cfg.MaxLookupLimit <= 0:
		return nil, fmt.Errorf("%w: max_lookup_limit must be positive", ErrInvalidConfig)
	case cfg.TokenCacheSize <= 0:
		return nil, fmt.Errorf("%w: token_cache_size must be positive", ErrInvalidConfig)
	}
	return &cfg, nil
}
