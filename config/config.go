// Package config loads and validates the backend's environment-driven
// configuration. Values come from an optional .env file overlaid by the
// real process environment (the environment always wins), the same way the
// original deployment scripts expect.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	str2duration "github.com/xhit/go-str2duration/v2"
)

// Defaults applied when the corresponding variable is absent.
const (
	DefaultListenAddr   = ":8080"
	DefaultDatabasePath = "notbroke.db"
	DefaultCacheTTL     = time.Minute
	DefaultRateWindow   = time.Minute
)

// RateLimits holds the per-endpoint-group requests-per-window budgets
// enforced by the HTTP layer.
type RateLimits struct {
	Read   int
	Write  int
	Export int
}

// Config is the resolved backend configuration.
type Config struct {
	Environment  string
	DatabasePath string
	ListenAddr   string
	FrontendURL  string

	CacheTTL   time.Duration
	RateWindow time.Duration
	RateLimits RateLimits

	// Warnings collects non-fatal findings from validation (suspicious but
	// legal values). The caller decides how to surface them.
	Warnings []string
}

// IsProduction reports whether the backend runs with ENVIRONMENT=production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load reads the optional env file at path (missing file is not an error),
// overlays the process environment, applies defaults, and validates. All
// validation errors are collected and reported together.
func Load(path string) (*Config, error) {
	overlay, err := loadEnvFile(path)
	if err != nil {
		return nil, err
	}

	lookup := func(key string) string {
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		return overlay[key]
	}

	cfg := &Config{
		Environment:  getString(lookup, "ENVIRONMENT", "development"),
		DatabasePath: getString(lookup, "DATABASE_PATH", DefaultDatabasePath),
		ListenAddr:   getString(lookup, "LISTEN_ADDR", DefaultListenAddr),
		FrontendURL:  getString(lookup, "FRONTEND_URL", ""),
		RateLimits: RateLimits{
			Read:   120,
			Write:  30,
			Export: 10,
		},
	}

	var errs []error

	cfg.CacheTTL, err = getDuration(lookup, "CACHE_DEFAULT_TTL", DefaultCacheTTL)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.RateWindow, err = getDuration(lookup, "RATE_LIMIT_WINDOW", DefaultRateWindow)
	if err != nil {
		errs = append(errs, err)
	}
	for _, entry := range []struct {
		key string
		dst *int
	}{
		{"RATE_LIMIT_READ", &cfg.RateLimits.Read},
		{"RATE_LIMIT_WRITE", &cfg.RateLimits.Write},
		{"RATE_LIMIT_EXPORT", &cfg.RateLimits.Export},
	} {
		if err := getInt(lookup, entry.key, entry.dst); err != nil {
			errs = append(errs, err)
		}
	}

	errs = append(errs, cfg.validate()...)

	if len(errs) > 0 {
		return nil, errors.Wrap(errors.Join(errs...), "environment validation failed")
	}
	return cfg, nil
}

func (c *Config) validate() []error {
	var errs []error

	if c.DatabasePath == "" {
		errs = append(errs, errors.New("DATABASE_PATH must not be empty"))
	}

	if c.IsProduction() {
		if c.DatabasePath == ":memory:" {
			errs = append(errs, errors.New("an in-memory database is not usable in production: data is lost on restart"))
		}
		if c.FrontendURL == "" {
			errs = append(errs, errors.New("FRONTEND_URL must be set in production for CORS configuration"))
		} else if !strings.HasPrefix(c.FrontendURL, "http://") && !strings.HasPrefix(c.FrontendURL, "https://") {
			errs = append(errs, errors.New("FRONTEND_URL must be a valid HTTP/HTTPS URL"))
		}
	}

	if c.CacheTTL < 0 {
		errs = append(errs, errors.New("CACHE_DEFAULT_TTL must not be negative"))
	} else if c.CacheTTL > 0 && c.CacheTTL < time.Second {
		c.Warnings = append(c.Warnings, "CACHE_DEFAULT_TTL is very low (< 1s); the cache will be nearly useless")
	} else if c.CacheTTL > time.Hour {
		c.Warnings = append(c.Warnings, "CACHE_DEFAULT_TTL is very high (> 1h); stale reads may persist for a long time")
	}

	if c.RateWindow <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be positive"))
	}
	for _, limit := range []struct {
		name  string
		value int
	}{
		{"RATE_LIMIT_READ", c.RateLimits.Read},
		{"RATE_LIMIT_WRITE", c.RateLimits.Write},
		{"RATE_LIMIT_EXPORT", c.RateLimits.Export},
	} {
		if limit.value < 0 {
			errs = append(errs, errors.Newf("%s must not be negative", limit.name))
		}
	}

	return errs
}

func getString(lookup func(string) string, key, def string) string {
	if val := lookup(key); val != "" {
		return val
	}
	return def
}

func getInt(lookup func(string) string, key string, dst *int) error {
	val := lookup(key)
	if val == "" {
		return nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return errors.Newf("%s must be a valid integer, got %q", key, val)
	}
	*dst = n
	return nil
}

// getDuration parses human-friendly durations ("90s", "5m", "1h30m", or a
// bare integer meaning seconds).
func getDuration(lookup func(string) string, key string, def time.Duration) (time.Duration, error) {
	val := lookup(key)
	if val == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := str2duration.ParseDuration(val)
	if err != nil {
		return 0, errors.Newf("%s must be a valid duration, got %q", key, val)
	}
	return d, nil
}
