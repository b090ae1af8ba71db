// Package config loads route-viewer settings from defaults, an optional
// route-viewer.toml, ROUTE_VIEWER_ environment variables and command-line
// flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/ritzau/route-viewer/pkg/logging"
	"github.com/ritzau/route-viewer/pkg/store"
)

const (
	// FileName is read from the working directory when present
	FileName = "route-viewer.toml"
	// EnvPrefix namespaces environment overrides, e.g. ROUTE_VIEWER_STORE_DRIVER
	EnvPrefix = "ROUTE_VIEWER_"
)

// Config holds all configuration for the application
type Config struct {
	Addr  string      `koanf:"addr" validate:"required"`
	Store StoreConfig `koanf:"store"`
	Seed  SeedConfig  `koanf:"seed"`
	Watch bool        `koanf:"watch"`
	Cache CacheConfig `koanf:"cache"`
	Rate  RateConfig  `koanf:"rate"`
	Log   LogConfig   `koanf:"log"`

	// Verbose is the -v count; each step lowers the log level by one notch
	Verbose int `koanf:"verbose" validate:"gte=0"`
}

type StoreConfig struct {
	Driver string `koanf:"driver" validate:"oneof=bolt mysql"`
	Path   string `koanf:"path" validate:"required_if=Driver bolt"`
	DSN    string `koanf:"dsn" validate:"required_if=Driver mysql"`
}

type SeedConfig struct {
	// Dir holds nodes.csv and edges.csv; empty means the built-in network
	Dir string `koanf:"dir"`
	// Default seeds an empty store on startup
	Default bool `koanf:"default"`
}

type CacheConfig struct {
	Size int `koanf:"size" validate:"gte=1"`
}

type RateConfig struct {
	// Limit is route requests per second; 0 disables limiting
	Limit float64 `koanf:"limit" validate:"gte=0"`
	Burst int     `koanf:"burst" validate:"gte=1"`
}

type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=trace debug info warn error"`
	JSON  bool   `koanf:"json"`
}

// Defaults returns the built-in configuration
func Defaults() map[string]any {
	return map[string]any{
		"addr": "localhost:8080",
		"store": map[string]any{
			"driver": "bolt",
			"path":   "route-viewer.db",
			"dsn":    "",
		},
		"seed": map[string]any{
			"dir":     "",
			"default": true,
		},
		"watch": false,
		"cache": map[string]any{"size": 1024},
		"rate": map[string]any{
			"limit": 50.0,
			"burst": 100,
		},
		"log": map[string]any{
			"level": "info",
			"json":  false,
		},
		"verbose": 0,
	}
}

// RegisterFlags adds the flags Load understands. Dashes in flag names map
// to nesting, so --store-driver sets store.driver.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", FileName, "configuration file")
	fs.String("addr", "localhost:8080", "HTTP listen address")
	fs.String("store-driver", "bolt", "storage backend (bolt or mysql)")
	fs.String("store-path", "route-viewer.db", "bolt database file")
	fs.String("store-dsn", "", "mysql data source name")
	fs.String("seed-dir", "", "directory with nodes.csv and edges.csv")
	fs.Bool("seed-default", true, "seed the built-in network into an empty store")
	fs.Bool("watch", false, "re-import the seed directory when its CSV files change")
	fs.Int("cache-size", 1024, "number of cached routes")
	fs.Float64("rate-limit", 50, "route requests per second, 0 disables")
	fs.Int("rate-burst", 100, "route request burst size")
	fs.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	fs.Bool("log-json", false, "log as JSON")
	fs.CountP("verbose", "v", "increase verbosity (repeatable)")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load resolves configuration. Flags only override when they were set on
// the command line. A missing config file is not an error.
func Load(flags *pflag.FlagSet) (*Config, error) {
	path := FileName
	if flags != nil {
		if p, err := flags.GetString("config"); err == nil && p != "" {
			path = p
		}
	}
	return load(path, flags)
}

func load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(mapProvider(Defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := k.Load(file.Provider(path), toml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	// ROUTE_VIEWER_STORE_DRIVER -> store.driver
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if f.Name == "config" {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "."), posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// StoreOptions converts to the store package's configuration
func (c *Config) StoreOptions() store.Config {
	return store.Config{Driver: c.Store.Driver, Path: c.Store.Path, DSN: c.Store.DSN}
}

// LogLevel combines log.level with the -v count
func (c *Config) LogLevel() slog.Level {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	return level - slog.Level(4*c.Verbose)
}

// ApplyLogging configures the package logger from c
func (c *Config) ApplyLogging() {
	logging.Configure(logging.Options{Level: c.LogLevel(), JSON: c.Log.JSON})
}

type mapProvider map[string]any

func (p mapProvider) Read() (map[string]any, error) {
	return p, nil
}

func (p mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("map provider does not support ReadBytes")
}
