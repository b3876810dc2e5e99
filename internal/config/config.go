// internal/config/config.go
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"

	"github.com/harshada2576/pigeon-finder/internal/cache"
	"github.com/harshada2576/pigeon-finder/internal/dupes"
	"github.com/harshada2576/pigeon-finder/internal/engine"
	pferrors "github.com/harshada2576/pigeon-finder/internal/errors"
	"github.com/harshada2576/pigeon-finder/internal/hasher"
	"github.com/harshada2576/pigeon-finder/internal/scanner"
)

// EnvPrefix prefixes every environment override, e.g. PIGEON_WORKERS.
const EnvPrefix = "PIGEON"

// Size is a byte count that also accepts human strings such as "4KiB" or
// "1MB" in JSON and the environment.
type Size int64

func (s *Size) Decode(value string) error {
	n, err := humanize.ParseBytes(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", value, err)
	}
	*s = Size(n)
	return nil
}

func (s *Size) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		return s.Decode(str)
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = Size(n)
	return nil
}

func (s Size) String() string {
	if s < 0 {
		return fmt.Sprintf("%d B", int64(s))
	}
	return humanize.IBytes(uint64(s))
}

type Config struct {
	Algorithm   string `json:"algorithm" split_words:"true"`
	ChunkSize   Size   `json:"chunk_size" split_words:"true"`
	PartialSize Size   `json:"partial_size" split_words:"true"`
	Workers     int    `json:"workers" split_words:"true"`

	MinSize         Size     `json:"min_size" split_words:"true"`
	MaxSize         Size     `json:"max_size" split_words:"true"` // 0 is unbounded
	IncludeZeroByte bool     `json:"include_zero_byte" split_words:"true"`
	Extensions      []string `json:"extensions" split_words:"true"`
	ExcludeDirs     []string `json:"exclude_dirs" split_words:"true"`
	SkipHidden      bool     `json:"skip_hidden" split_words:"true"`

	KeepMode string `json:"keep_mode" split_words:"true"` // newest, oldest, path_length
	LogLevel string `json:"log_level" split_words:"true"` // debug, info, warn, error

	CacheDir  string `json:"cache_dir" split_words:"true"` // empty disables the digest cache
	CacheSize int    `json:"cache_size" split_words:"true"`
}

// DefaultExcludeDirs are never descended into unless overridden.
var DefaultExcludeDirs = []string{".git", ".svn", "__pycache__", "System Volume Information", "$Recycle.Bin"}

func Default() *Config {
	return &Config{
		Algorithm:   hasher.DefaultAlgorithm,
		ChunkSize:   hasher.DefaultChunkSize,
		PartialSize: hasher.DefaultPartialSize,
		Workers:     runtime.NumCPU(),
		ExcludeDirs: append([]string(nil), DefaultExcludeDirs...),
		KeepMode:    string(dupes.KeepNewest),
		LogLevel:    "info",
		CacheSize:   4096,
	}
}

// Load returns the defaults overlaid with the JSON file at path, if any,
// and then with PIGEON_* environment variables. The result is not
// validated.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close()

		dec := json.NewDecoder(file)
		dec.DisallowUnknownFields()
		if err := dec.Decode(config); err != nil {
			return nil, pferrors.Config(fmt.Sprintf("parsing %s: %v", path, err))
		}
	}

	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides fields from PIGEON_* variables that are set.
func (c *Config) ApplyEnv() error {
	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return pferrors.Config(fmt.Sprintf("environment: %v", err))
	}
	return nil
}

var logLevels = map[string]struct{}{"debug": {}, "info": {}, "warn": {}, "error": {}}

// Validate reports the first invalid field. An unknown algorithm is a
// HASH_ALGORITHM error; everything else is CONFIG.
func (c *Config) Validate() error {
	if _, err := hasher.Lookup(c.Algorithm); err != nil {
		return err
	}
	if _, err := dupes.ParseKeepMode(c.KeepMode); err != nil {
		return pferrors.Config(err.Error())
	}
	if _, ok := logLevels[strings.ToLower(c.LogLevel)]; !ok {
		return pferrors.Config(fmt.Sprintf("unknown log level %q", c.LogLevel))
	}

	switch {
	case c.ChunkSize <= 0:
		return pferrors.Config(fmt.Sprintf("chunk_size must be positive, got %d", c.ChunkSize))
	case c.PartialSize <= 0:
		return pferrors.Config(fmt.Sprintf("partial_size must be positive, got %d", c.PartialSize))
	case c.Workers < 0:
		return pferrors.Config(fmt.Sprintf("workers must not be negative, got %d", c.Workers))
	case c.MinSize < 0:
		return pferrors.Config(fmt.Sprintf("min_size must not be negative, got %d", c.MinSize))
	case c.MaxSize < 0:
		return pferrors.Config(fmt.Sprintf("max_size must not be negative, got %d", c.MaxSize))
	case c.MaxSize > 0 && c.MaxSize < c.MinSize:
		return pferrors.Config(fmt.Sprintf("max_size %s is below min_size %s", c.MaxSize, c.MinSize))
	case c.CacheSize < 0:
		return pferrors.Config(fmt.Sprintf("cache_size must not be negative, got %d", c.CacheSize))
	}
	return nil
}

func (c *Config) ScanFilters() scanner.Filters {
	var exts []string
	for _, ext := range c.Extensions {
		if ext = scanner.NormalizeExtension(ext); ext != "" {
			exts = append(exts, ext)
		}
	}
	return scanner.Filters{
		Extensions:      exts,
		MinSize:         int64(c.MinSize),
		MaxSize:         int64(c.MaxSize),
		IncludeZeroByte: c.IncludeZeroByte,
		ExcludeDirs:     c.ExcludeDirs,
		SkipHidden:      c.SkipHidden,
	}
}

func (c *Config) HashConfig() hasher.Config {
	return hasher.Config{
		Algorithm:   c.Algorithm,
		ChunkSize:   int(c.ChunkSize),
		PartialSize: int64(c.PartialSize),
	}
}

// EngineOptions carries the worker count. Callers add the cache and
// progress sink.
func (c *Config) EngineOptions(logger *zap.Logger) engine.Options {
	return engine.Options{
		Workers: c.Workers,
		Logger:  logger,
	}
}

// CacheOptions is only meaningful when CacheDir is set.
func (c *Config) CacheOptions(logger *zap.Logger) cache.Options {
	return cache.Options{
		Dir:    c.CacheDir,
		Size:   c.CacheSize,
		Logger: logger,
	}
}

// Keep returns the parsed keep mode. Call Validate first.
func (c *Config) Keep() dupes.KeepMode {
	mode, err := dupes.ParseKeepMode(c.KeepMode)
	if err != nil {
		return dupes.KeepNewest
	}
	return mode
}
