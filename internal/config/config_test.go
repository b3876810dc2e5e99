package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harshada2576/pigeon-finder/internal/dupes"
	pferrors "github.com/harshada2576/pigeon-finder/internal/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pigeon.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	assert.Equal(t, "sha256", c.Algorithm)
	assert.EqualValues(t, 64*1024, c.ChunkSize)
	assert.EqualValues(t, 4096, c.PartialSize)
	assert.Equal(t, runtime.NumCPU(), c.Workers)
	assert.Zero(t, c.MinSize)
	assert.Zero(t, c.MaxSize)
	assert.False(t, c.IncludeZeroByte)
	assert.Contains(t, c.ExcludeDirs, ".git")
	assert.Contains(t, c.ExcludeDirs, "$Recycle.Bin")
	assert.Equal(t, dupes.KeepNewest, c.Keep())
	assert.Empty(t, c.CacheDir)

	// Callers mutating one default must not affect the next.
	c.ExcludeDirs[0] = "changed"
	assert.Equal(t, ".git", Default().ExcludeDirs[0])
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `{
		"algorithm": "blake2b",
		"partial_size": "8KiB",
		"min_size": "1MB",
		"max_size": 5000000,
		"extensions": ["JPG", "png"],
		"keep_mode": "oldest",
		"cache_dir": "/tmp/pigeon-cache"
	}`)

	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, "blake2b", c.Algorithm)
	assert.EqualValues(t, 8192, c.PartialSize)
	assert.EqualValues(t, 1000000, c.MinSize)
	assert.EqualValues(t, 5000000, c.MaxSize)
	assert.Equal(t, dupes.KeepOldest, c.Keep())
	// Fields absent from the file keep their defaults.
	assert.EqualValues(t, 64*1024, c.ChunkSize)
	assert.Equal(t, "info", c.LogLevel)

	filters := c.ScanFilters()
	assert.Equal(t, []string{".jpg", ".png"}, filters.Extensions)
	assert.EqualValues(t, 1000000, filters.MinSize)

	hc := c.HashConfig()
	assert.Equal(t, "blake2b", hc.Algorithm)
	assert.EqualValues(t, 8192, hc.PartialSize)

	assert.Equal(t, "/tmp/pigeon-cache", c.CacheOptions(nil).Dir)
	assert.Equal(t, c.Workers, c.EngineOptions(nil).Workers)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeConfig(t, `{"algorithm": `))
	assert.True(t, pferrors.IsType(err, pferrors.ErrorTypeConfig))

	_, err = Load(writeConfig(t, `{"colour": "blue"}`))
	assert.True(t, pferrors.IsType(err, pferrors.ErrorTypeConfig))

	_, err = Load(writeConfig(t, `{"min_size": "lots"}`))
	assert.True(t, pferrors.IsType(err, pferrors.ErrorTypeConfig))
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("PIGEON_ALGORITHM", "md5")
	t.Setenv("PIGEON_WORKERS", "3")
	t.Setenv("PIGEON_MIN_SIZE", "4KiB")
	t.Setenv("PIGEON_EXCLUDE_DIRS", "node_modules,vendor")
	t.Setenv("PIGEON_INCLUDE_ZERO_BYTE", "true")

	path := writeConfig(t, `{"algorithm": "sha1", "workers": 8}`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "md5", c.Algorithm)
	assert.Equal(t, 3, c.Workers)
	assert.EqualValues(t, 4096, c.MinSize)
	assert.Equal(t, []string{"node_modules", "vendor"}, c.ExcludeDirs)
	assert.True(t, c.IncludeZeroByte)
}

func TestLoadEnvInvalid(t *testing.T) {
	t.Setenv("PIGEON_WORKERS", "many")
	_, err := Load("")
	assert.True(t, pferrors.IsType(err, pferrors.ErrorTypeConfig))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   pferrors.ErrorType
	}{
		{"unknown algorithm", func(c *Config) { c.Algorithm = "crc32" }, pferrors.ErrorTypeHashAlgorithm},
		{"unknown keep mode", func(c *Config) { c.KeepMode = "largest" }, pferrors.ErrorTypeConfig},
		{"unknown log level", func(c *Config) { c.LogLevel = "chatty" }, pferrors.ErrorTypeConfig},
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }, pferrors.ErrorTypeConfig},
		{"zero partial size", func(c *Config) { c.PartialSize = 0 }, pferrors.ErrorTypeConfig},
		{"negative workers", func(c *Config) { c.Workers = -1 }, pferrors.ErrorTypeConfig},
		{"negative min size", func(c *Config) { c.MinSize = -1 }, pferrors.ErrorTypeConfig},
		{"max below min", func(c *Config) { c.MinSize = 10; c.MaxSize = 5 }, pferrors.ErrorTypeConfig},
		{"negative cache size", func(c *Config) { c.CacheSize = -1 }, pferrors.ErrorTypeConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.True(t, pferrors.IsType(err, tt.want), err.Error())
		})
	}
}

func TestSize(t *testing.T) {
	var s Size
	require.NoError(t, s.Decode("64KiB"))
	assert.EqualValues(t, 65536, s)
	assert.Equal(t, "64 KiB", s.String())

	require.NoError(t, s.UnmarshalJSON([]byte(`1024`)))
	assert.EqualValues(t, 1024, s)

	assert.Error(t, s.Decode("big"))
}
