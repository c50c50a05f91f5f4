package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "feed", cfg.Instagram.Fetcher)
	assert.Equal(t, "downloads", cfg.Download.OutputDir)
	assert.Equal(t, 3, cfg.Download.Concurrency)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 60, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Nil(t, cfg.Download.MaxPosts)
	assert.Equal(t, -1, cfg.Download.PostLimit())
	assert.Empty(t, cfg.Instagram.QueryHash)
	assert.NoError(t, cfg.Validate())
}

func intPtr(n int) *int { return &n }

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("IGDL_USERNAME", "alice")
	t.Setenv("IGDL_PASSWORD", "hunter2")
	t.Setenv("IGDL_FETCHER", "graphql")
	t.Setenv("IGDL_OUTPUT_DIR", "/tmp/ig")
	t.Setenv("IGDL_LOG_LEVEL", "debug")
	t.Setenv("IGDL_CONCURRENCY", "5")
	t.Setenv("IGDL_MAX_POSTS", "20")
	t.Setenv("IGDL_REQUESTS_PER_MINUTE", "30")
	t.Setenv("IGDL_QUERY_HASH", "69cba40317214236af40e7efa697781d")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "alice", cfg.Instagram.Username)
	assert.Equal(t, "hunter2", cfg.Instagram.Password)
	assert.Equal(t, "graphql", cfg.Instagram.Fetcher)
	assert.Equal(t, "/tmp/ig", cfg.Download.OutputDir)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 5, cfg.Download.Concurrency)
	assert.Equal(t, 20, cfg.Download.PostLimit())
	assert.Equal(t, 30, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, "69cba40317214236af40e7efa697781d", cfg.Instagram.QueryHash)
}

func TestLoadFromEnvZeroMaxPosts(t *testing.T) {
	t.Setenv("IGDL_MAX_POSTS", "0")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())
	require.NotNil(t, cfg.Download.MaxPosts)
	assert.Equal(t, 0, cfg.Download.PostLimit())
}

func TestLoadFromEnvInvalidNumbers(t *testing.T) {
	t.Setenv("IGDL_CONCURRENCY", "many")
	t.Setenv("IGDL_MAX_ATTEMPTS", "x")

	cfg := DefaultConfig()
	err := cfg.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IGDL_CONCURRENCY")
	assert.Contains(t, err.Error(), "IGDL_MAX_ATTEMPTS")
	assert.Equal(t, 3, cfg.Download.Concurrency)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"graphql fetcher", func(c *Config) { c.Instagram.Fetcher = "graphql" }, ""},
		{"unknown fetcher", func(c *Config) { c.Instagram.Fetcher = "html" }, "unknown fetcher"},
		{"page size too big", func(c *Config) { c.Instagram.PageSize = 51 }, "page size"},
		{"no output dir", func(c *Config) { c.Download.OutputDir = "" }, "output directory"},
		{"zero concurrency", func(c *Config) { c.Download.Concurrency = 0 }, "concurrency must be positive"},
		{"too much concurrency", func(c *Config) { c.Download.Concurrency = 11 }, "should not exceed"},
		{"zero timeout", func(c *Config) { c.Download.Timeout = 0 }, "timeout"},
		{"zero max posts", func(c *Config) { c.Download.MaxPosts = intPtr(0) }, ""},
		{"negative max posts", func(c *Config) { c.Download.MaxPosts = intPtr(-1) }, "max posts cannot be negative"},
		{"alt query hash", func(c *Config) { c.Instagram.QueryHash = "69cba40317214236af40e7efa697781d" }, ""},
		{"short query hash", func(c *Config) { c.Instagram.QueryHash = "abc123" }, "query hash"},
		{"non-hex query hash", func(c *Config) { c.Instagram.QueryHash = "zzcba40317214236af40e7efa697781d" }, "query hash"},
		{"inverted jitter", func(c *Config) { c.Download.JitterMin = 2 * time.Second }, "download jitter"},
		{"zero attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, "max attempts"},
		{"max below base", func(c *Config) { c.Retry.MaxDelay = time.Millisecond }, "max delay"},
		{"zero rpm", func(c *Config) { c.RateLimit.RequestsPerMinute = 0 }, "requests per minute"},
		{"inverted page delay", func(c *Config) { c.RateLimit.PageDelayMin = 5 * time.Second }, "page delay"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Download.OutputDir = ""
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output directory")
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"username":    "bob",
		"password":    "pw",
		"fetcher":     "graphql",
		"output":      "out",
		"concurrency": 7,
		"max-posts":   12,
		"log-level":   "warn",
	})

	assert.Equal(t, "bob", cfg.Instagram.Username)
	assert.Equal(t, "pw", cfg.Instagram.Password)
	assert.Equal(t, "graphql", cfg.Instagram.Fetcher)
	assert.Equal(t, "out", cfg.Download.OutputDir)
	assert.Equal(t, 7, cfg.Download.Concurrency)
	assert.Equal(t, 12, cfg.Download.PostLimit())
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestMergeCommandLineFlagsMaxPosts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{"max-posts": 0})
	require.NotNil(t, cfg.Download.MaxPosts)
	assert.Equal(t, 0, cfg.Download.PostLimit())
	assert.NoError(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{"max-posts": -3})
	assert.Equal(t, -3, cfg.Download.PostLimit())
	assert.ErrorContains(t, cfg.Validate(), "max posts cannot be negative")
}

func TestMergeCommandLineFlagsIgnoresZeroValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"username":    "",
		"concurrency": 0,
		"output":      42,
	})

	assert.Empty(t, cfg.Instagram.Username)
	assert.Equal(t, 3, cfg.Download.Concurrency)
	assert.Equal(t, "downloads", cfg.Download.OutputDir)
}

func TestSaveAndLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Instagram.Username = "alice"
	cfg.Download.Timeout = 45 * time.Second
	cfg.RateLimit.PageDelayMax = 3 * time.Second
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, "alice", loaded.Instagram.Username)
	assert.Equal(t, 45*time.Second, loaded.Download.Timeout)
	assert.Equal(t, 3*time.Second, loaded.RateLimit.PageDelayMax)
}

func TestLoadFromFileDurations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
instagram:
  fetcher: graphql
  page_size: 24
  query_hash: 69cba40317214236af40e7efa697781d
download:
  output_dir: media
  max_posts: 0
  timeout: 1m
retry:
  base_delay: 250ms
  max_delay: 10s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "graphql", cfg.Instagram.Fetcher)
	assert.Equal(t, 24, cfg.Instagram.PageSize)
	assert.Equal(t, "media", cfg.Download.OutputDir)
	assert.Equal(t, time.Minute, cfg.Download.Timeout)
	assert.Equal(t, "69cba40317214236af40e7efa697781d", cfg.Instagram.QueryHash)
	require.NotNil(t, cfg.Download.MaxPosts)
	assert.Equal(t, 0, *cfg.Download.MaxPosts)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.BaseDelay)
	assert.Equal(t, 10*time.Second, cfg.Retry.MaxDelay)
	assert.Equal(t, 3, cfg.Download.Concurrency)
}

func TestLoadFromFileErrors(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("download: [unterminated"), 0600))
	assert.Error(t, cfg.LoadFromFile(bad))
}

func TestDefaultPathHonoursXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, filepath.Join("/xdg", "igdl", "config.yaml"), DefaultPath())
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
instagram:
  username: fromfile
download:
  output_dir: filedir
  concurrency: 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	t.Setenv("IGDL_OUTPUT_DIR", "envdir")
	t.Setenv("IGDL_CONCURRENCY", "4")

	cfg, err := Load(path, map[string]interface{}{"concurrency": 6})
	require.NoError(t, err)

	assert.Equal(t, "fromfile", cfg.Instagram.Username)
	assert.Equal(t, "envdir", cfg.Download.OutputDir)
	assert.Equal(t, 6, cfg.Download.Concurrency)
}

func TestLoadRejectsInvalid(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("IGDL_FETCHER", "bogus")

	_, err := Load("", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown fetcher")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}
