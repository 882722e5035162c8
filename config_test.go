package fdtd

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("FDTD_API_KEY", "")
	t.Setenv("FDTD_BASE_URL", "")
	t.Setenv("FDTD_HISTORY_DSN", "")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_File(t *testing.T) {
	t.Setenv("FDTD_API_KEY", "")
	t.Setenv("FDTD_BASE_URL", "")
	t.Setenv("FDTD_HISTORY_DSN", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
version: 1
api_key: from-file
poll_interval: 500ms
poll_timeout: 2h
max_retries: 7
max_grid_cells: 5000000
theme: dark
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.APIKey)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 2*time.Hour, cfg.PollTimeout)
	assert.Equal(t, 7, cfg.MaxRetries)
	assert.Equal(t, int64(5000000), cfg.MaxGridCells)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.PollMaxInterval)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("FDTD_API_KEY", "from-env")
	t.Setenv("FDTD_BASE_URL", "http://localhost:9000")
	t.Setenv("FDTD_HISTORY_DSN", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_key: from-file\n"), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.APIKey)
	assert.Equal(t, "http://localhost:9000", cfg.BaseURL)
}

func TestLoadConfig_Rejects(t *testing.T) {
	dir := t.TempDir()

	newer := filepath.Join(dir, "newer.yaml")
	require.NoError(t, os.WriteFile(newer, []byte("version: 2\n"), 0600))
	_, err := LoadConfig(newer)
	require.ErrorIs(t, err, ErrConfigVersion)

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("poll_interval: [1, 2\n"), 0600))
	_, err = LoadConfig(broken)
	require.Error(t, err)
}

func TestLoadConfig_RejectsOutOfRange(t *testing.T) {
	t.Setenv("FDTD_API_KEY", "")
	t.Setenv("FDTD_BASE_URL", "")
	t.Setenv("FDTD_HISTORY_DSN", "")

	cases := []struct {
		doc   string
		field string
	}{
		{"max_retries: -1\n", "max_retries"},
		{"poll_interval: 0s\n", "poll_interval"},
		{"poll_interval: -1s\n", "poll_interval"},
		{"poll_max_interval: 0s\n", "poll_max_interval"},
		{"poll_interval: 1m\npoll_max_interval: 10s\n", "poll_max_interval"},
		{"poll_max_failures: -2\n", "poll_max_failures"},
		{"poll_timeout: -5s\n", "poll_timeout"},
		{"connect_timeout: 0s\n", "connect_timeout"},
		{"request_timeout: 0s\n", "request_timeout"},
		{"retry_delay: 0s\n", "retry_delay"},
		{"retry_max_delay: -1s\n", "retry_max_delay"},
		{"max_grid_cells: -10\n", "max_grid_cells"},
		{"base_url: \"\"\n", "base_url"},
	}
	dir := t.TempDir()
	for _, tc := range cases {
		t.Run(tc.field, func(t *testing.T) {
			path := filepath.Join(dir, "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.doc), 0600))

			_, err := LoadConfig(path)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestConfig_ValidateAcceptsZeroMeaning(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRetries = 0
	cfg.PollMaxFailures = 0
	cfg.PollTimeout = 0
	cfg.RetryMaxDelay = 0
	cfg.MaxGridCells = 0
	require.NoError(t, cfg.Validate())
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	t.Setenv("FDTD_API_KEY", "")
	t.Setenv("FDTD_BASE_URL", "")
	t.Setenv("FDTD_HISTORY_DSN", "")

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.APIKey = "secret"
	cfg.PollTimeout = 90 * time.Minute
	require.NoError(t, SaveConfig(path, cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	back, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}

func TestNewClientFromConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIKey = "k"
	cfg.BaseURL = "http://localhost:1"
	cfg.PollTimeout = time.Minute
	cfg.MaxGridCells = 42

	client, err := NewClientFromConfig(context.Background(), cfg)
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, "k", client.GetAPIKey())
	assert.Equal(t, "http://localhost:1", client.GetBaseURL())
	assert.Equal(t, time.Minute, client.pollConfig.Timeout)
	assert.Equal(t, int64(42), client.maxGridCells)
	assert.Equal(t, cfg.RequestTimeout, client.httpClient.Timeout)

	cfg.HistoryDSN = "sqlite:///tmp/x.db"
	_, err = NewClientFromConfig(context.Background(), cfg)
	require.Error(t, err)

	bad := DefaultConfig()
	bad.MaxRetries = -1
	_, err = NewClientFromConfig(context.Background(), bad)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "max_retries", verr.Field)
}
