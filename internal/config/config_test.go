package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:4723/wd/hub", cfg.Appium.ServerURL)
	assert.Equal(t, "Android", cfg.App.PlatformName)
	assert.Equal(t, "uiautomator2", cfg.App.AutomationName)
	assert.Equal(t, "com.namp.zeon", cfg.App.AppPackage)
	assert.True(t, cfg.App.NoReset)
	assert.True(t, cfg.App.IgnoreHiddenAPIPolicyError)
	assert.Equal(t, "charger_data.txt", cfg.Sink.Path)
	assert.True(t, cfg.Sink.Sync)
	assert.Empty(t, cfg.Telemetry.ListenAddr)

	loop := cfg.CrawlLoop()
	require.NoError(t, loop.Validate())
	assert.Equal(t, 10*time.Second, loop.WaitTimeout)
	assert.Equal(t, 100, loop.RetryThreshold)
	assert.True(t, loop.ReleaseSessionEachIteration)
	assert.Zero(t, loop.MaxIterations)
	assert.Equal(t, `//android.view.View[@content-desc="Map Marker"]`, loop.MarkerLocator.Value)
	assert.Equal(t, "xpath", loop.ConfirmLocator.Using)

	client := cfg.AppiumClient()
	assert.Equal(t, 60*time.Second, client.HTTPTimeout)
	assert.Equal(t, 500*time.Millisecond, client.PollInterval)
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
appium:
  server_url: http://device-farm:4723
  command_rate: 4
app:
  device_name: Pixel 8
  platform_version: "14"
crawler:
  wait_timeout_seconds: 20
  retry_threshold: 25
  release_session_each_iteration: false
  iteration_pause_seconds: 30
  max_iterations: 2
sink:
  path: /tmp/stations.txt
  sync: false
logging:
  development: false
telemetry:
  listen_addr: ":9102"
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://device-farm:4723", cfg.Appium.ServerURL)
	assert.Equal(t, "Pixel 8", cfg.App.DeviceName)
	assert.Equal(t, "14", cfg.App.PlatformVersion)
	assert.Equal(t, "com.namp.zeon", cfg.App.AppPackage, "unset keys keep defaults")
	assert.False(t, cfg.Sink.Sync)
	assert.False(t, cfg.Logging.Development)
	assert.Equal(t, ":9102", cfg.Telemetry.ListenAddr)
	assert.InDelta(t, 4.0, cfg.AppiumClient().CommandRate, 0.001)

	loop := cfg.CrawlLoop()
	assert.Equal(t, 20*time.Second, loop.WaitTimeout)
	assert.Equal(t, 25, loop.RetryThreshold)
	assert.False(t, loop.ReleaseSessionEachIteration)
	assert.Equal(t, 30*time.Second, loop.IterationPause)
	assert.Equal(t, 2, loop.MaxIterations)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base, err := Load("")
	require.NoError(t, err)

	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"server url", func(c *Config) { c.Appium.ServerURL = " " }},
		{"http timeout", func(c *Config) { c.Appium.HTTPTimeoutSeconds = 0 }},
		{"command rate", func(c *Config) { c.Appium.CommandRate = -1 }},
		{"package", func(c *Config) { c.App.AppPackage = "" }},
		{"wait timeout", func(c *Config) { c.Crawler.WaitTimeoutSeconds = 0 }},
		{"retry threshold", func(c *Config) { c.Crawler.RetryThreshold = -1 }},
		{"pause", func(c *Config) { c.Crawler.IterationPauseSeconds = -1 }},
		{"max iterations", func(c *Config) { c.Crawler.MaxIterations = -1 }},
		{"sink path", func(c *Config) { c.Sink.Path = "" }},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("STATIONCRAWLER_CRAWLER_RETRY_THRESHOLD", "7")
	t.Setenv("STATIONCRAWLER_SINK_PATH", "env.txt")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Crawler.RetryThreshold)
	assert.Equal(t, "env.txt", cfg.Sink.Path)
}
