// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/station-crawler/internal/appium"
	"github.com/JakeFAU/station-crawler/internal/crawler"
	"github.com/JakeFAU/station-crawler/internal/sink"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Appium    AppiumConfig        `mapstructure:"appium"`
	App       appium.Capabilities `mapstructure:"app"`
	Crawler   CrawlerConfig       `mapstructure:"crawler"`
	Sink      sink.Config         `mapstructure:"sink"`
	Logging   LoggingConfig       `mapstructure:"logging"`
	Telemetry TelemetryConfig     `mapstructure:"telemetry"`
}

// AppiumConfig points the client at the Appium server.
type AppiumConfig struct {
	ServerURL          string  `mapstructure:"server_url"`
	HTTPTimeoutSeconds int     `mapstructure:"http_timeout_seconds"`
	PollIntervalMs     int     `mapstructure:"poll_interval_ms"`
	CommandRate        float64 `mapstructure:"command_rate"`
}

// CrawlerConfig governs the crawl loop.
type CrawlerConfig struct {
	WaitTimeoutSeconds          int    `mapstructure:"wait_timeout_seconds"`
	RetryThreshold              int    `mapstructure:"retry_threshold"`
	ReleaseSessionEachIteration bool   `mapstructure:"release_session_each_iteration"`
	IterationPauseSeconds       int    `mapstructure:"iteration_pause_seconds"`
	MaxIterations               int    `mapstructure:"max_iterations"`
	MarkerXPath                 string `mapstructure:"marker_xpath"`
	ConfirmXPath                string `mapstructure:"confirm_xpath"`
	PageXPath                   string `mapstructure:"page_xpath"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// TelemetryConfig controls the ops HTTP endpoint. An empty ListenAddr disables it.
type TelemetryConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("STATIONCRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("appium.server_url", "http://127.0.0.1:4723/wd/hub")
	v.SetDefault("appium.http_timeout_seconds", 60)
	v.SetDefault("appium.poll_interval_ms", 500)
	v.SetDefault("appium.command_rate", 0)
	v.SetDefault("app.platform_name", "Android")
	v.SetDefault("app.automation_name", "uiautomator2")
	v.SetDefault("app.device_name", "OPPO A38")
	v.SetDefault("app.app_package", "com.namp.zeon")
	v.SetDefault("app.app_activity", "com.namp.zeon.MainActivity")
	v.SetDefault("app.platform_version", "13")
	v.SetDefault("app.ignore_hidden_api_policy_error", true)
	v.SetDefault("app.no_reset", true)
	v.SetDefault("crawler.wait_timeout_seconds", 10)
	v.SetDefault("crawler.retry_threshold", crawler.DefaultRetryThreshold)
	v.SetDefault("crawler.release_session_each_iteration", true)
	v.SetDefault("crawler.iteration_pause_seconds", 0)
	v.SetDefault("crawler.max_iterations", 0)
	v.SetDefault("crawler.marker_xpath", crawler.DefaultMarkerXPath)
	v.SetDefault("crawler.confirm_xpath", crawler.DefaultConfirmXPath)
	v.SetDefault("crawler.page_xpath", crawler.DefaultPageXPath)
	v.SetDefault("sink.path", "charger_data.txt")
	v.SetDefault("sink.sync", true)
	v.SetDefault("logging.development", true)
	v.SetDefault("telemetry.listen_addr", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Appium.ServerURL) == "" {
		return fmt.Errorf("appium.server_url must be set")
	}
	if c.Appium.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("appium.http_timeout_seconds must be > 0")
	}
	if c.Appium.CommandRate < 0 {
		return fmt.Errorf("appium.command_rate must be >= 0")
	}
	if c.App.AppPackage == "" || c.App.AppActivity == "" {
		return fmt.Errorf("app.app_package and app.app_activity must be set")
	}
	if c.Crawler.WaitTimeoutSeconds <= 0 {
		return fmt.Errorf("crawler.wait_timeout_seconds must be > 0")
	}
	if c.Crawler.RetryThreshold <= 0 {
		return fmt.Errorf("crawler.retry_threshold must be > 0")
	}
	if c.Crawler.IterationPauseSeconds < 0 {
		return fmt.Errorf("crawler.iteration_pause_seconds must be >= 0")
	}
	if c.Crawler.MaxIterations < 0 {
		return fmt.Errorf("crawler.max_iterations must be >= 0")
	}
	if strings.TrimSpace(c.Sink.Path) == "" {
		return fmt.Errorf("sink.path must be set")
	}
	return nil
}

// AppiumClient converts the appium section into client settings.
func (c Config) AppiumClient() appium.Config {
	return appium.Config{
		ServerURL:    c.Appium.ServerURL,
		HTTPTimeout:  time.Duration(c.Appium.HTTPTimeoutSeconds) * time.Second,
		PollInterval: time.Duration(c.Appium.PollIntervalMs) * time.Millisecond,
		CommandRate:  c.Appium.CommandRate,
	}
}

// CrawlLoop converts the crawler and app sections into loop settings.
func (c Config) CrawlLoop() crawler.Config {
	cfg := crawler.DefaultConfig(crawler.AppInfo{
		Package:  c.App.AppPackage,
		Activity: c.App.AppActivity,
	})
	cfg.MarkerLocator = appium.XPath(c.Crawler.MarkerXPath)
	cfg.ConfirmLocator = appium.XPath(c.Crawler.ConfirmXPath)
	cfg.PageLocator = appium.XPath(c.Crawler.PageXPath)
	cfg.WaitTimeout = time.Duration(c.Crawler.WaitTimeoutSeconds) * time.Second
	cfg.RetryThreshold = c.Crawler.RetryThreshold
	cfg.ReleaseSessionEachIteration = c.Crawler.ReleaseSessionEachIteration
	cfg.IterationPause = time.Duration(c.Crawler.IterationPauseSeconds) * time.Second
	cfg.MaxIterations = c.Crawler.MaxIterations
	return cfg
}
