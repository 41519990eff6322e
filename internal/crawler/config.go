package crawler

import (
	"fmt"
	"strings"
	"time"

	"github.com/JakeFAU/station-crawler/internal/appium"
)

// Default locators and timings used by the station crawl.
const (
	DefaultMarkerXPath  = `//android.view.View[@content-desc="Map Marker"]`
	DefaultConfirmXPath = `//android.widget.Button[@content-desc='Details']`
	DefaultPageXPath    = `//android.view.View`
	DefaultWaitTimeout  = 10 * time.Second
)

// Config captures every knob that influences a crawl run. It is decoupled
// from Viper so the loop can be built directly in tests.
type Config struct {
	App            AppInfo
	MarkerLocator  appium.Locator
	ConfirmLocator appium.Locator
	PageLocator    appium.Locator
	// WaitTimeout bounds marker discovery and the detail-screen confirmation.
	WaitTimeout    time.Duration
	RetryThreshold int
	// ReleaseSessionEachIteration quits and reacquires the session after every
	// pass, resetting UI drift. When false the session is kept and only the
	// app is restarted at the start of the next pass.
	ReleaseSessionEachIteration bool
	IterationPause              time.Duration
	// MaxIterations stops Run after this many passes; zero runs forever.
	MaxIterations int
}

// DefaultConfig returns the settings the crawler was built around.
func DefaultConfig(app AppInfo) Config {
	return Config{
		App:                         app,
		MarkerLocator:               appium.XPath(DefaultMarkerXPath),
		ConfirmLocator:              appium.XPath(DefaultConfirmXPath),
		PageLocator:                 appium.XPath(DefaultPageXPath),
		WaitTimeout:                 DefaultWaitTimeout,
		RetryThreshold:              DefaultRetryThreshold,
		ReleaseSessionEachIteration: true,
	}
}

// Validate checks for obviously bad configuration combinations.
func (c Config) Validate() error {
	if strings.TrimSpace(c.App.Package) == "" {
		return fmt.Errorf("app package must be set")
	}
	if strings.TrimSpace(c.App.Activity) == "" {
		return fmt.Errorf("app activity must be set")
	}
	for name, loc := range map[string]appium.Locator{
		"marker":  c.MarkerLocator,
		"confirm": c.ConfirmLocator,
		"page":    c.PageLocator,
	} {
		if loc.Using == "" || loc.Value == "" {
			return fmt.Errorf("%s locator must be set", name)
		}
	}
	if c.WaitTimeout <= 0 {
		return fmt.Errorf("wait timeout must be > 0")
	}
	if c.RetryThreshold <= 0 {
		return fmt.Errorf("retry threshold must be > 0")
	}
	if c.IterationPause < 0 {
		return fmt.Errorf("iteration pause must be >= 0")
	}
	if c.MaxIterations < 0 {
		return fmt.Errorf("max iterations must be >= 0")
	}
	return nil
}
