package crawler

import (
	"context"
	"time"

	"github.com/JakeFAU/station-crawler/internal/appium"
)

// AppiumDriver opens sessions on an Appium server.
type AppiumDriver struct {
	client *appium.Client
	caps   appium.Capabilities
}

// NewAppiumDriver binds client to a fixed capability set.
func NewAppiumDriver(client *appium.Client, caps appium.Capabilities) *AppiumDriver {
	return &AppiumDriver{client: client, caps: caps}
}

// Open creates a new session.
func (d *AppiumDriver) Open(ctx context.Context) (Session, error) {
	sess, err := d.client.NewSession(ctx, d.caps)
	if err != nil {
		return nil, err
	}
	return &appiumSession{sess: sess}, nil
}

type appiumSession struct {
	sess *appium.Session
}

func (s *appiumSession) Shell(ctx context.Context, command string, args ...string) error {
	return s.sess.Shell(ctx, command, args...)
}

func (s *appiumSession) FindElements(ctx context.Context, loc appium.Locator) ([]Element, error) {
	els, err := s.sess.FindElements(ctx, loc)
	if err != nil {
		return nil, err
	}
	return toElements(els), nil
}

func (s *appiumSession) WaitForElements(ctx context.Context, loc appium.Locator, timeout time.Duration) ([]Element, error) {
	els, err := s.sess.WaitForElements(ctx, loc, timeout)
	if err != nil {
		return nil, err
	}
	return toElements(els), nil
}

func (s *appiumSession) CurrentActivity(ctx context.Context) (string, error) {
	return s.sess.CurrentActivity(ctx)
}

func (s *appiumSession) Back(ctx context.Context) error {
	return s.sess.Back(ctx)
}

func (s *appiumSession) Quit(ctx context.Context) error {
	return s.sess.Quit(ctx)
}

func toElements(els []*appium.Element) []Element {
	out := make([]Element, len(els))
	for i, el := range els {
		out[i] = el
	}
	return out
}
