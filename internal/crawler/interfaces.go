package crawler

import (
	"context"
	"time"

	"github.com/JakeFAU/station-crawler/internal/appium"
)

// Driver opens automation sessions bound to a fixed capability set.
type Driver interface {
	Open(ctx context.Context) (Session, error)
}

// Session is a live automation session against the device.
type Session interface {
	Shell(ctx context.Context, command string, args ...string) error
	FindElements(ctx context.Context, loc appium.Locator) ([]Element, error)
	WaitForElements(ctx context.Context, loc appium.Locator, timeout time.Duration) ([]Element, error)
	CurrentActivity(ctx context.Context) (string, error)
	Back(ctx context.Context) error
	Quit(ctx context.Context) error
}

// Element is an on-screen element reference. It may go stale.
type Element interface {
	Attribute(ctx context.Context, name string) (string, error)
	Text(ctx context.Context) (string, error)
	Click(ctx context.Context) error
}

// RecordWriter appends one durable line per call.
type RecordWriter interface {
	Write(line string) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
