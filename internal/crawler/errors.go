package crawler

import (
	"context"
	"errors"
	"fmt"

	"github.com/JakeFAU/station-crawler/internal/appium"
)

// ErrSessionActive is returned by Acquire when a session is already open.
var ErrSessionActive = errors.New("session already active")

// Kind is the closed set of failure classes the crawl loop reacts to.
type Kind int

// Failure kinds.
const (
	// KindTransient covers timeouts, missing elements and stale references.
	KindTransient Kind = iota
	// KindUnexpected is any other failure while visiting a marker or iteration.
	KindUnexpected
	// KindLifecycle is a failed app stop/start during a restart.
	KindLifecycle
	// KindUnrecoverable ends the crawl.
	KindUnrecoverable
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindUnexpected:
		return "unexpected"
	case KindLifecycle:
		return "lifecycle"
	case KindUnrecoverable:
		return "unrecoverable"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// LifecycleError reports a failed app stop or start.
type LifecycleError struct {
	Op  string
	Err error
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("app %s: %v", e.Op, e.Err)
}

func (e *LifecycleError) Unwrap() error { return e.Err }

// UnrecoverableError wraps a failure that stops Run, such as session acquisition.
type UnrecoverableError struct {
	Op  string
	Err error
}

func (e *UnrecoverableError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UnrecoverableError) Unwrap() error { return e.Err }

// Classify maps a backend or crawl error onto its Kind. A nil error is
// reported as KindUnexpected; callers only classify failures.
func Classify(err error) Kind {
	var (
		lifecycle     *LifecycleError
		unrecoverable *UnrecoverableError
	)
	switch {
	case err == nil:
		return KindUnexpected
	case errors.As(err, &unrecoverable):
		return KindUnrecoverable
	case errors.As(err, &lifecycle):
		return KindLifecycle
	case appium.IsTimeout(err), appium.IsNoSuchElement(err), appium.IsStaleElement(err):
		return KindTransient
	case errors.Is(err, context.DeadlineExceeded):
		return KindTransient
	default:
		return KindUnexpected
	}
}
