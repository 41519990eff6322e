package crawler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/station-crawler/internal/telemetry"
)

const defaultQuitTimeout = 30 * time.Second

// Restart reasons reported to metrics and logs.
const (
	RestartSessionInit = "session_init"
	RestartRetryBudget = "retry_budget"
)

// AppInfo identifies the app a session drives.
type AppInfo struct {
	Package  string
	Activity string
}

// SessionManager owns the single automation session. It is not safe for
// concurrent use; the crawl loop is its only caller.
type SessionManager struct {
	driver      Driver
	app         AppInfo
	session     Session
	quitTimeout time.Duration
	logger      *zap.Logger
}

// NewSessionManager builds a manager with no active session.
func NewSessionManager(driver Driver, app AppInfo, logger *zap.Logger) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{
		driver:      driver,
		app:         app,
		quitTimeout: defaultQuitTimeout,
		logger:      logger,
	}
}

// Active reports whether a session is open.
func (m *SessionManager) Active() bool {
	return m.session != nil
}

// Current returns the open session, or nil.
func (m *SessionManager) Current() Session {
	return m.session
}

// Acquire opens a new session. It fails with ErrSessionActive when one is already open.
func (m *SessionManager) Acquire(ctx context.Context) (Session, error) {
	if m.session != nil {
		return nil, ErrSessionActive
	}
	sess, err := m.driver.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	m.session = sess
	m.logger.Info("session acquired", zap.String("app", m.app.Package))
	return sess, nil
}

// Restart force-stops and relaunches the app. Each step is attempted
// regardless of the other's outcome and failures are only logged.
func (m *SessionManager) Restart(ctx context.Context, reason string) {
	if m.session == nil {
		m.logger.Debug("restart skipped, no active session", zap.String("reason", reason))
		return
	}
	m.logger.Info("restarting app", zap.String("reason", reason), zap.String("app", m.app.Package))
	telemetry.ObserveSessionRestart(reason)

	if err := m.session.Shell(ctx, "am", "force-stop", m.app.Package); err != nil {
		m.logger.Error("failed to stop app", zap.Error(&LifecycleError{Op: "stop", Err: err}))
	}
	component := m.app.Package + "/" + m.app.Activity
	if err := m.session.Shell(ctx, "am", "start", "-n", component); err != nil {
		m.logger.Error("failed to start app", zap.Error(&LifecycleError{Op: "start", Err: err}))
	}
}

// Release quits the session and forgets it, even when quitting fails or ctx
// is already canceled.
func (m *SessionManager) Release(ctx context.Context) {
	if m.session == nil {
		return
	}
	sess := m.session
	m.session = nil

	quitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.quitTimeout)
	defer cancel()
	if err := sess.Quit(quitCtx); err != nil {
		m.logger.Warn("session quit failed", zap.Error(err))
		return
	}
	m.logger.Info("session released")
}
