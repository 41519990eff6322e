package crawler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/station-crawler/internal/telemetry"
)

// Loop is the crawl state machine. All crawl state lives here: the session
// manager, the retry governor and the iteration counter.
//
//	SessionInit -> DiscoverMarkers -> ProcessMarker* -> IterationDone -> SessionInit ...
type Loop struct {
	cfg       Config
	sessions  *SessionManager
	governor  *RetryGovernor
	scraper   *PageScraper
	rec       *recorder
	clock     Clock
	logger    *zap.Logger
	iteration int
}

// NewLoop wires a Loop. records receives every data line; clock stamps marker visits.
func NewLoop(cfg Config, driver Driver, records RecordWriter, clock Clock, logger *zap.Logger) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid crawler config: %w", err)
	}
	if driver == nil {
		return nil, fmt.Errorf("driver is required")
	}
	if records == nil {
		return nil, fmt.Errorf("record writer is required")
	}
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		cfg:      cfg,
		sessions: NewSessionManager(driver, cfg.App, logger.Named("session")),
		governor: NewRetryGovernor(cfg.RetryThreshold),
		scraper:  NewPageScraper(cfg.PageLocator, records, logger.Named("scraper")),
		rec:      &recorder{w: records, logger: logger},
		clock:    clock,
		logger:   logger,
	}, nil
}

// Iteration returns the number of completed passes.
func (l *Loop) Iteration() int {
	return l.iteration
}

// RetryCount returns the retry governor's current count.
func (l *Loop) RetryCount() int {
	return l.governor.Count()
}

// Run crawls until ctx is canceled, MaxIterations passes have been attempted,
// or a session cannot be acquired. The session is always released before
// Run returns. Cancellation is not an error.
func (l *Loop) Run(ctx context.Context) error {
	defer l.sessions.Release(ctx)

	for passes := 0; ; passes++ {
		if ctx.Err() != nil {
			l.logger.Info("crawl stopped", zap.Int("iterations", l.iteration))
			return nil
		}
		if l.cfg.MaxIterations > 0 && passes >= l.cfg.MaxIterations {
			l.logger.Info("iteration limit reached", zap.Int("iterations", l.iteration))
			return nil
		}

		if err := l.initSession(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		l.runIteration(ctx)
		l.finishIteration(ctx)

		if err := l.pause(ctx); err != nil {
			return nil
		}
	}
}

func (l *Loop) initSession(ctx context.Context) error {
	if !l.sessions.Active() {
		if _, err := l.sessions.Acquire(ctx); err != nil {
			return &UnrecoverableError{Op: "acquire session", Err: err}
		}
	}
	l.sessions.Restart(ctx, RestartSessionInit)
	return nil
}

func (l *Loop) runIteration(ctx context.Context) {
	err := l.iterate(ctx)
	if err == nil || ctx.Err() != nil {
		return
	}
	l.logger.Error("unexpected error",
		zap.Int("iteration", l.iteration),
		zap.Stringer("kind", Classify(err)),
		zap.Error(err),
	)
	l.recordFailure(ctx)
}

func (l *Loop) iterate(ctx context.Context) error {
	if err := l.rec.emit(IterationRecord(l.iteration)); err != nil {
		return err
	}
	if err := l.rec.emit(SessionReadyRecord); err != nil {
		return err
	}

	sess := l.sessions.Current()
	markers, err := l.discover(ctx, sess)
	if err != nil {
		return err
	}
	for i, marker := range markers {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.processMarker(ctx, sess, i, marker)
	}

	l.iteration++
	telemetry.ObserveIteration()
	l.logger.Info("iteration complete", zap.Int("iteration", l.iteration), zap.Int("markers", len(markers)))
	return nil
}

func (l *Loop) discover(ctx context.Context, sess Session) ([]Element, error) {
	l.logger.Info("finding all charging station markers", zap.Int("iteration", l.iteration))
	markers, err := sess.WaitForElements(ctx, l.cfg.MarkerLocator, l.cfg.WaitTimeout)
	if err != nil {
		if ctx.Err() == nil && Classify(err) == KindTransient {
			l.logger.Error("timeout while waiting for station markers", zap.Error(err))
			return nil, nil
		}
		return nil, fmt.Errorf("discover markers: %w", err)
	}
	return markers, nil
}

// processMarker visits one marker from the list captured at discovery time.
// The delimiter is written whatever the outcome.
func (l *Loop) processMarker(ctx context.Context, sess Session, i int, marker Element) {
	index := i + 1
	logger := l.logger.With(zap.Int("iteration", l.iteration), zap.Int("marker", index))
	defer l.rec.emitOrLog(Delimiter)

	if l.governor.ShouldRestart() {
		l.restartForBudget(ctx)
	}

	err := l.visit(ctx, sess, index, marker)
	switch {
	case err == nil:
		telemetry.ObserveMarker(telemetry.OutcomeSuccess)
		return
	case ctx.Err() != nil:
		return
	}

	if Classify(err) == KindTransient {
		logger.Warn("transient failure, skipping marker", zap.Error(err))
		telemetry.ObserveMarker(telemetry.OutcomeTransient)
	} else {
		l.rec.emitOrLog(ErrorRecord(index, err))
		logger.Error("error processing station marker", zap.Error(err))
		telemetry.ObserveMarker(telemetry.OutcomeUnexpected)
	}
	l.recordFailure(ctx)
}

func (l *Loop) visit(ctx context.Context, sess Session, index int, marker Element) error {
	if err := l.rec.emit(TimestampRecord(l.clock.Now())); err != nil {
		return err
	}

	// Read the marker before clicking; the click may invalidate the reference.
	desc, err := marker.Attribute(ctx, "content-desc")
	if err != nil {
		return fmt.Errorf("read marker content-desc: %w", err)
	}
	text, err := marker.Text(ctx)
	if err != nil {
		return fmt.Errorf("read marker text: %w", err)
	}
	class, err := marker.Attribute(ctx, "class")
	if err != nil {
		return fmt.Errorf("read marker class: %w", err)
	}
	if err := l.rec.emit(StationRecord(index, desc, text)); err != nil {
		return err
	}
	if err := l.rec.emit(StationTypeRecord(class)); err != nil {
		return err
	}

	l.logger.Info("clicking on station marker", zap.Int("marker", index))
	if err := marker.Click(ctx); err != nil {
		return fmt.Errorf("click marker: %w", err)
	}
	if _, err := sess.WaitForElements(ctx, l.cfg.ConfirmLocator, l.cfg.WaitTimeout); err != nil {
		return fmt.Errorf("wait for detail screen: %w", err)
	}
	if _, err := l.scraper.Scrape(ctx, sess); err != nil {
		return err
	}

	activity, err := sess.CurrentActivity(ctx)
	if err != nil {
		return fmt.Errorf("current activity: %w", err)
	}
	if !l.isMainActivity(activity) {
		if err := sess.Back(ctx); err != nil {
			return fmt.Errorf("navigate back: %w", err)
		}
	}
	return nil
}

// isMainActivity accepts both the fully qualified activity and the
// package-relative ".Name" form Appium usually reports.
func (l *Loop) isMainActivity(activity string) bool {
	mainActivity := l.cfg.App.Activity
	if activity == mainActivity {
		return true
	}
	return strings.HasPrefix(activity, ".") && mainActivity == l.cfg.App.Package+activity
}

// recordFailure charges the retry budget and restarts the app as soon as it
// is exhausted, so the counter never rests at the threshold.
func (l *Loop) recordFailure(ctx context.Context) {
	l.governor.RecordFailure()
	if l.governor.ShouldRestart() {
		l.restartForBudget(ctx)
	}
}

func (l *Loop) restartForBudget(ctx context.Context) {
	l.logger.Warn("retry budget exhausted",
		zap.Int("failures", l.governor.Count()),
		zap.Int("threshold", l.governor.Threshold()),
	)
	l.sessions.Restart(ctx, RestartRetryBudget)
	l.governor.Reset()
}

func (l *Loop) finishIteration(ctx context.Context) {
	if !l.cfg.ReleaseSessionEachIteration {
		return
	}
	l.logger.Info("restarting the driver")
	l.sessions.Release(ctx)
}

func (l *Loop) pause(ctx context.Context) error {
	if l.cfg.IterationPause <= 0 {
		return nil
	}
	timer := time.NewTimer(l.cfg.IterationPause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
