package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/JakeFAU/station-crawler/internal/appium"
)

var (
	errTimeout = &appium.Error{Code: appium.CodeTimeout, Message: "wait expired"}
	errStale   = &appium.Error{Code: appium.CodeStaleElement, Message: "element is not attached"}
	errMissing = &appium.Error{Code: appium.CodeNoSuchElement, Message: "not found"}
)

// eventLog records backend interactions in order across session and elements.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (e *eventLog) add(format string, args ...any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, fmt.Sprintf(format, args...))
}

func (e *eventLog) all() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.events...)
}

func (e *eventLog) count(prefix string) int {
	n := 0
	for _, ev := range e.all() {
		if strings.HasPrefix(ev, prefix) {
			n++
		}
	}
	return n
}

func (e *eventLog) index(event string) int {
	for i, ev := range e.all() {
		if ev == event {
			return i
		}
	}
	return -1
}

type fakeElement struct {
	log      *eventLog
	name     string
	desc     string
	text     string
	class    string
	attrErr  error
	textErr  error
	clickErr error
}

func (f *fakeElement) Attribute(_ context.Context, name string) (string, error) {
	if f.attrErr != nil {
		return "", f.attrErr
	}
	if name == "class" {
		return f.class, nil
	}
	return f.desc, nil
}

func (f *fakeElement) Text(context.Context) (string, error) {
	if f.textErr != nil {
		return "", f.textErr
	}
	return f.text, nil
}

func (f *fakeElement) Click(context.Context) error {
	if f.log != nil {
		f.log.add("click:%s", f.name)
	}
	return f.clickErr
}

type fakeSession struct {
	log          *eventLog
	cfg          Config
	markers      []Element
	discoverErr  error
	confirmErr   func(call int) error
	confirmCalls int
	page         []Element
	pageErr      error
	activity     string
	activityErr  error
	shellErrs    map[string]error
	backErr      error
	quitErr      error
	quitCtxErr   error
}

func (s *fakeSession) Shell(_ context.Context, command string, args ...string) error {
	s.log.add("shell:%s %s", command, strings.Join(args, " "))
	if len(args) > 0 {
		return s.shellErrs[args[0]]
	}
	return nil
}

func (s *fakeSession) FindElements(_ context.Context, loc appium.Locator) ([]Element, error) {
	s.log.add("find:%s", loc.Value)
	if s.pageErr != nil {
		return nil, s.pageErr
	}
	return s.page, nil
}

func (s *fakeSession) WaitForElements(_ context.Context, loc appium.Locator, _ time.Duration) ([]Element, error) {
	switch loc {
	case s.cfg.MarkerLocator:
		s.log.add("discover")
		if s.discoverErr != nil {
			return nil, s.discoverErr
		}
		return s.markers, nil
	case s.cfg.ConfirmLocator:
		s.confirmCalls++
		s.log.add("confirm")
		if s.confirmErr != nil {
			if err := s.confirmErr(s.confirmCalls); err != nil {
				return nil, err
			}
		}
		return []Element{&fakeElement{desc: "Details"}}, nil
	default:
		return nil, fmt.Errorf("unexpected locator %s", loc)
	}
}

func (s *fakeSession) CurrentActivity(context.Context) (string, error) {
	return s.activity, s.activityErr
}

func (s *fakeSession) Back(context.Context) error {
	s.log.add("back")
	return s.backErr
}

func (s *fakeSession) Quit(ctx context.Context) error {
	s.log.add("quit")
	s.quitCtxErr = ctx.Err()
	return s.quitErr
}

type fakeDriver struct {
	log      *eventLog
	sessions []*fakeSession
	opened   int
	openErr  error
}

func (d *fakeDriver) Open(context.Context) (Session, error) {
	d.log.add("open")
	if d.openErr != nil {
		return nil, d.openErr
	}
	if len(d.sessions) == 0 {
		return nil, errors.New("no fake sessions left")
	}
	idx := d.opened
	if idx >= len(d.sessions) {
		idx = len(d.sessions) - 1
	}
	d.opened++
	return d.sessions[idx], nil
}

type memoryRecords struct {
	lines  []string
	failOn string
}

func (m *memoryRecords) Write(line string) error {
	if m.failOn != "" && strings.HasPrefix(line, m.failOn) {
		return errors.New("disk full")
	}
	m.lines = append(m.lines, line)
	return nil
}

func (m *memoryRecords) count(line string) int {
	n := 0
	for _, l := range m.lines {
		if l == line {
			n++
		}
	}
	return n
}

func (m *memoryRecords) countPrefix(prefix string) int {
	n := 0
	for _, l := range m.lines {
		if strings.HasPrefix(l, prefix) {
			n++
		}
	}
	return n
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func testApp() AppInfo {
	return AppInfo{Package: "com.namp.zeon", Activity: "com.namp.zeon.MainActivity"}
}

func testConfig() Config {
	cfg := DefaultConfig(testApp())
	cfg.MaxIterations = 1
	return cfg
}

func newMarkers(log *eventLog, n int) []Element {
	out := make([]Element, n)
	for i := range out {
		out[i] = &fakeElement{
			log:   log,
			name:  fmt.Sprintf("%d", i+1),
			desc:  "Map Marker",
			text:  fmt.Sprintf("station %d", i+1),
			class: "android.view.View",
		}
	}
	return out
}
