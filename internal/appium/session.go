package appium

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Session is a live WebDriver session on the Appium server.
type Session struct {
	client *Client
	id     string
}

// ID returns the server-assigned session id.
func (s *Session) ID() string {
	return s.id
}

func (s *Session) path(suffix string) string {
	return "/session/" + url.PathEscape(s.id) + suffix
}

// ExecuteScript runs an Appium "mobile:" extension or script synchronously.
func (s *Session) ExecuteScript(ctx context.Context, script string, args ...any) (json.RawMessage, error) {
	if args == nil {
		args = []any{}
	}
	body := map[string]any{"script": script, "args": args}
	env, err := s.client.do(ctx, http.MethodPost, s.path("/execute/sync"), "executeScript", body)
	if err != nil {
		return nil, err
	}
	return env.Value, nil
}

// Shell runs an adb shell command on the device through `mobile: shell`.
func (s *Session) Shell(ctx context.Context, command string, args ...string) error {
	if args == nil {
		args = []string{}
	}
	_, err := s.ExecuteScript(ctx, "mobile: shell", map[string]any{
		"command": command,
		"args":    args,
	})
	return err
}

// FindElements returns every element matching loc, in document order.
// No match is an empty slice, not an error.
func (s *Session) FindElements(ctx context.Context, loc Locator) ([]*Element, error) {
	body := map[string]string{"using": loc.Using, "value": loc.Value}
	env, err := s.client.do(ctx, http.MethodPost, s.path("/elements"), "findElements", body)
	if err != nil {
		return nil, err
	}
	var refs []map[string]string
	if err := json.Unmarshal(env.Value, &refs); err != nil {
		return nil, fmt.Errorf("decode findElements value: %w", err)
	}
	out := make([]*Element, 0, len(refs))
	for _, ref := range refs {
		id := ref[w3cElementKey]
		if id == "" {
			id = ref["ELEMENT"]
		}
		if id == "" {
			continue
		}
		out = append(out, &Element{session: s, id: id})
	}
	return out, nil
}

// WaitForElements polls until at least one element matches loc or timeout
// elapses. Expiry is reported as ErrTimeout.
func (s *Session) WaitForElements(ctx context.Context, loc Locator, timeout time.Duration) ([]*Element, error) {
	deadline := time.Now().Add(timeout)
	for {
		els, err := s.FindElements(ctx, loc)
		switch {
		case err == nil && len(els) > 0:
			return els, nil
		case err != nil && !IsNoSuchElement(err):
			return nil, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, &Error{
				Code:    CodeTimeout,
				Message: fmt.Sprintf("no element matched %s within %s", loc, timeout),
				Command: "wait",
			}
		}
		timer := time.NewTimer(min(s.client.cfg.PollInterval, remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("wait for %s: %w", loc, ctx.Err())
		case <-timer.C:
		}
	}
}

// CurrentActivity returns the Android activity currently in the foreground.
func (s *Session) CurrentActivity(ctx context.Context) (string, error) {
	env, err := s.client.do(ctx, http.MethodGet, s.path("/appium/device/current_activity"), "currentActivity", nil)
	if err != nil {
		return "", err
	}
	return decodeString(env.Value, "currentActivity")
}

// Back presses the system back button.
func (s *Session) Back(ctx context.Context) error {
	_, err := s.client.do(ctx, http.MethodPost, s.path("/back"), "back", map[string]any{})
	return err
}

// Quit deletes the session on the server.
func (s *Session) Quit(ctx context.Context) error {
	_, err := s.client.do(ctx, http.MethodDelete, s.path(""), "deleteSession", nil)
	return err
}

func decodeString(raw json.RawMessage, command string) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var out string
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode %s value: %w", command, err)
	}
	return out, nil
}
