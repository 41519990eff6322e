// Package appium is a small client for the Appium server's W3C WebDriver HTTP
// protocol, covering the commands the station crawler drives a device with.
package appium

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/JakeFAU/station-crawler/internal/telemetry"
)

// w3cElementKey is the JSON key WebDriver uses for element references.
const w3cElementKey = "element-6066-11e4-a52e-4f735466cecf"

const (
	defaultHTTPTimeout  = 60 * time.Second
	defaultPollInterval = 500 * time.Millisecond
)

// Config controls how the client talks to the Appium server.
type Config struct {
	// ServerURL is the WebDriver endpoint, e.g. http://127.0.0.1:4723/wd/hub.
	ServerURL string
	// HTTPTimeout bounds a single round trip.
	HTTPTimeout time.Duration
	// PollInterval is how often bounded waits re-query the screen.
	PollInterval time.Duration
	// CommandRate caps commands per second sent to the device; zero disables the cap.
	CommandRate float64
}

// Client issues WebDriver commands against one Appium server.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	cfg     Config
	logger  *zap.Logger
}

// NewClient builds a Client for cfg.ServerURL.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.ServerURL) == "" {
		return nil, fmt.Errorf("appium server url is required")
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = defaultHTTPTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.ServerURL, "/"))
	client.SetTimeout(cfg.HTTPTimeout)
	client.SetHeader("Accept", "application/json")
	client.SetHeader("Content-Type", "application/json; charset=utf-8")

	limit := rate.Inf
	if cfg.CommandRate > 0 {
		limit = rate.Limit(cfg.CommandRate)
	}

	return &Client{http: client, limiter: rate.NewLimiter(limit, 1), cfg: cfg, logger: logger}, nil
}

type envelope struct {
	SessionID string          `json:"sessionId"`
	Value     json.RawMessage `json:"value"`
}

type errorValue struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// NewSession opens a WebDriver session bound to caps.
func (c *Client) NewSession(ctx context.Context, caps Capabilities) (*Session, error) {
	body := map[string]any{
		"capabilities": map[string]any{
			"alwaysMatch": caps.W3C(),
			"firstMatch":  []map[string]any{{}},
		},
	}
	env, err := c.do(ctx, http.MethodPost, "/session", "newSession", body)
	if err != nil {
		return nil, err
	}
	var created struct {
		SessionID string `json:"sessionId"`
	}
	if len(env.Value) > 0 {
		if err := json.Unmarshal(env.Value, &created); err != nil {
			return nil, fmt.Errorf("decode newSession value: %w", err)
		}
	}
	id := created.SessionID
	if id == "" {
		id = env.SessionID
	}
	if id == "" {
		return nil, fmt.Errorf("appium newSession: response carried no session id")
	}
	c.logger.Info("appium session created",
		zap.String("session_id", id),
		zap.String("device", caps.DeviceName),
		zap.String("app", caps.Component()),
	)
	return &Session{client: c, id: id}, nil
}

func (c *Client) do(ctx context.Context, method, path, command string, body any) (env envelope, err error) {
	if werr := c.limiter.Wait(ctx); werr != nil {
		return envelope{}, fmt.Errorf("appium %s: %w", command, werr)
	}
	start := time.Now()
	defer func() {
		telemetry.ObserveAppiumRequest(command, time.Since(start), err)
	}()

	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	res, err := req.Execute(method, path)
	if err != nil {
		return envelope{}, fmt.Errorf("appium %s: %w", command, err)
	}
	c.logger.Debug("appium command",
		zap.String("command", command),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", res.StatusCode()),
		zap.Duration("elapsed", time.Since(start)),
	)

	raw := res.Body()
	if len(raw) > 0 {
		if uerr := json.Unmarshal(raw, &env); uerr != nil {
			if res.IsError() {
				return envelope{}, &Error{
					Code:    CodeUnknownError,
					Message: strings.TrimSpace(string(raw)),
					Status:  res.StatusCode(),
					Command: command,
				}
			}
			return envelope{}, fmt.Errorf("decode %s response: %w", command, uerr)
		}
	}
	if res.IsError() {
		return envelope{}, decodeError(env.Value, res.StatusCode(), command)
	}
	return env, nil
}

func decodeError(value json.RawMessage, status int, command string) error {
	var ev errorValue
	if len(value) > 0 {
		_ = json.Unmarshal(value, &ev) //nolint:errcheck // fall back to unknown error below
	}
	if ev.Error == "" {
		ev.Error = CodeUnknownError
	}
	return &Error{Code: ev.Error, Message: ev.Message, Status: status, Command: command}
}
