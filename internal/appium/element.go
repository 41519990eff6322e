package appium

import (
	"context"
	"net/http"
	"net/url"
)

// Element is a reference to an on-screen element. It may go stale as soon as
// the screen changes.
type Element struct {
	session *Session
	id      string
}

// ID returns the server-side element reference.
func (e *Element) ID() string {
	return e.id
}

func (e *Element) path(suffix string) string {
	return e.session.path("/element/" + url.PathEscape(e.id) + suffix)
}

// Attribute reads a named attribute such as "content-desc" or "class".
// A missing attribute is returned as the empty string.
func (e *Element) Attribute(ctx context.Context, name string) (string, error) {
	env, err := e.session.client.do(ctx, http.MethodGet, e.path("/attribute/"+url.PathEscape(name)), "getAttribute", nil)
	if err != nil {
		return "", err
	}
	return decodeString(env.Value, "getAttribute")
}

// Text returns the element's visible text.
func (e *Element) Text(ctx context.Context) (string, error) {
	env, err := e.session.client.do(ctx, http.MethodGet, e.path("/text"), "getText", nil)
	if err != nil {
		return "", err
	}
	return decodeString(env.Value, "getText")
}

// Click taps the element.
func (e *Element) Click(ctx context.Context) error {
	_, err := e.session.client.do(ctx, http.MethodPost, e.path("/click"), "click", map[string]any{})
	return err
}
