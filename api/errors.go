package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNotFound is matched (errors.Is) by 404 responses.
	ErrNotFound = errors.New("api: not found")
	// ErrUnauthorized is matched by 401 responses.
	ErrUnauthorized = errors.New("api: unauthorized")
)

// Error is a backend error response. ErrText and Msg hold the server's
// `error` and `message` body fields when present.
type Error struct {
	Status  int
	ErrText string
	Msg     string
}

func newError(status int, body []byte) *Error {
	e := &Error{Status: status}
	var payload struct {
		Error   json.RawMessage `json:"error"`
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		e.ErrText = rawText(payload.Error)
		e.Msg = rawText(payload.Message)
	}
	return e
}

// rawText flattens a string or string-array JSON value; other shapes yield "".
func rawText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.TrimSpace(strings.Join(list, "، "))
	}
	return ""
}

func (e *Error) Error() string {
	if msg := e.ServerMessage(); msg != "" {
		return fmt.Sprintf("api: %d %s: %s", e.Status, http.StatusText(e.Status), msg)
	}
	return fmt.Sprintf("api: %d %s", e.Status, http.StatusText(e.Status))
}

// ServerMessage returns the server `error` field, falling back to `message`.
func (e *Error) ServerMessage() string {
	if e.ErrText != "" {
		return e.ErrText
	}
	return e.Msg
}

// Is lets errors.Is match ErrNotFound and ErrUnauthorized by status.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	}
	return false
}

// Message resolves the user-facing text for err: server `error`, then
// server `message`, then fallback.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if msg := apiErr.ServerMessage(); msg != "" {
			return msg
		}
	}
	return fallback
}
