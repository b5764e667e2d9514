// Package llm provides the internal representations of chat messages,
// completion requests and streamed fragments shared by the turn processor,
// the provider client and the user interfaces.
package llm

import (
	"errors"
	"fmt"
)

// ErrInvalidRole is returned when a message is built with an unknown role.
var ErrInvalidRole = errors.New("invalid message role")

// ErrorResponse represents an error returned over HTTP.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CompletionError wraps any failure from the provider call: authentication,
// rate limiting, network errors and malformed streams are all reported the same way.
type CompletionError struct {
	Model string
	Err   error
}

func (e *CompletionError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("completion failed: %v", e.Err)
	}
	return fmt.Sprintf("completion with %s failed: %v", e.Model, e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}
