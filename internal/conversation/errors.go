package conversation

import (
	"errors"
	"fmt"
)

// Error kinds. Use errors.Is to classify an error returned by the Service.
var (
	// ErrInvalidRequest covers missing or contradictory input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound covers absent records and conversations the caller does not take part in.
	ErrNotFound = errors.New("not found")
	// ErrUnexpected wraps storage and infrastructure failures.
	ErrUnexpected = errors.New("unexpected error")
)

// Error carries a kind and the message shown to the caller.
type Error struct {
	Kind    error
	Message string
	Err     error // underlying cause, for diagnostics only
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func invalidRequest(msg string) error {
	return &Error{Kind: ErrInvalidRequest, Message: msg}
}

func notFound(msg string) error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

func unexpected(msg string, err error) error {
	return &Error{Kind: ErrUnexpected, Message: msg, Err: err}
}

// errConversationNotFound is shared by every participant check so that a foreign
// conversation looks exactly like a missing one.
func errConversationNotFound() error {
	return notFound("Conversation not found.")
}
