package backend

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	// KindRejected means the backend answered with success=false.
	KindRejected ErrorKind = iota + 1
	// KindTransport covers no response, non-2xx status and undecodable bodies.
	KindTransport
)

type Error struct {
	Kind    ErrorKind
	Action  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindRejected && e.Message != "":
		return fmt.Sprintf("%s rejected: %s", e.Action, e.Message)
	case e.Kind == KindRejected:
		return fmt.Sprintf("%s rejected", e.Action)
	case e.Err != nil:
		return fmt.Sprintf("%s transport error: %v", e.Action, e.Err)
	}
	return fmt.Sprintf("%s transport error", e.Action)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransport reports whether err means the backend could not be reached or understood.
func IsTransport(err error) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind == KindTransport
	}
	return err != nil
}

// MessageOr returns the server-supplied rejection message, or fallback when there is none.
func MessageOr(err error, fallback string) string {
	var be *Error
	if errors.As(err, &be) && be.Kind == KindRejected && be.Message != "" {
		return be.Message
	}
	return fallback
}
