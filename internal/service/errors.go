package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("validation failed")
	ErrRegistration = errors.New("registration failed")
	ErrNotFound     = errors.New("not found")
)

// Error carries client-facing messages for one of the sentinel kinds above.
// errors.Is(err, ErrValidation) matches an *Error whose Kind is ErrValidation.
type Error struct {
	Kind     error
	Messages []string
}

func newError(kind error, messages ...string) *Error {
	return &Error{Kind: kind, Messages: messages}
}

func (e *Error) Error() string {
	if len(e.Messages) == 0 {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + strings.Join(e.Messages, "; ")
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Messages returns the client-facing messages of err. Errors that are not an
// *Error yield their kind's text, or nil when err is uncategorized.
func Messages(err error) []string {
	var e *Error
	if errors.As(err, &e) && len(e.Messages) > 0 {
		return append([]string(nil), e.Messages...)
	}
	for _, kind := range []error{ErrInvalidInput, ErrUnauthorized, ErrValidation, ErrRegistration, ErrNotFound} {
		if errors.Is(err, kind) {
			return []string{err.Error()}
		}
	}
	return nil
}

// fromValidation turns ozzo field errors into one ValidationError message per
// field, sorted by field name. Internal rule failures pass through unchanged.
func fromValidation(err error) error {
	if err == nil {
		return nil
	}
	var fields validation.Errors
	if !errors.As(err, &fields) {
		var internal validation.InternalError
		if errors.As(err, &internal) {
			return err
		}
		return newError(ErrValidation, err.Error())
	}

	keys := make([]string, 0, len(fields))
	for key, fieldErr := range fields {
		if fieldErr != nil {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	messages := make([]string, 0, len(keys))
	for _, key := range keys {
		messages = append(messages, fmt.Sprintf("%s: %s", key, fields[key].Error()))
	}
	return newError(ErrValidation, messages...)
}

func notFound(format string, args ...any) *Error {
	return newError(ErrNotFound, fmt.Sprintf(format, args...))
}
