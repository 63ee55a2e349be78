package prizepool

import "fmt"

// Kind classifies a prize pool error.
type Kind string

// Error kinds.
const (
	KindValidation     Kind = "validation"
	KindBudgetExceeded Kind = "budget_exceeded"
	KindNotFound       Kind = "not_found"
	KindInvalidRange   Kind = "invalid_range"
)

// Error is returned by every prize pool operation that rejects its input.
// Field names the offending input field when there is one.
type Error struct {
	Kind    Kind
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Is matches any *Error of the same kind, so callers can write
// errors.Is(err, prizepool.ErrBudgetExceeded).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrValidation     = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrBudgetExceeded = &Error{Kind: KindBudgetExceeded, Message: "probability budget exceeded"}
	ErrNotFound       = &Error{Kind: KindNotFound, Message: "not found"}
	ErrInvalidRange   = &Error{Kind: KindInvalidRange, Message: "index out of range"}
)

func validationError(field, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an unknown reward id.
func NotFoundError(id int64) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("reward %d not found", id)}
}
