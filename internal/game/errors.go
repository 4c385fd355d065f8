package game

import "errors"

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindAuth
	KindValidation
	KindNotFound
)

// Error carries the kind the gateway needs to pick between replying and
// terminating the connection.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func NewAuthError(msg string) *Error {
	return &Error{Kind: KindAuth, Message: msg}
}

func NewValidationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func NewNotFoundError(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func NewInternalError(msg string) *Error {
	return &Error{Kind: KindInternal, Message: msg}
}

// KindOf classifies any error; unrecognized errors count as internal.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
