package apiclient

import (
	"errors"
	"fmt"
)

// Kind classifies client failures
type Kind int

const (
	KindNetwork Kind = iota + 1
	KindServer
	KindContractViolation
	KindValidation
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network error"
	case KindServer:
		return "server error"
	case KindContractViolation:
		return "contract violation"
	case KindValidation:
		return "validation error"
	case KindUnauthorized:
		return "unauthorized"
	}
	return "unknown error"
}

// Sentinels for errors.Is
var (
	ErrNetwork           = errors.New("network error")
	ErrServer            = errors.New("server error")
	ErrContractViolation = errors.New("contract violation")
	ErrValidation        = errors.New("validation error")
	ErrUnauthorized      = errors.New("unauthorized")
)

// DefaultMessage used when the server gives nothing better
const DefaultMessage = "request failed"

// Error normalized failure of a remote operation
type Error struct {
	Kind    Kind
	Op      string // contract alias
	Status  int    // HTTP status, 0 when no response was received
	Message string // human readable; empty for KindUnauthorized
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil && e.Kind != KindServer {
		return fmt.Sprintf("%s: %s: %v", e.Op, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrServer:
		return e.Kind == KindServer
	case ErrContractViolation:
		return e.Kind == KindContractViolation
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrUnauthorized:
		return e.Kind == KindUnauthorized
	}
	return false
}

// UserMessage message safe to show to a person. Session expiry yields "".
func UserMessage(err error) string {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		if err == nil {
			return ""
		}
		return DefaultMessage
	}
	switch apiErr.Kind {
	case KindUnauthorized:
		return ""
	case KindNetwork:
		return "network unavailable, please try again"
	case KindContractViolation:
		return DefaultMessage
	}
	if apiErr.Message == "" {
		return DefaultMessage
	}
	return apiErr.Message
}
