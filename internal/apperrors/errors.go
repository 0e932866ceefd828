package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so callers can decide how to surface it.
type Kind string

const (
	KindDecode            Kind = "DECODE_ERROR"
	KindEncode            Kind = "ENCODE_ERROR"
	KindUnsupportedFormat Kind = "UNSUPPORTED_FORMAT"
	KindExternalEngine    Kind = "EXTERNAL_ENGINE_ERROR"
	KindNetwork           Kind = "NETWORK_ERROR"
	KindValidation        Kind = "VALIDATION_ERROR"
	KindNotFound          Kind = "NOT_FOUND"
	KindConflict          Kind = "CONFLICT"
	KindInternal          Kind = "INTERNAL_ERROR"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, code, message string, err error) *Error {
	if code == "" {
		code = string(kind)
	}
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

func Decode(message string, err error) *Error {
	return New(KindDecode, "", message, err)
}

func Encode(message string, err error) *Error {
	return New(KindEncode, "", message, err)
}

func UnsupportedFormat(message string) *Error {
	return New(KindUnsupportedFormat, "", message, nil)
}

func ExternalEngine(engine string, err error) *Error {
	return New(KindExternalEngine, "", engine+" failed", err)
}

func Network(message string, err error) *Error {
	return New(KindNetwork, "", message, err)
}

func Validation(message string) *Error {
	return New(KindValidation, "", message, nil)
}

func NotFound(message string) *Error {
	return New(KindNotFound, "", message, nil)
}

func Conflict(message string) *Error {
	return New(KindConflict, "", message, nil)
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the user-facing message for err. Errors outside the
// taxonomy get a generic message so internal details are not leaked.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Internal server error"
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case KindDecode, KindValidation:
		return http.StatusBadRequest
	case KindUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindNetwork:
		return http.StatusBadGateway
	case KindExternalEngine:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
