package errors

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// Kind categorizes an error for the tool-call contract. Every error that
// crosses the tool boundary carries exactly one Kind.
type Kind string

const (
	KindParse              Kind = "parse_error"
	KindUnsupportedVersion Kind = "unsupported_version"
	KindNotFound           Kind = "not_found"
	KindThrottle           Kind = "throttle"
	KindPermission         Kind = "permission"
	KindValidation         Kind = "validation"
	KindInternal           Kind = "internal"
)

// Error is a structured error with a stable kind and an optional source
// (state document path, collaborator name) for context.
type Error struct {
	Kind    Kind
	Message string
	Source  string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Source != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Source)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a structured error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a structured error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithSource records where the error originated.
func (e *Error) WithSource(source string) *Error {
	e.Source = source
	return e
}

// KindOf extracts the kind from an error chain. Unclassified errors are
// KindInternal so callers never see an unstructured failure.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindInternal
}

// IsKind reports whether the error chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsThrottle reports whether the error is a transient rate-limit failure
// that the retry policy may recover from.
func IsThrottle(err error) bool { return IsKind(err, KindThrottle) }

// IsPermission reports whether the error is an authorization failure.
// These are surfaced verbatim and never retried.
func IsPermission(err error) bool { return IsKind(err, KindPermission) }

var throttleCodes = map[string]bool{
	"Throttling":                true,
	"ThrottlingException":       true,
	"RequestLimitExceeded":      true,
	"TooManyRequestsException":  true,
	"ProvisionedThroughputExceededException": true,
}

var permissionCodes = map[string]bool{
	"AccessDenied":           true,
	"AccessDeniedException":  true,
	"UnauthorizedOperation":  true,
	"UnauthorizedAccess":     true,
	"AuthFailure":            true,
	"InvalidClientTokenId":   true,
	"ExpiredToken":           true,
}

// Classify maps a collaborator failure onto the taxonomy using the smithy
// API error code. Errors that are neither throttle nor permission come back
// as KindInternal wrapping the original.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return re
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		switch {
		case throttleCodes[code]:
			return Wrap(KindThrottle, "request throttled", err)
		case permissionCodes[code]:
			return Wrap(KindPermission, "access denied", err)
		}
	}
	return Wrap(KindInternal, "collaborator call failed", err)
}
