// Package errors provides coded errors for the provisioning pipeline.
//
// Every failure that can abort a run carries a Kind so callers and tests can
// branch on what went wrong without matching message text.
package errors

import (
	"errors"
	"fmt"
)

// Kind identifies a class of pipeline failure.
type Kind string

const (
	KindUnknown                Kind = "Unknown"
	KindRemoteUnavailable      Kind = "RemoteUnavailable"
	KindNoReleaseAvailable     Kind = "NoReleaseAvailable"
	KindNoAssets               Kind = "NoAssets"
	KindDownloadFailed         Kind = "DownloadFailed"
	KindCorruptPackage         Kind = "CorruptPackage"
	KindIO                     Kind = "IOError"
	KindInvalidPath            Kind = "InvalidPath"
	KindNoAppIDFound           Kind = "NoAppIdFound"
	KindArtifactNotFound       Kind = "ArtifactNotFound"
	KindSettingsMissing        Kind = "SettingsMissing"
	KindConfigGenerationFailed Kind = "ConfigGenerationFailed"
	KindConfig                 Kind = "Config"
)

// Error is a failure with a kind, a message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// New creates an Error with the given kind and message
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an Error with a formatted message
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err with a kind and message. A nil err yields nil.
func Wrap(err error, kind Kind, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Wrapped: err}
}

// Wrapf wraps err with a kind and formatted message. A nil err yields nil.
func Wrapf(err error, kind Kind, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Wrapped: err}
}

// WithDetail attaches a key/value pair to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsKind reports whether any error in err's chain has the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the kind of the outermost *Error in err's chain, or
// KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
