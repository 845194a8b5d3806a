// Package scxmlerr defines the generator's closed error taxonomy.
// Every error carries the input path and, where meaningful, an element
// reference, and renders as a single diagnostic line.
package scxmlerr

import "fmt"

// Kind is the closed set of error categories the pipeline can fail with.
type Kind int

const (
	DocumentMalformed Kind = iota
	NamespaceMismatch
	ExternalScriptUnavailable
	InvalidInitialTarget
	HistoryCycle
	InitialCycle
	UnsupportedInvokeType
	EmitterFailure
)

func (k Kind) String() string {
	switch k {
	case DocumentMalformed:
		return "DocumentMalformed"
	case NamespaceMismatch:
		return "NamespaceMismatch"
	case ExternalScriptUnavailable:
		return "ExternalScriptUnavailable"
	case InvalidInitialTarget:
		return "InvalidInitialTarget"
	case HistoryCycle:
		return "HistoryCycle"
	case InitialCycle:
		return "InitialCycle"
	case UnsupportedInvokeType:
		return "UnsupportedInvokeType"
	case EmitterFailure:
		return "EmitterFailure"
	default:
		return "Unknown"
	}
}

// Error is the single error type the pipeline returns. ElementRef and
// ResolvedPath are optional; Error() omits them when empty.
type Error struct {
	Kind         Kind
	Path         string
	ElementRef   string // offending state/transition id, or expression string
	ResolvedPath string
	Cause        error
}

func New(kind Kind, path, elementRef string) *Error {
	return &Error{Kind: kind, Path: path, ElementRef: elementRef}
}

func Wrap(kind Kind, path, elementRef string, cause error) *Error {
	return &Error{Kind: kind, Path: path, ElementRef: elementRef, Cause: cause}
}

func (e *Error) WithResolvedPath(p string) *Error {
	e.ResolvedPath = p
	return e
}

func (e *Error) Error() string {
	msg := e.Kind.String() + ": " + e.Path
	if e.ElementRef != "" {
		msg += fmt.Sprintf(" (%s)", e.ElementRef)
	}
	if e.ResolvedPath != "" {
		msg += fmt.Sprintf(" -> %s", e.ResolvedPath)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// As reports whether err is itself a *Error and returns it. Kind is a plain
// int, not a value that can satisfy error, so there is no errors.Is
// sentinel for it; callers compare .Kind on the returned value. As is a
// direct type assertion: a *Error wrapped inside another error is not found.
func As(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}
