package domain

import (
	"errors"
	"fmt"
)

// FailureKind classifies why an analysis did not produce a FoodAnalysis.
type FailureKind int

const (
	KindUnknown FailureKind = iota
	KindEncoding
	KindTransport
	KindResponseParse
)

func (k FailureKind) String() string {
	switch k {
	case KindEncoding:
		return "encoding"
	case KindTransport:
		return "transport"
	case KindResponseParse:
		return "response_parse"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. An *AnalysisError matches the sentinel of its kind.
var (
	ErrUnknown       = errors.New("unknown failure")
	ErrEncoding      = errors.New("encoding failure")
	ErrTransport     = errors.New("transport failure")
	ErrResponseParse = errors.New("response parse failure")
)

func (k FailureKind) sentinel() error {
	switch k {
	case KindEncoding:
		return ErrEncoding
	case KindTransport:
		return ErrTransport
	case KindResponseParse:
		return ErrResponseParse
	default:
		return ErrUnknown
	}
}

// AnalysisError is the only error type surfaced by the encode and analyze
// pipeline. Err holds the original cause.
type AnalysisError struct {
	Kind FailureKind
	Op   string
	Err  error
}

// NewError wraps err as an AnalysisError of the given kind.
func NewError(kind FailureKind, op string, err error) *AnalysisError {
	return &AnalysisError{Kind: kind, Op: op, Err: err}
}

func (e *AnalysisError) Error() string {
	msg := e.Kind.sentinel().Error()
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AnalysisError) Unwrap() error { return e.Err }

func (e *AnalysisError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// KindOf reports the failure kind of err. Errors that are not an
// *AnalysisError are unknown.
func KindOf(err error) FailureKind {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// Errorf is a shorthand for NewError with a formatted cause.
func Errorf(kind FailureKind, op, format string, args ...any) *AnalysisError {
	return NewError(kind, op, fmt.Errorf(format, args...))
}
