// Package xerrors defines the error taxonomy surfaced to collaborators
// (spec §6.4, §7): a stable machine-readable kind plus a human message,
// never leaking internal offsets except through Corrupt's Where field.
package xerrors

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable error category.
type Kind int

const (
	KindUnknownFormat Kind = iota
	KindCorrupt
	KindTruncated
	KindSchemaMismatch
	KindTypeError
	KindUdtValidation
	KindNotFound
	KindFilteringRequired
	KindUnsupportedFeature
	KindAggregationOverflow
	KindInvalidState
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindUnknownFormat:
		return "UnknownFormat"
	case KindCorrupt:
		return "Corrupt"
	case KindTruncated:
		return "Truncated"
	case KindSchemaMismatch:
		return "SchemaMismatch"
	case KindTypeError:
		return "TypeError"
	case KindUdtValidation:
		return "UdtValidation"
	case KindNotFound:
		return "NotFound"
	case KindFilteringRequired:
		return "FilteringRequired"
	case KindUnsupportedFeature:
		return "UnsupportedFeature"
	case KindAggregationOverflow:
		return "AggregationOverflow"
	case KindInvalidState:
		return "InvalidState"
	case KindCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Sentinel errors for errors.Is comparisons; CqlError wraps one of these.
var (
	ErrUnknownFormat       = errors.New("xerrors: unknown sstable format")
	ErrCorrupt             = errors.New("xerrors: corrupt data")
	ErrTruncated           = errors.New("xerrors: truncated data")
	ErrSchemaMismatch      = errors.New("xerrors: schema mismatch")
	ErrTypeError           = errors.New("xerrors: type error")
	ErrUdtValidation       = errors.New("xerrors: udt validation failed")
	ErrNotFound            = errors.New("xerrors: not found")
	ErrFilteringRequired   = errors.New("xerrors: ALLOW FILTERING required")
	ErrUnsupportedFeature  = errors.New("xerrors: unsupported feature")
	ErrAggregationOverflow = errors.New("xerrors: aggregation memory limit exceeded")
	ErrInvalidState        = errors.New("xerrors: invalid state")
	ErrCancelled           = errors.New("xerrors: operation cancelled")
)

func sentinelFor(k Kind) error {
	switch k {
	case KindUnknownFormat:
		return ErrUnknownFormat
	case KindCorrupt:
		return ErrCorrupt
	case KindTruncated:
		return ErrTruncated
	case KindSchemaMismatch:
		return ErrSchemaMismatch
	case KindTypeError:
		return ErrTypeError
	case KindUdtValidation:
		return ErrUdtValidation
	case KindNotFound:
		return ErrNotFound
	case KindFilteringRequired:
		return ErrFilteringRequired
	case KindUnsupportedFeature:
		return ErrUnsupportedFeature
	case KindAggregationOverflow:
		return ErrAggregationOverflow
	case KindInvalidState:
		return ErrInvalidState
	case KindCancelled:
		return ErrCancelled
	default:
		return ErrCorrupt
	}
}

// CqlError is the error type returned by every fallible core operation.
type CqlError struct {
	Kind  Kind
	Op    string // operation that failed, e.g. "row.Decode"
	Where string // internal offset/context; never shown except here
	Err   error  // wrapped cause, if any
}

func (e *CqlError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Where != "" {
		msg += fmt.Sprintf(" (%s)", e.Where)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CqlError) Unwrap() []error {
	return []error{sentinelFor(e.Kind), e.Err}
}

// New builds a CqlError for the given kind and operation.
func New(k Kind, op string) *CqlError {
	return &CqlError{Kind: k, Op: op}
}

// Wrap builds a CqlError wrapping cause.
func Wrap(k Kind, op string, cause error) *CqlError {
	return &CqlError{Kind: k, Op: op, Err: cause}
}

// WithWhere attaches internal positional context (e.g. a byte offset).
func (e *CqlError) WithWhere(where string) *CqlError {
	e.Where = where
	return e
}

// Corrupt builds a Corrupt error with a why/where pair, per spec §6.4/§7.
func Corrupt(op, why string) *CqlError {
	return &CqlError{Kind: KindCorrupt, Op: op, Where: why}
}

// Is reports whether err carries the given Kind.
func Is(err error, k Kind) bool {
	var ce *CqlError
	if errors.As(err, &ce) {
		return ce.Kind == k
	}
	return errors.Is(err, sentinelFor(k))
}
