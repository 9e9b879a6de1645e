package analysis

import (
	"fmt"

	"github.com/cellgraph/sheetgraph/internal/address"
)

// ErrorKind classifies a terminal analysis failure.
type ErrorKind string

const (
	KindReader              ErrorKind = "reader_error"
	KindParse               ErrorKind = "parse_error"
	KindInternalInvariant   ErrorKind = "internal_invariant_error"
	KindCancelled           ErrorKind = "cancelled"
)

// Error is the single error type analyze returns, aggregating the error
// kinds the engine recognizes: reader failures, local parse failures,
// internal-invariant violations, and cancellation.
type Error struct {
	Kind    ErrorKind
	Message string
	Cell    *address.Cell
	Err     error
}

func (e *Error) Error() string {
	if e.Cell != nil {
		return fmt.Sprintf("analysis: %s at %s: %s", e.Kind, e.Cell, e.Message)
	}
	return fmt.Sprintf("analysis: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }
