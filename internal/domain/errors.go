package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
	ErrPoolExhausted  = errors.New("pool exhausted")
	ErrLedgerRead     = errors.New("ledger read failed")
	ErrLedgerWrite    = errors.New("ledger write failed")
	ErrRaceLost       = errors.New("ledger record changed concurrently")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
)

// AllocationError is the single failure report of an allocation run. Kind is
// one of the sentinel errors above; Err carries the underlying cause.
type AllocationError struct {
	Op      string
	Kind    error
	RunID   uuid.UUID
	Request string
	Err     error
}

func (e *AllocationError) Error() string {
	var b strings.Builder
	// A cause that already wraps the kind names it itself.
	if e.Err != nil && errors.Is(e.Err, e.Kind) {
		fmt.Fprintf(&b, "%s (run %s, %s): %v", e.Op, e.RunID, e.Request, e.Err)
		return b.String()
	}
	fmt.Fprintf(&b, "%s: %v (run %s, %s)", e.Op, e.Kind, e.RunID, e.Request)
	if e.Err != nil && !errors.Is(e.Kind, e.Err) {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *AllocationError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the sentinel that classifies err, or nil when err is not a
// known allocation failure.
func KindOf(err error) error {
	var allocErr *AllocationError
	if errors.As(err, &allocErr) {
		return allocErr.Kind
	}
	for _, kind := range []error{ErrInvalidRequest, ErrPoolExhausted, ErrLedgerWrite, ErrRaceLost, ErrLedgerRead, ErrNotFound, ErrUnauthorized, ErrForbidden} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
