package model

import (
	"errors"
	"fmt"
)

// ErrNotFound mirrors the sentinel the Ledger Store returns for missing rows.
var ErrNotFound = errors.New("not found")

// ProtocolError marks a validation failure the protocol itself defines: an
// unsupported op, a malformed memo, an undeployed tick, insufficient balance,
// a duplicate mint, a ticker that already exists. These are the expected,
// recoverable failures spec.md §7 says to log at warn and drop (the batch,
// the savepoint, or the extrinsic) without aborting the block.
//
// Any error that is not a *ProtocolError is treated as a storage error:
// fatal, aborts the enclosing transaction, and propagates to the Block
// Driver.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// NewProtocolError builds a ProtocolError with a plain reason.
func NewProtocolError(reason string) error {
	return &ProtocolError{Reason: reason}
}

// WrapProtocolError builds a ProtocolError carrying an underlying cause, e.g.
// a JSON decode failure for rule R2.
func WrapProtocolError(reason string, err error) error {
	return &ProtocolError{Reason: reason, Err: err}
}

// IsProtocolError reports whether err (or something it wraps) is a
// ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
