package executor

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies execution failures for the caller's retry loop.
type ErrorKind int

const (
	// Transient failures are worth another attempt: network errors,
	// expired blockhashes, dropped transactions, timeouts.
	Transient ErrorKind = iota
	// Permanent failures will fail again with the same inputs.
	Permanent
)

func (k ErrorKind) String() string {
	if k == Permanent {
		return "permanent"
	}
	return "transient"
}

// Error is an execution failure with its retry classification.
type Error struct {
	Kind      ErrorKind
	Op        string
	Signature string
	Err       error
}

func (e *Error) Error() string {
	if e.Signature != "" {
		return fmt.Sprintf("%s (%s, %s): %v", e.Op, e.Kind, e.Signature, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var (
	ErrExpired   = errors.New("blockhash expired before confirmation")
	ErrTimeout   = errors.New("confirmation timeout")
	ErrTxFailed  = errors.New("transaction failed on chain")
	ErrNoPayload = errors.New("empty payload")
)

var permanentMarkers = []string{
	"insufficient funds",
	"insufficient lamports",
	"account not found",
	"invalid account data",
}

func transient(op, sig string, err error) error {
	return &Error{Kind: Transient, Op: op, Signature: sig, Err: err}
}

func permanent(op, sig string, err error) error {
	return &Error{Kind: Permanent, Op: op, Signature: sig, Err: err}
}

// classify wraps err as permanent when its message names a condition a
// retry cannot fix, transient otherwise.
func classify(op, sig string, err error) error {
	msg := strings.ToLower(err.Error())
	for _, m := range permanentMarkers {
		if strings.Contains(msg, m) {
			return permanent(op, sig, err)
		}
	}
	return transient(op, sig, err)
}

// IsRetryable reports whether err is worth another attempt. Errors that are
// not classified are treated as transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == Transient
	}
	return true
}
