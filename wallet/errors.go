// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
)

var (
	// ErrInsufficientFunds is returned when the eligible UTXOs cannot
	// cover the requested outputs plus the fee.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAddress is returned when a recipient, change or UTXO
	// address cannot be decoded for the active network.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrMalformedInput is returned when a request is structurally
	// invalid, for example a negative amount or an empty recipient list.
	ErrMalformedInput = errors.New("malformed input")

	// ErrNetwork is returned when a collaborator could not be reached or
	// returned an unusable response.
	ErrNetwork = errors.New("network or indexer error")

	// ErrServer is returned when a collaborator answered with a server
	// side failure.
	ErrServer = errors.New("server error")

	// ErrInvalidFeeRate is returned when neither a usable fee rate nor a
	// custom fee is available.
	ErrInvalidFeeRate = fmt.Errorf("%w: fee rate must be positive",
		ErrMalformedInput)

	// ErrUnbalancedPlan is returned when a transaction plan does not
	// conserve value and must not be signed.
	ErrUnbalancedPlan = errors.New("transaction plan does not balance")

	// ErrMissingKey is returned when no supplied key can sign an input.
	ErrMissingKey = errors.New("no key for input")

	// ErrNoConvergence is returned when fee resolution does not settle
	// within its iteration bound.
	ErrNoConvergence = errors.New("fee resolution did not converge")
)

// ErrorKind classifies an error into the small set of outcomes callers act
// on.
type ErrorKind int

const (
	// KindUnclassified is any error not covered by another kind.
	KindUnclassified ErrorKind = iota

	// KindInsufficientFunds means the pool could not fund the request.
	KindInsufficientFunds

	// KindInvalidAddress means an address did not decode.
	KindInvalidAddress

	// KindMalformedInput means the request itself was invalid.
	KindMalformedInput

	// KindNetwork means a collaborator could not be reached.
	KindNetwork

	// KindServer means a collaborator reported a failure.
	KindServer

	// KindCancelled means the operation was cancelled. It is not an
	// error from the caller's point of view.
	KindCancelled
)

// String returns the kind as a human readable string.
func (k ErrorKind) String() string {
	switch k {
	case KindInsufficientFunds:
		return "InsufficientFunds"

	case KindInvalidAddress:
		return "InvalidAddress"

	case KindMalformedInput:
		return "MalformedInput"

	case KindNetwork:
		return "NetworkOrIndexerError"

	case KindServer:
		return "ServerError"

	case KindCancelled:
		return "Cancelled"

	default:
		return "Unclassified"
	}
}

// KindOf classifies err. A nil error is unclassified.
func KindOf(err error) ErrorKind {
	var kindErr Error

	switch {
	case err == nil:
		return KindUnclassified

	// Cancellation wins over whatever error the cancelled call produced.
	case errors.Is(err, context.Canceled):
		return KindCancelled

	case errors.As(err, &kindErr):
		return kindErr.Kind

	case errors.Is(err, ErrInsufficientFunds):
		return KindInsufficientFunds

	case errors.Is(err, ErrInvalidAddress):
		return KindInvalidAddress

	case errors.Is(err, ErrMalformedInput):
		return KindMalformedInput

	case errors.Is(err, ErrNetwork),
		errors.Is(err, context.DeadlineExceeded):

		return KindNetwork

	case errors.Is(err, ErrServer):
		return KindServer

	default:
		return KindUnclassified
	}
}

// Error is an error tagged with an explicit kind. It is used by
// collaborators that know the classification of a failure up front.
type Error struct {
	Kind ErrorKind
	Desc string
	Err  error
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	if e.Err != nil {
		return e.Desc + ": " + e.Err.Error()
	}

	return e.Desc
}

// Unwrap returns the underlying error, if any.
func (e Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error given a set of arguments.
func NewError(kind ErrorKind, desc string, err error) Error {
	return Error{Kind: kind, Desc: desc, Err: err}
}

// InsufficientFundsError reports a failed selection. Selection holds what the
// greedy walk gathered before the pool ran out.
type InsufficientFundsError struct {
	// Selection is the set of coins selected when the pool ran dry.
	Selection *Selection

	// Required is the funding target the selection needed to reach.
	// The resolver's targets include the fee.
	Required btcutil.Amount

	// Available is the funding value that was selected.
	Available btcutil.Amount
}

// Error implements the error interface.
func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("%v: have %v, need %v", ErrInsufficientFunds,
		e.Available, e.Required)
}

// Unwrap lets errors.Is match ErrInsufficientFunds.
func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}
