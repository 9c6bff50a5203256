// Package errs holds the error taxonomy shared by the wallet, network and
// transaction layers.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can render different guidance.
type Kind string

const (
	NotConnected         Kind = "NotConnected"
	WrongNetwork         Kind = "WrongNetwork"
	NoWalletProvider     Kind = "NoWalletProvider"
	InvalidAmount        Kind = "InvalidAmount"
	InvalidAddress       Kind = "InvalidAddress"
	UserRejected         Kind = "UserRejected"
	PendingRequestExists Kind = "PendingRequestExists"
	SubmissionFailed     Kind = "SubmissionFailed"
	NetworkUnreachable   Kind = "NetworkUnreachable"
	EventParseFailure    Kind = "EventParseFailure"
)

// Error is a classified failure with a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// New returns an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap classifies err under kind.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" when none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// MessageOf returns the message to show a user for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
		if e.Err != nil {
			return e.Err.Error()
		}
		return string(e.Kind)
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

var (
	ErrNotConnected         = New(NotConnected, "please connect your wallet")
	ErrWrongNetwork         = New(WrongNetwork, "please switch to the required network")
	ErrNoWalletProvider     = New(NoWalletProvider, "no wallet provider found")
	ErrInvalidAmount        = New(InvalidAmount, "invalid amount")
	ErrInvalidAddress       = New(InvalidAddress, "invalid address")
	ErrUserRejected         = New(UserRejected, "request rejected by user")
	ErrPendingRequestExists = New(PendingRequestExists, "a wallet request is already pending")
	ErrSubmissionFailed     = New(SubmissionFailed, "transaction failed")
	ErrNetworkUnreachable   = New(NetworkUnreachable, "network unreachable")
	ErrEventParseFailure    = New(EventParseFailure, "could not read emitted event")
)
