// Package services defines the business logic for accounts and connections.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler/controller layer.
package services

import (
	"errors"
	"fmt"
)

// Connection lifecycle errors. Every rejected precondition has its own value
// so callers and tests can assert on cause.
var (
	// ErrAlreadyConnected is returned when the pair already holds an active
	// connection.
	ErrAlreadyConnected = errors.New("already connected to this user")

	// ErrNotConnected is returned when a disconnect targets a pair with no
	// active connection.
	ErrNotConnected = errors.New("not connected to this user")

	// ErrReconnectionLimit is returned when the pair has exhausted its
	// reconnection budget. Permanent for the pair.
	ErrReconnectionLimit = errors.New("reconnection limit reached")

	// ErrReconnectionRequested is returned when a reconnection request for
	// the pair is already on record, pending or rejected.
	ErrReconnectionRequested = errors.New("reconnection already requested")

	// ErrNoAcceptableRequest is returned when accept/reject finds no pending
	// request issued by the other party.
	ErrNoAcceptableRequest = errors.New("no reconnection request to act on")

	// ErrSelfConnection is returned when actor and target are the same account.
	ErrSelfConnection = errors.New("cannot connect to yourself")

	// ErrUserNotFound indicates the referenced account does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// Account errors.
var (
	// ErrInvalidCredentials is returned on a failed login attempt.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrInvalidOTP is returned when a submitted one-time code is wrong,
	// expired, or already consumed.
	ErrInvalidOTP = errors.New("invalid OTP")

	// ErrEmailTaken is returned when registration hits an existing username
	// or email.
	ErrEmailTaken = errors.New("username or email already registered")

	// ErrEmailAlreadyVerified is returned when a verification code is
	// requested for an address that is already verified.
	ErrEmailAlreadyVerified = errors.New("email already verified")

	// ErrPasswordMismatch is returned when the two reset passwords differ.
	ErrPasswordMismatch = errors.New("passwords do not match")

	// ErrInvalidPrice is returned when a profile update sets a negative
	// connection price.
	ErrInvalidPrice = errors.New("connection price must not be negative")
)

// InsufficientConnectsError reports a connect attempt the actor cannot
// afford. Required carries the target's price so callers can surface it.
type InsufficientConnectsError struct {
	Required int
}

// Error implements the error interface.
func (e *InsufficientConnectsError) Error() string {
	return fmt.Sprintf("not enough connects to connect with this user: %d needed", e.Required)
}

// AsInsufficientConnects unwraps err into an InsufficientConnectsError,
// reporting whether it matched.
func AsInsufficientConnects(err error) (*InsufficientConnectsError, bool) {
	var e *InsufficientConnectsError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
