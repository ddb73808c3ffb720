package types

import "errors"

var (
	// ErrFetchFailed - bootstrap or refetch failed; the view stays empty, retry is user-initiated
	ErrFetchFailed = errors.New("failed to fetch rides")
	// ErrCommandRejected - a remote precondition failed, e.g. the ride was accepted by someone else
	ErrCommandRejected = errors.New("command rejected")
	// ErrUnauthenticated - there is no current actor
	ErrUnauthenticated = errors.New("unauthenticated")

	ErrForbidden         = errors.New("action forbidden for this actor")
	ErrInvalidTransition = errors.New("invalid ride status transition")
	ErrDriverBusy        = errors.New("driver already has an active ride")
	ErrRideNotFound      = errors.New("ride not found")
	ErrInvalidRide       = errors.New("invalid ride record")
	ErrInvalidStatus     = errors.New("invalid ride status")
	ErrInvalidEvent      = errors.New("invalid change event")
	ErrLocationNotFound  = errors.New("location not found")
	ErrNotBootstrapped   = errors.New("reconciler is not bootstrapped")
)
