// services/errors.go
package services

import "errors"

// Domain errors returned by service core methods. Handlers map these to
// HTTP status codes; anything unrecognized becomes a 500.
var (
	ErrMatchNotFound      = errors.New("match not found")
	ErrMatchNotOpen       = errors.New("match is not open for registration")
	ErrMatchFull          = errors.New("match is full")
	ErrAlreadyRegistered  = errors.New("user already registered for this match")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrPhoneRequired      = errors.New("phone number required")
	ErrNotRegistered      = errors.New("no active registration for this match")
	ErrAlreadySubmitted   = errors.New("result already submitted for this match")
	ErrResultsClosed      = errors.New("match is not accepting results")
	ErrNotAuthorized      = errors.New("not authorized for this match")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrOrderNotFound      = errors.New("payment order not found")
	ErrUnverifiedResults  = errors.New("all submissions must be verified before closing")
	ErrWinnerMismatch     = errors.New("winning submission does not match computed rank 1")
	ErrAlreadyVoted       = errors.New("vote already cast")
	ErrPendingApplication = errors.New("a pending host application already exists")
)
