package services

import "errors"

// Join rejections and transition failures surfaced to handlers. None of
// these are transient; callers should not retry them.
var (
	ErrInvalidEmail      = errors.New("email address is not valid")
	ErrAlreadyWaitlisted = errors.New("email is already on the waitlist for this resource")
	ErrAlreadyRegistered = errors.New("email already holds a completed purchase for this resource")
	ErrNotEligible       = errors.New("resource is not sold out; waitlist is closed")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("entry is not in a state that allows this transition")
)
