package service

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTooManyAttempts    = errors.New("too many login attempts, try again later")
	ErrTokenInvalid       = errors.New("session token invalid or expired")
	ErrTokenRevoked       = errors.New("session has been signed out")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserDisabled       = errors.New("user is disabled")
	ErrUserExists         = errors.New("a user with this email already exists")
	ErrUserInvalid        = errors.New("invalid user")
	ErrCannotDeleteSelf   = errors.New("cannot delete your own account")
	ErrBinNotFound        = errors.New("bin not found")
	ErrBinExists          = errors.New("a bin with this code already exists")
	ErrBinInvalid         = errors.New("invalid bin")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrSubmissionInvalid  = errors.New("invalid submission")
	ErrStatsUnavailable   = errors.New("statistics are not available yet")
)
