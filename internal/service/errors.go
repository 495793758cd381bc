package service

import "errors"

var (
	ErrInvalidCode       = errors.New("invalid verification code")
	ErrCodeExpired       = errors.New("verification code expired")
	ErrChallengeNotFound = errors.New("mfa challenge not found")
	ErrSessionInvalid    = errors.New("session invalid")
	ErrStorageDisabled   = errors.New("document storage not configured")
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
)
