// Package common contains shared constants, sentinel errors and small
// helpers used across SecureChat components. Callers should use errors.Is
// (and errors.As for the typed login errors) to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrDuplicateUser = errors.New("username already exists")

	// Key-protection errors. Wrong password and a tampered envelope are
	// deliberately indistinguishable.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// Messaging errors.
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrFileUnavailable   = errors.New("file unavailable")

	// Registration / session errors.
	ErrCaptchaFailed = errors.New("captcha verification failed")
	ErrInvalidToken  = errors.New("invalid session token")
)

// AccountLockedError is returned by login and password change while the
// account's lockout window is still open.
type AccountLockedError struct {
	SecondsRemaining int64
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked, try again in %ds", e.SecondsRemaining)
}

// InvalidPasswordError is returned on a failed password check that did not
// trip the lockout threshold.
type InvalidPasswordError struct {
	AttemptsRemaining int
}

func (e *InvalidPasswordError) Error() string {
	return fmt.Sprintf("invalid password, %d attempts remaining", e.AttemptsRemaining)
}
