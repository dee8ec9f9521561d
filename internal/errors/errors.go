package errors

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrValidation          = errors.New("missing required fields")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidTenantSecret = errors.New("invalid department secret key")
	ErrAccountLocked       = errors.New("account locked, contact an administrator")
	ErrTokenInvalid        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrUnauthorized        = errors.New("unauthorized")
)

// LockoutError reports an active login lockout and how long until it clears.
type LockoutError struct {
	RetryAfter time.Duration
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("too many failed login attempts, retry in %d seconds", int(e.RetryAfter.Seconds()))
}

// CredentialsError is a failed credential check carrying the number of
// attempts left before the account is locked out.
type CredentialsError struct {
	AttemptsRemaining int
}

func (e *CredentialsError) Error() string {
	return ErrInvalidCredentials.Error()
}

// Is lets errors.Is(err, ErrInvalidCredentials) match a CredentialsError.
func (e *CredentialsError) Is(target error) bool {
	return target == ErrInvalidCredentials
}
