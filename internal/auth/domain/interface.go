package domain

//go:generate mockgen -destination=../../mocks/mock_account_repository.go -package=mocks github.com/Godfrey-cyber23/final-year-project-2025/internal/auth/domain AccountRepository,ResetMailer

import (
	"context"
	"time"
)

type AccountRepository interface {
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetLockStatus(ctx context.Context, email, status string) error
	StampLastLogin(ctx context.Context, id string, at time.Time) error
	RecordLoginAttempt(ctx context.Context, attempt *LoginAttempt) error
	CountFailuresSince(ctx context.Context, email string, since time.Time) (int, error)
	ActiveLockout(ctx context.Context, email string, now time.Time) (*time.Time, error)
	LatestLockout(ctx context.Context, email string) (*time.Time, error)
	DeleteFailedAttempts(ctx context.Context, email string) error
}

// ResetMailer delivers password reset links. Message rendering and transport
// configuration live with the implementation.
type ResetMailer interface {
	SendResetEmail(to, resetURL string) error
}
