package domain

import "time"

const (
	StatusActive = "active"
	StatusLocked = "locked"
)

type Account struct {
	ID           string
	Email        string
	PasswordHash string
	IsAdmin      bool
	DepartmentID string
	Status       string
	TokenEpoch   int
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (a *Account) Locked() bool {
	return a.Status == StatusLocked
}

// LoginAttempt is an immutable ledger row. One row is written per login call
// regardless of whether the account exists. Rows that ended a failure cycle
// carry the LockoutUntil timestamp derived from it.
type LoginAttempt struct {
	ID           string
	Email        string
	IPAddress    string
	AttemptTime  time.Time
	Successful   bool
	LockoutUntil *time.Time
}
