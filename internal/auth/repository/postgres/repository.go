package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Godfrey-cyber23/final-year-project-2025/internal/auth/domain"
)

// PgxPool is the subset of pgxpool.Pool the repository uses. pgxmock
// satisfies it too, which keeps the tests off a live database.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresRepository struct {
	db PgxPool
}

func NewPostgresRepository(db PgxPool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountColumns = `id, email, password_hash, is_admin, department_id, status, token_epoch, last_login_at, created_at, updated_at`

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM lecturers
		WHERE email = $1
		LIMIT 1;
	`, accountColumns)

	return r.scanAccount(r.db.QueryRow(ctx, query, email))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM lecturers
		WHERE id = $1
		LIMIT 1;
	`, accountColumns)

	return r.scanAccount(r.db.QueryRow(ctx, query, id))
}

func (r *PostgresRepository) scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	err := row.Scan(
		&account.ID, &account.Email, &account.PasswordHash, &account.IsAdmin,
		&account.DepartmentID, &account.Status, &account.TokenEpoch,
		&account.LastLoginAt, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

// UpdatePassword overwrites the hash and bumps the token epoch so that every
// previously issued session or reset token stops verifying.
func (r *PostgresRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE lecturers
		SET password_hash = $2, token_epoch = token_epoch + 1, updated_at = now()
		WHERE id = $1
	`, id, passwordHash)
	return err
}

func (r *PostgresRepository) SetLockStatus(ctx context.Context, email, status string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE lecturers
		SET status = $2, updated_at = now()
		WHERE email = $1
	`, email, status)
	return err
}

func (r *PostgresRepository) StampLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE lecturers
		SET last_login_at = $2, updated_at = now()
		WHERE id = $1
	`, id, at)
	return err
}

func (r *PostgresRepository) RecordLoginAttempt(ctx context.Context, attempt *domain.LoginAttempt) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO login_attempts (id, email, ip_address, attempt_time, successful, lockout_until)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, attempt.ID, attempt.Email, attempt.IPAddress, attempt.AttemptTime, attempt.Successful, attempt.LockoutUntil)
	return err
}

func (r *PostgresRepository) CountFailuresSince(ctx context.Context, email string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM login_attempts
		WHERE email = $1 AND successful = false AND attempt_time >= $2
	`, email, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count login failures: %w", err)
	}
	return count, nil
}

// ActiveLockout returns the latest unexpired lockout deadline for the email,
// or nil when no lockout is in force.
func (r *PostgresRepository) ActiveLockout(ctx context.Context, email string, now time.Time) (*time.Time, error) {
	var until *time.Time
	err := r.db.QueryRow(ctx, `
		SELECT MAX(lockout_until)
		FROM login_attempts
		WHERE email = $1 AND lockout_until > $2
	`, email, now).Scan(&until)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up active lockout: %w", err)
	}
	return until, nil
}

// LatestLockout returns the most recent lockout deadline regardless of
// expiry, or nil when the email was never locked out.
func (r *PostgresRepository) LatestLockout(ctx context.Context, email string) (*time.Time, error) {
	var until *time.Time
	err := r.db.QueryRow(ctx, `
		SELECT MAX(lockout_until)
		FROM login_attempts
		WHERE email = $1 AND lockout_until IS NOT NULL
	`, email).Scan(&until)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up latest lockout: %w", err)
	}
	return until, nil
}

func (r *PostgresRepository) DeleteFailedAttempts(ctx context.Context, email string) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM login_attempts
		WHERE email = $1 AND successful = false
	`, email)
	return err
}
