package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Godfrey-cyber23/final-year-project-2025/config"
	"github.com/Godfrey-cyber23/final-year-project-2025/internal/auth/domain"
	"github.com/Godfrey-cyber23/final-year-project-2025/internal/auth/dto"
	"github.com/Godfrey-cyber23/final-year-project-2025/internal/auth/lockout"
	autherrors "github.com/Godfrey-cyber23/final-year-project-2025/internal/errors"
)

// dummyHash is compared against when the account does not exist, so the
// unknown-email path costs the same as a real password check.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

type AuthService struct {
	repo      domain.AccountRepository
	tokens    TokenGenerator
	evaluator *lockout.Evaluator
	mailer    domain.ResetMailer
	cfg       *config.Config
	logger    *slog.Logger

	// now is swapped out in tests that simulate lockout expiry.
	now func() time.Time
}

func NewAuthService(
	repo domain.AccountRepository,
	tokens TokenGenerator,
	evaluator *lockout.Evaluator,
	mailer domain.ResetMailer,
	cfg *config.Config,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		repo:      repo,
		tokens:    tokens,
		evaluator: evaluator,
		mailer:    mailer,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Login runs the full login state machine: validation, tenant secret, lockout
// evaluation, credential check, ledger bookkeeping and token issuance. Every
// call writes exactly one ledger row (two when the call trips the lockout
// threshold) unless it was rejected by an already-active lockout.
func (s *AuthService) Login(ctx context.Context, input dto.LoginInput) (*dto.LoginResponse, error) {
	if input.Email == "" || input.Password == "" || input.SecretKey == "" {
		return nil, autherrors.ErrValidation
	}

	if !secretKeyMatches(input.SecretKey, s.cfg.DepartmentSecretKey) {
		// Tenant-wide secret, not per-account: no ledger write here.
		return nil, autherrors.ErrInvalidTenantSecret
	}

	now := s.now()

	decision, err := s.evaluator.Evaluate(ctx, s.repo, input.Email, now)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		// Already locked out; don't grow the ledger under an active attack.
		return nil, &autherrors.LockoutError{RetryAfter: decision.RetryAfter}
	}

	account, err := s.repo.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}

	if account == nil {
		// Unknown email must be indistinguishable from a wrong password:
		// same bcrypt cost, same ledger write, same response shape.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(input.Password))
		return nil, s.recordFailure(ctx, input.Email, input.IPAddress, now, false)
	}

	if account.Locked() {
		if err := s.maybeUnlock(ctx, input.Email, now); err != nil {
			return nil, err
		}
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(input.Password)) != nil {
		return nil, s.recordFailure(ctx, input.Email, input.IPAddress, now, true)
	}

	if err := s.repo.RecordLoginAttempt(ctx, &domain.LoginAttempt{
		ID:          uuid.NewString(),
		Email:       input.Email,
		IPAddress:   input.IPAddress,
		AttemptTime: now,
		Successful:  true,
	}); err != nil {
		return nil, err
	}

	// Reset the failure counter; a fresh cycle starts after every success.
	if err := s.repo.DeleteFailedAttempts(ctx, input.Email); err != nil {
		s.logger.Warn("failed to clear prior login failures", slog.String("error", err.Error()))
	}
	if err := s.repo.StampLastLogin(ctx, account.ID, now); err != nil {
		s.logger.Warn("failed to stamp last login", slog.String("error", err.Error()))
	}

	token, _, err := s.tokens.IssueSession(account.ID, account.IsAdmin, account.TokenEpoch)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		Token: token,
		Lecturer: dto.PrincipalOutput{
			ID:      account.ID,
			Email:   account.Email,
			IsAdmin: account.IsAdmin,
		},
	}, nil
}

// recordFailure appends a failed attempt, recomputes the failure count inside
// the window and, at the threshold, writes the lockout record (plus the
// account lock when one exists). The returned error is what the caller
// surfaces: LockoutError at the threshold, CredentialsError below it.
func (s *AuthService) recordFailure(ctx context.Context, email, ip string, now time.Time, accountExists bool) error {
	if err := s.repo.RecordLoginAttempt(ctx, &domain.LoginAttempt{
		ID:          uuid.NewString(),
		Email:       email,
		IPAddress:   ip,
		AttemptTime: now,
		Successful:  false,
	}); err != nil {
		return err
	}

	failures, err := s.repo.CountFailuresSince(ctx, email, now.Add(-s.evaluator.LockoutWindow))
	if err != nil {
		return err
	}

	if !s.evaluator.ShouldLock(failures) {
		return &autherrors.CredentialsError{AttemptsRemaining: s.evaluator.AttemptsRemaining(failures)}
	}

	until := s.evaluator.LockoutUntil(now)
	if accountExists {
		if err := s.repo.SetLockStatus(ctx, email, domain.StatusLocked); err != nil {
			return err
		}
	}
	if err := s.repo.RecordLoginAttempt(ctx, &domain.LoginAttempt{
		ID:           uuid.NewString(),
		Email:        email,
		IPAddress:    ip,
		AttemptTime:  now,
		Successful:   false,
		LockoutUntil: &until,
	}); err != nil {
		return err
	}

	return &autherrors.LockoutError{RetryAfter: s.evaluator.LockoutDuration}
}

// maybeUnlock reactivates an account whose lock came from a lockout that has
// since expired. A locked account with no lockout record at all was locked by
// an administrator and stays locked.
func (s *AuthService) maybeUnlock(ctx context.Context, email string, now time.Time) error {
	latest, err := s.repo.LatestLockout(ctx, email)
	if err != nil {
		return err
	}
	if latest == nil || latest.After(now) {
		return autherrors.ErrAccountLocked
	}
	return s.repo.SetLockStatus(ctx, email, domain.StatusActive)
}

// ForgotPassword always reports success so the response never reveals whether
// the email has an account. The reset mail is dispatched asynchronously for
// the same reason: delivery time must not leak existence either.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return autherrors.ErrValidation
	}

	account, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		s.logger.Error("forgot password lookup failed", slog.String("error", err.Error()))
		return nil
	}

	if account == nil {
		// Pay the token-signing cost anyway to keep timing flat.
		_, _ = s.tokens.IssueReset(uuid.NewString(), 0)
		return nil
	}

	token, err := s.tokens.IssueReset(account.ID, account.TokenEpoch)
	if err != nil {
		s.logger.Error("failed to issue reset token", slog.String("error", err.Error()))
		return nil
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", strings.TrimRight(s.cfg.FrontendURL, "/"), token)
	go func(to, url string) {
		if err := s.mailer.SendResetEmail(to, url); err != nil {
			s.logger.Error("failed to send reset email", slog.String("error", err.Error()))
		}
	}(account.Email, resetURL)

	return nil
}

// ResetPassword verifies the reset token and overwrites the password hash.
// UpdatePassword bumps the account's token epoch, which invalidates every
// outstanding session token and the reset token that was just used.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" || newPassword == "" {
		return autherrors.ErrValidation
	}

	claims, err := s.tokens.VerifyReset(token)
	if err != nil {
		return err
	}

	account, err := s.repo.GetByID(ctx, claims.LecturerID)
	if err != nil {
		return err
	}
	if account == nil || account.TokenEpoch != claims.TokenEpoch {
		return autherrors.ErrTokenInvalid
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return s.repo.UpdatePassword(ctx, account.ID, string(hash))
}

// CurrentPrincipal resolves a bearer token to the account behind it. A token
// is only good while its signature verifies, it has not expired, the account
// is still active and the account's token epoch matches the claim.
func (s *AuthService) CurrentPrincipal(ctx context.Context, token string) (*dto.PrincipalOutput, error) {
	claims, err := s.tokens.VerifySession(token)
	if err != nil {
		return nil, err
	}

	account, err := s.repo.GetByID(ctx, claims.LecturerID)
	if err != nil {
		return nil, err
	}
	if account == nil || account.Locked() || account.TokenEpoch != claims.TokenEpoch {
		return nil, autherrors.ErrTokenInvalid
	}

	return &dto.PrincipalOutput{
		ID:      account.ID,
		Email:   account.Email,
		IsAdmin: account.IsAdmin,
	}, nil
}

// secretKeyMatches compares the supplied departmental secret in constant
// time. Hashing first removes length as a signal.
func secretKeyMatches(supplied, expected string) bool {
	if expected == "" {
		return false
	}
	a := sha256.Sum256([]byte(supplied))
	b := sha256.Sum256([]byte(expected))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}
