package service

//go:generate mockgen -destination=../../mocks/mock_token_generator.go -package=mocks github.com/Godfrey-cyber23/final-year-project-2025/internal/auth/service TokenGenerator

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	autherrors "github.com/Godfrey-cyber23/final-year-project-2025/internal/errors"
)

type TokenGenerator interface {
	IssueSession(accountID string, isAdmin bool, tokenEpoch int) (string, time.Time, error)
	VerifySession(tokenString string) (*SessionClaims, error)
	IssueReset(accountID string, tokenEpoch int) (string, error)
	VerifyReset(tokenString string) (*ResetClaims, error)
}

// TokenService signs and verifies session and password-reset tokens. The two
// token kinds use distinct secrets so a leaked reset link can never be
// replayed as a session token, and vice versa.
type TokenService struct {
	SessionTokenSecret string
	ResetTokenSecret   string
	SessionTokenExpiry time.Duration
	ResetTokenExpiry   time.Duration
}

type SessionClaims struct {
	jwt.RegisteredClaims
	LecturerID string `json:"lecturer_id"`
	IsAdmin    bool   `json:"is_admin"`
	TokenEpoch int    `json:"token_epoch"`
}

type ResetClaims struct {
	jwt.RegisteredClaims
	LecturerID string `json:"lecturer_id"`
	TokenEpoch int    `json:"token_epoch"`
}

func NewTokenService(sessionSecret, resetSecret string, sessionExpiry, resetExpiry time.Duration) *TokenService {
	return &TokenService{
		SessionTokenSecret: sessionSecret,
		ResetTokenSecret:   resetSecret,
		SessionTokenExpiry: sessionExpiry,
		ResetTokenExpiry:   resetExpiry,
	}
}

func (ts *TokenService) IssueSession(accountID string, isAdmin bool, tokenEpoch int) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ts.SessionTokenExpiry)

	claims := SessionClaims{
		LecturerID: accountID,
		IsAdmin:    isAdmin,
		TokenEpoch: tokenEpoch,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(ts.SessionTokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}

// VerifySession parses and validates a session token. It does not hit
// storage; callers that need "is this account still active" must check the
// credential store separately.
func (ts *TokenService) VerifySession(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := ts.parse(tokenString, claims, ts.SessionTokenSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

func (ts *TokenService) IssueReset(accountID string, tokenEpoch int) (string, error) {
	now := time.Now()

	claims := ResetClaims{
		LecturerID: accountID,
		TokenEpoch: tokenEpoch,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ResetTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(ts.ResetTokenSecret))
}

// VerifyReset distinguishes an expired-but-well-formed token from a malformed
// or forged one, so the caller can tell the user "link expired" instead of a
// generic failure.
func (ts *TokenService) VerifyReset(tokenString string) (*ResetClaims, error) {
	claims := &ResetClaims{}
	if err := ts.parse(tokenString, claims, ts.ResetTokenSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

func (ts *TokenService) parse(tokenString string, claims jwt.Claims, secret string) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Ensure the token's signing method is HMAC.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return autherrors.ErrTokenExpired
		}
		return autherrors.ErrTokenInvalid
	}

	if !token.Valid {
		return autherrors.ErrTokenInvalid
	}

	return nil
}
