package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/Godfrey-cyber23/final-year-project-2025/internal/auth/dto"
	"github.com/Godfrey-cyber23/final-year-project-2025/internal/auth/service"
	autherrors "github.com/Godfrey-cyber23/final-year-project-2025/internal/errors"
)

// forgotPasswordMessage is the single success-shaped response for
// forgot-password, identical whether or not the email has an account.
const forgotPasswordMessage = "If an account exists with this email, you will receive a password reset link shortly."

type AuthHandler struct {
	authService *service.AuthService
	logger      *slog.Logger
}

func NewAuthHandler(authService *service.AuthService, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{authService: authService, logger: logger}
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input dto.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid input",
		})
	}

	input.IPAddress = c.IP()

	resp, err := h.authService.Login(c.Context(), input)
	if err != nil {
		return h.writeAuthError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var input dto.ForgotPasswordInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid input",
		})
	}

	if err := h.authService.ForgotPassword(c.Context(), input.Email); err != nil {
		return h.writeAuthError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": forgotPasswordMessage,
	})
}

func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	token := c.Params("token")

	var input dto.ResetPasswordInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid input",
		})
	}

	if err := h.authService.ResetPassword(c.Context(), token, input.NewPassword); err != nil {
		return h.writeAuthError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Password updated successfully",
	})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := c.Locals(principalKey).(*dto.PrincipalOutput)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": autherrors.ErrUnauthorized.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"lecturer": principal,
	})
}

// writeAuthError maps the error taxonomy to the HTTP surface. The lockout /
// locked-account distinction is surfaced because the user's next action
// differs (wait vs contact an administrator); which credential factor failed
// never is.
func (h *AuthHandler) writeAuthError(c *fiber.Ctx, err error) error {
	var lockoutErr *autherrors.LockoutError
	var credErr *autherrors.CredentialsError

	switch {
	case errors.Is(err, autherrors.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "email, password and secret key are required",
		})
	case errors.As(err, &lockoutErr):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":             lockoutErr.Error(),
			"retryAfterSeconds": int(lockoutErr.RetryAfter.Seconds()),
		})
	case errors.As(err, &credErr):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":             "Invalid credentials",
			"attemptsRemaining": credErr.AttemptsRemaining,
		})
	case errors.Is(err, autherrors.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	case errors.Is(err, autherrors.ErrInvalidTenantSecret):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": autherrors.ErrInvalidTenantSecret.Error(),
		})
	case errors.Is(err, autherrors.ErrAccountLocked):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": autherrors.ErrAccountLocked.Error(),
		})
	case errors.Is(err, autherrors.ErrTokenExpired):
		return c.Status(fiber.StatusGone).JSON(fiber.Map{
			"error": "Reset link expired, please request a new one",
		})
	case errors.Is(err, autherrors.ErrTokenInvalid):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid reset link",
		})
	default:
		h.logger.Error("unexpected auth failure", slog.String("error", err.Error()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}
}
