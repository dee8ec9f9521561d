package handler

import (
	"errors"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	autherrors "github.com/Godfrey-cyber23/final-year-project-2025/internal/errors"
	"github.com/Godfrey-cyber23/final-year-project-2025/pkg/constant"
)

const principalKey = "principal"

// RequireAuth extracts the bearer token and resolves it to a principal. The
// account must still be active and the token epoch current, so a password
// reset kills outstanding sessions.
func (h *AuthHandler) RequireAuth(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	token := strings.TrimSpace(strings.TrimPrefix(header, constant.BearerScheme))
	if header == "" || token == header {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "missing bearer token",
		})
	}

	principal, err := h.authService.CurrentPrincipal(c.Context(), token)
	if err != nil {
		if errors.Is(err, autherrors.ErrTokenExpired) || errors.Is(err, autherrors.ErrTokenInvalid) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": autherrors.ErrUnauthorized.Error(),
			})
		}
		return h.writeAuthError(c, err)
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// ipRateLimiter keeps a token bucket per client IP.
type ipRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func (rl *ipRateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, ok := rl.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(rl.rps, rl.burst)
		rl.limiters[ip] = limiter
	}
	return limiter.Allow()
}

// NewRateLimitMiddleware throttles a route group per client IP. It sits in
// front of the auth endpoints as a blunt first line against request floods;
// the per-email lockout handles targeted guessing.
func NewRateLimitMiddleware(rps, burst int) fiber.Handler {
	rl := &ipRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}

	return func(c *fiber.Ctx) error {
		if !rl.allow(c.IP()) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests",
			})
		}
		return c.Next()
	}
}
