package ratelimit

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/admission-core/pkg/util"
)

// Middleware gates one endpoint with the given policy, keyed by client IP.
// The admission layer itself enforces no limit; endpoints opt in by mounting
// this handler.
func Middleware(limiter *Limiter, policy Policy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		decision := limiter.Check(c.UserContext(), policy, c.IP())
		setRateLimitHeaders(c, decision)
		if !decision.Allowed {
			return apperrors.NewRateLimited(policy.Message, retryAfterSeconds(decision))
		}
		return c.Next()
	}
}

// UserMiddleware layers a per-account window on top of a per-IP one. It must
// run after the admission middleware so the identity is already attached.
func UserMiddleware(limiter *Limiter, policy Policy, userID func(*fiber.Ctx) (int64, bool)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := userID(c)
		if !ok {
			return c.Next()
		}
		decision := limiter.CheckForUser(c.UserContext(), id, policy)
		setRateLimitHeaders(c, decision)
		if !decision.Allowed {
			return apperrors.NewRateLimited(policy.Message, retryAfterSeconds(decision))
		}
		return c.Next()
	}
}

func setRateLimitHeaders(c *fiber.Ctx, decision Decision) {
	c.Set("X-RateLimit-Limit", strconv.FormatInt(decision.Policy.MaxRequests, 10))
	c.Set("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))
	if !decision.Allowed {
		c.Set("Retry-After", strconv.Itoa(retryAfterSeconds(decision)))
	}
}

func retryAfterSeconds(decision Decision) int {
	secs := int(decision.RetryAfter.Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}
