package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/admission-core/internal/ratelimit"
)

// RateLimitHandler exposes read-only window introspection. Checking status
// never consumes quota.
type RateLimitHandler struct {
	limiter *ratelimit.Limiter
}

// NewRateLimitHandler constructs handler.
func NewRateLimitHandler(limiter *ratelimit.Limiter) *RateLimitHandler {
	return &RateLimitHandler{limiter: limiter}
}

// Status handles GET /ratelimit/:policy/status.
func (h *RateLimitHandler) Status(c *fiber.Ctx) error {
	policy, ok := ratelimit.PolicyByName(c.Params("policy"))
	if !ok {
		return fiber.NewError(http.StatusNotFound, "unknown policy")
	}

	status, err := h.limiter.Status(c.UserContext(), policy, c.IP())
	if err != nil {
		return err
	}

	response := fiber.Map{
		"policy":    policy.Name,
		"max":       policy.MaxRequests,
		"window":    policy.Window.String(),
		"used":      status.Used,
		"remaining": status.Remaining,
	}
	if status.OldestAt != nil {
		response["oldest_at"] = status.OldestAt
	}
	return c.JSON(fiber.Map{"data": response})
}
