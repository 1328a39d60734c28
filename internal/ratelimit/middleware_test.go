package ratelimit_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/admission-core/internal/observability"
	"github.com/spec-kit/admission-core/internal/ratelimit"
	"github.com/spec-kit/admission-core/internal/store"
	apperrors "github.com/spec-kit/admission-core/pkg/util"
)

func TestMiddleware_RejectsWithRetryAfter(t *testing.T) {
	limiter := ratelimit.NewLimiter(store.NewMemoryStore(), zap.NewNop(), observability.NewMetrics(), time.Second)
	policy := ratelimit.Policy{Name: "strict", MaxRequests: 2, Window: time.Minute, Message: "slow down"}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    domainErr.Code,
					"message": domainErr.Message,
					"details": domainErr.Details,
				},
			})
		},
	})
	app.Get("/limited", ratelimit.Middleware(limiter, policy), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/limited", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/limited", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var payload struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", payload.Error.Code)
	assert.Equal(t, "slow down", payload.Error.Message)
	assert.Greater(t, payload.Error.Details["retry_after_seconds"].(float64), float64(0))
}
