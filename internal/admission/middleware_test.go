package admission_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/admission-core/internal/admission"
	"github.com/spec-kit/admission-core/internal/config"
	"github.com/spec-kit/admission-core/internal/domain"
	"github.com/spec-kit/admission-core/internal/token"
	apperrors "github.com/spec-kit/admission-core/pkg/util"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:              "test-secret",
		Issuer:                 "admission-core",
		Audience:               "platform-api",
		AccessTokenTTLMinutes:  15,
		RefreshTokenTTLMinutes: 60,
	}
}

func newTestApp(t *testing.T, codec *token.Codec, mode config.VerifyMode) *fiber.App {
	t.Helper()

	middleware := admission.NewAdmissionMiddleware(codec, config.AppConfig{
		PublicPaths: []string{"/public"},
	}, config.CORSConfig{AllowedOrigins: "*"}, mode, zap.NewNop())

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{
				"error": fiber.Map{"code": domainErr.Code, "message": domainErr.Message},
			})
		},
	})
	app.Use(middleware.Handle)

	echo := func(c *fiber.Ctx) error {
		identity, _ := admission.IdentityFromContext(c)
		return c.JSON(fiber.Map{
			"user_id":      identity.UserID,
			"email":        identity.Email,
			"roles":        identity.Roles,
			"header_id":    c.Get(admission.HeaderUserID),
			"header_email": c.Get(admission.HeaderUserEmail),
			"header_roles": c.Get(admission.HeaderUserRoles),
		})
	}
	app.Get("/public", echo)
	app.Get("/protected", echo)
	return app
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	return payload.Error.Code
}

func TestAdmission_MissingOrMalformedHeader(t *testing.T) {
	codec := token.NewCodec(testAuthConfig())
	app := newTestApp(t, codec, config.VerifyModeFull)

	cases := map[string]string{
		"missing":      "",
		"wrong scheme": "Basic abc",
		"no token":     "Bearer",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, "AUTHENTICATION_REQUIRED", errorCode(t, resp))
		})
	}
}

func TestAdmission_InvalidToken(t *testing.T) {
	codec := token.NewCodec(testAuthConfig())
	app := newTestApp(t, codec, config.VerifyModeFull)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "INVALID_TOKEN", errorCode(t, resp))
}

func TestAdmission_RefreshTokenRejectedAtGate(t *testing.T) {
	codec := token.NewCodec(testAuthConfig())
	app := newTestApp(t, codec, config.VerifyModeFull)

	refresh, _, err := codec.Issue(domain.TokenKindRefresh, 1, "a@b.com", nil, "")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "INVALID_TOKEN", errorCode(t, resp))
}

func TestAdmission_AttachesIdentityAndHeaders(t *testing.T) {
	for _, mode := range []config.VerifyMode{config.VerifyModeFull, config.VerifyModeRestricted} {
		t.Run(string(mode), func(t *testing.T) {
			codec := token.NewCodec(testAuthConfig())
			app := newTestApp(t, codec, mode)

			access, _, err := codec.Issue(domain.TokenKindAccess, 42, "amir@example.com", []string{"admin"}, "sess-1")
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set("Authorization", "Bearer "+access)
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, resp.StatusCode)

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			var payload struct {
				UserID      int64    `json:"user_id"`
				Email       string   `json:"email"`
				Roles       []string `json:"roles"`
				HeaderID    string   `json:"header_id"`
				HeaderEmail string   `json:"header_email"`
				HeaderRoles string   `json:"header_roles"`
			}
			require.NoError(t, json.Unmarshal(body, &payload))
			assert.Equal(t, int64(42), payload.UserID)
			assert.Equal(t, "amir@example.com", payload.Email)
			assert.Equal(t, []string{"admin"}, payload.Roles)
			assert.Equal(t, "42", payload.HeaderID)
			assert.Equal(t, "amir@example.com", payload.HeaderEmail)
			assert.JSONEq(t, `["admin"]`, payload.HeaderRoles)
		})
	}
}

func TestAdmission_PublicPathSkipsVerification(t *testing.T) {
	codec := token.NewCodec(testAuthConfig())
	app := newTestApp(t, codec, config.VerifyModeFull)

	req := httptest.NewRequest(http.MethodGet, "/public", nil)
	// A caller-supplied identity header must never survive the gate.
	req.Header.Set(admission.HeaderUserID, "999")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var payload struct {
		HeaderID string `json:"header_id"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Empty(t, payload.HeaderID)
}

func TestAdmission_CORSPreflight(t *testing.T) {
	codec := token.NewCodec(testAuthConfig())
	app := newTestApp(t, codec, config.VerifyModeFull)

	req := httptest.NewRequest(http.MethodOptions, "/protected", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
}
