package admission

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/admission-core/internal/config"
	"github.com/spec-kit/admission-core/internal/domain"
	"github.com/spec-kit/admission-core/internal/token"
	apperrors "github.com/spec-kit/admission-core/pkg/util"
)

const identityKey = "admission_identity"

// Headers injected for downstream consumption. They are authoritative only
// because the admission layer sets them after verification; any value a
// caller supplies directly is overwritten before the request proceeds.
const (
	HeaderUserID    = "X-User-ID"
	HeaderUserEmail = "X-User-Email"
	HeaderUserRoles = "X-User-Roles"
)

// AdmissionMiddleware is the single gate every inbound request passes before
// any domain handler runs. It verifies the bearer token with the configured
// verification path and attaches the decoded identity. Rate limits and
// permission checks are opt-in per endpoint, not enforced here.
type AdmissionMiddleware struct {
	codec       *token.Codec
	mode        config.VerifyMode
	publicPaths map[string]struct{}
	cors        config.CORSConfig
	logger      *zap.Logger
}

// NewAdmissionMiddleware constructs the middleware.
func NewAdmissionMiddleware(codec *token.Codec, cfg config.AppConfig, cors config.CORSConfig, mode config.VerifyMode, logger *zap.Logger) *AdmissionMiddleware {
	public := make(map[string]struct{}, len(cfg.PublicPaths))
	for _, path := range cfg.PublicPaths {
		public[path] = struct{}{}
	}
	return &AdmissionMiddleware{
		codec:       codec,
		mode:        mode,
		publicPaths: public,
		cors:        cors,
		logger:      logger,
	}
}

// Handle runs the per-request admission sequence.
func (m *AdmissionMiddleware) Handle(c *fiber.Ctx) error {
	m.applyCORS(c)
	if c.Method() == fiber.MethodOptions {
		return c.SendStatus(fiber.StatusNoContent)
	}

	// Identity headers must only ever originate here.
	c.Request().Header.Del(HeaderUserID)
	c.Request().Header.Del(HeaderUserEmail)
	c.Request().Header.Del(HeaderUserRoles)

	if _, ok := m.publicPaths[c.Path()]; ok {
		return c.Next()
	}

	raw, ok := token.ExtractFromHeader(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return apperrors.NewAuthenticationRequired("missing or malformed authorization header")
	}

	payload, err := m.verify(raw)
	if err != nil {
		m.logger.Info("token rejected", zap.String("path", c.Path()), zap.Error(err))
		return apperrors.NewInvalidToken("")
	}
	if err := token.RequireKind(payload, domain.TokenKindAccess); err != nil {
		return apperrors.NewInvalidToken("access token required")
	}

	identity := domain.Identity{
		UserID:    payload.UserID,
		Email:     payload.Email,
		Roles:     payload.Roles,
		SessionID: payload.SessionID,
	}
	c.Locals(identityKey, identity)

	c.Request().Header.Set(HeaderUserID, strconv.FormatInt(identity.UserID, 10))
	c.Request().Header.Set(HeaderUserEmail, identity.Email)
	if rolesJSON, err := json.Marshal(identity.Roles); err == nil {
		c.Request().Header.Set(HeaderUserRoles, string(rolesJSON))
	}

	return c.Next()
}

// verify dispatches to the verification path matching the configured runtime
// capabilities. Both paths accept and reject the same token universe.
func (m *AdmissionMiddleware) verify(raw string) (*token.Payload, error) {
	if m.mode == config.VerifyModeRestricted {
		payload := m.codec.VerifyRestricted(raw)
		if payload == nil {
			return nil, token.ErrInvalidToken
		}
		return payload, nil
	}
	return m.codec.VerifyFull(raw)
}

func (m *AdmissionMiddleware) applyCORS(c *fiber.Ctx) {
	c.Set(fiber.HeaderAccessControlAllowOrigin, m.cors.AllowedOrigins)
	c.Set(fiber.HeaderAccessControlAllowHeaders, m.cors.AllowedHeaders)
	c.Set(fiber.HeaderAccessControlAllowMethods, m.cors.AllowedMethods)
}

// IdentityFromContext retrieves the verified caller. Handlers read this
// instead of re-parsing the token.
func IdentityFromContext(c *fiber.Ctx) (domain.Identity, bool) {
	identity, ok := c.Locals(identityKey).(domain.Identity)
	return identity, ok
}
