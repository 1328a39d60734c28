package admission

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/admission-core/internal/authz"
	apperrors "github.com/spec-kit/admission-core/pkg/util"
)

// RequirePermission gates an endpoint on one permission name.
func RequirePermission(resolver *authz.Resolver, name string) fiber.Handler {
	return RequireAnyPermission(resolver, name)
}

// RequireAnyPermission gates an endpoint on at least one of the named
// permissions.
func RequireAnyPermission(resolver *authz.Resolver, names ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return apperrors.NewAuthenticationRequired("")
		}
		if err := resolver.RequireAnyPermission(c.UserContext(), identity.UserID, names...); err != nil {
			return err
		}
		return c.Next()
	}
}

// RequireMenuAccess gates an endpoint on the caller's menu forest containing
// the given key.
func RequireMenuAccess(resolver *authz.Resolver, menuKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return apperrors.NewAuthenticationRequired("")
		}
		if err := resolver.RequireMenuAccess(c.UserContext(), identity.UserID, menuKey); err != nil {
			return err
		}
		return c.Next()
	}
}
