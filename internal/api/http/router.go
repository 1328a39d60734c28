package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/admission-core/internal/admission"
	"github.com/spec-kit/admission-core/internal/api/http/handlers"
	"github.com/spec-kit/admission-core/internal/authz"
	"github.com/spec-kit/admission-core/internal/ratelimit"
)

// Permissions gating the admin surface.
const (
	PermManageRoles = "admin.roles.manage"
	PermManageMenus = "admin.menus.manage"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health    *handlers.HealthHandler
	Auth      *handlers.AuthHandler
	Me        *handlers.MeHandler
	Admin     *handlers.AdminHandler
	RateLimit *handlers.RateLimitHandler

	Admission *admission.AdmissionMiddleware
	Limiter   *ratelimit.Limiter
	Resolver  *authz.Resolver
}

// RegisterRoutes wires HTTP routes. The admission middleware runs globally;
// rate limits and permission checks are mounted per endpoint class.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Use(cfg.Admission.Handle)

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", ratelimit.Middleware(cfg.Limiter, ratelimit.PolicyRegistration), cfg.Auth.Register)
	authGroup.Post("/login", ratelimit.Middleware(cfg.Limiter, ratelimit.PolicyLogin), cfg.Auth.Login)
	authGroup.Post("/refresh", ratelimit.Middleware(cfg.Limiter, ratelimit.PolicyDefault), cfg.Auth.Refresh)
	authGroup.Post("/password/reset", ratelimit.Middleware(cfg.Limiter, ratelimit.PolicyPasswordReset), cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", ratelimit.Middleware(cfg.Limiter, ratelimit.PolicyPasswordReset), cfg.Auth.ConfirmPasswordReset)

	meGroup := app.Group("/me", ratelimit.Middleware(cfg.Limiter, ratelimit.PolicyGenericRead))
	meGroup.Get("/permissions", cfg.Me.Permissions)
	meGroup.Get("/roles", cfg.Me.Roles)
	meGroup.Get("/menus", cfg.Me.Menus)
	meGroup.Get("/menus/:key/access", cfg.Me.MenuAccess)

	adminGroup := app.Group("/admin", ratelimit.Middleware(cfg.Limiter, ratelimit.PolicyGenericWrite))
	adminGroup.Put("/users/:id/roles",
		admission.RequirePermission(cfg.Resolver, PermManageRoles), cfg.Admin.ReplaceUserRoles)
	adminGroup.Put("/roles/:id/permissions",
		admission.RequirePermission(cfg.Resolver, PermManageRoles), cfg.Admin.ReplaceRolePermissions)
	adminGroup.Put("/menus/:id/permissions",
		admission.RequireAnyPermission(cfg.Resolver, PermManageMenus, PermManageRoles), cfg.Admin.ReplaceMenuPermissions)

	app.Get("/ratelimit/:policy/status", cfg.RateLimit.Status)
}
