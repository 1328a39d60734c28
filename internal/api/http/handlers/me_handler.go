package handlers

import (
	"sort"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/admission-core/internal/admission"
	"github.com/spec-kit/admission-core/internal/authz"
	apperrors "github.com/spec-kit/admission-core/pkg/util"
)

// MeHandler exposes the caller's resolved authorization state.
type MeHandler struct {
	resolver *authz.Resolver
}

// NewMeHandler constructs handler.
func NewMeHandler(resolver *authz.Resolver) *MeHandler {
	return &MeHandler{resolver: resolver}
}

// Permissions handles GET /me/permissions.
func (h *MeHandler) Permissions(c *fiber.Ctx) error {
	identity, ok := admission.IdentityFromContext(c)
	if !ok {
		return apperrors.NewAuthenticationRequired("")
	}

	set, err := h.resolver.EffectivePermissions(c.UserContext(), identity.UserID)
	if err != nil {
		return err
	}
	names := set.Names()
	sort.Strings(names)
	return c.JSON(fiber.Map{"data": fiber.Map{"permissions": names}})
}

// Roles handles GET /me/roles.
func (h *MeHandler) Roles(c *fiber.Ctx) error {
	identity, ok := admission.IdentityFromContext(c)
	if !ok {
		return apperrors.NewAuthenticationRequired("")
	}

	roles, err := h.resolver.RolesDetailed(c.UserContext(), identity.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"roles": roles}})
}

// Menus handles GET /me/menus.
func (h *MeHandler) Menus(c *fiber.Ctx) error {
	identity, ok := admission.IdentityFromContext(c)
	if !ok {
		return apperrors.NewAuthenticationRequired("")
	}

	tree, err := h.resolver.MenuTree(c.UserContext(), identity.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"menus": tree}})
}

// MenuAccess handles GET /me/menus/:key/access.
func (h *MeHandler) MenuAccess(c *fiber.Ctx) error {
	identity, ok := admission.IdentityFromContext(c)
	if !ok {
		return apperrors.NewAuthenticationRequired("")
	}

	if err := h.resolver.RequireMenuAccess(c.UserContext(), identity.UserID, c.Params("key")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
