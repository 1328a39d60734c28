package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/admission-core/internal/admission"
	"github.com/spec-kit/admission-core/internal/api/dto"
	"github.com/spec-kit/admission-core/internal/service"
	apperrors "github.com/spec-kit/admission-core/pkg/util"
)

// AdminHandler exposes role and permission mutation endpoints. Every
// mutation publishes an event that invalidates the affected users' caches.
type AdminHandler struct {
	admin *service.AuthzAdminService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(admin *service.AuthzAdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// ReplaceUserRoles handles PUT /admin/users/:id/roles.
func (h *AdminHandler) ReplaceUserRoles(c *fiber.Ctx) error {
	identity, ok := admission.IdentityFromContext(c)
	if !ok {
		return apperrors.NewAuthenticationRequired("")
	}
	userID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req dto.ReplaceRolesRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	if err := h.admin.ReplaceUserRoles(c.UserContext(), identity.UserID, userID, req.RoleIDs); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"user_id": userID, "role_ids": req.RoleIDs}})
}

// ReplaceRolePermissions handles PUT /admin/roles/:id/permissions.
func (h *AdminHandler) ReplaceRolePermissions(c *fiber.Ctx) error {
	identity, ok := admission.IdentityFromContext(c)
	if !ok {
		return apperrors.NewAuthenticationRequired("")
	}
	roleID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req dto.ReplacePermissionsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	if err := h.admin.ReplaceRolePermissions(c.UserContext(), identity.UserID, roleID, req.PermissionIDs); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"role_id": roleID, "permission_ids": req.PermissionIDs}})
}

// ReplaceMenuPermissions handles PUT /admin/menus/:id/permissions.
func (h *AdminHandler) ReplaceMenuPermissions(c *fiber.Ctx) error {
	identity, ok := admission.IdentityFromContext(c)
	if !ok {
		return apperrors.NewAuthenticationRequired("")
	}
	menuID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req dto.ReplacePermissionsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	if err := h.admin.ReplaceMenuPermissions(c.UserContext(), identity.UserID, menuID, req.PermissionIDs); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"menu_id": menuID, "permission_ids": req.PermissionIDs}})
}

func pathID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}
