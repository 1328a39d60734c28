package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/admission-core/internal/events"
	"github.com/spec-kit/admission-core/internal/repository"
)

// AuthzAdminService applies role and permission mutations and publishes the
// events that drive cache invalidation. Every mutation here must end in an
// invalidation for each affected user; otherwise a revoked privilege survives
// until the cache TTL runs out.
type AuthzAdminService struct {
	repo       repository.AuthzRepository
	dispatcher events.Dispatcher
}

// NewAuthzAdminService builds the service.
func NewAuthzAdminService(repo repository.AuthzRepository, dispatcher events.Dispatcher) *AuthzAdminService {
	return &AuthzAdminService{repo: repo, dispatcher: dispatcher}
}

// ReplaceUserRoles swaps a user's role set.
func (s *AuthzAdminService) ReplaceUserRoles(ctx context.Context, actorID, userID int64, roleIDs []int64) error {
	if err := s.repo.ReplaceUserRoles(ctx, userID, roleIDs); err != nil {
		return err
	}
	return s.dispatcher.Publish(ctx, events.Event{
		ID:          uuid.NewString(),
		Type:        events.EventUserRolesChanged,
		ActorUserID: actorID,
		Timestamp:   time.Now(),
		Payload:     events.UserRolesChangedPayload{UserID: userID, RoleIDs: roleIDs},
	})
}

// ReplaceRolePermissions swaps a role's permission links and fans the change
// out to every user holding the role.
func (s *AuthzAdminService) ReplaceRolePermissions(ctx context.Context, actorID, roleID int64, permissionIDs []int64) error {
	affected, err := s.repo.UsersWithRole(ctx, roleID)
	if err != nil {
		return err
	}
	if err := s.repo.ReplaceRolePermissions(ctx, roleID, permissionIDs); err != nil {
		return err
	}
	return s.dispatcher.Publish(ctx, events.Event{
		ID:          uuid.NewString(),
		Type:        events.EventRolePermissionsChanged,
		ActorUserID: actorID,
		Timestamp:   time.Now(),
		Payload:     events.RolePermissionsChangedPayload{RoleID: roleID, AffectedUserIDs: affected},
	})
}

// ReplaceMenuPermissions swaps a menu's permission links. Affected users are
// those reaching the old or the new permission set through a role; both sides
// must see their menu cache drop.
func (s *AuthzAdminService) ReplaceMenuPermissions(ctx context.Context, actorID, menuID int64, permissionIDs []int64) error {
	oldIDs, err := s.repo.MenuPermissionIDs(ctx, menuID)
	if err != nil {
		return err
	}
	affected, err := s.repo.UsersWithAnyPermission(ctx, unionIDs(oldIDs, permissionIDs))
	if err != nil {
		return err
	}
	if err := s.repo.ReplaceMenuPermissions(ctx, menuID, permissionIDs); err != nil {
		return err
	}
	return s.dispatcher.Publish(ctx, events.Event{
		ID:          uuid.NewString(),
		Type:        events.EventMenuPermissionsChanged,
		ActorUserID: actorID,
		Timestamp:   time.Now(),
		Payload:     events.MenuPermissionsChangedPayload{MenuID: menuID, AffectedUserIDs: affected},
	})
}

func unionIDs(a, b []int64) []int64 {
	seen := make(map[int64]struct{}, len(a)+len(b))
	var out []int64
	for _, id := range append(append([]int64{}, a...), b...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
