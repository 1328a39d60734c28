package service

import (
	"context"

	"github.com/spec-kit/admission-core/internal/authz"
	"github.com/spec-kit/admission-core/internal/events"
)

// RegisterInvalidationHandlers subscribes the resolver's cache invalidation
// to every authorization mutation event. This is the invalidation contract:
// role or permission mutations clear the affected users' permission, menu and
// session caches instead of waiting for the TTL.
func RegisterInvalidationHandlers(dispatcher events.Dispatcher, resolver *authz.Resolver) {
	dispatcher.Subscribe(events.EventUserRolesChanged, func(ctx context.Context, event events.Event) error {
		if payload, ok := event.Payload.(events.UserRolesChangedPayload); ok {
			resolver.InvalidateUser(ctx, payload.UserID)
		}
		return nil
	})

	dispatcher.Subscribe(events.EventRolePermissionsChanged, func(ctx context.Context, event events.Event) error {
		if payload, ok := event.Payload.(events.RolePermissionsChangedPayload); ok {
			for _, userID := range payload.AffectedUserIDs {
				resolver.InvalidateUser(ctx, userID)
			}
		}
		return nil
	})

	dispatcher.Subscribe(events.EventMenuPermissionsChanged, func(ctx context.Context, event events.Event) error {
		if payload, ok := event.Payload.(events.MenuPermissionsChangedPayload); ok {
			for _, userID := range payload.AffectedUserIDs {
				resolver.InvalidateUser(ctx, userID)
			}
		}
		return nil
	})
}
