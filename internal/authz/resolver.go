package authz

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/admission-core/internal/domain"
	apperrors "github.com/spec-kit/admission-core/pkg/util"
)

// Resolver turns a user identity into an effective permission set, a role
// list and a navigable menu forest, consulting the caches first.
//
// Availability asymmetry: a data-source failure here denies, never grants. A
// cache failure only degrades to a data-source read.
type Resolver struct {
	source       DataSource
	perms        *PermissionCache
	menus        *MenuCache
	sessions     *SessionCache
	logger       *zap.Logger
	queryTimeout time.Duration
}

// NewResolver wires the resolver to its data source and caches. The session
// cache may be nil when session state is not tracked.
func NewResolver(source DataSource, perms *PermissionCache, menus *MenuCache, sessions *SessionCache, logger *zap.Logger, queryTimeout time.Duration) *Resolver {
	if queryTimeout <= 0 {
		queryTimeout = 3 * time.Second
	}
	return &Resolver{
		source:       source,
		perms:        perms,
		menus:        menus,
		sessions:     sessions,
		logger:       logger,
		queryTimeout: queryTimeout,
	}
}

// EffectivePermissions returns the user's flattened permission set. Cache
// misses repopulate under the cache TTL; concurrent misses may both query and
// both write equivalent data, which is harmless.
func (r *Resolver) EffectivePermissions(ctx context.Context, userID int64) (PermissionSet, error) {
	if names, ok := r.perms.Get(ctx, userID); ok {
		return NewPermissionSet(names), nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	names, err := r.source.PermissionsForUser(ctx, userID)
	if err != nil {
		r.logger.Error("permission lookup failed", zap.Int64("user_id", userID), zap.Error(err))
		return nil, err
	}
	sort.Strings(names)
	r.perms.Put(ctx, userID, names)
	return NewPermissionSet(names), nil
}

// RolesDetailed returns the user's roles sorted by level descending, so the
// first element is always the primary role. Not cached; wrap it if a hot
// caller needs that.
func (r *Resolver) RolesDetailed(ctx context.Context, userID int64) ([]domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	roles, err := r.source.RolesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(roles, func(i, j int) bool {
		return roles[i].Level > roles[j].Level
	})
	return roles, nil
}

// MenuTree returns the user's materialized menu forest, cache-first.
func (r *Resolver) MenuTree(ctx context.Context, userID int64) ([]*domain.MenuNode, error) {
	if tree, ok := r.menus.Get(ctx, userID); ok {
		return tree, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	rows, err := r.source.MenusForUser(ctx, userID)
	if err != nil {
		r.logger.Error("menu lookup failed", zap.Int64("user_id", userID), zap.Error(err))
		return nil, err
	}
	tree := BuildMenuTree(rows)
	r.menus.Put(ctx, userID, tree)
	return tree, nil
}

// RequirePermission fails with a PermissionError naming the permission when
// the user does not hold it. Lookup failures deny.
func (r *Resolver) RequirePermission(ctx context.Context, userID int64, name string) error {
	return r.RequireAnyPermission(ctx, userID, name)
}

// RequireAnyPermission succeeds when the user holds at least one of the named
// permissions and fails naming all candidates otherwise.
func (r *Resolver) RequireAnyPermission(ctx context.Context, userID int64, names ...string) error {
	set, err := r.EffectivePermissions(ctx, userID)
	if err != nil {
		// Fail closed: an unavailable data source must never grant.
		return apperrors.NewPermissionDenied(names...)
	}
	for _, name := range names {
		if set.Has(name) {
			return nil
		}
	}
	return apperrors.NewPermissionDenied(names...)
}

// RequireMenuAccess fails with a MenuAccessError naming the key when no node
// in the user's forest carries it.
func (r *Resolver) RequireMenuAccess(ctx context.Context, userID int64, menuKey string) error {
	tree, err := r.MenuTree(ctx, userID)
	if err != nil {
		return apperrors.NewMenuAccessDenied(menuKey)
	}
	if !findMenuKey(tree, menuKey) {
		return apperrors.NewMenuAccessDenied(menuKey)
	}
	return nil
}

// InvalidateUser clears the user's permission, menu and session cache
// entries. Any external mutation of roles, role-permission links or
// menu-permission links must call this; stale entries here mean a privilege
// is not revoked promptly.
func (r *Resolver) InvalidateUser(ctx context.Context, userID int64) {
	if err := r.perms.Invalidate(ctx, userID); err != nil {
		r.logger.Warn("permission cache invalidation failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	if err := r.menus.Invalidate(ctx, userID); err != nil {
		r.logger.Warn("menu cache invalidation failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	if r.sessions != nil {
		if err := r.sessions.Invalidate(ctx, userID); err != nil {
			r.logger.Warn("session cache invalidation failed", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
}
