package authz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/admission-core/internal/domain"
	"github.com/spec-kit/admission-core/internal/observability"
	"github.com/spec-kit/admission-core/internal/store"
	apperrors "github.com/spec-kit/admission-core/pkg/util"
)

type fakeDataSource struct {
	permissions      map[int64][]string
	roles            map[int64][]domain.Role
	menus            map[int64][]*domain.MenuNode
	permissionCalls  int
	menuCalls        int
	failPermissions  bool
	failMenus        bool
}

func (f *fakeDataSource) PermissionsForUser(_ context.Context, userID int64) ([]string, error) {
	f.permissionCalls++
	if f.failPermissions {
		return nil, errors.New("data source down")
	}
	return f.permissions[userID], nil
}

func (f *fakeDataSource) RolesForUser(_ context.Context, userID int64) ([]domain.Role, error) {
	return f.roles[userID], nil
}

func (f *fakeDataSource) MenusForUser(_ context.Context, userID int64) ([]*domain.MenuNode, error) {
	f.menuCalls++
	if f.failMenus {
		return nil, errors.New("data source down")
	}
	return f.menus[userID], nil
}

func newTestResolver(t *testing.T, source *fakeDataSource) *Resolver {
	t.Helper()
	memory := store.NewMemoryStore()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	perms := NewPermissionCache(memory, time.Minute, logger, metrics)
	menus := NewMenuCache(memory, time.Minute, logger, metrics)
	sessions := NewSessionCache(memory, time.Minute, logger, metrics)
	return NewResolver(source, perms, menus, sessions, logger, time.Second)
}

func TestEffectivePermissions_CachesAfterFirstLookup(t *testing.T) {
	source := &fakeDataSource{permissions: map[int64][]string{1: {"users.read", "users.write"}}}
	resolver := newTestResolver(t, source)
	ctx := context.Background()

	set, err := resolver.EffectivePermissions(ctx, 1)
	require.NoError(t, err)
	assert.True(t, set.Has("users.read"))
	assert.Equal(t, 1, source.permissionCalls)

	set, err = resolver.EffectivePermissions(ctx, 1)
	require.NoError(t, err)
	assert.True(t, set.Has("users.write"))
	assert.False(t, set.Has("users.delete"))
	assert.Equal(t, 1, source.permissionCalls, "second lookup must hit the cache")
}

func TestInvalidateUser_ForcesRequery(t *testing.T) {
	source := &fakeDataSource{
		permissions: map[int64][]string{1: {"users.read"}},
		menus:       map[int64][]*domain.MenuNode{1: {{ID: 1, Key: "home"}}},
	}
	resolver := newTestResolver(t, source)
	ctx := context.Background()

	_, err := resolver.EffectivePermissions(ctx, 1)
	require.NoError(t, err)
	_, err = resolver.MenuTree(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 1, source.permissionCalls)
	require.Equal(t, 1, source.menuCalls)

	// Simulate an admin revoking the permission.
	source.permissions[1] = nil
	resolver.InvalidateUser(ctx, 1)

	set, err := resolver.EffectivePermissions(ctx, 1)
	require.NoError(t, err)
	assert.False(t, set.Has("users.read"))
	assert.Equal(t, 2, source.permissionCalls)

	_, err = resolver.MenuTree(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, source.menuCalls)
}

func TestEffectivePermissions_FailsClosed(t *testing.T) {
	source := &fakeDataSource{failPermissions: true}
	resolver := newTestResolver(t, source)
	ctx := context.Background()

	_, err := resolver.EffectivePermissions(ctx, 1)
	require.Error(t, err)

	err = resolver.RequirePermission(ctx, 1, "users.read")
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "PERMISSION_DENIED", domainErr.Code)
}

func TestRequireAnyPermission(t *testing.T) {
	source := &fakeDataSource{permissions: map[int64][]string{1: {"reports.view"}}}
	resolver := newTestResolver(t, source)
	ctx := context.Background()

	require.NoError(t, resolver.RequireAnyPermission(ctx, 1, "reports.export", "reports.view"))

	err := resolver.RequireAnyPermission(ctx, 1, "reports.export", "reports.delete")
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "PERMISSION_DENIED", domainErr.Code)
	assert.ElementsMatch(t, []string{"reports.export", "reports.delete"}, domainErr.Details["required_any_of"])
}

func TestRolesDetailed_SortedByLevelDescending(t *testing.T) {
	source := &fakeDataSource{roles: map[int64][]domain.Role{1: {
		{ID: 1, Name: "viewer", Level: 10},
		{ID: 2, Name: "owner", Level: 100},
		{ID: 3, Name: "editor", Level: 50},
	}}}
	resolver := newTestResolver(t, source)

	roles, err := resolver.RolesDetailed(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, roles, 3)
	assert.Equal(t, "owner", roles[0].Name)
	assert.Equal(t, "editor", roles[1].Name)
	assert.Equal(t, "viewer", roles[2].Name)
}

func TestRequireMenuAccess(t *testing.T) {
	parent := int64(1)
	source := &fakeDataSource{menus: map[int64][]*domain.MenuNode{1: {
		{ID: 1, Key: "settings"},
		{ID: 2, Key: "settings.users", ParentID: &parent},
	}}}
	resolver := newTestResolver(t, source)
	ctx := context.Background()

	require.NoError(t, resolver.RequireMenuAccess(ctx, 1, "settings.users"))

	err := resolver.RequireMenuAccess(ctx, 1, "billing")
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "MENU_ACCESS_DENIED", domainErr.Code)
	assert.Equal(t, "billing", domainErr.Details["menu_key"])
}

func TestRequireMenuAccess_FailsClosedOnSourceError(t *testing.T) {
	source := &fakeDataSource{failMenus: true}
	resolver := newTestResolver(t, source)

	err := resolver.RequireMenuAccess(context.Background(), 1, "settings")
	require.Error(t, err)
	assert.Equal(t, "MENU_ACCESS_DENIED", apperrors.ToDomainError(err).Code)
}

func TestMenuTree_MaterializedTreeIsCached(t *testing.T) {
	parent := int64(1)
	source := &fakeDataSource{menus: map[int64][]*domain.MenuNode{1: {
		{ID: 2, Key: "b", ParentID: &parent, SortOrder: 2},
		{ID: 1, Key: "a", SortOrder: 1},
	}}}
	resolver := newTestResolver(t, source)
	ctx := context.Background()

	tree, err := resolver.MenuTree(ctx, 1)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Children, 1)

	cached, err := resolver.MenuTree(ctx, 1)
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, "b", cached[0].Children[0].Key)
	assert.Equal(t, 1, source.menuCalls)
}
