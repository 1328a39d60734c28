package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/admission-core/internal/domain"
)

// AuthzRepository is the Postgres-backed authorization data source. It
// implements authz.DataSource.
type AuthzRepository interface {
	PermissionsForUser(ctx context.Context, userID int64) ([]string, error)
	RolesForUser(ctx context.Context, userID int64) ([]domain.Role, error)
	MenusForUser(ctx context.Context, userID int64) ([]*domain.MenuNode, error)

	ReplaceUserRoles(ctx context.Context, userID int64, roleIDs []int64) error
	ReplaceRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error
	ReplaceMenuPermissions(ctx context.Context, menuID int64, permissionIDs []int64) error
	MenuPermissionIDs(ctx context.Context, menuID int64) ([]int64, error)
	UsersWithRole(ctx context.Context, roleID int64) ([]int64, error)
	UsersWithAnyPermission(ctx context.Context, permissionIDs []int64) ([]int64, error)
}

type authzRepository struct {
	pool *pgxpool.Pool
}

// NewAuthzRepository constructs the repository.
func NewAuthzRepository(pool *pgxpool.Pool) AuthzRepository {
	return &authzRepository{pool: pool}
}

func (r *authzRepository) PermissionsForUser(ctx context.Context, userID int64) ([]string, error) {
	const query = `
        SELECT DISTINCT p.name
        FROM permissions p
        JOIN role_permissions rp ON rp.permission_id = p.id
        JOIN user_roles ur ON ur.role_id = rp.role_id
        WHERE ur.user_id = $1`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *authzRepository) RolesForUser(ctx context.Context, userID int64) ([]domain.Role, error) {
	const query = `
        SELECT r.id, r.name, r.display_name, r.level, r.company_id, r.branch_id
        FROM roles r
        JOIN user_roles ur ON ur.role_id = r.id
        WHERE ur.user_id = $1`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.DisplayName, &role.Level, &role.CompanyID, &role.BranchID); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *authzRepository) MenusForUser(ctx context.Context, userID int64) ([]*domain.MenuNode, error) {
	const query = `
        SELECT DISTINCT m.id, m.menu_key, m.display_name, m.route, m.icon,
               m.parent_menu_id, m.sort_order, m.product, m.visible
        FROM menus m
        JOIN menu_permissions mp ON mp.menu_id = m.id
        JOIN role_permissions rp ON rp.permission_id = mp.permission_id
        JOIN user_roles ur ON ur.role_id = rp.role_id
        WHERE ur.user_id = $1 AND m.visible = TRUE`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []*domain.MenuNode
	for rows.Next() {
		var node domain.MenuNode
		if err := rows.Scan(
			&node.ID,
			&node.Key,
			&node.DisplayName,
			&node.Route,
			&node.Icon,
			&node.ParentID,
			&node.SortOrder,
			&node.Product,
			&node.Visible,
		); err != nil {
			return nil, err
		}
		nodes = append(nodes, &node)
	}
	return nodes, rows.Err()
}

// ReplaceUserRoles swaps the user's role assignments in one transaction.
func (r *authzRepository) ReplaceUserRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	return r.replaceLinks(ctx,
		`DELETE FROM user_roles WHERE user_id=$1`,
		`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)`,
		userID, roleIDs)
}

// ReplaceRolePermissions swaps a role's permission links in one transaction.
func (r *authzRepository) ReplaceRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	return r.replaceLinks(ctx,
		`DELETE FROM role_permissions WHERE role_id=$1`,
		`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)`,
		roleID, permissionIDs)
}

// ReplaceMenuPermissions swaps a menu's permission links in one transaction.
func (r *authzRepository) ReplaceMenuPermissions(ctx context.Context, menuID int64, permissionIDs []int64) error {
	return r.replaceLinks(ctx,
		`DELETE FROM menu_permissions WHERE menu_id=$1`,
		`INSERT INTO menu_permissions (menu_id, permission_id) VALUES ($1, $2)`,
		menuID, permissionIDs)
}

// MenuPermissionIDs lists the permissions currently linked to a menu.
func (r *authzRepository) MenuPermissionIDs(ctx context.Context, menuID int64) ([]int64, error) {
	const query = `SELECT permission_id FROM menu_permissions WHERE menu_id=$1`
	return r.queryIDs(ctx, query, menuID)
}

// UsersWithAnyPermission lists every user holding at least one of the given
// permissions through a role, so menu mutations can fan out invalidation.
func (r *authzRepository) UsersWithAnyPermission(ctx context.Context, permissionIDs []int64) ([]int64, error) {
	if len(permissionIDs) == 0 {
		return nil, nil
	}
	const query = `
        SELECT DISTINCT ur.user_id
        FROM user_roles ur
        JOIN role_permissions rp ON rp.role_id = ur.role_id
        WHERE rp.permission_id = ANY($1)`
	return r.queryIDs(ctx, query, permissionIDs)
}

// UsersWithRole lists every user currently holding the role, so callers can
// fan out cache invalidation after role-permission mutations.
func (r *authzRepository) UsersWithRole(ctx context.Context, roleID int64) ([]int64, error) {
	const query = `SELECT user_id FROM user_roles WHERE role_id=$1`
	return r.queryIDs(ctx, query, roleID)
}

func (r *authzRepository) queryIDs(ctx context.Context, query string, arg any) ([]int64, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *authzRepository) replaceLinks(ctx context.Context, deleteQuery, insertQuery string, ownerID int64, linkIDs []int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, deleteQuery, ownerID); err != nil {
		return err
	}
	for _, linkID := range linkIDs {
		if _, err := tx.Exec(ctx, insertQuery, ownerID, linkID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
