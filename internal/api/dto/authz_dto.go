package dto

// ReplaceRolesRequest swaps a user's role assignments.
type ReplaceRolesRequest struct {
	RoleIDs []int64 `json:"role_ids"`
}

// ReplacePermissionsRequest swaps a role's or menu's permission links.
type ReplacePermissionsRequest struct {
	PermissionIDs []int64 `json:"permission_ids"`
}
