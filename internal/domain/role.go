package domain

// Role is a named grant attached to a user within a tenant scope.
// Level orders roles; a higher level outranks a lower one.
type Role struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Level       int    `json:"level"`
	CompanyID   int64  `json:"company_id"`
	BranchID    int64  `json:"branch_id"`
}

// TenantScope narrows which tenant data an authenticated user may act upon.
// Produced by an external resolver; the admission core never mutates it.
type TenantScope struct {
	CompanyID int64 `json:"company_id"`
	BranchID  int64 `json:"branch_id"`
	RoleLevel int   `json:"role_level"`
}
