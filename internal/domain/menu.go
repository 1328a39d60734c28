package domain

// MenuNode is one entry of the navigable menu forest. Parent linkage is by id,
// children are resolved by lookup during materialization, so the structure is
// acyclic by construction and serializes without pointer cycles.
type MenuNode struct {
	ID          int64       `json:"id"`
	Key         string      `json:"key"`
	DisplayName string      `json:"display_name"`
	Route       string      `json:"route"`
	Icon        string      `json:"icon,omitempty"`
	ParentID    *int64      `json:"parent_id,omitempty"`
	SortOrder   int         `json:"sort_order"`
	Product     string      `json:"product,omitempty"`
	Visible     bool        `json:"visible"`
	Children    []*MenuNode `json:"children,omitempty"`
	Permissions []string    `json:"permissions,omitempty"`
}
