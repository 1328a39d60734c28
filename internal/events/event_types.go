package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRolesChanged       EventType = "user_roles_changed"
	EventRolePermissionsChanged EventType = "role_permissions_changed"
	EventMenuPermissionsChanged EventType = "menu_permissions_changed"
	EventUserLoggedIn           EventType = "user_logged_in"
)

// Event represents an authorization mutation emitted by services. Cache
// invalidation subscribes to these; a missed event means a privilege is not
// revoked until the cache TTL runs out.
type Event struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	ActorUserID int64     `json:"actor_user_id"`
	Timestamp   time.Time `json:"timestamp"`
	Payload     any       `json:"payload"`
}

// UserRolesChangedPayload carries the user whose role set mutated.
type UserRolesChangedPayload struct {
	UserID  int64   `json:"user_id"`
	RoleIDs []int64 `json:"role_ids"`
}

// RolePermissionsChangedPayload carries the mutated role and every user
// holding it at mutation time.
type RolePermissionsChangedPayload struct {
	RoleID          int64   `json:"role_id"`
	AffectedUserIDs []int64 `json:"affected_user_ids"`
}

// MenuPermissionsChangedPayload carries the mutated menu and every affected
// user.
type MenuPermissionsChangedPayload struct {
	MenuID          int64   `json:"menu_id"`
	AffectedUserIDs []int64 `json:"affected_user_ids"`
}

// UserLoggedInPayload carries the session opened at login.
type UserLoggedInPayload struct {
	UserID    int64  `json:"user_id"`
	SessionID string `json:"session_id"`
}
