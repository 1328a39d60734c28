package authz

import (
	"context"

	"github.com/spec-kit/admission-core/internal/domain"
)

// DataSource supplies raw authorization rows from the relational store. The
// resolver consumes it cache-first; implementations live in the repository
// layer.
type DataSource interface {
	// PermissionsForUser returns the flattened permission names a user holds
	// through all of their role assignments.
	PermissionsForUser(ctx context.Context, userID int64) ([]string, error)
	// RolesForUser returns every role assigned to the user.
	RolesForUser(ctx context.Context, userID int64) ([]domain.Role, error)
	// MenusForUser returns the flat list of menu rows the user may access.
	// Children are not populated; the resolver materializes the forest.
	MenusForUser(ctx context.Context, userID int64) ([]*domain.MenuNode, error)
}

// PermissionSet is the effective permission set of one user.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from permission names.
func NewPermissionSet(names []string) PermissionSet {
	set := make(PermissionSet, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

// Has reports membership.
func (s PermissionSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Names returns the set as a slice.
func (s PermissionSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	return names
}
