package authz

import (
	"context"

	"github.com/google/uuid"
)

// Role is a node in the single-parent role forest. Claims are not embedded;
// they are fetched through RoleStore.GetRoleClaims so claim storage can live
// in its own table.
type Role struct {
	ID       uuid.UUID
	Name     string
	ParentID *uuid.UUID
	Deleted  bool
}

// User is a principal with zero or more assigned roles. Role assignments are
// fetched through UserStore.GetUserRoles.
type User struct {
	ID   uuid.UUID
	Name string
}

// Share grants one user a permission level on one resource. At most one share
// exists per (resource type, resource id, user) triple.
type Share struct {
	ResourceType string    `json:"resource_type"`
	ResourceID   uuid.UUID `json:"resource_id"`
	UserID       uuid.UUID `json:"user_id"`
	Level        Level     `json:"level"`
}

// ParentRef identifies a resource's parent for share inheritance.
type ParentRef struct {
	ResourceType string
	ResourceID   uuid.UUID
}

// Resource is the capability any entity implements to participate in
// resource-level authorization. Parent returns false when the resource has no
// parent to inherit shares from.
type Resource interface {
	ResourceID() uuid.UUID
	ResourceType() string
	OwnerID() uuid.UUID
	Parent() (ParentRef, bool)
}

// ResourceAccess pairs a resource id with the permission level granted on it.
type ResourceAccess struct {
	ResourceID uuid.UUID `json:"resource_id"`
	Level      Level     `json:"level"`
}

// RoleStore provides read access to the role hierarchy. A missing role is
// (nil, nil), never an error.
type RoleStore interface {
	FindRoleByID(ctx context.Context, id uuid.UUID) (*Role, error)
	FindRoleByName(ctx context.Context, name string) (*Role, error)
	GetRoleClaims(ctx context.Context, roleID uuid.UUID) ([]string, error)
}

// UserStore provides read access to principals and their role assignments.
// A missing user is (nil, nil), never an error.
type UserStore interface {
	FindUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserRoles(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// ShareStore provides read access to resource shares. A missing share is
// (nil, nil), never an error.
type ShareStore interface {
	FindShare(ctx context.Context, resourceType string, resourceID, userID uuid.UUID) (*Share, error)
	ListShares(ctx context.Context, userID uuid.UUID, resourceType string) ([]Share, error)
}

// ResourceLoader fetches a resource by reference. Supplying one to the
// ResourceService extends share inheritance beyond the immediate parent.
// A missing resource is (nil, nil), never an error.
type ResourceLoader interface {
	LoadResource(ctx context.Context, ref ParentRef) (Resource, error)
}
