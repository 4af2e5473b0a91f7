package authz

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

type shareKey struct {
	resourceType string
	resourceID   uuid.UUID
	userID       uuid.UUID
}

// MemoryStore is an in-memory implementation of RoleStore, UserStore, and
// ShareStore. It is thread-safe and returns copies of stored slices, which
// makes it suitable for tests and single-process applications.
type MemoryStore struct {
	mu        sync.RWMutex
	roles     map[uuid.UUID]Role
	claims    map[uuid.UUID][]string
	users     map[uuid.UUID]User
	userRoles map[uuid.UUID][]uuid.UUID
	shares    map[shareKey]Share
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		roles:     make(map[uuid.UUID]Role),
		claims:    make(map[uuid.UUID][]string),
		users:     make(map[uuid.UUID]User),
		userRoles: make(map[uuid.UUID][]uuid.UUID),
		shares:    make(map[shareKey]Share),
	}
}

// FindRoleByID returns the role or (nil, nil) when absent.
func (s *MemoryStore) FindRoleByID(_ context.Context, id uuid.UUID) (*Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	role, ok := s.roles[id]
	if !ok {
		return nil, nil
	}
	return &role, nil
}

// FindRoleByName returns the role with the exact name or (nil, nil).
func (s *MemoryStore) FindRoleByName(_ context.Context, name string) (*Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, role := range s.roles {
		if role.Name == name {
			r := role
			return &r, nil
		}
	}
	return nil, nil
}

// GetRoleClaims returns a copy of the role's direct claims.
func (s *MemoryStore) GetRoleClaims(_ context.Context, roleID uuid.UUID) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.claims[roleID]), nil
}

// FindUserByID returns the user or (nil, nil) when absent.
func (s *MemoryStore) FindUserByID(_ context.Context, id uuid.UUID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

// GetUserRoles returns a copy of the user's assigned role ids.
func (s *MemoryStore) GetUserRoles(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.userRoles[userID]), nil
}

// FindShare returns the share for the triple or (nil, nil).
func (s *MemoryStore) FindShare(_ context.Context, resourceType string, resourceID, userID uuid.UUID) (*Share, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	share, ok := s.shares[shareKey{resourceType, resourceID, userID}]
	if !ok {
		return nil, nil
	}
	return &share, nil
}

// ListShares returns all shares of the given resource type held by the user.
func (s *MemoryStore) ListShares(_ context.Context, userID uuid.UUID, resourceType string) ([]Share, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Share
	for key, share := range s.shares {
		if key.userID == userID && key.resourceType == resourceType {
			out = append(out, share)
		}
	}
	return out, nil
}

// UpsertRole creates or replaces a role and its direct claims.
func (s *MemoryStore) UpsertRole(role Role, claims ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[role.ID] = role
	s.claims[role.ID] = slices.Clone(claims)
}

// MarkRoleDeleted soft-deletes a role; resolvers treat it as absent.
func (s *MemoryStore) MarkRoleDeleted(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if role, ok := s.roles[id]; ok {
		role.Deleted = true
		s.roles[id] = role
	}
}

// UpsertUser creates or replaces a user.
func (s *MemoryStore) UpsertUser(user User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

// AssignRole adds a role to a user's assignments; duplicates are ignored.
func (s *MemoryStore) AssignRole(userID, roleID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.userRoles[userID], roleID) {
		return
	}
	s.userRoles[userID] = append(s.userRoles[userID], roleID)
}

// UnassignRole removes a role from a user's assignments.
func (s *MemoryStore) UnassignRole(userID, roleID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userRoles[userID] = slices.DeleteFunc(s.userRoles[userID], func(id uuid.UUID) bool {
		return id == roleID
	})
}

// GrantShare creates or replaces the share for its triple.
func (s *MemoryStore) GrantShare(share Share) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shares[shareKey{share.ResourceType, share.ResourceID, share.UserID}] = share
}

// RevokeShare removes the share for the triple if present.
func (s *MemoryStore) RevokeShare(resourceType string, resourceID, userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.shares, shareKey{resourceType, resourceID, userID})
}
