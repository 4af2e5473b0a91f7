package authz_test

import (
	"context"
	"os"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/NOIR-Solution/NOIR-sub016/pkg/authz"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}

// testResource is a minimal Resource implementation for tests.
type testResource struct {
	id     uuid.UUID
	typ    string
	owner  uuid.UUID
	parent *authz.ParentRef
}

func (r testResource) ResourceID() uuid.UUID { return r.id }
func (r testResource) ResourceType() string  { return r.typ }
func (r testResource) OwnerID() uuid.UUID    { return r.owner }
func (r testResource) Parent() (authz.ParentRef, bool) {
	if r.parent == nil {
		return authz.ParentRef{}, false
	}
	return *r.parent, true
}

// spyStore wraps MemoryStore and counts storage lookups, so tests can assert
// that cache hits do not touch the stores.
type spyStore struct {
	*authz.MemoryStore
	findUserCalls  atomic.Int64
	roleClaimCalls atomic.Int64
	findShareCalls atomic.Int64
}

func newSpyStore() *spyStore {
	return &spyStore{MemoryStore: authz.NewMemoryStore()}
}

func (s *spyStore) FindUserByID(ctx context.Context, id uuid.UUID) (*authz.User, error) {
	s.findUserCalls.Add(1)
	return s.MemoryStore.FindUserByID(ctx, id)
}

func (s *spyStore) GetRoleClaims(ctx context.Context, roleID uuid.UUID) ([]string, error) {
	s.roleClaimCalls.Add(1)
	return s.MemoryStore.GetRoleClaims(ctx, roleID)
}

func (s *spyStore) FindShare(ctx context.Context, resourceType string, resourceID, userID uuid.UUID) (*authz.Share, error) {
	s.findShareCalls.Add(1)
	return s.MemoryStore.FindShare(ctx, resourceType, resourceID, userID)
}

// failingRoleStore returns the configured error from every lookup.
type failingRoleStore struct {
	err error
}

func (s failingRoleStore) FindRoleByID(context.Context, uuid.UUID) (*authz.Role, error) {
	return nil, s.err
}

func (s failingRoleStore) FindRoleByName(context.Context, string) (*authz.Role, error) {
	return nil, s.err
}

func (s failingRoleStore) GetRoleClaims(context.Context, uuid.UUID) ([]string, error) {
	return nil, s.err
}

// mapLoader serves resources for the multi-level inheritance walk.
type mapLoader map[authz.ParentRef]authz.Resource

func (l mapLoader) LoadResource(_ context.Context, ref authz.ParentRef) (authz.Resource, error) {
	res, ok := l[ref]
	if !ok {
		return nil, nil
	}
	return res, nil
}

// seedRoleChain creates viewer <- editor (editor inherits viewer's claims)
// and returns their ids.
func seedRoleChain(store interface {
	UpsertRole(authz.Role, ...string)
}) (viewerID, editorID uuid.UUID) {
	viewerID = uuid.New()
	editorID = uuid.New()
	store.UpsertRole(authz.Role{ID: viewerID, Name: "viewer"}, "content:read")
	store.UpsertRole(authz.Role{ID: editorID, Name: "editor", ParentID: &viewerID}, "content:write")
	return viewerID, editorID
}
