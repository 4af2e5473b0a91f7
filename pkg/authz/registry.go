package authz

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/NOIR-Solution/NOIR-sub016/pkg/cache"
)

// InvalidationRegistry is the process-wide bridge between mutation flows and
// the engine's caches. The permission service registers every principal it
// caches; mutation commands call the Invalidate methods after a successful
// write so revocations take effect before the TTL windows would expire them.
//
// The registry holds no persistent state. An empty registry at startup is
// safe: invalidation events are no-ops until cache traffic repopulates it.
type InvalidationRegistry struct {
	mu      sync.Mutex
	tracked map[uuid.UUID]struct{}

	users  UserStore
	roles  RoleStore
	perms  cache.Cache[[]string]
	shares cache.Cache[ShareLookup]
	log    *slog.Logger
}

// NewInvalidationRegistry creates a registry over the two engine caches. The
// cache instances must be the same ones the services were built with.
func NewInvalidationRegistry(users UserStore, roles RoleStore, perms cache.Cache[[]string], shares cache.Cache[ShareLookup], opts ...Option) *InvalidationRegistry {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &InvalidationRegistry{
		tracked: make(map[uuid.UUID]struct{}),
		users:   users,
		roles:   roles,
		perms:   perms,
		shares:  shares,
		log:     cfg.logger,
	}
}

// TrackPrincipal records that a principal's permission set is currently cached.
func (r *InvalidationRegistry) TrackPrincipal(userID uuid.UUID) {
	if userID == uuid.Nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracked[userID] = struct{}{}
}

// TrackedPrincipals returns a snapshot of currently tracked principal ids.
func (r *InvalidationRegistry) TrackedPrincipals() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uuid.UUID, 0, len(r.tracked))
	for id := range r.tracked {
		out = append(out, id)
	}
	return out
}

// InvalidatePrincipal evicts one principal's cached permission set.
func (r *InvalidationRegistry) InvalidatePrincipal(ctx context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	delete(r.tracked, userID)
	r.mu.Unlock()
	return r.perms.Evict(ctx, permCacheKey(userID))
}

// InvalidateAllPrincipals drains the registry, evicting every tracked
// principal's permission set. Used for bulk "permissions changed" events.
func (r *InvalidationRegistry) InvalidateAllPrincipals(ctx context.Context) error {
	r.mu.Lock()
	drained := make([]uuid.UUID, 0, len(r.tracked))
	for id := range r.tracked {
		drained = append(drained, id)
	}
	r.tracked = make(map[uuid.UUID]struct{})
	r.mu.Unlock()

	var errs []error
	for _, id := range drained {
		if err := r.perms.Evict(ctx, permCacheKey(id)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// InvalidateRole evicts every tracked principal whose effective permissions
// can involve the role, either by direct assignment or because the role is an
// ancestor of an assigned one. Called after a role's claims or parent change.
func (r *InvalidationRegistry) InvalidateRole(ctx context.Context, roleID uuid.UUID) error {
	var errs []error
	for _, userID := range r.TrackedPrincipals() {
		affected, err := r.holdsRole(ctx, userID, roleID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if affected {
			if err := r.InvalidatePrincipal(ctx, userID); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// InvalidateResource evicts every user's cached share lookups for a resource.
// Called after a share grant or revocation on it.
func (r *InvalidationRegistry) InvalidateResource(ctx context.Context, resourceType string, resourceID uuid.UUID) error {
	return r.shares.EvictPrefix(ctx, shareCachePrefix(resourceType, resourceID))
}

// holdsRole reports whether the role appears anywhere in the user's assigned
// roles or their ancestor chains. Uses the same visited-set guard as the
// resolver since parent links are admin-editable.
func (r *InvalidationRegistry) holdsRole(ctx context.Context, userID, roleID uuid.UUID) (bool, error) {
	assigned, err := r.users.GetUserRoles(ctx, userID)
	if err != nil {
		return false, err
	}

	visited := make(map[uuid.UUID]struct{})
	for _, id := range assigned {
		current := id
		for {
			if current == roleID {
				return true, nil
			}
			if _, seen := visited[current]; seen {
				break
			}
			visited[current] = struct{}{}

			role, err := r.roles.FindRoleByID(ctx, current)
			if err != nil {
				return false, err
			}
			if role == nil || role.Deleted || role.ParentID == nil {
				break
			}
			current = *role.ParentID
		}
	}
	return false, nil
}
