package authz

import (
	"context"
	"log/slog"
	"slices"

	"github.com/google/uuid"
)

// Resolver computes the transitive closure of permission claims for a role by
// walking parent links. It only reads role data; roles are administered
// elsewhere.
type Resolver struct {
	roles RoleStore
	log   *slog.Logger
}

// NewResolver creates a role hierarchy resolver.
func NewResolver(roles RoleStore, opts ...Option) *Resolver {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Resolver{
		roles: roles,
		log:   cfg.logger,
	}
}

// ResolveEffectivePermissions returns the union of the role's direct claims
// and every ancestor's claims, deduplicated and sorted. The walk tolerates a
// cycle in stored data: the cycle-closing edge contributes nothing, and the
// event is logged. A missing or deleted parent ends the walk; it is not an
// error. Storage failures propagate unchanged.
func (r *Resolver) ResolveEffectivePermissions(ctx context.Context, role *Role) ([]string, error) {
	if role == nil {
		return nil, nil
	}

	visited := make(map[uuid.UUID]struct{})
	var claims []string

	for current := role; current != nil; {
		if _, seen := visited[current.ID]; seen {
			r.log.WarnContext(ctx, "cycle detected in role hierarchy",
				slog.String("role_id", current.ID.String()),
				slog.String("role_name", current.Name))
			break
		}
		visited[current.ID] = struct{}{}

		direct, err := r.roles.GetRoleClaims(ctx, current.ID)
		if err != nil {
			return nil, err
		}
		claims = append(claims, direct...)

		if current.ParentID == nil {
			break
		}
		parent, err := r.roles.FindRoleByID(ctx, *current.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil || parent.Deleted {
			break
		}
		current = parent
	}

	return normalizeClaims(claims), nil
}

// normalizeClaims sorts and deduplicates claims. Comparison is exact string
// equality; there is no wildcard or case normalization.
func normalizeClaims(claims []string) []string {
	if len(claims) == 0 {
		return nil
	}
	out := slices.Clone(claims)
	slices.Sort(out)
	return slices.Compact(out)
}
