package authz

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/NOIR-Solution/NOIR-sub016/pkg/cache"
)

// permCacheKey builds the cache key for a principal's effective permission set.
func permCacheKey(userID uuid.UUID) string {
	return "perm:" + userID.String()
}

// PermissionService answers claim-based checks: whether a principal holds a
// named permission through any of its assigned roles, directly or inherited.
// Effective sets are cached per principal; cached principals are tracked in
// the invalidation registry so revocations can evict them before the TTL does.
type PermissionService struct {
	users    UserStore
	roles    RoleStore
	resolver *Resolver
	cache    cache.Cache[[]string]
	registry *InvalidationRegistry
	sliding  time.Duration
	absolute time.Duration
	log      *slog.Logger
}

// NewPermissionService creates the claim-check service. Without
// WithPermissionCache it creates its own in-memory cache; pass a shared one
// when an InvalidationRegistry is in play.
func NewPermissionService(users UserStore, roles RoleStore, opts ...Option) *PermissionService {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	permCache := cfg.permCache
	if permCache == nil {
		permCache = cache.NewMemory[[]string]()
	}

	return &PermissionService{
		users:    users,
		roles:    roles,
		resolver: NewResolver(roles, WithLogger(cfg.logger)),
		cache:    permCache,
		registry: cfg.registry,
		sliding:  cfg.permSliding,
		absolute: cfg.permAbsolute,
		log:      cfg.logger,
	}
}

// GetEffectivePermissions returns the union of resolved claim sets across all
// of the principal's roles, sorted and deduplicated. An unknown principal or
// one with no roles yields an empty set. The result is cached; within the TTL
// windows repeated calls do not touch the stores.
func (s *PermissionService) GetEffectivePermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	if userID == uuid.Nil {
		return nil, nil
	}

	return s.cache.GetOrSet(ctx, permCacheKey(userID), func(ctx context.Context) ([]string, error) {
		claims, err := s.computePermissions(ctx, userID)
		if err != nil {
			return nil, err
		}
		if s.registry != nil {
			s.registry.TrackPrincipal(userID)
		}
		return claims, nil
	}, s.sliding, s.absolute)
}

// Authorize reports whether the principal holds the permission. An anonymous
// principal or an unknown permission is a plain deny, never an error; an empty
// permission string is a call-site bug and fails loudly.
func (s *PermissionService) Authorize(ctx context.Context, userID uuid.UUID, permission string) (bool, error) {
	if permission == "" {
		return false, ErrInvalidPermission
	}
	if userID == uuid.Nil {
		return false, nil
	}

	claims, err := s.GetEffectivePermissions(ctx, userID)
	if err != nil {
		return false, err
	}

	// Claims are sorted by normalizeClaims, so membership is a binary search.
	_, found := slices.BinarySearch(claims, permission)
	return found, nil
}

// Invalidate evicts the principal's cached permission set immediately instead
// of waiting for the TTL windows or a registry-driven bulk eviction.
func (s *PermissionService) Invalidate(ctx context.Context, userID uuid.UUID) error {
	return s.cache.Evict(ctx, permCacheKey(userID))
}

func (s *PermissionService) computePermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return []string{}, nil
	}

	roleIDs, err := s.users.GetUserRoles(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	var claims []string
	for _, roleID := range roleIDs {
		role, err := s.roles.FindRoleByID(ctx, roleID)
		if err != nil {
			return nil, err
		}
		if role == nil || role.Deleted {
			continue
		}
		resolved, err := s.resolver.ResolveEffectivePermissions(ctx, role)
		if err != nil {
			return nil, err
		}
		claims = append(claims, resolved...)
	}

	normalized := normalizeClaims(claims)
	if normalized == nil {
		// Cache an empty set, not nil, so "no permissions" is a valid entry.
		normalized = []string{}
	}
	return normalized, nil
}
