package authz

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/NOIR-Solution/NOIR-sub016/pkg/cache"
)

// maxResourceDepth caps the ancestor walk when a ResourceLoader is configured.
const maxResourceDepth = 10

// ShareLookup is the cached result of a direct-share lookup for one
// (resource type, resource id, user) triple. Found is false when no share row
// exists, so "no access" is cached like any other answer.
type ShareLookup struct {
	Found bool  `json:"found"`
	Level Level `json:"level"`
}

// shareCacheKey builds the cache key for one direct-share lookup.
func shareCacheKey(resourceType string, resourceID, userID uuid.UUID) string {
	return "resource_perm:" + resourceType + ":" + resourceID.String() + ":" + userID.String()
}

// shareCachePrefix covers every user's cached lookups for one resource.
func shareCachePrefix(resourceType string, resourceID uuid.UUID) string {
	return "resource_perm:" + resourceType + ":" + resourceID.String() + ":"
}

// ResourceService decides access to individual resource instances. Decision
// order: ownership, then a direct share, then the parent's shares. The first
// positive answer wins, and an explicit share on the resource itself (even
// LevelNone) preempts anything inherited from the parent.
//
// Only share lookups are cached. Ownership is decided from the loaded
// resource itself and never touches storage.
type ResourceService struct {
	shares   ShareStore
	loader   ResourceLoader
	cache    cache.Cache[ShareLookup]
	sliding  time.Duration
	absolute time.Duration
	log      *slog.Logger
}

// NewResourceService creates the resource authorization service. Without
// WithShareCache it creates its own in-memory cache, separate from the
// principal permission cache.
func NewResourceService(shares ShareStore, opts ...Option) *ResourceService {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	shareCache := cfg.shareCache
	if shareCache == nil {
		shareCache = cache.NewMemory[ShareLookup]()
	}

	return &ResourceService{
		shares:   shares,
		loader:   cfg.loader,
		cache:    shareCache,
		sliding:  cfg.resourceSliding,
		absolute: cfg.resourceAbsolute,
		log:      cfg.logger,
	}
}

// Authorize reports whether the principal may perform the action on the
// loaded resource. The owner may perform every action regardless of shares.
// An anonymous principal is a plain deny; a nil resource or unknown action
// fails loudly.
func (s *ResourceService) Authorize(ctx context.Context, userID uuid.UUID, resource Resource, action string) (bool, error) {
	if resource == nil {
		return false, ErrInvalidResource
	}
	required, err := ParseAction(action)
	if err != nil {
		return false, err
	}
	if userID == uuid.Nil {
		return false, nil
	}

	// Ownership is implicit admin and the fastest path; check it first.
	if resource.OwnerID() == userID {
		return true, nil
	}

	level, err := s.GetEffectivePermission(ctx, userID, resource)
	if err != nil {
		return false, err
	}
	return level.Allows(required), nil
}

// AuthorizeByID decides from a type/id pair without a loaded resource. It
// cannot see ownership or a parent link, so it consults only the resource's
// own shares.
func (s *ResourceService) AuthorizeByID(ctx context.Context, userID uuid.UUID, resourceType string, resourceID uuid.UUID, action string) (bool, error) {
	if strings.TrimSpace(resourceType) == "" || resourceID == uuid.Nil {
		return false, ErrInvalidResource
	}
	required, err := ParseAction(action)
	if err != nil {
		return false, err
	}
	if userID == uuid.Nil {
		return false, nil
	}

	lookup, err := s.directShare(ctx, resourceType, resourceID, userID)
	if err != nil {
		return false, err
	}
	return lookup.Level.Allows(required), nil
}

// GetEffectivePermission returns the share-derived permission level the
// principal holds on the resource: its direct share if one exists, otherwise
// whatever the parent chain grants, otherwise LevelNone. Ownership is not
// consulted; callers that care about it use Authorize.
func (s *ResourceService) GetEffectivePermission(ctx context.Context, userID uuid.UUID, resource Resource) (Level, error) {
	if resource == nil {
		return LevelNone, ErrInvalidResource
	}
	if userID == uuid.Nil {
		return LevelNone, nil
	}

	lookup, err := s.directShare(ctx, resource.ResourceType(), resource.ResourceID(), userID)
	if err != nil {
		return LevelNone, err
	}
	if lookup.Found {
		// An explicit share settles the answer; inherited grants never
		// override it, including when it is LevelNone.
		return lookup.Level, nil
	}

	parent, ok := resource.Parent()
	if !ok {
		return LevelNone, nil
	}
	return s.inheritedPermission(ctx, userID, parent)
}

// GetAccessibleResources lists resources of the given type directly shared
// with the principal, sorted by resource id. Owned resources and inherited
// access are not expanded; this is the "shared with me" view.
func (s *ResourceService) GetAccessibleResources(ctx context.Context, userID uuid.UUID, resourceType string) ([]ResourceAccess, error) {
	if strings.TrimSpace(resourceType) == "" {
		return nil, ErrInvalidResource
	}
	if userID == uuid.Nil {
		return nil, nil
	}

	shares, err := s.shares.ListShares(ctx, userID, resourceType)
	if err != nil {
		return nil, err
	}

	access := make([]ResourceAccess, 0, len(shares))
	for _, share := range shares {
		access = append(access, ResourceAccess{
			ResourceID: share.ResourceID,
			Level:      share.Level,
		})
	}
	slices.SortFunc(access, func(a, b ResourceAccess) int {
		return strings.Compare(a.ResourceID.String(), b.ResourceID.String())
	})
	return access, nil
}

// Invalidate evicts every user's cached share lookups for one resource.
func (s *ResourceService) Invalidate(ctx context.Context, resourceType string, resourceID uuid.UUID) error {
	return s.cache.EvictPrefix(ctx, shareCachePrefix(resourceType, resourceID))
}

// inheritedPermission walks the ancestor chain looking for the first explicit
// share. Without a loader the walk is a single hop. With one, it continues
// upward, guarded against cycles and capped in depth since parent links are
// admin-editable data.
func (s *ResourceService) inheritedPermission(ctx context.Context, userID uuid.UUID, ref ParentRef) (Level, error) {
	visited := map[ParentRef]struct{}{}

	for depth := 1; ; depth++ {
		if _, seen := visited[ref]; seen {
			s.log.WarnContext(ctx, "cycle detected in resource parent chain",
				slog.String("resource_type", ref.ResourceType),
				slog.String("resource_id", ref.ResourceID.String()))
			return LevelNone, nil
		}
		visited[ref] = struct{}{}

		lookup, err := s.directShare(ctx, ref.ResourceType, ref.ResourceID, userID)
		if err != nil {
			return LevelNone, err
		}
		if lookup.Found {
			return lookup.Level, nil
		}

		if s.loader == nil {
			return LevelNone, nil
		}
		if depth >= maxResourceDepth {
			s.log.WarnContext(ctx, "resource inheritance depth cap reached",
				slog.String("resource_type", ref.ResourceType),
				slog.String("resource_id", ref.ResourceID.String()),
				slog.Int("depth", depth))
			return LevelNone, nil
		}

		ancestor, err := s.loader.LoadResource(ctx, ref)
		if err != nil {
			return LevelNone, err
		}
		if ancestor == nil {
			return LevelNone, nil
		}
		next, ok := ancestor.Parent()
		if !ok {
			return LevelNone, nil
		}
		ref = next
	}
}

// directShare answers "does this user hold a share on this resource, and at
// what level", served from cache. Negative answers are cached too, so users
// with no access do not hammer the share store.
func (s *ResourceService) directShare(ctx context.Context, resourceType string, resourceID, userID uuid.UUID) (ShareLookup, error) {
	key := shareCacheKey(resourceType, resourceID, userID)
	return s.cache.GetOrSet(ctx, key, func(ctx context.Context) (ShareLookup, error) {
		share, err := s.shares.FindShare(ctx, resourceType, resourceID, userID)
		if err != nil {
			return ShareLookup{}, err
		}
		if share == nil {
			return ShareLookup{Found: false, Level: LevelNone}, nil
		}
		return ShareLookup{Found: true, Level: share.Level}, nil
	}, s.sliding, s.absolute)
}
