// Package authz is the authorization decision engine for multi-tenant
// applications. It answers two questions: does a principal hold a named
// permission claim through its roles, and may a principal perform an action on
// a specific resource instance.
//
// Three cooperating components back those answers:
//
//   - Resolver walks the single-parent role hierarchy and unions claim sets,
//     tolerating cycles in stored data.
//   - PermissionService caches each principal's effective claim set and
//     answers claim membership checks.
//   - ResourceService decides resource access from ownership, an explicit
//     share, or the parent resource's shares, in that order.
//
// An InvalidationRegistry ties the caches to external mutation flows: after a
// role or share write succeeds, the mutating command calls the registry so
// revocations take effect immediately rather than waiting out the TTL windows.
//
// Storage is injected through the RoleStore, UserStore, and ShareStore
// interfaces. The package ships an in-memory implementation plus a YAML role
// seed; pgstore provides a PostgreSQL-backed one.
//
// Basic usage:
//
//	store := authz.NewMemoryStore()
//	if err := authz.LoadRolesFile("roles.yaml", store); err != nil {
//	    // handle error
//	}
//
//	permCache := cache.NewMemory[[]string]()
//	shareCache := cache.NewMemory[authz.ShareLookup]()
//	registry := authz.NewInvalidationRegistry(store, store, permCache, shareCache)
//
//	perms := authz.NewPermissionService(store, store,
//	    authz.WithPermissionCache(permCache),
//	    authz.WithRegistry(registry),
//	)
//	resources := authz.NewResourceService(store,
//	    authz.WithShareCache(shareCache),
//	)
//
//	ok, err := perms.Authorize(ctx, userID, "content:write")
//	ok, err = resources.Authorize(ctx, userID, doc, authz.ActionRead)
//
// Absence is deny: unknown principals, roles, and shares produce a false
// answer, never an error. Errors are reserved for call-site misuse (nil
// resource, empty permission or action) and collaborator failures, which
// propagate unchanged so outages are not masked as denials.
package authz
