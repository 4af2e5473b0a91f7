package authz_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NOIR-Solution/NOIR-sub016/pkg/authz"
)

func TestResourceService_Authorize(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("owner may perform every action", func(t *testing.T) {
		t.Parallel()

		store := authz.NewMemoryStore()
		ownerID := uuid.New()
		doc := testResource{id: uuid.New(), typ: "document", owner: ownerID}

		// A conflicting None-level share must not demote the owner.
		store.GrantShare(authz.Share{
			ResourceType: "document", ResourceID: doc.id,
			UserID: ownerID, Level: authz.LevelNone,
		})

		svc := authz.NewResourceService(store, authz.WithLogger(quietLogger()))
		for _, action := range []string{authz.ActionRead, authz.ActionWrite, authz.ActionAdmin} {
			got, err := svc.Authorize(ctx, ownerID, doc, action)
			require.NoError(t, err)
			assert.True(t, got, action)
		}
	})

	t.Run("share levels gate actions monotonically", func(t *testing.T) {
		t.Parallel()

		store := authz.NewMemoryStore()
		userID := uuid.New()
		doc := testResource{id: uuid.New(), typ: "document", owner: uuid.New()}
		store.GrantShare(authz.Share{
			ResourceType: "document", ResourceID: doc.id,
			UserID: userID, Level: authz.LevelWrite,
		})

		svc := authz.NewResourceService(store, authz.WithLogger(quietLogger()))

		tests := []struct {
			action string
			want   bool
		}{
			{authz.ActionRead, true},
			{authz.ActionWrite, true},
			{authz.ActionAdmin, false},
		}
		for _, tt := range tests {
			got, err := svc.Authorize(ctx, userID, doc, tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got, tt.action)
		}
	})

	t.Run("admin share allows all actions", func(t *testing.T) {
		t.Parallel()

		store := authz.NewMemoryStore()
		userID := uuid.New()
		doc := testResource{id: uuid.New(), typ: "document", owner: uuid.New()}
		store.GrantShare(authz.Share{
			ResourceType: "document", ResourceID: doc.id,
			UserID: userID, Level: authz.LevelAdmin,
		})

		svc := authz.NewResourceService(store, authz.WithLogger(quietLogger()))
		for _, action := range []string{authz.ActionRead, authz.ActionWrite, authz.ActionAdmin} {
			got, err := svc.Authorize(ctx, userID, doc, action)
			require.NoError(t, err)
			assert.True(t, got, action)
		}
	})

	t.Run("parent share is honored when child has none", func(t *testing.T) {
		t.Parallel()

		store := authz.NewMemoryStore()
		userID := uuid.New()
		folderID := uuid.New()
		doc := testResource{
			id: uuid.New(), typ: "document", owner: uuid.New(),
			parent: &authz.ParentRef{ResourceType: "folder", ResourceID: folderID},
		}
		store.GrantShare(authz.Share{
			ResourceType: "folder", ResourceID: folderID,
			UserID: userID, Level: authz.LevelRead,
		})

		svc := authz.NewResourceService(store, authz.WithLogger(quietLogger()))

		got, err := svc.Authorize(ctx, userID, doc, authz.ActionRead)
		require.NoError(t, err)
		assert.True(t, got)

		got, err = svc.Authorize(ctx, userID, doc, authz.ActionWrite)
		require.NoError(t, err)
		assert.False(t, got)
	})

	t.Run("explicit None share on child beats generous parent share", func(t *testing.T) {
		t.Parallel()

		store := authz.NewMemoryStore()
		userID := uuid.New()
		folderID := uuid.New()
		doc := testResource{
			id: uuid.New(), typ: "document", owner: uuid.New(),
			parent: &authz.ParentRef{ResourceType: "folder", ResourceID: folderID},
		}
		store.GrantShare(authz.Share{
			ResourceType: "folder", ResourceID: folderID,
			UserID: userID, Level: authz.LevelAdmin,
		})
		store.GrantShare(authz.Share{
			ResourceType: "document", ResourceID: doc.id,
			UserID: userID, Level: authz.LevelNone,
		})

		svc := authz.NewResourceService(store, authz.WithLogger(quietLogger()))

		got, err := svc.Authorize(ctx, userID, doc, authz.ActionRead)
		require.NoError(t, err)
		assert.False(t, got, "explicit deny must not fall through to the parent")
	})

	t.Run("anonymous principal is denied without error", func(t *testing.T) {
		t.Parallel()

		svc := authz.NewResourceService(authz.NewMemoryStore(), authz.WithLogger(quietLogger()))
		doc := testResource{id: uuid.New(), typ: "document", owner: uuid.New()}

		got, err := svc.Authorize(ctx, uuid.Nil, doc, authz.ActionRead)
		require.NoError(t, err)
		assert.False(t, got)
	})

	t.Run("invalid arguments fail loudly", func(t *testing.T) {
		t.Parallel()

		svc := authz.NewResourceService(authz.NewMemoryStore(), authz.WithLogger(quietLogger()))
		doc := testResource{id: uuid.New(), typ: "document", owner: uuid.New()}

		_, err := svc.Authorize(ctx, uuid.New(), nil, authz.ActionRead)
		assert.ErrorIs(t, err, authz.ErrInvalidResource)

		_, err = svc.Authorize(ctx, uuid.New(), doc, "")
		assert.ErrorIs(t, err, authz.ErrInvalidAction)

		_, err = svc.Authorize(ctx, uuid.New(), doc, "annihilate")
		assert.ErrorIs(t, err, authz.ErrInvalidAction)
	})
}

func TestResourceService_AuthorizeByID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("consults shares only, never ownership", func(t *testing.T) {
		t.Parallel()

		store := authz.NewMemoryStore()
		ownerID := uuid.New()
		docID := uuid.New()

		svc := authz.NewResourceService(store, authz.WithLogger(quietLogger()))

		// The owner has no share row, and without the loaded resource the
		// byId variant cannot see ownership.
		got, err := svc.AuthorizeByID(ctx, ownerID, "document", docID, authz.ActionRead)
		require.NoError(t, err)
		assert.False(t, got)

		store.GrantShare(authz.Share{
			ResourceType: "document", ResourceID: docID,
			UserID: ownerID, Level: authz.LevelRead,
		})
		// Cached negative answer still applies; a fresh service sees the share.
		fresh := authz.NewResourceService(store, authz.WithLogger(quietLogger()))
		got, err = fresh.AuthorizeByID(ctx, ownerID, "document", docID, authz.ActionRead)
		require.NoError(t, err)
		assert.True(t, got)
	})

	t.Run("validates arguments", func(t *testing.T) {
		t.Parallel()

		svc := authz.NewResourceService(authz.NewMemoryStore(), authz.WithLogger(quietLogger()))

		_, err := svc.AuthorizeByID(ctx, uuid.New(), "", uuid.New(), authz.ActionRead)
		assert.ErrorIs(t, err, authz.ErrInvalidResource)

		_, err = svc.AuthorizeByID(ctx, uuid.New(), "document", uuid.Nil, authz.ActionRead)
		assert.ErrorIs(t, err, authz.ErrInvalidResource)

		_, err = svc.AuthorizeByID(ctx, uuid.New(), "document", uuid.New(), "")
		assert.ErrorIs(t, err, authz.ErrInvalidAction)
	})
}

func TestResourceService_GetEffectivePermission(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("returns the share-derived level", func(t *testing.T) {
		t.Parallel()

		store := authz.NewMemoryStore()
		userID := uuid.New()
		folderID := uuid.New()
		doc := testResource{
			id: uuid.New(), typ: "document", owner: uuid.New(),
			parent: &authz.ParentRef{ResourceType: "folder", ResourceID: folderID},
		}

		svc := authz.NewResourceService(store, authz.WithLogger(quietLogger()))

		level, err := svc.GetEffectivePermission(ctx, userID, doc)
		require.NoError(t, err)
		assert.Equal(t, authz.LevelNone, level)

		store.GrantShare(authz.Share{
			ResourceType: "folder", ResourceID: folderID,
			UserID: userID, Level: authz.LevelWrite,
		})
		fresh := authz.NewResourceService(store, authz.WithLogger(quietLogger()))
		level, err = fresh.GetEffectivePermission(ctx, userID, doc)
		require.NoError(t, err)
		assert.Equal(t, authz.LevelWrite, level, "inherited from the parent")
	})

	t.Run("ownership is not part of the share level", func(t *testing.T) {
		t.Parallel()

		store := authz.NewMemoryStore()
		ownerID := uuid.New()
		doc := testResource{id: uuid.New(), typ: "document", owner: ownerID}

		svc := authz.NewResourceService(store, authz.WithLogger(quietLogger()))
		level, err := svc.GetEffectivePermission(ctx, ownerID, doc)
		require.NoError(t, err)
		assert.Equal(t, authz.LevelNone, level)
	})
}

func TestResourceService_NegativeCaching(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := newSpyStore()
	userID := uuid.New()
	doc := testResource{id: uuid.New(), typ: "document", owner: uuid.New()}

	svc := authz.NewResourceService(store, authz.WithLogger(quietLogger()))

	for range 3 {
		got, err := svc.Authorize(ctx, userID, doc, authz.ActionRead)
		require.NoError(t, err)
		assert.False(t, got)
	}

	assert.Equal(t, int64(1), store.findShareCalls.Load(),
		"a user with no access must not hammer the share store")
}

func TestResourceService_GetAccessibleResources(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := authz.NewMemoryStore()
	userID := uuid.New()
	docA, docB := uuid.New(), uuid.New()

	store.GrantShare(authz.Share{ResourceType: "document", ResourceID: docA, UserID: userID, Level: authz.LevelRead})
	store.GrantShare(authz.Share{ResourceType: "document", ResourceID: docB, UserID: userID, Level: authz.LevelAdmin})
	store.GrantShare(authz.Share{ResourceType: "folder", ResourceID: uuid.New(), UserID: userID, Level: authz.LevelRead})
	store.GrantShare(authz.Share{ResourceType: "document", ResourceID: uuid.New(), UserID: uuid.New(), Level: authz.LevelRead})

	svc := authz.NewResourceService(store, authz.WithLogger(quietLogger()))

	access, err := svc.GetAccessibleResources(ctx, userID, "document")
	require.NoError(t, err)
	require.Len(t, access, 2, "only this user's document shares")

	byID := map[uuid.UUID]authz.Level{}
	for _, a := range access {
		byID[a.ResourceID] = a.Level
	}
	assert.Equal(t, authz.LevelRead, byID[docA])
	assert.Equal(t, authz.LevelAdmin, byID[docB])

	empty, err := svc.GetAccessibleResources(ctx, uuid.Nil, "document")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestResourceService_MultiLevelInheritance(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("walks ancestors when a loader is supplied", func(t *testing.T) {
		t.Parallel()

		store := authz.NewMemoryStore()
		userID := uuid.New()

		rootID, midID := uuid.New(), uuid.New()
		rootRef := authz.ParentRef{ResourceType: "folder", ResourceID: rootID}
		midRef := authz.ParentRef{ResourceType: "folder", ResourceID: midID}

		loader := mapLoader{
			midRef:  testResource{id: midID, typ: "folder", owner: uuid.New(), parent: &rootRef},
			rootRef: testResource{id: rootID, typ: "folder", owner: uuid.New()},
		}

		doc := testResource{id: uuid.New(), typ: "document", owner: uuid.New(), parent: &midRef}
		store.GrantShare(authz.Share{
			ResourceType: "folder", ResourceID: rootID,
			UserID: userID, Level: authz.LevelRead,
		})

		// Without a loader the walk stops at the immediate parent.
		single := authz.NewResourceService(store, authz.WithLogger(quietLogger()))
		got, err := single.Authorize(ctx, userID, doc, authz.ActionRead)
		require.NoError(t, err)
		assert.False(t, got)

		multi := authz.NewResourceService(store,
			authz.WithLogger(quietLogger()),
			authz.WithResourceLoader(loader),
		)
		got, err = multi.Authorize(ctx, userID, doc, authz.ActionRead)
		require.NoError(t, err)
		assert.True(t, got, "grant on the grandparent reached via the loader")
	})

	t.Run("parent cycle terminates as deny", func(t *testing.T) {
		t.Parallel()

		store := authz.NewMemoryStore()
		aID, bID := uuid.New(), uuid.New()
		aRef := authz.ParentRef{ResourceType: "folder", ResourceID: aID}
		bRef := authz.ParentRef{ResourceType: "folder", ResourceID: bID}

		loader := mapLoader{
			aRef: testResource{id: aID, typ: "folder", owner: uuid.New(), parent: &bRef},
			bRef: testResource{id: bID, typ: "folder", owner: uuid.New(), parent: &aRef},
		}

		doc := testResource{id: uuid.New(), typ: "document", owner: uuid.New(), parent: &aRef}
		svc := authz.NewResourceService(store,
			authz.WithLogger(quietLogger()),
			authz.WithResourceLoader(loader),
		)

		got, err := svc.Authorize(ctx, uuid.New(), doc, authz.ActionRead)
		require.NoError(t, err)
		assert.False(t, got)
	})
}

// Folder F1 owned by U2; document D1 has parent F1; a Read share on F1 for U3.
func TestResourceService_EndToEndFolderScenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := authz.NewMemoryStore()
	u2, u3 := uuid.New(), uuid.New()

	f1 := testResource{id: uuid.New(), typ: "folder", owner: u2}
	d1 := testResource{
		id: uuid.New(), typ: "document", owner: u2,
		parent: &authz.ParentRef{ResourceType: "folder", ResourceID: f1.id},
	}
	store.GrantShare(authz.Share{
		ResourceType: "folder", ResourceID: f1.id,
		UserID: u3, Level: authz.LevelRead,
	})

	svc := authz.NewResourceService(store, authz.WithLogger(quietLogger()))

	got, err := svc.Authorize(ctx, u3, d1, authz.ActionRead)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = svc.Authorize(ctx, u3, d1, authz.ActionWrite)
	require.NoError(t, err)
	assert.False(t, got)

	// The owner needs no share at all.
	got, err = svc.Authorize(ctx, u2, d1, authz.ActionAdmin)
	require.NoError(t, err)
	assert.True(t, got)
}
