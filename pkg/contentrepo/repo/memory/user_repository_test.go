package memory_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/contentrepo/pkg/contentrepo"
	"github.com/tendant/contentrepo/pkg/contentrepo/repo/memory"
)

func TestUserContentRepository_GetByUser(t *testing.T) {
	repo := memory.NewUserContent[document]()
	ctx := context.Background()

	alice, bob := uuid.New(), uuid.New()
	var docs []*document
	for i := 0; i < 12; i++ {
		docs = append(docs, newDocument(alice, fmt.Sprintf("alice %02d", i)))
	}
	docs = append(docs, newDocument(bob, "bob 00"))
	succeeds(t)(repo.TryAddRange(ctx, docs))

	t.Run("OnlyOwned", func(t *testing.T) {
		res, err := repo.TryGetByUser(ctx, bob)
		require.NoError(t, err)
		items, ok := res.TryGet()
		require.True(t, ok)
		require.Len(t, items, 1)
		assert.Equal(t, "bob 00", items[0].Name)
		assert.Equal(t, bob, items[0].OwnerID)
	})

	t.Run("Paged", func(t *testing.T) {
		res, err := repo.TryGetByUserPaged(ctx, alice, contentrepo.NewPaginationInfo(3, 5))
		require.NoError(t, err)
		items, _ := res.TryGet()
		require.Len(t, items, 2)
		assert.Equal(t, "alice 10", items[0].Name)
		assert.Equal(t, "alice 11", items[1].Name)
	})

	t.Run("InvalidPage", func(t *testing.T) {
		res, err := repo.TryGetByUserPaged(ctx, alice, contentrepo.NewPaginationInfo(1, -1))
		require.NoError(t, err)
		assert.True(t, res.IsFailure())
	})

	t.Run("SoftDeletedExcluded", func(t *testing.T) {
		succeeds(t)(repo.TryDelete(ctx, docs[0]))
		res, err := repo.TryGetByUser(ctx, alice)
		require.NoError(t, err)
		items, _ := res.TryGet()
		assert.Len(t, items, 11)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		res, err := repo.TryGetByUser(ctx, uuid.New())
		require.NoError(t, err)
		items, ok := res.TryGet()
		assert.True(t, ok)
		assert.Empty(t, items)
	})

	t.Run("NilUser", func(t *testing.T) {
		res, err := repo.TryGetByUser(ctx, uuid.Nil)
		require.NoError(t, err)
		assert.True(t, res.IsFailure())
	})
}

func TestUserContentRepository_PermanentRemoveAllForUser(t *testing.T) {
	repo := memory.NewUserContent[document]()
	ctx := context.Background()

	u1, u2 := uuid.New(), uuid.New()
	a, b := newDocument(u1, "u1 a"), newDocument(u1, "u1 b")
	c := newDocument(u2, "u2 c")
	succeeds(t)(repo.TryAddRange(ctx, []*document{a, b, c}))
	succeeds(t)(repo.TryDelete(ctx, b))

	succeeds(t)(repo.TryPermanentRemoveAllForUser(ctx, u1))

	res, err := repo.TryGetByUser(ctx, u1)
	require.NoError(t, err)
	items, _ := res.TryGet()
	assert.Empty(t, items)

	res, err = repo.TryGetByUser(ctx, u2)
	require.NoError(t, err)
	items, _ = res.TryGet()
	require.Len(t, items, 1)
	assert.Equal(t, c.ID(), items[0].ID())

	t.Run("SoftDeletedAlsoErased", func(t *testing.T) {
		res, err := repo.TryRemove(ctx, b)
		require.NoError(t, err)
		assert.True(t, res.IsFailure())
	})

	t.Run("NothingOwned", func(t *testing.T) {
		succeeds(t)(repo.TryPermanentRemoveAllForUser(ctx, uuid.New()))
	})

	t.Run("NilUser", func(t *testing.T) {
		res, err := repo.TryPermanentRemoveAllForUser(ctx, uuid.Nil)
		require.NoError(t, err)
		assert.True(t, res.IsFailure())
	})
}

func TestUserContentRepository_DiscoverSearch(t *testing.T) {
	repo := memory.NewUserContent[document]()
	ctx := context.Background()

	owner := uuid.New()
	listed := newDocument(owner, "listed")
	listed.IsPubliclyReadable = true
	unlisted := newDocument(owner, "unlisted")
	unlisted.IsPubliclyReadable = true
	unlisted.IsDiscoverable = false
	private := newDocument(owner, "private")
	succeeds(t)(repo.TryAddRange(ctx, []*document{listed, unlisted, private}))

	res, err := repo.TryGetByCriteria(ctx, func(d *document) bool { return d.IncludeInDiscoverSearch() })
	require.NoError(t, err)
	items, _ := res.TryGet()
	require.Len(t, items, 1)
	assert.Equal(t, "listed", items[0].Name)
}
