package cached_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/contentrepo/pkg/contentrepo"
	"github.com/tendant/contentrepo/pkg/contentrepo/repo/cached"
	"github.com/tendant/contentrepo/pkg/contentrepo/repo/memory"
)

type note struct {
	contentrepo.ContentEntity
	Title string `json:"title"`
}

func newNote(title string) *note {
	return &note{ContentEntity: contentrepo.NewContentEntity(), Title: title}
}

type document struct {
	contentrepo.OwnedContentEntity
	Name string `json:"name"`
}

func newDocument(ownerID uuid.UUID, name string) *document {
	return &document{OwnedContentEntity: contentrepo.NewOwnedContentEntity(ownerID), Name: name}
}

var (
	_ contentrepo.ContentRepository[*note]         = (*cached.Repository[note, *note])(nil)
	_ contentrepo.UserContentRepository[*document] = (*cached.UserRepository[document, *document])(nil)
)

// setupMiniRedis creates a test Redis server using miniredis
func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), DisableIdentity: true})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func succeeds(t *testing.T) func(contentrepo.Result, error) {
	return func(res contentrepo.Result, err error) {
		t.Helper()
		require.NoError(t, err)
		require.True(t, res.IsSuccess(), res.Message())
	}
}

func getNote(t *testing.T, repo contentrepo.ByIDGetter[*note], id uuid.UUID) (*note, bool) {
	t.Helper()
	res, err := repo.TryGetByID(context.Background(), id)
	require.NoError(t, err)
	return res.TryGet()
}

func TestCachedRepository_ReadThrough(t *testing.T) {
	mr, client := setupMiniRedis(t)
	repo := cached.Wrap[note](memory.New[note](), client, cached.DefaultConfig(), contentrepo.WithKind("note"))
	ctx := context.Background()

	n := newNote("cached")
	succeeds(t)(repo.TryAdd(ctx, n))
	assert.False(t, mr.Exists(repo.Key(n.ID())))

	first, ok := getNote(t, repo, n.ID())
	require.True(t, ok)
	assert.Equal(t, n, first)
	assert.True(t, mr.Exists(repo.Key(n.ID())))
	assert.Equal(t, "contentrepo:note:"+n.ID().String(), repo.Key(n.ID()))

	second, ok := getNote(t, repo, n.ID())
	require.True(t, ok)
	assert.Equal(t, n, second)
	assert.NotSame(t, first, second)

	hits, misses := repo.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)

	t.Run("MissesAreNotCached", func(t *testing.T) {
		id := uuid.New()
		_, ok := getNote(t, repo, id)
		assert.False(t, ok)
		assert.False(t, mr.Exists(repo.Key(id)))
	})

	t.Run("Expiry", func(t *testing.T) {
		mr.FastForward(cached.DefaultConfig().TTL + time.Second)
		assert.False(t, mr.Exists(repo.Key(n.ID())))
	})
}

func TestCachedRepository_Eviction(t *testing.T) {
	mr, client := setupMiniRedis(t)
	repo := cached.Wrap[note](memory.New[note](), client, cached.DefaultConfig())
	ctx := context.Background()

	n := newNote("before")
	succeeds(t)(repo.TryAdd(ctx, n))
	_, ok := getNote(t, repo, n.ID())
	require.True(t, ok)

	n.Title = "after"
	succeeds(t)(repo.TryUpdate(ctx, n))
	assert.False(t, mr.Exists(repo.Key(n.ID())))

	got, ok := getNote(t, repo, n.ID())
	require.True(t, ok)
	assert.Equal(t, "after", got.Title)

	n.Title = "upserted"
	succeeds(t)(repo.TryAddOrUpdate(ctx, n))
	got, ok = getNote(t, repo, n.ID())
	require.True(t, ok)
	assert.Equal(t, "upserted", got.Title)

	succeeds(t)(repo.TryDelete(ctx, n))
	_, ok = getNote(t, repo, n.ID())
	assert.False(t, ok)

	t.Run("FailedWriteKeepsEntry", func(t *testing.T) {
		other := newNote("other")
		succeeds(t)(repo.TryAdd(ctx, other))
		_, ok := getNote(t, repo, other.ID())
		require.True(t, ok)

		res, err := repo.TryUpdateRange(ctx, []*note{other, newNote("missing")})
		require.NoError(t, err)
		assert.True(t, res.IsFailure())
		assert.True(t, mr.Exists(repo.Key(other.ID())))

		succeeds(t)(repo.TryRemoveRange(ctx, []*note{other}))
		assert.False(t, mr.Exists(repo.Key(other.ID())))
	})
}

func TestCachedRepository_Degraded(t *testing.T) {
	t.Run("InvalidEntry", func(t *testing.T) {
		mr, client := setupMiniRedis(t)
		repo := cached.Wrap[note](memory.New[note](), client, cached.DefaultConfig())
		n := newNote("stored")
		succeeds(t)(repo.TryAdd(context.Background(), n))

		require.NoError(t, mr.Set(repo.Key(n.ID()), "{not json"))
		got, ok := getNote(t, repo, n.ID())
		require.True(t, ok)
		assert.Equal(t, "stored", got.Title)
	})

	t.Run("RedisUnavailable", func(t *testing.T) {
		mr, client := setupMiniRedis(t)
		repo := cached.Wrap[note](memory.New[note](), client, cached.DefaultConfig())
		n := newNote("stored")
		succeeds(t)(repo.TryAdd(context.Background(), n))

		mr.Close()
		got, ok := getNote(t, repo, n.ID())
		require.True(t, ok)
		assert.Equal(t, "stored", got.Title)

		succeeds(t)(repo.TryRemove(context.Background(), n))
	})
}

func TestCachedUserRepository_Purge(t *testing.T) {
	mr, client := setupMiniRedis(t)
	repo := cached.WrapUser[document](memory.NewUserContent[document](), client, cached.DefaultConfig(), contentrepo.WithKind("document"))
	ctx := context.Background()

	u1, u2 := uuid.New(), uuid.New()
	a, b := newDocument(u1, "a"), newDocument(u2, "b")
	succeeds(t)(repo.TryAddRange(ctx, []*document{a, b}))
	for _, d := range []*document{a, b} {
		res, err := repo.TryGetByID(ctx, d.ID())
		require.NoError(t, err)
		require.True(t, res.IsSuccess())
	}
	require.True(t, mr.Exists(repo.Key(a.ID())))

	succeeds(t)(repo.TryPermanentRemoveAllForUser(ctx, u1))
	assert.False(t, mr.Exists(repo.Key(a.ID())))
	assert.True(t, mr.Exists(repo.Key(b.ID())))

	res, err := repo.TryGetByID(ctx, a.ID())
	require.NoError(t, err)
	assert.True(t, res.IsFailure())

	owned, err := repo.TryGetByUser(ctx, u2)
	require.NoError(t, err)
	items, _ := owned.TryGet()
	require.Len(t, items, 1)
	assert.Equal(t, b.ID(), items[0].ID())

	paged, err := repo.TryGetByUserPaged(ctx, u2, contentrepo.NewPaginationInfo(1, 10))
	require.NoError(t, err)
	items, _ = paged.TryGet()
	assert.Len(t, items, 1)
}
