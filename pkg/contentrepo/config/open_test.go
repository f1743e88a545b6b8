package config_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/contentrepo/internal/pgtest"
	"github.com/tendant/contentrepo/pkg/contentrepo"
	"github.com/tendant/contentrepo/pkg/contentrepo/config"
	"github.com/tendant/contentrepo/pkg/contentrepo/repo/cached"
	"github.com/tendant/contentrepo/pkg/contentrepo/repo/memory"
	"github.com/tendant/contentrepo/pkg/contentrepo/repo/postgres"
)

type note struct {
	contentrepo.ContentEntity
	Title string `json:"title"`
}

type document struct {
	contentrepo.OwnedContentEntity
	Name string `json:"name"`
}

func TestOpen_Memory(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	backend, err := cfg.Open(context.Background())
	require.NoError(t, err)
	defer backend.Close()

	assert.Nil(t, backend.Pool)
	assert.Nil(t, backend.Redis)

	repo, err := config.NewContentRepository[note](context.Background(), backend, "notes")
	require.NoError(t, err)
	assert.IsType(t, &memory.Repository[note, *note]{}, repo)

	_, err = config.NewContentRepository[note](context.Background(), backend, "")
	assert.Error(t, err)
}

func TestOpen_MemoryWithCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cfg, err := config.Load(config.WithCache("redis://"+mr.Addr(), time.Minute), config.WithEventLogging(true))
	require.NoError(t, err)

	ctx := context.Background()
	backend, err := cfg.Open(ctx)
	require.NoError(t, err)
	defer backend.Close()
	require.NotNil(t, backend.Redis)

	repo, err := config.NewUserContentRepository[document](ctx, backend, "documents")
	require.NoError(t, err)
	cache, ok := repo.(*cached.UserRepository[document, *document])
	require.True(t, ok)

	d := &document{OwnedContentEntity: contentrepo.NewOwnedContentEntity(uuid.New()), Name: "cached"}
	res, err := repo.TryAdd(ctx, d)
	require.NoError(t, err)
	require.True(t, res.IsSuccess())

	got, err := repo.TryGetByID(ctx, d.ID())
	require.NoError(t, err)
	require.True(t, got.IsSuccess())
	assert.True(t, mr.Exists(cache.Key(d.ID())))
	assert.Contains(t, cache.Key(d.ID()), "contentrepo:documents:")
}

func TestOpen_CacheUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	cfg, err := config.Load(config.WithCache("redis://"+addr, time.Minute))
	require.NoError(t, err)

	_, err = cfg.Open(context.Background())
	assert.Error(t, err)
}

func TestOpen_Postgres(t *testing.T) {
	pgtest.RunTest(t, func(t *testing.T, db *pgtest.TestDB) {
		cfg, err := config.Load(
			config.WithDatabase("postgres", os.Getenv(pgtest.EnvURL)),
			config.WithDBSchema(db.Schema),
			config.WithEnsureSchema(true),
		)
		require.NoError(t, err)

		ctx := context.Background()
		backend, err := cfg.Open(ctx)
		require.NoError(t, err)
		defer backend.Close()

		repo, err := config.NewContentRepository[note](ctx, backend, "notes")
		require.NoError(t, err)
		assert.IsType(t, &postgres.Repository[note, *note]{}, repo)

		n := &note{ContentEntity: contentrepo.NewContentEntity(), Title: "provisioned"}
		res, err := repo.TryAdd(ctx, n)
		require.NoError(t, err)
		assert.True(t, res.IsSuccess())

		count, err := repo.TryCount(ctx)
		require.NoError(t, err)
		c, _ := count.TryGet()
		assert.Equal(t, 1, c)
	})
}
