//go:build integration
// +build integration

package search

import (
	"context"
	"testing"
	"time"

	"github.com/fanfiq/fanfiq/pkg/canonical"
	"github.com/fanfiq/fanfiq/pkg/config"
	"github.com/fanfiq/fanfiq/pkg/database"
	"github.com/fanfiq/fanfiq/pkg/migrations"
	"github.com/fanfiq/fanfiq/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
)

func newPostgresDB(t *testing.T) *bun.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("fanfiq"),
		postgres.WithUsername("fanfiq"),
		postgres.WithPassword("fanfiq"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cfg := config.NewForTest()
	cfg.DatabaseDriver = config.DriverPostgres
	cfg.DatabaseURL = url

	db, err := database.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = migrations.BringUpToDate(ctx, db)
	require.NoError(t, err)

	return db
}

func TestPostgres_IngestAndSearch(t *testing.T) {
	db := newPostgresDB(t)
	seed := newSeeder(t, db)

	first := testutils.Document("ficbook", "1")
	first.Title = canonical.String("Ёжик в тумане")
	first.WordCount = canonical.Int(1200)
	first.Tags = []string{"angst"}
	id := seed.add(first)

	// redelivery updates the same work
	first.WordCount = canonical.Int(1500)
	assert.Equal(t, id, seed.add(first))

	second := testutils.Document("ficbook", "2")
	second.WordCount = canonical.Int(300)
	second.Tags = []string{"fluff"}
	seed.add(second)

	svc := NewService(db, nil, config.CountStrategyExact)

	resp, err := svc.Search(context.Background(), Filter{Query: "ежик"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, []string{"Ёжик в тумане"}, titles(resp))
	assert.Equal(t, 1500, resp.Works[0].WordCount)

	resp, err = svc.Search(context.Background(), Filter{SortBy: SortWordCount, SortOrder: SortOrderAsc})
	require.NoError(t, err)
	assert.Equal(t, []string{"Work 2", "Ёжик в тумане"}, titles(resp))

	resp, err = svc.Search(context.Background(), Filter{ExcludeTags: []string{"angst"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Work 2"}, titles(resp))

	estimate := NewService(db, nil, config.CountStrategyEstimate)
	resp, err = estimate.Search(context.Background(), Filter{PageSize: 1})
	require.NoError(t, err)
	assert.True(t, resp.Approximate)
	assert.Equal(t, 2, resp.Total)
}
