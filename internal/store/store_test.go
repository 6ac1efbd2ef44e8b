package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickpio/top-earning-parser/internal/contracts"
)

// testPool connects to the database named by DATABASE_URL and prepares
// a clean schema. Tests are skipped without a database.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	ctx := context.Background()
	require.NoError(t, EnsureSchema(ctx, pool))
	for _, table := range []string{"rte.snapshots", "rte.features", "rte.membership", "rte.levels"} {
		_, err := pool.Exec(ctx, "DELETE FROM "+table)
		require.NoError(t, err)
	}
	return pool
}

func day(s string) time.Time {
	d, err := contracts.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func sampleSnapshot(id int64, date string, edr float64) *contracts.Snapshot {
	return &contracts.Snapshot{
		SnapshotDate:      day(date),
		UniverseID:        id,
		Name:              "Game",
		Developer:         "Studio",
		AvgCCU:            1000,
		Visits:            5000,
		MonetizationCount: 3,
		EDRRaw:            edr,
	}
}

func TestSnapshotRepositoryUpsert(t *testing.T) {
	pool := testPool(t)
	repo := NewSnapshotRepository(pool)
	ctx := context.Background()

	rows := []*contracts.Snapshot{
		sampleSnapshot(1, "2025-07-14", 100),
		sampleSnapshot(2, "2025-07-14", 200),
	}
	require.NoError(t, repo.UpsertBatch(ctx, rows))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// Re-upserting the same key overwrites rather than duplicating
	updated := sampleSnapshot(1, "2025-07-14", 999)
	require.NoError(t, repo.UpsertBatch(ctx, []*contracts.Snapshot{updated}))

	count, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(1), all[0].UniverseID)
	assert.Equal(t, 999.0, all[0].EDRRaw)

	latest, ok, err := repo.LatestDate(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, day("2025-07-14"), latest)
}

func TestSnapshotRepositoryEmpty(t *testing.T) {
	pool := testPool(t)
	repo := NewSnapshotRepository(pool)
	ctx := context.Background()

	_, ok, err := repo.LatestDate(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFeatureRepositoryReplaceAll(t *testing.T) {
	pool := testPool(t)
	repo := NewFeatureRepository(pool)
	ctx := context.Background()

	first := &contracts.FeatureRow{
		Snapshot:   *sampleSnapshot(1, "2025-07-14", 100),
		Coverage7D: 1.0 / 7.0,
		EDR7DMean:  100,
		EDRMom:     1.0,
	}
	require.NoError(t, repo.ReplaceAll(ctx, []*contracts.FeatureRow{first}))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// A second replace discards the previous table entirely
	second := []*contracts.FeatureRow{
		{Snapshot: *sampleSnapshot(2, "2025-07-15", 50), Coverage7D: 1.0, EDR7DMean: 50},
		{Snapshot: *sampleSnapshot(3, "2025-07-15", 60), Coverage7D: 1.0, EDR7DMean: 60},
	}
	require.NoError(t, repo.ReplaceAll(ctx, second))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(2), all[0].UniverseID)
	assert.Equal(t, 50.0, all[0].EDR7DMean)
	assert.InDelta(t, 1.0, all[0].Coverage7D, 1e-9)
}

func TestMembershipRepositoryVintages(t *testing.T) {
	pool := testPool(t)
	repo := NewMembershipRepository(pool)
	ctx := context.Background()

	v1 := []*contracts.Membership{
		{RebalanceDate: day("2025-07-07"), UniverseID: 1, Rank: 1, InIndex: true, Weight: 0.6},
		{RebalanceDate: day("2025-07-07"), UniverseID: 2, Rank: 2, InIndex: true, Weight: 0.4},
	}
	require.NoError(t, repo.AppendVintage(ctx, v1))

	v2 := []*contracts.Membership{
		{RebalanceDate: day("2025-07-14"), UniverseID: 1, Rank: 1, InIndex: true, Weight: 1.0},
	}
	require.NoError(t, repo.AppendVintage(ctx, v2))

	history, err := repo.GetHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, day("2025-07-07"), history[0].RebalanceDate)
	assert.Equal(t, day("2025-07-14"), history[2].RebalanceDate)

	latest, err := repo.GetLatestVintage(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, day("2025-07-14"), latest[0].RebalanceDate)

	date, ok, err := repo.LatestRebalanceDate(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, day("2025-07-14"), date)

	// Re-running a rebalance date replaces only that vintage
	v2b := []*contracts.Membership{
		{RebalanceDate: day("2025-07-14"), UniverseID: 2, Rank: 1, InIndex: true, Weight: 1.0},
	}
	require.NoError(t, repo.AppendVintage(ctx, v2b))

	history, err = repo.GetHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, int64(2), history[2].UniverseID)
}

func TestMembershipRepositoryEmpty(t *testing.T) {
	pool := testPool(t)
	repo := NewMembershipRepository(pool)
	ctx := context.Background()

	latest, err := repo.GetLatestVintage(ctx)
	require.NoError(t, err)
	assert.Empty(t, latest)

	_, ok, err := repo.LatestRebalanceDate(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIndexLevelRepository(t *testing.T) {
	pool := testPool(t)
	repo := NewIndexLevelRepository(pool)
	ctx := context.Background()

	latest, err := repo.GetLatest(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	points := []*contracts.IndexPoint{
		{Date: day("2025-07-14"), IndexLevel: 1000, DailyReturn: 0, DailyLogReturn: 0, Coverage: 1},
		{Date: day("2025-07-15"), IndexLevel: 1010, DailyReturn: 0.01, DailyLogReturn: 0.00995, Coverage: 1},
	}
	require.NoError(t, repo.ReplaceAll(ctx, points))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, day("2025-07-14"), all[0].Date)

	latest, err = repo.GetLatest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, day("2025-07-15"), latest.Date)
	assert.Equal(t, 1010.0, latest.IndexLevel)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
