package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nickpio/top-earning-parser/internal/contracts"
)

// SnapshotRepository implements contracts.SnapshotRepository.
type SnapshotRepository struct {
	pool *pgxpool.Pool
}

func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

const snapshotColumns = `
	snapshot_date, universe_id, name, developer,
	avg_ccu, visits, favorites, likes,
	monetization_count, median_price, price_dispersion,
	engagement_score, dau_est, pcr, aspu,
	spend_revenue, premium_revenue, edr_raw`

// UpsertBatch merges rows into the snapshot table; the most recently
// written row wins per (snapshot_date, universe_id).
func (r *SnapshotRepository) UpsertBatch(ctx context.Context, rows []*contracts.Snapshot) error {
	if len(rows) == 0 {
		return nil
	}

	query := `
		INSERT INTO rte.snapshots (` + snapshotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (snapshot_date, universe_id) DO UPDATE SET
			name = EXCLUDED.name,
			developer = EXCLUDED.developer,
			avg_ccu = EXCLUDED.avg_ccu,
			visits = EXCLUDED.visits,
			favorites = EXCLUDED.favorites,
			likes = EXCLUDED.likes,
			monetization_count = EXCLUDED.monetization_count,
			median_price = EXCLUDED.median_price,
			price_dispersion = EXCLUDED.price_dispersion,
			engagement_score = EXCLUDED.engagement_score,
			dau_est = EXCLUDED.dau_est,
			pcr = EXCLUDED.pcr,
			aspu = EXCLUDED.aspu,
			spend_revenue = EXCLUDED.spend_revenue,
			premium_revenue = EXCLUDED.premium_revenue,
			edr_raw = EXCLUDED.edr_raw`

	batch := &pgx.Batch{}
	for _, s := range rows {
		batch.Queue(query,
			s.SnapshotDate, s.UniverseID, s.Name, s.Developer,
			s.AvgCCU, s.Visits, s.Favorites, s.Likes,
			s.MonetizationCount, s.MedianPrice, s.PriceDispersion,
			s.EngagementScore, s.DAUEst, s.PCR, s.ASPU,
			s.SpendRevenue, s.PremiumRevenue, s.EDRRaw,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range rows {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// GetAll returns the full snapshot history ordered by game then date,
// the order the feature engine expects.
func (r *SnapshotRepository) GetAll(ctx context.Context) ([]*contracts.Snapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM rte.snapshots
		ORDER BY universe_id, snapshot_date`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []*contracts.Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

func (r *SnapshotRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM rte.snapshots`).Scan(&count)
	return count, err
}

// LatestDate returns the most recent snapshot date; ok is false when
// the table is empty.
func (r *SnapshotRepository) LatestDate(ctx context.Context) (time.Time, bool, error) {
	// MAX over an empty table yields NULL, not zero rows
	var date *time.Time
	err := r.pool.QueryRow(ctx, `SELECT MAX(snapshot_date) FROM rte.snapshots`).Scan(&date)
	if err != nil {
		return time.Time{}, false, err
	}
	if date == nil {
		return time.Time{}, false, nil
	}
	return contracts.NormalizeDate(*date), true, nil
}

func scanSnapshot(rows pgx.Rows) (*contracts.Snapshot, error) {
	var s contracts.Snapshot
	err := rows.Scan(
		&s.SnapshotDate, &s.UniverseID, &s.Name, &s.Developer,
		&s.AvgCCU, &s.Visits, &s.Favorites, &s.Likes,
		&s.MonetizationCount, &s.MedianPrice, &s.PriceDispersion,
		&s.EngagementScore, &s.DAUEst, &s.PCR, &s.ASPU,
		&s.SpendRevenue, &s.PremiumRevenue, &s.EDRRaw,
	)
	if err != nil {
		return nil, err
	}
	s.SnapshotDate = contracts.NormalizeDate(s.SnapshotDate)
	return &s, nil
}
