package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nickpio/top-earning-parser/internal/contracts"
)

// FeatureRepository implements contracts.FeatureRepository. Features
// are fully recomputed each run, so writes swap the whole table inside
// one transaction.
type FeatureRepository struct {
	pool *pgxpool.Pool
}

func NewFeatureRepository(pool *pgxpool.Pool) *FeatureRepository {
	return &FeatureRepository{pool: pool}
}

const featureColumns = snapshotColumns + `,
	coverage_7d, edr_7d_mean, ccu_7d_mean,
	edr_ema7, edr_ema30, edr_mom, edr_14d_vol`

func (r *FeatureRepository) ReplaceAll(ctx context.Context, rows []*contracts.FeatureRow) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM rte.features`); err != nil {
		return fmt.Errorf("failed to clear features: %w", err)
	}

	query := `
		INSERT INTO rte.features (` + featureColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
		        $19, $20, $21, $22, $23, $24, $25)`

	for _, f := range rows {
		_, err := tx.Exec(ctx, query,
			f.SnapshotDate, f.UniverseID, f.Name, f.Developer,
			f.AvgCCU, f.Visits, f.Favorites, f.Likes,
			f.MonetizationCount, f.MedianPrice, f.PriceDispersion,
			f.EngagementScore, f.DAUEst, f.PCR, f.ASPU,
			f.SpendRevenue, f.PremiumRevenue, f.EDRRaw,
			f.Coverage7D, f.EDR7DMean, f.CCU7DMean,
			f.EDREMA7, f.EDREMA30, f.EDRMom, f.EDR14DVol,
		)
		if err != nil {
			return fmt.Errorf("failed to insert feature row: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetAll returns the full feature table ordered by game then date.
func (r *FeatureRepository) GetAll(ctx context.Context) ([]*contracts.FeatureRow, error) {
	query := `
		SELECT ` + featureColumns + `
		FROM rte.features
		ORDER BY universe_id, snapshot_date`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var features []*contracts.FeatureRow
	for rows.Next() {
		f, err := scanFeatureRow(rows)
		if err != nil {
			return nil, err
		}
		features = append(features, f)
	}
	return features, rows.Err()
}

func (r *FeatureRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM rte.features`).Scan(&count)
	return count, err
}

func scanFeatureRow(rows pgx.Rows) (*contracts.FeatureRow, error) {
	var f contracts.FeatureRow
	err := rows.Scan(
		&f.SnapshotDate, &f.UniverseID, &f.Name, &f.Developer,
		&f.AvgCCU, &f.Visits, &f.Favorites, &f.Likes,
		&f.MonetizationCount, &f.MedianPrice, &f.PriceDispersion,
		&f.EngagementScore, &f.DAUEst, &f.PCR, &f.ASPU,
		&f.SpendRevenue, &f.PremiumRevenue, &f.EDRRaw,
		&f.Coverage7D, &f.EDR7DMean, &f.CCU7DMean,
		&f.EDREMA7, &f.EDREMA30, &f.EDRMom, &f.EDR14DVol,
	)
	if err != nil {
		return nil, err
	}
	f.SnapshotDate = contracts.NormalizeDate(f.SnapshotDate)
	return &f, nil
}
