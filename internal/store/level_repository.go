package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nickpio/top-earning-parser/internal/contracts"
)

// IndexLevelRepository implements contracts.IndexLevelRepository. The
// series is rebuilt from scratch after every rebalance, so writes
// replace the whole table.
type IndexLevelRepository struct {
	pool *pgxpool.Pool
}

func NewIndexLevelRepository(pool *pgxpool.Pool) *IndexLevelRepository {
	return &IndexLevelRepository{pool: pool}
}

func (r *IndexLevelRepository) ReplaceAll(ctx context.Context, points []*contracts.IndexPoint) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM rte.levels`); err != nil {
		return fmt.Errorf("failed to clear index levels: %w", err)
	}

	query := `
		INSERT INTO rte.levels (date, index_level, daily_return, daily_log_return, coverage)
		VALUES ($1, $2, $3, $4, $5)`

	for _, p := range points {
		_, err := tx.Exec(ctx, query,
			contracts.NormalizeDate(p.Date), p.IndexLevel, p.DailyReturn, p.DailyLogReturn, p.Coverage,
		)
		if err != nil {
			return fmt.Errorf("failed to insert index point: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetAll returns the series in date order.
func (r *IndexLevelRepository) GetAll(ctx context.Context) ([]*contracts.IndexPoint, error) {
	query := `
		SELECT date, index_level, daily_return, daily_log_return, coverage
		FROM rte.levels
		ORDER BY date`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []*contracts.IndexPoint
	for rows.Next() {
		var p contracts.IndexPoint
		if err := rows.Scan(&p.Date, &p.IndexLevel, &p.DailyReturn, &p.DailyLogReturn, &p.Coverage); err != nil {
			return nil, err
		}
		p.Date = contracts.NormalizeDate(p.Date)
		points = append(points, &p)
	}
	return points, rows.Err()
}

// GetLatest returns the most recent point, or nil when the series is
// empty.
func (r *IndexLevelRepository) GetLatest(ctx context.Context) (*contracts.IndexPoint, error) {
	query := `
		SELECT date, index_level, daily_return, daily_log_return, coverage
		FROM rte.levels
		ORDER BY date DESC
		LIMIT 1`

	var p contracts.IndexPoint
	err := r.pool.QueryRow(ctx, query).Scan(&p.Date, &p.IndexLevel, &p.DailyReturn, &p.DailyLogReturn, &p.Coverage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p.Date = contracts.NormalizeDate(p.Date)
	return &p, nil
}

func (r *IndexLevelRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM rte.levels`).Scan(&count)
	return count, err
}
