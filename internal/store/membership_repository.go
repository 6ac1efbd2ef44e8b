package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nickpio/top-earning-parser/internal/contracts"
)

// MembershipRepository implements contracts.MembershipRepository. The
// table is append-only across rebalance dates; re-running one date
// replaces just that vintage.
type MembershipRepository struct {
	pool *pgxpool.Pool
}

func NewMembershipRepository(pool *pgxpool.Pool) *MembershipRepository {
	return &MembershipRepository{pool: pool}
}

func (r *MembershipRepository) AppendVintage(ctx context.Context, rows []*contracts.Membership) error {
	if len(rows) == 0 {
		return nil
	}
	day := contracts.NormalizeDate(rows[0].RebalanceDate)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM rte.membership WHERE rebalance_date = $1`, day); err != nil {
		return fmt.Errorf("failed to clear vintage %s: %w", contracts.FormatDate(day), err)
	}

	query := `
		INSERT INTO rte.membership (rebalance_date, universe_id, rank, in_index, weight)
		VALUES ($1, $2, $3, $4, $5)`

	for _, m := range rows {
		_, err := tx.Exec(ctx, query,
			contracts.NormalizeDate(m.RebalanceDate), m.UniverseID, m.Rank, m.InIndex, m.Weight,
		)
		if err != nil {
			return fmt.Errorf("failed to insert membership row: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetHistory returns every vintage ordered by rebalance date then rank.
func (r *MembershipRepository) GetHistory(ctx context.Context) ([]*contracts.Membership, error) {
	query := `
		SELECT rebalance_date, universe_id, rank, in_index, weight
		FROM rte.membership
		ORDER BY rebalance_date, rank`

	return r.queryMembers(ctx, query)
}

// GetLatestVintage returns the most recent vintage's rows, or an empty
// slice when no rebalance has run yet.
func (r *MembershipRepository) GetLatestVintage(ctx context.Context) ([]*contracts.Membership, error) {
	query := `
		SELECT rebalance_date, universe_id, rank, in_index, weight
		FROM rte.membership
		WHERE rebalance_date = (SELECT MAX(rebalance_date) FROM rte.membership)
		ORDER BY rank`

	return r.queryMembers(ctx, query)
}

func (r *MembershipRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM rte.membership`).Scan(&count)
	return count, err
}

func (r *MembershipRepository) LatestRebalanceDate(ctx context.Context) (time.Time, bool, error) {
	var date *time.Time
	err := r.pool.QueryRow(ctx, `SELECT MAX(rebalance_date) FROM rte.membership`).Scan(&date)
	if err != nil {
		return time.Time{}, false, err
	}
	if date == nil {
		return time.Time{}, false, nil
	}
	return contracts.NormalizeDate(*date), true, nil
}

func (r *MembershipRepository) queryMembers(ctx context.Context, query string) ([]*contracts.Membership, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]*contracts.Membership, 0)
	for rows.Next() {
		var m contracts.Membership
		if err := rows.Scan(&m.RebalanceDate, &m.UniverseID, &m.Rank, &m.InIndex, &m.Weight); err != nil {
			return nil, err
		}
		m.RebalanceDate = contracts.NormalizeDate(m.RebalanceDate)
		members = append(members, &m)
	}
	return members, rows.Err()
}
