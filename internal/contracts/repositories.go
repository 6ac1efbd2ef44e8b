package contracts

import (
	"context"
	"time"
)

// Repository interfaces are defined here and implemented by the store
// package; stages depend on these, never on SQL.

// SnapshotRepository manages the append-only snapshot table.
type SnapshotRepository interface {
	// UpsertBatch merges rows by (snapshot_date, universeId), last
	// write wins.
	UpsertBatch(ctx context.Context, rows []*Snapshot) error
	// GetAll returns the full history ordered by (universeId,
	// snapshot_date).
	GetAll(ctx context.Context) ([]*Snapshot, error)
	Count(ctx context.Context) (int64, error)
	// LatestDate returns the most recent snapshot date; ok is false
	// when the table is empty.
	LatestDate(ctx context.Context) (time.Time, bool, error)
}

// FeatureRepository manages the derived feature table. Features are a
// full recompute per run, so writes replace the whole table.
type FeatureRepository interface {
	ReplaceAll(ctx context.Context, rows []*FeatureRow) error
	// GetAll returns the full table ordered by (universeId,
	// snapshot_date).
	GetAll(ctx context.Context) ([]*FeatureRow, error)
	Count(ctx context.Context) (int64, error)
}

// MembershipRepository manages rebalance vintages.
type MembershipRepository interface {
	// AppendVintage inserts one vintage. Re-running the same rebalance
	// date replaces that vintage only.
	AppendVintage(ctx context.Context, rows []*Membership) error
	// GetHistory returns all vintages ordered by (rebalance_date,
	// rank).
	GetHistory(ctx context.Context) ([]*Membership, error)
	// GetLatestVintage returns the rows of the most recent rebalance
	// date, or an empty slice when no rebalance has run.
	GetLatestVintage(ctx context.Context) ([]*Membership, error)
	Count(ctx context.Context) (int64, error)
	LatestRebalanceDate(ctx context.Context) (time.Time, bool, error)
}

// IndexLevelRepository manages the compounded index series. Rebuilds
// replace the whole series.
type IndexLevelRepository interface {
	ReplaceAll(ctx context.Context, points []*IndexPoint) error
	// GetAll returns the series ordered by date.
	GetAll(ctx context.Context) ([]*IndexPoint, error)
	// GetLatest returns the most recent point, or nil when the series
	// is empty.
	GetLatest(ctx context.Context) (*IndexPoint, error)
	Count(ctx context.Context) (int64, error)
}
