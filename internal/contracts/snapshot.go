package contracts

import "time"

// Snapshot is one game-day row after the EDR stage: raw scraped
// attributes plus the derived revenue proxy columns. Snapshots are
// append-only and deduped by (snapshot_date, universeId), last write
// wins.
type Snapshot struct {
	SnapshotDate time.Time `json:"snapshot_date"`
	UniverseID   int64     `json:"universeId"`
	Name         string    `json:"name"`
	Developer    string    `json:"developer"`

	// Raw attributes
	AvgCCU            float64 `json:"avg_ccu"`
	Visits            int64   `json:"visits"`
	Favorites         int64   `json:"favorites"`
	Likes             int64   `json:"likes"`
	MonetizationCount int     `json:"monetization_count"`
	MedianPrice       float64 `json:"median_price"`
	PriceDispersion   float64 `json:"price_dispersion"`

	// Derived columns
	EngagementScore float64 `json:"engagement_score"`
	DAUEst          float64 `json:"dau_est"`
	PCR             float64 `json:"pcr"`
	ASPU            float64 `json:"aspu"`
	SpendRevenue    float64 `json:"spend_revenue"`
	PremiumRevenue  float64 `json:"premium_revenue"`
	EDRRaw          float64 `json:"edr_raw"`
}

// SnapshotKey identifies one snapshot row for dedup.
type SnapshotKey struct {
	Date       string
	UniverseID int64
}

// Key returns the dedup key of this row.
func (s *Snapshot) Key() SnapshotKey {
	return SnapshotKey{Date: FormatDate(s.SnapshotDate), UniverseID: s.UniverseID}
}

// FeatureRow is a snapshot extended with rolling features. The feature
// table is a full-history recompute, one row per game-day.
type FeatureRow struct {
	Snapshot

	Coverage7D float64 `json:"coverage_7d"`
	EDR7DMean  float64 `json:"edr_7d_mean"`
	CCU7DMean  float64 `json:"ccu_7d_mean"`
	EDREMA7    float64 `json:"edr_ema7"`
	EDREMA30   float64 `json:"edr_ema30"`
	EDRMom     float64 `json:"edr_mom"`
	EDR14DVol  float64 `json:"edr_14d_vol"`
}
