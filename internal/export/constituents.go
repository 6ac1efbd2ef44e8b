// Package export writes the human-readable index outputs: the
// per-rebalance constituent tables and the index level series, each as
// CSV and JSON. Files go to the exports directory with a dated name
// plus a "latest" copy.
package export

import (
	"sort"
	"time"

	"github.com/nickpio/top-earning-parser/internal/contracts"
)

// ConstituentRow is one selected game flattened for publication:
// membership fields joined with the game's latest snapshot metadata and
// its scoring diagnostics.
type ConstituentRow struct {
	RebalanceDate     string  `json:"rebalance_date"`
	Rank              int     `json:"rank"`
	UniverseID        int64   `json:"universeId"`
	Name              string  `json:"name"`
	Developer         string  `json:"developer"`
	Weight            float64 `json:"weight"`
	EDR7DMean         float64 `json:"edr_7d_mean"`
	EDRMom            float64 `json:"edr_mom"`
	EDR14DVol         float64 `json:"edr_14d_vol"`
	Coverage7D        float64 `json:"coverage_7d"`
	AvgCCU            float64 `json:"avg_ccu"`
	Visits            int64   `json:"visits"`
	Favorites         int64   `json:"favorites"`
	Likes             int64   `json:"likes"`
	MonetizationCount int     `json:"monetization_count"`
	MedianPrice       float64 `json:"median_price"`
	PriceDispersion   float64 `json:"price_dispersion"`
	EngagementScore   float64 `json:"engagement_score"`
	EDRRaw            float64 `json:"edr_raw"`
	Score             float64 `json:"score"`
}

// BuildConstituents joins one vintage's membership with each game's
// latest snapshot at or before the rebalance date and with its ranked
// diagnostics, ordered by rank. Games lacking a snapshot keep zero
// metadata rather than dropping out.
func BuildConstituents(members []*contracts.Membership, ranked []*contracts.RankedGame, snapshots []*contracts.Snapshot) []*ConstituentRow {
	if len(members) == 0 {
		return nil
	}
	day := contracts.NormalizeDate(members[0].RebalanceDate)

	snaps := latestSnapshotsAsOf(snapshots, day)
	diags := make(map[int64]*contracts.RankedGame, len(ranked))
	for _, r := range ranked {
		diags[r.UniverseID] = r
	}

	rows := make([]*ConstituentRow, 0, len(members))
	for _, m := range members {
		row := &ConstituentRow{
			RebalanceDate: contracts.FormatDate(day),
			Rank:          m.Rank,
			UniverseID:    m.UniverseID,
			Weight:        m.Weight,
		}
		if s, ok := snaps[m.UniverseID]; ok {
			row.Name = s.Name
			row.Developer = s.Developer
			row.AvgCCU = s.AvgCCU
			row.Visits = s.Visits
			row.Favorites = s.Favorites
			row.Likes = s.Likes
			row.MonetizationCount = s.MonetizationCount
			row.MedianPrice = s.MedianPrice
			row.PriceDispersion = s.PriceDispersion
			row.EngagementScore = s.EngagementScore
			row.EDRRaw = s.EDRRaw
		}
		if d, ok := diags[m.UniverseID]; ok {
			row.EDR7DMean = d.EDR7DMean
			row.EDRMom = d.EDRMom
			row.EDR14DVol = d.EDR14DVol
			row.Coverage7D = d.Coverage7D
			row.Score = d.Score
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Rank < rows[j].Rank })
	return rows
}

// latestSnapshotsAsOf picks each game's most recent snapshot at or
// before day.
func latestSnapshotsAsOf(snapshots []*contracts.Snapshot, day time.Time) map[int64]*contracts.Snapshot {
	latest := make(map[int64]*contracts.Snapshot)
	for _, s := range snapshots {
		d := contracts.NormalizeDate(s.SnapshotDate)
		if d.After(day) {
			continue
		}
		cur, ok := latest[s.UniverseID]
		if !ok || d.After(contracts.NormalizeDate(cur.SnapshotDate)) {
			latest[s.UniverseID] = s
		}
	}
	return latest
}
