package contracts

import (
	"sort"
	"time"
)

// RankedGame is one row of the ranked eligible universe at a rebalance,
// kept for diagnostics and exports.
type RankedGame struct {
	UniverseID   int64     `json:"universeId"`
	SnapshotDate time.Time `json:"snapshot_date"`
	Score        float64   `json:"score"`
	Rank         int       `json:"rank"`
	EDR7DMean    float64   `json:"edr_7d_mean"`
	EDRMom       float64   `json:"edr_mom"`
	EDR14DVol    float64   `json:"edr_14d_vol"`
	Coverage7D   float64   `json:"coverage_7d"`
}

// IsTopRanked checks if the game is in the top n ranks.
func (r *RankedGame) IsTopRanked(n int) bool {
	return r.Rank <= n && r.Rank > 0
}

// Membership is one constituent row of one rebalance vintage. The
// membership table is append-only; each rebalance appends one vintage
// and never rewrites older ones.
type Membership struct {
	RebalanceDate time.Time `json:"rebalance_date"`
	UniverseID    int64     `json:"universeId"`
	Rank          int       `json:"rank"`
	InIndex       bool      `json:"in_index"`
	Weight        float64   `json:"weight"`
}

// IndexPoint is one day of the compounded index level series.
type IndexPoint struct {
	Date           time.Time `json:"date"`
	IndexLevel     float64   `json:"index_level"`
	DailyReturn    float64   `json:"daily_return"`
	DailyLogReturn float64   `json:"daily_log_return"`
	Coverage       float64   `json:"coverage"`
}

// VintageDates returns the sorted unique rebalance dates in history.
func VintageDates(history []*Membership) []time.Time {
	seen := make(map[time.Time]struct{})
	var dates []time.Time
	for _, m := range history {
		d := NormalizeDate(m.RebalanceDate)
		if _, ok := seen[d]; !ok {
			seen[d] = struct{}{}
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// Vintage returns the membership rows of the given rebalance date.
func Vintage(history []*Membership, date time.Time) []*Membership {
	d := NormalizeDate(date)
	var rows []*Membership
	for _, m := range history {
		if NormalizeDate(m.RebalanceDate).Equal(d) {
			rows = append(rows, m)
		}
	}
	return rows
}

// LatestVintageDate returns the most recent rebalance date in history.
// The second return is false when history is empty.
func LatestVintageDate(history []*Membership) (time.Time, bool) {
	dates := VintageDates(history)
	if len(dates) == 0 {
		return time.Time{}, false
	}
	return dates[len(dates)-1], true
}
