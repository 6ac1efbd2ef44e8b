package edr

import (
	"math"
	"sort"
	"time"

	"github.com/nickpio/top-earning-parser/internal/contracts"
	"github.com/nickpio/top-earning-parser/internal/indexparams"
	"github.com/nickpio/top-earning-parser/pkg/logger"
)

// Estimator derives the daily revenue proxy (EDR) columns for scraped
// game rows. The transform is per-day and stateless; no cross-day data
// is read.
type Estimator struct {
	params indexparams.EDRParams
	logger *logger.Logger
}

// NewEstimator creates a new EDR estimator.
func NewEstimator(params indexparams.EDRParams, log *logger.Logger) *Estimator {
	return &Estimator{
		params: params,
		logger: log,
	}
}

// ComputeDaily turns one run day's raw rows into snapshots. Rows
// without a resolvable universe id are dropped. Missing or malformed
// numeric fields resolve to defaults; this stage never fails a run.
func (e *Estimator) ComputeDaily(snapshotDate time.Time, rows []contracts.RawRow) []*contracts.Snapshot {
	day := contracts.NormalizeDate(snapshotDate)

	snapshots := make([]*contracts.Snapshot, 0, len(rows))
	dropped := 0

	for _, row := range rows {
		id, ok := row.UniverseID()
		if !ok {
			dropped++
			continue
		}

		snap := &contracts.Snapshot{
			SnapshotDate: day,
			UniverseID:   id,
			Name:         row.String("name"),
			Developer:    row.String("developer"),
			AvgCCU:       e.avgCCU(row),
		}

		if v, ok := row.Int64("visits"); ok {
			snap.Visits = v
		}
		if v, ok := row.Int64("favorites"); ok {
			snap.Favorites = v
		}
		if v, ok := row.Int64("likes"); ok {
			snap.Likes = v
		}

		snap.MonetizationCount = e.monetizationCount(row)

		prices := append(row.Prices("gamepasses"), row.Prices("developerProducts")...)
		snap.MedianPrice = median(prices)
		snap.PriceDispersion = dispersion(prices)

		snap.EngagementScore = e.engagementScore(snap.Visits, snap.Favorites, snap.Likes)

		e.deriveRevenue(snap)
		snapshots = append(snapshots, snap)
	}

	e.logger.WithFields(map[string]interface{}{
		"snapshot_date": contracts.FormatDate(day),
		"rows":          len(rows),
		"snapshots":     len(snapshots),
		"dropped":       dropped,
	}).Debug("Computed daily EDR")

	return snapshots
}

// avgCCU coalesces the concurrent-user field across scrape vintages.
func (e *Estimator) avgCCU(row contracts.RawRow) float64 {
	v, ok := row.FirstFloat("avg_ccu", "players", "playing", "ccu", "concurrentPlayers")
	if !ok {
		return 0
	}
	return v
}

// monetizationCount prefers explicit count fields and falls back to
// the lengths of the monetization item lists.
func (e *Estimator) monetizationCount(row contracts.RawRow) int {
	gamepasses := 0
	if v, ok := row.Int64("gamepassCount"); ok {
		gamepasses = int(v)
	} else {
		gamepasses = len(row.List("gamepasses"))
	}

	products := 0
	if v, ok := row.Int64("devProductCount"); ok {
		products = int(v)
	} else {
		products = len(row.List("developerProducts"))
	}

	return gamepasses + products
}

// engagementScore blends favorite and like rates into a capped score.
// Rates are zero when the game has no recorded visits.
func (e *Estimator) engagementScore(visits, favorites, likes int64) float64 {
	favoriteRate := safeDiv(float64(favorites), float64(visits))
	likeRate := safeDiv(float64(likes), float64(visits))

	score := e.params.EngagementScale * 0.5 * (favoriteRate + likeRate)
	return clip(score, 0, e.params.EngagementCap)
}

// deriveRevenue fills the revenue proxy columns from the raw columns
// already present on the snapshot.
func (e *Estimator) deriveRevenue(snap *contracts.Snapshot) {
	p := e.params

	snap.DAUEst = math.Max(0, p.Alpha*snap.AvgCCU)
	snap.PCR = clip(p.BaseRate*math.Log(1+float64(snap.MonetizationCount)), p.PCRFloor, p.PCRCap)
	snap.ASPU = math.Max(0, snap.MedianPrice*(1+snap.PriceDispersion))

	snap.SpendRevenue = snap.DAUEst * snap.PCR * snap.ASPU
	snap.PremiumRevenue = p.Gamma * snap.DAUEst * snap.EngagementScore
	snap.EDRRaw = math.Max(0, snap.SpendRevenue+snap.PremiumRevenue)
}

// median returns the middle price, averaging the two middles for even
// counts. Empty input returns 0.
func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := n / 2
	if n%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// dispersion returns population standard deviation over mean, 0 when
// the mean is not positive or the input is empty.
func dispersion(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	if mean <= 0 {
		return 0
	}

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(n)

	return math.Sqrt(variance) / mean
}

// safeDiv returns a/b, 0 when b is 0.
func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// clip bounds v to [lo, hi].
func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
