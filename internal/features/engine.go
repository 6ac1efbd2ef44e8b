// Package features derives rolling statistics from daily revenue
// snapshots: trailing means, exponential moving averages, momentum and
// volatility. Downstream ranking consumes these rows directly.
package features

import (
	"math"
	"sort"

	"github.com/nickpio/top-earning-parser/internal/contracts"
	"github.com/nickpio/top-earning-parser/internal/indexparams"
	"github.com/nickpio/top-earning-parser/pkg/logger"
)

// Engine computes per-game rolling features over snapshot history.
type Engine struct {
	params indexparams.RollingParams
	logger *logger.Logger
}

func NewEngine(params indexparams.RollingParams, log *logger.Logger) *Engine {
	return &Engine{
		params: params,
		logger: log,
	}
}

// Compute derives feature rows for every snapshot, grouped per game and
// ordered by date within each group. Windows are trailing and include
// the current day; a game's first days use whatever history exists,
// falling back to the raw daily value when the window is too short.
func (e *Engine) Compute(snapshots []*contracts.Snapshot) []*contracts.FeatureRow {
	groups := groupByGame(snapshots)

	ids := make([]int64, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	rows := make([]*contracts.FeatureRow, 0, len(snapshots))
	for _, id := range ids {
		rows = append(rows, e.computeGame(groups[id])...)
	}

	e.logger.WithFields(map[string]interface{}{
		"games": len(groups),
		"rows":  len(rows),
	}).Debug("Rolling features computed")

	return rows
}

// computeGame walks one game's history in date order, maintaining EMA
// state across iterations and re-scanning short trailing windows for
// the mean and volatility columns.
func (e *Engine) computeGame(snaps []*contracts.Snapshot) []*contracts.FeatureRow {
	sort.SliceStable(snaps, func(i, j int) bool {
		return snaps[i].SnapshotDate.Before(snaps[j].SnapshotDate)
	})

	alphaFast := emaAlpha(e.params.EMAFastSpan)
	alphaSlow := emaAlpha(e.params.EMASlowSpan)

	rows := make([]*contracts.FeatureRow, 0, len(snaps))
	var emaFast, emaSlow float64

	for i, snap := range snaps {
		if i == 0 {
			emaFast = snap.EDRRaw
			emaSlow = snap.EDRRaw
		} else {
			emaFast = alphaFast*snap.EDRRaw + (1-alphaFast)*emaFast
			emaSlow = alphaSlow*snap.EDRRaw + (1-alphaSlow)*emaSlow
		}

		edr7 := trailing(snaps, i, 7, func(s *contracts.Snapshot) float64 { return s.EDRRaw })
		ccu7 := trailing(snaps, i, 7, func(s *contracts.Snapshot) float64 { return s.AvgCCU })
		edr14 := trailing(snaps, i, 14, func(s *contracts.Snapshot) float64 { return s.EDRRaw })

		row := &contracts.FeatureRow{
			Snapshot:   *snap,
			Coverage7D: float64(len(edr7)) / 7.0,
			EDR7DMean:  meanOrFallback(edr7, e.params.Mean7DMinPeriods, snap.EDRRaw),
			CCU7DMean:  meanOrFallback(ccu7, e.params.Mean7DMinPeriods, snap.AvgCCU),
			EDREMA7:    emaFast,
			EDREMA30:   emaSlow,
			EDRMom:     momentum(emaFast, emaSlow),
			EDR14DVol:  relativeVol(edr14, e.params.Vol14DMinPeriods),
		}
		rows = append(rows, row)
	}

	return rows
}

func groupByGame(snapshots []*contracts.Snapshot) map[int64][]*contracts.Snapshot {
	groups := make(map[int64][]*contracts.Snapshot)
	for _, s := range snapshots {
		groups[s.UniverseID] = append(groups[s.UniverseID], s)
	}
	return groups
}

// trailing returns the values of the window ending at index i with the
// given size, truncated at the start of the series.
func trailing(snaps []*contracts.Snapshot, i, size int, value func(*contracts.Snapshot) float64) []float64 {
	start := i - size + 1
	if start < 0 {
		start = 0
	}
	values := make([]float64, 0, i-start+1)
	for j := start; j <= i; j++ {
		values = append(values, value(snaps[j]))
	}
	return values
}

// meanOrFallback averages the window when it has enough observations,
// otherwise returns the current raw value.
func meanOrFallback(values []float64, minPeriods int, fallback float64) float64 {
	if len(values) < minPeriods {
		return fallback
	}
	return mean(values)
}

// momentum is the fast/slow EMA ratio, defined as 0 when the slow EMA
// is exactly zero.
func momentum(emaFast, emaSlow float64) float64 {
	if emaSlow == 0 {
		return 0
	}
	return emaFast / emaSlow
}

// relativeVol is the sample standard deviation of the window divided by
// its mean. Windows below the minimum observation count, or with a zero
// mean, yield 0.
func relativeVol(values []float64, minPeriods int) float64 {
	if len(values) < minPeriods || len(values) < 2 {
		return 0
	}
	m := mean(values)
	if m == 0 {
		return 0
	}
	return sampleStd(values, m) / m
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStd uses the n-1 denominator.
func sampleStd(values []float64, mean float64) float64 {
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

// emaAlpha converts a span to the smoothing factor 2/(span+1).
func emaAlpha(span int) float64 {
	return 2.0 / (float64(span) + 1.0)
}
