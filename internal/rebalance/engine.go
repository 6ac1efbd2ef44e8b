// Package rebalance selects and weights index constituents on a weekly
// cadence. Games are scored cross-sectionally on revenue level,
// momentum and volatility percentiles, ranked, and admitted through a
// hysteresis band so membership churns less than raw rank would imply.
package rebalance

import (
	"math"
	"sort"
	"time"

	"github.com/nickpio/top-earning-parser/internal/contracts"
	"github.com/nickpio/top-earning-parser/internal/indexparams"
	"github.com/nickpio/top-earning-parser/pkg/logger"
)

const (
	levelWeight = 0.65
	momWeight   = 0.25
	riskWeight  = 0.10
)

// Engine performs one rebalance: latest feature row per game as of the
// rebalance date, eligibility filter, composite scoring, hysteresis
// selection and proportional weighting.
type Engine struct {
	params indexparams.RebalanceParams
	logger *logger.Logger
}

func NewEngine(params indexparams.RebalanceParams, log *logger.Logger) *Engine {
	return &Engine{
		params: params,
		logger: log,
	}
}

// Run builds the membership vintage for rebalanceDate. history is the
// full membership table from prior rebalances; only its most recent
// vintage feeds the hysteresis check. The ranked table covers every
// eligible game and exists for traceability.
//
// An empty eligible universe returns empty results, not an error.
func (e *Engine) Run(rebalanceDate time.Time, features []*contracts.FeatureRow, history []*contracts.Membership) ([]*contracts.Membership, []*contracts.RankedGame) {
	day := contracts.NormalizeDate(rebalanceDate)

	eligible := e.eligibleUniverse(day, features)
	if len(eligible) == 0 {
		e.logger.WithFields(map[string]interface{}{
			"rebalance_date": contracts.FormatDate(day),
		}).Warn("No eligible games at rebalance date")
		return []*contracts.Membership{}, []*contracts.RankedGame{}
	}

	ranked := e.rank(day, eligible)
	prev := prevMembers(history)
	selected := e.selectMembers(ranked, prev)

	members := e.weigh(day, eligible, ranked, selected)

	e.logger.WithFields(map[string]interface{}{
		"rebalance_date": contracts.FormatDate(day),
		"eligible":       len(ranked),
		"selected":       len(members),
		"prior_members":  len(prev),
	}).Info("Rebalance completed")

	return members, ranked
}

// eligibleUniverse reduces the feature history to the latest row per
// game at or before the rebalance date, then applies the coverage
// floor.
func (e *Engine) eligibleUniverse(day time.Time, features []*contracts.FeatureRow) []*contracts.FeatureRow {
	latest := make(map[int64]*contracts.FeatureRow)
	for _, row := range features {
		d := contracts.NormalizeDate(row.SnapshotDate)
		if d.After(day) {
			continue
		}
		cur, ok := latest[row.UniverseID]
		if !ok || d.After(contracts.NormalizeDate(cur.SnapshotDate)) {
			latest[row.UniverseID] = row
		}
	}

	eligible := make([]*contracts.FeatureRow, 0, len(latest))
	for _, row := range latest {
		if row.Coverage7D >= e.params.MinCoverage7D {
			eligible = append(eligible, row)
		}
	}

	// Fix iteration order before anything downstream depends on it
	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].UniverseID < eligible[j].UniverseID
	})

	return eligible
}

// rank scores the eligible universe and orders it best-first. Ties keep
// the ascending universe id order, so repeated runs produce identical
// tables.
func (e *Engine) rank(day time.Time, eligible []*contracts.FeatureRow) []*contracts.RankedGame {
	scores := scoreUniverse(eligible)

	order := make([]int, len(eligible))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	ranked := make([]*contracts.RankedGame, len(order))
	for pos, idx := range order {
		row := eligible[idx]
		ranked[pos] = &contracts.RankedGame{
			UniverseID:   row.UniverseID,
			SnapshotDate: contracts.NormalizeDate(row.SnapshotDate),
			Score:        scores[idx],
			Rank:         pos + 1,
			EDR7DMean:    row.EDR7DMean,
			EDRMom:       row.EDRMom,
			EDR14DVol:    row.EDR14DVol,
			Coverage7D:   row.Coverage7D,
		}
	}

	return ranked
}

// scoreUniverse computes the composite score for each row:
// 0.65*level_pct + 0.25*momentum_pct - 0.10*risk_pct, where each
// percentile is the cross-sectional average rank divided by n. Level is
// the 7d mean with the raw daily value as bootstrap when history is too
// thin to have produced a mean.
func scoreUniverse(rows []*contracts.FeatureRow) []float64 {
	n := len(rows)
	level := make([]float64, n)
	mom := make([]float64, n)
	risk := make([]float64, n)

	allUndefined := true
	for _, row := range rows {
		if !math.IsNaN(row.EDR7DMean) {
			allUndefined = false
			break
		}
	}

	for i, row := range rows {
		lv := row.EDR7DMean
		if allUndefined || math.IsNaN(lv) {
			lv = row.EDRRaw
		}
		if math.IsNaN(lv) {
			lv = 0
		}
		level[i] = lv
		mom[i] = zeroIfNaN(row.EDRMom)
		risk[i] = zeroIfNaN(row.EDR14DVol)
	}

	levelPct := rankPct(level)
	momPct := rankPct(mom)
	riskPct := rankPct(risk)

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = levelWeight*levelPct[i] + momWeight*momPct[i] - riskWeight*riskPct[i]
	}
	return scores
}

// rankPct returns each value's percentile as average 1-based rank over
// n. Equal values share the average of the positions they span.
func rankPct(values []float64) []float64 {
	n := len(values)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] < values[order[b]]
	})

	pct := make([]float64, n)
	i := 0
	for i < n {
		j := i
		for j+1 < n && values[order[j+1]] == values[order[i]] {
			j++
		}
		avgRank := (float64(i+1) + float64(j+1)) / 2.0
		for k := i; k <= j; k++ {
			pct[order[k]] = avgRank / float64(n)
		}
		i = j + 1
	}
	return pct
}

// prevMembers extracts the in-index game ids of the most recent vintage
// in the membership history.
func prevMembers(history []*contracts.Membership) map[int64]bool {
	last, ok := contracts.LatestVintageDate(history)
	if !ok {
		return map[int64]bool{}
	}

	prev := make(map[int64]bool)
	for _, m := range contracts.Vintage(history, last) {
		if m.InIndex {
			prev[m.UniverseID] = true
		}
	}
	return prev
}

// selectMembers applies the hysteresis band and resizes the result to
// the constituent target. A game enters by ranking at or above
// enter_rank; an existing member stays while it ranks at or above the
// looser exit_rank. Shortfalls are filled with the next best ranks,
// surpluses truncated to the best ranks.
func (e *Engine) selectMembers(ranked []*contracts.RankedGame, prev map[int64]bool) map[int64]bool {
	selected := make(map[int64]bool)
	for _, r := range ranked {
		switch {
		case r.Rank <= e.params.EnterRank:
			selected[r.UniverseID] = true
		case r.Rank <= e.params.ExitRank && prev[r.UniverseID]:
			selected[r.UniverseID] = true
		}
	}

	if len(selected) < e.params.NConstituents {
		need := e.params.NConstituents - len(selected)
		for _, r := range ranked {
			if need == 0 {
				break
			}
			if !selected[r.UniverseID] {
				selected[r.UniverseID] = true
				need--
			}
		}
	} else if len(selected) > e.params.NConstituents {
		kept := make(map[int64]bool, e.params.NConstituents)
		for _, r := range ranked {
			if len(kept) == e.params.NConstituents {
				break
			}
			if selected[r.UniverseID] {
				kept[r.UniverseID] = true
			}
		}
		selected = kept
	}

	return selected
}

// weigh builds the membership rows for the selected games in rank
// order, weighting each by its non-negative 7d mean revenue share. When
// every member's level is non-positive the weights fall back to equal.
func (e *Engine) weigh(day time.Time, eligible []*contracts.FeatureRow, ranked []*contracts.RankedGame, selected map[int64]bool) []*contracts.Membership {
	levels := make(map[int64]float64, len(eligible))
	for _, row := range eligible {
		levels[row.UniverseID] = weightBase(row.EDR7DMean)
	}

	members := make([]*contracts.Membership, 0, len(selected))
	denom := 0.0
	for _, r := range ranked {
		if !selected[r.UniverseID] {
			continue
		}
		denom += levels[r.UniverseID]
		members = append(members, &contracts.Membership{
			RebalanceDate: day,
			UniverseID:    r.UniverseID,
			Rank:          r.Rank,
			InIndex:       true,
		})
	}

	for _, m := range members {
		if denom > 0 {
			m.Weight = levels[m.UniverseID] / denom
		} else {
			m.Weight = 1.0 / float64(len(members))
		}
	}

	return members
}

// weightBase clips a level to be usable as a weight numerator.
func weightBase(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}

func zeroIfNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
