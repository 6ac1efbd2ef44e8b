// Package indexlevel compounds member-weighted daily revenue log
// returns into a single index series. Each calendar day is attributed
// to the most recent rebalance vintage at or before it, and only games
// carrying weight in that vintage contribute to the day's return.
package indexlevel

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/nickpio/top-earning-parser/internal/contracts"
	"github.com/nickpio/top-earning-parser/internal/indexparams"
	"github.com/nickpio/top-earning-parser/pkg/logger"
)

// Builder turns snapshot history plus membership history into the
// daily index level series.
type Builder struct {
	params indexparams.IndexParams
	logger *logger.Logger
}

func NewBuilder(params indexparams.IndexParams, log *logger.Logger) *Builder {
	return &Builder{
		params: params,
		logger: log,
	}
}

// gameReturn is one game's stabilized log return on one day.
type gameReturn struct {
	date       time.Time
	universeID int64
	logRet     float64
}

// Build produces one point per snapshot date on which at least one
// in-index game reported data. Returns an error when no valid
// membership rows or no snapshots exist, since an index cannot be
// anchored without both.
func (b *Builder) Build(snapshots []*contracts.Snapshot, history []*contracts.Membership) ([]*contracts.IndexPoint, error) {
	members := inIndex(history)
	if len(members) == 0 {
		return nil, fmt.Errorf("membership history has no in-index rows")
	}
	if len(snapshots) == 0 {
		return nil, fmt.Errorf("no snapshots to build an index from")
	}

	returns := b.gameLogReturns(snapshots)
	rebalDates := contracts.VintageDates(members)
	weights := weightTable(members)
	effective := effectiveVintages(uniqueDates(snapshots), rebalDates)

	type dayAccum struct {
		logReturn float64
		coverage  float64
	}
	days := make(map[string]*dayAccum)

	for _, gr := range returns {
		key := contracts.FormatDate(gr.date)
		vintage := effective[key]
		w, ok := weights[vintage][gr.universeID]
		if !ok {
			continue
		}
		acc := days[key]
		if acc == nil {
			acc = &dayAccum{}
			days[key] = acc
		}
		acc.logReturn += w * gr.logRet
		acc.coverage += w
	}

	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	level := b.params.BaseLevel
	points := make([]*contracts.IndexPoint, 0, len(keys))
	for _, key := range keys {
		acc := days[key]
		level *= math.Exp(acc.logReturn)

		day, err := contracts.ParseDate(key)
		if err != nil {
			return nil, fmt.Errorf("failed to parse index date %q: %w", key, err)
		}
		points = append(points, &contracts.IndexPoint{
			Date:           day,
			IndexLevel:     level,
			DailyReturn:    math.Exp(acc.logReturn) - 1.0,
			DailyLogReturn: acc.logReturn,
			Coverage:       acc.coverage,
		})
	}

	fields := map[string]interface{}{
		"days":     len(points),
		"vintages": len(rebalDates),
	}
	if len(points) > 0 {
		fields["first_date"] = contracts.FormatDate(points[0].Date)
		fields["last_date"] = contracts.FormatDate(points[len(points)-1].Date)
		fields["final_level"] = points[len(points)-1].IndexLevel
	}
	b.logger.WithFields(fields).Info("Index level series built")

	return points, nil
}

// gameLogReturns computes each game's day-over-day stabilized log
// return in date order. The first observation compares against itself
// and is therefore 0.
func (b *Builder) gameLogReturns(snapshots []*contracts.Snapshot) []gameReturn {
	groups := make(map[int64][]*contracts.Snapshot)
	for _, s := range snapshots {
		groups[s.UniverseID] = append(groups[s.UniverseID], s)
	}

	ids := make([]int64, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	returns := make([]gameReturn, 0, len(snapshots))
	for _, id := range ids {
		snaps := groups[id]
		sort.SliceStable(snaps, func(i, j int) bool {
			return snaps[i].SnapshotDate.Before(snaps[j].SnapshotDate)
		})

		for i, s := range snaps {
			prev := s.EDRRaw
			if i > 0 {
				prev = snaps[i-1].EDRRaw
			}
			returns = append(returns, gameReturn{
				date:       contracts.NormalizeDate(s.SnapshotDate),
				universeID: id,
				logRet:     b.stabilizedLogReturn(s.EDRRaw, prev),
			})
		}
	}

	return returns
}

// stabilizedLogReturn is ln((edr+eps)/(prev+eps)), or 0 when either
// stabilized operand is non-positive.
func (b *Builder) stabilizedLogReturn(edr, prev float64) float64 {
	cur := edr + b.params.Eps
	base := prev + b.params.Eps
	if cur <= 0 || base <= 0 {
		return 0
	}
	return math.Log(cur / base)
}

// inIndex keeps only rows marked as index members.
func inIndex(history []*contracts.Membership) []*contracts.Membership {
	members := make([]*contracts.Membership, 0, len(history))
	for _, m := range history {
		if m.InIndex {
			members = append(members, m)
		}
	}
	return members
}

// weightTable indexes member weights by vintage date then game id.
func weightTable(members []*contracts.Membership) map[string]map[int64]float64 {
	table := make(map[string]map[int64]float64)
	for _, m := range members {
		key := contracts.FormatDate(contracts.NormalizeDate(m.RebalanceDate))
		if table[key] == nil {
			table[key] = make(map[int64]float64)
		}
		table[key][m.UniverseID] = m.Weight
	}
	return table
}

// uniqueDates returns the sorted distinct snapshot dates.
func uniqueDates(snapshots []*contracts.Snapshot) []time.Time {
	seen := make(map[string]time.Time)
	for _, s := range snapshots {
		d := contracts.NormalizeDate(s.SnapshotDate)
		seen[contracts.FormatDate(d)] = d
	}

	dates := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// effectiveVintages maps each snapshot date to the greatest rebalance
// date at or before it. Dates preceding the first rebalance fall back
// to the first vintage, so early history is still attributed rather
// than dropped.
func effectiveVintages(snapDates, rebalDates []time.Time) map[string]string {
	eff := make(map[string]string, len(snapDates))
	j := 0
	current := rebalDates[0]
	for _, d := range snapDates {
		for j+1 < len(rebalDates) && !rebalDates[j+1].After(d) {
			j++
			current = rebalDates[j]
		}
		eff[contracts.FormatDate(d)] = contracts.FormatDate(current)
	}
	return eff
}
