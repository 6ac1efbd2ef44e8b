package rebalance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickpio/top-earning-parser/internal/contracts"
	"github.com/nickpio/top-earning-parser/internal/indexparams"
	"github.com/nickpio/top-earning-parser/pkg/config"
	"github.com/nickpio/top-earning-parser/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{
		Env:       "development",
		LogLevel:  "error",
		LogFormat: "json",
	})
}

func date(s string) time.Time {
	d, err := contracts.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func params(enter, exit, n int) indexparams.RebalanceParams {
	p := indexparams.Default().Rebalance
	p.EnterRank = enter
	p.ExitRank = exit
	p.NConstituents = n
	p.MinCoverage7D = 0.0
	return p
}

func frow(id int64, day string, edr7 float64) *contracts.FeatureRow {
	row := &contracts.FeatureRow{
		Coverage7D: 1.0,
		EDR7DMean:  edr7,
	}
	row.UniverseID = id
	row.SnapshotDate = date(day)
	row.EDRRaw = edr7
	return row
}

// sixGames returns one feature row per game, scored so that rank k is
// game k.
func sixGames(day string) []*contracts.FeatureRow {
	rows := make([]*contracts.FeatureRow, 0, 6)
	for id := int64(1); id <= 6; id++ {
		rows = append(rows, frow(id, day, 1000-100*float64(id)))
	}
	return rows
}

func vintage(day string, ids ...int64) []*contracts.Membership {
	ms := make([]*contracts.Membership, 0, len(ids))
	for i, id := range ids {
		ms = append(ms, &contracts.Membership{
			RebalanceDate: date(day),
			UniverseID:    id,
			Rank:          i + 1,
			InIndex:       true,
			Weight:        1.0 / float64(len(ids)),
		})
	}
	return ms
}

func memberIDs(members []*contracts.Membership) []int64 {
	ids := make([]int64, len(members))
	for i, m := range members {
		ids[i] = m.UniverseID
	}
	return ids
}

func TestRunTwoGameScenario(t *testing.T) {
	e := NewEngine(params(90, 130, 100), testLogger())

	features := []*contracts.FeatureRow{
		frow(1, "2025-07-14", 100),
		frow(2, "2025-07-14", 50),
	}
	features[0].Coverage7D = 1.0 / 7.0
	features[1].Coverage7D = 1.0 / 7.0

	members, ranked := e.Run(date("2025-07-14"), features, nil)
	require.Len(t, members, 2)
	require.Len(t, ranked, 2)

	assert.Equal(t, int64(1), members[0].UniverseID)
	assert.Equal(t, 1, members[0].Rank)
	assert.InDelta(t, 100.0/150.0, members[0].Weight, 1e-9)
	assert.InDelta(t, 50.0/150.0, members[1].Weight, 1e-9)
	assert.True(t, members[0].InIndex)
	assert.Equal(t, date("2025-07-14"), members[0].RebalanceDate)
}

func TestRunWeightsSumToOne(t *testing.T) {
	e := NewEngine(params(3, 5, 4), testLogger())

	members, _ := e.Run(date("2025-07-14"), sixGames("2025-07-14"), nil)
	require.Len(t, members, 4)

	sum := 0.0
	for _, m := range members {
		assert.Greater(t, m.Weight, 0.0)
		sum += m.Weight
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestRunEqualWeightFallback(t *testing.T) {
	e := NewEngine(params(2, 3, 2), testLogger())

	features := []*contracts.FeatureRow{
		frow(1, "2025-07-14", 0),
		frow(2, "2025-07-14", 0),
		frow(3, "2025-07-14", -5),
	}

	members, _ := e.Run(date("2025-07-14"), features, nil)
	require.Len(t, members, 2)
	assert.Equal(t, 0.5, members[0].Weight)
	assert.Equal(t, 0.5, members[1].Weight)
}

func TestRunFirstRebalanceFillsByRank(t *testing.T) {
	e := NewEngine(params(2, 4, 3), testLogger())

	members, ranked := e.Run(date("2025-07-14"), sixGames("2025-07-14"), nil)
	require.Len(t, ranked, 6)

	// Two enter by rank, the third best fills the remaining seat
	assert.Equal(t, []int64{1, 2, 3}, memberIDs(members))
}

func TestRunPriorMemberStaysInsideExitBand(t *testing.T) {
	e := NewEngine(params(2, 4, 3), testLogger())

	prior := vintage("2025-07-07", 1, 2, 4)
	members, _ := e.Run(date("2025-07-14"), sixGames("2025-07-14"), prior)

	// Game 4 ranks outside enter but inside exit and was a member, so
	// it keeps its seat ahead of the never-member game 3.
	assert.Equal(t, []int64{1, 2, 4}, memberIDs(members))
}

func TestRunNonMemberInBandIsNotAdmitted(t *testing.T) {
	e := NewEngine(params(2, 6, 3), testLogger())

	// Game 5 was a member and still ranks inside the wide exit band.
	// Game 3 and 4 also sit inside the band but were never members, so
	// they only compete through the fill step, which is not needed.
	prior := vintage("2025-07-07", 1, 2, 5)
	members, _ := e.Run(date("2025-07-14"), sixGames("2025-07-14"), prior)

	assert.Equal(t, []int64{1, 2, 5}, memberIDs(members))
}

func TestRunPriorMemberBeyondExitIsDropped(t *testing.T) {
	e := NewEngine(params(2, 4, 3), testLogger())

	prior := vintage("2025-07-07", 1, 2, 5)
	members, _ := e.Run(date("2025-07-14"), sixGames("2025-07-14"), prior)

	// Game 5 fell past the exit rank; the fill step prefers game 3
	assert.Equal(t, []int64{1, 2, 3}, memberIDs(members))
}

func TestRunTruncatesToBestRanks(t *testing.T) {
	e := NewEngine(params(2, 6, 3), testLogger())

	// Four prior members all inside the exit band plus two entrants
	// exceed the target, so only the best three ranks survive.
	prior := vintage("2025-07-07", 3, 4, 5, 6)
	members, _ := e.Run(date("2025-07-14"), sixGames("2025-07-14"), prior)

	assert.Equal(t, []int64{1, 2, 3}, memberIDs(members))
}

func TestRunOnlyLatestVintageCounts(t *testing.T) {
	e := NewEngine(params(2, 4, 3), testLogger())

	// Game 4 was a member two weeks ago but not last week
	history := append(
		vintage("2025-06-30", 1, 2, 4),
		vintage("2025-07-07", 1, 2, 3)...,
	)
	members, _ := e.Run(date("2025-07-14"), sixGames("2025-07-14"), history)

	assert.Equal(t, []int64{1, 2, 3}, memberIDs(members))
}

func TestRunSelectionSizeCappedByEligible(t *testing.T) {
	e := NewEngine(params(90, 130, 100), testLogger())

	features := sixGames("2025-07-14")
	members, ranked := e.Run(date("2025-07-14"), features, nil)

	assert.Len(t, members, 6)
	assert.Len(t, ranked, 6)
}

func TestRunCoverageFloorFiltersGames(t *testing.T) {
	p := params(2, 4, 3)
	p.MinCoverage7D = 0.5
	e := NewEngine(p, testLogger())

	features := sixGames("2025-07-14")
	features[0].Coverage7D = 0.2

	members, ranked := e.Run(date("2025-07-14"), features, nil)
	assert.Len(t, ranked, 5)
	assert.Equal(t, []int64{2, 3, 4}, memberIDs(members))
}

func TestRunEmptyUniverseIsNotAnError(t *testing.T) {
	e := NewEngine(params(2, 4, 3), testLogger())

	// All rows lie after the rebalance date
	members, ranked := e.Run(date("2025-07-01"), sixGames("2025-07-14"), nil)
	assert.Empty(t, members)
	assert.Empty(t, ranked)
}

func TestRunUsesLatestRowPerGame(t *testing.T) {
	e := NewEngine(params(1, 2, 1), testLogger())

	features := []*contracts.FeatureRow{
		frow(1, "2025-07-10", 10),
		frow(1, "2025-07-12", 500),
		frow(2, "2025-07-11", 100),
		frow(2, "2025-07-20", 9000),
	}

	// As of the 14th, game 1's latest row (500) beats game 2's (100);
	// game 2's future row is invisible.
	members, ranked := e.Run(date("2025-07-14"), features, nil)
	require.Len(t, ranked, 2)
	assert.Equal(t, int64(1), ranked[0].UniverseID)
	assert.Equal(t, date("2025-07-12"), ranked[0].SnapshotDate)
	assert.Equal(t, []int64{1}, memberIDs(members))

	// As of the 11th only earlier rows exist and game 2 leads
	_, ranked = e.Run(date("2025-07-11"), features, nil)
	require.Len(t, ranked, 2)
	assert.Equal(t, int64(2), ranked[0].UniverseID)
}

func TestRunTiedScoresOrderByUniverseID(t *testing.T) {
	e := NewEngine(params(2, 4, 2), testLogger())

	features := []*contracts.FeatureRow{
		frow(30, "2025-07-14", 100),
		frow(10, "2025-07-14", 100),
		frow(20, "2025-07-14", 100),
	}

	_, ranked := e.Run(date("2025-07-14"), features, nil)
	require.Len(t, ranked, 3)
	assert.Equal(t, int64(10), ranked[0].UniverseID)
	assert.Equal(t, int64(20), ranked[1].UniverseID)
	assert.Equal(t, int64(30), ranked[2].UniverseID)
}

func TestRunRankedTableColumns(t *testing.T) {
	e := NewEngine(params(2, 4, 3), testLogger())

	features := sixGames("2025-07-14")
	features[0].EDRMom = 1.2
	features[0].EDR14DVol = 0.3

	_, ranked := e.Run(date("2025-07-14"), features, nil)
	require.Len(t, ranked, 6)

	for i, r := range ranked {
		assert.Equal(t, i+1, r.Rank)
	}
	assert.Equal(t, 1.2, ranked[0].EDRMom)
	assert.Equal(t, 0.3, ranked[0].EDR14DVol)
	assert.Equal(t, 1.0, ranked[0].Coverage7D)
	assert.Greater(t, ranked[0].Score, ranked[5].Score)
}

func TestRankPct(t *testing.T) {
	// Distinct values map to k/n
	pct := rankPct([]float64{30, 10, 20})
	assert.InDelta(t, 3.0/3.0, pct[0], 1e-9)
	assert.InDelta(t, 1.0/3.0, pct[1], 1e-9)
	assert.InDelta(t, 2.0/3.0, pct[2], 1e-9)

	// Ties share the average of their positions
	pct = rankPct([]float64{50, 50})
	assert.InDelta(t, 0.75, pct[0], 1e-9)
	assert.InDelta(t, 0.75, pct[1], 1e-9)

	pct = rankPct([]float64{5, 5, 9, 1})
	assert.InDelta(t, 2.5/4.0, pct[0], 1e-9)
	assert.InDelta(t, 2.5/4.0, pct[1], 1e-9)
	assert.InDelta(t, 4.0/4.0, pct[2], 1e-9)
	assert.InDelta(t, 1.0/4.0, pct[3], 1e-9)
}
