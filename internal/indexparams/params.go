package indexparams

import (
	"fmt"
	"strings"
	"time"
)

// Params is the full set of model parameters for one engine run. A run
// uses exactly one immutable Params value; stages receive it by value
// and never mutate it.
type Params struct {
	EDR       EDRParams       `yaml:"edr" json:"edr"`
	Rolling   RollingParams   `yaml:"rolling" json:"rolling"`
	Rebalance RebalanceParams `yaml:"rebalance" json:"rebalance"`
	Index     IndexParams     `yaml:"index" json:"index"`
	Storage   StorageParams   `yaml:"storage" json:"storage"`
}

// EDRParams controls the daily revenue proxy estimate.
type EDRParams struct {
	// Alpha converts average concurrent users to estimated DAU.
	Alpha float64 `yaml:"alpha" json:"alpha"`

	// BaseRate scales the paying-conversion-rate curve.
	BaseRate float64 `yaml:"base_rate" json:"base_rate"`
	PCRFloor float64 `yaml:"pcr_floor" json:"pcr_floor"`
	PCRCap   float64 `yaml:"pcr_cap" json:"pcr_cap"`

	// Engagement score shaping
	EngagementScale float64 `yaml:"engagement_scale" json:"engagement_scale"`
	EngagementCap   float64 `yaml:"engagement_cap" json:"engagement_cap"`

	// Gamma weights the premium (engagement-driven) revenue term.
	Gamma float64 `yaml:"gamma" json:"gamma"`
}

// RollingParams controls the per-game rolling feature windows. Windows
// are row-count based, not calendar based.
type RollingParams struct {
	Mean7DMinPeriods int `yaml:"mean_7d_min_periods" json:"mean_7d_min_periods"`
	Vol14DMinPeriods int `yaml:"vol_14d_min_periods" json:"vol_14d_min_periods"`
	EMAFastSpan      int `yaml:"ema_fast_span" json:"ema_fast_span"`
	EMASlowSpan      int `yaml:"ema_slow_span" json:"ema_slow_span"`
}

// RebalanceParams controls weekly selection and weighting.
type RebalanceParams struct {
	// RebalanceWeekday names the scheduled rebalance day, lowercase
	// English ("monday" .. "sunday"). Manual rebalances may run on any
	// date; only the scheduler consults this.
	RebalanceWeekday string `yaml:"rebalance_weekday" json:"rebalance_weekday"`

	EnterRank     int     `yaml:"enter_rank" json:"enter_rank"`
	ExitRank      int     `yaml:"exit_rank" json:"exit_rank"`
	MinCoverage7D float64 `yaml:"min_coverage_7d" json:"min_coverage_7d"`
	NConstituents int     `yaml:"n_constituents" json:"n_constituents"`
}

// IndexParams controls index level compounding.
type IndexParams struct {
	BaseLevel float64 `yaml:"base_level" json:"base_level"`

	// Eps stabilizes log returns for near-zero EDR values.
	Eps float64 `yaml:"eps" json:"eps"`
}

// StorageParams controls export naming.
type StorageParams struct {
	// ExportPrefix prefixes every export artifact, e.g. "rte100" gives
	// rte100_2025-07-14.csv, rte100_latest.json, rte100_index_level.csv.
	ExportPrefix string `yaml:"export_prefix" json:"export_prefix"`
}

// Default returns the built-in parameter set.
func Default() Params {
	return Params{
		EDR: EDRParams{
			Alpha:           20.0,
			BaseRate:        0.01,
			PCRFloor:        0.001,
			PCRCap:          0.05,
			EngagementScale: 50.0,
			EngagementCap:   1.5,
			Gamma:           0.02,
		},
		Rolling: RollingParams{
			Mean7DMinPeriods: 3,
			Vol14DMinPeriods: 2,
			EMAFastSpan:      7,
			EMASlowSpan:      30,
		},
		Rebalance: RebalanceParams{
			RebalanceWeekday: "monday",
			EnterRank:        90,
			ExitRank:         130,
			MinCoverage7D:    0.0,
			NConstituents:    100,
		},
		Index: IndexParams{
			BaseLevel: 1000.0,
			Eps:       1.0,
		},
		Storage: StorageParams{
			ExportPrefix: "rte100",
		},
	}
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Weekday parses RebalanceWeekday. Validate guarantees it succeeds on
// a validated Params value.
func (r RebalanceParams) Weekday() (time.Weekday, error) {
	day, ok := weekdays[strings.ToLower(r.RebalanceWeekday)]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", r.RebalanceWeekday)
	}
	return day, nil
}
