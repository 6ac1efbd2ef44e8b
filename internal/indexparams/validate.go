package indexparams

import (
	"fmt"
	"strings"
)

// ValidationError is a fatal parameter violation. The run aborts before
// any stage executes.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all parameter constraints.
func Validate(p Params) error {
	// === EDR ===
	if p.EDR.Alpha <= 0 {
		return ValidationError{"edr.alpha", "must be > 0"}
	}
	if p.EDR.BaseRate <= 0 {
		return ValidationError{"edr.base_rate", "must be > 0"}
	}
	if p.EDR.PCRFloor <= 0 {
		return ValidationError{"edr.pcr_floor", "must be > 0"}
	}
	if p.EDR.PCRCap < p.EDR.PCRFloor {
		return ValidationError{"edr.pcr_cap", "must be >= pcr_floor"}
	}
	if p.EDR.PCRCap > 1 {
		return ValidationError{"edr.pcr_cap", "must be <= 1"}
	}
	if p.EDR.EngagementScale <= 0 {
		return ValidationError{"edr.engagement_scale", "must be > 0"}
	}
	if p.EDR.EngagementCap <= 0 {
		return ValidationError{"edr.engagement_cap", "must be > 0"}
	}
	if p.EDR.Gamma < 0 {
		return ValidationError{"edr.gamma", "must be >= 0"}
	}

	// === Rolling ===
	if p.Rolling.Mean7DMinPeriods < 1 || p.Rolling.Mean7DMinPeriods > 7 {
		return ValidationError{"rolling.mean_7d_min_periods", "must be in [1, 7]"}
	}
	// Sample std needs at least two observations
	if p.Rolling.Vol14DMinPeriods < 2 || p.Rolling.Vol14DMinPeriods > 14 {
		return ValidationError{"rolling.vol_14d_min_periods", "must be in [2, 14]"}
	}
	if p.Rolling.EMAFastSpan < 1 {
		return ValidationError{"rolling.ema_fast_span", "must be >= 1"}
	}
	if p.Rolling.EMASlowSpan <= p.Rolling.EMAFastSpan {
		return ValidationError{"rolling.ema_slow_span", "must be > ema_fast_span"}
	}

	// === Rebalance ===
	if _, err := p.Rebalance.Weekday(); err != nil {
		return ValidationError{"rebalance.rebalance_weekday", err.Error()}
	}
	if p.Rebalance.EnterRank < 1 {
		return ValidationError{"rebalance.enter_rank", "must be >= 1"}
	}
	if p.Rebalance.ExitRank < p.Rebalance.EnterRank {
		return ValidationError{"rebalance.exit_rank", "must be >= enter_rank"}
	}
	if p.Rebalance.MinCoverage7D < 0 || p.Rebalance.MinCoverage7D > 1 {
		return ValidationError{"rebalance.min_coverage_7d", "must be in [0, 1]"}
	}
	if p.Rebalance.NConstituents < 1 {
		return ValidationError{"rebalance.n_constituents", "must be >= 1"}
	}

	// === Index ===
	if p.Index.BaseLevel <= 0 {
		return ValidationError{"index.base_level", "must be > 0"}
	}
	if p.Index.Eps <= 0 {
		return ValidationError{"index.eps", "must be > 0"}
	}

	// === Storage ===
	if p.Storage.ExportPrefix == "" {
		return ValidationError{"storage.export_prefix", "required"}
	}
	if strings.ContainsAny(p.Storage.ExportPrefix, `/\`) {
		return ValidationError{"storage.export_prefix", "must not contain path separators"}
	}

	return nil
}
