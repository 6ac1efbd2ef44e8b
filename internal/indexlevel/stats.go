package indexlevel

import (
	"math"
	"time"

	"github.com/nickpio/top-earning-parser/internal/contracts"
)

// Stats summarizes a finished index series.
type Stats struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Days      int       `json:"days"`

	TotalReturn  float64 `json:"total_return"`
	AnnualReturn float64 `json:"annual_return"`

	Volatility  float64 `json:"volatility"`
	Sharpe      float64 `json:"sharpe"`
	MaxDrawdown float64 `json:"max_drawdown"`

	BestDay      float64   `json:"best_day"`
	BestDayDate  time.Time `json:"best_day_date"`
	WorstDay     float64   `json:"worst_day"`
	WorstDayDate time.Time `json:"worst_day_date"`

	FinalLevel float64 `json:"final_level"`
}

// Revenue accrues every calendar day, so annualization uses 365 rather
// than a trading-day count.
const daysPerYear = 365.0

// Summarize computes summary statistics over the series. Returns nil
// for an empty series.
func Summarize(points []*contracts.IndexPoint) *Stats {
	if len(points) == 0 {
		return nil
	}

	returns := make([]float64, len(points))
	for i, p := range points {
		returns[i] = p.DailyReturn
	}

	s := &Stats{
		StartDate:  points[0].Date,
		EndDate:    points[len(points)-1].Date,
		Days:       len(points),
		FinalLevel: points[len(points)-1].IndexLevel,
	}

	s.TotalReturn = totalReturn(returns)
	s.AnnualReturn = annualize(s.TotalReturn, len(returns))
	s.Volatility = annualizedVolatility(returns)
	if s.Volatility > 0 {
		s.Sharpe = s.AnnualReturn / s.Volatility
	}
	s.MaxDrawdown = maxDrawdown(returns)

	s.BestDay = returns[0]
	s.WorstDay = returns[0]
	s.BestDayDate = points[0].Date
	s.WorstDayDate = points[0].Date
	for i, r := range returns {
		if r > s.BestDay {
			s.BestDay = r
			s.BestDayDate = points[i].Date
		}
		if r < s.WorstDay {
			s.WorstDay = r
			s.WorstDayDate = points[i].Date
		}
	}

	return s
}

// totalReturn compounds daily returns into a cumulative return.
func totalReturn(returns []float64) float64 {
	cum := 1.0
	for _, r := range returns {
		cum *= 1.0 + r
	}
	return cum - 1.0
}

// annualize converts a total return over the given day count to an
// annual rate.
func annualize(total float64, days int) float64 {
	if days == 0 {
		return 0
	}
	return math.Pow(1.0+total, daysPerYear/float64(days)) - 1.0
}

// annualizedVolatility is the sample standard deviation of daily
// returns scaled to a year.
func annualizedVolatility(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		diff := r - mean
		variance += diff * diff
	}
	variance /= float64(len(returns) - 1)

	return math.Sqrt(variance) * math.Sqrt(daysPerYear)
}

// maxDrawdown is the largest peak-to-trough decline of the compounded
// series, reported as a non-positive fraction.
func maxDrawdown(returns []float64) float64 {
	cum := 1.0
	peak := 1.0
	maxDD := 0.0

	for _, r := range returns {
		cum *= 1.0 + r
		if cum > peak {
			peak = cum
		}
		dd := (cum - peak) / peak
		if dd < maxDD {
			maxDD = dd
		}
	}

	return maxDD
}
