package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/nickpio/top-earning-parser/internal/contracts"
	"github.com/nickpio/top-earning-parser/pkg/logger"
)

// Writer publishes export files under one directory with a configured
// file name prefix.
type Writer struct {
	dir    string
	prefix string
	logger *logger.Logger
}

func NewWriter(dir, prefix string, log *logger.Logger) *Writer {
	return &Writer{
		dir:    dir,
		prefix: prefix,
		logger: log.WithField("module", "export"),
	}
}

var constituentHeader = []string{
	"rebalance_date", "rank", "universeId", "name", "developer",
	"weight",
	"edr_7d_mean", "edr_mom", "edr_14d_vol", "coverage_7d",
	"avg_ccu", "visits", "favorites", "likes",
	"monetization_count", "median_price", "price_dispersion",
	"engagement_score", "edr_raw",
	"score",
}

// WriteConstituents writes the vintage's table as
// <prefix>_<date>.csv/.json plus <prefix>_latest.csv/.json. An empty
// table writes nothing. Returns the written paths.
func (w *Writer) WriteConstituents(rows []*ConstituentRow) ([]string, error) {
	if len(rows) == 0 {
		w.logger.Debug("No constituent rows to export")
		return nil, nil
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create exports dir %s: %w", w.dir, err)
	}

	date := rows[0].RebalanceDate
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			r.RebalanceDate,
			strconv.Itoa(r.Rank),
			strconv.FormatInt(r.UniverseID, 10),
			r.Name,
			r.Developer,
			formatFloat(r.Weight),
			formatFloat(r.EDR7DMean),
			formatFloat(r.EDRMom),
			formatFloat(r.EDR14DVol),
			formatFloat(r.Coverage7D),
			formatFloat(r.AvgCCU),
			strconv.FormatInt(r.Visits, 10),
			strconv.FormatInt(r.Favorites, 10),
			strconv.FormatInt(r.Likes, 10),
			strconv.Itoa(r.MonetizationCount),
			formatFloat(r.MedianPrice),
			formatFloat(r.PriceDispersion),
			formatFloat(r.EngagementScore),
			formatFloat(r.EDRRaw),
			formatFloat(r.Score),
		})
	}

	var paths []string
	for _, name := range []string{
		fmt.Sprintf("%s_%s.csv", w.prefix, date),
		fmt.Sprintf("%s_latest.csv", w.prefix),
	} {
		path := filepath.Join(w.dir, name)
		if err := writeCSV(path, constituentHeader, records); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	for _, name := range []string{
		fmt.Sprintf("%s_%s.json", w.prefix, date),
		fmt.Sprintf("%s_latest.json", w.prefix),
	} {
		path := filepath.Join(w.dir, name)
		if err := writeJSON(path, rows); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}

	w.logger.WithFields(map[string]interface{}{
		"rebalance_date": date,
		"rows":           len(rows),
		"files":          len(paths),
	}).Info("Constituent exports written")

	return paths, nil
}

// levelRow mirrors one index point with a plain date string.
type levelRow struct {
	Date           string  `json:"date"`
	IndexLevel     float64 `json:"index_level"`
	DailyReturn    float64 `json:"daily_return"`
	DailyLogReturn float64 `json:"daily_log_return"`
	Coverage       float64 `json:"coverage"`
}

var levelHeader = []string{"date", "index_level", "daily_return", "daily_log_return", "coverage"}

// WriteIndexLevels writes the full series as
// <prefix>_index_level.csv/.json. Returns the written paths.
func (w *Writer) WriteIndexLevels(points []*contracts.IndexPoint) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create exports dir %s: %w", w.dir, err)
	}

	rows := make([]*levelRow, 0, len(points))
	records := make([][]string, 0, len(points))
	for _, p := range points {
		row := &levelRow{
			Date:           contracts.FormatDate(p.Date),
			IndexLevel:     p.IndexLevel,
			DailyReturn:    p.DailyReturn,
			DailyLogReturn: p.DailyLogReturn,
			Coverage:       p.Coverage,
		}
		rows = append(rows, row)
		records = append(records, []string{
			row.Date,
			formatFloat(row.IndexLevel),
			formatFloat(row.DailyReturn),
			formatFloat(row.DailyLogReturn),
			formatFloat(row.Coverage),
		})
	}

	csvPath := filepath.Join(w.dir, fmt.Sprintf("%s_index_level.csv", w.prefix))
	if err := writeCSV(csvPath, levelHeader, records); err != nil {
		return nil, err
	}
	jsonPath := filepath.Join(w.dir, fmt.Sprintf("%s_index_level.json", w.prefix))
	if err := writeJSON(jsonPath, rows); err != nil {
		return nil, err
	}

	w.logger.WithFields(map[string]interface{}{
		"days": len(points),
	}).Info("Index level exports written")

	return []string{csvPath, jsonPath}, nil
}

func writeCSV(path string, header []string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	for _, rec := range records {
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
