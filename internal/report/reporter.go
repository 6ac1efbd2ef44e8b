// Package report renders the weekly rebalance narrative that accompanies
// the constituent exports: a headline, the top-ten table, membership
// changes against the previous vintage, and weight concentration.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/nickpio/top-earning-parser/internal/contracts"
	"github.com/nickpio/top-earning-parser/internal/export"
	"github.com/nickpio/top-earning-parser/pkg/logger"
)

const topTableSize = 10

// Reporter writes the markdown rebalance report next to the exports.
type Reporter struct {
	dir    string
	prefix string
	logger *logger.Logger
}

func NewReporter(dir, prefix string, log *logger.Logger) *Reporter {
	return &Reporter{
		dir:    dir,
		prefix: prefix,
		logger: log.WithField("module", "report"),
	}
}

// WriteWeekly generates the report for one rebalance vintage. rows is the
// constituent export in rank order; history is the membership table as it
// stood before this vintage was appended, which is what makes the
// entrant/exit diff meaningful.
func (r *Reporter) WriteWeekly(rows []*export.ConstituentRow, history []*contracts.Membership) (string, error) {
	if len(rows) == 0 {
		r.logger.Debug("No constituents, skipping weekly report")
		return "", nil
	}

	day := rows[0].RebalanceDate
	prevDate, prevIDs := previousVintage(history, day)
	body := render(day, rows, prevDate, prevIDs)

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create exports dir: %w", err)
	}

	path := filepath.Join(r.dir, fmt.Sprintf("%s_report_%s.md", r.prefix, day))
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("failed to write weekly report: %w", err)
	}
	latest := filepath.Join(r.dir, fmt.Sprintf("%s_report_latest.md", r.prefix))
	if err := os.WriteFile(latest, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("failed to write weekly report: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"rebalance_date": day,
		"constituents":   len(rows),
		"path":           path,
	}).Info("Weekly report written")

	return path, nil
}

// previousVintage returns the latest in-index vintage strictly before day.
// The second value is nil when no prior vintage exists.
func previousVintage(history []*contracts.Membership, day string) (string, map[int64]bool) {
	var prior []*contracts.Membership
	for _, m := range history {
		if contracts.FormatDate(m.RebalanceDate) < day {
			prior = append(prior, m)
		}
	}

	prevDate, ok := contracts.LatestVintageDate(prior)
	if !ok {
		return "", nil
	}

	ids := make(map[int64]bool)
	for _, m := range contracts.Vintage(prior, prevDate) {
		if m.InIndex {
			ids[m.UniverseID] = true
		}
	}
	if len(ids) == 0 {
		return "", nil
	}
	return contracts.FormatDate(prevDate), ids
}

func render(day string, rows []*export.ConstituentRow, prevDate string, prevIDs map[int64]bool) string {
	var s string

	s += fmt.Sprintf("# Weekly Rebalance Report: %s\n\n", day)

	leader := rows[0]
	s += fmt.Sprintf("Constituents: %d. Top game: %s (universe %d) at %.2f%% weight.\n",
		len(rows), displayName(leader), leader.UniverseID, leader.Weight*100)
	s += fmt.Sprintf("Top-%d weight share: %.2f%%.\n\n", topTableSize, topShare(rows)*100)

	s += fmt.Sprintf("## Top %d\n\n", topTableSize)
	s += "| Rank | Game | Developer | Weight | EDR 7d mean | Momentum | Coverage |\n"
	s += "|-----:|------|-----------|-------:|------------:|---------:|---------:|\n"
	for _, row := range rows {
		if row.Rank > topTableSize {
			break
		}
		s += fmt.Sprintf("| %d | %s | %s | %.4f | %.1f | %.3f | %.2f |\n",
			row.Rank, displayName(row), row.Developer, row.Weight, row.EDR7DMean, row.EDRMom, row.Coverage7D)
	}
	s += "\n"

	s += "## Membership Changes\n\n"
	if prevIDs == nil {
		s += "First vintage: every constituent is a new entrant.\n"
		return s
	}

	entrants, exits := diffMembership(rows, prevIDs)
	s += fmt.Sprintf("Compared with %s: %d entrants, %d exits.\n", prevDate, len(entrants), len(exits))
	if len(entrants) > 0 {
		s += "\nEntrants:\n"
		for _, row := range entrants {
			s += fmt.Sprintf("- %s (universe %d), rank %d\n", displayName(row), row.UniverseID, row.Rank)
		}
	}
	if len(exits) > 0 {
		s += "\nExits:\n"
		for _, id := range exits {
			s += fmt.Sprintf("- universe %d\n", id)
		}
	}

	return s
}

// diffMembership splits the current vintage into entrants not present in
// the previous vintage, plus the previous ids that dropped out.
func diffMembership(rows []*export.ConstituentRow, prevIDs map[int64]bool) ([]*export.ConstituentRow, []int64) {
	current := make(map[int64]bool, len(rows))
	var entrants []*export.ConstituentRow
	for _, row := range rows {
		current[row.UniverseID] = true
		if !prevIDs[row.UniverseID] {
			entrants = append(entrants, row)
		}
	}

	var exits []int64
	for id := range prevIDs {
		if !current[id] {
			exits = append(exits, id)
		}
	}
	sort.Slice(exits, func(i, j int) bool { return exits[i] < exits[j] })

	return entrants, exits
}

func topShare(rows []*export.ConstituentRow) float64 {
	share := 0.0
	for _, row := range rows {
		if row.Rank > topTableSize {
			break
		}
		share += row.Weight
	}
	return share
}

func displayName(row *export.ConstituentRow) string {
	if row.Name == "" {
		return fmt.Sprintf("universe %d", row.UniverseID)
	}
	return row.Name
}
