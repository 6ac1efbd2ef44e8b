package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nickpio/top-earning-parser/internal/contracts"
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

func day(s string) time.Time {
	d, err := contracts.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func fixtureVintage() ([]*contracts.Membership, []*contracts.RankedGame, []*contracts.Snapshot) {
	members := []*contracts.Membership{
		{RebalanceDate: day("2025-07-14"), UniverseID: 1, Rank: 1, InIndex: true, Weight: 0.7},
		{RebalanceDate: day("2025-07-14"), UniverseID: 2, Rank: 2, InIndex: true, Weight: 0.3},
	}
	ranked := []*contracts.RankedGame{
		{UniverseID: 1, SnapshotDate: day("2025-07-14"), Score: 0.9, Rank: 1, EDR7DMean: 700, EDRMom: 1.1, EDR14DVol: 0.2, Coverage7D: 1},
		{UniverseID: 2, SnapshotDate: day("2025-07-14"), Score: 0.5, Rank: 2, EDR7DMean: 300, EDRMom: 0.9, EDR14DVol: 0.4, Coverage7D: 1},
	}
	snapshots := []*contracts.Snapshot{
		{SnapshotDate: day("2025-07-13"), UniverseID: 1, Name: "Old Name", Developer: "Studio A", EDRRaw: 650},
		{SnapshotDate: day("2025-07-14"), UniverseID: 1, Name: "Fresh Name", Developer: "Studio A", AvgCCU: 5000, Visits: 100, EDRRaw: 700},
		{SnapshotDate: day("2025-07-14"), UniverseID: 2, Name: "Two, The Game", Developer: "Studio B", EDRRaw: 300},
		// Future snapshot must not leak into the as-of join
		{SnapshotDate: day("2025-07-20"), UniverseID: 2, Name: "Too New", Developer: "Studio B", EDRRaw: 999},
	}
	return members, ranked, snapshots
}

func TestBuildConstituents(t *testing.T) {
	members, ranked, snapshots := fixtureVintage()

	rows := BuildConstituents(members, ranked, snapshots)
	if len(rows) != 2 {
		t.Fatalf("BuildConstituents() got %d rows, want 2", len(rows))
	}

	r := rows[0]
	if r.Rank != 1 || r.UniverseID != 1 {
		t.Errorf("rows[0] = rank %d universe %d, want rank 1 universe 1", r.Rank, r.UniverseID)
	}
	if r.Name != "Fresh Name" {
		t.Errorf("rows[0].Name = %q, want the latest as-of snapshot name", r.Name)
	}
	if r.RebalanceDate != "2025-07-14" {
		t.Errorf("rows[0].RebalanceDate = %q", r.RebalanceDate)
	}
	if r.Score != 0.9 || r.EDR7DMean != 700 {
		t.Errorf("rows[0] diagnostics = score %v mean %v", r.Score, r.EDR7DMean)
	}
	if r.Weight != 0.7 {
		t.Errorf("rows[0].Weight = %v, want 0.7", r.Weight)
	}

	if rows[1].Name != "Two, The Game" {
		t.Errorf("rows[1].Name = %q, future snapshot leaked into join", rows[1].Name)
	}
}

func TestBuildConstituentsEmpty(t *testing.T) {
	if rows := BuildConstituents(nil, nil, nil); rows != nil {
		t.Errorf("BuildConstituents(nil) = %v, want nil", rows)
	}
}

func TestWriteConstituents(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "rte100", testLogger())

	members, ranked, snapshots := fixtureVintage()
	rows := BuildConstituents(members, ranked, snapshots)

	paths, err := w.WriteConstituents(rows)
	if err != nil {
		t.Fatalf("WriteConstituents() error = %v", err)
	}
	if len(paths) != 4 {
		t.Fatalf("WriteConstituents() wrote %d files, want 4", len(paths))
	}

	for _, name := range []string{
		"rte100_2025-07-14.csv", "rte100_latest.csv",
		"rte100_2025-07-14.json", "rte100_latest.json",
	} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}

	// CSV: header order and comma-safe quoting
	f, err := os.Open(filepath.Join(dir, "rte100_latest.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("csv parse: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("csv got %d records, want header + 2 rows", len(records))
	}
	if got := strings.Join(records[0], ","); !strings.HasPrefix(got, "rebalance_date,rank,universeId,name,developer,weight") {
		t.Errorf("csv header = %s", got)
	}
	if records[2][3] != "Two, The Game" {
		t.Errorf("csv name cell = %q, want comma preserved", records[2][3])
	}

	// JSON: parseable records with columns in publication order
	data, err := os.ReadFile(filepath.Join(dir, "rte100_latest.json"))
	if err != nil {
		t.Fatal(err)
	}
	var decoded []map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json parse: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("json got %d records, want 2", len(decoded))
	}
	if decoded[0]["name"] != "Fresh Name" {
		t.Errorf("json name = %v", decoded[0]["name"])
	}
	if bytes.Index(data, []byte(`"rebalance_date"`)) > bytes.Index(data, []byte(`"rank"`)) {
		t.Error("json fields out of publication order")
	}
}

func TestWriteConstituentsEmptySkips(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "rte100", testLogger())

	paths, err := w.WriteConstituents(nil)
	if err != nil {
		t.Fatalf("WriteConstituents(nil) error = %v", err)
	}
	if paths != nil {
		t.Errorf("WriteConstituents(nil) paths = %v, want none", paths)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("empty export wrote %d files", len(entries))
	}
}

func TestWriteIndexLevels(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "rte100", testLogger())

	points := []*contracts.IndexPoint{
		{Date: day("2025-07-14"), IndexLevel: 1000, DailyReturn: 0, DailyLogReturn: 0, Coverage: 1},
		{Date: day("2025-07-15"), IndexLevel: 1020, DailyReturn: 0.02, DailyLogReturn: 0.0198, Coverage: 0.97},
	}

	paths, err := w.WriteIndexLevels(points)
	if err != nil {
		t.Fatalf("WriteIndexLevels() error = %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("WriteIndexLevels() wrote %d files, want 2", len(paths))
	}

	f, err := os.Open(filepath.Join(dir, "rte100_index_level.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("csv parse: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("csv got %d records, want header + 2 rows", len(records))
	}
	if records[1][0] != "2025-07-14" || records[1][1] != "1000" {
		t.Errorf("csv first row = %v", records[1])
	}

	data, err := os.ReadFile(filepath.Join(dir, "rte100_index_level.json"))
	if err != nil {
		t.Fatal(err)
	}
	var decoded []map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json parse: %v", err)
	}
	if decoded[1]["coverage"] != 0.97 {
		t.Errorf("json coverage = %v, want 0.97", decoded[1]["coverage"])
	}
	if decoded[0]["date"] != "2025-07-14" {
		t.Errorf("json date = %v", decoded[0]["date"])
	}
}
