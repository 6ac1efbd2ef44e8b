package contracts

import (
	"testing"
	"time"
)

func date(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2025-07-14")
	if err != nil {
		t.Fatalf("ParseDate failed: %v", err)
	}

	want := time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseDate = %v, want %v", got, want)
	}

	if _, err := ParseDate("14/07/2025"); err == nil {
		t.Error("Expected error for non-ISO date, got nil")
	}
}

func TestNormalizeDate(t *testing.T) {
	loc := time.FixedZone("KST", 9*3600)
	in := time.Date(2025, 7, 14, 23, 45, 1, 0, loc)

	got := NormalizeDate(in)
	want := time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("NormalizeDate = %v, want %v", got, want)
	}
}

func TestSnapshotKey(t *testing.T) {
	s := &Snapshot{SnapshotDate: date("2025-07-14"), UniverseID: 42}

	key := s.Key()
	if key.Date != "2025-07-14" || key.UniverseID != 42 {
		t.Errorf("unexpected key: %+v", key)
	}

	// Same date and id from another row compares equal
	other := &Snapshot{SnapshotDate: date("2025-07-14"), UniverseID: 42, Name: "different"}
	if other.Key() != key {
		t.Error("expected equal keys for same (date, universeId)")
	}
}

func TestVintageHelpers(t *testing.T) {
	history := []*Membership{
		{RebalanceDate: date("2025-07-14"), UniverseID: 1, Rank: 1, InIndex: true, Weight: 0.6},
		{RebalanceDate: date("2025-07-14"), UniverseID: 2, Rank: 2, InIndex: true, Weight: 0.4},
		{RebalanceDate: date("2025-07-07"), UniverseID: 1, Rank: 1, InIndex: true, Weight: 1.0},
	}

	dates := VintageDates(history)
	if len(dates) != 2 {
		t.Fatalf("expected 2 vintage dates, got %d", len(dates))
	}
	if !dates[0].Equal(date("2025-07-07")) || !dates[1].Equal(date("2025-07-14")) {
		t.Errorf("expected sorted vintage dates, got %v", dates)
	}

	latest, ok := LatestVintageDate(history)
	if !ok {
		t.Fatal("expected latest vintage date")
	}
	if !latest.Equal(date("2025-07-14")) {
		t.Errorf("expected 2025-07-14, got %v", latest)
	}

	rows := Vintage(history, date("2025-07-14"))
	if len(rows) != 2 {
		t.Errorf("expected 2 rows in latest vintage, got %d", len(rows))
	}

	rows = Vintage(history, date("2025-01-01"))
	if len(rows) != 0 {
		t.Errorf("expected no rows for unknown vintage, got %d", len(rows))
	}
}

func TestLatestVintageDateEmpty(t *testing.T) {
	if _, ok := LatestVintageDate(nil); ok {
		t.Error("expected ok=false for empty history")
	}
}

func TestRankedGameIsTopRanked(t *testing.T) {
	r := &RankedGame{Rank: 90}

	if !r.IsTopRanked(100) {
		t.Error("rank 90 should be top 100")
	}
	if r.IsTopRanked(50) {
		t.Error("rank 90 should not be top 50")
	}

	unranked := &RankedGame{Rank: 0}
	if unranked.IsTopRanked(100) {
		t.Error("rank 0 means unranked")
	}
}
