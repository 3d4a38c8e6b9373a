package pivot

import (
	"testing"

	"github.com/animemart/animemart/internal/database"
)

func fact(entity int64, score int, votes int64, date string) database.ScoreHistogramFact {
	return database.ScoreHistogramFact{
		EntityID: entity, ScoreValue: score, VoteCount: votes, SnapshotDate: date,
	}
}

func TestDiscoverManifest(t *testing.T) {
	rows := []database.ScoreHistogramFact{
		fact(1, 9, 10, "2024-01-01"),
		fact(1, 8, 10, "2024-01-01"),
		fact(2, 9, 10, "2024-01-01"),
		fact(2, 3, 10, "2024-01-02"),
	}
	m := Discover(rows)
	if len(m) != 3 {
		t.Fatalf("expected 3 distinct scores, got %d", len(m))
	}
	// Ascending order for stable output.
	if m[0] != 3 || m[1] != 8 || m[2] != 9 {
		t.Errorf("expected [3 8 9], got %v", m)
	}
}

func TestDiscoverEmpty(t *testing.T) {
	if m := Discover(nil); len(m) != 0 {
		t.Errorf("expected empty manifest, got %v", m)
	}
}

func TestManifestColumns(t *testing.T) {
	m := Manifest{1, 5, 10}
	cols := m.Columns()
	want := []string{"score_1", "score_5", "score_10"}
	for i, c := range cols {
		if c != want[i] {
			t.Errorf("column %d: got %s, want %s", i, c, want[i])
		}
	}
}

func TestReshapeScenario(t *testing.T) {
	// Entity 55 on 2024-01-01: score 8 -> 120, score 9 -> 180.
	rows := []database.ScoreHistogramFact{
		fact(55, 8, 120, "2024-01-01"),
		fact(55, 9, 180, "2024-01-01"),
	}
	m := Manifest{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	matrix := Reshape(rows, m)
	if len(matrix) != 1 {
		t.Fatalf("expected 1 matrix row, got %d", len(matrix))
	}

	row := matrix[0]
	if row.EntityID != 55 || row.Day != "2024-01-01" {
		t.Errorf("unexpected group key: %+v", row)
	}
	if v := row.Cell(8); v == nil || *v != 120 {
		t.Errorf("expected score_8=120, got %v", v)
	}
	if v := row.Cell(9); v == nil || *v != 180 {
		t.Errorf("expected score_9=180, got %v", v)
	}
	for _, s := range []int{1, 2, 3, 4, 5, 6, 7, 10} {
		if row.Cell(s) != nil {
			t.Errorf("expected score_%d absent, got %d", s, *row.Cell(s))
		}
	}
}

func TestReshapeRoundTrip(t *testing.T) {
	// Summing the non-null cells of a matrix row equals the sum of
	// vote counts across the group's facts.
	rows := []database.ScoreHistogramFact{
		fact(1, 1, 5, "2024-01-01"),
		fact(1, 4, 15, "2024-01-01"),
		fact(1, 7, 25, "2024-01-01"),
	}
	m := Discover(rows)
	matrix := Reshape(rows, m)
	if len(matrix) != 1 {
		t.Fatalf("expected 1 row, got %d", len(matrix))
	}

	var cellSum, factSum int64
	for _, score := range m {
		if v := matrix[0].Cell(score); v != nil {
			cellSum += *v
		}
	}
	for _, r := range rows {
		factSum += r.VoteCount
	}
	if cellSum != factSum {
		t.Errorf("cell sum %d != fact sum %d", cellSum, factSum)
	}
}

func TestReshapeGroupsByDay(t *testing.T) {
	// Timestamps within the same calendar day collapse into one group;
	// different days and entities stay separate.
	rows := []database.ScoreHistogramFact{
		fact(1, 8, 10, "2024-01-01T09:00:00Z"),
		fact(1, 9, 20, "2024-01-01T21:00:00Z"),
		fact(1, 8, 30, "2024-01-02T09:00:00Z"),
		fact(2, 8, 40, "2024-01-01T09:00:00Z"),
	}
	matrix := Reshape(rows, Discover(rows))
	if len(matrix) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(matrix))
	}

	first := matrix[0]
	if first.EntityID != 1 || first.Day != "2024-01-01" {
		t.Fatalf("unexpected first group: %+v", first)
	}
	if v := first.Cell(8); v == nil || *v != 10 {
		t.Errorf("expected score_8=10 in merged day group, got %v", v)
	}
	if v := first.Cell(9); v == nil || *v != 20 {
		t.Errorf("expected score_9=20 in merged day group, got %v", v)
	}
}

func TestReshapeEmptyGroupAbsent(t *testing.T) {
	// A group with zero histogram rows yields no matrix row, not a row of
	// nulls: absence of the row is the signal.
	rows := []database.ScoreHistogramFact{fact(1, 8, 10, "2024-01-01")}
	matrix := Reshape(rows, Discover(rows))
	for _, r := range matrix {
		if r.EntityID == 2 {
			t.Error("expected no row for entity without facts")
		}
	}
	if len(matrix) != 1 {
		t.Errorf("expected exactly 1 row, got %d", len(matrix))
	}
}

func TestReshapeSyntheticManifest(t *testing.T) {
	// An injected manifest filters out-of-manifest scores; a row whose
	// every fact is filtered disappears entirely.
	rows := []database.ScoreHistogramFact{
		fact(1, 1, 10, "2024-01-01"),
		fact(1, 9, 99, "2024-01-01"),
		fact(2, 9, 50, "2024-01-01"),
	}
	matrix := Reshape(rows, Manifest{1, 2})
	if len(matrix) != 1 {
		t.Fatalf("expected 1 row under synthetic manifest, got %d", len(matrix))
	}
	if matrix[0].EntityID != 1 {
		t.Errorf("unexpected surviving group: %+v", matrix[0])
	}
	if matrix[0].Cell(9) != nil {
		t.Error("out-of-manifest score leaked into cells")
	}
	if matrix[0].Cell(2) != nil {
		t.Error("expected score_2 absent")
	}
}

func TestReshapeFirstObservationWins(t *testing.T) {
	rows := []database.ScoreHistogramFact{
		fact(1, 8, 100, "2024-01-01"),
		fact(1, 8, 999, "2024-01-01"),
	}
	matrix := Reshape(rows, Discover(rows))
	if len(matrix) != 1 {
		t.Fatalf("expected 1 row, got %d", len(matrix))
	}
	if v := matrix[0].Cell(8); v == nil || *v != 100 {
		t.Errorf("expected first observation 100, got %v", v)
	}
}
