package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/animemart/animemart/internal/config"
	"github.com/animemart/animemart/internal/database"
)

func setup(t *testing.T) (*config.Config, *database.DB, string) {
	t.Helper()
	dataDir := t.TempDir()
	landing := filepath.Join(dataDir, "landing")
	if err := os.MkdirAll(landing, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{
		Output:  config.Output{DataDir: dataDir},
		Landing: config.Landing{Dir: landing},
		Scores:  config.Scores{Min: 1, Max: 10},
	}
	db, err := database.Open(filepath.Join(dataDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return cfg, db, landing
}

func deposit(t *testing.T, landing, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(landing, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	cfg, db, landing := setup(t)
	deposit(t, landing, "catalog.json", `{"kind": "catalog", "records": [
		{"id": 55, "title": "Cowboy Bebop", "snapshot_date": "2024-01-01T00:00:00Z", "is_airing": false}
	]}`)
	deposit(t, landing, "stats.json", `{"kind": "stats", "records": [
		{"entity_id": 55, "snapshot_date": "2024-01-01",
		 "status_buckets": {"watching": 10, "completed": 300, "on_hold": 5, "dropped": 2, "plan_to_watch": 40, "total": 357},
		 "score_histogram": [
			{"score": 8, "votes": 120, "percentage": 40.0},
			{"score": 9, "votes": 180, "percentage": 60.0}
		 ]}
	]}`)

	result := New(cfg, db).Run()
	if result.Failed() {
		for _, s := range result.Steps {
			if s.Err != nil {
				t.Errorf("step %s failed: %v", s.Name, s.Err)
			}
		}
		t.FailNow()
	}
	if len(result.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(result.Steps))
	}

	row, err := db.GetAnalyticsRow(55, "2024-01-01")
	if err != nil {
		t.Fatal(err)
	}
	if row == nil {
		t.Fatal("expected a materialized row")
	}
	if row.Title == nil || *row.Title != "Cowboy Bebop" {
		t.Errorf("unexpected title: %v", row.Title)
	}
	if row.Total != 357 {
		t.Errorf("expected total 357, got %d", row.Total)
	}

	report, err := db.LastRunReport()
	if err != nil {
		t.Fatal(err)
	}
	if report == nil || report.ViewRows != 1 {
		t.Errorf("expected run report with 1 view row, got %+v", report)
	}
}

func TestPipelineRerunIsIdempotent(t *testing.T) {
	cfg, db, landing := setup(t)
	deposit(t, landing, "stats.json", `{"kind": "stats", "records": [
		{"entity_id": 1, "snapshot_date": "2024-01-01",
		 "status_buckets": {"watching": 1, "completed": 0, "on_hold": 0, "dropped": 0, "plan_to_watch": 0, "total": 1},
		 "score_histogram": []}
	]}`)

	p := New(cfg, db)
	if r := p.Run(); r.Failed() {
		t.Fatalf("first run failed: %+v", r.Steps)
	}
	// Second run sees no pending files, no unconsumed buffer rows, and
	// rebuilds the same view.
	if r := p.Run(); r.Failed() {
		t.Fatalf("second run failed: %+v", r.Steps)
	}

	count, err := db.AnalyticsRowCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected 1 view row after rerun, got %d", count)
	}
}

func TestPipelineEmptyLanding(t *testing.T) {
	cfg, db, _ := setup(t)
	result := New(cfg, db).Run()
	if result.Failed() {
		t.Fatalf("run over empty landing failed: %+v", result.Steps)
	}
}
