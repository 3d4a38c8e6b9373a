package pipeline

import (
	"fmt"
	"log"

	"github.com/animemart/animemart/internal/config"
	"github.com/animemart/animemart/internal/database"
	"github.com/animemart/animemart/internal/ingest"
	"github.com/animemart/animemart/internal/loader"
	"github.com/animemart/animemart/internal/unfold"
	"github.com/animemart/animemart/internal/view"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	Steps []StepResult
}

// Failed reports whether any step errored.
func (r *Result) Failed() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Pipeline orchestrates the 3-step warehouse refresh: ingest deposited
// batch files, load facts from the landing buffer, rebuild the view.
type Pipeline struct {
	cfg *config.Config
	db  *database.DB
}

// New creates a new pipeline.
func New(cfg *config.Config, db *database.DB) *Pipeline {
	return &Pipeline{cfg: cfg, db: db}
}

// Run executes the full pipeline. Every stage is idempotent, so a run after
// a partial failure is always safe.
func (p *Pipeline) Run() *Result {
	r := &Result{}

	step := p.runIngest()
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	var reportID int64
	step, reportID = p.runTransform()
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	step = p.runRebuild(reportID)
	r.Steps = append(r.Steps, step)
	return r
}

func (p *Pipeline) runIngest() StepResult {
	log.Println("Step 1/3: Ingesting landing files...")
	result, err := ingest.New(p.db, p.cfg.GetLandingDir()).Run()
	if err != nil {
		return StepResult{Name: "Ingest", Err: err}
	}
	return StepResult{
		Name: "Ingest",
		Summary: fmt.Sprintf("Staged %d catalog + %d stats records from %d files (%d rejected, %d files failed)",
			result.CatalogStaged, result.StatsStaged, result.Files, result.RecordsRejected, result.FailedFiles),
	}
}

func (p *Pipeline) runTransform() (StepResult, int64) {
	log.Println("Step 2/3: Loading facts...")
	domain := unfold.Domain{Min: p.cfg.Scores.Min, Max: p.cfg.Scores.Max}
	result, err := loader.New(p.db, domain).Run()
	if err != nil {
		return StepResult{Name: "Transform", Err: err}, 0
	}
	return StepResult{
		Name: "Transform",
		Summary: fmt.Sprintf("Loaded %d records: %d facts inserted, %d deduped, %d rejected; catalog +%d (%d deduped)",
			result.RecordsSeen,
			result.StatusInserted+result.ScoresInserted,
			result.StatusDeduped+result.ScoresDeduped,
			result.RecordsRejected,
			result.CatalogInserted, result.CatalogDeduped),
	}, result.ReportID
}

func (p *Pipeline) runRebuild(reportID int64) StepResult {
	log.Println("Step 3/3: Rebuilding analytical view...")
	result, err := view.New(p.db).Rebuild()
	if err != nil {
		return StepResult{Name: "Rebuild", Err: err}
	}
	if reportID > 0 {
		if err := p.db.SetRunReportViewRows(reportID, result.Rows); err != nil {
			log.Printf("updating run report: %v", err)
		}
	}
	return StepResult{
		Name: "Rebuild",
		Summary: fmt.Sprintf("Materialized %d rows with %d score columns (%d missing score data, %d missing titles)",
			result.Rows, len(result.Columns), result.MissingScore, result.MissingTitle),
	}
}
