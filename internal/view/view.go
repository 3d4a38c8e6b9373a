// Package view assembles the denormalized analytical view: status-bucket
// facts left-extended with the pivoted score matrix and the catalog title,
// materialized by rebuild-and-swap.
package view

import (
	"fmt"
	"log"

	"github.com/animemart/animemart/internal/database"
	"github.com/animemart/animemart/internal/pivot"
)

// Result holds the counters of one view rebuild. Missing joins are metrics,
// never failures: the affected rows are still emitted with nulled columns.
type Result struct {
	Rows            int
	Columns         []string
	MissingScore    int
	MissingTitle    int
	DuplicateStatus int
}

// Assembler is the read-only query root for the analytical view. It never
// mutates the fact tables.
type Assembler struct {
	db *database.DB
}

// New creates a view assembler.
func New(db *database.DB) *Assembler {
	return &Assembler{db: db}
}

// Rebuild fully recomputes the analytical view and publishes it atomically.
// One output row per (entity, snapshot day) present in the status facts;
// score columns come from the matrix row for that day (null if absent) and
// the title from the most recent catalog version for the entity.
func (a *Assembler) Rebuild() (*Result, error) {
	scoreFacts, err := a.db.AllScoreFacts()
	if err != nil {
		return nil, fmt.Errorf("reading score facts: %w", err)
	}
	manifest := pivot.Discover(scoreFacts)
	matrix := pivot.Reshape(scoreFacts, manifest)

	type key struct {
		entity int64
		day    string
	}
	matrixIndex := make(map[key]pivot.MatrixRow, len(matrix))
	for _, m := range matrix {
		matrixIndex[key{m.EntityID, m.Day}] = m
	}

	statusFacts, err := a.db.AllStatusFacts()
	if err != nil {
		return nil, fmt.Errorf("reading status facts: %w", err)
	}

	titles, err := a.db.LatestTitles()
	if err != nil {
		return nil, fmt.Errorf("reading catalog titles: %w", err)
	}

	result := &Result{Columns: manifest.Columns()}
	var rows []database.AnalyticsRow
	seen := make(map[key]bool, len(statusFacts))

	for _, f := range statusFacts {
		k := key{f.EntityID, database.DayOf(f.SnapshotDate)}
		if seen[k] {
			result.DuplicateStatus++
			continue
		}
		seen[k] = true

		row := database.AnalyticsRow{
			EntityID:     f.EntityID,
			Watching:     f.Watching,
			Completed:    f.Completed,
			OnHold:       f.OnHold,
			Dropped:      f.Dropped,
			PlanToWatch:  f.PlanToWatch,
			Total:        f.Total,
			Scores:       make([]*int64, len(manifest)),
			SnapshotDate: k.day,
		}

		if title, ok := titles[f.EntityID]; ok {
			row.Title = &title
		} else {
			result.MissingTitle++
		}

		if m, ok := matrixIndex[k]; ok {
			for i, score := range manifest {
				row.Scores[i] = m.Cell(score)
			}
		} else {
			result.MissingScore++
		}

		rows = append(rows, row)
	}

	if err := a.db.SwapAnalyticsView(result.Columns, rows); err != nil {
		return nil, fmt.Errorf("publishing view: %w", err)
	}
	result.Rows = len(rows)

	if result.MissingScore > 0 || result.MissingTitle > 0 {
		log.Printf("view rebuilt with join gaps: %d rows without score data, %d without titles",
			result.MissingScore, result.MissingTitle)
	}
	return result, nil
}
