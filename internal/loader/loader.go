// Package loader consumes staged landing-buffer records once, unfolds them,
// and writes fact rows with natural-key deduplication. Re-running on the
// same input leaves the fact tables unchanged.
package loader

import (
	"fmt"
	"log"

	"github.com/animemart/animemart/internal/database"
	"github.com/animemart/animemart/internal/unfold"
	"github.com/google/uuid"
)

// Result holds the counters of one load run. Inserted vs deduped counts make
// the exactly-once storage effect directly observable.
type Result struct {
	BatchID         string
	RecordsSeen     int
	RecordsRejected int
	EntriesDropped  int
	StatusInserted  int
	StatusDeduped   int
	ScoresInserted  int
	ScoresDeduped   int
	CatalogInserted int
	CatalogDeduped  int
	ReportID        int64
}

// Loader moves landing-buffer records into the durable fact tables and fans
// catalog deltas out into the catalog dimension.
type Loader struct {
	db     *database.DB
	domain unfold.Domain
}

// New creates a loader validating against the given score domain.
func New(db *database.DB, domain unfold.Domain) *Loader {
	return &Loader{db: db, domain: domain}
}

// Run consumes all unconsumed landing-buffer rows. Stats records failing
// validation are rejected individually and the batch continues; a catalog
// propagation type mismatch aborts the catalog batch and is returned as a
// hard failure after the fact-side counters have been recorded.
func (l *Loader) Run() (*Result, error) {
	started := database.Now()
	r := &Result{BatchID: uuid.NewString()}

	staged, err := l.db.UnconsumedStats()
	if err != nil {
		return nil, fmt.Errorf("reading landing buffer: %w", err)
	}

	var statusFacts []database.StatusBucketFact
	var scoreFacts []database.ScoreHistogramFact
	consumed := make([]int64, 0, len(staged))

	for _, raw := range staged {
		r.RecordsSeen++
		// Rejected records are still consumed: the buffer is read once,
		// a correction requires a new snapshot, not a resend.
		consumed = append(consumed, raw.RowID)

		out, err := unfold.Unfold([]byte(raw.Payload), l.domain)
		if err != nil {
			r.RecordsRejected++
			log.Printf("rejecting stats record for entity %d (%s): %v", raw.EntityID, raw.SnapshotDate, err)
			continue
		}
		for _, warning := range out.Dropped {
			r.EntriesDropped++
			log.Printf("entity %d (%s): %s", raw.EntityID, raw.SnapshotDate, warning)
		}
		statusFacts = append(statusFacts, *out.Status)
		scoreFacts = append(scoreFacts, out.Scores...)
	}

	facts, err := l.db.InsertFactBatch(statusFacts, scoreFacts, consumed)
	if err != nil {
		return nil, fmt.Errorf("loading facts: %w", err)
	}
	r.StatusInserted = facts.StatusInserted
	r.StatusDeduped = facts.StatusDeduped
	r.ScoresInserted = facts.ScoresInserted
	r.ScoresDeduped = facts.ScoresDeduped

	// Catalog propagation is independent of the fact stream; the two share
	// no keys and may run in either order.
	catalog, propErr := l.db.PropagateCatalog()
	if catalog != nil {
		r.CatalogInserted = catalog.Inserted
		r.CatalogDeduped = catalog.Skipped
	}

	finished := database.Now()
	reportID, err := l.db.InsertRunReport(&database.RunReport{
		BatchID:         r.BatchID,
		StartedAt:       started,
		FinishedAt:      &finished,
		RecordsSeen:     r.RecordsSeen,
		RecordsRejected: r.RecordsRejected,
		EntriesDropped:  r.EntriesDropped,
		FactsInserted:   r.StatusInserted + r.ScoresInserted,
		FactsDeduped:    r.StatusDeduped + r.ScoresDeduped,
		CatalogInserted: r.CatalogInserted,
		CatalogDeduped:  r.CatalogDeduped,
	})
	if err != nil {
		return nil, fmt.Errorf("recording run report: %w", err)
	}
	r.ReportID = reportID

	if propErr != nil {
		return r, fmt.Errorf("catalog propagation: %w", propErr)
	}
	return r, nil
}
