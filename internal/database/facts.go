package database

import (
	"database/sql"
	"fmt"
)

// FactBatchResult counts the storage effect of one fact-loading batch.
// Inserted vs deduped is observable directly so idempotence can be asserted
// rather than inferred from a storage-engine conflict clause.
type FactBatchResult struct {
	StatusInserted int
	StatusDeduped  int
	ScoresInserted int
	ScoresDeduped  int
}

// InsertFactBatch writes unfolded fact rows into the durable fact tables in
// one transaction, deduplicating on natural key (insert-if-absent, first
// write wins), and marks the originating landing-buffer rows consumed.
func (db *DB) InsertFactBatch(status []StatusBucketFact, scores []ScoreHistogramFact, consumedStatsIDs []int64) (*FactBatchResult, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin fact batch: %w", err)
	}
	defer tx.Rollback()

	result := &FactBatchResult{}

	statusStmt, err := tx.Prepare(
		`INSERT OR IGNORE INTO status_bucket_facts
		(entity_id, watching, completed, on_hold, dropped, plan_to_watch, total, snapshot_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return nil, fmt.Errorf("preparing status insert: %w", err)
	}
	defer statusStmt.Close()

	for _, f := range status {
		res, err := statusStmt.Exec(f.EntityID, f.Watching, f.Completed, f.OnHold,
			f.Dropped, f.PlanToWatch, f.Total, f.SnapshotDate)
		if err != nil {
			return nil, fmt.Errorf("inserting status fact: %w", err)
		}
		if affected(res) {
			result.StatusInserted++
		} else {
			result.StatusDeduped++
		}
	}

	scoreStmt, err := tx.Prepare(
		`INSERT OR IGNORE INTO score_histogram_facts
		(entity_id, score_value, vote_count, vote_percentage, snapshot_date)
		VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return nil, fmt.Errorf("preparing score insert: %w", err)
	}
	defer scoreStmt.Close()

	for _, f := range scores {
		res, err := scoreStmt.Exec(f.EntityID, f.ScoreValue, f.VoteCount,
			f.VotePercentage, f.SnapshotDate)
		if err != nil {
			return nil, fmt.Errorf("inserting score fact: %w", err)
		}
		if affected(res) {
			result.ScoresInserted++
		} else {
			result.ScoresDeduped++
		}
	}

	for _, id := range consumedStatsIDs {
		if _, err := tx.Exec("UPDATE raw_stats SET consumed = 1 WHERE id = ?", id); err != nil {
			return nil, fmt.Errorf("marking stats consumed: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit fact batch: %w", err)
	}
	return result, nil
}

// AllStatusFacts returns every status-bucket fact, ordered by entity then date.
func (db *DB) AllStatusFacts() ([]StatusBucketFact, error) {
	rows, err := db.conn.Query(
		`SELECT entity_id, watching, completed, on_hold, dropped, plan_to_watch, total, snapshot_date
		FROM status_bucket_facts ORDER BY entity_id, snapshot_date`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var facts []StatusBucketFact
	for rows.Next() {
		var f StatusBucketFact
		if err := rows.Scan(&f.EntityID, &f.Watching, &f.Completed, &f.OnHold,
			&f.Dropped, &f.PlanToWatch, &f.Total, &f.SnapshotDate); err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

// AllScoreFacts returns every score-histogram fact, ordered by entity, date,
// then score value.
func (db *DB) AllScoreFacts() ([]ScoreHistogramFact, error) {
	rows, err := db.conn.Query(
		`SELECT entity_id, score_value, vote_count, vote_percentage, snapshot_date
		FROM score_histogram_facts ORDER BY entity_id, snapshot_date, score_value`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var facts []ScoreHistogramFact
	for rows.Next() {
		var f ScoreHistogramFact
		if err := rows.Scan(&f.EntityID, &f.ScoreValue, &f.VoteCount,
			&f.VotePercentage, &f.SnapshotDate); err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

func affected(res sql.Result) bool {
	n, err := res.RowsAffected()
	return err == nil && n > 0
}
