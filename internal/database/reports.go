package database

import "database/sql"

// InsertRunReport records the counters of one transform run.
func (db *DB) InsertRunReport(r *RunReport) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO run_reports (batch_id, started_at, finished_at,
		records_seen, records_rejected, entries_dropped,
		facts_inserted, facts_deduped, catalog_inserted, catalog_deduped, view_rows)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.BatchID, r.StartedAt, r.FinishedAt,
		r.RecordsSeen, r.RecordsRejected, r.EntriesDropped,
		r.FactsInserted, r.FactsDeduped, r.CatalogInserted, r.CatalogDeduped, r.ViewRows,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// SetRunReportViewRows records the view size after a rebuild against the
// originating run.
func (db *DB) SetRunReportViewRows(id int64, viewRows int) error {
	_, err := db.conn.Exec("UPDATE run_reports SET view_rows = ? WHERE id = ?", viewRows, id)
	return err
}

// LastRunReport returns the most recent run report, or nil if none exists.
func (db *DB) LastRunReport() (*RunReport, error) {
	row := db.conn.QueryRow(
		`SELECT id, batch_id, started_at, finished_at,
		records_seen, records_rejected, entries_dropped,
		facts_inserted, facts_deduped, catalog_inserted, catalog_deduped, view_rows
		FROM run_reports ORDER BY id DESC LIMIT 1`,
	)
	var r RunReport
	err := row.Scan(&r.ID, &r.BatchID, &r.StartedAt, &r.FinishedAt,
		&r.RecordsSeen, &r.RecordsRejected, &r.EntriesDropped,
		&r.FactsInserted, &r.FactsDeduped, &r.CatalogInserted, &r.CatalogDeduped, &r.ViewRows)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
