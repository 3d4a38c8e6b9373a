package database

// GetStats returns aggregate table counts for the status command.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}
	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM raw_catalog", &s.StagedCatalog},
		{"SELECT COUNT(*) FROM raw_stats", &s.StagedStats},
		{"SELECT COUNT(*) FROM raw_catalog WHERE consumed = 0", &s.PendingCatalog},
		{"SELECT COUNT(*) FROM raw_stats WHERE consumed = 0", &s.PendingStats},
		{"SELECT COUNT(*) FROM catalog_entries", &s.CatalogEntries},
		{"SELECT COUNT(*) FROM status_bucket_facts", &s.StatusFacts},
		{"SELECT COUNT(*) FROM score_histogram_facts", &s.ScoreFacts},
		{"SELECT COUNT(DISTINCT date(snapshot_date)) FROM status_bucket_facts", &s.SnapshotDays},
	}
	for _, c := range counts {
		if err := db.conn.QueryRow(c.query).Scan(c.dest); err != nil {
			return nil, err
		}
	}

	exists, err := db.AnalyticsViewExists()
	if err != nil {
		return nil, err
	}
	if exists {
		if s.ViewRows, err = db.AnalyticsRowCount(); err != nil {
			return nil, err
		}
	}
	return s, nil
}
