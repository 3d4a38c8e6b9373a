package database

// StageCatalogDelta appends a catalog delta to the landing buffer.
func (db *DB) StageCatalogDelta(d *CatalogDelta) (int64, error) {
	airing := 0
	if d.IsAiring {
		airing = 1
	}
	result, err := db.conn.Exec(
		`INSERT INTO raw_catalog (entity_id, title, status, rating, score, favorites,
		snapshot_date, is_airing, aired_from, aired_to, batch_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.EntityID, d.Title, d.Status, d.Rating, d.Score, d.Favorites,
		d.SnapshotDate, airing, d.AiredFrom, d.AiredTo, d.BatchID,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// StageStats appends a raw per-entity statistics blob to the landing buffer.
func (db *DB) StageStats(entityID int64, snapshotDate, payload, batchID string) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO raw_stats (entity_id, snapshot_date, payload, batch_id)
		VALUES (?, ?, ?, ?)`,
		entityID, snapshotDate, payload, batchID,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// UnconsumedStats returns landing-buffer stats rows not yet consumed by the
// loader, oldest first.
func (db *DB) UnconsumedStats() ([]RawStats, error) {
	rows, err := db.conn.Query(
		`SELECT id, entity_id, snapshot_date, payload, COALESCE(batch_id, '')
		FROM raw_stats WHERE consumed = 0 ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var staged []RawStats
	for rows.Next() {
		var r RawStats
		if err := rows.Scan(&r.RowID, &r.EntityID, &r.SnapshotDate, &r.Payload, &r.BatchID); err != nil {
			return nil, err
		}
		staged = append(staged, r)
	}
	return staged, rows.Err()
}
