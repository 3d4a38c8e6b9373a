package database

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrSchemaMismatch signals a catalog-delta batch whose staged values cannot
// be coerced to the dimension schema. The whole propagation batch is aborted;
// nothing is committed.
var ErrSchemaMismatch = errors.New("catalog delta batch has incompatible types")

// PropagationResult counts the outcome of one catalog propagation pass.
type PropagationResult struct {
	Inserted int
	Skipped  int
}

// PropagateCatalog fans newly staged catalog deltas out into catalog_entries,
// deduplicating on (entity_id, title, is_airing). One bulk pass per call, in
// a single transaction together with marking the staged rows consumed.
func (db *DB) PropagateCatalog() (*PropagationResult, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin propagation: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(
		`SELECT entity_id, title, status, rating, score, favorites,
		snapshot_date, is_airing, aired_from, aired_to
		FROM raw_catalog WHERE consumed = 0 ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("reading staged catalog: %w", err)
	}

	var deltas []CatalogEntry
	for rows.Next() {
		var e CatalogEntry
		var airing int64
		if err := rows.Scan(&e.EntityID, &e.Title, &e.Status, &e.Rating, &e.Score,
			&e.Favorites, &e.SnapshotDate, &airing, &e.AiredFrom, &e.AiredTo); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
		}
		e.IsAiring = airing != 0
		deltas = append(deltas, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("reading staged catalog: %w", err)
	}
	rows.Close()

	result := &PropagationResult{}
	stmt, err := tx.Prepare(
		`INSERT OR IGNORE INTO catalog_entries
		(entity_id, title, is_airing, status, rating, score, favorites,
		snapshot_date, aired_from, aired_to)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return nil, fmt.Errorf("preparing catalog insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range deltas {
		airing := 0
		if e.IsAiring {
			airing = 1
		}
		res, err := stmt.Exec(e.EntityID, e.Title, airing, e.Status, e.Rating,
			e.Score, e.Favorites, e.SnapshotDate, e.AiredFrom, e.AiredTo)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("catalog insert result: %w", err)
		}
		if n > 0 {
			result.Inserted++
		} else {
			result.Skipped++
		}
	}

	if _, err := tx.Exec("UPDATE raw_catalog SET consumed = 1 WHERE consumed = 0"); err != nil {
		return nil, fmt.Errorf("marking catalog deltas consumed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit propagation: %w", err)
	}
	return result, nil
}

// GetCatalogEntries returns all catalog versions for an entity, newest first.
func (db *DB) GetCatalogEntries(entityID int64) ([]CatalogEntry, error) {
	rows, err := db.conn.Query(
		`SELECT entity_id, title, is_airing, status, rating, score, favorites,
		snapshot_date, aired_from, aired_to
		FROM catalog_entries WHERE entity_id = ? ORDER BY snapshot_date DESC`, entityID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCatalogEntries(rows)
}

// LatestTitles returns one title per entity: the catalog row with the most
// recent snapshot timestamp. Ties break on title, then airing flag, so the
// selection is deterministic across rebuilds.
func (db *DB) LatestTitles() (map[int64]string, error) {
	rows, err := db.conn.Query(
		`SELECT entity_id, title, is_airing, snapshot_date FROM catalog_entries`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type pick struct {
		title    string
		airing   int64
		snapshot string
	}
	best := make(map[int64]pick)
	for rows.Next() {
		var id int64
		var p pick
		if err := rows.Scan(&id, &p.title, &p.airing, &p.snapshot); err != nil {
			return nil, err
		}
		cur, ok := best[id]
		if !ok || p.snapshot > cur.snapshot ||
			(p.snapshot == cur.snapshot && p.title > cur.title) ||
			(p.snapshot == cur.snapshot && p.title == cur.title && p.airing > cur.airing) {
			best[id] = p
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	titles := make(map[int64]string, len(best))
	for id, p := range best {
		titles[id] = p.title
	}
	return titles, nil
}

func scanCatalogEntries(rows *sql.Rows) ([]CatalogEntry, error) {
	var entries []CatalogEntry
	for rows.Next() {
		var e CatalogEntry
		var airing int64
		if err := rows.Scan(&e.EntityID, &e.Title, &airing, &e.Status, &e.Rating,
			&e.Score, &e.Favorites, &e.SnapshotDate, &e.AiredFrom, &e.AiredTo); err != nil {
			return nil, err
		}
		e.IsAiring = airing != 0
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
