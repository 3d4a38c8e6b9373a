package database

import (
	"database/sql"
	"fmt"
	"strings"
)

// viewBaseColumns is the fixed column prefix of the analytical view. The
// score columns between total and snapshot_date vary per rebuild.
var viewBaseColumns = []string{
	"entity_id", "title", "watching", "completed", "on_hold",
	"dropped", "plan_to_watch", "total",
}

// SwapAnalyticsView materializes the analytical view in a single
// transaction: build analytics_view_next with the given score columns,
// insert all rows, validate the row count, then drop the old view, rename,
// and recreate the lookup indexes. Readers on other connections see either
// the old view or the new one, never a partial rebuild.
func (db *DB) SwapAnalyticsView(scoreColumns []string, rows []AnalyticsRow) error {
	for _, r := range rows {
		if len(r.Scores) != len(scoreColumns) {
			return fmt.Errorf("analytics row for entity %d has %d score cells, manifest has %d columns",
				r.EntityID, len(r.Scores), len(scoreColumns))
		}
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin view rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DROP TABLE IF EXISTS analytics_view_next"); err != nil {
		return fmt.Errorf("dropping stale build table: %w", err)
	}

	var ddl strings.Builder
	ddl.WriteString(`CREATE TABLE analytics_view_next (
    entity_id INTEGER NOT NULL,
    title TEXT,
    watching INTEGER NOT NULL,
    completed INTEGER NOT NULL,
    on_hold INTEGER NOT NULL,
    dropped INTEGER NOT NULL,
    plan_to_watch INTEGER NOT NULL,
    total INTEGER NOT NULL`)
	for _, col := range scoreColumns {
		fmt.Fprintf(&ddl, ",\n    %s INTEGER", col)
	}
	ddl.WriteString(",\n    snapshot_date TEXT NOT NULL\n)")

	if _, err := tx.Exec(ddl.String()); err != nil {
		return fmt.Errorf("creating build table: %w", err)
	}

	cols := append(append([]string{}, viewBaseColumns...), scoreColumns...)
	cols = append(cols, "snapshot_date")
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	stmt, err := tx.Prepare(fmt.Sprintf(
		"INSERT INTO analytics_view_next (%s) VALUES (%s)",
		strings.Join(cols, ", "), placeholders,
	))
	if err != nil {
		return fmt.Errorf("preparing view insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		args := make([]any, 0, len(cols))
		args = append(args, r.EntityID, r.Title, r.Watching, r.Completed,
			r.OnHold, r.Dropped, r.PlanToWatch, r.Total)
		for _, cell := range r.Scores {
			args = append(args, cell)
		}
		args = append(args, r.SnapshotDate)
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("inserting view row for entity %d: %w", r.EntityID, err)
		}
	}

	var count int
	if err := tx.QueryRow("SELECT COUNT(*) FROM analytics_view_next").Scan(&count); err != nil {
		return fmt.Errorf("validating build table: %w", err)
	}
	if count != len(rows) {
		return fmt.Errorf("build table has %d rows, expected %d", count, len(rows))
	}

	// Publish: dropping the old table drops its indexes, freeing the names.
	if _, err := tx.Exec("DROP TABLE IF EXISTS analytics_view"); err != nil {
		return fmt.Errorf("dropping old view: %w", err)
	}
	if _, err := tx.Exec("ALTER TABLE analytics_view_next RENAME TO analytics_view"); err != nil {
		return fmt.Errorf("publishing view: %w", err)
	}
	if _, err := tx.Exec("CREATE INDEX idx_view_entity_date ON analytics_view(entity_id, snapshot_date)"); err != nil {
		return fmt.Errorf("indexing view by entity/date: %w", err)
	}
	if _, err := tx.Exec("CREATE INDEX idx_view_title ON analytics_view(title)"); err != nil {
		return fmt.Errorf("indexing view by title: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit view rebuild: %w", err)
	}
	return nil
}

// AnalyticsViewExists reports whether a published analytical view is present.
func (db *DB) AnalyticsViewExists() (bool, error) {
	var count int
	err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='analytics_view'",
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// AnalyticsScoreColumns returns the score column names of the published view,
// in schema order.
func (db *DB) AnalyticsScoreColumns() ([]string, error) {
	rows, err := db.conn.Query("PRAGMA table_info(analytics_view)")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var cid int
		var name, typ string
		var notnull int
		var dflt sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		if strings.HasPrefix(name, "score_") {
			cols = append(cols, name)
		}
	}
	return cols, rows.Err()
}

// AnalyticsRowCount returns the number of rows in the published view.
func (db *DB) AnalyticsRowCount() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM analytics_view").Scan(&count)
	return count, err
}

// GetAnalyticsRow looks up one view row by entity and snapshot day.
func (db *DB) GetAnalyticsRow(entityID int64, day string) (*AnalyticsRow, error) {
	scoreCols, err := db.AnalyticsScoreColumns()
	if err != nil {
		return nil, err
	}

	cols := append(append([]string{}, viewBaseColumns...), scoreCols...)
	cols = append(cols, "snapshot_date")
	row := db.conn.QueryRow(fmt.Sprintf(
		"SELECT %s FROM analytics_view WHERE entity_id = ? AND snapshot_date = ?",
		strings.Join(cols, ", "),
	), entityID, day)

	var r AnalyticsRow
	cells := make([]sql.NullInt64, len(scoreCols))
	dest := []any{&r.EntityID, &r.Title, &r.Watching, &r.Completed,
		&r.OnHold, &r.Dropped, &r.PlanToWatch, &r.Total}
	for i := range cells {
		dest = append(dest, &cells[i])
	}
	dest = append(dest, &r.SnapshotDate)

	if err := row.Scan(dest...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	r.Scores = make([]*int64, len(cells))
	for i, c := range cells {
		if c.Valid {
			v := c.Int64
			r.Scores[i] = &v
		}
	}
	return &r, nil
}

// SearchAnalyticsByTitle returns (entity_id, snapshot_date) pairs for rows
// whose title matches the given prefix, using the title index.
func (db *DB) SearchAnalyticsByTitle(prefix string) ([]AnalyticsRow, error) {
	rows, err := db.conn.Query(
		`SELECT entity_id, title, watching, completed, on_hold, dropped, plan_to_watch, total, snapshot_date
		FROM analytics_view WHERE title LIKE ? || '%' ORDER BY title, snapshot_date`, prefix,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AnalyticsRow
	for rows.Next() {
		var r AnalyticsRow
		if err := rows.Scan(&r.EntityID, &r.Title, &r.Watching, &r.Completed,
			&r.OnHold, &r.Dropped, &r.PlanToWatch, &r.Total, &r.SnapshotDate); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
