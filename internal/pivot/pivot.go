// Package pivot reshapes the long-form score-histogram facts into the
// wide-form matrix consumed by the view assembler. The output column set is
// discovered from data at runtime, not fixed at compile time.
package pivot

import (
	"fmt"
	"sort"

	"github.com/animemart/animemart/internal/database"
)

// Manifest is the runtime-computed, ascending-ordered set of score values
// that become the wide-form columns.
type Manifest []int

// Discover derives the column manifest from the distinct score values
// present in the given facts. The set can shrink or grow across runs.
func Discover(rows []database.ScoreHistogramFact) Manifest {
	seen := make(map[int]bool)
	for _, r := range rows {
		seen[r.ScoreValue] = true
	}
	m := make(Manifest, 0, len(seen))
	for v := range seen {
		m = append(m, v)
	}
	sort.Ints(m)
	return m
}

// Columns returns the column names for the manifest, ascending by score.
func (m Manifest) Columns() []string {
	cols := make([]string, len(m))
	for i, v := range m {
		cols[i] = fmt.Sprintf("score_%d", v)
	}
	return cols
}

// MatrixRow is one wide-form row: vote counts per score value for one
// (entity, snapshot day) group. A score value absent from Cells was not
// observed for that group, which is distinct from an observed zero.
type MatrixRow struct {
	EntityID int64
	Day      string
	Cells    map[int]int64
}

// Cell returns the vote count for a score value, nil if absent.
func (r *MatrixRow) Cell(score int) *int64 {
	if v, ok := r.Cells[score]; ok {
		return &v
	}
	return nil
}

// Reshape groups facts by (entity, snapshot day) and emits one MatrixRow per
// group, keeping only score values listed in the manifest. A group with no
// in-manifest rows yields no matrix row at all. First observation wins when
// a group carries the same score value twice. Output is ordered by entity
// then day for stable diffs; consumers must not rely on it.
func Reshape(rows []database.ScoreHistogramFact, m Manifest) []MatrixRow {
	wanted := make(map[int]bool, len(m))
	for _, v := range m {
		wanted[v] = true
	}

	type key struct {
		entity int64
		day    string
	}
	groups := make(map[key]map[int]int64)
	for _, r := range rows {
		if !wanted[r.ScoreValue] {
			continue
		}
		k := key{r.EntityID, database.DayOf(r.SnapshotDate)}
		cells, ok := groups[k]
		if !ok {
			cells = make(map[int]int64)
			groups[k] = cells
		}
		if _, dup := cells[r.ScoreValue]; !dup {
			cells[r.ScoreValue] = r.VoteCount
		}
	}

	result := make([]MatrixRow, 0, len(groups))
	for k, cells := range groups {
		result = append(result, MatrixRow{EntityID: k.entity, Day: k.day, Cells: cells})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].EntityID != result[j].EntityID {
			return result[i].EntityID < result[j].EntityID
		}
		return result[i].Day < result[j].Day
	})
	return result
}
