// Package unfold converts raw landing-buffer statistics blobs into
// normalized fact rows. It performs no I/O: validation and reshaping only.
package unfold

import (
	"encoding/json"
	"fmt"

	"github.com/animemart/animemart/internal/database"
)

// Domain is the closed ordinal range of valid score values.
type Domain struct {
	Min int
	Max int
}

// DefaultDomain matches the observed 1..10 score range.
var DefaultDomain = Domain{Min: 1, Max: 10}

// Contains reports whether v falls inside the domain.
func (d Domain) Contains(v int) bool {
	return v >= d.Min && v <= d.Max
}

// ValidationError rejects a whole stats record. Status-bucket integrity is
// atomic: one bad bucket field fails the record, nothing from it loads.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid stats record: %s: %s", e.Field, e.Reason)
}

// Result is the output of unfolding one stats record: exactly one status
// fact and one score fact per accepted histogram entry. Dropped lists
// warnings for histogram entries rejected individually.
type Result struct {
	Status  *database.StatusBucketFact
	Scores  []database.ScoreHistogramFact
	Dropped []string
}

// bucketFields are the six required status-bucket counters, in fact order.
var bucketFields = []string{"watching", "completed", "on_hold", "dropped", "plan_to_watch", "total"}

type rawRecord struct {
	EntityID       *int64                     `json:"entity_id"`
	SnapshotDate   string                     `json:"snapshot_date"`
	StatusBuckets  map[string]json.RawMessage `json:"status_buckets"`
	ScoreHistogram []json.RawMessage          `json:"score_histogram"`
}

type rawHistogramEntry struct {
	Score      *int64   `json:"score"`
	Votes      *int64   `json:"votes"`
	Percentage *float64 `json:"percentage"`
}

// Unfold transforms one raw stats payload into fact rows. A malformed
// status-bucket object rejects the whole record; a malformed or
// out-of-domain histogram entry is dropped individually and reported in
// Result.Dropped while the rest of the record still loads.
func Unfold(payload []byte, domain Domain) (*Result, error) {
	var rec rawRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, &ValidationError{Field: "payload", Reason: err.Error()}
	}
	if rec.EntityID == nil || *rec.EntityID <= 0 {
		return nil, &ValidationError{Field: "entity_id", Reason: "missing or non-positive"}
	}
	if rec.SnapshotDate == "" {
		return nil, &ValidationError{Field: "snapshot_date", Reason: "missing"}
	}
	if rec.StatusBuckets == nil {
		return nil, &ValidationError{Field: "status_buckets", Reason: "missing"}
	}

	buckets := make([]int64, len(bucketFields))
	for i, field := range bucketFields {
		raw, ok := rec.StatusBuckets[field]
		if !ok {
			return nil, &ValidationError{Field: "status_buckets." + field, Reason: "missing"}
		}
		var v int64
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, &ValidationError{Field: "status_buckets." + field, Reason: "not an integer"}
		}
		if v < 0 {
			return nil, &ValidationError{Field: "status_buckets." + field, Reason: "negative"}
		}
		buckets[i] = v
	}

	result := &Result{
		Status: &database.StatusBucketFact{
			EntityID:     *rec.EntityID,
			Watching:     buckets[0],
			Completed:    buckets[1],
			OnHold:       buckets[2],
			Dropped:      buckets[3],
			PlanToWatch:  buckets[4],
			Total:        buckets[5],
			SnapshotDate: rec.SnapshotDate,
		},
	}

	for i, raw := range rec.ScoreHistogram {
		var entry rawHistogramEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			result.Dropped = append(result.Dropped,
				fmt.Sprintf("histogram[%d]: non-numeric field: %v", i, err))
			continue
		}
		if entry.Score == nil || entry.Votes == nil || entry.Percentage == nil {
			result.Dropped = append(result.Dropped,
				fmt.Sprintf("histogram[%d]: missing field", i))
			continue
		}
		score := int(*entry.Score)
		if !domain.Contains(score) {
			result.Dropped = append(result.Dropped,
				fmt.Sprintf("histogram[%d]: score %d outside domain %d..%d", i, score, domain.Min, domain.Max))
			continue
		}
		if *entry.Votes < 0 {
			result.Dropped = append(result.Dropped,
				fmt.Sprintf("histogram[%d]: negative vote count", i))
			continue
		}
		if *entry.Percentage < 0 || *entry.Percentage > 100 {
			result.Dropped = append(result.Dropped,
				fmt.Sprintf("histogram[%d]: percentage %.2f outside 0..100", i, *entry.Percentage))
			continue
		}
		result.Scores = append(result.Scores, database.ScoreHistogramFact{
			EntityID:       *rec.EntityID,
			ScoreValue:     score,
			VoteCount:      *entry.Votes,
			VotePercentage: *entry.Percentage,
			SnapshotDate:   rec.SnapshotDate,
		})
	}

	return result, nil
}
