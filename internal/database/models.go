package database

// CatalogDelta is a staged catalog record in the landing buffer.
type CatalogDelta struct {
	RowID        int64
	EntityID     int64
	Title        string
	Status       *string
	Rating       *string
	Score        *float64
	Favorites    *int64
	SnapshotDate string
	IsAiring     bool
	AiredFrom    *string
	AiredTo      *string
	BatchID      string
}

// RawStats is a staged per-entity statistics blob in the landing buffer.
type RawStats struct {
	RowID        int64
	EntityID     int64
	SnapshotDate string
	Payload      string
	BatchID      string
}

// CatalogEntry is one version of an entity in the slowly-changing catalog.
// (EntityID, Title, IsAiring) is the natural key; a new row appears only
// when the title or airing state changes across snapshots.
type CatalogEntry struct {
	EntityID     int64
	Title        string
	IsAiring     bool
	Status       *string
	Rating       *string
	Score        *float64
	Favorites    *int64
	SnapshotDate string
	AiredFrom    *string
	AiredTo      *string
}

// StatusBucketFact is the full status-bucket distribution for one entity
// at one snapshot date.
type StatusBucketFact struct {
	EntityID     int64
	Watching     int64
	Completed    int64
	OnHold       int64
	Dropped      int64
	PlanToWatch  int64
	Total        int64
	SnapshotDate string
}

// ScoreHistogramFact is one (entity, snapshot, score bucket) observation.
type ScoreHistogramFact struct {
	EntityID       int64
	ScoreValue     int
	VoteCount      int64
	VotePercentage float64
	SnapshotDate   string
}

// AnalyticsRow is one materialized row of the analytical view. Scores holds
// one cell per manifest column, nil where the score value was absent.
type AnalyticsRow struct {
	EntityID     int64
	Title        *string
	Watching     int64
	Completed    int64
	OnHold       int64
	Dropped      int64
	PlanToWatch  int64
	Total        int64
	Scores       []*int64
	SnapshotDate string
}

// RunReport holds per-run operational counters.
type RunReport struct {
	ID              int64
	BatchID         string
	StartedAt       string
	FinishedAt      *string
	RecordsSeen     int
	RecordsRejected int
	EntriesDropped  int
	FactsInserted   int
	FactsDeduped    int
	CatalogInserted int
	CatalogDeduped  int
	ViewRows        int
}

// Stats contains aggregate database statistics.
type Stats struct {
	StagedCatalog  int
	StagedStats    int
	PendingCatalog int
	PendingStats   int
	CatalogEntries int
	StatusFacts    int
	ScoreFacts     int
	ViewRows       int
	SnapshotDays   int
}
