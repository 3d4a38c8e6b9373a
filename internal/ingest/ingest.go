// Package ingest moves deposited batch files from the landing directory
// into the landing-buffer tables. The upstream producer is out of scope;
// whatever it drops as *.json is the input contract.
package ingest

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/animemart/animemart/internal/database"
	"github.com/google/uuid"
)

// Result holds the counters of one ingest pass.
type Result struct {
	BatchID         string
	Files           int
	FailedFiles     int
	CatalogStaged   int
	StatsStaged     int
	RecordsRejected int
}

// Ingestor reads batch files into the landing buffer.
type Ingestor struct {
	db  *database.DB
	dir string
}

// New creates an ingestor over the given landing directory.
func New(db *database.DB, dir string) *Ingestor {
	return &Ingestor{db: db, dir: dir}
}

// batchFile is the envelope of a deposited file: a kind discriminator and
// the raw records, decoded individually so one bad record cannot poison the
// rest of the file.
type batchFile struct {
	Kind    string            `json:"kind"`
	Records []json.RawMessage `json:"records"`
}

type catalogRecord struct {
	ID           *int64   `json:"id"`
	Title        *string  `json:"title"`
	Status       *string  `json:"status"`
	Rating       *string  `json:"rating"`
	Score        *float64 `json:"score"`
	Favorites    *int64   `json:"favorites"`
	SnapshotDate *string  `json:"snapshot_date"`
	IsAiring     *bool    `json:"is_airing"`
	AiredFrom    *string  `json:"aired_from"`
	AiredTo      *string  `json:"aired_to"`
}

type statsEnvelope struct {
	EntityID     *int64  `json:"entity_id"`
	SnapshotDate *string `json:"snapshot_date"`
}

// Run stages every pending *.json file. Processed files are renamed with a
// .done suffix, unreadable ones with .failed, so a pass never re-ingests.
func (ing *Ingestor) Run() (*Result, error) {
	r := &Result{BatchID: uuid.NewString()}

	entries, err := os.ReadDir(ing.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("reading landing directory: %w", err)
	}

	var pending []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		pending = append(pending, filepath.Join(ing.dir, name))
	}
	sort.Strings(pending)

	for _, path := range pending {
		if err := ing.ingestFile(path, r); err != nil {
			log.Printf("skipping %s: %v", filepath.Base(path), err)
			r.FailedFiles++
			if err := os.Rename(path, path+".failed"); err != nil {
				log.Printf("marking %s failed: %v", filepath.Base(path), err)
			}
			continue
		}
		r.Files++
		if err := os.Rename(path, path+".done"); err != nil {
			return nil, fmt.Errorf("marking %s done: %w", filepath.Base(path), err)
		}
	}

	return r, nil
}

func (ing *Ingestor) ingestFile(path string, r *Result) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var batch batchFile
	if err := json.Unmarshal(data, &batch); err != nil {
		return fmt.Errorf("parsing batch envelope: %w", err)
	}

	switch batch.Kind {
	case "catalog":
		return ing.stageCatalog(path, batch.Records, r)
	case "stats":
		return ing.stageStats(path, batch.Records, r)
	default:
		return fmt.Errorf("unknown batch kind %q", batch.Kind)
	}
}

func (ing *Ingestor) stageCatalog(path string, records []json.RawMessage, r *Result) error {
	for i, raw := range records {
		var rec catalogRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			r.RecordsRejected++
			log.Printf("%s: rejecting catalog record %d: %v", filepath.Base(path), i, err)
			continue
		}
		if rec.ID == nil || rec.Title == nil || rec.SnapshotDate == nil || rec.IsAiring == nil {
			r.RecordsRejected++
			log.Printf("%s: rejecting catalog record %d: missing required field", filepath.Base(path), i)
			continue
		}
		_, err := ing.db.StageCatalogDelta(&database.CatalogDelta{
			EntityID:     *rec.ID,
			Title:        *rec.Title,
			Status:       rec.Status,
			Rating:       rec.Rating,
			Score:        rec.Score,
			Favorites:    rec.Favorites,
			SnapshotDate: *rec.SnapshotDate,
			IsAiring:     *rec.IsAiring,
			AiredFrom:    rec.AiredFrom,
			AiredTo:      rec.AiredTo,
			BatchID:      r.BatchID,
		})
		if err != nil {
			return fmt.Errorf("staging catalog record %d: %w", i, err)
		}
		r.CatalogStaged++
	}
	return nil
}

func (ing *Ingestor) stageStats(path string, records []json.RawMessage, r *Result) error {
	for i, raw := range records {
		var env statsEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			r.RecordsRejected++
			log.Printf("%s: rejecting stats record %d: %v", filepath.Base(path), i, err)
			continue
		}
		if env.EntityID == nil || env.SnapshotDate == nil {
			r.RecordsRejected++
			log.Printf("%s: rejecting stats record %d: missing entity_id or snapshot_date", filepath.Base(path), i)
			continue
		}
		// The payload stays raw; the unfold transform owns its validation.
		if _, err := ing.db.StageStats(*env.EntityID, *env.SnapshotDate, string(raw), r.BatchID); err != nil {
			return fmt.Errorf("staging stats record %d: %w", i, err)
		}
		r.StatsStaged++
	}
	return nil
}
