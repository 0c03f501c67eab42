// Package report aggregates a finished (or in-progress) run into a single
// exportable snapshot. Only the selected records appear in the per-file
// list; deselected files were curated out and play no part in the result.
package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/harborlabs/stevedore/internal/batch"
	"github.com/harborlabs/stevedore/internal/record"
)

// Summary carries the aggregate counts of a run.
type Summary struct {
	TotalFiles       int                           `json:"totalFiles"`
	SelectedFiles    int                           `json:"selectedFiles"`
	Uploaded         int                           `json:"uploaded"`
	Processed        int                           `json:"processed"`
	IngestedSuccess  int                           `json:"ingestedSuccess"`
	IngestedFailed   int                           `json:"ingestedFailed"`
	IngestedPending  int                           `json:"ingestedPending"`
	ByClassification map[record.Classification]int `json:"byClassification,omitempty"`
}

// Snapshot is the exportable run report: aggregates, the database targets
// used for ingestion (secrets redacted), and the per-selected-file results.
type Snapshot struct {
	RunID       string               `json:"runId"`
	GeneratedAt time.Time            `json:"generatedAt"`
	Stage       string               `json:"stage"`
	Summary     Summary              `json:"summary"`
	Database    batch.DatabaseConfig `json:"database"`
	Files       []record.FileRecord  `json:"files"`
}

// Build assembles a snapshot from the current store state.
func Build(runID, stage string, store record.Store, db batch.DatabaseConfig) Snapshot {
	selected := store.Selected()

	sum := Summary{
		TotalFiles:    store.Len(),
		SelectedFiles: len(selected),
	}
	for _, r := range selected {
		if r.Uploaded {
			sum.Uploaded++
		}
		if r.Processed {
			sum.Processed++
		}
		switch r.IngestionStatus {
		case record.IngestionSuccess:
			sum.IngestedSuccess++
		case record.IngestionFailed:
			sum.IngestedFailed++
		case record.IngestionPending:
			sum.IngestedPending++
		}
		if r.Classification != "" {
			if sum.ByClassification == nil {
				sum.ByClassification = make(map[record.Classification]int)
			}
			sum.ByClassification[r.Classification]++
		}
	}

	return Snapshot{
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
		Stage:       stage,
		Summary:     sum,
		Database:    redact(db),
		Files:       selected,
	}
}

// JSON serializes the snapshot as a single indented JSON document.
func (s Snapshot) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return data, nil
}

// redact strips credentials before they can reach an exported document.
func redact(db batch.DatabaseConfig) batch.DatabaseConfig {
	if db.Relational.Password != "" {
		db.Relational.Password = "[redacted]"
	}
	if db.Vector.APIKey != "" {
		db.Vector.APIKey = "[redacted]"
	}
	return db
}
