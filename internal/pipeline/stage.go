package pipeline

import (
	"github.com/harborlabs/stevedore/internal/record"
)

// Stage is one step of the pipeline, ordered from selection to summary.
type Stage int

const (
	StageSelection Stage = iota + 1
	StageUpload
	StageProcessing
	StageCuration
	StageIngestion
	StageSummary
)

var stageNames = map[Stage]string{
	StageSelection:  "selection",
	StageUpload:     "upload",
	StageProcessing: "processing",
	StageCuration:   "curation",
	StageIngestion:  "ingestion",
	StageSummary:    "summary",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	_, ok := stageNames[s]
	return ok
}

// CanAdvance is the stage gate: it reports whether the pipeline may leave
// stage s given the current store. It never mutates records.
//
// The upload and processing gates are universally quantified over the
// selected set, so they hold vacuously when nothing is selected; the
// selection and curation gates demand at least one selected record, which
// keeps an empty pipeline from slipping through.
func CanAdvance(s Stage, store record.Store) bool {
	switch s {
	case StageSelection:
		return len(store.Selected()) > 0
	case StageUpload:
		for _, r := range store.Selected() {
			if !r.Uploaded {
				return false
			}
		}
		return true
	case StageProcessing:
		for _, r := range store.Selected() {
			if !r.Processed {
				return false
			}
		}
		return true
	case StageCuration:
		return len(store.Selected()) > 0
	case StageIngestion:
		return len(store.WithIngestionStatus(record.IngestionSuccess)) > 0
	default:
		return false
	}
}

// retreatReset applies the narrow, stage-local invalidation owed when the
// pipeline steps back into the given stage. This is not a record wipe:
// only the transient flags of the stages being redone are cleared.
func retreatReset(to Stage, store record.Store) record.Store {
	switch to {
	case StageSelection:
		// Uploads will be redone from scratch.
		return store.Transform(record.FileRecord.ResetUpload)
	case StageUpload:
		// Processing will be rerun; clear derived analysis state
		// atomically so no half-stale record survives.
		return store.Transform(record.FileRecord.ResetAnalysis)
	default:
		return store
	}
}
