// Package reconcile merges batch outcome lists back into the FileRecord
// store. Every function here is pure: it takes a store snapshot and
// returns a new one, matching outcomes to records by exact, case-sensitive
// file name, the identity remote services echo back. Records without a
// matching outcome are returned unchanged; absence is not failure.
package reconcile

import (
	"github.com/harborlabs/stevedore/internal/batch"
	"github.com/harborlabs/stevedore/internal/record"
)

// ApplyUpload marks every matched record uploaded and adopts the server
// assigned path. The uploaded flag only ever moves false→true here; an
// earlier successful upload is never reverted by a later pass.
func ApplyUpload(s record.Store, outcomes []batch.UploadOutcome) record.Store {
	byName := make(map[string]batch.UploadOutcome, len(outcomes))
	for _, o := range outcomes {
		byName[o.Name] = o
	}
	return s.Transform(func(r record.FileRecord) record.FileRecord {
		o, ok := byName[r.Name]
		if !ok {
			return r
		}
		r.Uploaded = true
		if o.ServerAssignedPath != "" {
			r.Path = o.ServerAssignedPath
		}
		r.LastError = ""
		return r
	})
}

// ApplyAnalysis fills the analysis-derived fields of every matched record
// and marks it processed.
func ApplyAnalysis(s record.Store, outcomes []batch.AnalysisOutcome) record.Store {
	byName := make(map[string]batch.AnalysisOutcome, len(outcomes))
	for _, o := range outcomes {
		byName[o.FileName] = o
	}
	return s.Transform(func(r record.FileRecord) record.FileRecord {
		o, ok := byName[r.Name]
		if !ok {
			return r
		}
		q := o.QualityMetrics
		if o.QualityMetrics.Completeness != nil {
			c := *o.QualityMetrics.Completeness
			q.Completeness = &c
		}
		r.Processed = true
		r.Quality = &q
		r.Classification = o.Classification
		if len(o.Analysis) > 0 {
			r.Analysis = append([]byte(nil), o.Analysis...)
		} else {
			r.Analysis = nil
		}
		r.LastError = ""
		return r
	})
}

// ApplyIngestion records the ingestion outcome of every matched record.
// Detail payloads are normalized into the canonical sequence; a success
// outcome whose details cannot be normalized is downgraded to a per-file
// failure rather than stored half-parsed.
func ApplyIngestion(s record.Store, outcomes []batch.IngestOutcome) record.Store {
	byName := make(map[string]batch.IngestOutcome, len(outcomes))
	for _, o := range outcomes {
		byName[o.FileName] = o
	}
	return s.Transform(func(r record.FileRecord) record.FileRecord {
		o, ok := byName[r.Name]
		if !ok {
			return r
		}
		if o.Status != record.IngestionSuccess {
			r.IngestionStatus = record.IngestionFailed
			r.IngestionDetails = nil
			r.LastError = failureMessage(o.Error)
			return r
		}
		details, err := NormalizeDetails(o.IngestionDetails)
		if err != nil {
			r.IngestionStatus = record.IngestionFailed
			r.IngestionDetails = nil
			r.LastError = "ingestion succeeded but returned malformed details"
			return r
		}
		r.IngestionStatus = record.IngestionSuccess
		r.IngestionDetails = details
		r.LastError = ""
		return r
	})
}

func failureMessage(msg *string) string {
	if msg != nil && *msg != "" {
		return *msg
	}
	return "ingestion failed"
}

// MarkIngestionPending flags the submitted subset as pending before the
// batch call goes out. Only records in the subset are touched.
func MarkIngestionPending(s record.Store, subset []record.FileRecord) record.Store {
	ids := idSet(subset)
	return s.Transform(func(r record.FileRecord) record.FileRecord {
		if _, ok := ids[r.ID]; ok {
			r.IngestionStatus = record.IngestionPending
		}
		return r
	})
}

// MarkUploadFailed attaches a batch-fatal transport message to the
// submitted subset. Upload flags are untouched: nothing reached the
// server, so nothing is uploaded, and nothing already uploaded reverts.
func MarkUploadFailed(s record.Store, subset []record.FileRecord, msg string) record.Store {
	return markError(s, subset, msg)
}

// MarkAnalysisFailed attaches a batch-fatal transport message to the
// submitted subset without touching processed flags.
func MarkAnalysisFailed(s record.Store, subset []record.FileRecord, msg string) record.Store {
	return markError(s, subset, msg)
}

// MarkIngestionFailed marks the whole submitted subset failed with the
// given message. Used when the ingestion call itself fails and no per-file
// attribution is possible.
func MarkIngestionFailed(s record.Store, subset []record.FileRecord, msg string) record.Store {
	ids := idSet(subset)
	return s.Transform(func(r record.FileRecord) record.FileRecord {
		if _, ok := ids[r.ID]; ok {
			r.IngestionStatus = record.IngestionFailed
			r.LastError = msg
		}
		return r
	})
}

func markError(s record.Store, subset []record.FileRecord, msg string) record.Store {
	ids := idSet(subset)
	return s.Transform(func(r record.FileRecord) record.FileRecord {
		if _, ok := ids[r.ID]; ok {
			r.LastError = msg
		}
		return r
	})
}

func idSet(subset []record.FileRecord) map[string]struct{} {
	ids := make(map[string]struct{}, len(subset))
	for _, r := range subset {
		ids[r.ID] = struct{}{}
	}
	return ids
}
