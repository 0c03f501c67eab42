package record

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Classification is the closed set of document classes assigned by the
// analysis service.
type Classification string

const (
	ClassificationStructured     Classification = "structured"
	ClassificationSemiStructured Classification = "semi_structured"
	ClassificationUnstructured   Classification = "unstructured"
)

// Valid reports whether c is one of the known classes.
func (c Classification) Valid() bool {
	switch c {
	case ClassificationStructured, ClassificationSemiStructured, ClassificationUnstructured:
		return true
	}
	return false
}

// IngestionStatus is the per-file outcome of the ingestion stage. The zero
// value means the file has never been part of an ingestion batch.
type IngestionStatus string

const (
	IngestionPending IngestionStatus = "pending"
	IngestionSuccess IngestionStatus = "success"
	IngestionFailed  IngestionStatus = "failed"
)

// QualityMetrics are the bounded ordinal scores (0–3) returned by the
// analysis service. Completeness is optional in the wire contract.
type QualityMetrics struct {
	ParseAccuracy int  `json:"parseAccuracy"`
	Completeness  *int `json:"completeness,omitempty"`
	Complexity    int  `json:"complexity"`
}

// ColumnSchema describes one column of an ingested table.
type ColumnSchema struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Primary bool   `json:"primary,omitempty"`
}

// TableDetail describes one table created by a structured ingestion.
type TableDetail struct {
	TableName    string         `json:"tableName"`
	Schema       []ColumnSchema `json:"schema"`
	RowsInserted int            `json:"rowsInserted"`
	SQLCommands  []string       `json:"sqlCommands"`
}

// Detail types for IngestionDetail.Type.
const (
	DetailStructured   = "structured"
	DetailUnstructured = "unstructured"
)

// IngestionDetail is the tagged union reported by the ingestion service.
// Type selects which fields are meaningful: "structured" fills Tables,
// "unstructured" fills the collection/chunking fields.
type IngestionDetail struct {
	Type string `json:"type"`

	// structured
	Tables []TableDetail `json:"tables,omitempty"`

	// unstructured
	Collection          string `json:"collection,omitempty"`
	ChunksCreated       int    `json:"chunksCreated,omitempty"`
	EmbeddingsGenerated int    `json:"embeddingsGenerated,omitempty"`
	ChunkingMethod      string `json:"chunkingMethod,omitempty"`
	EmbeddingModel      string `json:"embeddingModel,omitempty"`
}

// FileRecord is the per-file state unit tracked across all pipeline stages.
// Identity is the run-unique ID; remote services echo back Name, so batch
// reconciliation matches on Name (names are enforced unique at selection).
type FileRecord struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	TypeTag string `json:"typeTag"`

	Selected  bool `json:"selected"`
	Uploaded  bool `json:"uploaded"`
	Processed bool `json:"processed"`

	Quality          *QualityMetrics   `json:"qualityMetrics,omitempty"`
	Classification   Classification    `json:"classification,omitempty"`
	Analysis         json.RawMessage   `json:"analysis,omitempty"`
	IngestionStatus  IngestionStatus   `json:"ingestionStatus,omitempty"`
	IngestionDetails []IngestionDetail `json:"ingestionDetails,omitempty"`
	LastError        string            `json:"lastError,omitempty"`
}

// New creates a FileRecord for a freshly selected file. Records start
// selected; curation may deselect them later.
func New(name, path string, size int64) FileRecord {
	return FileRecord{
		ID:       uuid.New().String(),
		Name:     name,
		Path:     path,
		Size:     size,
		TypeTag:  TypeTagFor(name),
		Selected: true,
	}
}

// TypeTagFor derives the type tag from a file name's extension.
func TypeTagFor(name string) string {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return "unknown"
	}
	return strings.ToLower(ext)
}

// Clone returns a deep copy so that callers can never alias the store's
// internal state through pointers or slices.
func (r FileRecord) Clone() FileRecord {
	out := r
	if r.Quality != nil {
		q := *r.Quality
		if r.Quality.Completeness != nil {
			c := *r.Quality.Completeness
			q.Completeness = &c
		}
		out.Quality = &q
	}
	if r.Analysis != nil {
		out.Analysis = append(json.RawMessage(nil), r.Analysis...)
	}
	if r.IngestionDetails != nil {
		out.IngestionDetails = make([]IngestionDetail, len(r.IngestionDetails))
		for i, d := range r.IngestionDetails {
			out.IngestionDetails[i] = d.clone()
		}
	}
	return out
}

func (d IngestionDetail) clone() IngestionDetail {
	out := d
	if d.Tables != nil {
		out.Tables = make([]TableDetail, len(d.Tables))
		for i, t := range d.Tables {
			nt := t
			nt.Schema = append([]ColumnSchema(nil), t.Schema...)
			nt.SQLCommands = append([]string(nil), t.SQLCommands...)
			out.Tables[i] = nt
		}
	}
	return out
}

// ResetAnalysis clears processed and every analysis-derived field in one
// step, so the record is never half-stale when processing is rerun.
func (r FileRecord) ResetAnalysis() FileRecord {
	r.Processed = false
	r.Quality = nil
	r.Classification = ""
	r.Analysis = nil
	r.LastError = ""
	return r
}

// ResetUpload clears the upload flag and any analysis state that depended
// on it. Used when the pipeline retreats to selection.
func (r FileRecord) ResetUpload() FileRecord {
	r = r.ResetAnalysis()
	r.Uploaded = false
	return r
}

// ResetIngestion clears the ingestion outcome before the ingestion stage
// is rerun from scratch.
func (r FileRecord) ResetIngestion() FileRecord {
	r.IngestionStatus = ""
	r.IngestionDetails = nil
	r.LastError = ""
	return r
}
