package batch

import (
	"encoding/json"

	"github.com/harborlabs/stevedore/internal/record"
)

// UploadOutcome is one entry of the upload service's per-file result list.
type UploadOutcome struct {
	Name               string `json:"name"`
	ServerAssignedPath string `json:"serverAssignedPath"`
}

// AnalysisOutcome is one entry of the analysis service's result list.
type AnalysisOutcome struct {
	FileName       string                `json:"fileName"`
	QualityMetrics record.QualityMetrics `json:"qualityMetrics"`
	Classification record.Classification `json:"classification"`
	Analysis       json.RawMessage       `json:"analysis,omitempty"`
}

// IngestOutcome is one entry of the ingestion service's result list.
// IngestionDetails is kept raw here: different ingestion kinds return an
// object, an array, or a name-keyed map, and the reconciler owns the
// normalization into one canonical sequence.
type IngestOutcome struct {
	FileName         string                 `json:"fileName"`
	Status           record.IngestionStatus `json:"status"`
	IngestionDetails json.RawMessage        `json:"ingestionDetails,omitempty"`
	Error            *string                `json:"error"`
}

// RelationalTarget configures the relational side of an ingestion.
type RelationalTarget struct {
	Kind     string `json:"kind"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"password"`
}

// VectorTarget configures the vector/document side of an ingestion.
type VectorTarget struct {
	Kind       string `json:"kind"`
	Host       string `json:"host"`
	Port       int    `json:"port"`
	Collection string `json:"collection"`
	APIKey     string `json:"apiKey,omitempty"`
}

// DatabaseConfig carries the two independently-typed ingestion targets.
type DatabaseConfig struct {
	Relational RelationalTarget `json:"relational"`
	Vector     VectorTarget     `json:"vector"`
}
