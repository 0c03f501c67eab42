package reconcile

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborlabs/stevedore/internal/batch"
	"github.com/harborlabs/stevedore/internal/record"
)

func storeOf(names ...string) record.Store {
	recs := make([]record.FileRecord, len(names))
	for i, n := range names {
		recs[i] = record.New(n, n, int64(i+1))
	}
	return record.NewStore(recs)
}

func strptr(s string) *string { return &s }

func TestApplyUploadMatchesByName(t *testing.T) {
	s := storeOf("a.csv", "b.csv", "c.csv")

	s = ApplyUpload(s, []batch.UploadOutcome{
		{Name: "a.csv", ServerAssignedPath: "srv/a.csv"},
		{Name: "c.csv", ServerAssignedPath: "srv/c.csv"},
	})

	a, _ := s.ByName("a.csv")
	b, _ := s.ByName("b.csv")
	c, _ := s.ByName("c.csv")
	assert.True(t, a.Uploaded)
	assert.Equal(t, "srv/a.csv", a.Path)
	assert.True(t, c.Uploaded)
	assert.False(t, b.Uploaded, "absent outcome is not failure")
	assert.Equal(t, "b.csv", b.Path)
}

func TestApplyUploadLeavesUnmatchedRecordUntouched(t *testing.T) {
	s := storeOf("a.csv", "b.csv")
	before, _ := s.ByName("b.csv")

	s = ApplyUpload(s, []batch.UploadOutcome{{Name: "a.csv", ServerAssignedPath: "srv/a.csv"}})

	after, _ := s.ByName("b.csv")
	assert.Equal(t, before, after)
}

func TestApplyUploadIsIdempotent(t *testing.T) {
	s := storeOf("a.csv", "b.csv")
	outcomes := []batch.UploadOutcome{{Name: "a.csv", ServerAssignedPath: "srv/a.csv"}}

	once := ApplyUpload(s, outcomes)
	twice := ApplyUpload(once, outcomes)

	assert.Equal(t, once.Records(), twice.Records())
}

func TestApplyUploadNeverRevertsUploadedFlag(t *testing.T) {
	s := storeOf("a.csv", "b.csv")
	s = ApplyUpload(s, []batch.UploadOutcome{{Name: "a.csv", ServerAssignedPath: "srv/a.csv"}})

	// a later pass that only matches b must not touch a
	s = ApplyUpload(s, []batch.UploadOutcome{{Name: "b.csv", ServerAssignedPath: "srv/b.csv"}})

	a, _ := s.ByName("a.csv")
	assert.True(t, a.Uploaded)
}

func TestApplyAnalysisFillsDerivedFields(t *testing.T) {
	s := storeOf("a.csv", "b.pdf")
	completeness := 2

	s = ApplyAnalysis(s, []batch.AnalysisOutcome{
		{
			FileName:       "a.csv",
			QualityMetrics: record.QualityMetrics{ParseAccuracy: 3, Completeness: &completeness, Complexity: 1},
			Classification: record.ClassificationStructured,
			Analysis:       json.RawMessage(`{"rows": 120}`),
		},
	})

	a, _ := s.ByName("a.csv")
	require.True(t, a.Processed)
	require.NotNil(t, a.Quality)
	assert.Equal(t, 3, a.Quality.ParseAccuracy)
	assert.Equal(t, 2, *a.Quality.Completeness)
	assert.Equal(t, record.ClassificationStructured, a.Classification)
	assert.JSONEq(t, `{"rows": 120}`, string(a.Analysis))

	b, _ := s.ByName("b.pdf")
	assert.False(t, b.Processed)
	assert.Nil(t, b.Quality)
}

func TestApplyIngestionRetryIsolation(t *testing.T) {
	s := storeOf("a.csv", "b.csv", "c.csv")
	s = ApplyIngestion(s, []batch.IngestOutcome{
		{FileName: "a.csv", Status: record.IngestionSuccess, IngestionDetails: json.RawMessage(structuredDetail)},
		{FileName: "b.csv", Status: record.IngestionFailed, Error: strptr("connection refused")},
		{FileName: "c.csv", Status: record.IngestionFailed, Error: strptr("timeout")},
	})

	// Retry batch covers only b and comes back successful.
	s = ApplyIngestion(s, []batch.IngestOutcome{
		{FileName: "b.csv", Status: record.IngestionSuccess, IngestionDetails: json.RawMessage(structuredDetail)},
	})

	a, _ := s.ByName("a.csv")
	b, _ := s.ByName("b.csv")
	c, _ := s.ByName("c.csv")
	assert.Equal(t, record.IngestionSuccess, a.IngestionStatus)
	assert.Equal(t, record.IngestionSuccess, b.IngestionStatus)
	assert.Empty(t, b.LastError, "a successful retry clears the error")
	assert.Equal(t, record.IngestionFailed, c.IngestionStatus)
	assert.Equal(t, "timeout", c.LastError)
}

func TestApplyIngestionFailureKeepsNonEmptyMessage(t *testing.T) {
	s := storeOf("a.csv")

	s = ApplyIngestion(s, []batch.IngestOutcome{
		{FileName: "a.csv", Status: record.IngestionFailed, Error: nil},
	})

	a, _ := s.ByName("a.csv")
	assert.Equal(t, record.IngestionFailed, a.IngestionStatus)
	assert.NotEmpty(t, a.LastError)
}

func TestApplyIngestionMalformedDetailsBecomePerFileFailure(t *testing.T) {
	s := storeOf("a.csv")

	s = ApplyIngestion(s, []batch.IngestOutcome{
		{FileName: "a.csv", Status: record.IngestionSuccess, IngestionDetails: json.RawMessage(`"oops"`)},
	})

	a, _ := s.ByName("a.csv")
	assert.Equal(t, record.IngestionFailed, a.IngestionStatus)
	assert.NotEmpty(t, a.LastError)
	assert.Nil(t, a.IngestionDetails)
}

func TestMarkIngestionFailedCoversSubsetOnly(t *testing.T) {
	s := storeOf("a.csv", "b.csv")
	subset := s.Filter(func(r record.FileRecord) bool { return r.Name == "a.csv" })

	s = MarkIngestionFailed(s, subset, "upload request failed; no file was processed")

	a, _ := s.ByName("a.csv")
	b, _ := s.ByName("b.csv")
	assert.Equal(t, record.IngestionFailed, a.IngestionStatus)
	assert.NotEmpty(t, a.LastError)
	assert.Empty(t, b.IngestionStatus)
	assert.Empty(t, b.LastError)
}

func TestMarkIngestionPending(t *testing.T) {
	s := storeOf("a.csv", "b.csv")
	subset := s.Filter(func(r record.FileRecord) bool { return r.Name == "b.csv" })

	s = MarkIngestionPending(s, subset)

	a, _ := s.ByName("a.csv")
	b, _ := s.ByName("b.csv")
	assert.Empty(t, a.IngestionStatus)
	assert.Equal(t, record.IngestionPending, b.IngestionStatus)
}
