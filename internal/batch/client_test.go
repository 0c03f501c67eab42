package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborlabs/stevedore/internal/record"
)

// memSource serves payloads from an in-memory map keyed by record name.
type memSource map[string][]byte

func (m memSource) Open(_ context.Context, rec record.FileRecord) (io.ReadCloser, error) {
	data, ok := m[rec.Name]
	if !ok {
		return nil, errors.New("no payload for " + rec.Name)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func twoRecords() []record.FileRecord {
	return []record.FileRecord{
		record.New("a.csv", "a.csv", 3),
		record.New("b.txt", "b.txt", 5),
	}
}

func payloads() memSource {
	return memSource{"a.csv": []byte("1,2"), "b.txt": []byte("hello")}
}

func TestUploadSendsFilesAndManifest(t *testing.T) {
	var gotFiles map[string]string
	var gotManifest []ManifestEntry
	var calls int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		require.NoError(t, r.ParseMultipartForm(1<<20))

		gotFiles = map[string]string{}
		for _, fh := range r.MultipartForm.File["files"] {
			f, err := fh.Open()
			require.NoError(t, err)
			data, err := io.ReadAll(f)
			f.Close()
			require.NoError(t, err)
			gotFiles[fh.Filename] = string(data)
		}
		require.NoError(t, json.Unmarshal([]byte(r.MultipartForm.Value["manifest"][0]), &gotManifest))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]UploadOutcome{
			{Name: "a.csv", ServerAssignedPath: "srv/a.csv"},
			{Name: "b.txt", ServerAssignedPath: "srv/b.txt"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "", time.Second)
	outcomes, err := c.Upload(context.Background(), twoRecords(), payloads())
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "exactly one network call per invocation")
	assert.Equal(t, map[string]string{"a.csv": "1,2", "b.txt": "hello"}, gotFiles)
	require.Len(t, gotManifest, 2)
	assert.Equal(t, "a.csv", gotManifest[0].Name)
	assert.Equal(t, int64(3), gotManifest[0].Size)
	assert.NotEmpty(t, gotManifest[0].ID)
	require.Len(t, outcomes, 2)
	assert.Equal(t, "srv/a.csv", outcomes[0].ServerAssignedPath)
}

func TestUploadEmptySubsetIsCallerError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "", time.Second)
	_, err := c.Upload(context.Background(), nil, payloads())

	assert.ErrorIs(t, err, ErrEmptySubset)
	assert.Equal(t, 0, calls, "no network call for an empty subset")
}

func TestUploadNon2xxIsBatchFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "", time.Second)
	_, err := c.Upload(context.Background(), twoRecords(), payloads())

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusBadGateway, te.Status)
	assert.Contains(t, te.Message(), "upload")
}

func TestUploadMalformedBodyIsBatchFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "not json")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "", time.Second)
	_, err := c.Upload(context.Background(), twoRecords(), payloads())

	var te *TransportError
	require.ErrorAs(t, err, &te)
}

func TestAnalyzeDecodesOutcomes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[
			{"fileName": "a.csv",
			 "qualityMetrics": {"parseAccuracy": 3, "completeness": 2, "complexity": 1},
			 "classification": "structured",
			 "analysis": {"delimiter": ","}}
		]`)
	}))
	defer srv.Close()

	c := NewClient("", srv.URL, "", time.Second)
	outcomes, err := c.Analyze(context.Background(), twoRecords(), payloads())
	require.NoError(t, err)

	require.Len(t, outcomes, 1)
	assert.Equal(t, "a.csv", outcomes[0].FileName)
	assert.Equal(t, 3, outcomes[0].QualityMetrics.ParseAccuracy)
	require.NotNil(t, outcomes[0].QualityMetrics.Completeness)
	assert.Equal(t, 2, *outcomes[0].QualityMetrics.Completeness)
	assert.Equal(t, record.ClassificationStructured, outcomes[0].Classification)
}

func TestIngestSendsManifestAndConfigWithoutBytes(t *testing.T) {
	var gotManifest []ManifestEntry
	var gotConfig DatabaseConfig
	var fileParts int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		fileParts = len(r.MultipartForm.File["files"])
		require.NoError(t, json.Unmarshal([]byte(r.MultipartForm.Value["manifest"][0]), &gotManifest))
		require.NoError(t, json.Unmarshal([]byte(r.MultipartForm.Value["config"][0]), &gotConfig))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"fileName": "a.csv", "status": "success", "ingestionDetails": null, "error": null}]`)
	}))
	defer srv.Close()

	cfg := DatabaseConfig{
		Relational: RelationalTarget{Kind: "postgres", Host: "db", Port: 5432, Database: "dw", User: "u", Password: "p"},
		Vector:     VectorTarget{Kind: "pgvector", Host: "db", Port: 5432, Collection: "docs"},
	}

	c := NewClient("", "", srv.URL, time.Second)
	outcomes, err := c.Ingest(context.Background(), twoRecords(), cfg)
	require.NoError(t, err)

	assert.Zero(t, fileParts, "ingest resends no raw bytes")
	require.Len(t, gotManifest, 2)
	assert.Equal(t, "postgres", gotConfig.Relational.Kind)
	assert.Equal(t, "docs", gotConfig.Vector.Collection)
	require.Len(t, outcomes, 1)
	assert.Equal(t, record.IngestionSuccess, outcomes[0].Status)
}

func TestIngestEmptySubset(t *testing.T) {
	c := NewClient("", "", "http://unused", time.Second)
	_, err := c.Ingest(context.Background(), nil, DatabaseConfig{})
	assert.ErrorIs(t, err, ErrEmptySubset)
}
