package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/harborlabs/stevedore/internal/record"
)

// ErrEmptySubset is returned when a batch operation is invoked with no
// records. An empty subset is a caller error, never a network call.
var ErrEmptySubset = errors.New("batch: empty subset")

// TransportError is a batch-fatal failure: the call itself failed or the
// response body could not be parsed, so no per-file attribution exists.
type TransportError struct {
	Op     string
	Status int
	cause  error
}

func (e *TransportError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s batch failed: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s batch failed: %v", e.Op, e.cause)
}

func (e *TransportError) Unwrap() error { return e.cause }

// Message is the generic user-facing text attached to every record of the
// submitted subset when the whole batch fails.
func (e *TransportError) Message() string {
	return fmt.Sprintf("%s request failed; no file was processed", e.Op)
}

// PayloadSource opens the raw bytes backing a record. Upload and analysis
// requests stream file contents from it; ingestion does not need bytes.
type PayloadSource interface {
	Open(ctx context.Context, rec record.FileRecord) (io.ReadCloser, error)
}

// ManifestEntry describes one file's current metadata inside the request
// manifest part.
type ManifestEntry struct {
	ID             string                `json:"id"`
	Name           string                `json:"name"`
	Path           string                `json:"path"`
	Size           int64                 `json:"size"`
	TypeTag        string                `json:"typeTag"`
	Classification record.Classification `json:"classification,omitempty"`
}

// Client issues batch operations against the remote upload, analysis and
// ingestion services. Each invocation is exactly one multipart request
// over the given subset; the client never chunks, paginates or mutates
// record state; reconciliation is the caller's job.
type Client struct {
	uploadURL  string
	analyzeURL string
	ingestURL  string
	http       *http.Client
}

// NewClient creates a batch client for the three service endpoints.
func NewClient(uploadURL, analyzeURL, ingestURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Client{
		uploadURL:  uploadURL,
		analyzeURL: analyzeURL,
		ingestURL:  ingestURL,
		http:       &http.Client{Timeout: timeout},
	}
}

// Upload submits the subset's raw bytes and manifest to the upload
// service and returns its per-file outcome list.
func (c *Client) Upload(ctx context.Context, files []record.FileRecord, payloads PayloadSource) ([]UploadOutcome, error) {
	body, contentType, err := c.buildFileRequest(ctx, files, payloads)
	if err != nil {
		return nil, err
	}
	var outcomes []UploadOutcome
	if err := c.post(ctx, "upload", c.uploadURL, contentType, body, &outcomes); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// Analyze submits the subset's raw bytes and manifest to the analysis
// service and returns its per-file outcome list.
func (c *Client) Analyze(ctx context.Context, files []record.FileRecord, payloads PayloadSource) ([]AnalysisOutcome, error) {
	body, contentType, err := c.buildFileRequest(ctx, files, payloads)
	if err != nil {
		return nil, err
	}
	var outcomes []AnalysisOutcome
	if err := c.post(ctx, "analyze", c.analyzeURL, contentType, body, &outcomes); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// Ingest submits the subset's manifest plus the database configuration to
// the ingestion service. Raw bytes are not resent; the files were already
// uploaded.
func (c *Client) Ingest(ctx context.Context, files []record.FileRecord, cfg DatabaseConfig) ([]IngestOutcome, error) {
	if len(files) == 0 {
		return nil, ErrEmptySubset
	}

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	if err := writeJSONPart(w, "manifest", manifestFor(files)); err != nil {
		return nil, fmt.Errorf("build ingest manifest: %w", err)
	}
	if err := writeJSONPart(w, "config", cfg); err != nil {
		return nil, fmt.Errorf("build ingest config: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalize ingest request: %w", err)
	}

	var outcomes []IngestOutcome
	if err := c.post(ctx, "ingest", c.ingestURL, w.FormDataContentType(), buf, &outcomes); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// buildFileRequest assembles the multipart body shared by upload and
// analysis calls: one part per file's raw bytes plus a manifest part.
func (c *Client) buildFileRequest(ctx context.Context, files []record.FileRecord, payloads PayloadSource) (io.Reader, string, error) {
	if len(files) == 0 {
		return nil, "", ErrEmptySubset
	}

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for _, f := range files {
		part, err := w.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, "", fmt.Errorf("create file part %s: %w", f.Name, err)
		}
		rc, err := payloads.Open(ctx, f)
		if err != nil {
			return nil, "", fmt.Errorf("open payload %s: %w", f.Name, err)
		}
		_, cpErr := io.Copy(part, rc)
		rc.Close()
		if cpErr != nil {
			return nil, "", fmt.Errorf("copy payload %s: %w", f.Name, cpErr)
		}
	}
	if err := writeJSONPart(w, "manifest", manifestFor(files)); err != nil {
		return nil, "", fmt.Errorf("build manifest: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize request: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

func manifestFor(files []record.FileRecord) []ManifestEntry {
	entries := make([]ManifestEntry, len(files))
	for i, f := range files {
		entries[i] = ManifestEntry{
			ID:             f.ID,
			Name:           f.Name,
			Path:           f.Path,
			Size:           f.Size,
			TypeTag:        f.TypeTag,
			Classification: f.Classification,
		}
	}
	return entries
}

func writeJSONPart(w *multipart.Writer, name string, v any) error {
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q`, name))
	header.Set("Content-Type", "application/json")
	part, err := w.CreatePart(header)
	if err != nil {
		return err
	}
	return json.NewEncoder(part).Encode(v)
}

// post issues the single network call for a batch and decodes the outcome
// list. Any non-2xx status or undecodable body is batch-fatal.
func (c *Client) post(ctx context.Context, op, url, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return &TransportError{Op: op, Status: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, cause: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
