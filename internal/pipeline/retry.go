package pipeline

import (
	"context"

	"github.com/harborlabs/stevedore/internal/batch"
	"github.com/harborlabs/stevedore/internal/record"
)

// Retry resubmits only the records whose last batch outcome was failure.
// Records that already succeeded are never part of the retry subset, so a
// retry pass can not disturb them: the reconciler only touches records
// matched by the new batch's outcome list.

// FailedUploadSubset returns the selected records still awaiting a
// successful upload.
func FailedUploadSubset(s record.Store) []record.FileRecord {
	return s.Filter(func(r record.FileRecord) bool { return r.Selected && !r.Uploaded })
}

// FailedAnalysisSubset returns the selected records still awaiting a
// successful analysis.
func FailedAnalysisSubset(s record.Store) []record.FileRecord {
	return s.Filter(func(r record.FileRecord) bool { return r.Selected && !r.Processed })
}

// FailedIngestionSubset returns the selected records whose last ingestion
// outcome was failed.
func FailedIngestionSubset(s record.Store) []record.FileRecord {
	return s.WithIngestionStatus(record.IngestionFailed)
}

// RetryUpload resubmits the failed upload subset. With no failures it is
// a no-op. Functionally identical to RunUpload, which already excludes
// uploaded records; kept as a named entry point for the retry action.
func (c *Controller) RetryUpload(ctx context.Context) error {
	return c.RunUpload(ctx)
}

// RetryAnalysis resubmits only the selected records that are not yet
// processed, without resetting records that already succeeded.
func (c *Controller) RetryAnalysis(ctx context.Context) error {
	subset, err := c.begin("analyze", StageProcessing, func(r record.FileRecord) bool {
		return r.Selected && !r.Processed
	})
	if err != nil || subset == nil {
		return err
	}
	return c.runAnalysisBatch(ctx, subset)
}

// RetryIngestion resubmits only the records whose ingestion failed.
func (c *Controller) RetryIngestion(ctx context.Context, cfg batch.DatabaseConfig) error {
	subset, err := c.begin("ingest", StageIngestion, func(r record.FileRecord) bool {
		return r.Selected && r.IngestionStatus == record.IngestionFailed
	})
	if err != nil || subset == nil {
		return err
	}
	return c.runIngestionBatch(ctx, subset, cfg)
}
