// Package pipeline owns the stage machine of a single run. The Controller
// is the sole owner of the stage index and the only writer of the record
// store: every mutation flows through a named reconcile or reset
// operation, never an ad-hoc field edit.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/harborlabs/stevedore/internal/batch"
	"github.com/harborlabs/stevedore/internal/reconcile"
	"github.com/harborlabs/stevedore/internal/record"
)

var (
	// ErrBatchInFlight rejects a second batch trigger while one is
	// outstanding. Triggers are rejected, not queued.
	ErrBatchInFlight = errors.New("pipeline: batch operation already in flight")

	// ErrGateClosed rejects an advance whose stage predicate fails.
	ErrGateClosed = errors.New("pipeline: stage gate not satisfied")

	// ErrWrongStage rejects an operation outside its owning stage.
	ErrWrongStage = errors.New("pipeline: operation not available in current stage")

	// ErrNameTaken rejects a selection whose file name collides with an
	// existing record. Reconciliation matches on name, so names must be
	// unique within a run.
	ErrNameTaken = errors.New("pipeline: file name already in use")

	// ErrUnknownRecord flags a record id the store does not hold.
	ErrUnknownRecord = errors.New("pipeline: unknown record")

	// ErrAtFirstStage and ErrAtLastStage bound retreat and advance.
	ErrAtFirstStage = errors.New("pipeline: already at first stage")
	ErrAtLastStage  = errors.New("pipeline: already at last stage")
)

// Controller sequences one pipeline run: it holds the current stage, the
// record store snapshot, and the single-flight guard for batch calls.
// Record mutation happens synchronously under the lock once a batch
// response arrives; the network wait itself holds no lock.
type Controller struct {
	client   *batch.Client
	payloads batch.PayloadSource
	logger   *slog.Logger

	mu       sync.Mutex
	stage    Stage
	store    record.Store
	inFlight bool
	busyOp   string
}

// NewController creates a controller at the selection stage with an empty
// store.
func NewController(client *batch.Client, payloads batch.PayloadSource, logger *slog.Logger) *Controller {
	return &Controller{
		client:   client,
		payloads: payloads,
		logger:   logger,
		stage:    StageSelection,
		store:    record.NewStore(nil),
	}
}

// Stage returns the current stage.
func (c *Controller) Stage() Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stage
}

// Snapshot returns the current store snapshot.
func (c *Controller) Snapshot() record.Store {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store
}

// Busy reports whether a batch operation is in flight, and which one.
// Progress is indeterminate by design: the remote services report no
// partial progress worth trusting.
func (c *Controller) Busy() (bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight, c.busyOp
}

// AddFile registers a freshly selected file. Only valid during selection;
// duplicate names are rejected because name is the reconciliation key.
func (c *Controller) AddFile(r record.FileRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stage != StageSelection {
		return ErrWrongStage
	}
	if c.store.HasName(r.Name) {
		return ErrNameTaken
	}
	c.store = c.store.Append(r)
	return nil
}

// RemoveFile discards a record during selection.
func (c *Controller) RemoveFile(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stage != StageSelection {
		return ErrWrongStage
	}
	if _, ok := c.store.Get(id); !ok {
		return ErrUnknownRecord
	}
	c.store = c.store.Remove(id)
	return nil
}

// ClearFiles discards every record and returns to the selection stage.
func (c *Controller) ClearFiles() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return ErrBatchInFlight
	}
	c.stage = StageSelection
	c.store = c.store.Replace(nil)
	return nil
}

// SetSelected flips a record's selected flag. Allowed during selection
// and curation; other stages operate on a fixed selected set.
func (c *Controller) SetSelected(id string, selected bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stage != StageSelection && c.stage != StageCuration {
		return ErrWrongStage
	}
	if _, ok := c.store.Get(id); !ok {
		return ErrUnknownRecord
	}
	c.store = c.store.Transform(func(r record.FileRecord) record.FileRecord {
		if r.ID == id {
			r.Selected = selected
		}
		return r
	})
	return nil
}

// Advance moves the pipeline forward one stage if the gate permits. The
// gate is pure: a closed gate means the action is unavailable, nothing
// more.
func (c *Controller) Advance() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return ErrBatchInFlight
	}
	if c.stage == StageSummary {
		return ErrAtLastStage
	}
	if !CanAdvance(c.stage, c.store) {
		return ErrGateClosed
	}
	from := c.stage
	c.stage++
	c.logger.Info("stage advanced",
		slog.String("from", from.String()),
		slog.String("to", c.stage.String()))
	return nil
}

// Retreat moves the pipeline back one stage. Going backward is always
// permitted and applies the stage-local reset for the stage re-entered.
func (c *Controller) Retreat() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return ErrBatchInFlight
	}
	if c.stage == StageSelection {
		return ErrAtFirstStage
	}
	from := c.stage
	c.stage--
	c.store = retreatReset(c.stage, c.store)
	c.logger.Info("stage retreated",
		slog.String("from", from.String()),
		slog.String("to", c.stage.String()))
	return nil
}

// RunUpload submits every selected, not-yet-uploaded record to the upload
// service and reconciles the result. Already-uploaded records are never
// resubmitted. With nothing left to upload the call is a no-op.
func (c *Controller) RunUpload(ctx context.Context) error {
	subset, err := c.begin("upload", StageUpload, notUploaded)
	if err != nil || subset == nil {
		return err
	}

	outcomes, callErr := c.client.Upload(ctx, subset, c.payloads)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.finish()
	if callErr != nil {
		msg := batchFailureMessage(callErr)
		c.store = reconcile.MarkUploadFailed(c.store, subset, msg)
		c.logger.Error("upload batch failed", slog.Int("files", len(subset)), slog.String("error", callErr.Error()))
		return callErr
	}
	c.store = reconcile.ApplyUpload(c.store, outcomes)
	c.logger.Info("upload batch completed", slog.Int("submitted", len(subset)), slog.Int("outcomes", len(outcomes)))
	return nil
}

// RunAnalysis restarts processing for the whole selected set: derived
// analysis fields are reset atomically at submission, then the batch is
// analyzed and reconciled.
func (c *Controller) RunAnalysis(ctx context.Context) error {
	subset, err := c.beginWith("analyze", StageProcessing, selected, func(s record.Store) record.Store {
		return s.Transform(func(r record.FileRecord) record.FileRecord {
			if r.Selected {
				return r.ResetAnalysis()
			}
			return r
		})
	})
	if err != nil || subset == nil {
		return err
	}
	return c.runAnalysisBatch(ctx, subset)
}

// RunIngestion submits the whole selected set to the ingestion service
// against the given database targets. A full run clears previous
// ingestion outcomes at submission; retries leave successes alone.
func (c *Controller) RunIngestion(ctx context.Context, cfg batch.DatabaseConfig) error {
	subset, err := c.beginWith("ingest", StageIngestion, selected, func(s record.Store) record.Store {
		return s.Transform(func(r record.FileRecord) record.FileRecord {
			if r.Selected {
				return r.ResetIngestion()
			}
			return r
		})
	})
	if err != nil || subset == nil {
		return err
	}
	return c.runIngestionBatch(ctx, subset, cfg)
}

// runAnalysisBatch performs the network call and reconciliation shared by
// full runs and retries.
func (c *Controller) runAnalysisBatch(ctx context.Context, subset []record.FileRecord) error {
	outcomes, callErr := c.client.Analyze(ctx, subset, c.payloads)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.finish()
	if callErr != nil {
		msg := batchFailureMessage(callErr)
		c.store = reconcile.MarkAnalysisFailed(c.store, subset, msg)
		c.logger.Error("analysis batch failed", slog.Int("files", len(subset)), slog.String("error", callErr.Error()))
		return callErr
	}
	c.store = reconcile.ApplyAnalysis(c.store, outcomes)
	c.logger.Info("analysis batch completed", slog.Int("submitted", len(subset)), slog.Int("outcomes", len(outcomes)))
	return nil
}

func (c *Controller) runIngestionBatch(ctx context.Context, subset []record.FileRecord, cfg batch.DatabaseConfig) error {
	c.mu.Lock()
	c.store = reconcile.MarkIngestionPending(c.store, subset)
	c.mu.Unlock()

	outcomes, callErr := c.client.Ingest(ctx, subset, cfg)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.finish()
	if callErr != nil {
		msg := batchFailureMessage(callErr)
		c.store = reconcile.MarkIngestionFailed(c.store, subset, msg)
		c.logger.Error("ingestion batch failed", slog.Int("files", len(subset)), slog.String("error", callErr.Error()))
		return callErr
	}
	c.store = reconcile.ApplyIngestion(c.store, outcomes)
	c.logger.Info("ingestion batch completed", slog.Int("submitted", len(subset)), slog.Int("outcomes", len(outcomes)))
	return nil
}

// begin acquires the single-flight guard at the given stage and derives
// the subset via filter. A nil subset with nil error means no-op: there
// was nothing to submit, and no network call is made.
func (c *Controller) begin(op string, stage Stage, filter func(record.FileRecord) bool) ([]record.FileRecord, error) {
	return c.beginWith(op, stage, filter, nil)
}

// beginWith additionally applies a named reset operation to the store
// atomically with subset derivation, before the guard is released to the
// network call.
func (c *Controller) beginWith(op string, stage Stage, filter func(record.FileRecord) bool, reset func(record.Store) record.Store) ([]record.FileRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stage != stage {
		return nil, ErrWrongStage
	}
	if c.inFlight {
		return nil, ErrBatchInFlight
	}
	if reset != nil {
		c.store = reset(c.store)
	}
	subset := c.store.Filter(filter)
	if len(subset) == 0 {
		c.logger.Info("batch skipped, empty subset", slog.String("op", op))
		return nil, nil
	}
	c.inFlight = true
	c.busyOp = op
	c.logger.Info("batch started", slog.String("op", op), slog.Int("files", len(subset)))
	return subset, nil
}

func (c *Controller) finish() {
	c.inFlight = false
	c.busyOp = ""
}

func batchFailureMessage(err error) string {
	var te *batch.TransportError
	if errors.As(err, &te) {
		return te.Message()
	}
	return err.Error()
}

func selected(r record.FileRecord) bool { return r.Selected }

func notUploaded(r record.FileRecord) bool { return r.Selected && !r.Uploaded }
