package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/harborlabs/stevedore/internal/batch"
	"github.com/harborlabs/stevedore/internal/pipeline"
	"github.com/harborlabs/stevedore/internal/run"
	"github.com/harborlabs/stevedore/pkg/apierr"
)

// StageHandler exposes stage transitions and batch triggers. Batch calls
// run synchronously: at most one is in flight per run, and a second
// trigger is rejected with a conflict, not queued.
type StageHandler struct {
	logger *slog.Logger
	runs   *run.Manager
}

func NewStageHandler(logger *slog.Logger, runs *run.Manager) *StageHandler {
	return &StageHandler{logger: logger, runs: runs}
}

func (h *StageHandler) Advance(w http.ResponseWriter, r *http.Request) {
	rn, ok := getRunOr404(w, h.logger, h.runs, chi.URLParam(r, "runID"))
	if !ok {
		return
	}
	if err := rn.Controller.Advance(); err != nil {
		writePipelineError(w, h.logger, "advance", rn.Controller.Stage(), err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(rn, false))
}

func (h *StageHandler) Retreat(w http.ResponseWriter, r *http.Request) {
	rn, ok := getRunOr404(w, h.logger, h.runs, chi.URLParam(r, "runID"))
	if !ok {
		return
	}
	if err := rn.Controller.Retreat(); err != nil {
		writePipelineError(w, h.logger, "retreat", rn.Controller.Stage(), err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(rn, false))
}

func (h *StageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	rn, ok := getRunOr404(w, h.logger, h.runs, chi.URLParam(r, "runID"))
	if !ok {
		return
	}
	if err := rn.Controller.RunUpload(r.Context()); err != nil {
		writePipelineError(w, h.logger, "upload", rn.Controller.Stage(), err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(rn, true))
}

func (h *StageHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	rn, ok := getRunOr404(w, h.logger, h.runs, chi.URLParam(r, "runID"))
	if !ok {
		return
	}
	if err := rn.Controller.RunAnalysis(r.Context()); err != nil {
		writePipelineError(w, h.logger, "analysis", rn.Controller.Stage(), err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(rn, true))
}

func (h *StageHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	rn, ok := getRunOr404(w, h.logger, h.runs, chi.URLParam(r, "runID"))
	if !ok {
		return
	}

	var cfg batch.DatabaseConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeAPIError(w, h.logger, apierr.InvalidRequestBody())
		return
	}
	if apiErr := validateTargets(cfg); apiErr != nil {
		writeAPIError(w, h.logger, apiErr)
		return
	}

	rn.SetDatabaseConfig(cfg)
	if err := rn.Controller.RunIngestion(r.Context(), cfg); err != nil {
		writePipelineError(w, h.logger, "ingestion", rn.Controller.Stage(), err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(rn, true))
}

// Retry resubmits the failed subset of the current stage. Records that
// already succeeded are never part of a retry batch.
func (h *StageHandler) Retry(w http.ResponseWriter, r *http.Request) {
	rn, ok := getRunOr404(w, h.logger, h.runs, chi.URLParam(r, "runID"))
	if !ok {
		return
	}

	var err error
	switch rn.Controller.Stage() {
	case pipeline.StageUpload:
		err = rn.Controller.RetryUpload(r.Context())
	case pipeline.StageProcessing:
		err = rn.Controller.RetryAnalysis(r.Context())
	case pipeline.StageIngestion:
		err = rn.Controller.RetryIngestion(r.Context(), rn.DatabaseConfig())
	default:
		writeAPIError(w, h.logger, apierr.WrongStage("retry"))
		return
	}
	if err != nil {
		writePipelineError(w, h.logger, "retry", rn.Controller.Stage(), err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(rn, true))
}
