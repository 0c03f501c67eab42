package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/harborlabs/stevedore/internal/pipeline"
	"github.com/harborlabs/stevedore/internal/record"
	"github.com/harborlabs/stevedore/internal/run"
	"github.com/harborlabs/stevedore/pkg/apierr"
)

type RunHandler struct {
	logger *slog.Logger
	runs   *run.Manager
}

func NewRunHandler(logger *slog.Logger, runs *run.Manager) *RunHandler {
	return &RunHandler{logger: logger, runs: runs}
}

// runView is the wire representation of a run's pipeline state. Progress
// is indeterminate: busy plus the operation name is all a client gets.
type runView struct {
	ID            string              `json:"id"`
	CreatedAt     time.Time           `json:"createdAt"`
	Stage         string              `json:"stage"`
	Busy          bool                `json:"busy"`
	BusyOperation string              `json:"busyOperation,omitempty"`
	CanAdvance    bool                `json:"canAdvance"`
	Files         []record.FileRecord `json:"files,omitempty"`
}

func viewOf(r *run.Run, withFiles bool) runView {
	snapshot := r.Controller.Snapshot()
	stage := r.Controller.Stage()
	busy, op := r.Controller.Busy()
	v := runView{
		ID:            r.ID,
		CreatedAt:     r.CreatedAt,
		Stage:         stage.String(),
		Busy:          busy,
		BusyOperation: op,
		CanAdvance:    pipeline.CanAdvance(stage, snapshot),
	}
	if withFiles {
		v.Files = snapshot.Records()
	}
	return v
}

func (h *RunHandler) Create(w http.ResponseWriter, r *http.Request) {
	created := h.runs.Create()
	writeJSON(w, http.StatusCreated, viewOf(created, false))
}

func (h *RunHandler) List(w http.ResponseWriter, r *http.Request) {
	runs := h.runs.List()
	views := make([]runView, len(runs))
	for i, rn := range runs {
		views[i] = viewOf(rn, false)
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": views})
}

func (h *RunHandler) Get(w http.ResponseWriter, r *http.Request) {
	rn, ok := getRunOr404(w, h.logger, h.runs, chi.URLParam(r, "runID"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewOf(rn, true))
}

func (h *RunHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "runID")
	if err := h.runs.Delete(r.Context(), id); err != nil {
		writeAPIError(w, h.logger, apierr.RunNotFound())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
