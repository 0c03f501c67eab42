package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/harborlabs/stevedore/internal/pipeline"
	"github.com/harborlabs/stevedore/internal/record"
	"github.com/harborlabs/stevedore/internal/run"
	"github.com/harborlabs/stevedore/pkg/apierr"
)

type FileHandler struct {
	logger *slog.Logger
	runs   *run.Manager
}

func NewFileHandler(logger *slog.Logger, runs *run.Manager) *FileHandler {
	return &FileHandler{logger: logger, runs: runs}
}

// Stage accepts one multipart file, registers a FileRecord for it and
// stages its raw bytes for the upcoming batch calls. File names are the
// reconciliation key, so a duplicate name is rejected outright.
func (h *FileHandler) Stage(w http.ResponseWriter, r *http.Request) {
	rn, ok := getRunOr404(w, h.logger, h.runs, chi.URLParam(r, "runID"))
	if !ok {
		return
	}
	if h.runs.Staging() == nil {
		writeAPIError(w, h.logger, apierr.StagingDisabled())
		return
	}

	// Max 100MB upload
	r.Body = http.MaxBytesReader(w, r.Body, 100*1024*1024)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeAPIError(w, h.logger, apierr.FileRequired())
		return
	}
	defer file.Close()

	rec := record.New(header.Filename, header.Filename, header.Size)
	if err := rn.Controller.AddFile(rec); err != nil {
		if errors.Is(err, pipeline.ErrNameTaken) {
			writeAPIError(w, h.logger, apierr.FileNameTaken(rec.Name))
			return
		}
		writePipelineError(w, h.logger, "file selection", rn.Controller.Stage(), err)
		return
	}

	if err := h.runs.Staging().Stage(r.Context(), rn.ID, rec, file, header.Size); err != nil {
		// Roll the record back so the store never references a payload
		// that was not staged.
		_ = rn.Controller.RemoveFile(rec.ID)
		writeAPIError(w, h.logger, apierr.StagingFailed(err))
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	rn, ok := getRunOr404(w, h.logger, h.runs, chi.URLParam(r, "runID"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": rn.Controller.Snapshot().Records()})
}

// SetSelected flips the curation flag of one record.
func (h *FileHandler) SetSelected(w http.ResponseWriter, r *http.Request) {
	rn, ok := getRunOr404(w, h.logger, h.runs, chi.URLParam(r, "runID"))
	if !ok {
		return
	}

	var body struct {
		Selected *bool `json:"selected"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Selected == nil {
		writeAPIError(w, h.logger, apierr.InvalidRequestBody())
		return
	}

	fileID := chi.URLParam(r, "fileID")
	if err := rn.Controller.SetSelected(fileID, *body.Selected); err != nil {
		writePipelineError(w, h.logger, "selection update", rn.Controller.Stage(), err)
		return
	}

	rec, _ := rn.Controller.Snapshot().Get(fileID)
	writeJSON(w, http.StatusOK, rec)
}

// Clear discards every record and the run's staged payloads, restarting
// selection from scratch.
func (h *FileHandler) Clear(w http.ResponseWriter, r *http.Request) {
	rn, ok := getRunOr404(w, h.logger, h.runs, chi.URLParam(r, "runID"))
	if !ok {
		return
	}
	if err := rn.Controller.ClearFiles(); err != nil {
		writePipelineError(w, h.logger, "file clear", rn.Controller.Stage(), err)
		return
	}
	if h.runs.Staging() != nil {
		if err := h.runs.Staging().Discard(r.Context(), rn.ID); err != nil {
			h.logger.Warn("discard staged payloads failed",
				slog.String("run_id", rn.ID), slog.String("error", err.Error()))
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FileHandler) Remove(w http.ResponseWriter, r *http.Request) {
	rn, ok := getRunOr404(w, h.logger, h.runs, chi.URLParam(r, "runID"))
	if !ok {
		return
	}
	if err := rn.Controller.RemoveFile(chi.URLParam(r, "fileID")); err != nil {
		writePipelineError(w, h.logger, "file removal", rn.Controller.Stage(), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
