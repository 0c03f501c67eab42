package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/harborlabs/stevedore/internal/report"
	"github.com/harborlabs/stevedore/internal/run"
	"github.com/harborlabs/stevedore/pkg/apierr"
)

type ReportHandler struct {
	logger *slog.Logger
	runs   *run.Manager
}

func NewReportHandler(logger *slog.Logger, runs *run.Manager) *ReportHandler {
	return &ReportHandler{logger: logger, runs: runs}
}

// Get builds the aggregated run report. With ?archive=true the JSON
// document is additionally stored next to the run's staged payloads.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	rn, ok := getRunOr404(w, h.logger, h.runs, chi.URLParam(r, "runID"))
	if !ok {
		return
	}

	snap := report.Build(rn.ID, rn.Controller.Stage().String(), rn.Controller.Snapshot(), rn.DatabaseConfig())

	if r.URL.Query().Get("archive") == "true" {
		if h.runs.Staging() == nil {
			writeAPIError(w, h.logger, apierr.StagingDisabled())
			return
		}
		data, err := snap.JSON()
		if err != nil {
			writeAPIError(w, h.logger, apierr.ReportFailed(err))
			return
		}
		key, err := h.runs.Staging().ArchiveReport(r.Context(), rn.ID, data)
		if err != nil {
			writeAPIError(w, h.logger, apierr.ReportArchiveFailed(err))
			return
		}
		h.logger.Info("report archived", slog.String("run_id", rn.ID), slog.String("object", key))
	}

	writeJSON(w, http.StatusOK, snap)
}
