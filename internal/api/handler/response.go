package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/harborlabs/stevedore/internal/batch"
	"github.com/harborlabs/stevedore/internal/pipeline"
	"github.com/harborlabs/stevedore/internal/run"
	"github.com/harborlabs/stevedore/pkg/apierr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeAPIError writes a structured error response and logs 5xx errors.
func writeAPIError(w http.ResponseWriter, logger *slog.Logger, e *apierr.Error) {
	if e.Status() >= 500 && logger != nil {
		logger.Error(e.Message(), slog.String("code", string(e.Code())), slog.String("error", e.Error()))
	}
	writeJSON(w, e.Status(), e.Response())
}

// writePipelineError maps pipeline and batch errors onto the API error
// catalog. Gate violations and wrong-stage triggers come back as
// conflicts, transport failures as bad gateway.
func writePipelineError(w http.ResponseWriter, logger *slog.Logger, op string, stage pipeline.Stage, err error) {
	var te *batch.TransportError
	switch {
	case errors.Is(err, pipeline.ErrGateClosed):
		writeAPIError(w, logger, apierr.GateClosed(stage.String()))
	case errors.Is(err, pipeline.ErrWrongStage):
		writeAPIError(w, logger, apierr.WrongStage(op))
	case errors.Is(err, pipeline.ErrBatchInFlight):
		writeAPIError(w, logger, apierr.BatchInFlight())
	case errors.Is(err, pipeline.ErrAtFirstStage):
		writeAPIError(w, logger, apierr.AtFirstStage())
	case errors.Is(err, pipeline.ErrAtLastStage):
		writeAPIError(w, logger, apierr.AtLastStage())
	case errors.Is(err, pipeline.ErrNameTaken):
		writeAPIError(w, logger, apierr.FileNameTaken(""))
	case errors.Is(err, pipeline.ErrUnknownRecord):
		writeAPIError(w, logger, apierr.FileNotFound())
	case errors.As(err, &te):
		writeAPIError(w, logger, apierr.BatchFailed(err))
	default:
		writeAPIError(w, logger, apierr.InternalError(err))
	}
}

// getRunOr404 resolves the run from the URL or writes a 404.
func getRunOr404(w http.ResponseWriter, logger *slog.Logger, runs *run.Manager, id string) (*run.Run, bool) {
	r, err := runs.Get(id)
	if err != nil {
		writeAPIError(w, logger, apierr.RunNotFound())
		return nil, false
	}
	return r, true
}
