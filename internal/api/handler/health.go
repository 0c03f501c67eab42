package handler

import (
	"net/http"

	"github.com/harborlabs/stevedore/internal/staging"
	"github.com/harborlabs/stevedore/pkg/apierr"
)

type HealthHandler struct {
	staging *staging.Client
}

func NewHealthHandler(stg *staging.Client) *HealthHandler {
	return &HealthHandler{staging: stg}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.staging != nil {
		if err := h.staging.Ping(r.Context()); err != nil {
			writeAPIError(w, nil, apierr.InternalError(err))
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
