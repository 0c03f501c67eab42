package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	apihandler "github.com/harborlabs/stevedore/internal/api/handler"
	"github.com/harborlabs/stevedore/internal/run"
)

// NewRouter wires the control API for driving pipeline runs.
func NewRouter(logger *slog.Logger, runs *run.Manager) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(Logger(logger))
	r.Use(CORS)
	r.Use(chimw.Recoverer)

	health := apihandler.NewHealthHandler(runs.Staging())
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	r.Route("/api/v1", func(r chi.Router) {
		runsH := apihandler.NewRunHandler(logger, runs)
		r.Route("/runs", func(r chi.Router) {
			r.Get("/", runsH.List)
			r.Post("/", runsH.Create)
			r.Route("/{runID}", func(r chi.Router) {
				r.Get("/", runsH.Get)
				r.Delete("/", runsH.Delete)

				files := apihandler.NewFileHandler(logger, runs)
				r.Route("/files", func(r chi.Router) {
					r.Get("/", files.List)
					r.Post("/", files.Stage)
					r.Delete("/", files.Clear)
					r.Route("/{fileID}", func(r chi.Router) {
						r.Patch("/", files.SetSelected)
						r.Delete("/", files.Remove)
					})
				})

				stages := apihandler.NewStageHandler(logger, runs)
				r.Post("/advance", stages.Advance)
				r.Post("/retreat", stages.Retreat)
				r.Post("/upload", stages.Upload)
				r.Post("/analyze", stages.Analyze)
				r.Post("/ingest", stages.Ingest)
				r.Post("/retry", stages.Retry)

				reports := apihandler.NewReportHandler(logger, runs)
				r.Get("/report", reports.Get)
			})
		})
	})

	return r
}
