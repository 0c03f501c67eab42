// Package run tracks the live pipeline runs of this process. Run state is
// in-memory only: a run exists from creation until it is deleted or the
// process exits, matching the single-run lifetime of the pipeline core.
package run

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harborlabs/stevedore/internal/batch"
	"github.com/harborlabs/stevedore/internal/pipeline"
	"github.com/harborlabs/stevedore/internal/staging"
)

// ErrNotFound is returned for an unknown run id.
var ErrNotFound = errors.New("run: not found")

// Run is one live pipeline run.
type Run struct {
	ID         string
	CreatedAt  time.Time
	Controller *pipeline.Controller

	mu sync.Mutex
	db batch.DatabaseConfig
}

// SetDatabaseConfig remembers the targets last used for ingestion so the
// report can include them.
func (r *Run) SetDatabaseConfig(cfg batch.DatabaseConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.db = cfg
}

// DatabaseConfig returns the targets last used for ingestion.
func (r *Run) DatabaseConfig() batch.DatabaseConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.db
}

// Manager is the registry of live runs.
type Manager struct {
	client  *batch.Client
	staging *staging.Client
	logger  *slog.Logger

	mu   sync.RWMutex
	runs map[string]*Run
}

func NewManager(client *batch.Client, stg *staging.Client, logger *slog.Logger) *Manager {
	return &Manager{
		client:  client,
		staging: stg,
		logger:  logger,
		runs:    make(map[string]*Run),
	}
}

// Staging returns the payload staging client, or nil when staging is
// disabled.
func (m *Manager) Staging() *staging.Client { return m.staging }

// Create starts a new run at the selection stage.
func (m *Manager) Create() *Run {
	id := uuid.New().String()
	var payloads batch.PayloadSource
	if m.staging != nil {
		payloads = m.staging.Source(id)
	}
	r := &Run{
		ID:         id,
		CreatedAt:  time.Now().UTC(),
		Controller: pipeline.NewController(m.client, payloads, m.logger.With(slog.String("run_id", id))),
	}

	m.mu.Lock()
	m.runs[id] = r
	m.mu.Unlock()

	m.logger.Info("run created", slog.String("run_id", id))
	return r
}

// Get returns the run with the given id.
func (m *Manager) Get(id string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

// List returns all live runs.
func (m *Manager) List() []*Run {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Run, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, r)
	}
	return out
}

// Delete removes a run and discards its staged payloads.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	_, ok := m.runs[id]
	delete(m.runs, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	if m.staging != nil {
		if err := m.staging.Discard(ctx, id); err != nil {
			m.logger.Warn("discard staged payloads failed",
				slog.String("run_id", id), slog.String("error", err.Error()))
		}
	}
	m.logger.Info("run deleted", slog.String("run_id", id))
	return nil
}
