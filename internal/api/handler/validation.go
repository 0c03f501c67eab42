package handler

import (
	"github.com/harborlabs/stevedore/internal/batch"
	"github.com/harborlabs/stevedore/pkg/apierr"
)

// validateTargets checks the two ingestion targets for the fields the
// ingestion service cannot do without.
func validateTargets(cfg batch.DatabaseConfig) *apierr.Error {
	if cfg.Relational.Kind == "" {
		return apierr.InvalidTargets("relational target kind is required")
	}
	if cfg.Relational.Host == "" || cfg.Relational.Port <= 0 {
		return apierr.InvalidTargets("relational target host and port are required")
	}
	if cfg.Relational.Database == "" {
		return apierr.InvalidTargets("relational target database is required")
	}
	if cfg.Vector.Kind == "" {
		return apierr.InvalidTargets("vector target kind is required")
	}
	if cfg.Vector.Host == "" || cfg.Vector.Port <= 0 {
		return apierr.InvalidTargets("vector target host and port are required")
	}
	if cfg.Vector.Collection == "" {
		return apierr.InvalidTargets("vector target collection is required")
	}
	return nil
}
