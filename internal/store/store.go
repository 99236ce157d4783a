// Package store persists observation history and story runs.
package store

import (
	"context"
	"time"

	"github.com/auto-market-pulse/pulse-cli/internal/model"
)

// ObservationFilter limits which observation rows are returned.
type ObservationFilter struct {
	Symbol string `json:"symbol,omitempty"`
	// Since drops observations before the given time.
	Since time.Time `json:"since,omitempty"`
	Limit int       `json:"limit,omitempty"`
}

// Store defines the persistence interface for the pulse pipeline.
type Store interface {
	// Observations
	ImportObservations(ctx context.Context, obs []model.Observation) (int, error)
	ListObservations(ctx context.Context, filter ObservationFilter) ([]model.Observation, error)
	Symbols(ctx context.Context) ([]string, error)

	// Story runs
	SaveRun(ctx context.Context, story model.Story, keywords []string) (*model.Run, error)
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
