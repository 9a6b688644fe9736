package storage

import (
	"context"

	"dase/internal/model"
)

// Store defines persistence operations for run records and lattice
// aggregates. Live lattice state is never persisted; only the records a
// session produces.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveWaveHistory(ctx context.Context, runID string, points []model.WavePoint) error
	GetWaveHistory(ctx context.Context, runID string) ([]model.WavePoint, bool, error)
	SaveLatticeStats(ctx context.Context, stats model.LatticeStatsRecord) error
	GetLatticeStats(ctx context.Context, lattice string) (model.LatticeStatsRecord, bool, error)
	SaveLatticeSummary(ctx context.Context, summary model.LatticeSummary) error
	GetLatticeSummary(ctx context.Context, name string) (model.LatticeSummary, bool, error)
}

// Resetter is implemented by stores that can drop all persisted state.
type Resetter interface {
	Reset(ctx context.Context) error
}
