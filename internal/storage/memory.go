package storage

import (
	"context"
	"sort"
	"sync"

	"dase/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]model.RunRecord
	history     map[string][]model.WavePoint
	stats       map[string]model.LatticeStatsRecord
	summaries   map[string]model.LatticeSummary
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]model.RunRecord)
	s.history = make(map[string][]model.WavePoint)
	s.stats = make(map[string]model.LatticeStatsRecord)
	s.summaries = make(map[string]model.LatticeSummary)
	return nil
}

func (s *MemoryStore) Reset(ctx context.Context) error {
	return s.Init(ctx)
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	return run, ok, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAtUTC == out[j].CreatedAtUTC {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAtUTC > out[j].CreatedAtUTC
	})
	return out, nil
}

func (s *MemoryStore) SaveWaveHistory(_ context.Context, runID string, points []model.WavePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := append([]model.WavePoint(nil), points...)
	s.history[runID] = copied
	return nil
}

func (s *MemoryStore) GetWaveHistory(_ context.Context, runID string) ([]model.WavePoint, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points, ok := s.history[runID]
	if !ok {
		return nil, false, nil
	}
	copied := append([]model.WavePoint(nil), points...)
	return copied, true, nil
}

func (s *MemoryStore) SaveLatticeStats(_ context.Context, stats model.LatticeStatsRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats[stats.Lattice] = stats
	return nil
}

func (s *MemoryStore) GetLatticeStats(_ context.Context, lattice string) (model.LatticeStatsRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats, ok := s.stats[lattice]
	return stats, ok, nil
}

func (s *MemoryStore) SaveLatticeSummary(_ context.Context, summary model.LatticeSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.summaries[summary.Name] = summary
	return nil
}

func (s *MemoryStore) GetLatticeSummary(_ context.Context, name string) (model.LatticeSummary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary, ok := s.summaries[name]
	return summary, ok, nil
}
