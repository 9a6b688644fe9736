// Package platform owns the engine: an explicitly constructed coordinator
// holding a persistence store and a set of named lattices. There is no
// process-wide engine instance; every driver constructs and owns its own.
package platform

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"dase/internal/lattice"
	"dase/internal/model"
	"dase/internal/storage"
	"dase/internal/unit"
)

type Config struct {
	Store  storage.Store
	Logger hclog.Logger
}

// SessionConfig drives one run: a number of waves against a named lattice,
// with an optional role sweep interleaved every SweepEvery waves.
type SessionConfig struct {
	RunID          string
	Lattice        string
	Waves          int
	BaseInput      float64
	ControlPattern float64
	SweepEvery     int
	SweepPattern   []unit.Role
}

type SessionResult struct {
	RunID       string
	Outputs     []float64
	MeanOutput  float64
	FinalOutput float64
	Stats       lattice.Stats
}

type Engine struct {
	store  storage.Store
	logger hclog.Logger

	mu       sync.RWMutex
	lattices map[string]*lattice.Lattice
	started  bool
}

func NewEngine(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Engine{
		store:    cfg.Store,
		logger:   logger.Named("engine"),
		lattices: make(map[string]*lattice.Lattice),
	}
}

func (e *Engine) Init(ctx context.Context) error {
	if e.store == nil {
		return fmt.Errorf("store is required")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return nil
	}
	if err := e.store.Init(ctx); err != nil {
		return err
	}
	e.started = true
	e.logger.Info("engine initialized")
	return nil
}

// Reset drops persisted state where the store supports it and reinitializes.
func (e *Engine) Reset(ctx context.Context) error {
	e.Stop()
	if resetter, ok := e.store.(storage.Resetter); ok {
		if err := resetter.Reset(ctx); err != nil {
			return err
		}
	}
	return e.Init(ctx)
}

// Stop closes every lattice and marks the engine stopped. The store stays
// open; callers close it through storage.CloseIfSupported.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, lat := range e.lattices {
		lat.Close()
	}
	e.lattices = make(map[string]*lattice.Lattice)
	e.started = false
}

func (e *Engine) CreateLattice(name string, cfg lattice.Config) error {
	if name == "" {
		return fmt.Errorf("lattice name is required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return fmt.Errorf("engine is not initialized")
	}
	if _, exists := e.lattices[name]; exists {
		return fmt.Errorf("duplicate lattice: %s", name)
	}

	lat, err := lattice.New(cfg)
	if err != nil {
		return fmt.Errorf("create lattice %s: %w", name, err)
	}
	e.lattices[name] = lat
	e.logger.Info("lattice created", "name", name, "units", lat.Len(), "mode", string(lat.Mode()), "workers", lat.Workers())
	return nil
}

func (e *Engine) GetLattice(name string) (*lattice.Lattice, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	lat, ok := e.lattices[name]
	return lat, ok
}

func (e *Engine) RemoveLattice(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	lat, ok := e.lattices[name]
	if !ok {
		return fmt.Errorf("lattice not registered: %s", name)
	}
	lat.Close()
	delete(e.lattices, name)
	return nil
}

func (e *Engine) Lattices() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.lattices))
	for name := range e.lattices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Engine) Started() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.started
}

// SweepAll reconfigures every registered lattice concurrently. Each lattice's
// own phase lock keeps its sweep exclusive with any wave in flight.
func (e *Engine) SweepAll(ctx context.Context, pattern []unit.Role) error {
	e.mu.RLock()
	snapshot := make(map[string]*lattice.Lattice, len(e.lattices))
	for name, lat := range e.lattices {
		snapshot[name] = lat
	}
	e.mu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)
	for name, lat := range snapshot {
		name, lat := name, lat
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			lat.PerformRoleSweep(pattern)
			e.logger.Debug("role sweep complete", "lattice", name)
			return nil
		})
	}
	return g.Wait()
}

// RunSession executes cfg.Waves waves against one lattice, interleaving role
// sweeps, then persists the run record, wave history, reduced stats, and the
// lattice's best-output summary.
func (e *Engine) RunSession(ctx context.Context, cfg SessionConfig) (SessionResult, error) {
	if cfg.Lattice == "" {
		return SessionResult{}, fmt.Errorf("lattice name is required")
	}
	if cfg.Waves <= 0 {
		return SessionResult{}, fmt.Errorf("wave count must be > 0, got %d", cfg.Waves)
	}

	e.mu.RLock()
	lat, ok := e.lattices[cfg.Lattice]
	started := e.started
	e.mu.RUnlock()

	if !started {
		return SessionResult{}, fmt.Errorf("engine is not initialized")
	}
	if !ok {
		return SessionResult{}, fmt.Errorf("lattice not registered: %s", cfg.Lattice)
	}

	now := time.Now().UTC()
	runID := cfg.RunID
	if runID == "" {
		runID = fmt.Sprintf("wave:%s:%d", cfg.Lattice, now.UnixNano())
	}

	e.logger.Info("session started", "run_id", runID, "lattice", cfg.Lattice, "waves", cfg.Waves)

	outputs := make([]float64, 0, cfg.Waves)
	points := make([]model.WavePoint, 0, cfg.Waves)
	for w := 0; w < cfg.Waves; w++ {
		if err := ctx.Err(); err != nil {
			return SessionResult{}, err
		}
		if cfg.SweepEvery > 0 && w%cfg.SweepEvery == 0 {
			lat.PerformRoleSweep(cfg.SweepPattern)
		}
		output := lat.ExecuteWave(cfg.BaseInput, cfg.ControlPattern)
		outputs = append(outputs, output)
		points = append(points, model.WavePoint{
			Wave:    w,
			Input:   cfg.BaseInput,
			Control: cfg.ControlPattern,
			Output:  output,
		})
	}

	mean := 0.0
	for _, output := range outputs {
		mean += output
	}
	mean /= float64(len(outputs))
	final := outputs[len(outputs)-1]
	reduced := lat.ReduceStats()

	run := model.RunRecord{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: storage.CurrentSchemaVersion,
			CodecVersion:  storage.CurrentCodecVersion,
		},
		ID:             runID,
		Lattice:        cfg.Lattice,
		Mode:           string(lat.Mode()),
		Units:          reduced.Units,
		Waves:          cfg.Waves,
		SweepEvery:     cfg.SweepEvery,
		BaseInput:      cfg.BaseInput,
		ControlPattern: cfg.ControlPattern,
		Workers:        lat.Workers(),
		MeanOutput:     mean,
		FinalOutput:    final,
		CreatedAtUTC:   now.Format(time.RFC3339Nano),
	}
	if err := e.store.SaveRun(ctx, run); err != nil {
		return SessionResult{}, err
	}
	if err := e.store.SaveWaveHistory(ctx, runID, points); err != nil {
		return SessionResult{}, err
	}
	if err := e.store.SaveLatticeStats(ctx, model.LatticeStatsRecord{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: storage.CurrentSchemaVersion,
			CodecVersion:  storage.CurrentCodecVersion,
		},
		Lattice:         cfg.Lattice,
		Units:           reduced.Units,
		TotalSwitches:   reduced.TotalSwitches,
		TotalExecutions: reduced.TotalExecutions,
		MeanSwitches:    reduced.MeanSwitches,
		MeanExecutions:  reduced.MeanExecutions,
		SourceRunID:     runID,
		RecordedAtUTC:   now.Format(time.RFC3339Nano),
	}); err != nil {
		return SessionResult{}, err
	}
	if err := e.updateLatticeSummary(ctx, cfg.Lattice, mean); err != nil {
		return SessionResult{}, err
	}

	e.logger.Info("session complete", "run_id", runID, "mean_output", mean, "final_output", final)

	return SessionResult{
		RunID:       runID,
		Outputs:     outputs,
		MeanOutput:  mean,
		FinalOutput: final,
		Stats:       reduced,
	}, nil
}

func (e *Engine) updateLatticeSummary(ctx context.Context, name string, output float64) error {
	summary, ok, err := e.store.GetLatticeSummary(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		summary = model.LatticeSummary{
			VersionedRecord: model.VersionedRecord{
				SchemaVersion: storage.CurrentSchemaVersion,
				CodecVersion:  storage.CurrentCodecVersion,
			},
			Name:        name,
			Description: fmt.Sprintf("best observed mean wave output for lattice %s", name),
			BestOutput:  output,
		}
		return e.store.SaveLatticeSummary(ctx, summary)
	}
	if output > summary.BestOutput {
		summary.BestOutput = output
		return e.store.SaveLatticeSummary(ctx, summary)
	}
	return nil
}
