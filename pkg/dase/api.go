// Package dase is the embedding API for the reconfigurable computation
// lattice. A Client owns a store and a lazily initialized engine; callers
// that want finer control construct platform.Engine directly.
package dase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"dase/internal/lattice"
	"dase/internal/model"
	"dase/internal/platform"
	"dase/internal/stats"
	"dase/internal/storage"
	"dase/internal/unit"
)

const (
	defaultBenchmarksDir = "benchmarks"
	defaultDBPath        = "dase.db"
	defaultLatticeName   = "default"
	defaultUnits         = 100
	defaultWaves         = 10
)

type Options struct {
	StoreKind     string
	DBPath        string
	BenchmarksDir string
	Workers       int
	Logger        hclog.Logger
}

type Client struct {
	store  storage.Store
	engine *platform.Engine
	logger hclog.Logger

	benchmarksDir string
	workers       int
}

type RunRequest struct {
	Lattice        string
	Mode           string
	Units          int
	Waves          int
	SweepEvery     int
	SweepPattern   []string
	BaseInput      float64
	ControlPattern float64
	Workers        int
}

type RunSummary struct {
	RunID        string
	ArtifactsDir string
	Outputs      []float64
	MeanOutput   float64
	FinalOutput  float64
	Switches     uint64
	Executions   uint64
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID        string
	CreatedAtUTC string
	Lattice      string
	Mode         string
	Units        int
	Waves        int
	MeanOutput   float64
}

type StatsItem struct {
	Lattice         string
	Units           int
	TotalSwitches   uint64
	TotalExecutions uint64
	MeanSwitches    float64
	MeanExecutions  float64
	SourceRunID     string
}

type SummaryItem struct {
	Name        string
	Description string
	BestOutput  float64
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	benchmarksDir := opts.BenchmarksDir
	if benchmarksDir == "" {
		benchmarksDir = defaultBenchmarksDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:         store,
		logger:        logger,
		benchmarksDir: benchmarksDir,
		workers:       opts.Workers,
	}, nil
}

func (c *Client) Close() error {
	if c.engine != nil {
		c.engine.Stop()
	}
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	_, err := c.ensureEngine(ctx)
	return err
}

// Reset drops persisted state (where the store supports it) and clears every
// registered lattice.
func (c *Client) Reset(ctx context.Context) error {
	engine, err := c.ensureEngine(ctx)
	if err != nil {
		return err
	}
	return engine.Reset(ctx)
}

// Run creates (or reuses) a named lattice, drives a session of waves with
// interleaved role sweeps, persists results, and writes the file artifacts.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.Lattice == "" {
		req.Lattice = defaultLatticeName
	}
	if req.Mode == "" {
		req.Mode = string(lattice.ModeDiscrete)
	}
	if req.Units <= 0 {
		req.Units = defaultUnits
	}
	if req.Waves <= 0 {
		req.Waves = defaultWaves
	}
	if req.Workers <= 0 {
		req.Workers = c.workers
	}
	if req.SweepEvery < 0 {
		return RunSummary{}, errors.New("sweep interval must be >= 0")
	}

	sweepPattern, err := parseSweepPattern(req.SweepPattern)
	if err != nil {
		return RunSummary{}, err
	}

	engine, err := c.ensureEngine(ctx)
	if err != nil {
		return RunSummary{}, err
	}

	lat, ok := engine.GetLattice(req.Lattice)
	if !ok {
		if err := engine.CreateLattice(req.Lattice, lattice.Config{
			Units:   req.Units,
			Mode:    lattice.Mode(req.Mode),
			Workers: req.Workers,
		}); err != nil {
			return RunSummary{}, err
		}
		lat, _ = engine.GetLattice(req.Lattice)
	} else if string(lat.Mode()) != req.Mode {
		return RunSummary{}, fmt.Errorf("lattice %s runs in %s mode, requested %s", req.Lattice, lat.Mode(), req.Mode)
	}

	now := time.Now().UTC()
	runID := fmt.Sprintf("%s-%s", req.Lattice, uuid.NewString())

	result, err := engine.RunSession(ctx, platform.SessionConfig{
		RunID:          runID,
		Lattice:        req.Lattice,
		Waves:          req.Waves,
		BaseInput:      req.BaseInput,
		ControlPattern: req.ControlPattern,
		SweepEvery:     req.SweepEvery,
		SweepPattern:   sweepPattern,
	})
	if err != nil {
		return RunSummary{}, err
	}

	runDir, err := stats.WriteRunArtifacts(c.benchmarksDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:          runID,
			Lattice:        req.Lattice,
			Mode:           req.Mode,
			Units:          result.Stats.Units,
			Waves:          req.Waves,
			SweepEvery:     req.SweepEvery,
			BaseInput:      req.BaseInput,
			ControlPattern: req.ControlPattern,
			Workers:        lat.Workers(),
		},
		WaveOutputs:     result.Outputs,
		MeanOutput:      result.MeanOutput,
		FinalOutput:     result.FinalOutput,
		TotalSwitches:   result.Stats.TotalSwitches,
		TotalExecutions: result.Stats.TotalExecutions,
	})
	if err != nil {
		return RunSummary{}, err
	}

	if err := stats.AppendRunIndex(c.benchmarksDir, stats.RunIndexEntry{
		RunID:        runID,
		Lattice:      req.Lattice,
		Mode:         req.Mode,
		Units:        result.Stats.Units,
		Waves:        req.Waves,
		MeanOutput:   result.MeanOutput,
		CreatedAtUTC: now.Format(time.RFC3339Nano),
	}); err != nil {
		return RunSummary{}, err
	}

	return RunSummary{
		RunID:        runID,
		ArtifactsDir: filepath.Clean(runDir),
		Outputs:      append([]float64(nil), result.Outputs...),
		MeanOutput:   result.MeanOutput,
		FinalOutput:  result.FinalOutput,
		Switches:     result.Stats.TotalSwitches,
		Executions:   result.Stats.TotalExecutions,
	}, nil
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := stats.ListRunIndex(c.benchmarksDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:        e.RunID,
			CreatedAtUTC: e.CreatedAtUTC,
			Lattice:      e.Lattice,
			Mode:         e.Mode,
			Units:        e.Units,
			Waves:        e.Waves,
			MeanOutput:   e.MeanOutput,
		})
	}
	return out, nil
}

func (c *Client) Stats(ctx context.Context, latticeName string) (StatsItem, error) {
	if latticeName == "" {
		return StatsItem{}, errors.New("lattice name is required")
	}
	if _, err := c.ensureEngine(ctx); err != nil {
		return StatsItem{}, err
	}
	record, ok, err := c.store.GetLatticeStats(ctx, latticeName)
	if err != nil {
		return StatsItem{}, err
	}
	if !ok {
		return StatsItem{}, fmt.Errorf("lattice stats not found: %s", latticeName)
	}
	return StatsItem{
		Lattice:         record.Lattice,
		Units:           record.Units,
		TotalSwitches:   record.TotalSwitches,
		TotalExecutions: record.TotalExecutions,
		MeanSwitches:    record.MeanSwitches,
		MeanExecutions:  record.MeanExecutions,
		SourceRunID:     record.SourceRunID,
	}, nil
}

func (c *Client) WaveHistory(ctx context.Context, runID string, latest bool, limit int) ([]model.WavePoint, error) {
	if runID != "" && latest {
		return nil, errors.New("use either run id or latest")
	}
	if limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}

	if latest {
		entries, err := stats.ListRunIndex(c.benchmarksDir)
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			return nil, errors.New("no runs available")
		}
		runID = entries[0].RunID
	}
	if runID == "" {
		return nil, errors.New("wave history requires run id or latest")
	}

	if _, err := c.ensureEngine(ctx); err != nil {
		return nil, err
	}
	points, ok, err := c.store.GetWaveHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("wave history not found for run id: %s", runID)
	}
	if limit > 0 && len(points) > limit {
		points = points[:limit]
	}
	out := make([]model.WavePoint, len(points))
	copy(out, points)
	return out, nil
}

func (c *Client) LatticeSummary(ctx context.Context, name string) (SummaryItem, error) {
	if name == "" {
		return SummaryItem{}, errors.New("lattice name is required")
	}
	if _, err := c.ensureEngine(ctx); err != nil {
		return SummaryItem{}, err
	}
	summary, ok, err := c.store.GetLatticeSummary(ctx, name)
	if err != nil {
		return SummaryItem{}, err
	}
	if !ok {
		return SummaryItem{}, fmt.Errorf("lattice summary not found: %s", name)
	}
	return SummaryItem{
		Name:        summary.Name,
		Description: summary.Description,
		BestOutput:  summary.BestOutput,
	}, nil
}

// Sweep retags every registered lattice, concurrently, using the named roles
// (or each lattice's default pattern when none are given).
func (c *Client) Sweep(ctx context.Context, roles []string) error {
	pattern, err := parseSweepPattern(roles)
	if err != nil {
		return err
	}
	engine, err := c.ensureEngine(ctx)
	if err != nil {
		return err
	}
	return engine.SweepAll(ctx, pattern)
}

func (c *Client) ensureEngine(ctx context.Context) (*platform.Engine, error) {
	if c.engine != nil {
		return c.engine, nil
	}
	engine := platform.NewEngine(platform.Config{Store: c.store, Logger: c.logger})
	if err := engine.Init(ctx); err != nil {
		return nil, err
	}
	c.engine = engine
	return c.engine, nil
}

func parseSweepPattern(names []string) ([]unit.Role, error) {
	if len(names) == 0 {
		return nil, nil
	}
	pattern := make([]unit.Role, 0, len(names))
	for _, name := range names {
		role, err := unit.ParseRole(name)
		if err != nil {
			return nil, err
		}
		pattern = append(pattern, role)
	}
	return pattern, nil
}
