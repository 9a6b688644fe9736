package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-hclog"

	"dase/internal/platform"
	"dase/internal/stats"
	"dase/internal/storage"
	daseapi "dase/pkg/dase"
)

const benchmarksDir = "benchmarks"

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "reset":
		return runReset(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "stats":
		return runStats(ctx, args[1:])
	case "history":
		return runHistory(ctx, args[1:])
	case "summary":
		return runSummary(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: dasectl <init|reset|run|runs|stats|history|summary> [flags]", msg)
}

func newLogger(level string) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:  "dasectl",
		Level: hclog.LevelFromString(level),
	})
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "dase.db", "sqlite database path")
	logLevel := fs.String("log-level", "info", "log level: trace|debug|info|warn|error")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := storage.NewStore(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	engine := platform.NewEngine(platform.Config{Store: store, Logger: newLogger(*logLevel)})
	if err := engine.Init(ctx); err != nil {
		return err
	}

	fmt.Printf("initialized store=%s\n", *storeKind)
	return nil
}

func runReset(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "dase.db", "sqlite database path")
	logLevel := fs.String("log-level", "info", "log level: trace|debug|info|warn|error")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := storage.NewStore(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	engine := platform.NewEngine(platform.Config{Store: store, Logger: newLogger(*logLevel)})
	if err := engine.Reset(ctx); err != nil {
		return err
	}

	fmt.Printf("reset store=%s\n", *storeKind)
	return nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional run config JSON path")
	latticeName := fs.String("lattice", "default", "lattice name")
	mode := fs.String("mode", "discrete", "lattice mode: discrete|continuous")
	units := fs.Int("units", 100, "unit count")
	waves := fs.Int("waves", 10, "wave count")
	sweepEvery := fs.Int("sweep-every", 0, "perform a role sweep every N waves (0 disables)")
	sweepPattern := fs.String("sweep-pattern", "", "comma-separated role names for the sweep (empty uses the mode default)")
	baseInput := fs.Float64("base-input", 1.0, "base input for each wave")
	controlPattern := fs.Float64("control-pattern", 0.0, "base control value for each wave")
	workers := fs.Int("workers", 0, "wave worker count (0 selects hardware parallelism)")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "dase.db", "sqlite database path")
	logLevel := fs.String("log-level", "info", "log level: trace|debug|info|warn|error")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	req, err := loadOrDefaultRunRequest(*configPath)
	if err != nil {
		return err
	}
	if *configPath == "" {
		req = daseapi.RunRequest{
			Lattice:        *latticeName,
			Mode:           *mode,
			Units:          *units,
			Waves:          *waves,
			SweepEvery:     *sweepEvery,
			SweepPattern:   splitPattern(*sweepPattern),
			BaseInput:      *baseInput,
			ControlPattern: *controlPattern,
			Workers:        *workers,
		}
	} else {
		overrideFromFlags(&req, setFlags, map[string]any{
			"lattice":         *latticeName,
			"mode":            *mode,
			"units":           *units,
			"waves":           *waves,
			"sweep-every":     *sweepEvery,
			"sweep-pattern":   *sweepPattern,
			"base-input":      *baseInput,
			"control-pattern": *controlPattern,
			"workers":         *workers,
		})
	}

	client, err := daseapi.New(daseapi.Options{
		StoreKind:     *storeKind,
		DBPath:        *dbPath,
		BenchmarksDir: benchmarksDir,
		Logger:        newLogger(*logLevel),
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("run completed run_id=%s lattice=%s mode=%s units=%d waves=%d\n",
		summary.RunID, req.Lattice, req.Mode, req.Units, req.Waves)
	for i, output := range summary.Outputs {
		fmt.Printf("wave=%d output=%.6f\n", i, output)
	}
	fmt.Printf("mean_output=%.6f final_output=%.6f switches=%s executions=%s\n",
		summary.MeanOutput,
		summary.FinalOutput,
		humanize.Comma(int64(summary.Switches)),
		humanize.Comma(int64(summary.Executions)),
	)
	fmt.Printf("artifacts_dir=%s\n", filepath.Clean(summary.ArtifactsDir))
	return nil
}

func runRuns(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	entries, err := stats.ListRunIndex(benchmarksDir)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	if len(entries) > *limit {
		entries = entries[:*limit]
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	for _, e := range entries {
		fmt.Printf("run_id=%s created_at=%s lattice=%s mode=%s units=%d waves=%d mean_output=%.6f\n",
			e.RunID, e.CreatedAtUTC, e.Lattice, e.Mode, e.Units, e.Waves, e.MeanOutput)
	}
	return nil
}

func runStats(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	latticeName := fs.String("lattice", "", "lattice name")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "dase.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *latticeName == "" {
		return errors.New("stats requires --lattice")
	}

	client, err := daseapi.New(daseapi.Options{
		StoreKind:     *storeKind,
		DBPath:        *dbPath,
		BenchmarksDir: benchmarksDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	item, err := client.Stats(ctx, *latticeName)
	if err != nil {
		return err
	}
	fmt.Printf("lattice=%s units=%d switches=%s executions=%s mean_switches=%.2f mean_executions=%.2f source_run=%s\n",
		item.Lattice,
		item.Units,
		humanize.Comma(int64(item.TotalSwitches)),
		humanize.Comma(int64(item.TotalExecutions)),
		item.MeanSwitches,
		item.MeanExecutions,
		item.SourceRunID,
	)
	return nil
}

func runHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show wave history for the most recent run from run index")
	limit := fs.Int("limit", 50, "max waves to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit wave history as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "dase.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("history requires --run-id or --latest")
	}

	client, err := daseapi.New(daseapi.Options{
		StoreKind:     *storeKind,
		DBPath:        *dbPath,
		BenchmarksDir: benchmarksDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	points, err := client.WaveHistory(ctx, *runID, *latest, *limit)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		fmt.Println("no wave history")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(points)
	}

	for _, p := range points {
		fmt.Printf("wave=%d input=%.6f control=%.6f output=%.6f\n", p.Wave, p.Input, p.Control, p.Output)
	}
	return nil
}

func runSummary(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	latticeName := fs.String("lattice", "", "lattice name")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "dase.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *latticeName == "" {
		return errors.New("summary requires --lattice")
	}

	client, err := daseapi.New(daseapi.Options{
		StoreKind:     *storeKind,
		DBPath:        *dbPath,
		BenchmarksDir: benchmarksDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.LatticeSummary(ctx, *latticeName)
	if err != nil {
		return err
	}
	fmt.Printf("lattice=%s best_output=%.6f description=%s\n",
		summary.Name,
		summary.BestOutput,
		summary.Description,
	)
	return nil
}

func splitPattern(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
