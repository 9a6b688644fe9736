package storage

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"dase/internal/model"
)

func newInitializedMemoryStore(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return store
}

func versioned() model.VersionedRecord {
	return model.VersionedRecord{
		SchemaVersion: CurrentSchemaVersion,
		CodecVersion:  CurrentCodecVersion,
	}
}

func TestMemoryStoreRunRoundTrip(t *testing.T) {
	store := newInitializedMemoryStore(t)
	ctx := context.Background()

	run := model.RunRecord{
		VersionedRecord: versioned(),
		ID:              "lat-1",
		Lattice:         "lat",
		Mode:            "discrete",
		Units:           10,
		Waves:           5,
		MeanOutput:      1.25,
		CreatedAtUTC:    "2026-08-25T10:00:00Z",
	}
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("save run: %v", err)
	}

	got, ok, err := store.GetRun(ctx, "lat-1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok {
		t.Fatal("expected run to exist")
	}
	if diff := cmp.Diff(run, got); diff != "" {
		t.Fatalf("run mismatch (-want +got):\n%s", diff)
	}

	if _, ok, err := store.GetRun(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing run, got ok=%t err=%v", ok, err)
	}
}

func TestMemoryStoreListRunsNewestFirst(t *testing.T) {
	store := newInitializedMemoryStore(t)
	ctx := context.Background()

	for _, run := range []model.RunRecord{
		{VersionedRecord: versioned(), ID: "b", CreatedAtUTC: "2026-08-25T10:00:00Z"},
		{VersionedRecord: versioned(), ID: "a", CreatedAtUTC: "2026-08-25T12:00:00Z"},
		{VersionedRecord: versioned(), ID: "c", CreatedAtUTC: "2026-08-25T10:00:00Z"},
	} {
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("save run %s: %v", run.ID, err)
		}
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	ids := make([]string, 0, len(runs))
	for _, run := range runs {
		ids = append(ids, run.ID)
	}
	want := []string{"a", "b", "c"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryStoreWaveHistoryCopies(t *testing.T) {
	store := newInitializedMemoryStore(t)
	ctx := context.Background()

	points := []model.WavePoint{
		{Wave: 0, Input: 1.0, Output: 0.5},
		{Wave: 1, Input: 1.0, Output: 0.75},
	}
	if err := store.SaveWaveHistory(ctx, "run-1", points); err != nil {
		t.Fatalf("save history: %v", err)
	}

	points[0].Output = -99 // caller mutation must not leak into the store

	got, ok, err := store.GetWaveHistory(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("get history: ok=%t err=%v", ok, err)
	}
	if got[0].Output != 0.5 {
		t.Fatalf("expected stored output 0.5, got %v", got[0].Output)
	}

	got[1].Output = -99
	again, _, _ := store.GetWaveHistory(ctx, "run-1")
	if again[1].Output != 0.75 {
		t.Fatalf("expected stored output 0.75, got %v", again[1].Output)
	}
}

func TestMemoryStoreStatsAndSummary(t *testing.T) {
	store := newInitializedMemoryStore(t)
	ctx := context.Background()

	stats := model.LatticeStatsRecord{
		VersionedRecord: versioned(),
		Lattice:         "lat",
		Units:           10,
		TotalSwitches:   6,
		TotalExecutions: 50,
		MeanSwitches:    0.6,
		MeanExecutions:  5,
		SourceRunID:     "lat-1",
	}
	if err := store.SaveLatticeStats(ctx, stats); err != nil {
		t.Fatalf("save stats: %v", err)
	}
	gotStats, ok, err := store.GetLatticeStats(ctx, "lat")
	if err != nil || !ok {
		t.Fatalf("get stats: ok=%t err=%v", ok, err)
	}
	if diff := cmp.Diff(stats, gotStats); diff != "" {
		t.Fatalf("stats mismatch (-want +got):\n%s", diff)
	}

	summary := model.LatticeSummary{
		VersionedRecord: versioned(),
		Name:            "lat",
		Description:     "test lattice",
		BestOutput:      2.5,
	}
	if err := store.SaveLatticeSummary(ctx, summary); err != nil {
		t.Fatalf("save summary: %v", err)
	}
	gotSummary, ok, err := store.GetLatticeSummary(ctx, "lat")
	if err != nil || !ok {
		t.Fatalf("get summary: ok=%t err=%v", ok, err)
	}
	if diff := cmp.Diff(summary, gotSummary); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryStoreReset(t *testing.T) {
	store := newInitializedMemoryStore(t)
	ctx := context.Background()

	if err := store.SaveRun(ctx, model.RunRecord{VersionedRecord: versioned(), ID: "r"}); err != nil {
		t.Fatalf("save run: %v", err)
	}
	if err := store.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, ok, _ := store.GetRun(ctx, "r"); ok {
		t.Fatal("expected run gone after reset")
	}
}
