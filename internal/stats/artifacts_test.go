package stats

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWriteRunArtifacts(t *testing.T) {
	dir := t.TempDir()

	artifacts := RunArtifacts{
		Config: RunConfig{
			RunID:     "lat-abc",
			Lattice:   "lat",
			Mode:      "discrete",
			Units:     10,
			Waves:     3,
			BaseInput: 1.0,
			Workers:   4,
		},
		WaveOutputs:     []float64{0.5, 0.6, 0.7},
		MeanOutput:      0.6,
		FinalOutput:     0.7,
		TotalSwitches:   10,
		TotalExecutions: 30,
	}
	runDir, err := WriteRunArtifacts(dir, artifacts)
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	if runDir != filepath.Join(dir, "lat-abc") {
		t.Fatalf("unexpected run dir: %s", runDir)
	}

	for _, name := range []string{"config.json", "wave_outputs.json", "lattice_stats.json"} {
		if _, err := os.Stat(filepath.Join(runDir, name)); err != nil {
			t.Fatalf("missing artifact %s: %v", name, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(runDir, "config.json"))
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	var got RunConfig
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal config: %v", err)
	}
	if diff := cmp.Diff(artifacts.Config, got); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteRunArtifactsRequiresRunID(t *testing.T) {
	if _, err := WriteRunArtifacts(t.TempDir(), RunArtifacts{}); err == nil {
		t.Fatal("expected error for empty run id")
	}
}

func TestRunIndexNewestFirst(t *testing.T) {
	dir := t.TempDir()

	entries := []RunIndexEntry{
		{RunID: "r1", Lattice: "lat", CreatedAtUTC: "2026-08-25T10:00:00Z"},
		{RunID: "r2", Lattice: "lat", CreatedAtUTC: "2026-08-25T12:00:00Z"},
		{RunID: "r3", Lattice: "lat", CreatedAtUTC: "2026-08-25T11:00:00Z"},
	}
	for _, entry := range entries {
		if err := AppendRunIndex(dir, entry); err != nil {
			t.Fatalf("append %s: %v", entry.RunID, err)
		}
	}

	listed, err := ListRunIndex(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	ids := make([]string, 0, len(listed))
	for _, e := range listed {
		ids = append(ids, e.RunID)
	}
	want := []string{"r2", "r3", "r1"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestAppendRunIndexUpdatesInPlace(t *testing.T) {
	dir := t.TempDir()

	if err := AppendRunIndex(dir, RunIndexEntry{RunID: "r1", MeanOutput: 0.5, CreatedAtUTC: "2026-08-25T10:00:00Z"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := AppendRunIndex(dir, RunIndexEntry{RunID: "r1", MeanOutput: 0.9, CreatedAtUTC: "2026-08-25T10:00:00Z"}); err != nil {
		t.Fatalf("append update: %v", err)
	}

	listed, err := ListRunIndex(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected one entry, got %d", len(listed))
	}
	if listed[0].MeanOutput != 0.9 {
		t.Fatalf("expected updated mean output 0.9, got %v", listed[0].MeanOutput)
	}
}

func TestListRunIndexMissingFile(t *testing.T) {
	listed, err := ListRunIndex(t.TempDir())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("expected empty index, got %d entries", len(listed))
	}
}
