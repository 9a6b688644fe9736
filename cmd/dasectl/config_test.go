package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	daseapi "dase/pkg/dase"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadRunRequestFromConfig(t *testing.T) {
	path := writeConfig(t, `{
		"lattice": "bench",
		"mode": "continuous",
		"units": 32,
		"waves": 6,
		"sweep_every": 2,
		"sweep_pattern": ["integrator", "amplifier"],
		"base_input": 1.5,
		"control_pattern": 0.25,
		"workers": 3
	}`)

	req, err := loadRunRequestFromConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := daseapi.RunRequest{
		Lattice:        "bench",
		Mode:           "continuous",
		Units:          32,
		Waves:          6,
		SweepEvery:     2,
		SweepPattern:   []string{"integrator", "amplifier"},
		BaseInput:      1.5,
		ControlPattern: 0.25,
		Workers:        3,
	}
	if diff := cmp.Diff(want, req); diff != "" {
		t.Fatalf("request mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRunRequestPartialConfig(t *testing.T) {
	path := writeConfig(t, `{"lattice": "bench", "waves": 4}`)

	req, err := loadRunRequestFromConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if req.Lattice != "bench" || req.Waves != 4 {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.Units != 0 || req.Mode != "" {
		t.Fatalf("expected unset fields zeroed, got %+v", req)
	}
}

func TestLoadRunRequestBadJSON(t *testing.T) {
	path := writeConfig(t, `{"lattice": `)
	if _, err := loadRunRequestFromConfig(path); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestOverrideFromFlags(t *testing.T) {
	req := daseapi.RunRequest{Lattice: "from-config", Units: 8, Waves: 2}

	overrideFromFlags(&req, map[string]bool{
		"units":         true,
		"sweep-pattern": true,
	}, map[string]any{
		"lattice":       "flag-lattice",
		"units":         64,
		"sweep-pattern": "worker, markov_chain",
	})

	if req.Lattice != "from-config" {
		t.Fatalf("unset flag must not override config, got %s", req.Lattice)
	}
	if req.Units != 64 {
		t.Fatalf("expected units override 64, got %d", req.Units)
	}
	want := []string{"worker", "markov_chain"}
	if diff := cmp.Diff(want, req.SweepPattern); diff != "" {
		t.Fatalf("sweep pattern mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitPattern(t *testing.T) {
	if got := splitPattern(""); got != nil {
		t.Fatalf("expected nil for empty pattern, got %v", got)
	}
	got := splitPattern(" worker ,communicator,, vector_store ")
	want := []string{"worker", "communicator", "vector_store"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("pattern mismatch (-want +got):\n%s", diff)
	}
}
