// Package stats writes the file-based run artifacts consumed by external
// drivers: one directory per run plus a newest-first run index.
package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const runIndexFile = "run_index.json"

// RunConfig is the session configuration echoed into the artifacts.
type RunConfig struct {
	RunID          string  `json:"run_id"`
	Lattice        string  `json:"lattice"`
	Mode           string  `json:"mode"`
	Units          int     `json:"units"`
	Waves          int     `json:"waves"`
	SweepEvery     int     `json:"sweep_every"`
	BaseInput      float64 `json:"base_input"`
	ControlPattern float64 `json:"control_pattern"`
	Workers        int     `json:"workers"`
}

// RunArtifacts is everything written for a single run.
type RunArtifacts struct {
	Config          RunConfig `json:"config"`
	WaveOutputs     []float64 `json:"wave_outputs"`
	MeanOutput      float64   `json:"mean_output"`
	FinalOutput     float64   `json:"final_output"`
	TotalSwitches   uint64    `json:"total_switches"`
	TotalExecutions uint64    `json:"total_executions"`
}

type RunIndexEntry struct {
	RunID        string  `json:"run_id"`
	Lattice      string  `json:"lattice"`
	Mode         string  `json:"mode"`
	Units        int     `json:"units"`
	Waves        int     `json:"waves"`
	MeanOutput   float64 `json:"mean_output"`
	CreatedAtUTC string  `json:"created_at_utc"`
}

func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "config.json"), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "wave_outputs.json"), map[string]any{
		"wave_outputs": artifacts.WaveOutputs,
		"mean_output":  artifacts.MeanOutput,
		"final_output": artifacts.FinalOutput,
	}); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "lattice_stats.json"), map[string]any{
		"total_switches":   artifacts.TotalSwitches,
		"total_executions": artifacts.TotalExecutions,
	}); err != nil {
		return "", err
	}

	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns the index newest first. A missing index is an empty
// listing, not an error.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
