package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunRecord is the persisted description and outcome of one wave session.
type RunRecord struct {
	VersionedRecord
	ID             string  `json:"id"`
	Lattice        string  `json:"lattice"`
	Mode           string  `json:"mode"`
	Units          int     `json:"units"`
	Waves          int     `json:"waves"`
	SweepEvery     int     `json:"sweep_every"`
	BaseInput      float64 `json:"base_input"`
	ControlPattern float64 `json:"control_pattern"`
	Workers        int     `json:"workers"`
	MeanOutput     float64 `json:"mean_output"`
	FinalOutput    float64 `json:"final_output"`
	CreatedAtUTC   string  `json:"created_at_utc"`
}

// WavePoint records the lattice-wide average produced by a single wave.
type WavePoint struct {
	Wave    int     `json:"wave"`
	Input   float64 `json:"input"`
	Control float64 `json:"control"`
	Output  float64 `json:"output"`
}

// LatticeStatsRecord aggregates per-unit counters over a whole lattice.
type LatticeStatsRecord struct {
	VersionedRecord
	Lattice         string  `json:"lattice"`
	Units           int     `json:"units"`
	TotalSwitches   uint64  `json:"total_switches"`
	TotalExecutions uint64  `json:"total_executions"`
	MeanSwitches    float64 `json:"mean_switches"`
	MeanExecutions  float64 `json:"mean_executions"`
	SourceRunID     string  `json:"source_run_id,omitempty"`
	RecordedAtUTC   string  `json:"recorded_at_utc"`
}

// LatticeSummary tracks the best observed wave output for a named lattice.
type LatticeSummary struct {
	VersionedRecord
	Name        string  `json:"name"`
	Description string  `json:"description"`
	BestOutput  float64 `json:"best_output"`
}
