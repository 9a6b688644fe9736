package storage

import (
	"encoding/json"
	"errors"

	"dase/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeRun(r model.RunRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func EncodeWaveHistory(points []model.WavePoint) ([]byte, error) {
	return json.Marshal(points)
}

func DecodeWaveHistory(data []byte) ([]model.WavePoint, error) {
	var points []model.WavePoint
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, err
	}
	return points, nil
}

func EncodeLatticeStats(s model.LatticeStatsRecord) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeLatticeStats(data []byte) (model.LatticeStatsRecord, error) {
	var stats model.LatticeStatsRecord
	if err := json.Unmarshal(data, &stats); err != nil {
		return model.LatticeStatsRecord{}, err
	}
	if err := checkVersion(stats.VersionedRecord); err != nil {
		return model.LatticeStatsRecord{}, err
	}
	return stats, nil
}

func EncodeLatticeSummary(s model.LatticeSummary) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeLatticeSummary(data []byte) (model.LatticeSummary, error) {
	var summary model.LatticeSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return model.LatticeSummary{}, err
	}
	if err := checkVersion(summary.VersionedRecord); err != nil {
		return model.LatticeSummary{}, err
	}
	return summary, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
