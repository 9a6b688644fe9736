package main

import (
	"encoding/json"
	"fmt"
	"os"

	daseapi "dase/pkg/dase"
)

func loadRunRequestFromConfig(path string) (daseapi.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return daseapi.RunRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return daseapi.RunRequest{}, err
	}

	var req daseapi.RunRequest
	if v, ok := asString(raw["lattice"]); ok {
		req.Lattice = v
	}
	if v, ok := asString(raw["mode"]); ok {
		req.Mode = v
	}
	if v, ok := asInt(raw["units"]); ok {
		req.Units = v
	}
	if v, ok := asInt(raw["waves"]); ok {
		req.Waves = v
	}
	if v, ok := asInt(raw["sweep_every"]); ok {
		req.SweepEvery = v
	}
	if v, ok := asStringSlice(raw["sweep_pattern"]); ok {
		req.SweepPattern = v
	}
	if v, ok := asFloat64(raw["base_input"]); ok {
		req.BaseInput = v
	}
	if v, ok := asFloat64(raw["control_pattern"]); ok {
		req.ControlPattern = v
	}
	if v, ok := asInt(raw["workers"]); ok {
		req.Workers = v
	}
	return req, nil
}

func loadOrDefaultRunRequest(configPath string) (daseapi.RunRequest, error) {
	if configPath == "" {
		return daseapi.RunRequest{}, nil
	}
	req, err := loadRunRequestFromConfig(configPath)
	if err != nil {
		return daseapi.RunRequest{}, fmt.Errorf("load config: %w", err)
	}
	return req, nil
}

func overrideFromFlags(req *daseapi.RunRequest, set map[string]bool, flagValue map[string]any) {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "lattice":
			req.Lattice = v.(string)
		case "mode":
			req.Mode = v.(string)
		case "units":
			req.Units = v.(int)
		case "waves":
			req.Waves = v.(int)
		case "sweep-every":
			req.SweepEvery = v.(int)
		case "sweep-pattern":
			req.SweepPattern = splitPattern(v.(string))
		case "base-input":
			req.BaseInput = v.(float64)
		case "control-pattern":
			req.ControlPattern = v.(float64)
		case "workers":
			req.Workers = v.(int)
		}
	}
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}

func asStringSlice(v any) ([]string, bool) {
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}
