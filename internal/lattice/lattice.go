// Package lattice implements the reconfigurable computation lattice: an
// owned, fixed-size collection of compute units evaluated in synchronized
// parallel waves and reconfigured in parallel role sweeps.
package lattice

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"dase/internal/unit"
	"dase/internal/wave"
)

var ErrUnitOutOfRange = errors.New("unit index out of range")

// Mode selects how units pick their function during a wave.
type Mode string

const (
	// ModeDiscrete dispatches on each unit's explicit role tag.
	ModeDiscrete Mode = "discrete"
	// ModeContinuous derives each unit's function from its control value.
	ModeContinuous Mode = "continuous"
)

const (
	// Per-unit input spread within a wave: unit i sees baseInput + i*inputStep.
	inputStep = 0.1
	// Per-unit control perturbation amplitude and frequency.
	controlAmplitude = 0.3
	controlFrequency = 0.1
)

// Config describes a lattice at construction time.
type Config struct {
	Units   int
	Mode    Mode
	Workers int // 0 selects hardware parallelism
}

// Stats are whole-lattice counter aggregates, read under the phase lock.
type Stats struct {
	Units           int
	TotalSwitches   uint64
	TotalExecutions uint64
	MeanSwitches    float64
	MeanExecutions  float64
}

// Lattice owns its unit sequence exclusively. ExecuteWave, PerformRoleSweep,
// ReduceStats and Initialize serialize on an internal phase lock: a sweep can
// never observe a wave in flight, and a wave can never read a half-switched
// memory block.
type Lattice struct {
	mode  Mode
	sched *wave.Scheduler

	phase sync.Mutex
	units []unit.Unit
}

// New builds a lattice with cfg.Units fresh units. Worker pool creation
// failure is a construction error; nothing else about construction can fail.
func New(cfg Config) (*Lattice, error) {
	if cfg.Units < 0 {
		return nil, fmt.Errorf("unit count must be >= 0, got %d", cfg.Units)
	}
	mode := cfg.Mode
	if mode == "" {
		mode = ModeDiscrete
	}
	switch mode {
	case ModeDiscrete, ModeContinuous:
	default:
		return nil, fmt.Errorf("unsupported lattice mode: %s", mode)
	}

	sched, err := wave.NewScheduler(cfg.Workers)
	if err != nil {
		return nil, err
	}

	l := &Lattice{mode: mode, sched: sched}
	l.Initialize(cfg.Units)
	return l, nil
}

// Initialize rebuilds the unit sequence with count fresh units, discarding
// all previous state and counters.
func (l *Lattice) Initialize(count int) {
	if count < 0 {
		count = 0
	}

	l.phase.Lock()
	defer l.phase.Unlock()

	signalControlled := l.mode == ModeContinuous
	units := make([]unit.Unit, count)
	for i := range units {
		units[i] = unit.New(uint32(i), signalControlled)
	}
	l.units = units
}

// ExecuteWave evaluates every unit in parallel and returns the mean output.
// Unit i receives input baseInput + i*0.1 and control controlPattern
// perturbed by sin(i*0.1)*0.3, both deterministic in i, so a wave over fixed
// role state is reproducible: partial sums are combined in fixed range order
// (see wave.Scheduler.Sum), not accumulated in completion order.
//
// An empty lattice yields 0.0 rather than dividing by zero.
func (l *Lattice) ExecuteWave(baseInput, controlPattern float64) float64 {
	l.phase.Lock()
	defer l.phase.Unlock()

	if len(l.units) == 0 {
		return 0.0
	}

	total := l.sched.Sum(len(l.units), func(start, end int) float64 {
		partial := 0.0
		for i := start; i < end; i++ {
			input := baseInput + float64(i)*inputStep
			control := controlPattern + math.Sin(float64(i)*controlFrequency)*controlAmplitude
			partial += l.units[i].Execute(input, control)
		}
		return partial
	})
	return total / float64(len(l.units))
}

// PerformRoleSweep reassigns every unit's role in parallel, round-robin over
// pattern by unit index. A nil pattern uses the mode's default family order.
// Applying the same pattern twice in a row leaves every assignment unchanged.
func (l *Lattice) PerformRoleSweep(pattern []unit.Role) {
	l.phase.Lock()
	defer l.phase.Unlock()

	if len(l.units) == 0 {
		return
	}
	if len(pattern) == 0 {
		pattern = l.defaultPattern()
	}

	l.sched.Each(len(l.units), func(start, end int) {
		for i := start; i < end; i++ {
			l.units[i].SwitchRole(pattern[i%len(pattern)])
		}
	})
}

// ResetIntegrators clears the analog accumulation state of every unit.
func (l *Lattice) ResetIntegrators() {
	l.phase.Lock()
	defer l.phase.Unlock()

	l.sched.Each(len(l.units), func(start, end int) {
		for i := start; i < end; i++ {
			l.units[i].ResetIntegrator()
		}
	})
}

// SetGain applies a clamped feedback gain to every unit.
func (l *Lattice) SetGain(gain float64) {
	l.phase.Lock()
	defer l.phase.Unlock()

	l.sched.Each(len(l.units), func(start, end int) {
		for i := start; i < end; i++ {
			l.units[i].SetGain(gain)
		}
	})
}

// ReduceStats aggregates the switch and execution counters. It takes the
// phase lock, so counters are quiescent while read.
func (l *Lattice) ReduceStats() Stats {
	l.phase.Lock()
	defer l.phase.Unlock()

	stats := Stats{Units: len(l.units)}
	for i := range l.units {
		stats.TotalSwitches += l.units[i].SwitchCount()
		stats.TotalExecutions += l.units[i].ExecutionCount()
	}
	if stats.Units > 0 {
		stats.MeanSwitches = float64(stats.TotalSwitches) / float64(stats.Units)
		stats.MeanExecutions = float64(stats.TotalExecutions) / float64(stats.Units)
	}
	return stats
}

// Unit returns the unit at index i for direct inspection. The pointer is only
// valid until the next Initialize; mutating through it during a wave breaks
// the phase discipline.
func (l *Lattice) Unit(i int) (*unit.Unit, error) {
	l.phase.Lock()
	defer l.phase.Unlock()

	if i < 0 || i >= len(l.units) {
		return nil, fmt.Errorf("%w: %d (lattice has %d units)", ErrUnitOutOfRange, i, len(l.units))
	}
	return &l.units[i], nil
}

func (l *Lattice) Len() int {
	l.phase.Lock()
	defer l.phase.Unlock()
	return len(l.units)
}

func (l *Lattice) Mode() Mode { return l.mode }

// Workers reports the wave scheduler's pool size.
func (l *Lattice) Workers() int { return l.sched.Workers() }

func (l *Lattice) defaultPattern() []unit.Role {
	if l.mode == ModeContinuous {
		return unit.ContinuousRoles()
	}
	return unit.DiscreteRoles()
}

// Close releases the worker pool.
func (l *Lattice) Close() {
	l.sched.Close()
}
