package unit

import "math"

const (
	// Integration step for the integrator and worker roles.
	integratorDT = 0.1
	workerDT     = 0.01

	// Feedback gain bounds, matching an op-amp style stability envelope.
	minGain = 0.1
	maxGain = 10.0

	defaultSimilarityThreshold = 0.8
	defaultKernelDecay         = 0.9
	messageWeight              = 0.01
)

// State is the per-role memory block of a unit. Exactly one role's fields are
// live at a time; SwitchRole zeroes the whole block before reinitializing it,
// so no residue from the previous role survives a switch.
type State struct {
	// Analog family (worker, integrator, differentiator, amplifier, inverter).
	Accumulator   float64
	PreviousInput float64
	Gain          float64

	// Communicator.
	MessageCount uint32
	RoutingTable [6]uint8

	// Vector store.
	Embedding [8]float32
	Threshold float32

	// Register file.
	Registers [4]uint32
	PC        uint16

	// Markov chain.
	MarkovState uint8
	Transitions [4]float32

	// Influence kernel.
	Influence float64
	Decay     float64
}

// initState builds a fresh block for role, seeding it from the unit's last
// output where the role has a natural carrier for it. Coordinates are needed
// for the position-derived vector store embedding.
func initState(role Role, seed float64, x, y, z int16) State {
	var s State
	switch role {
	case RoleWorker:
		s.Gain = 1.0
		s.Accumulator = seed
	case RoleIntegrator:
		s.Gain = 1.0
		s.Accumulator = seed
	case RoleDifferentiator, RoleAmplifier, RoleInverter:
		s.Gain = 1.0
	case RoleCommunicator:
		// Message count and routing table start empty.
	case RoleVectorStore:
		for i := range s.Embedding {
			s.Embedding[i] = float32(math.Sin(float64(int(x)+int(y)+int(z)+i) * 0.1))
		}
		s.Threshold = defaultSimilarityThreshold
	case RoleRegisterFile:
		s.Registers[0] = truncateUint32(seed)
	case RoleMarkovChain:
		s.MarkovState = uint8(truncateInt64(seed)) & 3
		for i := range s.Transitions {
			s.Transitions[i] = 0.25
		}
	case RoleInfluenceKernel:
		s.Influence = seed
		s.Decay = defaultKernelDecay
	}
	return s
}

// SetGain clamps and stores the feedback gain used by the analog roles.
func (s *State) SetGain(gain float64) {
	if gain < minGain {
		gain = minGain
	} else if gain > maxGain {
		gain = maxGain
	}
	s.Gain = gain
}

// truncateUint32 converts through int64 so that out-of-range and negative
// values wrap instead of hitting the undefined float-to-unsigned conversion.
func truncateUint32(v float64) uint32 {
	return uint32(truncateInt64(v))
}

func truncateInt64(v float64) int64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt64:
		return math.MaxInt64
	case v <= math.MinInt64:
		return math.MinInt64
	}
	return int64(v)
}
