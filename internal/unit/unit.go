package unit

import "math"

// Unit is one cell of a computation lattice: a role tag, the role's memory
// block, the last produced output, and immutable spatial coordinates assigned
// from the unit's linear index over a fixed 10x10xN tiling.
//
// Execute and SwitchRole are not safe to call concurrently on the same unit;
// the lattice guarantees phase separation between waves and sweeps.
type Unit struct {
	id      uint32
	x, y, z int16

	role   Role
	state  State
	output float64

	// signalControlled units derive their effective function from the
	// control value on every call instead of the role tag.
	signalControlled bool

	switchCount    uint64
	executionCount uint64
}

// New builds a unit for the given linear index. Discrete units start as
// workers, signal-controlled units as integrators.
func New(index uint32, signalControlled bool) Unit {
	x := int16(index % 10)
	y := int16((index / 10) % 10)
	z := int16(index / 100)

	role := RoleWorker
	if signalControlled {
		role = RoleIntegrator
	}
	return Unit{
		id:               index,
		x:                x,
		y:                y,
		z:                z,
		role:             role,
		state:            initState(role, 0, x, y, z),
		signalControlled: signalControlled,
	}
}

// SwitchRole replaces the unit's memory block with a fresh one for newRole,
// seeded from the current output. Switching to the active role is a no-op and
// reports false.
func (u *Unit) SwitchRole(newRole Role) bool {
	if newRole == u.role {
		return false
	}
	seed := u.output
	u.role = newRole
	u.state = initState(newRole, seed, u.x, u.y, u.z)
	u.switchCount++
	return true
}

// Execute runs one evaluation step. Inputs are taken as-is: non-finite values
// propagate through the arithmetic rather than being rejected.
func (u *Unit) Execute(input, control float64) float64 {
	var result float64
	if u.signalControlled {
		result = u.executeSignal(input, control)
	} else {
		result = u.executeRole(input, control)
	}
	u.output = result
	u.executionCount++
	return result
}

func (u *Unit) executeRole(input, control float64) float64 {
	s := &u.state
	switch u.role {
	case RoleWorker:
		result := input * s.Gain
		s.Accumulator += result * workerDT
		return result + s.Accumulator
	case RoleCommunicator:
		s.MessageCount++
		return input + float64(s.MessageCount)*messageWeight
	case RoleVectorStore:
		var similarity float32
		in := float32(input)
		for i := range s.Embedding {
			similarity += s.Embedding[i] * in
		}
		return float64(similarity)
	case RoleRegisterFile:
		s.Registers[1] = s.Registers[0] + truncateUint32(input)
		s.PC++
		return float64(s.Registers[1])
	case RoleMarkovChain:
		next := (truncateInt64(math.Floor(input*4)) + int64(s.MarkovState)) & 3
		s.MarkovState = uint8(next)
		return float64(next) + input
	case RoleInfluenceKernel:
		s.Influence *= s.Decay
		return s.Influence + input
	case RoleIntegrator:
		return u.integrate(input)
	case RoleDifferentiator:
		return u.differentiate(input)
	case RoleAmplifier:
		return input * (1 + control) * s.Gain
	case RoleInverter:
		return -input * (1 + math.Abs(control)) * s.Gain
	default:
		return 0
	}
}

// executeSignal selects the analog function from the control value on every
// call. The thresholds are re-evaluated each time, never cached, so a unit
// flips mode the instant its control crosses a boundary. Exactly 0.5 is
// amplification: integration requires control strictly above the threshold.
func (u *Unit) executeSignal(input, control float64) float64 {
	switch {
	case control > 0.5:
		return u.integrate(input)
	case control < -0.5:
		return u.differentiate(input)
	case control > 0:
		return input * (1 + control) * u.state.Gain
	default:
		return -input * (1 + math.Abs(control)) * u.state.Gain
	}
}

func (u *Unit) integrate(input float64) float64 {
	u.state.Accumulator += input * integratorDT
	return u.state.Accumulator * u.state.Gain
}

func (u *Unit) differentiate(input float64) float64 {
	derivative := input - u.state.PreviousInput
	u.state.PreviousInput = input
	return derivative * u.state.Gain
}

// ResetIntegrator clears the analog accumulation state without touching the
// role tag or counters.
func (u *Unit) ResetIntegrator() {
	u.state.Accumulator = 0
	u.state.PreviousInput = 0
}

// SetGain clamps and applies the feedback gain used by the analog roles.
func (u *Unit) SetGain(gain float64) {
	u.state.SetGain(gain)
}

func (u *Unit) ID() uint32      { return u.id }
func (u *Unit) Role() Role      { return u.role }
func (u *Unit) Output() float64 { return u.output }

// Coordinates returns the unit's fixed position in the 10x10xN tiling.
func (u *Unit) Coordinates() (x, y, z int16) { return u.x, u.y, u.z }

func (u *Unit) SwitchCount() uint64    { return u.switchCount }
func (u *Unit) ExecutionCount() uint64 { return u.executionCount }

// State returns a copy of the active memory block.
func (u *Unit) State() State { return u.state }
