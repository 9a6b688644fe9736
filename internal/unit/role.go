package unit

import "fmt"

// Role identifies the function a compute unit currently performs. The set is
// closed: dispatch is by switch, never by reflection.
type Role uint8

const (
	// Discrete family.
	RoleWorker Role = iota
	RoleCommunicator
	RoleVectorStore
	RoleRegisterFile
	RoleMarkovChain
	RoleInfluenceKernel
	// Continuous (analog) family.
	RoleIntegrator
	RoleDifferentiator
	RoleAmplifier
	RoleInverter
)

var roleNames = map[Role]string{
	RoleWorker:          "worker",
	RoleCommunicator:    "communicator",
	RoleVectorStore:     "vector_store",
	RoleRegisterFile:    "register_file",
	RoleMarkovChain:     "markov_chain",
	RoleInfluenceKernel: "influence_kernel",
	RoleIntegrator:      "integrator",
	RoleDifferentiator:  "differentiator",
	RoleAmplifier:       "amplifier",
	RoleInverter:        "inverter",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", uint8(r))
}

// DiscreteRoles is the default sweep order for discrete lattices.
func DiscreteRoles() []Role {
	return []Role{
		RoleWorker, RoleCommunicator, RoleVectorStore,
		RoleRegisterFile, RoleMarkovChain, RoleInfluenceKernel,
	}
}

// ContinuousRoles is the default sweep order for signal-controlled lattices.
func ContinuousRoles() []Role {
	return []Role{RoleIntegrator, RoleDifferentiator, RoleAmplifier, RoleInverter}
}

// ParseRole resolves a role name as used in run configs and CLI flags.
func ParseRole(name string) (Role, error) {
	for role, n := range roleNames {
		if n == name {
			return role, nil
		}
	}
	return 0, fmt.Errorf("unknown role: %s", name)
}
