package plan

import (
	"fmt"

	"github.com/loanerfleet/loanerfleet/core/solver"
)

// DataIncompleteError reports an input entity missing a required join key.
// The entity is excluded from the run, never fatal.
type DataIncompleteError struct {
	Kind    string // "vehicle" or "partner"
	ID      string
	Missing string
}

func (e *DataIncompleteError) Error() string {
	return fmt.Sprintf("%s %s: missing %s", e.Kind, e.ID, e.Missing)
}

// InfeasibleModelError is fatal to the run: the hard constraints admit no
// solution and no assignments are produced.
type InfeasibleModelError struct {
	Cause error
}

func (e *InfeasibleModelError) Error() string {
	return fmt.Sprintf("model infeasible: %v", e.Cause)
}

func (e *InfeasibleModelError) Unwrap() error { return e.Cause }

// Is lets errors.Is match the underlying solver sentinel.
func (e *InfeasibleModelError) Is(target error) bool {
	return target == solver.ErrInfeasible
}

// ConfigurationError is fatal before solving: a contradictory or
// out-of-range setting.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %s: %s", e.Field, e.Reason)
}
