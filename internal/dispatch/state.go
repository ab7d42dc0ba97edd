package dispatch

import "fmt"

// State is the position of the dispatcher in the current invocation.
type State string

const (
	Idle           State = "idle"
	ModuleSelected State = "module_selected"
	Fetching       State = "fetching"
	Ready          State = "ready"
	Rendered       State = "rendered"
	Error          State = "error"
)

// Terminal reports whether the invocation has ended.
func (s State) Terminal() bool {
	return s == Rendered || s == Error
}

var transitions = map[State][]State{
	Idle:           {ModuleSelected},
	ModuleSelected: {Fetching, Error},
	Fetching:       {Ready, Error},
	Ready:          {Rendered, Error},
}

// CanTransition reports whether next may follow s.
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// machine tracks the dispatcher state. Selecting a module from a terminal
// state passes through Idle.
type machine struct {
	state State
}

func (m *machine) current() State {
	return m.state
}

func (m *machine) to(next State) error {
	from := m.state
	if from.Terminal() && next == ModuleSelected {
		from = Idle
	}
	if !from.CanTransition(next) {
		return fmt.Errorf("invalid dispatcher transition %s -> %s", m.state, next)
	}
	m.state = next
	return nil
}
