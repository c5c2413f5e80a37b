// Package wizard sequences multi-step creation flows.
//
// The package holds no UI state. Advance and Retreat are pure functions over
// State values; Controller wraps them for a single session and Host adds the
// open/close lifecycle and the callbacks a hosting screen relays to
// persistence.
package wizard

import (
	"errors"
	"fmt"
)

var (
	ErrStepMismatch  = errors.New("fragment is not for the current step")
	ErrFieldNotOwned = errors.New("field not owned by step")
	ErrCompleted     = errors.New("wizard already completed")
	ErrClosed        = errors.New("wizard is not open")
)

// Fields is a partial aggregate record keyed by field name.
type Fields map[string]any

// Clone returns a shallow copy of f. A nil receiver yields an empty map.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Pick returns the subset of f named by keys.
func (f Fields) Pick(keys []string) Fields {
	out := make(Fields, len(keys))
	for _, k := range keys {
		if v, ok := f[k]; ok {
			out[k] = v
		}
	}
	return out
}

// Fragment is the data contributed by one step, tagged with that step.
type Fragment struct {
	Step   int
	Fields Fields
}

// State is one wizard session: the 1-based current step and the aggregate.
type State struct {
	Step int
	Data Fields
}

// NewState returns the initial state of a session.
func NewState() State {
	return State{Step: 1, Data: Fields{}}
}

// Outcome is the kind of transition a call produced.
type Outcome int

const (
	Advanced Outcome = iota + 1
	Completed
	Retreated
)

func (o Outcome) String() string {
	switch o {
	case Advanced:
		return "advanced"
	case Completed:
		return "completed"
	case Retreated:
		return "retreated"
	default:
		return "unknown"
	}
}

// Result describes a transition. Step is the step now active; on Completed
// it stays at the last step and Data is the finalized aggregate.
type Result struct {
	Outcome Outcome
	Step    int
	Data    Fields
}

// Advance merges fragment into state and moves forward, or completes the
// session when state is at the last step.
func Advance(def Definition, state State, fragment Fragment) (State, Result, error) {
	if fragment.Step != state.Step {
		return state, Result{}, fmt.Errorf("%w: got step %d, at step %d", ErrStepMismatch, fragment.Step, state.Step)
	}
	for k := range fragment.Fields {
		if !def.Owns(state.Step, k) {
			return state, Result{}, fmt.Errorf("%w: %q at step %d", ErrFieldNotOwned, k, state.Step)
		}
	}

	merged := state.Data.Clone()
	for k, v := range fragment.Fields {
		merged[k] = v
	}

	if state.Step < def.TotalSteps() {
		next := State{Step: state.Step + 1, Data: merged}
		return next, Result{Outcome: Advanced, Step: next.Step, Data: merged.Clone()}, nil
	}

	final := State{Step: state.Step, Data: merged}
	return final, Result{Outcome: Completed, Step: final.Step, Data: merged.Clone()}, nil
}

// Retreat moves one step back. Step 1 is a floor. Data is kept as is.
func Retreat(state State) (State, Result) {
	if state.Step > 1 {
		state.Step--
	}
	return state, Result{Outcome: Retreated, Step: state.Step, Data: state.Data.Clone()}
}

// Controller runs one session of a Definition.
type Controller struct {
	def       Definition
	state     State
	completed bool
}

// NewController starts a session at step 1 with no data.
func NewController(def Definition) *Controller {
	return &Controller{def: def, state: NewState()}
}

// Definition returns the layout the controller runs.
func (c *Controller) Definition() Definition { return c.def }

// State returns a copy of the current session state.
func (c *Controller) State() State {
	return State{Step: c.state.Step, Data: c.state.Data.Clone()}
}

func (c *Controller) Step() int       { return c.state.Step }
func (c *Controller) TotalSteps() int { return c.def.TotalSteps() }
func (c *Controller) Completed() bool { return c.completed }

// Advance applies fragment. Once completed the controller accepts nothing.
func (c *Controller) Advance(fragment Fragment) (Result, error) {
	if c.completed {
		return Result{}, ErrCompleted
	}
	next, res, err := Advance(c.def, c.state, fragment)
	if err != nil {
		return Result{}, err
	}
	c.state = next
	if res.Outcome == Completed {
		c.completed = true
	}
	return res, nil
}

// Retreat steps back one step.
func (c *Controller) Retreat() (Result, error) {
	if c.completed {
		return Result{}, ErrCompleted
	}
	next, res := Retreat(c.state)
	c.state = next
	return res, nil
}

// InitialData returns the part of the aggregate owned by step.
func (c *Controller) InitialData(step int) Fields {
	spec, ok := c.def.Step(step)
	if !ok {
		return Fields{}
	}
	return c.state.Data.Pick(spec.Fields)
}
