package wizard

import (
	"context"
)

// Hooks are the callbacks a Host relays transitions through.
type Hooks struct {
	// OnStepChange runs after every forward and backward transition.
	// fragment is nil when moving back.
	OnStepChange func(step int, fragment *Fragment)
	// OnComplete receives the finalized aggregate, once per session.
	OnComplete func(ctx context.Context, data Fields) error
}

// Host owns a wizard session across open/close cycles.
type Host struct {
	def   Definition
	hooks Hooks
	ctrl  *Controller
	open  bool
}

// NewHost returns a closed host for def.
func NewHost(def Definition, hooks Hooks) *Host {
	return &Host{def: def, hooks: hooks}
}

// Open starts a fresh session if the host is closed. Opening an open host
// keeps the running session.
func (h *Host) Open() {
	if h.open {
		return
	}
	h.ctrl = NewController(h.def)
	h.open = true
}

// Close discards the session without persisting anything.
func (h *Host) Close() {
	h.open = false
	h.ctrl = nil
}

func (h *Host) IsOpen() bool { return h.open }

func (h *Host) Definition() Definition { return h.def }

// Step returns the active step, or 0 when closed.
func (h *Host) Step() int {
	if !h.open {
		return 0
	}
	return h.ctrl.Step()
}

// Data returns a copy of the aggregate collected so far.
func (h *Host) Data() Fields {
	if !h.open {
		return Fields{}
	}
	return h.ctrl.State().Data
}

// InitialData returns the aggregate slice for the active step's form.
func (h *Host) InitialData() Fields {
	if !h.open {
		return Fields{}
	}
	return h.ctrl.InitialData(h.ctrl.Step())
}

// Submit advances the session with fragment. On the terminal transition the
// session is closed and OnComplete receives the aggregate; its error is
// returned as is and the session is not restored.
func (h *Host) Submit(ctx context.Context, fragment Fragment) (Result, error) {
	if !h.open {
		return Result{}, ErrClosed
	}
	res, err := h.ctrl.Advance(fragment)
	if err != nil {
		return Result{}, err
	}

	if res.Outcome == Completed {
		h.Close()
		if h.hooks.OnComplete != nil {
			if err := h.hooks.OnComplete(ctx, res.Data.Clone()); err != nil {
				return res, err
			}
		}
		return res, nil
	}

	if h.hooks.OnStepChange != nil {
		f := Fragment{Step: fragment.Step, Fields: fragment.Fields.Clone()}
		h.hooks.OnStepChange(res.Step, &f)
	}
	return res, nil
}

// Back retreats one step.
func (h *Host) Back() (Result, error) {
	if !h.open {
		return Result{}, ErrClosed
	}
	res, err := h.ctrl.Retreat()
	if err != nil {
		return Result{}, err
	}
	if h.hooks.OnStepChange != nil {
		h.hooks.OnStepChange(res.Step, nil)
	}
	return res, nil
}
