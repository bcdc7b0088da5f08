package workflow

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when a trigger is not permitted in the current state
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrGuardFailed is returned when every guarded transition for a trigger refused
	ErrGuardFailed = errors.New("guard condition failed")
)

// GuardFunc decides whether a transition may be taken
type GuardFunc func(ctx context.Context) bool

type transition struct {
	to    State
	guard GuardFunc
}

// Builder collects transitions before a Machine is built from them.
type Builder struct {
	transitions map[State]map[Trigger][]transition
}

// StateConfig configures the transitions leaving one state.
type StateConfig struct {
	builder *Builder
	from    State
}

// NewBuilder creates an empty builder
func NewBuilder() *Builder {
	return &Builder{transitions: make(map[State]map[Trigger][]transition)}
}

// Configure returns the configuration for transitions leaving state
func (b *Builder) Configure(state State) *StateConfig {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}
	if _, ok := b.transitions[state]; !ok {
		b.transitions[state] = make(map[Trigger][]transition)
	}
	return &StateConfig{builder: b, from: state}
}

// Permit allows trigger to move to state to
func (c *StateConfig) Permit(trigger Trigger, to State) *StateConfig {
	return c.PermitIf(trigger, to, nil)
}

// PermitIf allows trigger to move to state to when guard passes
func (c *StateConfig) PermitIf(trigger Trigger, to State, guard GuardFunc) *StateConfig {
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", to))
	}
	c.builder.transitions[c.from][trigger] = append(c.builder.transitions[c.from][trigger], transition{to: to, guard: guard})
	return c
}

// Build creates a machine in the initial state. Later changes to the builder
// do not affect machines already built.
func (b *Builder) Build(initial State) *Machine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initial))
	}

	copied := make(map[State]map[Trigger][]transition, len(b.transitions))
	for state, byTrigger := range b.transitions {
		copied[state] = make(map[Trigger][]transition, len(byTrigger))
		for trigger, ts := range byTrigger {
			copied[state][trigger] = append([]transition(nil), ts...)
		}
	}

	return &Machine{
		current:     initial,
		transitions: copied,
		history:     []State{initial},
	}
}

// Machine is a built state machine. It is not safe for concurrent use.
type Machine struct {
	current     State
	transitions map[State]map[Trigger][]transition
	history     []State
}

// State returns the current state
func (m *Machine) State() State {
	return m.current
}

// History returns every state entered so far, starting with the initial one
func (m *Machine) History() []State {
	return append([]State(nil), m.history...)
}

// CanFire reports whether trigger has any transition from the current state
func (m *Machine) CanFire(trigger Trigger) bool {
	return len(m.transitions[m.current][trigger]) > 0
}

// Fire takes the first transition for trigger whose guard passes
func (m *Machine) Fire(ctx context.Context, trigger Trigger) error {
	ts := m.transitions[m.current][trigger]
	if len(ts) == 0 {
		return fmt.Errorf("%w: cannot fire %s from %s", ErrInvalidTransition, trigger, m.current)
	}

	for _, t := range ts {
		if t.guard == nil || t.guard(ctx) {
			m.current = t.to
			m.history = append(m.history, t.to)
			return nil
		}
	}

	return fmt.Errorf("%w: %s from %s", ErrGuardFailed, trigger, m.current)
}

// Cancel moves to StateCancelled unless the flow already finished.
func (m *Machine) Cancel(ctx context.Context) error {
	if m.current.IsTerminal() {
		return nil
	}
	return m.Fire(ctx, TriggerCancel)
}
