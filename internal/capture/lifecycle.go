// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capture

import "fmt"

// State is the capture session state.
type State string

const (
	StateInitializing State = "INITIALIZING"
	StateRunning      State = "RUNNING"
	StateCompleted    State = "COMPLETED"
	StateError        State = "ERROR"
)

// IsTerminal reports whether s absorbs every further event.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateError
}

// EventKind drives the session state machine.
type EventKind string

const (
	EvStartAcknowledged EventKind = "start_acknowledged"
	EvCameraReady       EventKind = "camera_ready"
	EvStartFailed       EventKind = "start_failed"
	EvCameraFailed      EventKind = "camera_failed"
	EvCompletedReported EventKind = "completed_reported"
	EvStopRequested     EventKind = "stop_requested"
)

// States lists every state in declaration order.
var States = []State{StateInitializing, StateRunning, StateCompleted, StateError}

// Events lists every event kind in declaration order.
var Events = []EventKind{
	EvStartAcknowledged,
	EvCameraReady,
	EvStartFailed,
	EvCameraFailed,
	EvCompletedReported,
	EvStopRequested,
}

const (
	ForbiddenTerminalAbsorbing = "terminal_absorbing"
	ForbiddenOutOfOrder        = "out_of_order"
	ForbiddenAlreadyRunning    = "already_running"
	ForbiddenRequiresRunning   = "requires_running"
)

// Decision is the verdict for one state×event pair.
type Decision struct {
	Allowed bool
	Reason  string
}

func allowed() Decision        { return Decision{Allowed: true} }
func forbid(r string) Decision { return Decision{Allowed: false, Reason: r} }

func absorbing() map[EventKind]Decision {
	m := make(map[EventKind]Decision, len(Events))
	for _, ev := range Events {
		m[ev] = forbid(ForbiddenTerminalAbsorbing)
	}
	return m
}

// decisionTable has an explicit decision for every State×Event combination.
var decisionTable = map[State]map[EventKind]Decision{
	StateInitializing: {
		EvStartAcknowledged: allowed(),
		EvCameraReady:       allowed(),
		EvStartFailed:       allowed(),
		EvCameraFailed:      allowed(),
		EvCompletedReported: forbid(ForbiddenRequiresRunning),
		EvStopRequested:     allowed(),
	},
	StateRunning: {
		EvStartAcknowledged: forbid(ForbiddenAlreadyRunning),
		EvCameraReady:       forbid(ForbiddenAlreadyRunning),
		EvStartFailed:       forbid(ForbiddenOutOfOrder),
		EvCameraFailed:      forbid(ForbiddenOutOfOrder),
		EvCompletedReported: allowed(),
		EvStopRequested:     allowed(),
	},
	StateCompleted: absorbing(),
	StateError:     absorbing(),
}

// Transition is one allowed edge.
type Transition struct {
	From  State
	Event EventKind
	To    State
}

// transitionsTable lists the target of every allowed decision.
// start_acknowledged keeps INITIALIZING: RUNNING also needs the camera.
var transitionsTable = []Transition{
	{From: StateInitializing, Event: EvStartAcknowledged, To: StateInitializing},
	{From: StateInitializing, Event: EvCameraReady, To: StateRunning},
	{From: StateInitializing, Event: EvStartFailed, To: StateError},
	{From: StateInitializing, Event: EvCameraFailed, To: StateError},
	{From: StateInitializing, Event: EvStopRequested, To: StateCompleted},
	{From: StateRunning, Event: EvCompletedReported, To: StateCompleted},
	{From: StateRunning, Event: EvStopRequested, To: StateCompleted},
}

// DecisionFor returns the decision for state×event.
func DecisionFor(s State, ev EventKind) (Decision, bool) {
	row, ok := decisionTable[s]
	if !ok {
		return Decision{}, false
	}
	d, ok := row[ev]
	return d, ok
}

// TransitionFor returns the allowed edge for state×event.
func TransitionFor(s State, ev EventKind) (Transition, bool) {
	for _, tr := range transitionsTable {
		if tr.From == s && tr.Event == ev {
			return tr, true
		}
	}
	return Transition{}, false
}

// TransitionError reports a forbidden event.
type TransitionError struct {
	From   State
	Event  EventKind
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("capture: %s forbidden in %s (%s)", e.Event, e.From, e.Reason)
}

func (e *TransitionError) Unwrap() error { return ErrIllegalTransition }

// Next resolves the state reached by applying ev in s. A forbidden event
// leaves the state unchanged and returns a *TransitionError.
func Next(s State, ev EventKind) (State, error) {
	d, ok := DecisionFor(s, ev)
	if !ok {
		return s, &TransitionError{From: s, Event: ev, Reason: "unknown"}
	}
	if !d.Allowed {
		return s, &TransitionError{From: s, Event: ev, Reason: d.Reason}
	}
	tr, ok := TransitionFor(s, ev)
	if !ok {
		return s, &TransitionError{From: s, Event: ev, Reason: "no_transition"}
	}
	return tr.To, nil
}
