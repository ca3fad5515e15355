// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capture

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecisionTable_Coverage(t *testing.T) {
	allowedEdges := map[State]map[EventKind]struct{}{}
	for _, tr := range transitionsTable {
		if _, ok := allowedEdges[tr.From]; !ok {
			allowedEdges[tr.From] = map[EventKind]struct{}{}
		}
		if _, exists := allowedEdges[tr.From][tr.Event]; exists {
			t.Fatalf("duplicate transition: %s + %s", tr.From, tr.Event)
		}
		allowedEdges[tr.From][tr.Event] = struct{}{}
	}

	for _, state := range States {
		for _, ev := range Events {
			decision, ok := DecisionFor(state, ev)
			require.True(t, ok, "missing decision for %s + %s", state, ev)
			if _, ok := allowedEdges[state][ev]; ok {
				require.True(t, decision.Allowed, "allowed transition must be marked allowed for %s + %s", state, ev)
				continue
			}
			require.False(t, decision.Allowed, "forbidden transition must be marked forbidden for %s + %s", state, ev)
			require.NotEmpty(t, decision.Reason, "forbidden transition must have reason for %s + %s", state, ev)
		}
	}
}

func TestTerminalStatesAbsorbEverything(t *testing.T) {
	for _, state := range []State{StateCompleted, StateError} {
		require.True(t, state.IsTerminal())
		for _, ev := range Events {
			next, err := Next(state, ev)
			require.Error(t, err)
			assert.Equal(t, state, next)

			var te *TransitionError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, ForbiddenTerminalAbsorbing, te.Reason)
			assert.ErrorIs(t, err, ErrIllegalTransition)
		}
	}
}

func TestNext_Paths(t *testing.T) {
	tests := []struct {
		name   string
		events []EventKind
		want   State
	}{
		{"happy path", []EventKind{EvStartAcknowledged, EvCameraReady}, StateRunning},
		{"completed by backend", []EventKind{EvStartAcknowledged, EvCameraReady, EvCompletedReported}, StateCompleted},
		{"stopped by user", []EventKind{EvStartAcknowledged, EvCameraReady, EvStopRequested}, StateCompleted},
		{"start refused", []EventKind{EvStartFailed}, StateError},
		{"camera denied", []EventKind{EvStartAcknowledged, EvCameraFailed}, StateError},
		{"stop before running", []EventKind{EvStopRequested}, StateCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := StateInitializing
			for _, ev := range tt.events {
				var err error
				s, err = Next(s, ev)
				require.NoError(t, err, "event %s", ev)
			}
			assert.Equal(t, tt.want, s)
		})
	}
}

func TestNext_RunningRejectsStartEvents(t *testing.T) {
	for _, ev := range []EventKind{EvStartAcknowledged, EvCameraReady, EvStartFailed, EvCameraFailed} {
		next, err := Next(StateRunning, ev)
		require.ErrorIs(t, err, ErrIllegalTransition)
		assert.Equal(t, StateRunning, next)
	}
	_, err := Next(StateInitializing, EvCompletedReported)
	require.ErrorIs(t, err, ErrIllegalTransition)
}
