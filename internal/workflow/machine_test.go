package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    State
		expected bool
	}{
		{StateSelectingCreditMemo, false},
		{StateCheckingDuplicates, false},
		{StateSendingInternalCopy, false},
		{StateDone, true},
		{StateCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.state.IsTerminal())
		})
	}
}

func TestState_IsValid(t *testing.T) {
	assert.True(t, StateRendering.IsValid())
	assert.False(t, State("PRINTING").IsValid())
	assert.False(t, State("").IsValid())
}

func TestInvoiceFlow_HappyPath(t *testing.T) {
	ctx := context.Background()
	m := NewInvoiceFlow()

	for m.State() != StateDone {
		require.NoError(t, m.Fire(ctx, TriggerNext), "from %s", m.State())
	}

	assert.Equal(t, happyPath, m.History())
	assert.True(t, m.State().IsTerminal())
}

func TestInvoiceFlow_DuplicateOverrideDeclined(t *testing.T) {
	ctx := context.Background()
	m := NewInvoiceFlow()

	for m.State() != StateCheckingDuplicates {
		require.NoError(t, m.Fire(ctx, TriggerNext))
	}
	require.NoError(t, m.Fire(ctx, TriggerReselect))
	assert.Equal(t, StateSelectingTasks, m.State())
}

func TestInvoiceFlow_OptionalStepsSkipped(t *testing.T) {
	ctx := context.Background()
	m := NewInvoiceFlow()

	for m.State() != StateRendering {
		require.NoError(t, m.Fire(ctx, TriggerNext))
	}
	require.NoError(t, m.Fire(ctx, TriggerSkip))
	assert.Equal(t, StateRecordingLedger, m.State())

	require.NoError(t, m.Fire(ctx, TriggerSkip))
	assert.Equal(t, StateSendingInternalCopy, m.State())

	require.NoError(t, m.Fire(ctx, TriggerNext))
	assert.Equal(t, StateDone, m.State())
}

func TestInvoiceFlow_CancelFromAnyNonTerminalState(t *testing.T) {
	ctx := context.Background()

	for i, state := range happyPath[:len(happyPath)-1] {
		t.Run(string(state), func(t *testing.T) {
			m := NewInvoiceFlow()
			for j := 0; j < i; j++ {
				require.NoError(t, m.Fire(ctx, TriggerNext))
			}
			require.Equal(t, state, m.State())
			require.NoError(t, m.Cancel(ctx))
			assert.Equal(t, StateCancelled, m.State())
		})
	}
}

func TestInvoiceFlow_TerminalStatesRejectTriggers(t *testing.T) {
	ctx := context.Background()
	m := NewInvoiceFlow()
	require.NoError(t, m.Cancel(ctx))

	err := m.Fire(ctx, TriggerNext)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.NoError(t, m.Cancel(ctx), "cancelling a finished flow is a no-op")
	assert.Equal(t, StateCancelled, m.State())
}

func TestMachine_GuardFailed(t *testing.T) {
	b := NewBuilder()
	b.Configure(StateSelectingCustomer).PermitIf(TriggerNext, StateSelectingTasks, func(context.Context) bool { return false })
	m := b.Build(StateSelectingCustomer)

	err := m.Fire(context.Background(), TriggerNext)
	assert.ErrorIs(t, err, ErrGuardFailed)
	assert.Equal(t, StateSelectingCustomer, m.State())
	assert.False(t, m.CanFire(TriggerSkip))
}
