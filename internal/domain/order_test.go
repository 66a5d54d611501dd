package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/errors"
)

func TestNextStatusProgression(t *testing.T) {
	tests := []struct {
		from string
		want string
	}{
		{StatusPending, StatusPreparing},
		{StatusPreparing, StatusReady},
		{StatusReady, StatusDelivered},
	}

	for _, tt := range tests {
		t.Run(tt.from, func(t *testing.T) {
			got, err := NextStatus(tt.from)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextStatusTerminalAndUnknown(t *testing.T) {
	for _, from := range []string{StatusDelivered, StatusCanceled, "algo_raro", ""} {
		t.Run(from, func(t *testing.T) {
			got, err := NextStatus(from)
			require.Error(t, err)
			assert.Empty(t, got)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))
		})
	}
}

func TestNextStatusIsTotalOverNonTerminalStates(t *testing.T) {
	// Every valid non-terminal state must have exactly one next state.
	for _, status := range FulfillmentSequence() {
		if IsTerminal(status) {
			continue
		}
		next, err := NextStatus(status)
		require.NoError(t, err, "state %q has no next state", status)
		assert.True(t, IsValidStatus(next))
	}
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(StatusPending))
	assert.False(t, IsTerminal(StatusPreparing))
	assert.False(t, IsTerminal(StatusReady))
	assert.True(t, IsTerminal(StatusDelivered))
	assert.True(t, IsTerminal(StatusCanceled))
}

func TestCanCancel(t *testing.T) {
	assert.True(t, CanCancel(StatusPending))
	assert.True(t, CanCancel(StatusPreparing))
	assert.True(t, CanCancel(StatusReady))
	assert.False(t, CanCancel(StatusDelivered))
	assert.False(t, CanCancel(StatusCanceled))
	assert.False(t, CanCancel("algo_raro"))
}

func TestActionLabelMatchesTransitionTable(t *testing.T) {
	// A label exists exactly where an advance is possible.
	for _, status := range []string{StatusPending, StatusPreparing, StatusReady, StatusDelivered, StatusCanceled} {
		label := ActionLabel(status)
		_, err := NextStatus(status)
		if err == nil {
			assert.NotEmpty(t, label, "advanceable state %q needs a label", status)
		} else {
			assert.Empty(t, label, "terminal state %q must not offer an action", status)
		}
	}
}

func TestOrderIsActive(t *testing.T) {
	assert.True(t, (&Order{Status: StatusPending}).IsActive())
	assert.True(t, (&Order{Status: StatusReady}).IsActive())
	assert.False(t, (&Order{Status: StatusDelivered}).IsActive())
	assert.False(t, (&Order{Status: StatusCanceled}).IsActive())
}
