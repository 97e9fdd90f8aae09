package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextStatus(t *testing.T) {
	allStatuses := []Status{StatusRequested, StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow}
	allActions := []Action{ActionConfirm, ActionCancel, ActionComplete, ActionNoShow}

	legal := map[Status]map[Action]Status{
		StatusRequested: {
			ActionConfirm: StatusConfirmed,
			ActionCancel:  StatusCancelled,
		},
		StatusConfirmed: {
			ActionCancel:   StatusCancelled,
			ActionComplete: StatusCompleted,
			ActionNoShow:   StatusNoShow,
		},
	}

	for _, status := range allStatuses {
		for _, action := range allActions {
			next, ok := NextStatus(status, action)
			want, wantOK := legal[status][action]
			assert.Equal(t, wantOK, ok, "status=%s action=%s", status, action)
			if wantOK {
				assert.Equal(t, want, next, "status=%s action=%s", status, action)
			}
		}
	}
}

func TestStatusActive(t *testing.T) {
	assert.True(t, StatusRequested.Active())
	assert.True(t, StatusConfirmed.Active())
	assert.False(t, StatusCancelled.Active())
	assert.False(t, StatusCompleted.Active())
	assert.False(t, StatusNoShow.Active())
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusRequested.Terminal())
	assert.False(t, StatusConfirmed.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusNoShow.Terminal())
}

func TestParseAction(t *testing.T) {
	for _, valid := range []string{"confirm", "cancel", "complete", "no_show"} {
		act, err := ParseAction(valid)
		require.NoError(t, err)
		assert.Equal(t, Action(valid), act)
	}

	_, err := ParseAction("reopen")
	require.ErrorIs(t, err, ErrValidation)
}

func TestParseTimeSlot(t *testing.T) {
	slot, err := ParseTimeSlot("09:30")
	require.NoError(t, err)
	assert.Equal(t, TimeSlot("09:30"), slot)
	assert.Equal(t, 9*60+30, slot.Minutes())

	for _, bad := range []string{"", "9:30", "09:30:00", "25:00", "09-30", "09:61"} {
		_, err := ParseTimeSlot(bad)
		assert.ErrorIs(t, err, ErrValidation, "input %q", bad)
	}
}
