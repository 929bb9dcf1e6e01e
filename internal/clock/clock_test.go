package clock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KeldenPDorji/cyber-chess-arena/internal/session"
)

func TestParse(t *testing.T) {
	tc, err := Parse("5+3")
	require.NoError(t, err)
	assert.Equal(t, 5, tc.BaseMinutes)
	assert.Equal(t, 3, tc.IncrementSeconds)
	assert.Equal(t, 300, tc.TotalSeconds())
	assert.Equal(t, "5+3", tc.String())

	tc, err = Parse("10")
	require.NoError(t, err)
	assert.Equal(t, TimeControl{BaseMinutes: 10}, tc)

	tc, err = Parse("")
	require.NoError(t, err)
	assert.Equal(t, Default(), tc)

	for _, bad := range []string{"0+0", "-5+3", "5+-1", "abc", "5+x"} {
		_, err := Parse(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestTickOnlyWhileRunningAndActive(t *testing.T) {
	cd := NewCountdown(TimeControl{BaseMinutes: 5})

	// Not running yet: the clock does not start before the first move.
	_, _, ticked := cd.Tick(session.White)
	assert.False(t, ticked)
	assert.Equal(t, 300, cd.Remaining(session.White))

	cd.Sync(300, 300, session.White, true)
	rem, timedOut, ticked := cd.Tick(session.White)
	require.True(t, ticked)
	assert.False(t, timedOut)
	assert.Equal(t, 299, rem)

	// The inactive seat never ticks.
	_, _, ticked = cd.Tick(session.Black)
	assert.False(t, ticked)
	assert.Equal(t, 300, cd.Remaining(session.Black))
}

func TestTickFlagsAtZeroAndStops(t *testing.T) {
	cd := NewCountdown(TimeControl{BaseMinutes: 1})
	cd.Sync(1, 60, session.White, true)

	rem, timedOut, ticked := cd.Tick(session.White)
	require.True(t, ticked)
	assert.True(t, timedOut)
	assert.Equal(t, 0, rem)
	assert.False(t, cd.Running())

	// A flagged countdown stays stopped.
	_, timedOut, ticked = cd.Tick(session.White)
	assert.False(t, ticked)
	assert.False(t, timedOut)
	assert.Equal(t, 0, cd.Remaining(session.White))
}

func TestSyncClampsNegatives(t *testing.T) {
	cd := NewCountdown(Default())
	cd.Sync(-3, -1, session.Black, false)
	assert.Equal(t, 0, cd.Remaining(session.White))
	assert.Equal(t, 0, cd.Remaining(session.Black))
	assert.False(t, cd.Running())
}
