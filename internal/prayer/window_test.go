package prayer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_ExactWindow(t *testing.T) {
	for _, event := range []int{5 * 60, 13*60 + 7, 18*60 + 45} {
		assert.Equal(t, WindowExact, Classify(event, event), "at T")
		assert.Equal(t, WindowExact, Classify(event, event+9), "at T+9")
		assert.Equal(t, WindowNone, Classify(event, event+10), "at T+10")
		assert.Equal(t, WindowNone, Classify(event, event-1), "at T-1")
	}
}

func TestClassify_PreWarningWindow(t *testing.T) {
	for _, event := range []int{5 * 60, 13*60 + 7, 18*60 + 45} {
		assert.Equal(t, WindowPreWarning, Classify(event, event-45), "at T-45")
		assert.Equal(t, WindowPreWarning, Classify(event, event-36), "at T-36")
		assert.Equal(t, WindowNone, Classify(event, event-35), "at T-35")
		assert.Equal(t, WindowNone, Classify(event, event-46), "at T-46")
	}
}

func TestClassify_WindowsAreDisjoint(t *testing.T) {
	event := 12 * 60
	exact, pre := 0, 0
	for now := 0; now < 24*60; now++ {
		switch Classify(event, now) {
		case WindowExact:
			exact++
		case WindowPreWarning:
			pre++
		}
	}
	assert.Equal(t, 10, exact)
	assert.Equal(t, 10, pre)
}

func TestClassify_NoWrapAcrossMidnight(t *testing.T) {
	// Prayer at 00:20: its pre-window would start on the previous day.
	assert.Equal(t, WindowNone, Classify(20, 23*60+40))
}

func TestParseClock(t *testing.T) {
	m, err := ParseClock("05:54")
	require.NoError(t, err)
	assert.Equal(t, 5*60+54, m)

	m, err = ParseClock(" 23:59 ")
	require.NoError(t, err)
	assert.Equal(t, 23*60+59, m)

	for _, bad := range []string{"", "5", "24:00", "12:60", "ab:cd", "12:5"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestMinuteOfDay_UsesLocalityZone(t *testing.T) {
	ist, err := time.LoadLocation("Europe/Istanbul")
	require.NoError(t, err)

	now := time.Date(2024, 1, 10, 10, 15, 0, 0, time.UTC)
	assert.Equal(t, 13*60+15, MinuteOfDay(now, ist))
	assert.Equal(t, 10*60+15, MinuteOfDay(now, time.UTC))
}
