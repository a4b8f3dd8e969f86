package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func madrid(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Skipf("tzdata not available: %v", err)
	}
	return loc
}

func at(loc *time.Location, y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, loc)
}

func TestClassify_FutureDependsOnInitialBalance(t *testing.T) {
	now := at(time.UTC, 2026, time.October, 19, 12, 0)

	for _, hour := range []int{0, 4, 5, 13, 23} {
		n := at(time.UTC, 2026, time.October, 19, hour, 59)
		assert.Equal(t, PartiallyScheduled, Classify(Input{Date: "2026-10-20", EndTime: "14:00"}, n))
		assert.Equal(t, FullyScheduled, Classify(Input{Date: "2026-10-20", EndTime: "14:00", HasInitialBalance: true}, n))
	}

	// flags never matter for future events
	got := Classify(Input{Date: "2027-01-01", EndTime: "20:00", HasCashCount: true, PendingAssignment: true}, now)
	assert.Equal(t, PartiallyScheduled, got)
}

func TestClassify_TodayIsAlwaysInProgress(t *testing.T) {
	for _, hour := range []int{0, 2, 4, 5, 9, 23} {
		now := at(time.UTC, 2026, time.October, 19, hour, 30)
		got := Classify(Input{Date: "2026-10-19", EndTime: "14:00"}, now)
		assert.Equal(t, InProgress, got, "hour %d", hour)
	}

	// before the declared start and with every flag set
	now := at(time.UTC, 2026, time.October, 19, 2, 0)
	got := Classify(Input{Date: "2026-10-19", EndTime: "10:00", HasInitialBalance: true, HasCashCount: true}, now)
	assert.Equal(t, InProgress, got)
}

func TestClassify_YesterdayCutover(t *testing.T) {
	in := Input{Date: "2026-10-18", EndTime: "23:30", HasInitialBalance: true}

	assert.Equal(t, InProgress, Classify(in, at(time.UTC, 2026, time.October, 19, 4, 30)))
	assert.Equal(t, InProgress, Classify(in, at(time.UTC, 2026, time.October, 19, 4, 59)))
	assert.Equal(t, PendingCashCount, Classify(in, at(time.UTC, 2026, time.October, 19, 5, 0)))
	assert.Equal(t, PendingCashCount, Classify(in, at(time.UTC, 2026, time.October, 19, 5, 30)))

	counted := in
	counted.HasCashCount = true
	counted.PendingAssignment = true
	assert.Equal(t, PendingBalanceAssignment, Classify(counted, at(time.UTC, 2026, time.October, 19, 5, 30)))

	counted.PendingAssignment = false
	assert.Equal(t, Closed, Classify(counted, at(time.UTC, 2026, time.October, 19, 5, 30)))
}

func TestClassify_StaleEventsUseFlags(t *testing.T) {
	now := at(time.UTC, 2026, time.October, 19, 12, 0)

	assert.Equal(t, Closed, Classify(Input{Date: "2026-10-10", EndTime: "14:00", HasCashCount: true}, now))
	assert.Equal(t, PendingBalanceAssignment,
		Classify(Input{Date: "2026-10-10", EndTime: "14:00", HasCashCount: true, PendingAssignment: true}, now))
	assert.Equal(t, FullyScheduled, Classify(Input{Date: "2026-10-17", EndTime: "14:00", HasInitialBalance: true}, now))
	assert.Equal(t, PartiallyScheduled, Classify(Input{Date: "2026-10-17", EndTime: "14:00"}, now))
}

func TestClassify_MalformedInputFallsBack(t *testing.T) {
	now := at(time.UTC, 2026, time.October, 19, 12, 0)

	cases := []Input{
		{Date: "19/10/2026", EndTime: "14:00"},
		{Date: "", EndTime: "14:00"},
		{Date: "2026-10-19", EndTime: "2pm"},
		{Date: "2026-13-40", EndTime: "14:00"},
	}
	for _, in := range cases {
		s, err := ClassifyStrict(in, now)
		require.Error(t, err, "%+v", in)
		assert.Equal(t, PartiallyScheduled, s)
		assert.NotPanics(t, func() { Classify(in, now) })

		in.HasInitialBalance = true
		assert.Equal(t, FullyScheduled, Classify(in, now))
	}
}

func TestClassify_UsesNowLocation(t *testing.T) {
	loc := madrid(t)
	// 03:30 UTC is 05:30 in Madrid (CEST): yesterday's market is already over
	now := time.Date(2026, time.July, 11, 3, 30, 0, 0, time.UTC).In(loc)
	got := Classify(Input{Date: "2026-07-10", EndTime: "22:00"}, now)
	assert.Equal(t, PendingCashCount, got)

	// the same instant seen from UTC is still before the cutover
	got = Classify(Input{Date: "2026-07-10", EndTime: "22:00"}, now.UTC())
	assert.Equal(t, InProgress, got)
}

func TestClassify_SecondsInTimeAreAccepted(t *testing.T) {
	now := at(time.UTC, 2026, time.October, 19, 12, 0)
	_, err := ClassifyStrict(Input{Date: "2026-10-19", EndTime: "14:00:00"}, now)
	assert.NoError(t, err)
}

func TestParseClock(t *testing.T) {
	v, err := ParseClock(" 09:05:00 ")
	require.NoError(t, err)
	assert.Equal(t, "09:05", v)

	_, err = ParseClock("25:00")
	assert.Error(t, err)
}
