package dropwindow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func utc(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func TestLastReset(t *testing.T) {
	// 2024-10-16 is a Wednesday
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"wednesday before reset rolls back a week", utc(2024, 10, 16, 1, 0), utc(2024, 10, 9, 2, 0)},
		{"wednesday exactly at reset", utc(2024, 10, 16, 2, 0), utc(2024, 10, 16, 2, 0)},
		{"wednesday after reset", utc(2024, 10, 16, 13, 30), utc(2024, 10, 16, 2, 0)},
		{"thursday", utc(2024, 10, 17, 10, 0), utc(2024, 10, 16, 2, 0)},
		{"tuesday late", utc(2024, 10, 22, 23, 59), utc(2024, 10, 16, 2, 0)},
		{"sunday", utc(2024, 10, 20, 0, 0), utc(2024, 10, 16, 2, 0)},
		{"crosses month boundary", utc(2024, 11, 1, 8, 0), utc(2024, 10, 30, 2, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LastReset(tt.now))
		})
	}
}

func TestLastReset_NonUTCInput(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	// Wednesday 06:00 local is Wednesday 01:00 UTC
	now := time.Date(2024, 10, 16, 6, 0, 0, 0, loc)
	assert.Equal(t, utc(2024, 10, 9, 2, 0), LastReset(now))
}

func TestLastReset_Properties(t *testing.T) {
	start := utc(2024, 1, 1, 0, 0)
	for i := 0; i < 24*7*6; i++ {
		now := start.Add(time.Duration(i)*time.Hour + 17*time.Minute)
		reset := LastReset(now)

		require.Equal(t, time.Wednesday, reset.Weekday(), now)
		require.Equal(t, 2, reset.Hour(), now)
		require.Zero(t, reset.Minute(), now)
		require.False(t, reset.After(now), now)
		require.True(t, now.Sub(reset) < Week, "no other reset may lie between reset and now: %v", now)
	}
}

func TestNextReset(t *testing.T) {
	now := utc(2024, 10, 17, 10, 0)
	assert.Equal(t, utc(2024, 10, 23, 2, 0), NextReset(now))
	assert.Equal(t, utc(2024, 10, 16, 2, 0), NextReset(utc(2024, 10, 16, 1, 0)))
}

func TestIsAvailable(t *testing.T) {
	now := utc(2024, 10, 17, 10, 0)

	assert.True(t, IsAvailable(now.Add(-10*24*time.Hour), now), "drop 10 days ago is due")
	assert.False(t, IsAvailable(now.Add(-time.Hour), now), "drop 1 hour ago is in the current window")
	assert.False(t, IsAvailable(utc(2024, 10, 16, 2, 0), now), "reset must be strictly after the drop")
}

func TestAvailableSince(t *testing.T) {
	now := utc(2024, 10, 17, 10, 0)

	got := AvailableSince(now.Add(-30*24*time.Hour), now)
	require.NotNil(t, got)
	assert.True(t, *got)

	assert.Nil(t, AvailableSince(now.Add(-time.Hour), now), "unknown rather than false")
}
