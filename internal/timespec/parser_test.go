package timespec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 10, 29, 15, 0, 0, 0, time.UTC)

func TestParseAt(t *testing.T) {
	tests := []struct {
		spec string
		want time.Time
	}{
		{"1h", now.Add(-time.Hour)},
		{"1h30m", now.Add(-90 * time.Minute)},
		{"0s", now},
		{"2025-10-29T13:00:00Z", time.Date(2025, 10, 29, 13, 0, 0, 0, time.UTC)},
		{"2025-10-29T13:00:00+02:00", time.Date(2025, 10, 29, 11, 0, 0, 0, time.UTC)},
		{"2025-10-29", time.Date(2025, 10, 29, 0, 0, 0, 0, time.UTC)},
		{"2025-10-29 13:05", time.Date(2025, 10, 29, 13, 5, 0, 0, time.UTC)},
		{"2025-10-29T13:05:07", time.Date(2025, 10, 29, 13, 5, 7, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := ParseAt(tt.spec, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want.UnixMilli(), got)
		})
	}
}

func TestParseAt_Invalid(t *testing.T) {
	for _, spec := range []string{"", "yesterday", "-1h", "2025-13-01"} {
		_, err := ParseAt(spec, now)
		assert.Error(t, err, spec)
	}
}

func TestParseRangeAt(t *testing.T) {
	r, err := ParseRangeAt("2h", "1h", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-2*time.Hour).UnixMilli(), r.SinceMs)
	assert.Equal(t, now.Add(-time.Hour).UnixMilli(), r.UntilMs)

	r, err = ParseRangeAt("", "", now)
	require.NoError(t, err)
	assert.Equal(t, Range{}, r)

	r, err = ParseRangeAt("1h", "", now)
	require.NoError(t, err)
	assert.Zero(t, r.UntilMs)

	_, err = ParseRangeAt("1h", "2h", now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--since must be before --until")

	_, err = ParseRangeAt("bogus", "", now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --since")

	_, err = ParseRangeAt("", "bogus", now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --until")
}

func TestParse_UsesWallClock(t *testing.T) {
	before := time.Now().Add(-time.Hour).UnixMilli()
	got, err := Parse("1h")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got, before)
}
