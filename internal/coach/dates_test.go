package coach

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateTimeChain(t *testing.T) {
	moscow := time.FixedZone("MSK", 3*3600)

	cases := []struct {
		in   string
		want time.Time
	}{
		{"2026-05-01T10:00:00Z", time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2026-05-01T10:00:00+02:00", time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)},
		{"2026-05-01T10:00", time.Date(2026, 5, 1, 10, 0, 0, 0, moscow)},
		{"2026-05-01 18:30", time.Date(2026, 5, 1, 18, 30, 0, 0, moscow)},
		{"2026-05-01", time.Date(2026, 5, 1, 0, 0, 0, 0, moscow)},
		{"01.05.2026 07:15", time.Date(2026, 5, 1, 7, 15, 0, 0, moscow)},
		{"01.05.2026", time.Date(2026, 5, 1, 0, 0, 0, 0, moscow)},
	}
	for _, tc := range cases {
		got, ok := ParseDateTime(tc.in, moscow)
		require.True(t, ok, tc.in)
		assert.True(t, tc.want.Equal(got), "%s: got %s want %s", tc.in, got, tc.want)
	}
}

func TestParseDateTimeRejectsUnknownForms(t *testing.T) {
	for _, in := range []string{"", "tomorrow", "5/1/2026", "2026-13-01"} {
		_, ok := ParseDateTime(in, time.UTC)
		assert.False(t, ok, in)
	}
}

func TestParseDateKeepsISODateComponent(t *testing.T) {
	got, ok := ParseDate("2026-05-01T23:30:00+03:00", time.UTC)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), got)

	got, ok = ParseDate("15.06.2026 09:00", time.UTC)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC), got)
}
