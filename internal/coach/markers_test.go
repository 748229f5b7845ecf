package coach

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingMarkerRoundTrip(t *testing.T) {
	actions := []any{
		map[string]any{"type": "create_milestone", "data": map[string]any{"title": "Chords --> scales <b>"}},
		map[string]any{"type": "delete_milestone", "data": map[string]any{"count": 2}},
	}
	content := "Let's do it.\n" + PendingMarker(actions)

	assert.Equal(t, 1, strings.Count(content, "-->"))

	got, ok := ParsePendingActions(content)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, KindCreateMilestone, KindOf(got[0]))
	first := got[0].(map[string]any)["data"].(map[string]any)
	assert.Equal(t, "Chords --> scales <b>", first["title"])
}

func TestParsePendingActionsMissing(t *testing.T) {
	_, ok := ParsePendingActions("no markers here")
	assert.False(t, ok)
	_, ok = ParsePendingActions("<!--PENDING_ACTIONS:not json-->")
	assert.False(t, ok)
}

func TestStripMarkers(t *testing.T) {
	content := "Great work!\n" +
		PendingMarker([]any{map[string]any{"type": "update_goal"}}) + "\n" +
		ChecklistMarker(map[string]any{"title": "Check"}) + "\n" +
		SuggestionsMarker([]string{"Yes", "Later"})

	assert.Equal(t, "Great work!", StripMarkers(content))
	assert.Equal(t, "", StripMarkers(SuggestionsMarker([]string{"a"})))
}

func TestDescribe(t *testing.T) {
	cases := map[string]any{
		"• New milestone: Learn chords (by 2026-06-01)": map[string]any{"type": "create_milestone", "data": map[string]any{"title": "Learn chords", "target_date": "2026-06-01"}},
		"• Delete the last 3 milestone(s)":              map[string]any{"type": "delete_milestone", "data": map[string]any{"count": 3}},
		"• Mark milestone #7 as completed":              map[string]any{"type": "complete_milestone", "data": map[string]any{"milestone_id": "7"}},
		"• Agreement: Practice (deadline 2026-05-01)":   map[string]any{"type": "create_agreement", "data": map[string]any{"description": "Practice", "deadline": "2026-05-01"}},
	}
	for want, action := range cases {
		assert.Equal(t, want, Describe(action))
	}
}
