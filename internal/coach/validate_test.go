package coach

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withAction(kind string, data map[string]any) map[string]any {
	a := map[string]any{"type": kind}
	if data != nil {
		a["data"] = data
	}
	return map[string]any{"message": "ok", "actions": []any{a}}
}

func TestValidateRequiredFields(t *testing.T) {
	cases := []struct {
		name string
		obj  map[string]any
		want []string
	}{
		{"missing message", map[string]any{"actions": []any{}}, []string{`"message"`}},
		{"non-object action", map[string]any{"message": "", "actions": []any{"create_goal"}}, []string{"actions[0]", "object"}},
		{"missing type", map[string]any{"message": "", "actions": []any{map[string]any{"data": map[string]any{}}}}, []string{`"type"`}},
		{"unknown type", withAction("launch_rocket", nil), []string{"launch_rocket", "create_milestone"}},
		{"create_milestone title", withAction("create_milestone", map[string]any{}), []string{"create_milestone", "data.title"}},
		{"create_goal title", withAction("create_goal", map[string]any{"title": "  "}), []string{"create_goal", "data.title"}},
		{"complete_milestone id", withAction("complete_milestone", nil), []string{"data.milestone_id"}},
		{"delete_milestone alternatives", withAction("delete_milestone", map[string]any{}), []string{"data.milestone_id", "data.count"}},
		{"checklist title", withAction("checklist", map[string]any{"items": []any{}}), []string{"data.title"}},
		{"checklist items", withAction("checklist", map[string]any{"title": "Check", "items": []any{}}), []string{"data.items"}},
		{"checklist item keys", withAction("checklist", map[string]any{"title": "Check", "items": []any{
			map[string]any{"id": "done", "type": "boolean"},
		}}), []string{"data.items[0]", "label"}},
		{"checklist item type", withAction("checklist", map[string]any{"title": "Check", "items": []any{
			map[string]any{"id": "done", "label": "Done?", "type": "slider"},
		}}), []string{"boolean, number, text"}},
		{"agreement description", withAction("create_agreement", map[string]any{"deadline": "2026-01-01"}), []string{"data.description"}},
		{"agreement deadline", withAction("create_agreement", map[string]any{"description": "Run"}), []string{"data.deadline"}},
		{"set_deadline target", withAction("set_deadline", map[string]any{"deadline": "2026-01-01"}), []string{"data.milestone_id", "data.milestone_title"}},
		{"set_deadline deadline", withAction("set_deadline", map[string]any{"milestone_title": "Base"}), []string{"data.deadline"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.obj)
			require.Error(t, err)
			for _, w := range tc.want {
				assert.Contains(t, err.Error(), w)
			}
		})
	}
}

func TestValidateAcceptsCompleteActionsWithExtras(t *testing.T) {
	obj := map[string]any{
		"message": "ok",
		"actions": []any{
			map[string]any{"type": "create_milestone", "data": map[string]any{"title": "A", "mood": "great"}},
			map[string]any{"type": "complete_milestone", "data": map[string]any{"milestone_id": nil}},
			map[string]any{"type": "delete_milestone", "data": map[string]any{"count": 2}},
			map[string]any{"type": "update_goal"},
			map[string]any{"type": "suggestions", "data": map[string]any{"items": []any{"yes"}}},
			map[string]any{"type": "create_task", "data": map[string]any{"title": "t"}},
			map[string]any{"type": "checklist", "data": map[string]any{"title": "Check", "items": []any{
				map[string]any{"id": "pct", "label": "How much?", "type": "number", "unit": "%"},
			}}},
			map[string]any{"type": "create_agreement", "data": map[string]any{"description": "Run", "deadline": "2026-01-01", "extra": 1}},
			map[string]any{"type": "set_deadline", "data": map[string]any{"milestone_title": "A", "deadline": "2026-02-01"}},
			map[string]any{"type": "create_goal", "data": map[string]any{"title": "G"}},
		},
	}
	assert.NoError(t, Validate(obj))
}

func TestValidateNamesIndexAndKind(t *testing.T) {
	obj := map[string]any{
		"message": "ok",
		"actions": []any{
			map[string]any{"type": "suggestions"},
			map[string]any{"type": "create_agreement", "data": map[string]any{"description": "Run"}},
		},
	}
	err := Validate(obj)
	require.Error(t, err)
	assert.Equal(t, "actions[1] (create_agreement): data.deadline is required", err.Error())
}

func TestValidateStopsAtFirstFailure(t *testing.T) {
	obj := map[string]any{
		"message": "ok",
		"actions": []any{
			map[string]any{"type": "create_goal"},
			map[string]any{"type": "nonsense"},
		},
	}
	err := Validate(obj)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "actions[0]")
}
