package coach

import (
	"fmt"
	"strings"
)

// ValidationError names the first rule a response broke. Index is -1 for
// errors about the response itself.
type ValidationError struct {
	Index int
	Kind  Kind
	Msg   string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Index < 0:
		return e.Msg
	case e.Kind == "":
		return fmt.Sprintf("actions[%d]: %s", e.Index, e.Msg)
	default:
		return fmt.Sprintf("actions[%d] (%s): %s", e.Index, e.Kind, e.Msg)
	}
}

var checklistItemTypes = map[string]bool{"boolean": true, "number": true, "text": true}

// Validate checks a parsed response against the action contract and stops at
// the first violation.
func Validate(obj map[string]any) error {
	msg, ok := obj["message"]
	if !ok || msg == nil {
		return &ValidationError{Index: -1, Msg: `response must have a "message" string field`}
	}
	switch msg.(type) {
	case map[string]any, []any:
		return &ValidationError{Index: -1, Msg: `"message" must be a string`}
	}

	for i, raw := range Normalize(obj).Actions {
		if err := validateAction(i, raw); err != nil {
			return err
		}
	}
	return nil
}

// ValidateActions checks a bare action list, as sent to the confirm endpoint.
func ValidateActions(actions []any) error {
	for i, raw := range actions {
		if err := validateAction(i, raw); err != nil {
			return err
		}
	}
	return nil
}

func validateAction(i int, raw any) error {
	a, ok := raw.(map[string]any)
	if !ok {
		return &ValidationError{Index: i, Msg: "action must be an object"}
	}
	t, present := a["type"]
	if !present || t == nil {
		return &ValidationError{Index: i, Msg: `missing "type" (allowed: ` + kindNames() + ")"}
	}
	kind := KindOf(a)
	if !kind.Valid() {
		return &ValidationError{Index: i, Msg: fmt.Sprintf("unknown type %q (allowed: %s)", str(t), kindNames())}
	}

	d := dataOf(a)
	fail := func(format string, args ...any) error {
		return &ValidationError{Index: i, Kind: kind, Msg: fmt.Sprintf(format, args...)}
	}

	switch kind {
	case KindCreateMilestone, KindCreateGoal:
		if !nonEmpty(d["title"]) {
			return fail("data.title is required")
		}
	case KindCompleteMilestone:
		if _, ok := d["milestone_id"]; !ok {
			return fail("data.milestone_id is required")
		}
	case KindDeleteMilestone:
		_, hasID := d["milestone_id"]
		_, hasCount := d["count"]
		if !hasID && !hasCount {
			return fail("either data.milestone_id or data.count is required")
		}
	case KindChecklist:
		if !nonEmpty(d["title"]) {
			return fail("data.title is required")
		}
		items, ok := d["items"].([]any)
		if !ok || len(items) == 0 {
			return fail("data.items must be a non-empty list")
		}
		for j, it := range items {
			item, ok := it.(map[string]any)
			if !ok {
				return fail("data.items[%d] must be an object", j)
			}
			var missing []string
			for _, key := range []string{"id", "label", "type"} {
				if _, ok := item[key]; !ok {
					missing = append(missing, key)
				}
			}
			if len(missing) > 0 {
				return fail("data.items[%d] is missing %s", j, strings.Join(missing, ", "))
			}
			if typ, _ := item["type"].(string); !checklistItemTypes[typ] {
				return fail("data.items[%d].type must be one of boolean, number, text", j)
			}
		}
	case KindCreateAgreement:
		if !nonEmpty(d["description"]) {
			return fail("data.description is required")
		}
		if !nonEmpty(d["deadline"]) {
			return fail("data.deadline is required")
		}
	case KindSetDeadline:
		_, hasID := d["milestone_id"]
		_, hasTitle := d["milestone_title"]
		if !hasID && !hasTitle {
			return fail("either data.milestone_id or data.milestone_title is required")
		}
		if !nonEmpty(d["deadline"]) {
			return fail("data.deadline is required")
		}
	case KindCreateTask, KindSuggestions, KindUpdateGoal:
	}
	return nil
}

func nonEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(x) != ""
	case bool:
		return x
	default:
		return true
	}
}
