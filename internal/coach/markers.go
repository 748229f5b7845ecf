package coach

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const (
	markerPending     = "PENDING_ACTIONS"
	markerChecklist   = "CHECKLIST"
	markerSuggestions = "SUGGESTIONS"
)

var (
	markerRe  = regexp.MustCompile(`(?s)\s*<!--(?:PENDING_ACTIONS|CHECKLIST|SUGGESTIONS):.*?-->`)
	pendingRe = regexp.MustCompile(`(?s)<!--PENDING_ACTIONS:(.*?)-->`)
)

// marker encodes v as an HTML comment. json.Marshal escapes '>' so the payload
// can never close the comment early.
func marker(name string, v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("<!--%s:%s-->", name, b)
}

func PendingMarker(actions []any) string { return marker(markerPending, actions) }
func ChecklistMarker(data map[string]any) string { return marker(markerChecklist, data) }
func SuggestionsMarker(items []string) string { return marker(markerSuggestions, items) }

// StripMarkers removes every embedded marker, leaving the prose.
func StripMarkers(content string) string {
	return strings.TrimSpace(markerRe.ReplaceAllString(content, ""))
}

// ParsePendingActions returns the actions held in the last pending marker of
// content.
func ParsePendingActions(content string) ([]any, bool) {
	all := pendingRe.FindAllStringSubmatch(content, -1)
	if len(all) == 0 {
		return nil, false
	}
	dec := json.NewDecoder(strings.NewReader(all[len(all)-1][1]))
	dec.UseNumber()
	var actions []any
	if err := dec.Decode(&actions); err != nil {
		return nil, false
	}
	return actions, true
}

// Describe renders one pending action for a human to confirm.
func Describe(raw any) string {
	a, err := Decode(raw)
	if err != nil {
		return "• " + str(raw)
	}
	switch x := a.(type) {
	case CreateMilestone:
		if x.TargetDate != "" {
			return fmt.Sprintf("• New milestone: %s (by %s)", x.Title, x.TargetDate)
		}
		return "• New milestone: " + x.Title
	case CreateTask:
		if x.DueDate != "" {
			return fmt.Sprintf("• New task: %s (due %s)", x.Title, x.DueDate)
		}
		return "• New task: " + x.Title
	case CompleteMilestone:
		return "• Mark milestone " + idLabel(x.MilestoneID) + " as completed"
	case DeleteMilestone:
		if x.MilestoneID != nil {
			return "• Delete milestone " + idLabel(x.MilestoneID)
		}
		if x.Count != nil {
			return fmt.Sprintf("• Delete the last %d milestone(s)", *x.Count)
		}
		return "• Delete milestones"
	case UpdateGoal:
		var parts []string
		if x.Title != nil {
			parts = append(parts, fmt.Sprintf("title → %q", *x.Title))
		}
		if x.Description != nil {
			parts = append(parts, "description")
		}
		if x.Progress != nil {
			parts = append(parts, fmt.Sprintf("progress → %.0f%%", *x.Progress))
		}
		if x.Status != nil {
			parts = append(parts, "status → "+*x.Status)
		}
		if len(parts) == 0 {
			return "• Update goal"
		}
		return "• Update goal: " + strings.Join(parts, ", ")
	case CreateAgreement:
		return fmt.Sprintf("• Agreement: %s (deadline %s)", x.Description, x.Deadline)
	case SetDeadline:
		target := x.MilestoneTitle
		if x.MilestoneID != nil {
			target = idLabel(x.MilestoneID)
		}
		return fmt.Sprintf("• Set deadline for milestone %s: %s", target, x.Deadline)
	case CreateGoal:
		return "• New goal: " + x.Title
	case Checklist:
		return "• Checklist: " + x.Title
	case Suggestions:
		return "• Suggestions: " + strings.Join(x.Items, " / ")
	}
	return "• " + string(a.Kind())
}

func idLabel(id *int) string {
	if id == nil {
		return "?"
	}
	return fmt.Sprintf("#%d", *id)
}
