package coach

import (
	"fmt"
	"strings"
	"time"

	"goalcoach/internal/models"
)

const responseShape = `{"message": "text for the user", "actions": [{"type": "<action type>", "data": {...}}]}`

const actionGuide = `Action types and their data:
- create_goal: {"title", "description"}
- create_milestone: {"title" (max 80 chars), "description", "target_date" (YYYY-MM-DD)}
- create_task: {"title", "description", "due_date" (YYYY-MM-DD HH:MM), "milestone_id", "priority" (low|medium|high)}
- complete_milestone: {"milestone_id"}
- delete_milestone: {"milestone_id"} or {"count"} to delete the most recent ones
- update_goal: any of {"title", "description", "progress" (0-100), "status" (active|completed|archived)}
- create_agreement: {"description", "deadline" (YYYY-MM-DD HH:MM)}
- set_deadline: {"milestone_id" or "milestone_title", "deadline" (YYYY-MM-DD)}
- checklist: {"title", "items": [{"id", "label", "type" (boolean|number|text), "unit"}]}
- suggestions: {"items": ["short reply option", ...]}`

// SystemPrompt describes the coach role, the JSON reply contract and the
// current state of the goal.
func SystemPrompt(goal *models.Goal, milestones []models.Milestone, agreements []models.Agreement, now time.Time) string {
	var b strings.Builder
	b.WriteString("You are a supportive but demanding personal coach helping the user reach their goal. ")
	b.WriteString("Answer in the user's language. Keep messages short and concrete.\n\n")
	b.WriteString("Reply with ONE JSON object on a single line and nothing else, exactly in this shape:\n")
	b.WriteString(responseShape)
	b.WriteString("\nEscape line breaks inside strings as \\n. Never write actions inside the message text.\n")
	b.WriteString("When the user asks for a plan, propose 3-5 milestones as create_milestone actions and add a suggestions action.\n\n")
	b.WriteString(actionGuide)
	fmt.Fprintf(&b, "\n\nNow: %s\n", now.Format("2006-01-02 15:04 (Monday)"))

	if goal != nil {
		fmt.Fprintf(&b, "\nGoal: %s\n", goal.Title)
		if goal.Description != "" {
			fmt.Fprintf(&b, "Description: %s\n", goal.Description)
		}
		fmt.Fprintf(&b, "Progress: %.0f%%, status: %s\n", goal.Progress, goal.Status)
	}

	if len(milestones) == 0 {
		b.WriteString("\nMilestones: none yet.\n")
	} else {
		b.WriteString("\nMilestones:\n")
		for _, m := range milestones {
			state := "open"
			if m.IsCompleted {
				state = "done"
			}
			fmt.Fprintf(&b, "- [id %d] %s (%s", m.ID, m.Title, state)
			if m.TargetDate != nil {
				fmt.Fprintf(&b, ", due %s", m.TargetDate.Format("2006-01-02"))
			}
			b.WriteString(")\n")
		}
	}

	if len(agreements) > 0 {
		b.WriteString("\nPending agreements:\n")
		for _, a := range agreements {
			fmt.Fprintf(&b, "- %s (deadline %s)\n", a.Description, a.Deadline.In(now.Location()).Format("2006-01-02 15:04"))
		}
	}
	return b.String()
}

func correction(reason string) string {
	return "Your previous reply could not be used: " + reason +
		"\nReply again with ONLY one JSON object on a single line, exactly in this shape:\n" + responseShape +
		"\nEscape line breaks inside strings as \\n."
}
