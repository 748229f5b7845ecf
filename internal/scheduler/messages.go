package scheduler

import (
	"fmt"
	"strings"
	"time"

	"goalcoach/internal/coach"
	"goalcoach/internal/models"
)

type Category string

const (
	CategoryReminder  Category = "reminder"
	CategoryChecklist Category = "checklist"
	CategoryMissed    Category = "missed"
	CategoryMissedDay Category = "missed_day"
	CategoryMorning   Category = "morning"
)

// minInterval is the shortest gap between two messages of a category in
// one chat.
var minInterval = map[Category]time.Duration{
	CategoryReminder:  0,
	CategoryChecklist: 0,
	CategoryMissed:    0,
	CategoryMissedDay: 180 * time.Minute,
	CategoryMorning:   180 * time.Minute,
}

var titles = map[Category]string{
	CategoryReminder:  "⏰ Deadline tomorrow",
	CategoryChecklist: "📋 Time to check in",
	CategoryMissed:    "😔 Agreement missed",
	CategoryMissedDay: "👀 Where did you go?",
	CategoryMorning:   "☀️ Good morning",
}

func reminderMessage(a models.Agreement, loc *time.Location) string {
	return fmt.Sprintf("⏰ Reminder: you agreed to \"%s\" by %s. How is it going?\n%s",
		a.Description,
		a.Deadline.In(loc).Format("02.01 15:04"),
		coach.SuggestionsMarker([]string{"Already done ✅", "Working on it", "I need help"}),
	)
}

func checklistMessage(a models.Agreement) string {
	data := map[string]any{
		"title":        "Check-in: " + a.Description,
		"agreement_id": a.ID,
		"items": []map[string]any{
			{"id": "completed", "label": "Did you do it?", "type": "boolean"},
			{"id": "progress", "label": "How much of it did you get done?", "type": "number", "unit": "%"},
			{"id": "notes", "label": "What exactly did you do?", "type": "text"},
		},
	}
	return fmt.Sprintf("📋 The deadline for \"%s\" has passed. Tell me how it went.\n%s",
		a.Description, coach.ChecklistMarker(data))
}

func missedMessage(a models.Agreement) string {
	return fmt.Sprintf("😔 No check-in for \"%s\", so I marked it as missed. "+
		"Missing once is fine, missing twice is a habit. What got in the way?", a.Description)
}

func missedDayMessage(g models.Goal, since time.Duration) string {
	days := int(since.Hours() / 24)
	return fmt.Sprintf("👀 It's been %d day(s) since you wrote about \"%s\". "+
		"Goals don't move on their own. What is one small step you can take today?", days, g.Title)
}

func morningMessage(g models.Goal, pending []models.Agreement, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "☀️ Good morning! Today is another step towards \"%s\".", g.Title)
	if len(pending) > 0 {
		b.WriteString("\nOpen agreements:")
		for _, a := range pending {
			fmt.Fprintf(&b, "\n• %s (until %s)", a.Description, a.Deadline.In(loc).Format("02.01 15:04"))
		}
	} else {
		b.WriteString("\nWhat will you do for it today?")
	}
	return b.String()
}
