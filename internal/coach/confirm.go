package coach

import (
	"context"
	"fmt"
	"strings"

	"goalcoach/internal/models"
)

type Confirmation struct {
	Results         []string
	MilestonesCount int
	Message         *models.Message
}

// Confirm executes actions the user approved from a pending list. The list is
// validated again since it comes back from the client.
func (o *Orchestrator) Confirm(ctx context.Context, chatID, userID int, actions []any) (*Confirmation, error) {
	if err := ValidateActions(actions); err != nil {
		return nil, err
	}
	chat, err := o.store.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}

	out := o.exec.Execute(ctx, actions, Batch{GoalID: chat.GoalID, UserID: userID, ChatID: chat.ID})

	ms, err := o.store.ListMilestones(ctx, out.GoalID)
	if err != nil {
		return nil, fmt.Errorf("count milestones: %w", err)
	}

	summary := "Done:\n" + strings.Join(out.Results, "\n")
	if len(out.Results) == 0 {
		summary = "Nothing to apply."
	}
	msg, err := o.store.AppendMessage(ctx, chat.ID, models.SenderAI, summary)
	if err != nil {
		return nil, fmt.Errorf("save confirmation: %w", err)
	}
	return &Confirmation{Results: out.Results, MilestonesCount: len(ms), Message: msg}, nil
}
