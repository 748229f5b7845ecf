package coach

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"goalcoach/internal/llm"
	"goalcoach/internal/models"
)

const (
	DefaultMaxRetries   = 2
	DefaultTemperature  = 0.7
	DefaultMaxTokens    = 1500
	DefaultHistoryLimit = 20

	maxFallbackRunes = 1500

	Apology = "Sorry, I couldn't put a reply together just now. Please try again in a moment."
)

type State string

const (
	StateSuccess           State = "success"
	StateExhaustedFallback State = "exhausted_fallback"
	StateApology           State = "apology"
)

// ConversationStore is everything a reply needs from persistence.
type ConversationStore interface {
	ActionStore
	GetChat(ctx context.Context, id int) (*models.Chat, error)
	AppendMessage(ctx context.Context, chatID int, sender, content string) (*models.Message, error)
	ListMessages(ctx context.Context, chatID, limit int) ([]models.Message, error)
	ListPendingAgreements(ctx context.Context, goalID int) ([]models.Agreement, error)
}

// ActivityTracker is told whenever a user writes in a chat.
type ActivityTracker interface {
	Touch(chatID int, at time.Time)
}

type Options struct {
	// MaxRetries is the number of corrective re-prompts after a failed
	// attempt. Zero means DefaultMaxRetries; a negative value disables them.
	MaxRetries   int
	Temperature  float64
	MaxTokens    int
	HistoryLimit int
	Location     *time.Location
	Now          func() time.Time
}

type Orchestrator struct {
	llm     llm.Client
	store   ConversationStore
	exec    *Executor
	tracker ActivityTracker
	opts    Options
}

func NewOrchestrator(client llm.Client, s ConversationStore, tracker ActivityTracker, opts Options) *Orchestrator {
	switch {
	case opts.MaxRetries == 0:
		opts.MaxRetries = DefaultMaxRetries
	case opts.MaxRetries < 0:
		opts.MaxRetries = 0
	}
	if opts.Temperature == 0 {
		opts.Temperature = DefaultTemperature
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.HistoryLimit == 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		llm:     client,
		store:   s,
		exec:    NewExecutor(s, opts.Location),
		tracker: tracker,
		opts:    opts,
	}
}

// Executor exposes the executor so confirmed actions run with the same
// settings.
func (o *Orchestrator) Executor() *Executor { return o.exec }

// Partition splits actions by how they are handled after a reply.
type Partition struct {
	Checklists  []Checklist
	Immediate   []any
	Suggestions []string
	Pending     []any
}

func PartitionActions(actions []any) Partition {
	var p Partition
	for _, raw := range actions {
		switch KindOf(raw) {
		case KindChecklist:
			if a, err := Decode(raw); err == nil {
				p.Checklists = append(p.Checklists, a.(Checklist))
			}
		case KindCreateGoal:
			p.Immediate = append(p.Immediate, raw)
		case KindSuggestions:
			if a, err := Decode(raw); err == nil {
				p.Suggestions = append(p.Suggestions, a.(Suggestions).Items...)
			}
		default:
			p.Pending = append(p.Pending, raw)
		}
	}
	return p
}

// Retarget returns copies of actions with data.goal_id set, so they apply to
// goalID when confirmed instead of the chat's goal.
func Retarget(actions []any, goalID int) []any {
	out := make([]any, 0, len(actions))
	for _, raw := range actions {
		obj, ok := raw.(map[string]any)
		if !ok {
			out = append(out, raw)
			continue
		}
		cp := make(map[string]any, len(obj))
		for k, v := range obj {
			cp[k] = v
		}
		data := make(map[string]any)
		for k, v := range dataOf(obj) {
			data[k] = v
		}
		data["goal_id"] = goalID
		cp["data"] = data
		out = append(out, cp)
	}
	return out
}

type Reply struct {
	UserMessage *models.Message
	AIMessage   *models.Message
	Response    Response
	Results     []string
	Pending     []any
	State       State
	Attempts    int
}

// Respond stores the user's message, asks the model for a reply, carries out
// the immediate actions and stores the AI message. Parse and validation
// problems never surface as errors; only store failures do.
func (o *Orchestrator) Respond(ctx context.Context, chatID, userID int, text string) (*Reply, error) {
	chat, err := o.store.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	goal, err := o.store.GetGoal(ctx, chat.GoalID)
	if err != nil {
		return nil, err
	}

	userMsg, err := o.store.AppendMessage(ctx, chat.ID, models.SenderUser, text)
	if err != nil {
		return nil, fmt.Errorf("save user message: %w", err)
	}
	now := o.opts.Now()
	if o.tracker != nil {
		o.tracker.Touch(chat.ID, now)
	}

	msgs, err := o.prompt(ctx, chat, goal, now)
	if err != nil {
		return nil, err
	}

	gen := o.generate(ctx, msgs)
	reply := &Reply{UserMessage: userMsg, Response: gen.resp, State: gen.state, Attempts: gen.attempts}

	part := PartitionActions(gen.resp.Actions)
	if len(part.Immediate) > 0 {
		out := o.exec.Execute(ctx, part.Immediate, Batch{GoalID: goal.ID, UserID: userID, ChatID: chat.ID})
		reply.Results = out.Results
		if out.GoalID != 0 && out.GoalID != goal.ID {
			part.Pending = Retarget(part.Pending, out.GoalID)
		}
	}
	reply.Pending = part.Pending

	aiMsg, err := o.store.AppendMessage(ctx, chat.ID, models.SenderAI, Compose(gen.resp.Message, reply.Results, part))
	if err != nil {
		return nil, fmt.Errorf("save ai message: %w", err)
	}
	reply.AIMessage = aiMsg
	return reply, nil
}

func (o *Orchestrator) prompt(ctx context.Context, chat *models.Chat, goal *models.Goal, now time.Time) ([]llm.Message, error) {
	milestones, err := o.store.ListMilestones(ctx, goal.ID)
	if err != nil {
		return nil, err
	}
	agreements, err := o.store.ListPendingAgreements(ctx, goal.ID)
	if err != nil {
		return nil, err
	}
	history, err := o.store.ListMessages(ctx, chat.ID, o.opts.HistoryLimit)
	if err != nil {
		return nil, err
	}

	msgs := []llm.Message{{Role: llm.RoleSystem, Content: SystemPrompt(goal, milestones, agreements, now.In(o.opts.Location))}}
	for _, m := range history {
		content := StripMarkers(m.Content)
		if content == "" {
			continue
		}
		role := llm.RoleUser
		if m.Sender == models.SenderAI {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: content})
	}
	return msgs, nil
}

type generation struct {
	resp     Response
	state    State
	attempts int
}

// generate runs the retry loop: attempt, and on a parse or validation
// failure append a correction and try again until the budget is spent.
func (o *Orchestrator) generate(ctx context.Context, msgs []llm.Message) generation {
	var raw, reason string
	var lastMessage string

	for attempt := 0; attempt <= o.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: correction(reason)})
		}
		raw = o.llm.Complete(ctx, msgs, o.opts.Temperature, o.opts.MaxTokens)

		ext, err := Extract(raw)
		if err != nil {
			reason = err.Error()
			log.Printf("[coach] attempt %d: %s", attempt+1, reason)
			continue
		}
		resp := Normalize(ext.Object)
		if err := Validate(ext.Object); err != nil {
			reason = err.Error()
			lastMessage = resp.Message
			log.Printf("[coach] attempt %d: invalid response (%s): %s", attempt+1, ext.Strategy, reason)
			continue
		}
		if ext.Strategy != "direct" {
			log.Printf("[coach] response recovered by %s strategy", ext.Strategy)
		}
		return generation{resp: resp, state: StateSuccess, attempts: attempt + 1}
	}

	attempts := o.opts.MaxRetries + 1
	switch {
	case strings.TrimSpace(lastMessage) != "":
		return generation{resp: Response{Message: lastMessage, Actions: []any{}}, state: StateExhaustedFallback, attempts: attempts}
	case strings.TrimSpace(raw) != "":
		return generation{resp: Response{Message: truncate(stripFences(raw), maxFallbackRunes), Actions: []any{}}, state: StateExhaustedFallback, attempts: attempts}
	default:
		return generation{resp: Response{Message: Apology, Actions: []any{}}, state: StateApology, attempts: attempts}
	}
}

// Compose renders the stored AI message: prose, immediate results, pending
// actions awaiting confirmation and the display markers.
func Compose(message string, results []string, p Partition) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(message))
	if len(results) > 0 {
		b.WriteString("\n\n")
		b.WriteString(strings.Join(results, "\n"))
	}
	if len(p.Pending) > 0 {
		b.WriteString("\n\nProposed changes (confirm to apply):")
		for _, a := range p.Pending {
			b.WriteString("\n")
			b.WriteString(Describe(a))
		}
		b.WriteString("\n")
		b.WriteString(PendingMarker(p.Pending))
	}
	for _, c := range p.Checklists {
		b.WriteString("\n")
		b.WriteString(ChecklistMarker(c.Data))
	}
	if len(p.Suggestions) > 0 {
		b.WriteString("\n")
		b.WriteString(SuggestionsMarker(p.Suggestions))
	}
	return strings.TrimSpace(b.String())
}
