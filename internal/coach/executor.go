package coach

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"goalcoach/internal/models"
)

const (
	maxGoalTitle       = 200
	maxGoalDescription = 1000
	maxMilestoneTitle  = 80
	maxTaskTitle       = 200

	okMark   = "✅ "
	failMark = "❌ "
	skipMark = "ℹ️ "
)

// ActionStore is the persistence the executor writes through. Each call is
// committed before it returns, so later actions in a batch see earlier ones.
type ActionStore interface {
	CreateGoal(ctx context.Context, userID int, title, description, frequency string) (*models.Goal, error)
	GetGoal(ctx context.Context, id int) (*models.Goal, error)
	UpdateGoal(ctx context.Context, id int, u models.GoalUpdate) (*models.Goal, error)
	CreateMilestone(ctx context.Context, goalID int, title, description string, targetDate *time.Time) (*models.Milestone, error)
	GetMilestone(ctx context.Context, id int) (*models.Milestone, error)
	ListMilestones(ctx context.Context, goalID int) ([]models.Milestone, error)
	UpdateMilestone(ctx context.Context, id int, u models.MilestoneUpdate) (*models.Milestone, error)
	DeleteMilestone(ctx context.Context, id int) error
	CreateTask(ctx context.Context, t models.Task) (*models.Task, error)
	CreateAgreement(ctx context.Context, goalID int, chatID *int, description string, deadline time.Time) (*models.Agreement, error)
}

type Executor struct {
	store ActionStore
	loc   *time.Location
}

// NewExecutor reads dates without an explicit offset in loc (UTC when nil).
func NewExecutor(s ActionStore, loc *time.Location) *Executor {
	if loc == nil {
		loc = time.UTC
	}
	return &Executor{store: s, loc: loc}
}

// Batch identifies what a list of actions applies to. Zero values mean
// unknown.
type Batch struct {
	GoalID int
	UserID int
	ChatID int
}

type Outcome struct {
	Results []string
	// GoalID is the goal the batch ended up targeting, which differs from
	// Batch.GoalID after a create_goal.
	GoalID int
}

// Execute runs actions in order. A failing action adds an error line and the
// batch continues.
func (e *Executor) Execute(ctx context.Context, actions []any, b Batch) Outcome {
	run := &batchRun{Executor: e, batch: b, target: b.GoalID}
	results := make([]string, 0, len(actions))
	for i, raw := range actions {
		results = append(results, run.one(ctx, i, raw))
	}
	return Outcome{Results: results, GoalID: run.target}
}

type batchRun struct {
	*Executor
	batch  Batch
	target int
}

func (r *batchRun) one(ctx context.Context, i int, raw any) (line string) {
	kind := KindOf(raw)
	defer func() {
		if p := recover(); p != nil {
			log.Printf("[coach] panic executing action %d (%s): %v", i, kind, p)
			line = failMark + fmt.Sprintf("%s: internal error", kind)
		}
	}()

	if obj, ok := raw.(map[string]any); ok {
		if id := intPtr(dataOf(obj)["goal_id"]); id != nil && *id != r.target {
			if err := r.switchGoal(ctx, *id); err != nil {
				return failMark + err.Error()
			}
		}
	}

	a, err := Decode(raw)
	if err != nil {
		return failMark + err.Error()
	}
	line, err = r.apply(ctx, a)
	if err != nil {
		log.Printf("[coach] action %d (%s) failed: %v", i, kind, err)
		return failMark + err.Error()
	}
	return line
}

func (r *batchRun) apply(ctx context.Context, a Action) (string, error) {
	switch x := a.(type) {
	case CreateGoal:
		return r.createGoal(ctx, x)
	case CreateMilestone:
		return r.createMilestone(ctx, x)
	case CreateTask:
		return r.createTask(ctx, x)
	case CompleteMilestone:
		return r.completeMilestone(ctx, x)
	case DeleteMilestone:
		return r.deleteMilestone(ctx, x)
	case UpdateGoal:
		return r.updateGoal(ctx, x)
	case CreateAgreement:
		return r.createAgreement(ctx, x)
	case SetDeadline:
		return r.setDeadline(ctx, x)
	case Checklist:
		return skipMark + "Checklist shown: " + x.Title, nil
	case Suggestions:
		return skipMark + "Suggestions shown", nil
	}
	return "", fmt.Errorf("unsupported action %s", a.Kind())
}

func (r *batchRun) createGoal(ctx context.Context, x CreateGoal) (string, error) {
	if r.batch.UserID == 0 {
		return "", errors.New("cannot create goal: user is unknown")
	}
	title := truncate(strings.TrimSpace(x.Title), maxGoalTitle)
	if title == "" {
		return "", errors.New("goal title is empty")
	}
	g, err := r.store.CreateGoal(ctx, r.batch.UserID, title, truncate(x.Description, maxGoalDescription), "")
	if err != nil {
		return "", fmt.Errorf("could not create goal: %w", err)
	}
	r.target = g.ID
	return fmt.Sprintf("%sGoal created: %q", okMark, g.Title), nil
}

// switchGoal moves the batch to another goal of the same user. Later actions
// stay on it.
func (r *batchRun) switchGoal(ctx context.Context, id int) error {
	g, err := r.store.GetGoal(ctx, id)
	if err != nil || r.batch.UserID == 0 || g.UserID != r.batch.UserID {
		return fmt.Errorf("goal #%d not found", id)
	}
	r.target = g.ID
	return nil
}

func (r *batchRun) requireGoal() error {
	if r.target == 0 {
		return errors.New("no goal to attach to")
	}
	return nil
}

func (r *batchRun) createMilestone(ctx context.Context, x CreateMilestone) (string, error) {
	title := truncate(strings.TrimSpace(x.Title), maxMilestoneTitle)
	if title == "" {
		return "", errors.New("milestone title is empty")
	}
	if err := r.requireGoal(); err != nil {
		return "", fmt.Errorf("cannot create milestone %q: %w", title, err)
	}
	var target *time.Time
	if x.TargetDate != "" {
		if d, ok := ParseDate(x.TargetDate, r.loc); ok {
			target = &d
		}
	}
	m, err := r.store.CreateMilestone(ctx, r.target, title, x.Description, target)
	if err != nil {
		return "", fmt.Errorf("could not create milestone %q: %w", title, err)
	}
	return fmt.Sprintf("%sMilestone created: %q", okMark, m.Title), nil
}

func (r *batchRun) createTask(ctx context.Context, x CreateTask) (string, error) {
	title := truncate(strings.TrimSpace(x.Title), maxTaskTitle)
	if title == "" {
		return "", errors.New("task title is empty")
	}
	if err := r.requireGoal(); err != nil {
		return "", fmt.Errorf("cannot create task %q: %w", title, err)
	}
	t := models.Task{GoalID: r.target, Title: title, Description: x.Description, Priority: x.Priority}
	note := ""
	if x.DueDate != "" {
		if due, ok := ParseDateTime(x.DueDate, r.loc); ok {
			t.DueDate = &due
		} else {
			note = fmt.Sprintf(" (due date %q not recognised)", x.DueDate)
		}
	}
	if x.MilestoneID != nil {
		if m, err := r.store.GetMilestone(ctx, *x.MilestoneID); err == nil && m.GoalID == r.target {
			t.MilestoneID = &m.ID
		}
	}
	created, err := r.store.CreateTask(ctx, t)
	if err != nil {
		return "", fmt.Errorf("could not create task %q: %w", title, err)
	}
	return fmt.Sprintf("%sTask created: %q%s", okMark, created.Title, note), nil
}

// ownedMilestone loads a milestone and checks it belongs to the batch's goal,
// or to the batch's user when no goal is known.
func (r *batchRun) ownedMilestone(ctx context.Context, id int) (*models.Milestone, error) {
	m, err := r.store.GetMilestone(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("milestone #%d not found", id)
	}
	switch {
	case r.target != 0:
		if m.GoalID != r.target {
			return nil, fmt.Errorf("milestone #%d not found", id)
		}
	case r.batch.UserID != 0:
		g, err := r.store.GetGoal(ctx, m.GoalID)
		if err != nil || g.UserID != r.batch.UserID {
			return nil, fmt.Errorf("milestone #%d not found", id)
		}
	default:
		return nil, fmt.Errorf("milestone #%d: no goal to check it against", id)
	}
	return m, nil
}

func (r *batchRun) completeMilestone(ctx context.Context, x CompleteMilestone) (string, error) {
	if x.MilestoneID == nil {
		return skipMark + "Skipped completing a milestone: no id given", nil
	}
	m, err := r.ownedMilestone(ctx, *x.MilestoneID)
	if err != nil {
		return "", err
	}
	done := true
	if _, err := r.store.UpdateMilestone(ctx, m.ID, models.MilestoneUpdate{IsCompleted: &done}); err != nil {
		return "", fmt.Errorf("could not complete milestone %q: %w", m.Title, err)
	}
	return fmt.Sprintf("%sMilestone completed: %q", okMark, m.Title), nil
}

func (r *batchRun) deleteMilestone(ctx context.Context, x DeleteMilestone) (string, error) {
	if x.MilestoneID != nil {
		m, err := r.ownedMilestone(ctx, *x.MilestoneID)
		if err != nil {
			return "", err
		}
		if err := r.store.DeleteMilestone(ctx, m.ID); err != nil {
			return "", fmt.Errorf("could not delete milestone %q: %w", m.Title, err)
		}
		return fmt.Sprintf("%sMilestone deleted: %q", okMark, m.Title), nil
	}
	if x.Count == nil || *x.Count <= 0 {
		return "", errors.New("delete_milestone needs a milestone_id or a positive count")
	}
	if err := r.requireGoal(); err != nil {
		return "", fmt.Errorf("cannot delete milestones: %w", err)
	}
	ms, err := r.store.ListMilestones(ctx, r.target)
	if err != nil {
		return "", fmt.Errorf("could not list milestones: %w", err)
	}
	// Highest id first stands in for most recently created.
	sort.Slice(ms, func(i, j int) bool { return ms[i].ID > ms[j].ID })
	deleted := 0
	for _, m := range ms {
		if deleted == *x.Count {
			break
		}
		if err := r.store.DeleteMilestone(ctx, m.ID); err != nil {
			return "", fmt.Errorf("deleted %d milestone(s), then failed: %w", deleted, err)
		}
		deleted++
	}
	return fmt.Sprintf("%sDeleted %d milestone(s)", okMark, deleted), nil
}

var goalStatuses = map[string]bool{
	models.GoalActive:    true,
	models.GoalCompleted: true,
	models.GoalArchived:  true,
}

func (r *batchRun) updateGoal(ctx context.Context, x UpdateGoal) (string, error) {
	if err := r.requireGoal(); err != nil {
		return "", fmt.Errorf("cannot update goal: %w", err)
	}
	var u models.GoalUpdate
	var changed []string
	if x.Title != nil && strings.TrimSpace(*x.Title) != "" {
		t := truncate(strings.TrimSpace(*x.Title), maxGoalTitle)
		u.Title = &t
		changed = append(changed, "title")
	}
	if x.Description != nil {
		d := truncate(*x.Description, maxGoalDescription)
		u.Description = &d
		changed = append(changed, "description")
	}
	if x.Progress != nil {
		u.Progress = x.Progress
		changed = append(changed, "progress")
	}
	if x.Status != nil && goalStatuses[*x.Status] {
		u.Status = x.Status
		changed = append(changed, "status")
	}
	if len(changed) == 0 {
		return skipMark + "Goal unchanged: nothing to update", nil
	}
	if _, err := r.store.UpdateGoal(ctx, r.target, u); err != nil {
		return "", fmt.Errorf("could not update goal: %w", err)
	}
	return okMark + "Goal updated: " + strings.Join(changed, ", "), nil
}

func (r *batchRun) createAgreement(ctx context.Context, x CreateAgreement) (string, error) {
	deadline, ok := ParseDateTime(x.Deadline, r.loc)
	if !ok {
		return "", fmt.Errorf("could not understand the agreement deadline %q", x.Deadline)
	}
	if err := r.requireGoal(); err != nil {
		return "", fmt.Errorf("cannot record agreement: %w", err)
	}
	var chatID *int
	if r.batch.ChatID != 0 {
		id := r.batch.ChatID
		chatID = &id
	}
	a, err := r.store.CreateAgreement(ctx, r.target, chatID, strings.TrimSpace(x.Description), deadline)
	if err != nil {
		return "", fmt.Errorf("could not record agreement: %w", err)
	}
	return fmt.Sprintf("%sAgreement recorded: %s (until %s)", okMark, a.Description, deadline.In(r.loc).Format("02.01.2006 15:04")), nil
}

func (r *batchRun) setDeadline(ctx context.Context, x SetDeadline) (string, error) {
	day, ok := ParseDate(x.Deadline, r.loc)
	if !ok {
		return "", fmt.Errorf("could not understand the deadline %q", x.Deadline)
	}

	var m *models.Milestone
	if x.MilestoneID != nil {
		found, err := r.ownedMilestone(ctx, *x.MilestoneID)
		if err != nil {
			return "", err
		}
		m = found
	} else {
		if err := r.requireGoal(); err != nil {
			return "", fmt.Errorf("cannot set deadline: %w", err)
		}
		ms, err := r.store.ListMilestones(ctx, r.target)
		if err != nil {
			return "", fmt.Errorf("could not list milestones: %w", err)
		}
		needle := strings.ToLower(strings.TrimSpace(x.MilestoneTitle))
		for i := range ms {
			if needle != "" && strings.Contains(strings.ToLower(ms[i].Title), needle) {
				m = &ms[i]
				break
			}
		}
		if m == nil {
			return "", fmt.Errorf("no milestone matching %q", x.MilestoneTitle)
		}
	}

	if _, err := r.store.UpdateMilestone(ctx, m.ID, models.MilestoneUpdate{TargetDate: &day}); err != nil {
		return "", fmt.Errorf("could not set deadline for %q: %w", m.Title, err)
	}
	return fmt.Sprintf("%sDeadline for %q set to %s", okMark, m.Title, day.Format("02.01.2006")), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
