package store

import (
	"context"
	"fmt"

	"goalcoach/internal/models"
)

const taskColumns = `id, goal_id, milestone_id, title, description, due_date, is_completed, priority, completed_at, created_at, updated_at`

func scanTask(row scanner) (*models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.GoalID, &t.MilestoneID, &t.Title, &t.Description, &t.DueDate,
		&t.IsCompleted, &t.Priority, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// NormalizePriority maps anything outside low/medium/high to medium.
func NormalizePriority(p string) string {
	switch p {
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh:
		return p
	}
	return models.PriorityMedium
}

func (s *Store) CreateTask(ctx context.Context, t models.Task) (*models.Task, error) {
	now := s.timestamp()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (goal_id, milestone_id, title, description, due_date, is_completed, priority, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?)`,
		t.GoalID, t.MilestoneID, t.Title, t.Description, utcPtr(t.DueDate), NormalizePriority(t.Priority), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetTask(ctx, int(id))
}

func (s *Store) GetTask(ctx context.Context, id int) (*models.Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

func (s *Store) ListTasks(ctx context.Context, goalID int) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE goal_id = ? ORDER BY id`, goalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// UpdateTask applies u. completed_at is set when is_completed turns true and
// cleared when it turns false.
func (s *Store) UpdateTask(ctx context.Context, id int, u models.TaskUpdate) (*models.Task, error) {
	t, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.timestamp()
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.DueDate != nil {
		t.DueDate = utcPtr(u.DueDate)
	}
	if u.Priority != nil {
		t.Priority = NormalizePriority(*u.Priority)
	}
	if u.MilestoneID != nil {
		t.MilestoneID = u.MilestoneID
	}
	if u.IsCompleted != nil {
		switch {
		case *u.IsCompleted && !t.IsCompleted:
			t.CompletedAt = &now
		case !*u.IsCompleted:
			t.CompletedAt = nil
		}
		t.IsCompleted = *u.IsCompleted
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, description = ?, due_date = ?, priority = ?, milestone_id = ?, is_completed = ?, completed_at = ?, updated_at = ?
		WHERE id = ?`,
		t.Title, t.Description, t.DueDate, t.Priority, t.MilestoneID, t.IsCompleted, t.CompletedAt, now, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.GetTask(ctx, id)
}

func (s *Store) DeleteTask(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}
