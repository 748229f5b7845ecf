package store

import (
	"context"
	"fmt"

	"goalcoach/internal/models"
)

const goalColumns = `id, user_id, title, description, status, progress, frequency, created_at, updated_at`

func scanGoal(row scanner) (*models.Goal, error) {
	var g models.Goal
	err := row.Scan(&g.ID, &g.UserID, &g.Title, &g.Description, &g.Status, &g.Progress, &g.Frequency, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Store) CreateGoal(ctx context.Context, userID int, title, description, frequency string) (*models.Goal, error) {
	if frequency == "" {
		frequency = "daily"
	}
	now := s.timestamp()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO goals (user_id, title, description, status, progress, frequency, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?, ?)`,
		userID, title, description, models.GoalActive, frequency, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert goal: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetGoal(ctx, int(id))
}

func (s *Store) GetGoal(ctx context.Context, id int) (*models.Goal, error) {
	g, err := scanGoal(s.db.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return g, nil
}

func (s *Store) ListGoals(ctx context.Context, userID int) ([]models.Goal, error) {
	return s.queryGoals(ctx, `SELECT `+goalColumns+` FROM goals WHERE user_id = ? ORDER BY id DESC`, userID)
}

// ListActiveGoals returns every active goal across all users.
func (s *Store) ListActiveGoals(ctx context.Context) ([]models.Goal, error) {
	return s.queryGoals(ctx, `SELECT `+goalColumns+` FROM goals WHERE status = ? ORDER BY id`, models.GoalActive)
}

func (s *Store) queryGoals(ctx context.Context, query string, args ...any) ([]models.Goal, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	goals := []models.Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}

func (s *Store) UpdateGoal(ctx context.Context, id int, u models.GoalUpdate) (*models.Goal, error) {
	g, err := s.GetGoal(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Title != nil {
		g.Title = *u.Title
	}
	if u.Description != nil {
		g.Description = *u.Description
	}
	if u.Status != nil {
		g.Status = *u.Status
	}
	if u.Progress != nil {
		g.Progress = clampProgress(*u.Progress)
	}
	if u.Frequency != nil {
		g.Frequency = *u.Frequency
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE goals SET title = ?, description = ?, status = ?, progress = ?, frequency = ?, updated_at = ? WHERE id = ?`,
		g.Title, g.Description, g.Status, g.Progress, g.Frequency, s.timestamp(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update goal: %w", err)
	}
	return s.GetGoal(ctx, id)
}

// DeleteGoal removes the goal; milestones, tasks, chats, agreements and
// reports go with it through ON DELETE CASCADE.
func (s *Store) DeleteGoal(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func clampProgress(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
