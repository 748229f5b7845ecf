package store

import (
	"context"
	"fmt"
	"time"

	"goalcoach/internal/models"
)

const milestoneColumns = `id, goal_id, title, description, target_date, progress, is_completed, created_at, updated_at`

func scanMilestone(row scanner) (*models.Milestone, error) {
	var m models.Milestone
	err := row.Scan(&m.ID, &m.GoalID, &m.Title, &m.Description, &m.TargetDate, &m.Progress, &m.IsCompleted, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) CreateMilestone(ctx context.Context, goalID int, title, description string, targetDate *time.Time) (*models.Milestone, error) {
	now := s.timestamp()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO milestones (goal_id, title, description, target_date, progress, is_completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, 0, ?, ?)`,
		goalID, title, description, dateOnly(targetDate), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert milestone: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetMilestone(ctx, int(id))
}

func (s *Store) GetMilestone(ctx context.Context, id int) (*models.Milestone, error) {
	m, err := scanMilestone(s.db.QueryRowContext(ctx, `SELECT `+milestoneColumns+` FROM milestones WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

// ListMilestones returns the goal's milestones in id order.
func (s *Store) ListMilestones(ctx context.Context, goalID int) ([]models.Milestone, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+milestoneColumns+` FROM milestones WHERE goal_id = ? ORDER BY id`, goalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	milestones := []models.Milestone{}
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, err
		}
		milestones = append(milestones, *m)
	}
	return milestones, rows.Err()
}

func (s *Store) UpdateMilestone(ctx context.Context, id int, u models.MilestoneUpdate) (*models.Milestone, error) {
	m, err := s.GetMilestone(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Title != nil {
		m.Title = *u.Title
	}
	if u.Description != nil {
		m.Description = *u.Description
	}
	if u.TargetDate != nil {
		m.TargetDate = dateOnly(u.TargetDate)
	}
	if u.Progress != nil {
		m.Progress = clampProgress(*u.Progress)
	}
	if u.IsCompleted != nil {
		m.IsCompleted = *u.IsCompleted
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE milestones SET title = ?, description = ?, target_date = ?, progress = ?, is_completed = ?, updated_at = ? WHERE id = ?`,
		m.Title, m.Description, m.TargetDate, m.Progress, m.IsCompleted, s.timestamp(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update milestone: %w", err)
	}
	return s.GetMilestone(ctx, id)
}

func (s *Store) DeleteMilestone(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM milestones WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}
