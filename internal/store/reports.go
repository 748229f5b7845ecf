package store

import (
	"context"
	"fmt"
	"time"

	"goalcoach/internal/models"
)

func (s *Store) CreateReport(ctx context.Context, goalID int, content string, reportDate time.Time) (*models.Report, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reports (goal_id, content, report_date, created_at) VALUES (?, ?, ?, ?)`,
		goalID, content, dateOnly(&reportDate), s.timestamp(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert report: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetReport(ctx, int(id))
}

func (s *Store) GetReport(ctx context.Context, id int) (*models.Report, error) {
	var r models.Report
	err := s.db.QueryRowContext(ctx, `SELECT id, goal_id, content, report_date, created_at FROM reports WHERE id = ?`, id).
		Scan(&r.ID, &r.GoalID, &r.Content, &r.ReportDate, &r.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func (s *Store) ListReports(ctx context.Context, goalID int) ([]models.Report, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, goal_id, content, report_date, created_at FROM reports WHERE goal_id = ? ORDER BY report_date DESC, id DESC`, goalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []models.Report{}
	for rows.Next() {
		var r models.Report
		if err := rows.Scan(&r.ID, &r.GoalID, &r.Content, &r.ReportDate, &r.CreatedAt); err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func (s *Store) DeleteReport(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}
