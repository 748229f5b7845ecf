package store

import (
	"context"
	"fmt"
	"time"

	"goalcoach/internal/models"
)

const agreementColumns = `id, goal_id, chat_id, description, deadline, status, reminder_sent, checklist_sent,
	checklist_sent_at, completed_at, created_at, updated_at`

func scanAgreement(row scanner) (*models.Agreement, error) {
	var a models.Agreement
	err := row.Scan(&a.ID, &a.GoalID, &a.ChatID, &a.Description, &a.Deadline, &a.Status, &a.ReminderSent,
		&a.ChecklistSent, &a.ChecklistSentAt, &a.CompletedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) CreateAgreement(ctx context.Context, goalID int, chatID *int, description string, deadline time.Time) (*models.Agreement, error) {
	now := s.timestamp()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO agreements (goal_id, chat_id, description, deadline, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		goalID, chatID, description, deadline.UTC(), models.AgreementPending, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert agreement: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetAgreement(ctx, int(id))
}

func (s *Store) GetAgreement(ctx context.Context, id int) (*models.Agreement, error) {
	a, err := scanAgreement(s.db.QueryRowContext(ctx, `SELECT `+agreementColumns+` FROM agreements WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (s *Store) ListAgreements(ctx context.Context, goalID int) ([]models.Agreement, error) {
	return s.queryAgreements(ctx, `SELECT `+agreementColumns+` FROM agreements WHERE goal_id = ? ORDER BY deadline`, goalID)
}

func (s *Store) ListPendingAgreements(ctx context.Context, goalID int) ([]models.Agreement, error) {
	return s.queryAgreements(ctx,
		`SELECT `+agreementColumns+` FROM agreements WHERE goal_id = ? AND status = ? ORDER BY deadline`,
		goalID, models.AgreementPending)
}

// ListAllPendingAgreements is the scheduler's scan; deadline windows are
// evaluated by the caller.
func (s *Store) ListAllPendingAgreements(ctx context.Context) ([]models.Agreement, error) {
	return s.queryAgreements(ctx,
		`SELECT `+agreementColumns+` FROM agreements WHERE status = ? ORDER BY id`, models.AgreementPending)
}

func (s *Store) queryAgreements(ctx context.Context, query string, args ...any) ([]models.Agreement, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	agreements := []models.Agreement{}
	for rows.Next() {
		a, err := scanAgreement(rows)
		if err != nil {
			return nil, err
		}
		agreements = append(agreements, *a)
	}
	return agreements, rows.Err()
}

// MarkReminderSent flips reminder_sent. The flag never goes back to false.
func (s *Store) MarkReminderSent(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE agreements SET reminder_sent = 1, updated_at = ? WHERE id = ? AND reminder_sent = 0`,
		s.timestamp(), id)
	if err != nil {
		return err
	}
	return conflictIfUnchanged(res)
}

// MarkChecklistSent flips checklist_sent and records when it happened.
func (s *Store) MarkChecklistSent(ctx context.Context, id int) error {
	now := s.timestamp()
	res, err := s.db.ExecContext(ctx,
		`UPDATE agreements SET checklist_sent = 1, checklist_sent_at = ?, updated_at = ? WHERE id = ? AND checklist_sent = 0`,
		now, now, id)
	if err != nil {
		return err
	}
	return conflictIfUnchanged(res)
}

// TransitionAgreement moves a pending agreement to status. It is a
// compare-and-set on status = 'pending': if the agreement has already left
// pending, ErrConflict is returned and nothing changes.
func (s *Store) TransitionAgreement(ctx context.Context, id int, status string) (*models.Agreement, error) {
	switch status {
	case models.AgreementCompleted, models.AgreementMissed, models.AgreementCancelled:
	default:
		return nil, fmt.Errorf("invalid agreement status %q", status)
	}

	now := s.timestamp()
	var completedAt *time.Time
	if status == models.AgreementCompleted {
		completedAt = &now
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE agreements SET status = ?, completed_at = ?, updated_at = ? WHERE id = ? AND status = ?`,
		status, completedAt, now, id, models.AgreementPending)
	if err != nil {
		return nil, err
	}
	if err := conflictIfUnchanged(res); err != nil {
		if _, getErr := s.GetAgreement(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, err
	}
	return s.GetAgreement(ctx, id)
}

func conflictIfUnchanged(res interface{ RowsAffected() (int64, error) }) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}
