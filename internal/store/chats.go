package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"goalcoach/internal/models"
)

func (s *Store) CreateChat(ctx context.Context, goalID int, title string) (*models.Chat, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO chats (goal_id, title, created_at) VALUES (?, ?, ?)`,
		goalID, title, s.timestamp(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert chat: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetChat(ctx, int(id))
}

func (s *Store) GetChat(ctx context.Context, id int) (*models.Chat, error) {
	var c models.Chat
	err := s.db.QueryRowContext(ctx, `SELECT id, goal_id, title, created_at FROM chats WHERE id = ?`, id).
		Scan(&c.ID, &c.GoalID, &c.Title, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *Store) ListChats(ctx context.Context, goalID int) ([]models.Chat, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, goal_id, title, created_at FROM chats WHERE goal_id = ? ORDER BY id`, goalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chats := []models.Chat{}
	for rows.Next() {
		var c models.Chat
		if err := rows.Scan(&c.ID, &c.GoalID, &c.Title, &c.CreatedAt); err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// PrimaryChat returns the goal's oldest chat, which proactive messages go to.
func (s *Store) PrimaryChat(ctx context.Context, goalID int) (*models.Chat, error) {
	var c models.Chat
	err := s.db.QueryRowContext(ctx,
		`SELECT id, goal_id, title, created_at FROM chats WHERE goal_id = ? ORDER BY id LIMIT 1`, goalID).
		Scan(&c.ID, &c.GoalID, &c.Title, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *Store) DeleteChat(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

// AppendMessage adds a message to the chat. Messages are never edited.
func (s *Store) AppendMessage(ctx context.Context, chatID int, sender, content string) (*models.Message, error) {
	now := s.timestamp()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (chat_id, sender, content, created_at) VALUES (?, ?, ?, ?)`,
		chatID, sender, content, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	id, _ := res.LastInsertId()
	return &models.Message{ID: int(id), ChatID: chatID, Sender: sender, Content: content, CreatedAt: now}, nil
}

func (s *Store) GetMessage(ctx context.Context, id int) (*models.Message, error) {
	var m models.Message
	err := s.db.QueryRowContext(ctx, `SELECT id, chat_id, sender, content, created_at FROM messages WHERE id = ?`, id).
		Scan(&m.ID, &m.ChatID, &m.Sender, &m.Content, &m.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

// ClaimPendingActions marks the actions proposed in a message as confirmed.
// Only the first claim succeeds; later ones get ErrConflict.
func (s *Store) ClaimPendingActions(ctx context.Context, messageID int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE messages SET actions_confirmed_at = ? WHERE id = ? AND actions_confirmed_at IS NULL`,
		s.timestamp(), messageID)
	if err != nil {
		return err
	}
	return conflictIfUnchanged(res)
}

// ListMessages returns the chat's last limit messages in chronological order.
// limit <= 0 returns all of them.
func (s *Store) ListMessages(ctx context.Context, chatID, limit int) ([]models.Message, error) {
	query := `SELECT id, chat_id, sender, content, created_at FROM messages WHERE chat_id = ? ORDER BY id DESC`
	args := []any{chatID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Sender, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// LastMessageAt returns when sender last wrote in the chat, or nil.
func (s *Store) LastMessageAt(ctx context.Context, chatID int, sender string) (*time.Time, error) {
	var at time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at FROM messages WHERE chat_id = ? AND sender = ? ORDER BY id DESC LIMIT 1`, chatID, sender).
		Scan(&at)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &at, nil
}

// LastProactiveAt returns when a proactive message of category was last sent
// to the chat, or nil.
func (s *Store) LastProactiveAt(ctx context.Context, chatID int, category string) (*time.Time, error) {
	var at time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT sent_at FROM proactive_log WHERE chat_id = ? AND category = ?`, chatID, category).Scan(&at)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &at, nil
}

func (s *Store) RecordProactive(ctx context.Context, chatID int, category string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO proactive_log (chat_id, category, sent_at) VALUES (?, ?, ?)
		ON CONFLICT(chat_id, category) DO UPDATE SET sent_at = excluded.sent_at`,
		chatID, category, at.UTC(),
	)
	return err
}
