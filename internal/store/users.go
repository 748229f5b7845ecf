package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"goalcoach/internal/models"
)

var (
	ErrTokenRevoked = errors.New("refresh token revoked")
	ErrTokenExpired = errors.New("refresh token expired")
)

func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (username, password_hash) VALUES (?, ?)", username, passwordHash)
	if err != nil {
		return nil, err
	}
	id, _ := res.LastInsertId()
	return &models.User{ID: int(id), Username: username}, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, COALESCE(email, ''), created_at FROM users WHERE username = ?", username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Email, &u.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Store) GetUser(ctx context.Context, id int) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, COALESCE(email, ''), created_at FROM users WHERE id = ?", id).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Email, &u.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Store) UpdateUserEmail(ctx context.Context, id int, email *string) error {
	var v any
	if email != nil && *email != "" {
		v = *email
	}
	_, err := s.db.ExecContext(ctx, "UPDATE users SET email = ? WHERE id = ?", v, id)
	return err
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// StoreRefreshToken keeps only the token's hash. Storing an identical token
// again refreshes its expiry and un-revokes it.
func (s *Store) StoreRefreshToken(ctx context.Context, userID int, token string, expiresAt time.Time, ttlDays int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token_hash, expires_at, ttl_days) VALUES (?, ?, ?, ?)
		ON CONFLICT(token_hash) DO UPDATE SET expires_at = excluded.expires_at, ttl_days = excluded.ttl_days, revoked = 0`,
		userID, hashToken(token), expiresAt.UTC(), ttlDays)
	return err
}

// ValidateRefreshToken returns the owning user id and ttl of a stored,
// unrevoked, unexpired token.
func (s *Store) ValidateRefreshToken(ctx context.Context, token string) (int, int, error) {
	var (
		userID    int
		ttlDays   int
		expiresAt time.Time
		revoked   sql.NullBool
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT user_id, expires_at, revoked, ttl_days FROM refresh_tokens WHERE token_hash = ?", hashToken(token)).
		Scan(&userID, &expiresAt, &revoked, &ttlDays)
	if err != nil {
		return 0, 0, notFound(err)
	}
	if revoked.Valid && revoked.Bool {
		return 0, 0, ErrTokenRevoked
	}
	if s.now().After(expiresAt) {
		return 0, 0, ErrTokenExpired
	}
	return userID, ttlDays, nil
}

func (s *Store) RevokeRefreshToken(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE refresh_tokens SET revoked = 1 WHERE token_hash = ?", hashToken(token))
	return err
}

func (s *Store) UpsertPushSubscription(ctx context.Context, sub models.PushSubscription) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO push_subscriptions (user_id, endpoint, p256dh, auth)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, endpoint) DO UPDATE SET
		p256dh = excluded.p256dh,
		auth = excluded.auth`,
		sub.UserID, sub.Endpoint, sub.P256dh, sub.Auth)
	return err
}

func (s *Store) DeletePushSubscription(ctx context.Context, userID int, endpoint string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM push_subscriptions WHERE user_id = ? AND endpoint = ?", userID, endpoint)
	return err
}

// DropPushEndpoint removes an endpoint for every user; used when the push
// service reports it gone.
func (s *Store) DropPushEndpoint(ctx context.Context, endpoint string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM push_subscriptions WHERE endpoint = ?", endpoint)
	return err
}

func (s *Store) ListPushSubscriptions(ctx context.Context, userID int) ([]models.PushSubscription, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, endpoint, p256dh, auth FROM push_subscriptions WHERE user_id = ?", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := []models.PushSubscription{}
	for rows.Next() {
		var sub models.PushSubscription
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.Endpoint, &sub.P256dh, &sub.Auth); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
