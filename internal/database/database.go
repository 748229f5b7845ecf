package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

func Initialize(dbPath string) (*sql.DB, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	// The PRAGMA below only reaches one pooled connection; the DSN flag
	// enables foreign keys on every connection the pool opens.
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn += "?_foreign_keys=on&_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	// Every pooled connection to ":memory:" would be a separate empty database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// If an encryption key is provided via environment, apply it
	// immediately after opening. This enables use with SQLCipher
	// (requires the image/build to be linked against SQLCipher).
	if key := os.Getenv("DB_ENCRYPTION_KEY"); key != "" {
		esc := strings.ReplaceAll(key, "'", "''")
		if _, err := db.Exec(fmt.Sprintf("PRAGMA key = '%s';", esc)); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set database encryption key: %w", err)
		}
		_, _ = db.Exec("PRAGMA cipher_compatibility = 4;")
		var count int
		row := db.QueryRow("SELECT count(*) FROM sqlite_master;")
		if err := row.Scan(&count); err != nil {
			db.Close()
			return nil, fmt.Errorf("database inaccessible with provided encryption key: %w", err)
		}
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		email TEXT,
		password_hash TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS goals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		progress REAL NOT NULL DEFAULT 0,
		frequency TEXT NOT NULL DEFAULT 'daily',
		created_at DATETIME,
		updated_at DATETIME,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS milestones (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		goal_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		target_date DATE,
		progress REAL NOT NULL DEFAULT 0,
		is_completed BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME,
		FOREIGN KEY (goal_id) REFERENCES goals(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		goal_id INTEGER NOT NULL,
		milestone_id INTEGER,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		due_date DATETIME,
		is_completed BOOLEAN NOT NULL DEFAULT 0,
		priority TEXT NOT NULL DEFAULT 'medium',
		completed_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME,
		FOREIGN KEY (goal_id) REFERENCES goals(id) ON DELETE CASCADE,
		FOREIGN KEY (milestone_id) REFERENCES milestones(id) ON DELETE SET NULL
	);

	CREATE TABLE IF NOT EXISTS chats (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		goal_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		created_at DATETIME,
		FOREIGN KEY (goal_id) REFERENCES goals(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_id INTEGER NOT NULL,
		sender TEXT NOT NULL,
		content TEXT NOT NULL,
		actions_confirmed_at DATETIME,
		created_at DATETIME,
		FOREIGN KEY (chat_id) REFERENCES chats(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS agreements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		goal_id INTEGER NOT NULL,
		chat_id INTEGER,
		description TEXT NOT NULL,
		deadline DATETIME NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		reminder_sent BOOLEAN NOT NULL DEFAULT 0,
		checklist_sent BOOLEAN NOT NULL DEFAULT 0,
		checklist_sent_at DATETIME,
		completed_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME,
		FOREIGN KEY (goal_id) REFERENCES goals(id) ON DELETE CASCADE,
		FOREIGN KEY (chat_id) REFERENCES chats(id) ON DELETE SET NULL
	);

	CREATE TABLE IF NOT EXISTS reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		goal_id INTEGER NOT NULL,
		content TEXT NOT NULL,
		report_date DATE NOT NULL,
		created_at DATETIME,
		FOREIGN KEY (goal_id) REFERENCES goals(id) ON DELETE CASCADE
	);

	-- Last proactive message per chat and category, so rate limits survive restarts
	CREATE TABLE IF NOT EXISTS proactive_log (
		chat_id INTEGER NOT NULL,
		category TEXT NOT NULL,
		sent_at DATETIME NOT NULL,
		PRIMARY KEY (chat_id, category),
		FOREIGN KEY (chat_id) REFERENCES chats(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS push_subscriptions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		endpoint TEXT NOT NULL,
		p256dh TEXT NOT NULL,
		auth TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(user_id, endpoint),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	-- Server-side refresh token store for rotating refresh tokens
	CREATE TABLE IF NOT EXISTS refresh_tokens (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		token_hash TEXT NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		ttl_days INTEGER NOT NULL DEFAULT 7,
		revoked BOOLEAN DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_goals_user_id ON goals(user_id);
	CREATE INDEX IF NOT EXISTS idx_milestones_goal_id ON milestones(goal_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_goal_id ON tasks(goal_id);
	CREATE INDEX IF NOT EXISTS idx_chats_goal_id ON chats(goal_id);
	CREATE INDEX IF NOT EXISTS idx_messages_chat_id ON messages(chat_id);
	CREATE INDEX IF NOT EXISTS idx_agreements_status ON agreements(status);
	CREATE INDEX IF NOT EXISTS idx_reports_goal_id ON reports(goal_id);
	CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user_id ON refresh_tokens(user_id);
	`

	_, err := db.Exec(schema)
	return err
}
