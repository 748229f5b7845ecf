package api

import (
	"database/sql"
	"fmt"
)

// columnExists checks if a column exists on a given table (SQLite PRAGMA table_info)
func columnExists(db *sql.DB, table string, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	var cid int
	var name string
	var ctype string
	var notnull int
	var dflt sql.NullString
	var pk int

	for rows.Next() {
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

func addColumn(db *sql.DB, table, column, decl string) error {
	exists, err := columnExists(db, table, column)
	if err != nil || exists {
		return err
	}
	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl))
	return err
}

// MigrateAddTrackingColumns brings databases created before the scheduler
// tracked check-ins up to the current schema (idempotent).
func MigrateAddTrackingColumns(db *sql.DB) error {
	columns := []struct{ table, column, decl string }{
		{"users", "email", "TEXT"},
		{"goals", "frequency", "TEXT NOT NULL DEFAULT 'daily'"},
		{"tasks", "completed_at", "DATETIME"},
		{"agreements", "chat_id", "INTEGER REFERENCES chats(id) ON DELETE SET NULL"},
		{"agreements", "checklist_sent_at", "DATETIME"},
		{"messages", "actions_confirmed_at", "DATETIME"},
	}
	for _, c := range columns {
		if err := addColumn(db, c.table, c.column, c.decl); err != nil {
			return fmt.Errorf("add %s.%s: %w", c.table, c.column, err)
		}
	}
	return nil
}

// MigrateBackfillChecklistSentAt stamps agreements whose checklist went out
// before checklist_sent_at existed, so the missed rule can age them. It's
// idempotent.
func MigrateBackfillChecklistSentAt(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE agreements SET checklist_sent_at = COALESCE(updated_at, deadline)
		WHERE checklist_sent = 1 AND checklist_sent_at IS NULL`); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE tasks SET completed_at = updated_at
		WHERE is_completed = 1 AND completed_at IS NULL`); err != nil {
		return err
	}

	return tx.Commit()
}
