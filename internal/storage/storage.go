// Package storage keeps the bot's local state in SQLite: which backend
// account a Telegram user is linked to and their viewing preferences.
// Everything that actually matters (bookings, availability, discounts)
// lives on the backend.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps sql.DB for the bot.
type DB struct {
	*sql.DB
}

// NewDB opens the database at path and runs migrations.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS user_settings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			telegram_id INTEGER UNIQUE NOT NULL,
			user_id TEXT NOT NULL DEFAULT '',
			auth_token TEXT NOT NULL DEFAULT '',
			tenant_id TEXT NOT NULL DEFAULT '',
			branch_id TEXT NOT NULL DEFAULT '',
			resource_id TEXT NOT NULL DEFAULT '',
			locale TEXT NOT NULL DEFAULT 'es',
			notifications_enabled BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_user_settings_user ON user_settings(user_id)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

// UserSettings is the per-Telegram-account local state.
type UserSettings struct {
	ID                   int64
	TelegramID           int64
	UserID               string
	AuthToken            string
	TenantID             string
	BranchID             string
	ResourceID           string
	Locale               string
	NotificationsEnabled bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// IsLinked reports whether the Telegram account is tied to a backend user.
func (s *UserSettings) IsLinked() bool {
	return s.UserID != "" && s.AuthToken != ""
}

// GetUserSettings returns settings by Telegram ID, or defaults if no row
// exists yet.
func (db *DB) GetUserSettings(ctx context.Context, telegramID int64) (*UserSettings, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, telegram_id, user_id, auth_token, tenant_id, branch_id,
		       resource_id, locale, notifications_enabled, created_at, updated_at
		FROM user_settings
		WHERE telegram_id = ?`, telegramID)

	var s UserSettings
	err := row.Scan(&s.ID, &s.TelegramID, &s.UserID, &s.AuthToken, &s.TenantID,
		&s.BranchID, &s.ResourceID, &s.Locale, &s.NotificationsEnabled,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return &UserSettings{
				TelegramID:           telegramID,
				Locale:               "es",
				NotificationsEnabled: true,
			}, nil
		}
		return nil, err
	}
	return &s, nil
}

// UpsertUserSettings creates or updates the row for a Telegram account.
func (db *DB) UpsertUserSettings(ctx context.Context, s *UserSettings) error {
	now := time.Now()

	_, err := db.ExecContext(ctx, `
		INSERT INTO user_settings (telegram_id, user_id, auth_token, tenant_id,
			branch_id, resource_id, locale, notifications_enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(telegram_id) DO UPDATE SET
			user_id = excluded.user_id,
			auth_token = excluded.auth_token,
			tenant_id = excluded.tenant_id,
			branch_id = excluded.branch_id,
			resource_id = excluded.resource_id,
			locale = excluded.locale,
			notifications_enabled = excluded.notifications_enabled,
			updated_at = excluded.updated_at`,
		s.TelegramID, s.UserID, s.AuthToken, s.TenantID, s.BranchID,
		s.ResourceID, s.Locale, s.NotificationsEnabled, now, now)
	return err
}

// LinkAccount ties a Telegram account to a backend user.
func (db *DB) LinkAccount(ctx context.Context, telegramID int64, userID, token string) error {
	settings, err := db.GetUserSettings(ctx, telegramID)
	if err != nil {
		return err
	}
	settings.UserID = userID
	settings.AuthToken = token
	return db.UpsertUserSettings(ctx, settings)
}

// UnlinkAccount clears the backend identity but keeps preferences.
func (db *DB) UnlinkAccount(ctx context.Context, telegramID int64) error {
	settings, err := db.GetUserSettings(ctx, telegramID)
	if err != nil {
		return err
	}
	settings.UserID = ""
	settings.AuthToken = ""
	return db.UpsertUserSettings(ctx, settings)
}

// SetCurrentView remembers the tenant/branch/resource the user last
// browsed so /start can resume there.
func (db *DB) SetCurrentView(ctx context.Context, telegramID int64, tenantID, branchID, resourceID string) error {
	settings, err := db.GetUserSettings(ctx, telegramID)
	if err != nil {
		return err
	}
	settings.TenantID = tenantID
	settings.BranchID = branchID
	settings.ResourceID = resourceID
	return db.UpsertUserSettings(ctx, settings)
}

// ToggleNotifications flips the notification flag and returns the new
// state.
func (db *DB) ToggleNotifications(ctx context.Context, telegramID int64) (bool, error) {
	settings, err := db.GetUserSettings(ctx, telegramID)
	if err != nil {
		return false, err
	}
	settings.NotificationsEnabled = !settings.NotificationsEnabled
	if err := db.UpsertUserSettings(ctx, settings); err != nil {
		return false, err
	}
	return settings.NotificationsEnabled, nil
}

// LinkedTelegramIDs returns the Telegram IDs linked to a backend user,
// for pushing booking status notifications.
func (db *DB) LinkedTelegramIDs(ctx context.Context, userID string) ([]int64, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT telegram_id FROM user_settings
		WHERE user_id = ? AND notifications_enabled = 1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
