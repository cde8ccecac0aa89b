package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestGetUserSettingsDefaults(t *testing.T) {
	db := newTestDB(t)

	s, err := db.GetUserSettings(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), s.TelegramID)
	assert.Equal(t, "es", s.Locale)
	assert.True(t, s.NotificationsEnabled)
	assert.False(t, s.IsLinked())
}

func TestLinkAndUnlinkAccount(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.LinkAccount(ctx, 100, "u-abc", "tok-1"))

	s, err := db.GetUserSettings(ctx, 100)
	require.NoError(t, err)
	assert.True(t, s.IsLinked())
	assert.Equal(t, "u-abc", s.UserID)

	require.NoError(t, db.SetCurrentView(ctx, 100, "t1", "br-1", "court-1"))
	require.NoError(t, db.UnlinkAccount(ctx, 100))

	s, err = db.GetUserSettings(ctx, 100)
	require.NoError(t, err)
	assert.False(t, s.IsLinked())
	assert.Equal(t, "br-1", s.BranchID, "preferences survive unlink")
}

func TestToggleNotifications(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	on, err := db.ToggleNotifications(ctx, 100)
	require.NoError(t, err)
	assert.False(t, on)

	on, err = db.ToggleNotifications(ctx, 100)
	require.NoError(t, err)
	assert.True(t, on)
}

func TestLinkedTelegramIDsRespectsNotificationFlag(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.LinkAccount(ctx, 100, "u-abc", "tok-1"))
	require.NoError(t, db.LinkAccount(ctx, 200, "u-abc", "tok-2"))
	require.NoError(t, db.LinkAccount(ctx, 300, "u-other", "tok-3"))

	_, err := db.ToggleNotifications(ctx, 200) // off
	require.NoError(t, err)

	ids, err := db.LinkedTelegramIDs(ctx, "u-abc")
	require.NoError(t, err)
	assert.Equal(t, []int64{100}, ids)
}
