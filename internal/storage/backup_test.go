package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupRunCopiesDatabaseFile(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "app.db")
	require.NoError(t, os.WriteFile(dbPath, []byte("payload"), 0644))

	backupDir := filepath.Join(dir, "backups")
	svc := NewBackupService(dbPath, backupDir, 7, time.Hour, zerolog.Nop())
	require.NoError(t, svc.Run())

	entries, err := os.ReadDir(backupDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	copied, err := os.ReadFile(filepath.Join(backupDir, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(copied))
}

func TestBackupPruneRemovesExpiredCopies(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "app.db")
	require.NoError(t, os.WriteFile(dbPath, []byte("x"), 0644))

	backupDir := filepath.Join(dir, "backups")
	svc := NewBackupService(dbPath, backupDir, 7, time.Hour, zerolog.Nop())
	require.NoError(t, svc.Run())

	entries, err := os.ReadDir(backupDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	old := filepath.Join(backupDir, entries[0].Name())
	past := time.Now().AddDate(0, 0, -10)
	require.NoError(t, os.Chtimes(old, past, past))

	svc.prune()

	entries, err = os.ReadDir(backupDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
