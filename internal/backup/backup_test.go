package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HerbHall/marketdesk/internal/store"
)

func newDatabase(t *testing.T, path string, ids ...string) {
	t.Helper()
	s, err := store.New(path)
	require.NoError(t, err)
	defer s.Close()
	_, err = s.DB().Exec("CREATE TABLE IF NOT EXISTS docs (id TEXT PRIMARY KEY)")
	require.NoError(t, err)
	for _, id := range ids {
		_, err = s.DB().Exec("INSERT INTO docs (id) VALUES (?)", id)
		require.NoError(t, err)
	}
}

func countDocs(t *testing.T, path string) int {
	t.Helper()
	s, err := store.New(path)
	require.NoError(t, err)
	defer s.Close()
	var n int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM docs").Scan(&n))
	return n
}

func TestBackupRestore(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sandbox.db")
	cfgPath := filepath.Join(dir, "marketdesk.yaml")
	archive := filepath.Join(dir, "backup.tar.gz")

	newDatabase(t, dbPath, "prd-001", "prd-002")
	require.NoError(t, os.WriteFile(cfgPath, []byte("sandbox:\n  addr: :9090\n"), 0o600))

	m, err := Backup(context.Background(), dbPath, cfgPath, archive)
	require.NoError(t, err)
	assert.Equal(t, []string{DatabaseEntry, "marketdesk.yaml"}, m.Entries)

	// Changes after the backup are rolled back by Restore.
	newDatabase(t, dbPath, "prd-003")
	require.Equal(t, 3, countDocs(t, dbPath))

	require.NoError(t, Restore(archive, dbPath))
	assert.Equal(t, 2, countDocs(t, dbPath))
}

func TestBackup_MissingConfigSkipped(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sandbox.db")
	newDatabase(t, dbPath, "a")

	m, err := Backup(context.Background(), dbPath, filepath.Join(dir, "nope.yaml"), filepath.Join(dir, "out.tar.gz"))
	require.NoError(t, err)
	assert.Equal(t, []string{DatabaseEntry}, m.Entries)
}

func TestBackup_MissingDatabase(t *testing.T) {
	dir := t.TempDir()
	_, err := Backup(context.Background(), filepath.Join(dir, "none.db"), "", filepath.Join(dir, "out.tar.gz"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRestore_NoDatabaseEntry(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "empty.tar.gz")
	f, err := os.Create(archive)
	require.NoError(t, err)
	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "other.txt", Mode: 0o600, Size: 2, Typeflag: tar.TypeReg}))
	_, err = tw.Write([]byte("hi"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gw.Close())
	require.NoError(t, f.Close())

	assert.ErrorIs(t, Restore(archive, filepath.Join(dir, "sandbox.db")), ErrNoDatabase)
}

func TestRestore_NotAnArchive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "junk")
	require.NoError(t, os.WriteFile(path, []byte("not gzip"), 0o600))
	assert.Error(t, Restore(path, filepath.Join(dir, "sandbox.db")))
}
