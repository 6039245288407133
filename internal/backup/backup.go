// Package backup archives the sandbox database as tar.gz and restores it.
package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/HerbHall/marketdesk/internal/store"
)

// DatabaseEntry is the archive name of the database snapshot.
const DatabaseEntry = "sandbox.db"

// ErrNoDatabase is returned when an archive lacks the database entry.
var ErrNoDatabase = errors.New("archive has no " + DatabaseEntry)

// Manifest describes what Backup wrote.
type Manifest struct {
	Path      string
	CreatedAt time.Time
	Entries   []string
}

// Backup writes a consistent copy of the database at dbPath, plus the config
// file when it exists, into a tar.gz at outputPath. The copy is taken with
// VACUUM INTO so a running sandbox keeps serving.
func Backup(ctx context.Context, dbPath, configPath, outputPath string) (*Manifest, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "marketdesk-backup-")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	snapshot := filepath.Join(tmpDir, DatabaseEntry)
	if err := vacuumInto(ctx, dbPath, snapshot); err != nil {
		return nil, fmt.Errorf("snapshot database: %w", err)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	defer func() { _ = out.Close() }()
	gw := gzip.NewWriter(out)
	tw := tar.NewWriter(gw)

	m := &Manifest{Path: outputPath, CreatedAt: time.Now().UTC()}
	if err := addFile(tw, snapshot, DatabaseEntry); err != nil {
		return nil, fmt.Errorf("add database: %w", err)
	}
	m.Entries = append(m.Entries, DatabaseEntry)

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			name := filepath.Base(configPath)
			if err := addFile(tw, configPath, name); err != nil {
				return nil, fmt.Errorf("add config: %w", err)
			}
			m.Entries = append(m.Entries, name)
		}
	}

	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return m, out.Close()
}

// Restore extracts the database entry of archivePath to dbPath, replacing
// it. The sandbox must not be running.
func Restore(archivePath, dbPath string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer func() { _ = gr.Close() }()

	tr := tar.NewReader(gr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return ErrNoDatabase
		}
		if err != nil {
			return fmt.Errorf("read archive: %w", err)
		}
		if hdr.Name != DatabaseEntry || hdr.Typeflag != tar.TypeReg {
			continue
		}
		return writeAtomic(dbPath, tr)
	}
}

func vacuumInto(ctx context.Context, dbPath, dest string) error {
	s, err := store.New(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()
	return s.VacuumInto(ctx, dest)
}

// writeAtomic writes r next to path and renames it into place. Stale WAL
// files of the replaced database are removed.
func writeAtomic(path string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".restore-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(path + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return os.Rename(tmp.Name(), path)
}

func addFile(tw *tar.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = name
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}
