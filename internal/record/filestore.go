// Package record mirrors job snapshots to a flat store for external listing.
// The mirror is strictly best-effort: orchestration never depends on it.
package record

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Recorder persists one snapshot per job id, overwriting earlier snapshots.
type Recorder interface {
	Save(ctx context.Context, jobID string, snapshot any) error
	Remove(jobID string) error
}

// FileStore keeps one JSON document per job under dir.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("prepare records dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (fs *FileStore) path(jobID string) string {
	return filepath.Join(fs.dir, jobID+".json")
}

// Save writes the snapshot via a temp file and rename so readers never see a
// partial document.
func (fs *FileStore) Save(ctx context.Context, jobID string, snapshot any) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	tmp, err := os.CreateTemp(fs.dir, jobID+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close record: %w", err)
	}
	if err := os.Rename(tmp.Name(), fs.path(jobID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("publish record: %w", err)
	}
	return nil
}

// Load reads one snapshot back into out. Mostly useful for tests and
// external listing tools.
func (fs *FileStore) Load(jobID string, out any) error {
	data, err := os.ReadFile(fs.path(jobID))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// Remove deletes the job's record; an already-absent record is not an error.
func (fs *FileStore) Remove(jobID string) error {
	err := os.Remove(fs.path(jobID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove record: %w", err)
	}
	return nil
}

var _ Recorder = (*FileStore)(nil)
