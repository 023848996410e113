// Package media turns resolved generation results into locally addressable
// artifacts: the primary media file plus a derived preview image, laid out
// under one directory per job id.
package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Fetcher is the slice of a provider client the materializer needs.
type Fetcher interface {
	MediaExt() string
	Fetch(ctx context.Context, resultRef, dst string) error
}

// Artifacts are the on-disk outputs for one job.
type Artifacts struct {
	MediaPath   string
	PreviewPath string
}

// Materializer downloads primary media (mandatory) and derives a preview
// frame (best-effort). A preview failure substitutes a generated placeholder
// and never fails the attempt.
type Materializer struct {
	dir       string
	extractor PreviewExtractor
}

func NewMaterializer(dir string, extractor PreviewExtractor) *Materializer {
	return &Materializer{dir: dir, extractor: extractor}
}

// JobDir is the artifact directory for one job. Partitioning by job id keeps
// concurrent jobs from ever colliding on the filesystem.
func (m *Materializer) JobDir(jobID string) string {
	return filepath.Join(m.dir, jobID)
}

// Materialize fetches the result behind resultRef through f and derives a
// preview. The returned paths are deterministic functions of the job id.
func (m *Materializer) Materialize(ctx context.Context, f Fetcher, jobID, resultRef string) (Artifacts, error) {
	jobDir := m.JobDir(jobID)
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return Artifacts{}, fmt.Errorf("prepare artifact dir: %w", err)
	}

	mediaPath := filepath.Join(jobDir, "media"+f.MediaExt())
	if err := f.Fetch(ctx, resultRef, mediaPath); err != nil {
		return Artifacts{}, fmt.Errorf("fetch media: %w", err)
	}

	previewPath := filepath.Join(jobDir, "preview.jpg")
	if err := m.extractor.ExtractPreviewFrame(ctx, mediaPath, previewPath); err != nil {
		slog.Warn("preview extraction failed, substituting placeholder",
			"job_id", jobID, "error", err)
		previewPath = filepath.Join(jobDir, "preview.png")
		w, h := ClipSize("")
		if perr := WritePlaceholderImage(previewPath, jobID, w, h); perr != nil {
			slog.Error("placeholder preview failed", "job_id", jobID, "error", perr)
			previewPath = ""
		}
	}

	return Artifacts{MediaPath: mediaPath, PreviewPath: previewPath}, nil
}

// Remove deletes every artifact for the job. A missing directory is not an
// error; the reaper may race another sweep.
func (m *Materializer) Remove(jobID string) error {
	if jobID == "" {
		return nil
	}
	err := os.RemoveAll(m.JobDir(jobID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove artifacts: %w", err)
	}
	return nil
}
