package media

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
)

// PreviewExtractor derives a single preview frame from a media file.
type PreviewExtractor interface {
	ExtractPreviewFrame(ctx context.Context, mediaPath, dst string) error
}

// FFmpegExtractor shells out to ffmpeg and uses its thumbnail filter to pick
// a representative frame.
type FFmpegExtractor struct {
	seekSeconds int
}

func NewFFmpegExtractor() *FFmpegExtractor {
	// Skip the first second to avoid fade-in frames.
	return &FFmpegExtractor{seekSeconds: 1}
}

func (f *FFmpegExtractor) ExtractPreviewFrame(ctx context.Context, mediaPath, dst string) error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	args := []string{
		"-ss", strconv.Itoa(f.seekSeconds),
		"-i", mediaPath,
		"-vf", "thumbnail",
		"-frames:v", "1",
		"-q:v", "2",
		"-y",
		dst,
	}

	out, err := exec.CommandContext(ctx, "ffmpeg", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, string(out))
	}
	return nil
}
