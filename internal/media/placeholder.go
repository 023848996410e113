package media

import (
	"crypto/sha256"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// ClipSize maps an aspect-ratio string onto concrete pixel dimensions for
// locally rendered assets.
func ClipSize(aspectRatio string) (int, int) {
	switch aspectRatio {
	case "9:16":
		return 270, 480
	case "1:1":
		return 360, 360
	default: // 16:9 and anything unrecognized
		return 480, 270
	}
}

// WritePlaceholderImage renders a seeded gradient still to path. The same
// seed always yields the same bytes, so placeholder previews stay stable
// across retries.
func WritePlaceholderImage(path, seed string, width, height int) error {
	if width <= 0 || height <= 0 {
		width, height = ClipSize("")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	img := gradientFrame(seed, width, height, 0)
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("save placeholder: %w", err)
	}
	return nil
}

// RenderClip writes a deterministic animated placeholder clip to path. Frames
// are a drifting gradient seeded by seed; duration controls the frame count.
func RenderClip(path, seed, aspectRatio string, durationSeconds int) error {
	width, height := ClipSize(aspectRatio)
	frames := durationSeconds * 4
	if frames < 8 {
		frames = 8
	}
	if frames > 64 {
		frames = 64
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	anim := &gif.GIF{LoopCount: 0}
	for i := 0; i < frames; i++ {
		frame := gradientFrame(seed, width, height, i)
		pal := image.NewPaletted(frame.Bounds(), framePalette(seed))
		for y := frame.Bounds().Min.Y; y < frame.Bounds().Max.Y; y++ {
			for x := frame.Bounds().Min.X; x < frame.Bounds().Max.X; x++ {
				pal.Set(x, y, frame.NRGBAAt(x, y))
			}
		}
		anim.Image = append(anim.Image, pal)
		anim.Delay = append(anim.Delay, 25) // centiseconds per frame
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create clip: %w", err)
	}
	defer f.Close()

	if err := gif.EncodeAll(f, anim); err != nil {
		return fmt.Errorf("encode clip: %w", err)
	}
	return nil
}

// gradientFrame builds one frame of the seeded gradient. phase shifts the
// gradient so consecutive frames drift.
func gradientFrame(seed string, width, height, phase int) *image.NRGBA {
	sum := sha256.Sum256([]byte(seed))
	base := [3]uint8{sum[0], sum[1], sum[2]}
	tint := [3]uint8{sum[3], sum[4], sum[5]}

	img := imaging.New(width, height, color.NRGBA{R: base[0], G: base[1], B: base[2], A: 255})
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			t := (x + y + phase*8) % 256
			img.SetNRGBA(x, y, color.NRGBA{
				R: blend(base[0], tint[0], t),
				G: blend(base[1], tint[1], t),
				B: blend(base[2], tint[2], t),
				A: 255,
			})
		}
	}
	return img
}

func framePalette(seed string) color.Palette {
	sum := sha256.Sum256([]byte(seed))
	base := [3]uint8{sum[0], sum[1], sum[2]}
	tint := [3]uint8{sum[3], sum[4], sum[5]}

	pal := make(color.Palette, 0, 64)
	for i := 0; i < 64; i++ {
		t := i * 4
		pal = append(pal, color.NRGBA{
			R: blend(base[0], tint[0], t),
			G: blend(base[1], tint[1], t),
			B: blend(base[2], tint[2], t),
			A: 255,
		})
	}
	return pal
}

func blend(a, b uint8, t int) uint8 {
	return uint8((int(a)*(255-t) + int(b)*t) / 255)
}
