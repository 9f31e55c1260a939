package imgfit

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

// LossyFormat selects the quality-tunable codec used by the file-size search.
type LossyFormat int

const (
	// FormatJPEG encodes file-size-mode output as baseline JPEG.
	FormatJPEG LossyFormat = iota
	// FormatWebP encodes file-size-mode output as lossy WebP.
	FormatWebP
)

func (f LossyFormat) String() string {
	switch f {
	case FormatWebP:
		return "WebP"
	default:
		return "JPEG"
	}
}

// Ext returns the output file extension for the format.
func (f LossyFormat) Ext() string {
	switch f {
	case FormatWebP:
		return ".webp"
	default:
		return ".jpg"
	}
}

// Renderer is the render/encode collaborator: it rasterizes img at the given
// dimensions and compresses it to bytes at the given quality. Deterministic
// for fixed inputs. Each call owns its scratch buffer; implementations hold
// no state, so a render surface is never shared between images.
type Renderer interface {
	Render(img image.Image, width, height int, quality float64) ([]byte, error)
}

// rendererFor maps a lossy format to its stock renderer.
func rendererFor(f LossyFormat) Renderer {
	if f == FormatWebP {
		return WebPRenderer{}
	}
	return JPEGRenderer{}
}

// JPEGRenderer renders to baseline JPEG. Quality 0.1–1.0 maps to the codec's
// 1–100 scale.
type JPEGRenderer struct{}

// Render implements Renderer.
func (JPEGRenderer) Render(img image.Image, width, height int, quality float64) ([]byte, error) {
	var buf bytes.Buffer
	err := imaging.Encode(&buf, scaleTo(img, width, height), imaging.JPEG,
		imaging.JPEGQuality(percent(quality)))
	if err != nil {
		return nil, fmt.Errorf("imgfit: JPEG encode: %w", err)
	}
	return buf.Bytes(), nil
}

// WebPRenderer renders to lossy WebP.
type WebPRenderer struct{}

// Render implements Renderer.
func (WebPRenderer) Render(img image.Image, width, height int, quality float64) ([]byte, error) {
	var buf bytes.Buffer
	opts := &webp.Options{Quality: float32(percent(quality))}
	if err := webp.Encode(&buf, scaleTo(img, width, height), opts); err != nil {
		return nil, fmt.Errorf("imgfit: WebP encode: %w", err)
	}
	return buf.Bytes(), nil
}

// scaleTo resizes img for a search render. The search re-renders on every
// iteration, so it uses the cheap bilinear filter; dimension-mode output
// goes through renderLossless with Lanczos instead.
func scaleTo(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}
	if width == b.Dx() && height == b.Dy() {
		return img
	}
	return resize.Resize(uint(width), uint(height), img, resize.Bilinear)
}

// percent converts a 0.1–1.0 quality knob to a 1–100 codec quality.
func percent(quality float64) int {
	q := int(math.Round(quality * 100))
	if q < 1 {
		q = 1
	}
	if q > 100 {
		q = 100
	}
	return q
}

// renderLossless rasterizes img at the given dimensions with Lanczos
// resampling and encodes it as best-compression PNG. Used by dimension mode,
// which has no quality knob.
func renderLossless(img image.Image, width, height int) ([]byte, error) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	out := img
	if b := img.Bounds(); width != b.Dx() || height != b.Dy() {
		out = imaging.Resize(img, width, height, imaging.Lanczos)
	}
	var buf bytes.Buffer
	err := imaging.Encode(&buf, out, imaging.PNG,
		imaging.PNGCompressionLevel(png.BestCompression))
	if err != nil {
		return nil, fmt.Errorf("imgfit: PNG encode: %w", err)
	}
	return buf.Bytes(), nil
}
