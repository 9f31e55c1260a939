// Package imgfit resizes images into caller-specified acceptance envelopes.
// Each output satisfies one of two constraints: bounded pixel dimensions or
// bounded encoded file size.
//
//   - Dimension mode computes a single width/height pair from the image's
//     intrinsic size and a [min, max] pixel envelope and renders it
//     losslessly. One-shot, no iteration.
//   - File-size mode runs a bounded iterative search over encode quality and
//     pixel dimensions to bring the encoded byte size into a [min, max]
//     kilobyte envelope, always producing a lossy encode.
//
// The render/encode step is a stateless Renderer collaborator, so tests can
// substitute a mock encoder without any codec work. Batch processing is
// strictly sequential: each image's resize runs to completion before the
// next begins, and per-image failures never abort the batch.
package imgfit

import (
	"context"
	"fmt"
	"image"
	"os"
)

// FitImage resizes an already-decoded image according to opts and returns
// the terminal outcome. The context can cancel a long-running size search.
func FitImage(ctx context.Context, img image.Image, opts Options) (*Outcome, error) {
	if img == nil {
		return nil, fmt.Errorf("imgfit: nil image")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch opts.Mode {
	case FileSizeMode:
		r := opts.Renderer
		if r == nil {
			r = rendererFor(opts.Format)
		}
		return FitToSize(ctx, img, opts.Size, r)
	default:
		return FitToDimensions(img, opts.Dimensions)
	}
}

// FitFile resizes the image at src and writes the encoded result to dst.
// The outcome's Name is set to dst.
func FitFile(ctx context.Context, src, dst string, opts Options) (*Outcome, error) {
	img, err := Open(src)
	if err != nil {
		return nil, err
	}

	outcome, err := FitImage(ctx, img, opts)
	if err != nil {
		return nil, err
	}
	outcome.Name = dst

	if err := os.WriteFile(dst, outcome.Data, 0o644); err != nil {
		return nil, fmt.Errorf("imgfit: write %q: %w", dst, err)
	}
	return outcome, nil
}
