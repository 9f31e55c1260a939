package imgfit

import (
	"fmt"
	"image"
	"math"
)

// FitDimensions computes the target dimensions for img under a pixel
// envelope, preserving aspect ratio with a two-pass clamp:
//
//  1. If the longer side exceeds env.Max, scale both sides so the longer
//     side lands exactly on env.Max.
//  2. Re-check the result: if the shorter side now falls below env.Min,
//     scale both sides so the shorter side lands exactly on env.Min.
//
// The min-pass operates on the max-pass output, so an extreme aspect ratio
// with both bounds binding can push the longer side back above env.Max.
// That is documented behavior, not a bug: the clamp order is part of the
// contract.
//
// The envelope must satisfy Validate; FitDimensions is pure arithmetic and
// does not re-check it. FitToDimensions validates before calling here, and
// callers using FitDimensions directly are expected to do the same.
func FitDimensions(w, h int, env DimensionEnvelope) (int, int) {
	fw, fh := float64(w), float64(h)

	if longer := math.Max(fw, fh); longer > float64(env.Max) {
		scale := float64(env.Max) / longer
		fw *= scale
		fh *= scale
	}
	if shorter := math.Min(fw, fh); shorter < float64(env.Min) {
		scale := float64(env.Min) / shorter
		fw *= scale
		fh *= scale
	}

	nw := int(math.Round(fw))
	nh := int(math.Round(fh))
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}

// FitToDimensions resizes img into the pixel envelope and returns a lossless
// render at the clamped dimensions. One-shot: the clamp is O(1) arithmetic
// and there is no iteration or failure path beyond malformed input.
func FitToDimensions(img image.Image, env DimensionEnvelope) (*Outcome, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("imgfit: empty image (%dx%d)", w, h)
	}

	nw, nh := FitDimensions(w, h, env)
	data, err := renderLossless(img, nw, nh)
	if err != nil {
		return nil, err
	}

	return &Outcome{
		Data:   data,
		Status: Satisfied,
		Width:  nw,
		Height: nh,
		SizeKB: sizeOf(data),
	}, nil
}
