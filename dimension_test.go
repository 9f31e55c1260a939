package imgfit

import (
	"bytes"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitDimensions(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		env          DimensionEnvelope
		wantW, wantH int
	}{
		{"downscale long side to max", 4000, 2000, DimensionEnvelope{Min: 100, Max: 800}, 800, 400},
		{"upscale short side to min", 50, 50, DimensionEnvelope{Min: 100, Max: 800}, 100, 100},
		{"already inside envelope", 640, 480, DimensionEnvelope{Min: 100, Max: 800}, 640, 480},
		{"portrait downscale", 2000, 4000, DimensionEnvelope{Min: 100, Max: 800}, 400, 800},
		{"exactly on max", 800, 400, DimensionEnvelope{Min: 100, Max: 800}, 800, 400},
		{"exactly on min", 100, 100, DimensionEnvelope{Min: 100, Max: 800}, 100, 100},
		{"tiny image floors at min", 3, 7, DimensionEnvelope{Min: 100, Max: 800}, 100, 233},
		{"degenerate 1px input", 1, 1, DimensionEnvelope{Min: 100, Max: 800}, 100, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotW, gotH := FitDimensions(tt.w, tt.h, tt.env)
			assert.Equal(t, tt.wantW, gotW, "width")
			assert.Equal(t, tt.wantH, gotH, "height")
		})
	}
}

// The min-pass runs on the max-pass output, so an extreme aspect ratio with
// both bounds binding re-expands the longer side past max. The clamp order
// is part of the contract; this pins the behavior rather than fixing it.
func TestFitDimensionsMinPassCanExceedMax(t *testing.T) {
	env := DimensionEnvelope{Min: 100, Max: 800}

	// 4000x100: max-pass yields 800x20, min-pass scales x5 back to 4000x100.
	gotW, gotH := FitDimensions(4000, 100, env)
	assert.Equal(t, 4000, gotW)
	assert.Equal(t, 100, gotH)
	assert.Greater(t, gotW, env.Max, "documented overflow: min-pass re-expansion wins")
}

func TestFitDimensionsPreservesAspectRatio(t *testing.T) {
	env := DimensionEnvelope{Min: 100, Max: 800}
	sizes := [][2]int{{4000, 2000}, {1234, 567}, {50, 50}, {801, 799}, {3000, 1999}}

	for _, s := range sizes {
		w, h := FitDimensions(s[0], s[1], env)
		srcRatio := float64(s[0]) / float64(s[1])
		// Allow rounding error of one pixel on either dimension.
		loRatio := float64(w-1) / float64(h+1)
		hiRatio := float64(w+1) / float64(h-1)
		assert.True(t, srcRatio >= loRatio && srcRatio <= hiRatio,
			"aspect ratio drifted for %dx%d -> %dx%d", s[0], s[1], w, h)
	}
}

func TestFitDimensionsIdempotent(t *testing.T) {
	env := DimensionEnvelope{Min: 100, Max: 800}
	sizes := [][2]int{{4000, 2000}, {50, 50}, {640, 480}, {2000, 4000}}

	for _, s := range sizes {
		w1, h1 := FitDimensions(s[0], s[1], env)
		w2, h2 := FitDimensions(w1, h1, env)
		assert.Equal(t, w1, w2, "second pass changed width for %dx%d", s[0], s[1])
		assert.Equal(t, h1, h2, "second pass changed height for %dx%d", s[0], s[1])
	}
}

func TestFitToDimensions(t *testing.T) {
	img := makeGradient(400, 200)

	outcome, err := FitToDimensions(img, DimensionEnvelope{Min: 50, Max: 100})
	require.NoError(t, err)
	assert.Equal(t, Satisfied, outcome.Status)
	assert.Equal(t, 100, outcome.Width)
	assert.Equal(t, 50, outcome.Height)
	assert.Zero(t, outcome.Quality, "lossless output has no quality knob")

	// Output must be a decodable lossless render at the clamped dimensions.
	decoded, format, err := image.Decode(bytes.NewReader(outcome.Data))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 100, decoded.Bounds().Dx())
	assert.Equal(t, 50, decoded.Bounds().Dy())
}

func TestFitToDimensionsRejectsInvalidEnvelope(t *testing.T) {
	img := makeGradient(10, 10)

	for _, env := range []DimensionEnvelope{
		{Min: 0, Max: 800},
		{Min: 100, Max: 0},
		{Min: -5, Max: 800},
		{Min: 900, Max: 800},
	} {
		_, err := FitToDimensions(img, env)
		assert.ErrorIs(t, err, ErrInvalidEnvelope, "envelope %+v", env)
	}
}

func TestFitToDimensionsRejectsEmptyImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 0, 0))
	_, err := FitToDimensions(img, DimensionEnvelope{Min: 100, Max: 800})
	assert.Error(t, err)
}
