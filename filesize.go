package imgfit

import (
	"context"
	"fmt"
	"image"
	"math"
)

// Search tuning. Quality descends first because it degrades perceptual
// fidelity more gracefully per byte saved than shrinking pixel count;
// dimension shrink is the fallback once quality bottoms out. Quality alone
// takes at most 16 steps to reach the floor, so 100 iterations is generous
// headroom even for pathological inputs.
const (
	initialQuality = 0.9
	qualityStep    = 0.05
	qualityFloor   = 0.1
	shrinkFactor   = 0.9
	maxIterations  = 100
)

// FitToSize produces an encoded render of img whose size in KB lies inside
// env, if achievable within the iteration budget, otherwise the closest
// attainable render with an explicit status.
//
// The search is a deterministic monotone descent: each iteration lowers
// quality by a fixed step until the floor, then shrinks both dimensions by a
// fixed factor. Quality and dimensions never increase once decreased, so the
// search cannot oscillate; it terminates by convergence or by the iteration
// cap. The most recent render not exceeding env.MaxKB is tracked as the
// running best candidate.
//
// A nil renderer selects the stock JPEG renderer. The output is always a
// lossy encode regardless of the input's original format: only a lossy codec
// offers the quality knob the search turns.
func FitToSize(ctx context.Context, img image.Image, env ByteEnvelope, r Renderer) (*Outcome, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	if r == nil {
		r = JPEGRenderer{}
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("imgfit: empty image (%dx%d)", w, h)
	}

	spec := RenderSpec{Width: w, Height: h, Quality: initialQuality}
	cur, err := renderMeasured(r, img, spec)
	if err != nil {
		return nil, err
	}

	// The first render can decide the outcome without any iteration.
	if env.contains(cur.SizeKB) {
		return outcomeAt(cur, spec, Satisfied, 0, ""), nil
	}
	if cur.SizeKB < float64(env.MinKB) {
		return outcomeAt(cur, spec, AcceptedBelowMin, 0, ""), nil
	}

	// Over maximum: descend. best holds the most recent render at or under
	// env.MaxKB, together with the spec that produced it.
	var best *EncodedResult
	var bestSpec RenderSpec

	iters := 0
	for i := 0; i < maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// One adjustment per iteration: quality until the floor, then scale.
		if spec.Quality-qualityFloor > 1e-9 {
			spec.Quality = math.Max(spec.Quality-qualityStep, qualityFloor)
		} else {
			spec.Width = shrink(spec.Width)
			spec.Height = shrink(spec.Height)
		}

		cur, err = renderMeasured(r, img, spec)
		if err != nil {
			return nil, err
		}
		iters = i + 1

		if cur.SizeKB <= float64(env.MaxKB) {
			best = cur
			bestSpec = spec
			if cur.SizeKB >= float64(env.MinKB) {
				return outcomeAt(cur, spec, Satisfied, iters, ""), nil
			}
		}
	}

	// Budget exhausted without re-entering the envelope.
	if best != nil {
		msg := fmt.Sprintf("size search exhausted after %d iterations; best attained %s for envelope [%d, %d] KB",
			iters, humanKB(best.SizeKB), env.MinKB, env.MaxKB)
		return outcomeAt(best, bestSpec, BestEffort, iters, msg), nil
	}
	msg := fmt.Sprintf("size search exhausted after %d iterations; last render %s still above %d KB",
		iters, humanKB(cur.SizeKB), env.MaxKB)
	return outcomeAt(cur, spec, BestEffort, iters, msg), nil
}

// renderMeasured invokes the render collaborator and measures the result.
func renderMeasured(r Renderer, img image.Image, spec RenderSpec) (*EncodedResult, error) {
	data, err := r.Render(img, spec.Width, spec.Height, spec.Quality)
	if err != nil {
		return nil, fmt.Errorf("imgfit: render %dx%d q=%.2f: %w", spec.Width, spec.Height, spec.Quality, err)
	}
	return &EncodedResult{Data: data, SizeKB: sizeOf(data)}, nil
}

// shrink applies one dimension-reduction step, floored at 1 pixel.
func shrink(dim int) int {
	d := int(math.Round(float64(dim) * shrinkFactor))
	if d < 1 {
		d = 1
	}
	return d
}

func outcomeAt(res *EncodedResult, spec RenderSpec, status Status, iters int, msg string) *Outcome {
	return &Outcome{
		Data:       res.Data,
		Status:     status,
		Width:      spec.Width,
		Height:     spec.Height,
		Quality:    spec.Quality,
		SizeKB:     res.SizeKB,
		Iterations: iters,
		Message:    msg,
	}
}
