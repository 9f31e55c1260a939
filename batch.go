package imgfit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Job is one input file in a batch run. Dst is optional: when empty, the
// output path is derived from Src and the runner's output directory, with
// the extension the active mode dictates.
type Job struct {
	Src string
	Dst string
}

// Skip records an input that produced no outcome: a file that could not be
// decoded as an image, or whose render failed. Skips are reported, never
// fatal to the batch.
type Skip struct {
	Name   string
	Reason string
}

// RunnerOptions configures a batch run.
type RunnerOptions struct {
	// Options are the per-image resize options shared by every job.
	Options

	// OutDir is where derived output paths are placed. Defaults to the
	// source file's directory.
	OutDir string

	// Logger receives per-file progress and skip reports. Nil means no
	// logging.
	Logger *zap.Logger

	// OnItem, if set, is called after each job completes or is skipped,
	// with the number of finished jobs and the total.
	OnItem func(completed, total int)
}

// Runner sequences per-file resize invocations and collects results.
//
// Execution is strictly sequential: each image is decoded, searched, and
// encoded to completion before the next begins, so no two images' render
// cycles ever interleave and no render state is shared between them.
type Runner struct {
	opts RunnerOptions
	log  *zap.Logger
}

// NewRunner validates the active envelope and returns a runner. An invalid
// envelope refuses the whole batch before any per-image work starts.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	switch opts.Mode {
	case FileSizeMode:
		if err := opts.Size.Validate(); err != nil {
			return nil, err
		}
	default:
		if err := opts.Dimensions.Validate(); err != nil {
			return nil, err
		}
	}

	if opts.OutDir != "" {
		if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
			return nil, fmt.Errorf("imgfit: create output dir %q: %w", opts.OutDir, err)
		}
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("run_id", uuid.NewString()), zap.Stringer("mode", opts.Mode))

	return &Runner{opts: opts, log: log}, nil
}

// Run processes jobs in order and returns one Outcome per accepted input
// plus one Skip per rejected input. Per-image failures are isolated and
// reported; only context cancellation aborts the run.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]Outcome, []Skip, error) {
	outcomes := make([]Outcome, 0, len(jobs))
	var skips []Skip

	r.log.Info("batch started", zap.Int("jobs", len(jobs)))

	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			return outcomes, skips, err
		}

		dst := job.Dst
		if dst == "" {
			dst = r.outputPath(job.Src)
		}

		outcome, err := FitFile(ctx, job.Src, dst, r.opts.Options)
		if err != nil {
			if ctx.Err() != nil {
				return outcomes, skips, ctx.Err()
			}
			skips = append(skips, Skip{Name: job.Src, Reason: err.Error()})
			r.log.Warn("file skipped",
				zap.String("file", job.Src),
				zap.Error(err))
			r.report(i+1, len(jobs))
			continue
		}

		outcomes = append(outcomes, *outcome)
		r.log.Info("file processed",
			zap.String("file", job.Src),
			zap.String("output", outcome.Name),
			zap.Stringer("status", outcome.Status),
			zap.Float64("size_kb", outcome.SizeKB),
			zap.Int("iterations", outcome.Iterations))
		if outcome.Message != "" {
			r.log.Warn("search advisory",
				zap.String("file", job.Src),
				zap.String("advisory", outcome.Message))
		}
		r.report(i+1, len(jobs))
	}

	r.log.Info("batch finished",
		zap.Int("processed", len(outcomes)),
		zap.Int("skipped", len(skips)))
	return outcomes, skips, nil
}

func (r *Runner) report(completed, total int) {
	if r.opts.OnItem != nil {
		r.opts.OnItem(completed, total)
	}
}

// outputSuffix marks files the runner produced. The watcher relies on it to
// recognize outputs that land back in a watched directory.
const outputSuffix = "_fitted"

// outputPath derives a destination path for src. Dimension-mode outputs are
// lossless PNG; file-size-mode outputs always carry the lossy codec's
// extension regardless of the input format. The codec switch is part of the
// observable contract, not an incidental choice.
func (r *Runner) outputPath(src string) string {
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	ext := ".png"
	if r.opts.Mode == FileSizeMode {
		ext = r.opts.Format.Ext()
	}
	dir := r.opts.OutDir
	if dir == "" {
		dir = filepath.Dir(src)
	}
	return filepath.Join(dir, base+outputSuffix+ext)
}

// isFittedOutput reports whether path was named by outputPath.
func isFittedOutput(path string) bool {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.HasSuffix(base, outputSuffix)
}

// Summary aggregates a batch run for display.
type Summary struct {
	Total      int
	Satisfied  int
	BelowMin   int
	BestEffort int
	Skipped    int
	TotalKB    float64
}

// Summarize computes aggregate statistics from a finished run.
func Summarize(outcomes []Outcome, skips []Skip) Summary {
	s := Summary{Total: len(outcomes) + len(skips), Skipped: len(skips)}
	for _, o := range outcomes {
		switch o.Status {
		case Satisfied:
			s.Satisfied++
		case AcceptedBelowMin:
			s.BelowMin++
		case BestEffort:
			s.BestEffort++
		}
		s.TotalKB += o.SizeKB
	}
	return s
}

// String returns a human-readable batch summary.
func (s Summary) String() string {
	return fmt.Sprintf("Batch: %d/%d in envelope | %d below min | %d best effort | %d skipped | %s written",
		s.Satisfied, s.Total, s.BelowMin, s.BestEffort, s.Skipped, humanKB(s.TotalKB))
}
