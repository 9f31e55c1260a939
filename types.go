package imgfit

import (
	"errors"
	"fmt"
	"io"
)

// Version is the library version.
const Version = "1.0.0"

// Mode selects which constraint a resize run satisfies.
type Mode int

const (
	// DimensionMode bounds the output's pixel dimensions to a [Min, Max] envelope.
	DimensionMode Mode = iota
	// FileSizeMode bounds the output's encoded byte size to a [MinKB, MaxKB] envelope.
	FileSizeMode
)

func (m Mode) String() string {
	switch m {
	case FileSizeMode:
		return "filesize"
	default:
		return "dimension"
	}
}

// Status is the terminal verdict of one resize invocation.
type Status int

const (
	// Satisfied means the output lies fully inside the requested envelope.
	Satisfied Status = iota
	// AcceptedBelowMin means the initial render was already under the envelope
	// minimum and was accepted as-is. The engine never re-encodes to inflate
	// file size: adding entropy to hit a minimum buys no image quality.
	AcceptedBelowMin
	// BestEffort means the search exhausted its budget without entering the
	// envelope and returned the closest candidate found.
	BestEffort
)

func (s Status) String() string {
	switch s {
	case Satisfied:
		return "Satisfied"
	case AcceptedBelowMin:
		return "AcceptedBelowMin"
	case BestEffort:
		return "BestEffort"
	default:
		return "Unknown"
	}
}

// ErrInvalidEnvelope reports a degenerate envelope: a missing bound, a bound
// that is not positive, or min above max. It refuses the whole batch before
// any per-image work starts.
var ErrInvalidEnvelope = errors.New("invalid envelope")

// DimensionEnvelope is an inclusive [Min, Max] acceptance range in pixels.
type DimensionEnvelope struct {
	Min int
	Max int
}

// Validate rejects degenerate envelopes before any processing begins.
func (e DimensionEnvelope) Validate() error {
	if e.Min <= 0 || e.Max <= 0 {
		return fmt.Errorf("imgfit: dimension envelope [%d, %d]: bounds must be positive: %w", e.Min, e.Max, ErrInvalidEnvelope)
	}
	if e.Min > e.Max {
		return fmt.Errorf("imgfit: dimension envelope [%d, %d]: min above max: %w", e.Min, e.Max, ErrInvalidEnvelope)
	}
	return nil
}

// ByteEnvelope is an inclusive [MinKB, MaxKB] acceptance range for encoded
// size, in kilobytes.
type ByteEnvelope struct {
	MinKB int
	MaxKB int
}

// Validate rejects degenerate envelopes before any processing begins.
func (e ByteEnvelope) Validate() error {
	if e.MinKB <= 0 || e.MaxKB <= 0 {
		return fmt.Errorf("imgfit: byte envelope [%d, %d] KB: bounds must be positive: %w", e.MinKB, e.MaxKB, ErrInvalidEnvelope)
	}
	if e.MinKB > e.MaxKB {
		return fmt.Errorf("imgfit: byte envelope [%d, %d] KB: min above max: %w", e.MinKB, e.MaxKB, ErrInvalidEnvelope)
	}
	return nil
}

// contains reports whether a rendered size in KB lies inside the envelope.
func (e ByteEnvelope) contains(sizeKB float64) bool {
	return sizeKB >= float64(e.MinKB) && sizeKB <= float64(e.MaxKB)
}

// RenderSpec is one point in the quality/dimension search space.
type RenderSpec struct {
	Width   int
	Height  int
	Quality float64
}

// EncodedResult is a single render measured against the envelope.
// Ephemeral: each search iteration supersedes the previous one.
type EncodedResult struct {
	Data   []byte
	SizeKB float64
}

// Options configures a single resize invocation.
type Options struct {
	// Mode selects the constraint strategy (default: DimensionMode, the zero value).
	Mode Mode

	// Dimensions is the pixel envelope, used in DimensionMode.
	Dimensions DimensionEnvelope

	// Size is the encoded-size envelope, used in FileSizeMode.
	Size ByteEnvelope

	// Format is the lossy codec for FileSizeMode output (default: FormatJPEG).
	// Dimension-mode output is always lossless PNG.
	Format LossyFormat

	// Renderer overrides the render/encode collaborator for FileSizeMode.
	// Nil selects the codec implied by Format. Mostly useful for tests.
	Renderer Renderer
}

// DefaultOptions returns sensible defaults for general use.
func DefaultOptions() Options {
	return Options{
		Mode:       DimensionMode,
		Dimensions: DimensionEnvelope{Min: 100, Max: 1920},
		Size:       ByteEnvelope{MinKB: 20, MaxKB: 500},
		Format:     FormatJPEG,
	}
}

// Outcome is the terminal artifact of one resize invocation: the encoded
// bytes plus how the envelope was met. One Outcome per accepted input image,
// independent of all others.
type Outcome struct {
	// Name identifies the output (derived from the input file name).
	Name string

	// Data holds the exact encoded bytes that were measured by the engine.
	Data []byte

	// Status reports how the envelope was met.
	Status Status

	// Width and Height are the final pixel dimensions.
	Width  int
	Height int

	// Quality is the final lossy quality used (0 for lossless output).
	Quality float64

	// SizeKB is the encoded size of Data in kilobytes.
	SizeKB float64

	// Iterations is the number of search steps performed after the initial
	// render (0 when the first render already decided the outcome).
	Iterations int

	// Message carries a human-readable advisory, set when the search budget
	// ran out before the envelope was reached.
	Message string
}

// WriteTo writes the encoded output to w. It writes the exact bytes the
// engine measured, preserving envelope precision.
func (o *Outcome) WriteTo(w io.Writer) (int64, error) {
	if len(o.Data) == 0 {
		return 0, fmt.Errorf("imgfit: no encoded data available")
	}
	n, err := w.Write(o.Data)
	return int64(n), err
}

// String returns a human-readable one-line summary of the outcome.
func (o *Outcome) String() string {
	q := ""
	if o.Quality > 0 {
		q = fmt.Sprintf(" q=%.2f |", o.Quality)
	}
	return fmt.Sprintf("%s: %s |%s %dx%d | %s | %d iterations",
		o.Name, o.Status, q, o.Width, o.Height, humanKB(o.SizeKB), o.Iterations)
}

// humanKB formats a kilobyte count for display.
func humanKB(kb float64) string {
	if kb >= 1024 {
		return fmt.Sprintf("%.1f MB", kb/1024)
	}
	return fmt.Sprintf("%.1f KB", kb)
}

// sizeOf converts a byte count to kilobytes.
func sizeOf(data []byte) float64 {
	return float64(len(data)) / 1024
}
