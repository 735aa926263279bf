package converter

import "fmt"

const (
	// DefaultQuality matches the WebP encoder's sweet spot for animated
	// output.
	DefaultQuality = 80

	// DefaultFPS applies only when timing preservation is disabled.
	DefaultFPS = 30.0

	// DefaultMaxFrames bounds decoded memory; large clips are subsampled
	// down to this many output frames unless the caller raises the ceiling.
	DefaultMaxFrames = 180

	// NoFrameLimit is an effectively unbounded ceiling for callers that
	// explicitly opt out of subsampling.
	NoFrameLimit = 1 << 30
)

// Config holds the per-conversion parameters. The zero value is not valid on
// its own; Normalize fills defaults and Validate rejects bad input before any
// decode work starts.
type Config struct {
	// Width and Height are the output dimensions. Zero means "derive from
	// the source" (both zero: passthrough; one zero: preserve aspect).
	Width  int
	Height int

	// Quality is the WebP quality in [0, 100]. Zero is treated as unset and
	// normalized to DefaultQuality, not as the lowest quality; the lowest
	// expressible quality is 1.
	Quality int

	// FPS is the uniform output frame rate used when PreserveTiming is
	// false. Zero means DefaultFPS.
	FPS float64

	// PreserveTiming keeps the output playback length equal to the source
	// duration by assigning per-frame durations from source timestamps.
	PreserveTiming bool

	// MaxFrames is the output frame ceiling. Zero means DefaultMaxFrames;
	// negative values are rejected.
	MaxFrames int

	// SizeTargetBytes, when positive, enables the size-restricted search
	// for the largest output at or under this many bytes.
	SizeTargetBytes int64
}

// DefaultConfig returns the recommended configuration: original dimensions,
// quality 80, timing preservation on, 180-frame ceiling, no size target.
func DefaultConfig() Config {
	return Config{
		Quality:        DefaultQuality,
		FPS:            DefaultFPS,
		PreserveTiming: true,
		MaxFrames:      DefaultMaxFrames,
	}
}

// Normalize fills zero-valued knobs with their defaults.
func (c Config) Normalize() Config {
	if c.Quality == 0 {
		c.Quality = DefaultQuality
	}
	if c.FPS == 0 {
		c.FPS = DefaultFPS
	}
	if c.MaxFrames == 0 {
		c.MaxFrames = DefaultMaxFrames
	}
	return c
}

// Validate checks a normalized config.
func (c Config) Validate() error {
	if c.Width < 0 || c.Height < 0 {
		return fmt.Errorf("%w: dimensions must not be negative (got %dx%d)", ErrInvalidConfig, c.Width, c.Height)
	}
	if c.Quality < 0 || c.Quality > 100 {
		return fmt.Errorf("%w: quality must be in [0,100] (got %d)", ErrInvalidConfig, c.Quality)
	}
	if !c.PreserveTiming && c.FPS <= 0 {
		return fmt.Errorf("%w: fps must be positive in manual mode (got %g)", ErrInvalidConfig, c.FPS)
	}
	if c.MaxFrames <= 0 {
		return fmt.Errorf("%w: frame ceiling must be positive (got %d)", ErrInvalidConfig, c.MaxFrames)
	}
	if c.SizeTargetBytes < 0 {
		return fmt.Errorf("%w: size target must not be negative (got %d)", ErrInvalidConfig, c.SizeTargetBytes)
	}
	return nil
}
