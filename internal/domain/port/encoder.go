package port

import (
	"context"
	"image"
	"time"
)

// AnimationFrame pairs one output frame with its display duration.
type AnimationFrame struct {
	Image    image.Image
	Duration time.Duration
}

// AnimationEncoder muxes an ordered frame sequence into an animated WebP and
// returns the encoded bytes. Frames must all share the same dimensions.
type AnimationEncoder interface {
	Encode(ctx context.Context, frames []AnimationFrame, quality int) ([]byte, error)
}
