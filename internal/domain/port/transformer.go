package port

import "image"

// FrameTransformer scales a single frame to the exact target dimensions.
// Deciding those dimensions (aspect handling, passthrough) is the caller's
// job; the transformer only owns the pixel work.
type FrameTransformer interface {
	Resize(img image.Image, width, height int) (image.Image, error)
}
