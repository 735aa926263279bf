package imaging

import (
	"fmt"
	"image"

	"github.com/kovidgoyal/imaging"
)

// Transformer scales frames with Lanczos resampling, the same filter the
// usual video thumbnailing pipelines reach for.
type Transformer struct{}

func NewTransformer() *Transformer {
	return &Transformer{}
}

// Resize returns img scaled to exactly width x height. Matching dimensions
// pass the frame through untouched so the common no-resize conversion does
// not pay for a pixel copy.
func (t *Transformer) Resize(img image.Image, width, height int) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target dimensions %dx%d", width, height)
	}

	bounds := img.Bounds()
	if bounds.Dx() == width && bounds.Dy() == height {
		return img, nil
	}

	out := imaging.Resize(img, width, height, imaging.Lanczos)
	if out == nil {
		return nil, fmt.Errorf("resize to %dx%d failed", width, height)
	}
	return out, nil
}
