package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestResizeScalesDown(t *testing.T) {
	tr := NewTransformer()
	src := solidImage(16, 8, color.NRGBA{R: 200, G: 40, B: 40, A: 255})

	out, err := tr.Resize(src, 8, 4)
	require.NoError(t, err)

	bounds := out.Bounds()
	assert.Equal(t, 8, bounds.Dx())
	assert.Equal(t, 4, bounds.Dy())

	// A solid source stays solid after resampling.
	r, g, b, _ := out.At(bounds.Min.X+4, bounds.Min.Y+2).RGBA()
	assert.Equal(t, uint32(200), r>>8)
	assert.Equal(t, uint32(40), g>>8)
	assert.Equal(t, uint32(40), b>>8)
}

func TestResizeScalesUp(t *testing.T) {
	tr := NewTransformer()
	out, err := tr.Resize(solidImage(4, 4, color.NRGBA{A: 255}), 10, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, out.Bounds().Dx())
	assert.Equal(t, 10, out.Bounds().Dy())
}

func TestResizePassthroughOnMatchingDimensions(t *testing.T) {
	tr := NewTransformer()
	src := solidImage(6, 6, color.NRGBA{B: 255, A: 255})

	out, err := tr.Resize(src, 6, 6)
	require.NoError(t, err)
	assert.Same(t, image.Image(src), out, "matching dimensions must not copy pixels")
}

func TestResizeRejectsInvalidDimensions(t *testing.T) {
	tr := NewTransformer()
	src := solidImage(4, 4, color.NRGBA{A: 255})

	for _, dims := range [][2]int{{0, 10}, {10, 0}, {-1, 10}, {10, -3}} {
		_, err := tr.Resize(src, dims[0], dims[1])
		assert.Error(t, err, "dimensions %v", dims)
	}
}
