package terrain

import (
	"github.com/Faultbox/heightfield/internal/engine/texture"
)

// Heightmap reads terrain elevation from the red channel of an image.
type Heightmap struct {
	img texture.Image
}

// NewHeightmap wraps img. An empty image gives a flat heightmap.
func NewHeightmap(img texture.Image) *Heightmap {
	return &Heightmap{img: img}
}

// Width returns the heightmap width in texels.
func (h *Heightmap) Width() int {
	if h == nil {
		return 0
	}
	return h.img.Width
}

// Height returns the heightmap height in texels.
func (h *Heightmap) Height() int {
	if h == nil {
		return 0
	}
	return h.img.Height
}

// Sample returns the red value (0-255) of the texel nearest below (u, v),
// where u and v are in [0, 1]. No filtering is applied.
func (h *Heightmap) Sample(u, v float32) float32 {
	if h == nil || h.img.Empty() {
		return 0
	}
	x := int(u * float32(h.img.Width-1))
	y := int(v * float32(h.img.Height-1))
	return float32(h.img.At(x, y)[0])
}
