// Package texture decodes image files into RGBA8 pixel buffers for upload.
package texture

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// decoders maps lower-case file extensions to image decoders. The tga package
// registers itself with an empty magic string, which makes image.Decode hand
// every input to it, so formats are picked by extension instead.
var decoders = map[string]func(io.Reader) (image.Image, error){
	".bmp":  bmp.Decode,
	".gif":  gif.Decode,
	".jpeg": jpeg.Decode,
	".jpg":  jpeg.Decode,
	".png":  png.Decode,
	".tga":  tga.Decode,
	".tif":  tiff.Decode,
	".tiff": tiff.Decode,
	".webp": webp.Decode,
}

// Image is a tightly packed RGBA8 pixel buffer with straight (not
// premultiplied) alpha, rows top to bottom.
type Image struct {
	Pix    []byte
	Width  int
	Height int
}

// Empty reports whether the image has no pixels.
func (img Image) Empty() bool {
	return img.Width == 0 || img.Height == 0
}

// At returns the RGBA bytes of the texel at (x, y). Out-of-range coordinates
// are clamped to the edge; an empty image returns zeros.
func (img Image) At(x, y int) [4]byte {
	if img.Empty() || len(img.Pix) < img.Width*img.Height*4 {
		return [4]byte{}
	}
	x = clamp(x, 0, img.Width-1)
	y = clamp(y, 0, img.Height-1)
	i := (y*img.Width + x) * 4
	return [4]byte{img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Decode decodes an encoded image. The format (BMP, GIF, JPEG, PNG, TGA, TIFF
// or WebP) is chosen from the extension of name.
func Decode(data []byte, name string) (Image, error) {
	ext := strings.ToLower(filepath.Ext(name))
	decode, ok := decoders[ext]
	if !ok {
		return Image{}, fmt.Errorf("decode %s: unsupported image format %q", name, ext)
	}
	img, err := decode(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("decode %s: %w", name, err)
	}
	return FromImage(img), nil
}

// FromImage converts any image.Image to a packed Image. Colour channels keep
// their straight values whatever the alpha.
func FromImage(src image.Image) Image {
	bounds := src.Bounds()
	nrgba, ok := src.(*image.NRGBA)
	if !ok || nrgba.Stride != bounds.Dx()*4 || bounds.Min != (image.Point{}) {
		nrgba = image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), src, bounds.Min, draw.Src)
	}
	return Image{
		Pix:    nrgba.Pix,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}
}

// ToNRGBA wraps the pixel buffer as an *image.NRGBA without copying.
func (img Image) ToNRGBA() *image.NRGBA {
	return &image.NRGBA{
		Pix:    img.Pix,
		Stride: img.Width * 4,
		Rect:   image.Rect(0, 0, img.Width, img.Height),
	}
}

// Load reads and decodes an image file.
func Load(path string) (Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fmt.Errorf("read image: %w", err)
	}
	return Decode(data, path)
}
