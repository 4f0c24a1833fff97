// Package imaging turns uploaded image bytes into the normalized CHW float
// tensor the captcha model consumes.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Defaults matching the bundled model: 32x128 input, Normalize(0.5, 0.5).
const (
	DefaultHeight = 32
	DefaultWidth  = 128
	DefaultMean   = 0.5
	DefaultStd    = 0.5
)

// DefaultMaxPixels caps width*height before pixel data is decoded. It equals
// twice the 89,478,485 pixel warning threshold used by Pillow.
const DefaultMaxPixels int64 = 2 * 89478485

var (
	// ErrEmptyImage is returned for images with no pixels.
	ErrEmptyImage = errors.New("image has no pixels")
	// ErrTooManyPixels is returned when the declared dimensions exceed the limit.
	ErrTooManyPixels = errors.New("image exceeds pixel limit")
)

// Decode parses b as any registered image format (PNG, JPEG, GIF, BMP, TIFF,
// WebP), rejecting images larger than DefaultMaxPixels.
func Decode(b []byte) (image.Image, string, error) {
	return DecodeLimit(b, DefaultMaxPixels)
}

// DecodeLimit is Decode with an explicit pixel limit. The header is read
// first so oversized images fail before their pixels are allocated.
// A non-positive maxPixels selects DefaultMaxPixels.
func DecodeLimit(b []byte, maxPixels int64) (image.Image, string, error) {
	if len(b) == 0 {
		return nil, "", errors.New("empty image data")
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	if n := int64(cfg.Width) * int64(cfg.Height); n > maxPixels {
		return nil, format, fmt.Errorf("%w: %dx%d is %d pixels, limit %d", ErrTooManyPixels, cfg.Width, cfg.Height, n, maxPixels)
	}
	img, format, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, format, ErrEmptyImage
	}
	return img, format, nil
}

// Transform resizes an image to Height x Width with bicubic interpolation,
// drops alpha, scales to [0,1] and normalizes each channel as (v-Mean)/Std.
// A Transform is immutable and safe for concurrent use.
type Transform struct {
	Height int
	Width  int
	Mean   float32
	Std    float32
}

// NewTransform returns a Transform for the given size, falling back to the
// model defaults for non-positive dimensions.
func NewTransform(height, width int) Transform {
	if height <= 0 {
		height = DefaultHeight
	}
	if width <= 0 {
		width = DefaultWidth
	}
	return Transform{Height: height, Width: width, Mean: DefaultMean, Std: DefaultStd}
}

// Shape is the NCHW tensor shape produced by Apply.
func (t Transform) Shape() []int64 {
	return []int64{1, 3, int64(t.Height), int64(t.Width)}
}

// Apply converts img into a planar RGB float32 buffer of length 3*Height*Width.
func (t Transform) Apply(img image.Image) ([]float32, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	if t.Std == 0 {
		return nil, errors.New("transform std must be non-zero")
	}
	rgb := toRGB(img)
	resized := resize.Resize(uint(t.Width), uint(t.Height), rgb, resize.Bicubic)

	b := resized.Bounds()
	plane := t.Width * t.Height
	out := make([]float32, 3*plane)
	for y := 0; y < t.Height; y++ {
		for x := 0; x < t.Width; x++ {
			r, g, bl, _ := resized.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := y*t.Width + x
			out[i] = t.norm(r)
			out[plane+i] = t.norm(g)
			out[2*plane+i] = t.norm(bl)
		}
	}
	return out, nil
}

func (t Transform) norm(c uint32) float32 {
	v := float32(c>>8) / 255
	return (v - t.Mean) / t.Std
}

// toRGB copies img into an opaque NRGBA buffer. Alpha is discarded rather
// than composited, so transparent pixels keep their stored color.
func toRGB(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			i := dst.PixOffset(x-b.Min.X, y-b.Min.Y)
			dst.Pix[i+0] = c.R
			dst.Pix[i+1] = c.G
			dst.Pix[i+2] = c.B
			dst.Pix[i+3] = 0xff
		}
	}
	return dst
}
