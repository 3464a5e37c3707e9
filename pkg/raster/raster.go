// Package raster adapts image.Image values to the compressed byte buffers
// stored in map image fields.
package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"
)

// DefaultMaxPixels caps the declared size of a decoded image.
const DefaultMaxPixels = 1 << 26

var (
	// ErrNilImage is returned when asked to encode a nil image.
	ErrNilImage = errors.New("raster: nil image")
	// ErrImageTooLarge is returned when an image header declares more pixels
	// than the decoder allows.
	ErrImageTooLarge = errors.New("raster: image exceeds the pixel limit")
)

// ImageCodec converts between images and their compressed form.
type ImageCodec interface {
	Encode(img image.Image) ([]byte, error)
	Decode(data []byte) (image.Image, error)
}

// PNG is the default ImageCodec. Its zero value is ready to use and safe for
// concurrent use.
type PNG struct {
	// Level is passed to png.Encoder. The zero value is png.DefaultCompression.
	Level png.CompressionLevel
	// MaxPixels bounds width*height checked before decoding. Zero means
	// DefaultMaxPixels.
	MaxPixels int64
}

// NewPNG returns a PNG codec with default compression.
func NewPNG() *PNG {
	return &PNG{Level: png.DefaultCompression, MaxPixels: DefaultMaxPixels}
}

// Encode compresses img as PNG.
func (p *PNG) Encode(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, ErrNilImage
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: p.Level, BufferPool: sharedPool}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("raster: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses PNG data. The header is checked against MaxPixels before
// any pixel buffer is allocated.
func (p *PNG) Decode(data []byte) (image.Image, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("raster: decode png: %w", err)
	}
	limit := p.MaxPixels
	if limit <= 0 {
		limit = DefaultMaxPixels
	}
	if int64(cfg.Width)*int64(cfg.Height) > limit {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("raster: decode png: %w", err)
	}
	return img, nil
}

// Equal reports whether a and b have the same size and the same RGBA value
// at every pixel, regardless of their color models.
func Equal(a, b image.Image) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Bounds().Size() != b.Bounds().Size() {
		return false
	}
	ab, bb := a.Bounds(), b.Bounds()
	for y := 0; y < ab.Dy(); y++ {
		for x := 0; x < ab.Dx(); x++ {
			r1, g1, b1, a1 := a.At(ab.Min.X+x, ab.Min.Y+y).RGBA()
			r2, g2, b2, a2 := b.At(bb.Min.X+x, bb.Min.Y+y).RGBA()
			if r1 != r2 || g1 != g2 || b1 != b2 || a1 != a2 {
				return false
			}
		}
	}
	return true
}

type bufferPool struct {
	pool sync.Pool
}

func (p *bufferPool) Get() *png.EncoderBuffer {
	b, _ := p.pool.Get().(*png.EncoderBuffer)
	return b
}

func (p *bufferPool) Put(b *png.EncoderBuffer) {
	p.pool.Put(b)
}

var sharedPool = &bufferPool{}
