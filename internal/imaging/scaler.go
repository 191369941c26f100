// Package imaging turns uploaded raster images into square PNG thumbnails.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	// Decoders for accepted upload formats.
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrDecode is returned when the input is not a decodable raster image.
var ErrDecode = errors.New("unable to decode image")

// Source images beyond these bounds are rejected from their header alone,
// before any bitmap is allocated.
const (
	MaxSourceDimension = 8192
	MaxSourcePixels    = 40_000_000
)

// ErrResize is returned when the decoded image cannot be scaled to the target size.
var ErrResize = errors.New("unable to resize image")

// Scaler resizes images to a fixed N×N square and encodes them as PNG.
// It holds no mutable state and is safe for concurrent use.
type Scaler struct {
	size    int
	encoder png.Encoder
}

// NewScaler returns a Scaler producing size×size thumbnails.
func NewScaler(size int) (*Scaler, error) {
	if size <= 0 {
		return nil, fmt.Errorf("picture size must be positive, got %d", size)
	}
	return &Scaler{
		size:    size,
		encoder: png.Encoder{CompressionLevel: png.DefaultCompression},
	}, nil
}

// Size returns the configured edge length.
func (s *Scaler) Size() int {
	return s.size
}

// Scale decodes data, stretches it to the configured square and returns PNG bytes.
// data is only read.
func (s *Scaler) Scale(data []byte) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := checkDimensions(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: empty source bounds %v", ErrResize, b)
	}

	dst := image.NewNRGBA(image.Rect(0, 0, s.size, s.size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	var buf bytes.Buffer
	if err := s.encoder.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("%w: encode png: %v", ErrResize, err)
	}
	return buf.Bytes(), nil
}

func checkDimensions(w, h int) error {
	if w <= 0 || h <= 0 || w > MaxSourceDimension || h > MaxSourceDimension ||
		int64(w)*int64(h) > MaxSourcePixels {
		return fmt.Errorf("%w: source is %dx%d, limit %dx%d and %d pixels",
			ErrDecode, w, h, MaxSourceDimension, MaxSourceDimension, MaxSourcePixels)
	}
	return nil
}
