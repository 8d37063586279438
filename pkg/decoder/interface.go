package decoder

//go:generate mockgen -destination=mocks/mock_decoder.go . Decoder

import (
	"image"
	"io"
)

// Bitmap is a decoded, possibly downscaled image ready to be displayed.
type Bitmap struct {
	Image      image.Image
	Width      int
	Height     int
	SampleSize int
}

// SizeKB returns the memory footprint of the bitmap in kilobytes,
// assuming 4 bytes per pixel.
func (b *Bitmap) SizeKB() int {
	if b == nil {
		return 0
	}

	return b.Width * b.Height * 4 / 1024
}

type Decoder interface {
	Decode(src io.ReadSeeker, reqWidth, reqHeight int) (*Bitmap, error)
}
