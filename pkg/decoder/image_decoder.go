package decoder

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ImageDecoder decodes any registered image format and downscales the
// result by a power of two so it is no larger than needed for the
// requested dimensions.
type ImageDecoder struct {
	scaler draw.Scaler
}

var _ Decoder = (*ImageDecoder)(nil)

func NewImageDecoder() *ImageDecoder {
	return &ImageDecoder{draw.NearestNeighbor}
}

func (d *ImageDecoder) Decode(src io.ReadSeeker, reqWidth, reqHeight int) (*Bitmap, error) {
	config, _, err := image.DecodeConfig(src)
	if err != nil {
		return nil, fmt.Errorf("%w: reading bounds: %s", ErrDecodeFailed, err)
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: rewinding source: %s", ErrDecodeFailed, err)
	}

	sampleSize := CalculateSubsample(config.Width, config.Height, reqWidth, reqHeight)

	decoded, _, err := image.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDecodeFailed, err)
	}

	if sampleSize == 1 {
		bounds := decoded.Bounds()
		return &Bitmap{decoded, bounds.Dx(), bounds.Dy(), 1}, nil
	}

	width := max(config.Width/sampleSize, 1)
	height := max(config.Height/sampleSize, 1)

	scaled := image.NewRGBA(image.Rect(0, 0, width, height))
	d.scaler.Scale(scaled, scaled.Bounds(), decoded, decoded.Bounds(), draw.Src, nil)

	return &Bitmap{scaled, width, height, sampleSize}, nil
}

// CalculateSubsample returns the largest power of two by which an image of
// srcWidth x srcHeight can be reduced while half of each dimension, divided
// by the factor, still covers the requested one.
func CalculateSubsample(srcWidth, srcHeight, reqWidth, reqHeight int) int {
	sampleSize := 1
	if reqWidth <= 0 || reqHeight <= 0 {
		return sampleSize
	}

	if srcHeight <= reqHeight && srcWidth <= reqWidth {
		return sampleSize
	}

	halfHeight := srcHeight / 2
	halfWidth := srcWidth / 2

	for halfHeight/(sampleSize*2) >= reqHeight && halfWidth/(sampleSize*2) >= reqWidth {
		sampleSize *= 2
	}

	return sampleSize
}

var ErrDecodeFailed = errors.New("image decoding failed")
