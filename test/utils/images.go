package testutils

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// EncodePNG returns a PNG encoded gradient of the given size.
func EncodePNG(t testing.TB, width, height int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 0x40, 0xff})
		}
	}

	buff := bytes.NewBuffer([]byte{})
	if err := png.Encode(buff, img); err != nil {
		t.Fatalf("cannot encode test image: %v", err)
	}

	return buff.Bytes()
}
