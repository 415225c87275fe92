package image

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

var ErrNotImage = errors.New("response body is not a decodable image")

type Decoded struct {
	Format      string
	ContentType string
	Width       int
	Height      int
}

// Decode fully decodes data so a truncated or corrupt body is rejected, not
// just one with a bad header.
func Decode(data []byte) (Decoded, error) {
	if len(data) == 0 {
		return Decoded{}, fmt.Errorf("%w: empty body", ErrNotImage)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	b := img.Bounds()
	return Decoded{
		Format:      format,
		ContentType: "image/" + format,
		Width:       b.Dx(),
		Height:      b.Dy(),
	}, nil
}
