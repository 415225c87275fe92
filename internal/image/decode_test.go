package image

import (
	"bytes"
	"image"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	t.Run("png", func(t *testing.T) {
		d, err := Decode(pngBytes(t, 8, 4))
		require.NoError(t, err)
		assert.Equal(t, Decoded{Format: "png", ContentType: "image/png", Width: 8, Height: 4}, d)
	})

	t.Run("jpeg", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 3, 3)), nil))
		d, err := Decode(buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", d.ContentType)
	})

	t.Run("json error body", func(t *testing.T) {
		_, err := Decode([]byte(`{"error":"oops"}`))
		assert.ErrorIs(t, err, ErrNotImage)
	})

	t.Run("truncated png", func(t *testing.T) {
		data := pngBytes(t, 16, 16)
		_, err := Decode(data[:len(data)/2])
		assert.ErrorIs(t, err, ErrNotImage)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := Decode(nil)
		assert.ErrorIs(t, err, ErrNotImage)
	})
}
