package imageinfo

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func encode(t *testing.T, w, h int, enc func(*bytes.Buffer, image.Image) error) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, enc(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestInspect_PNG(t *testing.T) {
	data := encode(t, 32, 18, func(b *bytes.Buffer, m image.Image) error { return png.Encode(b, m) })
	info, err := Inspect(data, 0)
	require.NoError(t, err)
	assert.Equal(t, Info{Width: 32, Height: 18, Format: "png", ContentType: "image/png"}, info)
}

func TestInspect_BMP(t *testing.T) {
	data := encode(t, 5, 7, func(b *bytes.Buffer, m image.Image) error { return bmp.Encode(b, m) })
	info, err := Inspect(data, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, info.Width)
	assert.Equal(t, 7, info.Height)
	assert.Equal(t, "bmp", info.Format)
}

func TestInspect_Errors(t *testing.T) {
	_, err := Inspect(nil, 0)
	assert.ErrorIs(t, err, ErrNoImage)

	_, err = Inspect([]byte("definitely not an image"), 0)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	data := encode(t, 300, 10, func(b *bytes.Buffer, m image.Image) error { return png.Encode(b, m) })
	_, err = Inspect(data, 256)
	assert.ErrorIs(t, err, ErrTooLarge)
}
