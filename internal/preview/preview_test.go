package preview

import (
	"bytes"
	"image/color"
	"image/png"
	"math"
	"testing"
	"time"

	"pixelgrid/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveColor(t *testing.T) {
	c, ok := ResolveColor("red")
	assert.True(t, ok)
	assert.Equal(t, color.RGBA{R: 0xff, A: 0xff}, c)

	c, ok = ResolveColor("#0f08")
	assert.True(t, ok)
	assert.Equal(t, color.RGBA{G: 0xff, A: 0x88}, c)

	c, ok = ResolveColor("#123456")
	assert.True(t, ok)
	assert.Equal(t, color.RGBA{R: 0x12, G: 0x34, B: 0x56, A: 0xff}, c)

	_, ok = ResolveColor("nosuchcolor")
	assert.False(t, ok)
}

func TestRender_ScalesAndSkipsOutOfBounds(t *testing.T) {
	doc := domain.NewPointsDocument(4, 3)
	doc.Add(domain.Cell{X: 1, Y: 2}, "blue")
	doc.Add(domain.Cell{X: 9, Y: 9}, "red")

	img, err := Render(doc, 3)
	require.NoError(t, err)
	assert.Equal(t, 12, img.Bounds().Dx())
	assert.Equal(t, 9, img.Bounds().Dy())
	assert.Equal(t, color.RGBA{B: 0xff, A: 0xff}, img.RGBAAt(4, 7))
	assert.Equal(t, color.RGBA{}, img.RGBAAt(0, 0))
}

func TestRender_LimitsOutputSize(t *testing.T) {
	doc := domain.NewPointsDocument(1000, 10)
	img, err := Render(doc, 100)
	require.NoError(t, err)
	assert.LessOrEqual(t, img.Bounds().Dx(), MaxSide)
}

func TestRender_HugeScaleIsCapped(t *testing.T) {
	cases := []struct {
		name          string
		width, height int
		scale         int
		wantSide      int
	}{
		{"max int on 1x1", 1, 1, math.MaxInt, MaxSide},
		{"overflowing product on 3x3", 3, 3, 6148914691236517206, 3 * (MaxSide / 3)},
		{"board wider than limit", MaxSide + 10, 1, 50, MaxSide + 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			done := make(chan struct{})
			var side int
			go func() {
				defer close(done)
				img, err := Render(domain.NewPointsDocument(tc.width, tc.height), tc.scale)
				if assert.NoError(t, err) {
					side = img.Bounds().Dx()
				}
			}()
			select {
			case <-done:
			case <-time.After(5 * time.Second):
				t.Fatal("render did not return")
			}
			assert.Equal(t, tc.wantSide, side)
		})
	}
}

func TestWritePNG(t *testing.T) {
	doc := domain.NewPointsDocument(2, 2)
	doc.Add(domain.Cell{X: 0, Y: 0}, "red")
	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, doc, 1))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 2, img.Bounds().Dx())

	_, err = Render(domain.NewPointsDocument(0, 5), 1)
	assert.ErrorIs(t, err, ErrEmptyBoard)
}
