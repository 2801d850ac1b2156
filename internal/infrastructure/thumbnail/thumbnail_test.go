package thumbnail

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediavault/services/media-api/internal/config"
)

func newDeriver() *Deriver {
	return NewDeriver(&config.Config{ThumbnailMaxDimension: 64, ThumbnailQuality: 80}, zerolog.Nop())
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 200})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeJPEG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestDeriveFitsWithinBounds(t *testing.T) {
	out, err := newDeriver().Derive(context.Background(), encodePNG(t, 200, 100))
	require.NoError(t, err)

	img := decodeJPEG(t, out)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 32, img.Bounds().Dy())
}

func TestDeriveDoesNotUpscale(t *testing.T) {
	out, err := newDeriver().Derive(context.Background(), encodePNG(t, 20, 10))
	require.NoError(t, err)

	img := decodeJPEG(t, out)
	assert.Equal(t, 20, img.Bounds().Dx())
	assert.Equal(t, 10, img.Bounds().Dy())
}

func TestDeriveRejectsNonImages(t *testing.T) {
	_, err := newDeriver().Derive(context.Background(), []byte("definitely not an image"))
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestDeriveRejectsCorruptImages(t *testing.T) {
	data := encodePNG(t, 10, 10)
	_, err := newDeriver().Derive(context.Background(), data[:40])
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestDeriveHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newDeriver().Derive(ctx, encodePNG(t, 10, 10))
	assert.ErrorIs(t, err, context.Canceled)
}
