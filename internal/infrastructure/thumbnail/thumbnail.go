package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	// Registers the WebP decoder with image.Decode.
	_ "golang.org/x/image/webp"

	"mediavault/services/media-api/internal/config"
	"mediavault/services/media-api/internal/infrastructure/metrics"
)

// ErrUnsupportedImage is returned for payloads that are not decodable still images.
var ErrUnsupportedImage = errors.New("unsupported image format")

// Deriver produces bounded JPEG previews of still images.
type Deriver struct {
	maxDimension int
	quality      int
	log          zerolog.Logger
}

func NewDeriver(cfg *config.Config, log zerolog.Logger) *Deriver {
	return &Deriver{
		maxDimension: cfg.ThumbnailMaxDimension,
		quality:      cfg.ThumbnailQuality,
		log:          log.With().Str("component", "thumbnail").Logger(),
	}
}

// Derive fits the image inside maxDimension x maxDimension, keeping the aspect
// ratio. Smaller images are re-encoded at their original size.
func (d *Deriver) Derive(ctx context.Context, data []byte) (out []byte, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordThumbnail(metrics.Outcome(err), time.Since(start).Seconds())
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	detected := mimetype.Detect(data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, detected.String())
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrUnsupportedImage, detected.String(), err)
	}

	bounds := img.Bounds()
	fitted := imaging.Fit(img, d.maxDimension, d.maxDimension, imaging.Lanczos)
	// JPEG has no alpha channel, so composite onto white first.
	canvas := imaging.New(fitted.Bounds().Dx(), fitted.Bounds().Dy(), color.White)
	flattened := imaging.Overlay(canvas, fitted, image.Pt(0, 0), 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flattened, imaging.JPEG, imaging.JPEGQuality(d.quality)); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}

	d.log.Debug().
		Str("source_type", detected.String()).
		Int("source_width", bounds.Dx()).
		Int("source_height", bounds.Dy()).
		Int("width", flattened.Bounds().Dx()).
		Int("height", flattened.Bounds().Dy()).
		Int("bytes", buf.Len()).
		Msg("thumbnail derived")
	return buf.Bytes(), nil
}
