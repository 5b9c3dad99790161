package compressor

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/compressly/compressly/internal/logger"
	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
)

// ImagingCompressor re-encodes images with the imaging library and the
// standard JPEG/PNG encoders.
type ImagingCompressor struct {
	logger zerolog.Logger
}

func New() *ImagingCompressor {
	return &ImagingCompressor{
		logger: logger.GetLogger("compressor"),
	}
}

// Compress decodes the input, scales the longer edge down to the configured
// maximum, and re-encodes it. JPEG quality steps down until the output fits
// the byte target or the quality floor is reached; PNG inputs that stay over
// the target after best-compression encoding fall back to JPEG.
func (c *ImagingCompressor) Compress(ctx context.Context, data []byte, opts Options) (*Result, error) {
	opts = opts.normalized()

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("error decoding image: %w", err)
	}

	bounds := img.Bounds()
	originalWidth := bounds.Dx()
	originalHeight := bounds.Dy()

	c.logger.Debug().
		Str("format", format).
		Int("width", originalWidth).
		Int("height", originalHeight).
		Int("original_size", len(data)).
		Msg("Image decoded")

	resized := resizeToFit(img, opts.MaxDimension)

	if format == "png" {
		result, err := c.encodePNG(resized, opts)
		if err != nil {
			return nil, err
		}
		if result != nil {
			return result, nil
		}
		// Over the byte target even at best compression; fall through to
		// JPEG re-encoding.
		c.logger.Debug().Msg("PNG over size target, re-encoding as JPEG")
	}

	return c.encodeJPEG(resized, opts)
}

// resizeToFit scales the image down so its longer edge is at most
// maxDimension. Images already within bounds are returned unchanged; nothing
// is ever upscaled.
func resizeToFit(img image.Image, maxDimension int) image.Image {
	if maxDimension <= 0 {
		return img
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= maxDimension && height <= maxDimension {
		return img
	}

	if width >= height {
		return imaging.Resize(img, maxDimension, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, maxDimension, imaging.Lanczos)
}

// encodePNG encodes at best compression. It returns (nil, nil) when the
// output misses a configured byte target, signalling the JPEG fallback.
func (c *ImagingCompressor) encodePNG(img image.Image, opts Options) (*Result, error) {
	var buf bytes.Buffer
	encoder := png.Encoder{
		CompressionLevel: png.BestCompression,
	}
	if err := encoder.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("error encoding png: %w", err)
	}

	if opts.MaxSizeBytes > 0 && int64(buf.Len()) > opts.MaxSizeBytes {
		return nil, nil
	}

	return newResult(buf.Bytes(), "image/png"), nil
}

// encodeJPEG encodes at the quality hint, stepping the quality down until
// the output fits the byte target or the floor is reached. The last encode
// is returned either way; the size target is best-effort.
func (c *ImagingCompressor) encodeJPEG(img image.Image, opts Options) (*Result, error) {
	quality := opts.Quality

	var buf bytes.Buffer
	for {
		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("error encoding jpeg: %w", err)
		}

		if opts.MaxSizeBytes <= 0 || int64(buf.Len()) <= opts.MaxSizeBytes || quality <= qualityFloor {
			break
		}

		quality -= qualityStep
		if quality < qualityFloor {
			quality = qualityFloor
		}

		c.logger.Debug().
			Int("quality", quality).
			Int("size", buf.Len()).
			Int64("target", opts.MaxSizeBytes).
			Msg("Output over size target, stepping quality down")
	}

	return newResult(buf.Bytes(), "image/jpeg"), nil
}

func newResult(data []byte, contentType string) *Result {
	return &Result{
		Data:        data,
		Size:        int64(len(data)),
		Preview:     fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data)),
		ContentType: contentType,
	}
}
