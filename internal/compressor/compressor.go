package compressor

import "context"

// Options are the global quality/size targets for one compression call.
type Options struct {
	// MaxDimension bounds the longer edge in pixels. Zero disables resizing.
	MaxDimension int
	// MaxSizeBytes bounds the encoded output size on a best-effort basis.
	// Zero disables the size target.
	MaxSizeBytes int64
	// Quality is the encoder quality hint (1-100, 100 least lossy).
	Quality int
}

// Result is a re-encoded representation of the input image.
type Result struct {
	Data        []byte
	Size        int64
	Preview     string
	ContentType string
}

// Compressor re-encodes image bytes into a typically smaller representation.
// The input is never mutated. Failures (undecodable input, encode errors)
// are returned to the caller, which records them at the item level; they
// never abort a batch.
type Compressor interface {
	Compress(ctx context.Context, data []byte, opts Options) (*Result, error)
}

const (
	defaultQuality = 80
	// qualityFloor stops the step-down loop; below this the output is
	// unusable regardless of byte savings.
	qualityFloor = 30
	qualityStep  = 10
)

func (o Options) normalized() Options {
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = defaultQuality
	}
	if o.MaxDimension < 0 {
		o.MaxDimension = 0
	}
	if o.MaxSizeBytes < 0 {
		o.MaxSizeBytes = 0
	}
	return o
}
