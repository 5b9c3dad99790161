package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/compressly/compressly/internal/compressor"
	"github.com/compressly/compressly/internal/logger"
	"github.com/compressly/compressly/internal/metrics"
	"github.com/compressly/compressly/internal/registry"
	"github.com/compressly/compressly/internal/tracing"
	"github.com/rs/zerolog"
)

// ErrBatchInProgress is returned when CompressAll is invoked while an
// earlier run is still in flight. Runs never interleave.
var ErrBatchInProgress = errors.New("batch compression already in progress")

// BatchResult aggregates the outcome of one CompressAll run.
type BatchResult struct {
	Selected   int `json:"selected"`
	Compressed int `json:"compressed"`
	Failed     int `json:"failed"`
}

// Orchestrator drives the registry's eligible items through the compression
// operation strictly one at a time, reconciling each result back into the
// registry before starting the next. It owns no item state of its own.
type Orchestrator struct {
	registry   *registry.Registry
	compressor compressor.Compressor
	logger     zerolog.Logger

	mu         sync.Mutex
	opts       compressor.Options
	inProgress bool
}

func New(reg *registry.Registry, comp compressor.Compressor, opts compressor.Options) *Orchestrator {
	return &Orchestrator{
		registry:   reg,
		compressor: comp,
		logger:     logger.GetLogger("orchestrator"),
		opts:       opts,
	}
}

// InProgress reports whether a batch run is currently in flight.
func (o *Orchestrator) InProgress() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inProgress
}

// SetOptions replaces the global quality/size setting used by subsequent
// runs. A run already in flight keeps the options it started with.
func (o *Orchestrator) SetOptions(opts compressor.Options) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opts = opts
}

// Options returns the current global quality/size setting.
func (o *Orchestrator) Options() compressor.Options {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opts
}

// CompressAll selects every pending and error item in registry order and
// processes the selection sequentially. Items added after the run starts are
// not included. An empty selection is a no-op that never sets the
// in-progress flag. A second call while a run is in flight fails fast with
// ErrBatchInProgress.
func (o *Orchestrator) CompressAll(ctx context.Context) (BatchResult, error) {
	o.mu.Lock()
	if o.inProgress {
		o.mu.Unlock()
		return BatchResult{}, ErrBatchInProgress
	}

	ids := o.registry.EligibleIDs()
	if len(ids) == 0 {
		o.mu.Unlock()
		return BatchResult{}, nil
	}

	o.inProgress = true
	opts := o.opts
	o.mu.Unlock()

	ctx, span := tracing.StartSpan(ctx, "orchestrator.CompressAll")
	defer span.End()
	tracing.AddAttribute(ctx, "batch.selected", len(ids))

	metrics.BatchesInProgress.Inc()
	defer func() {
		metrics.BatchesInProgress.Dec()
		o.mu.Lock()
		o.inProgress = false
		o.mu.Unlock()
	}()

	o.logger.Info().Int("selected", len(ids)).Msg("Starting batch compression")

	result := BatchResult{Selected: len(ids)}
	for _, id := range ids {
		item, ok := o.registry.Get(id)
		if !ok {
			// Removed after selection; nothing to reconcile.
			o.logger.Debug().Str("item_id", id.String()).Msg("Selected item no longer in registry")
			continue
		}

		if err := o.registry.MarkProcessing(id); err != nil {
			o.logger.Warn().Err(err).Str("item_id", id.String()).Msg("Skipping item that left the eligible set")
			continue
		}

		start := time.Now()
		compressed, err := o.compressor.Compress(ctx, item.Source(), opts)
		if err != nil {
			o.logger.Error().Err(err).Str("item_id", id.String()).Str("file_name", item.FileName).Msg("Compression failed")
			tracing.RecordError(ctx, err)

			if markErr := o.registry.MarkError(id, err.Error()); markErr != nil {
				o.logger.Error().Err(markErr).Str("item_id", id.String()).Msg("Error recording failed compression")
			}
			metrics.RecordCompressionTime(ctx, string(registry.StatusError), start)
			result.Failed++
			continue
		}

		err = o.registry.MarkCompressed(id, registry.Result{
			Data:        compressed.Data,
			Size:        compressed.Size,
			Preview:     compressed.Preview,
			ContentType: compressed.ContentType,
		})
		if err != nil {
			o.logger.Error().Err(err).Str("item_id", id.String()).Msg("Error recording compression result")
			continue
		}

		metrics.RecordCompressionTime(ctx, string(registry.StatusCompressed), start)
		metrics.RecordSizeReduction(ctx, item.OriginalSize, compressed.Size)
		result.Compressed++

		o.logger.Info().
			Str("item_id", id.String()).
			Str("file_name", item.FileName).
			Int64("original_size", item.OriginalSize).
			Int64("compressed_size", compressed.Size).
			Msg("Item compressed")
	}

	o.logger.Info().
		Int("selected", result.Selected).
		Int("compressed", result.Compressed).
		Int("failed", result.Failed).
		Msg("Batch compression finished")

	return result, nil
}
