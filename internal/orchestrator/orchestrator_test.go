package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/compressly/compressly/internal/compressor"
	"github.com/compressly/compressly/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCompressor fails inputs containing "bad" and records call order.
type fakeCompressor struct {
	mu      sync.Mutex
	inputs  []string
	release chan struct{}
}

func (f *fakeCompressor) Compress(ctx context.Context, data []byte, opts compressor.Options) (*compressor.Result, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, string(data))
	f.mu.Unlock()

	if f.release != nil {
		<-f.release
	}
	if strings.Contains(string(data), "bad") {
		return nil, errors.New("decode failed")
	}

	out := []byte("compressed:" + string(data))
	return &compressor.Result{Data: out, Size: int64(len(out)), ContentType: "image/jpeg"}, nil
}

func (f *fakeCompressor) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.inputs...)
}

func addImage(t *testing.T, reg *registry.Registry, name, payload string) registry.Item {
	t.Helper()
	item, err := reg.Add(name, "image/jpeg", []byte(payload))
	require.NoError(t, err)
	return item
}

func TestCompressAllProcessesEveryItemInOrder(t *testing.T) {
	reg := registry.New()
	addImage(t, reg, "a.jpg", "aaa")
	addImage(t, reg, "b.jpg", "bbb")
	addImage(t, reg, "c.jpg", "ccc")

	comp := &fakeCompressor{}
	orch := New(reg, comp, compressor.Options{})

	result, err := orch.CompressAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, BatchResult{Selected: 3, Compressed: 3, Failed: 0}, result)
	assert.Equal(t, []string{"aaa", "bbb", "ccc"}, comp.calls())

	for _, item := range reg.List() {
		assert.Equal(t, registry.StatusCompressed, item.Status())
	}
	assert.False(t, orch.InProgress())
}

func TestCompressAllContinuesPastFailures(t *testing.T) {
	reg := registry.New()
	addImage(t, reg, "ok1.jpg", "one")
	bad := addImage(t, reg, "broken.jpg", "bad")
	addImage(t, reg, "ok2.jpg", "two")

	orch := New(reg, &fakeCompressor{}, compressor.Options{})

	result, err := orch.CompressAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Selected: 3, Compressed: 2, Failed: 1}, result)

	item, ok := reg.Get(bad.ID)
	require.True(t, ok)
	assert.Equal(t, registry.StatusError, item.Status())
	message, ok := item.ErrorMessage()
	require.True(t, ok)
	assert.Equal(t, "decode failed", message)
}

func TestCompressAllRetriesOnlyEligibleItems(t *testing.T) {
	reg := registry.New()
	done := addImage(t, reg, "done.jpg", "fine")
	addImage(t, reg, "broken.jpg", "bad")

	comp := &fakeCompressor{}
	orch := New(reg, comp, compressor.Options{})

	_, err := orch.CompressAll(context.Background())
	require.NoError(t, err)

	// Second run re-selects only the failed item; compressed items are
	// idempotent.
	result, err := orch.CompressAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Selected: 1, Compressed: 0, Failed: 1}, result)
	assert.Equal(t, []string{"fine", "bad", "bad"}, comp.calls())

	item, ok := reg.Get(done.ID)
	require.True(t, ok)
	assert.Equal(t, registry.StatusCompressed, item.Status())
}

func TestCompressAllEmptySelectionIsNoOp(t *testing.T) {
	reg := registry.New()
	orch := New(reg, &fakeCompressor{}, compressor.Options{})

	result, err := orch.CompressAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BatchResult{}, result)
	assert.False(t, orch.InProgress())
}

func TestCompressAllRejectsConcurrentRun(t *testing.T) {
	reg := registry.New()
	addImage(t, reg, "a.jpg", "aaa")

	comp := &fakeCompressor{release: make(chan struct{})}
	orch := New(reg, comp, compressor.Options{})

	started := make(chan struct{})
	finished := make(chan error, 1)
	go func() {
		close(started)
		_, err := orch.CompressAll(context.Background())
		finished <- err
	}()

	<-started
	require.Eventually(t, orch.InProgress, time.Second, time.Millisecond)

	_, err := orch.CompressAll(context.Background())
	assert.ErrorIs(t, err, ErrBatchInProgress)

	close(comp.release)
	require.NoError(t, <-finished)
	assert.False(t, orch.InProgress())
}

func TestCompressAllSkipsItemsRemovedAfterSelection(t *testing.T) {
	reg := registry.New()
	victim := addImage(t, reg, "victim.jpg", "vvv")
	addImage(t, reg, "keep.jpg", "kkk")

	comp := &fakeCompressor{release: make(chan struct{}, 2)}
	orch := New(reg, comp, compressor.Options{})

	done := make(chan BatchResult, 1)
	go func() {
		result, _ := orch.CompressAll(context.Background())
		done <- result
	}()

	require.Eventually(t, orch.InProgress, time.Second, time.Millisecond)
	reg.Remove(victim.ID)
	comp.release <- struct{}{}
	comp.release <- struct{}{}

	result := <-done
	assert.Equal(t, 2, result.Selected)
	// Whether the victim was compressed before removal depends on timing; the
	// surviving item always completes.
	assert.GreaterOrEqual(t, result.Compressed, 1)
}

func TestSetOptionsAppliesToNextRun(t *testing.T) {
	reg := registry.New()
	orch := New(reg, &fakeCompressor{}, compressor.Options{Quality: 80})

	opts := orch.Options()
	opts.Quality = 50
	orch.SetOptions(opts)

	assert.Equal(t, 50, orch.Options().Quality)
}
