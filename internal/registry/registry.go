package registry

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrNotImage is returned when the declared media type is not an image
	// type. Multi-file intake skips such files silently.
	ErrNotImage = errors.New("not an image media type")

	// ErrUnknownItem is returned by status transitions for an id that is not
	// in the registry.
	ErrUnknownItem = errors.New("item not found in registry")

	// ErrInvalidTransition is returned when a status transition would skip a
	// state or revisit a terminal one.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// File is a raw intake candidate offered by the upload surface.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Registry is the ordered collection of image items for one session. It is
// the sole owner of item state; the orchestrator, export and persistence
// layers read snapshots and propose updates through its methods. A Registry
// must be created per session, never shared process-wide.
type Registry struct {
	mu    sync.Mutex
	items []*Item
	index map[uuid.UUID]*Item
}

func New() *Registry {
	return &Registry{
		index: make(map[uuid.UUID]*Item),
	}
}

// Add creates a pending item from an uploaded file. Files whose declared
// media type does not begin with "image/" are rejected with ErrNotImage.
func (r *Registry) Add(fileName, contentType string, data []byte) (Item, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return Item{}, fmt.Errorf("%w: %s", ErrNotImage, contentType)
	}

	item := newItem(fileName, contentType, data)

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := item
	r.items = append(r.items, &stored)
	r.index[stored.ID] = &stored

	return item, nil
}

// AddFiles adds every image file from the intake set, silently skipping
// non-image files. Added items are returned in intake order.
func (r *Registry) AddFiles(files []File) []Item {
	added := make([]Item, 0, len(files))
	for _, f := range files {
		item, err := r.Add(f.Name, f.ContentType, f.Data)
		if err != nil {
			continue
		}
		added = append(added, item)
	}
	return added
}

// Get returns a snapshot of the item with the given id.
func (r *Registry) Get(id uuid.UUID) (Item, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.index[id]
	if !ok {
		return Item{}, false
	}
	return *item, true
}

// List returns item snapshots in insertion order.
func (r *Registry) List() []Item {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Item, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, *item)
	}
	return out
}

// Len returns the number of tracked items.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// EligibleIDs returns the ids of pending and error items in insertion order.
// This is the batch selection set computed at the start of a run.
func (r *Registry) EligibleIDs() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(r.items))
	for _, item := range r.items {
		if item.eligible() {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

// CompressedItems returns snapshots of compressed items in insertion order.
func (r *Registry) CompressedItems() []Item {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Item, 0, len(r.items))
	for _, item := range r.items {
		if item.status == StatusCompressed {
			out = append(out, *item)
		}
	}
	return out
}

// Remove deletes the item with the given id. Removing an unknown id is a
// no-op.
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[id]; !ok {
		return
	}
	delete(r.index, id)
	for n, item := range r.items {
		if item.ID == id {
			r.items = append(r.items[:n], r.items[n+1:]...)
			break
		}
	}
}

// Clear removes every item.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = nil
	r.index = make(map[uuid.UUID]*Item)
}

// MarkProcessing transitions a pending or error item to processing. Error
// items re-enter processing on retry; no transition skips this state.
func (r *Registry) MarkProcessing(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	if !item.eligible() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, item.status, StatusProcessing)
	}

	item.status = StatusProcessing
	item.result = nil
	item.errMsg = ""
	return nil
}

// MarkCompressed transitions a processing item to compressed and records its
// result, deriving the compression percentage from the exact output size.
func (r *Registry) MarkCompressed(id uuid.UUID, result Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	if item.status != StatusProcessing {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, item.status, StatusCompressed)
	}

	result.Percent = compressionPercent(item.OriginalSize, result.Size)
	item.status = StatusCompressed
	item.result = &result
	item.errMsg = ""
	return nil
}

// MarkError transitions a processing item to error with a failure message.
func (r *Registry) MarkError(id uuid.UUID, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	if item.status != StatusProcessing {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, item.status, StatusError)
	}

	item.status = StatusError
	item.result = nil
	item.errMsg = message
	return nil
}
