package registry

import (
	"encoding/base64"
	"fmt"
	"math"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a tracked image item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompressed Status = "compressed"
	StatusError      Status = "error"
)

// Result holds the output of a successful compression. It is populated as a
// whole on the transition to StatusCompressed and never partially.
type Result struct {
	Data        []byte
	Size        int64
	Preview     string
	ContentType string
	Percent     int
}

// Item is a single user-supplied image tracked through the compression
// lifecycle. The status-dependent fields are unexported so a compressed item
// without its result (or vice versa) cannot be constructed outside this
// package.
type Item struct {
	ID              uuid.UUID
	FileName        string
	ContentType     string
	OriginalSize    int64
	OriginalPreview string

	source []byte
	status Status
	result *Result
	errMsg string
}

func newItem(fileName, contentType string, data []byte) Item {
	return Item{
		ID:              uuid.New(),
		FileName:        fileName,
		ContentType:     contentType,
		OriginalSize:    int64(len(data)),
		OriginalPreview: previewDataURI(contentType, data),
		source:          data,
		status:          StatusPending,
	}
}

// Status returns the current lifecycle state.
func (i *Item) Status() Status {
	return i.status
}

// Source returns the original image bytes. Callers must treat the slice as
// read-only.
func (i *Item) Source() []byte {
	return i.source
}

// Compressed returns the compression result. The second value is false unless
// the item is in StatusCompressed.
func (i *Item) Compressed() (Result, bool) {
	if i.status != StatusCompressed || i.result == nil {
		return Result{}, false
	}
	return *i.result, true
}

// ErrorMessage returns the failure description for an item in StatusError.
func (i *Item) ErrorMessage() (string, bool) {
	if i.status != StatusError {
		return "", false
	}
	return i.errMsg, true
}

// eligible reports whether the item is selectable for a batch run.
func (i *Item) eligible() bool {
	return i.status == StatusPending || i.status == StatusError
}

// compressionPercent is round((1 - compressedSize/originalSize) * 100),
// defined only for originalSize > 0.
func compressionPercent(originalSize, compressedSize int64) int {
	if originalSize <= 0 {
		return 0
	}
	return int(math.Round((1 - float64(compressedSize)/float64(originalSize)) * 100))
}

func previewDataURI(contentType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))
}
