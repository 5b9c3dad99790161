package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/compressly/compressly/config"
	"github.com/compressly/compressly/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExporter(t *testing.T) *Exporter {
	t.Helper()
	return New(&config.ExportConfig{Directory: t.TempDir()})
}

func compressedItem(t *testing.T, reg *registry.Registry, name string, data []byte) registry.Item {
	t.Helper()

	item, err := reg.Add(name, "image/jpeg", make([]byte, 2*len(data)))
	require.NoError(t, err)
	require.NoError(t, reg.MarkProcessing(item.ID))
	require.NoError(t, reg.MarkCompressed(item.ID, registry.Result{
		Data:        data,
		Size:        int64(len(data)),
		ContentType: "image/jpeg",
	}))

	got, ok := reg.Get(item.ID)
	require.True(t, ok)
	return got
}

func TestDownloadWritesCompressedBytes(t *testing.T) {
	reg := registry.New()
	item := compressedItem(t, reg, "holiday.jpg", []byte("compressed-bytes"))

	exporter := newTestExporter(t)

	path, err := exporter.Download(item)
	require.NoError(t, err)

	assert.Equal(t, "holiday_compressed.jpg", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("compressed-bytes"), data)
}

func TestDownloadRejectsUncompressedItem(t *testing.T) {
	reg := registry.New()
	item, err := reg.Add("pending.jpg", "image/jpeg", []byte("x"))
	require.NoError(t, err)

	exporter := newTestExporter(t)

	_, err = exporter.Download(item)
	assert.ErrorIs(t, err, ErrNotCompressed)
}

func TestDownloadAllWithNoCompressedItemsIsNoOp(t *testing.T) {
	reg := registry.New()
	_, err := reg.Add("pending.jpg", "image/jpeg", []byte("x"))
	require.NoError(t, err)

	exporter := newTestExporter(t)

	paths, err := exporter.DownloadAll(reg)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestDownloadAllExportsEveryCompressedItem(t *testing.T) {
	reg := registry.New()
	compressedItem(t, reg, "a.png", []byte("aaa"))
	compressedItem(t, reg, "b.jpg", []byte("bbb"))
	_, err := reg.Add("pending.jpg", "image/jpeg", []byte("x"))
	require.NoError(t, err)

	exporter := newTestExporter(t)

	paths, err := exporter.DownloadAll(reg)
	require.NoError(t, err)

	require.Len(t, paths, 2)
	assert.Equal(t, "a_compressed.png", filepath.Base(paths[0]))
	assert.Equal(t, "b_compressed.jpg", filepath.Base(paths[1]))
}

func TestDownloadFileName(t *testing.T) {
	assert.Equal(t, "photo_compressed.jpg", downloadFileName("photo.jpg"))
	assert.Equal(t, "archive.tar_compressed.png", downloadFileName("archive.tar.png"))
	assert.Equal(t, "noext_compressed.jpg", downloadFileName("noext"))
}
