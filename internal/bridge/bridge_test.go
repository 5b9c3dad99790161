package bridge

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/compressly/compressly/internal/db/models"
	"github.com/compressly/compressly/internal/registry"
	"github.com/compressly/compressly/internal/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	uploads   []string
	uploadErr error
}

func (f *fakeStore) Upload(ctx context.Context, reader io.Reader, objectName, contentType string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploads = append(f.uploads, objectName)
	return nil
}

func (f *fakeStore) Get(ctx context.Context, objectName string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeStore) Delete(ctx context.Context, objectName string) error { return nil }
func (f *fakeStore) ObjectURL(ctx context.Context, objectName string) (string, error) {
	return "http://example.test/" + objectName, nil
}
func (f *fakeStore) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	return nil, nil
}
func (f *fakeStore) Diagnose(ctx context.Context) error { return nil }
func (f *fakeStore) Close() error                       { return nil }

type fakeRepo struct {
	created   []*models.Compression
	createErr error
}

func (f *fakeRepo) CreateCompression(ctx context.Context, compression *models.Compression) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, compression)
	return nil
}

func (f *fakeRepo) GetCompressionByID(ctx context.Context, id uuid.UUID) (*models.Compression, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeRepo) ListCompressionsByUser(ctx context.Context, userID string) ([]*models.Compression, error) {
	return nil, nil
}
func (f *fakeRepo) DeleteCompression(ctx context.Context, id uuid.UUID) error { return nil }
func (f *fakeRepo) StatsByUser(ctx context.Context, userID string) (*models.UserStats, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeRepo) Ping(ctx context.Context) error { return nil }
func (f *fakeRepo) Close() error                   { return nil }

func compressedItem(t *testing.T, reg *registry.Registry, name string) registry.Item {
	t.Helper()

	item, err := reg.Add(name, "image/jpeg", make([]byte, 200))
	require.NoError(t, err)
	require.NoError(t, reg.MarkProcessing(item.ID))
	require.NoError(t, reg.MarkCompressed(item.ID, registry.Result{
		Data:        make([]byte, 50),
		Size:        50,
		ContentType: "image/jpeg",
	}))

	got, ok := reg.Get(item.ID)
	require.True(t, ok)
	return got
}

func newTestBridge(store *fakeStore, repo *fakeRepo) *Bridge {
	b := New(store, repo)
	b.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return b
}

func TestSavePersistsUploadAndRecord(t *testing.T) {
	reg := registry.New()
	item := compressedItem(t, reg, "my photo.jpg")

	store := &fakeStore{}
	repo := &fakeRepo{}
	b := newTestBridge(store, repo)

	result, err := b.Save(context.Background(), item, "user-1")
	require.NoError(t, err)

	assert.Equal(t, "1700000000000_my_photo.jpg", result.ObjectName)
	assert.Equal(t, []string{"1700000000000_my_photo.jpg"}, store.uploads)

	require.Len(t, repo.created, 1)
	record := repo.created[0]
	assert.Equal(t, "user-1", record.UserID)
	assert.Equal(t, int64(200), record.OriginalSize)
	assert.Equal(t, int64(50), record.CompressedSize)
	assert.Equal(t, 75, record.CompressionRate)
	assert.Equal(t, "jpg", record.ImageType)
	assert.Same(t, record, result.Record)
}

func TestSaveRejectsUncompressedItem(t *testing.T) {
	reg := registry.New()
	item, err := reg.Add("pending.jpg", "image/jpeg", []byte("x"))
	require.NoError(t, err)

	b := newTestBridge(&fakeStore{}, &fakeRepo{})

	_, err = b.Save(context.Background(), item, "user-1")
	assert.ErrorIs(t, err, ErrNotCompressed)
}

func TestSaveUploadFailure(t *testing.T) {
	reg := registry.New()
	item := compressedItem(t, reg, "photo.jpg")

	uploadErr := errors.New("connection refused")
	b := newTestBridge(&fakeStore{uploadErr: uploadErr}, &fakeRepo{})

	_, err := b.Save(context.Background(), item, "user-1")

	var saveErr *SaveError
	require.ErrorAs(t, err, &saveErr)
	assert.Equal(t, StageUpload, saveErr.Stage)
	assert.ErrorIs(t, err, uploadErr)
}

func TestSaveRecordFailureLeavesUploadBehind(t *testing.T) {
	reg := registry.New()
	item := compressedItem(t, reg, "photo.jpg")

	store := &fakeStore{}
	insertErr := errors.New("insert failed")
	b := newTestBridge(store, &fakeRepo{createErr: insertErr})

	_, err := b.Save(context.Background(), item, "user-1")

	var saveErr *SaveError
	require.ErrorAs(t, err, &saveErr)
	assert.Equal(t, StageRecord, saveErr.Stage)
	assert.ErrorIs(t, err, insertErr)

	// The object was uploaded before the insert failed; it is not rolled
	// back.
	assert.Len(t, store.uploads, 1)
}

func TestSaveAllAttemptsEveryCompressedItem(t *testing.T) {
	reg := registry.New()
	first := compressedItem(t, reg, "first.jpg")
	_, err := reg.Add("pending.jpg", "image/jpeg", []byte("x"))
	require.NoError(t, err)
	second := compressedItem(t, reg, "second.jpg")

	repo := &fakeRepo{}
	b := newTestBridge(&fakeStore{}, repo)

	outcomes := b.SaveAll(context.Background(), reg, "user-1")

	require.Len(t, outcomes, 2)
	assert.Equal(t, first.ID, outcomes[0].ItemID)
	assert.Equal(t, second.ID, outcomes[1].ItemID)
	for _, outcome := range outcomes {
		assert.Empty(t, outcome.Error)
		assert.NotNil(t, outcome.Result)
	}
	assert.Len(t, repo.created, 2)
}

func TestSaveAllReportsPerItemFailures(t *testing.T) {
	reg := registry.New()
	compressedItem(t, reg, "a.jpg")
	compressedItem(t, reg, "b.jpg")

	b := newTestBridge(&fakeStore{uploadErr: errors.New("down")}, &fakeRepo{})

	outcomes := b.SaveAll(context.Background(), reg, "user-1")

	require.Len(t, outcomes, 2)
	for _, outcome := range outcomes {
		assert.Nil(t, outcome.Result)
		assert.Contains(t, outcome.Error, "upload")
	}
}

func TestObjectName(t *testing.T) {
	now := time.UnixMilli(42)

	assert.Equal(t, "42_photo.jpg", ObjectName(now, "photo.jpg"))
	assert.Equal(t, "42_my_holiday_photo.jpg", ObjectName(now, "my  holiday\tphoto.jpg"))
	assert.Equal(t, "42_photo1.jpg", ObjectName(now, "photo#€1.jpg"))
}
