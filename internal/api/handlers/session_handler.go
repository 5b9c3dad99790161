package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/compressly/compressly/internal/auth"
	"github.com/compressly/compressly/internal/bridge"
	"github.com/compressly/compressly/internal/export"
	"github.com/compressly/compressly/internal/logger"
	"github.com/compressly/compressly/internal/orchestrator"
	"github.com/compressly/compressly/internal/registry"
	"github.com/compressly/compressly/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SessionHandler struct {
	manager  *session.Manager
	exporter *export.Exporter
	bridge   *bridge.Bridge
	provider auth.Provider
}

func NewSessionHandler(
	manager *session.Manager,
	exporter *export.Exporter,
	bridgeClient *bridge.Bridge,
	provider auth.Provider,
) *SessionHandler {
	return &SessionHandler{
		manager:  manager,
		exporter: exporter,
		bridge:   bridgeClient,
		provider: provider,
	}
}

// ItemView is the JSON projection of a registry item. The compressed fields
// appear only for compressed items, the error message only for failed ones.
type ItemView struct {
	ID                 uuid.UUID `json:"id"`
	FileName           string    `json:"file_name"`
	ContentType        string    `json:"content_type"`
	OriginalSize       int64     `json:"original_size"`
	OriginalPreview    string    `json:"original_preview"`
	Status             string    `json:"status"`
	CompressedSize     int64     `json:"compressed_size,omitempty"`
	CompressedPreview  string    `json:"compressed_preview,omitempty"`
	CompressionPercent int       `json:"compression_percent,omitempty"`
	ErrorMessage       string    `json:"error_message,omitempty"`
}

func newItemView(item registry.Item) ItemView {
	view := ItemView{
		ID:              item.ID,
		FileName:        item.FileName,
		ContentType:     item.ContentType,
		OriginalSize:    item.OriginalSize,
		OriginalPreview: item.OriginalPreview,
		Status:          string(item.Status()),
	}

	if result, ok := item.Compressed(); ok {
		view.CompressedSize = result.Size
		view.CompressedPreview = result.Preview
		view.CompressionPercent = result.Percent
	}
	if message, ok := item.ErrorMessage(); ok {
		view.ErrorMessage = message
	}

	return view
}

// CreateSession starts a new compression session
func (h *SessionHandler) CreateSession(c *gin.Context) {
	s := h.manager.Create()
	c.JSON(http.StatusCreated, gin.H{"id": s.ID})
}

// DeleteSession discards a session and all of its local state
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
		return
	}

	h.manager.Remove(id)
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *SessionHandler) session(c *gin.Context) (*session.Session, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
		return nil, false
	}

	s, ok := h.manager.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return nil, false
	}
	return s, true
}

// AddImages adds uploaded files to the session registry. Files whose media
// type is not an image type are skipped silently.
func (h *SessionHandler) AddImages(c *gin.Context) {
	reqLogger := logger.FromContext(c.Request.Context())

	s, ok := h.session(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse multipart form"})
		return
	}

	fileHeaders := form.File["images"]
	if len(fileHeaders) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files provided"})
		return
	}

	files := make([]registry.File, 0, len(fileHeaders))
	for _, header := range fileHeaders {
		file, err := header.Open()
		if err != nil {
			reqLogger.Error().Err(err).Str("filename", header.Filename).Msg("Failed to open uploaded file")
			continue
		}

		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			reqLogger.Error().Err(err).Str("filename", header.Filename).Msg("Failed to read uploaded file")
			continue
		}

		files = append(files, registry.File{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	added := s.Registry.AddFiles(files)

	views := make([]ItemView, 0, len(added))
	for _, item := range added {
		views = append(views, newItemView(item))
	}

	reqLogger.Info().
		Str("session_id", s.ID.String()).
		Int("offered", len(fileHeaders)).
		Int("added", len(added)).
		Msg("Images added to session")

	c.JSON(http.StatusOK, gin.H{
		"added":   views,
		"skipped": len(fileHeaders) - len(added),
	})
}

// ListImages lists the session's items in insertion order
func (h *SessionHandler) ListImages(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	items := s.Registry.List()
	views := make([]ItemView, 0, len(items))
	for _, item := range items {
		views = append(views, newItemView(item))
	}

	c.JSON(http.StatusOK, gin.H{
		"images": views,
		"total":  len(views),
	})
}

// RemoveImage removes one item. Unknown image ids are a no-op.
func (h *SessionHandler) RemoveImage(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	imageID, err := uuid.Parse(c.Param("imageId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image ID"})
		return
	}

	s.Registry.Remove(imageID)
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// ClearImages removes every item from the session registry
func (h *SessionHandler) ClearImages(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	s.Registry.Clear()
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// Compress runs a batch over the session's pending and error items. Query
// parameters adjust the global quality/size setting for this and later runs.
func (h *SessionHandler) Compress(c *gin.Context) {
	reqLogger := logger.FromContext(c.Request.Context())

	s, ok := h.session(c)
	if !ok {
		return
	}

	opts := s.Orchestrator.Options()
	if quality, err := strconv.Atoi(c.DefaultQuery("quality", "0")); err == nil && quality > 0 && quality <= 100 {
		opts.Quality = quality
	}
	if dimension, err := strconv.Atoi(c.DefaultQuery("max_dimension", "0")); err == nil && dimension > 0 {
		opts.MaxDimension = dimension
	}
	if size, err := strconv.ParseInt(c.DefaultQuery("max_size_bytes", "0"), 10, 64); err == nil && size > 0 {
		opts.MaxSizeBytes = size
	}
	s.Orchestrator.SetOptions(opts)

	result, err := s.Orchestrator.CompressAll(c.Request.Context())
	if err != nil {
		if errors.Is(err, orchestrator.ErrBatchInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": "A batch is already in progress"})
			return
		}
		reqLogger.Error().Err(err).Str("session_id", s.ID.String()).Msg("Batch compression failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Batch compression failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// DownloadImage exports one compressed item to the export directory
func (h *SessionHandler) DownloadImage(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	imageID, err := uuid.Parse(c.Param("imageId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image ID"})
		return
	}

	item, ok := s.Registry.Get(imageID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
		return
	}

	path, err := h.exporter.Download(item)
	if err != nil {
		if errors.Is(err, export.ErrNotCompressed) {
			c.JSON(http.StatusConflict, gin.H{"error": "Image is not compressed"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Download failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"file": path})
}

// DownloadAll exports every compressed item. Zero compressed items yields
// zero files.
func (h *SessionHandler) DownloadAll(c *gin.Context) {
	reqLogger := logger.FromContext(c.Request.Context())

	s, ok := h.session(c)
	if !ok {
		return
	}

	paths, err := h.exporter.DownloadAll(s.Registry)
	if err != nil {
		reqLogger.Error().Err(err).Str("session_id", s.ID.String()).Msg("Batch export finished with failures")
	}

	if paths == nil {
		paths = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"files": paths,
		"total": len(paths),
	})
}

// SaveImage persists one compressed item for the authenticated user
func (h *SessionHandler) SaveImage(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	userID, signedIn := h.provider.Identify(c.Request)
	if !signedIn {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	imageID, err := uuid.Parse(c.Param("imageId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image ID"})
		return
	}

	item, ok := s.Registry.Get(imageID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
		return
	}

	result, err := h.bridge.Save(c.Request.Context(), item, userID)
	if err != nil {
		if errors.Is(err, bridge.ErrNotCompressed) {
			c.JSON(http.StatusConflict, gin.H{"error": "Image is not compressed"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// SaveAll persists every compressed item for the authenticated user,
// reporting per-item outcomes.
func (h *SessionHandler) SaveAll(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	userID, signedIn := h.provider.Identify(c.Request)
	if !signedIn {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	outcomes := h.bridge.SaveAll(c.Request.Context(), s.Registry, userID)

	c.JSON(http.StatusOK, gin.H{
		"outcomes": outcomes,
		"total":    len(outcomes),
	})
}
