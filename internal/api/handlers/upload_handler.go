package handlers

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/compressly/compressly/internal/auth"
	"github.com/compressly/compressly/internal/bridge"
	"github.com/compressly/compressly/internal/logger"
	"github.com/compressly/compressly/internal/storage"
	"github.com/gin-gonic/gin"
)

// maxUploadSize bounds a single uploaded file.
const maxUploadSize = 10 * 1024 * 1024 // 10 MB

type UploadHandler struct {
	store    storage.Client
	provider auth.Provider
}

func NewUploadHandler(store storage.Client, provider auth.Provider) *UploadHandler {
	return &UploadHandler{
		store:    store,
		provider: provider,
	}
}

// UploadData is the payload of a successful direct upload.
type UploadData struct {
	Path         string `json:"path"`
	FullFileName string `json:"fullFileName"`
	FullPath     string `json:"fullPath"`
}

// UploadResponse is the direct upload response envelope.
type UploadResponse struct {
	Success bool       `json:"success"`
	Data    UploadData `json:"data"`
}

// Upload accepts a multipart file with a claimed user identity and stores it
// remotely. The caller's authenticated identity must match the claimed one.
func (h *UploadHandler) Upload(c *gin.Context) {
	reqLogger := logger.FromContext(c.Request.Context())

	userID, signedIn := h.provider.Identify(c.Request)
	if !signedIn {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	clientUserID := c.PostForm("userId")
	if userID != clientUserID {
		reqLogger.Warn().Str("user_id", userID).Str("claimed_user_id", clientUserID).Msg("User ID mismatch on upload")
		c.JSON(http.StatusForbidden, gin.H{"error": "User ID mismatch"})
		return
	}

	if header.Size > maxUploadSize {
		reqLogger.Error().Str("filename", header.Filename).Int64("size", header.Size).Msg("File too large")
		c.JSON(http.StatusBadRequest, gin.H{"error": "File too large, max 10MB"})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		reqLogger.Error().Err(err).Str("filename", header.Filename).Msg("Failed to read uploaded file")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	fileName := bridge.ObjectName(time.Now(), header.Filename)

	err = h.store.Upload(c.Request.Context(), bytes.NewReader(data), fileName, contentType)
	if err != nil {
		reqLogger.Error().Err(err).Str("filename", header.Filename).Msg("Failed to upload file to storage")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload failed"})
		return
	}

	reqLogger.Info().Str("user_id", userID).Str("object", fileName).Msg("File uploaded")

	c.JSON(http.StatusOK, UploadResponse{
		Success: true,
		Data: UploadData{
			Path:         fileName,
			FullFileName: fileName,
			FullPath:     fileName,
		},
	})
}
