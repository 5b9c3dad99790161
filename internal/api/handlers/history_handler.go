package handlers

import (
	"errors"
	"net/http"

	"github.com/compressly/compressly/internal/auth"
	"github.com/compressly/compressly/internal/history"
	"github.com/compressly/compressly/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type HistoryHandler struct {
	service  *history.Service
	provider auth.Provider
}

func NewHistoryHandler(service *history.Service, provider auth.Provider) *HistoryHandler {
	return &HistoryHandler{
		service:  service,
		provider: provider,
	}
}

// List returns the authenticated user's compression history, newest first
func (h *HistoryHandler) List(c *gin.Context) {
	userID, signedIn := h.provider.Identify(c.Request)
	if !signedIn {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	entries := h.service.ListForUser(c.Request.Context(), userID)

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"total":   len(entries),
	})
}

// Delete removes one history record together with its stored object
func (h *HistoryHandler) Delete(c *gin.Context) {
	reqLogger := logger.FromContext(c.Request.Context())

	userID, signedIn := h.provider.Identify(c.Request)
	if !signedIn {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid compression ID"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, id); err != nil {
		if errors.Is(err, history.ErrNotOwner) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Record does not belong to user"})
			return
		}
		reqLogger.Error().Err(err).Str("compression_id", id.String()).Msg("Failed to delete history record")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// Stats returns aggregate totals over the user's persisted compressions
func (h *HistoryHandler) Stats(c *gin.Context) {
	reqLogger := logger.FromContext(c.Request.Context())

	userID, signedIn := h.provider.Identify(c.Request)
	if !signedIn {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	stats, err := h.service.Stats(c.Request.Context(), userID)
	if err != nil {
		reqLogger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch user stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}
