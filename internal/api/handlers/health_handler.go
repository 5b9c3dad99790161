package handlers

import (
	"net/http"
	"time"

	"github.com/compressly/compressly/internal/db"
	"github.com/compressly/compressly/internal/logger"
	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	repo db.Repository
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	DB        string    `json:"db"`
}

func NewHealthHandler(repo db.Repository) *HealthHandler {
	return &HealthHandler{
		repo: repo,
	}
}

// Check handles health check requests
func (h *HealthHandler) Check(c *gin.Context) {
	reqLogger := logger.FromContext(c.Request.Context())

	response := HealthResponse{
		Status:    "UP",
		Timestamp: time.Now(),
		Version:   "1.0.0",
		DB:        "UP",
	}

	err := h.repo.Ping(c.Request.Context())
	if err != nil {
		reqLogger.Error().Err(err).Msg("Database health check failed")
		response.Status = "DEGRADED"
		response.DB = "DOWN"
	}

	c.JSON(http.StatusOK, response)
}
