package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"pulseboard/internal/database"
	"pulseboard/internal/services"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	db      *database.DB
	dataset *services.DatasetService
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *database.DB, dataset *services.DatasetService) *HealthHandler {
	return &HealthHandler{db: db, dataset: dataset}
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	dbStatus := "disabled"
	if h.db != nil {
		dbStatus = "healthy"
		if err := h.db.PingContext(c.Context()); err != nil {
			dbStatus = "unreachable"
		}
	}

	datasetStatus := "healthy"
	if _, err := h.dataset.Load(); err != nil {
		datasetStatus = "unavailable"
	}

	return c.JSON(fiber.Map{
		"status":    "healthy",
		"database":  dbStatus,
		"dataset":   datasetStatus,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
