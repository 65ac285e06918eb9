package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/lingualverse/domain/entities"
	"github.com/satriahrh/lingualverse/internal/audio"
	"github.com/satriahrh/lingualverse/internal/status"
	"github.com/satriahrh/lingualverse/internal/websocket"
)

// StatusSource exposes the last observed gateway status
type StatusSource interface {
	Current() status.Status
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, hub *websocket.Hub, monitor StatusSource, clips *audio.Library, logger *zap.Logger) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{
			Status:  "ok",
			Service: "lingualverse",
			Clients: hub.ClientCount(),
		})
	})

	v1 := e.Group("/api/v1")

	v1.GET("/status", func(c echo.Context) error {
		current := monitor.Current()
		return c.JSON(http.StatusOK, StatusResponse{Gateway: current, Label: current.Label()})
	})

	v1.GET("/languages", getLanguages)

	// Clips synthesized locally are served from memory
	e.GET("/audio/:id", func(c echo.Context) error {
		return getAudio(c, clips, logger)
	})

	e.GET("/ws", func(c echo.Context) error {
		return websocket.HandleWebSocket(hub, c, logger)
	})
}

func getLanguages(c echo.Context) error {
	return c.JSON(http.StatusOK, LanguagesResponse{
		Default:   entities.DefaultLanguage,
		Languages: entities.SupportedLanguages,
	})
}

func getAudio(c echo.Context, clips *audio.Library, logger *zap.Logger) error {
	id := c.Param("id")

	clip, err := clips.Get(id)
	if errors.Is(err, audio.ErrClipNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "clip_not_found",
			Message: "Audio clip expired or never existed",
		})
	}
	if err != nil {
		logger.Error("Failed to load audio clip", zap.String("clipID", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to load audio clip",
		})
	}

	c.Response().Header().Set("Cache-Control", "private, max-age=3600")
	return c.Blob(http.StatusOK, clip.ContentType, clip.Data)
}
