package api

import (
	"github.com/satriahrh/lingualverse/domain/entities"
	"github.com/satriahrh/lingualverse/internal/status"
)

// HealthResponse is returned by the health check
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Clients int    `json:"clients"`
}

// StatusResponse reports the last known gateway connectivity
type StatusResponse struct {
	Gateway status.Status `json:"gateway"`
	Label   string        `json:"label"`
}

// LanguagesResponse lists the selectable target languages
type LanguagesResponse struct {
	Default   string              `json:"default"`
	Languages []entities.Language `json:"languages"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
