package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/convert-toolkit/internal/models"
	"github.com/phambaophuc/convert-toolkit/internal/services/preferences"
	"go.uber.org/zap"
)

// PreferenceSource supplies the stored tool defaults.
type PreferenceSource interface {
	Get(ctx context.Context) (*models.Preferences, error)
}

// loadDefaults returns the stored defaults, or the built-in ones when src is
// nil or fails.
func loadDefaults(ctx context.Context, src PreferenceSource, logger *zap.Logger) models.Preferences {
	if src == nil {
		return preferences.Defaults()
	}
	prefs, err := src.Get(ctx)
	if err != nil {
		logger.Warn("Failed to load preferences, using defaults", zap.Error(err))
		return preferences.Defaults()
	}
	return *prefs
}

type PreferencesHandler struct {
	service *preferences.Service
	logger  *zap.Logger
}

func NewPreferencesHandler(service *preferences.Service, logger *zap.Logger) *PreferencesHandler {
	return &PreferencesHandler{service: service, logger: logger}
}

func (h *PreferencesHandler) Get(c *gin.Context) {
	prefs, err := h.service.Get(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, prefs)
}

func (h *PreferencesHandler) Update(c *gin.Context) {
	var data map[string]interface{}
	if err := bindJSON(c, &data); err != nil {
		respondError(c, err)
		return
	}

	prefs, err := h.service.Update(c.Request.Context(), data)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, prefs)
}

func (h *PreferencesHandler) Reset(c *gin.Context) {
	prefs, err := h.service.Reset(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, prefs)
}
