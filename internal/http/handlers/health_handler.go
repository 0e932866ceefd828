package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/convert-toolkit/internal/models"
	"go.uber.org/zap"
)

// ServiceChecker reports the health of backing services by name.
type ServiceChecker interface {
	HealthCheck(ctx context.Context) map[string]string
}

type HealthHandler struct {
	services []ServiceChecker
	engines  func() map[string]bool
	authMode func() string
}

func NewHealthHandler(engines func() map[string]bool, authMode func() string, services ...ServiceChecker) *HealthHandler {
	return &HealthHandler{services: services, engines: engines, authMode: authMode}
}

// HealthCheck reports backing services and installed engines. Missing
// engines only disable their tools and do not make the toolkit unhealthy.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	status := make(map[string]string)
	for _, s := range h.services {
		if s == nil {
			continue
		}
		for name, st := range s.HealthCheck(c.Request.Context()) {
			status[name] = st
		}
	}
	overall := calculateOverallHealth(status)

	statusCode := http.StatusOK
	if overall == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	check := models.HealthCheck{
		Status:    overall,
		Timestamp: time.Now(),
		Services:  status,
	}
	if h.engines != nil {
		check.Engines = h.engines()
	}
	if h.authMode != nil {
		check.AuthMode = h.authMode()
	}

	c.JSON(statusCode, models.APIResponse{
		Success: overall == "healthy",
		Data:    check,
	})
}

func calculateOverallHealth(services map[string]string) string {
	for _, status := range services {
		if status != "healthy" && status != "not configured" {
			return "unhealthy"
		}
	}
	return "healthy"
}

// CheckFunc adapts a function to ServiceChecker.
type CheckFunc func(ctx context.Context) map[string]string

func (f CheckFunc) HealthCheck(ctx context.Context) map[string]string { return f(ctx) }

type CacheAdmin interface {
	GetCacheStats(ctx context.Context) (map[string]interface{}, error)
	CleanupCache(ctx context.Context) (int64, error)
}

type QueueStats interface {
	GetQueueStats() map[string]interface{}
}

type StatsHandler struct {
	cache  CacheAdmin
	queue  QueueStats
	logger *zap.Logger
}

func NewStatsHandler(cache CacheAdmin, queue QueueStats, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{cache: cache, queue: queue, logger: logger}
}

func (h *StatsHandler) GetStats(c *gin.Context) {
	cacheStats, err := h.cache.GetCacheStats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get cache stats", zap.Error(err))
	}

	respondOK(c, gin.H{
		"cache":     cacheStats,
		"queue":     h.queue.GetQueueStats(),
		"timestamp": time.Now(),
	})
}

// ClearCache drops every cached image result.
func (h *StatsHandler) ClearCache(c *gin.Context) {
	removed, err := h.cache.CleanupCache(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	h.logger.Info("Cache cleared", zap.Int64("removed", removed))
	respondOK(c, gin.H{"removed": removed})
}
