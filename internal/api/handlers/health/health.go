package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"diet-chat/internal/core/gateway"
	"diet-chat/internal/core/session"
	"diet-chat/internal/infrastructure/config"
	"diet-chat/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime"`
	Sessions  int                    `json:"sessions"`
	Cache     string                 `json:"cache"`
}

// HealthCheck 健康檢查處理器
func HealthCheck(c *gin.Context) {
	cfg, exists := c.Get("config")
	if !exists {
		common.LogError("Configuration not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Configuration not found"})
		return
	}
	appConfig, ok := cfg.(*config.Config)
	if !ok {
		common.LogError("Invalid configuration type in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid configuration type"})
		return
	}

	sessions := 0
	if v, exists := c.Get("session_manager"); exists {
		if mgr, ok := v.(*session.Manager); ok {
			sessions = mgr.Count()
		}
	}

	cacheStatus := "disabled"
	if v, exists := c.Get("gateway_cache"); exists {
		if cache, ok := v.(*gateway.Cache); ok && cache != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := cache.Ping(ctx); err != nil {
				cacheStatus = "unreachable"
			} else {
				cacheStatus = "ok"
			}
		}
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   appConfig.App.Version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"go_version": runtime.Version(),
		},
		Sessions: sessions,
		Cache:    cacheStatus,
	})
}

// ReadinessCheck 就緒檢查處理器
func ReadinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now(),
	})
}

// LivenessCheck 存活檢查處理器
func LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now(),
	})
}
