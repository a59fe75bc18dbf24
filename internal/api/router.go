package api

import (
	"context"
	"net/http"
	"time"

	chatHandler "diet-chat/internal/api/handlers/chat"
	"diet-chat/internal/api/handlers/health"
	"diet-chat/internal/api/middleware"
	"diet-chat/internal/core/gateway"
	"diet-chat/internal/core/session"
	"diet-chat/internal/infrastructure/config"
	"diet-chat/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// 請求超時（後端推論最慢的一輪也要在這之內回來）
	timeoutDuration = 120 * time.Second
	// 請求體大小限制 (1MB)：純文字事件，不收圖片
	maxBodySize = 1 << 20
)

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, sessions *session.Manager, cache *gateway.Cache) (*gin.Engine, error) {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New()) // 自動生成請求 ID

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 請求體大小限制
	router.Use(middleware.BodySizeLimit(maxBodySize))

	// 限流
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	// 重送去重
	router.Use(middleware.Deduplication(cfg))

	// 全局中間件：設置超時和服務
	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Set("config", cfg)
		c.Set("session_manager", sessions)
		c.Set("gateway_cache", cache)

		c.Next()

		// 檢查是否超時
		if ctx.Err() == context.DeadlineExceeded {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetHeader("X-Request-ID")),
				zap.Duration("timeout", timeoutDuration),
			)
			c.JSON(http.StatusGatewayTimeout, gin.H{
				"error": "Request timeout",
				"code":  common.ErrCodeGatewayTimeout,
			})
			c.Abort()
			return
		}
	})

	// 健康檢查路由
	router.GET("/health", health.HealthCheck)
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	// API 路由組
	api := router.Group("/api/v1")
	{
		chatHandlerInstance := chatHandler.NewHandler(sessions)

		chatGroup := api.Group("/chat")
		{
			// 會話鑄造
			chatGroup.POST("/session", chatHandlerInstance.HandleCreateSession)

			// 對話事件
			chatGroup.POST("/message", chatHandlerInstance.HandleMessage)
			chatGroup.POST("/meal-type", chatHandlerInstance.HandleMealType)

			// 引導烹飪流程事件
			chatGroup.POST("/recipe/select", chatHandlerInstance.HandleSelectRecipe)
			chatGroup.POST("/recipe/ingredients", chatHandlerInstance.HandleChecklist)
			chatGroup.POST("/cooking/advance", chatHandlerInstance.HandleAdvance)
			chatGroup.POST("/record", chatHandlerInstance.HandleRecord)

			// 重連後重繪
			chatGroup.GET("/:sessionID/transcript", chatHandlerInstance.HandleTranscript)
		}
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
		zap.Duration("timeout", timeoutDuration),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router, nil
}
