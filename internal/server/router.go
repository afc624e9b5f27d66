package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/gracechapel/outreach-backend/internal/handlers"
)

type RouterConfig struct {
	IntakeHandler *handlers.IntakeHandler
	ReadyHandler  *handlers.ReadyHandler
	CORSOrigins   []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("outreach-backend"))

	if len(cfg.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
			AllowCredentials: true,
		}))
	}

	router.GET("/healthcheck", handlers.HealthCheck)
	router.GET("/ready", cfg.ReadyHandler.Ready)

	webhooks := router.Group("/webhooks")
	{
		webhooks.POST("/evangelism", cfg.IntakeHandler.Evangelism)
		webhooks.POST("/first-timer", cfg.IntakeHandler.FirstTimer)
		webhooks.POST("/returner", cfg.IntakeHandler.Returner)
		webhooks.POST("/program-session", cfg.IntakeHandler.ProgramSession)
	}

	return router
}
