package router

import (
	"github.com/gin-gonic/gin"

	"repogator.app/relay/internal/http/handler"
	"repogator.app/relay/internal/http/handler/webhook"
	"repogator.app/relay/internal/mapper"
	"repogator.app/relay/internal/service"
)

type RouterConfig struct {
	Webhook     webhook.Config
	TraceHeader string
	AdminAPIKey string
	Checks      map[string]handler.Check
	Readiness   handler.ReadinessProbe
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	HealthRouter(router, handler.NewHealthHandler(cfg.Checks, cfg.Readiness))

	webhookHandler := webhook.NewGitHubWebhookHandler(
		services.Ingest(),
		services.Tenants(),
		mapper.NewGitHubEventMapper(),
		cfg.Webhook,
	)
	WebhookRouter(router.Group("/webhook"), webhookHandler)

	v1 := router.Group("/api/v1")
	{
		eventHandler := handler.NewEventHandler(services.Events(), cfg.TraceHeader)
		AdminRouter(v1.Group("/admin"), cfg.AdminAPIKey, eventHandler)
	}
}

// SetupHealthRoutes is the listener the headless worker exposes.
func SetupHealthRoutes(router *gin.Engine, checks map[string]handler.Check, readiness handler.ReadinessProbe) {
	HealthRouter(router, handler.NewHealthHandler(checks, readiness))
}

func HealthRouter(router *gin.Engine, h *handler.HealthHandler) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}
