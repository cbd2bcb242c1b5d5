package router

import (
	"github.com/gin-gonic/gin"

	"repogator.app/relay/internal/http/handler/webhook"
)

func WebhookRouter(rg *gin.RouterGroup, h *webhook.GitHubWebhookHandler) {
	rg.POST("", h.HandleLegacy)
	rg.POST("/:owner/:repo", h.HandleTenant)
}
