package webhook

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"repogator.app/relay/common/logger"
	"repogator.app/relay/internal/http/dto"
	"repogator.app/relay/internal/mapper"
	"repogator.app/relay/internal/model"
	"repogator.app/relay/internal/service"
	"repogator.app/relay/internal/signature"
)

const DeliveryHeader = "X-GitHub-Delivery"

type Config struct {
	// LegacySecret verifies the global route; empty disables it.
	LegacySecret string
	MaxBodyBytes int64
	TraceHeader  string
}

type GitHubWebhookHandler struct {
	eventIngest service.EventIngestService
	tenants     service.TenantService
	mapper      mapper.EventMapper
	cfg         Config
}

func NewGitHubWebhookHandler(eventIngest service.EventIngestService, tenants service.TenantService, mapper mapper.EventMapper, cfg Config) *GitHubWebhookHandler {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 25 << 20
	}
	return &GitHubWebhookHandler{
		eventIngest: eventIngest,
		tenants:     tenants,
		mapper:      mapper,
		cfg:         cfg,
	}
}

// HandleTenant serves POST /webhook/:owner/:repo, verified with the secret
// registered for that repository.
func (h *GitHubWebhookHandler) HandleTenant(c *gin.Context) {
	ctx := c.Request.Context()
	repoFullName := c.Param("owner") + "/" + c.Param("repo")

	repo, err := h.tenants.ResolveRepo(ctx, repoFullName)
	if err != nil {
		if errors.Is(err, service.ErrTenantNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown repository"})
			return
		}
		slog.ErrorContext(ctx, "failed to resolve repository", "error", err, "repo", repoFullName)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve repository"})
		return
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{TenantID: &repo.TenantID, Component: "relay.webhook"})
	c.Request = c.Request.WithContext(ctx)

	body, ok := h.readVerified(c, repo.WebhookSecret)
	if !ok {
		return
	}

	mapping, ok := h.classify(c, body)
	if !ok {
		return
	}
	if mapping.RepoFullName != "" && !strings.EqualFold(mapping.RepoFullName, repoFullName) {
		slog.WarnContext(ctx, "payload repository differs from route",
			"route_repo", repoFullName,
			"payload_repo", mapping.RepoFullName)
	}

	h.ingest(c, body, mapping.Kind, repoFullName, &repo.TenantID)
}

// HandleLegacy serves POST /webhook for installations that predate per-tenant
// secrets. The tenant is taken from the payload's repository when one is registered.
func (h *GitHubWebhookHandler) HandleLegacy(c *gin.Context) {
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{Component: "relay.webhook"})
	c.Request = c.Request.WithContext(ctx)

	if h.cfg.LegacySecret == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "webhook secret not configured"})
		return
	}

	body, ok := h.readVerified(c, h.cfg.LegacySecret)
	if !ok {
		return
	}

	mapping, ok := h.classify(c, body)
	if !ok {
		return
	}

	var tenantID *int64
	if mapping.RepoFullName != "" {
		repo, err := h.tenants.ResolveRepo(ctx, mapping.RepoFullName)
		switch {
		case err == nil:
			tenantID = &repo.TenantID
		case errors.Is(err, service.ErrTenantNotFound):
			slog.DebugContext(ctx, "no tenant for repository, ingesting unscoped", "repo", mapping.RepoFullName)
		default:
			slog.ErrorContext(ctx, "failed to resolve repository", "error", err, "repo", mapping.RepoFullName)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve repository"})
			return
		}
	}

	h.ingest(c, body, mapping.Kind, mapping.RepoFullName, tenantID)
}

// readVerified reads the size-limited body and checks its signature before
// anything looks at the content.
func (h *GitHubWebhookHandler) readVerified(c *gin.Context, secret string) ([]byte, bool) {
	ctx := c.Request.Context()

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxBodyBytes)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
			return nil, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return nil, false
	}

	if err := signature.Verify(secret, body, c.GetHeader(signature.HeaderName)); err != nil {
		slog.WarnContext(ctx, "webhook signature rejected",
			"reason", err,
			"delivery_id", c.GetHeader(DeliveryHeader))
		msg := "invalid signature"
		if errors.Is(err, signature.ErrMissingSignature) {
			msg = "missing signature"
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": msg})
		return nil, false
	}

	return body, true
}

func (h *GitHubWebhookHandler) classify(c *gin.Context, body []byte) (mapper.Mapping, bool) {
	ctx := c.Request.Context()

	headers := map[string]string{
		mapper.GitHubEventHeader: c.GetHeader(mapper.GitHubEventHeader),
	}

	mapping, err := h.mapper.Map(ctx, body, headers)
	if err != nil {
		slog.WarnContext(ctx, "unclassifiable webhook", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return mapper.Mapping{}, false
	}
	if mapping.Ignore {
		slog.InfoContext(ctx, "webhook acknowledged without ingest", "event", mapping.Kind)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return mapper.Mapping{}, false
	}
	return mapping, true
}

func (h *GitHubWebhookHandler) ingest(c *gin.Context, body []byte, kind model.EventKind, repoFullName string, tenantID *int64) {
	ctx := c.Request.Context()

	result, err := h.eventIngest.Ingest(ctx, service.EventIngestParams{
		TenantID:     tenantID,
		Payload:      body,
		DeliveryID:   c.GetHeader(DeliveryHeader),
		RepoFullName: repoFullName,
		Kind:         kind,
		TraceID:      h.traceID(c),
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidPayload) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.ErrorContext(ctx, "failed to ingest webhook", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store event"})
		return
	}

	c.JSON(http.StatusAccepted, dto.WebhookAcceptedResponse{
		Status:     "accepted",
		EventID:    result.Event.ID,
		DeliveryID: result.Event.DeliveryID,
		Duplicate:  result.Duplicate,
		Enqueued:   result.Enqueued,
	})
}

func (h *GitHubWebhookHandler) traceID(c *gin.Context) string {
	if h.cfg.TraceHeader != "" {
		if id := c.GetHeader(h.cfg.TraceHeader); id != "" {
			return id
		}
	}
	return logger.TraceIDFromContext(c.Request.Context())
}
