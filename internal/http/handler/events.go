package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"repogator.app/relay/common/logger"
	"repogator.app/relay/internal/http/dto"
	"repogator.app/relay/internal/model"
	"repogator.app/relay/internal/service"
)

// EventHandler serves the admin view of the event store.
type EventHandler struct {
	events      service.EventService
	traceHeader string
}

func NewEventHandler(events service.EventService, traceHeader string) *EventHandler {
	return &EventHandler{events: events, traceHeader: traceHeader}
}

func (h *EventHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	var q dto.ListEventsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var status *model.EventStatus
	if q.Status != "" {
		s := model.EventStatus(q.Status)
		status = &s
	}

	events, err := h.events.List(ctx, status, q.Limit)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPayload) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.ErrorContext(ctx, "failed to list events", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list events"})
		return
	}

	c.JSON(http.StatusOK, dto.ToListEventsResponse(events))
}

func (h *EventHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	counts, err := h.events.Stats(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count events", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count events"})
		return
	}

	c.JSON(http.StatusOK, dto.ToEventStatsResponse(counts))
}

func (h *EventHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := eventID(c)
	if !ok {
		return
	}

	detail, err := h.events.Get(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to get event", "error", err, "event_id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get event"})
		return
	}

	c.JSON(http.StatusOK, dto.ToEventDetailResponse(detail))
}

func (h *EventHandler) GetByDelivery(c *gin.Context) {
	ctx := c.Request.Context()

	deliveryID := c.Param("delivery_id")
	detail, err := h.events.GetByDelivery(ctx, deliveryID)
	if err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to get event by delivery", "error", err, "delivery_id", deliveryID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get event"})
		return
	}

	c.JSON(http.StatusOK, dto.ToEventDetailResponse(detail))
}

// Reprocess resets a completed or failed event and enqueues it again.
func (h *EventHandler) Reprocess(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := eventID(c)
	if !ok {
		return
	}

	traceID := c.GetHeader(h.traceHeader)
	if traceID == "" {
		traceID = logger.TraceIDFromContext(ctx)
	}

	event, enqueued, err := h.events.Reprocess(ctx, id, traceID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEventNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		case errors.Is(err, service.ErrNotTerminal):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			slog.ErrorContext(ctx, "failed to reprocess event", "error", err, "event_id", id)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reprocess event"})
		}
		return
	}

	c.JSON(http.StatusAccepted, dto.ReprocessResponse{
		Event:    dto.ToEventResponse(event),
		Enqueued: enqueued,
	})
}

func eventID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return 0, false
	}
	return id, true
}
