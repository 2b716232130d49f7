package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	apierrors "github.com/customeros/waitlist/api/errors"
	"github.com/customeros/waitlist/interfaces"
	waitlisterrors "github.com/customeros/waitlist/internal/errors"
	"github.com/customeros/waitlist/internal/logger"
	"github.com/customeros/waitlist/internal/tracing"
)

type AdminHandler struct {
	waitlist interfaces.WaitlistService
	log      logger.Logger
}

func NewAdminHandler(waitlist interfaces.WaitlistService, log logger.Logger) *AdminHandler {
	return &AdminHandler{
		waitlist: waitlist,
		log:      log,
	}
}

type ValidateRequest struct {
	Email string `json:"email"`
}

type ValidateResponse struct {
	Email       string `json:"email"`
	Accepted    bool   `json:"accepted"`
	Reason      string `json:"reason,omitempty"`
	MatchedRule string `json:"matchedRule,omitempty"`
}

// Validate runs the intake checks without persisting anything.
func (h *AdminHandler) Validate() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "AdminHandler.Validate")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var request ValidateRequest
		if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Email) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": apierrors.MsgMissingEmail})
			return
		}

		result := h.waitlist.Check(ctx, request.Email)
		c.JSON(http.StatusOK, ValidateResponse{
			Email:       result.Email,
			Accepted:    result.Accepted,
			Reason:      result.Reason.String(),
			MatchedRule: result.MatchedRule,
		})
	}
}

func (h *AdminHandler) ListEntries() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "AdminHandler.ListEntries")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		limit, offset, ok := pagination(c)
		if !ok {
			return
		}

		entries, total, err := h.waitlist.ListEntries(ctx, limit, offset)
		if err != nil {
			tracing.TraceErr(span, err)
			h.log.Errorf("Failed to list waitlist entries: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": apierrors.MsgInternal})
			return
		}

		c.JSON(http.StatusOK, gin.H{"entries": entries, "total": total})
	}
}

func (h *AdminHandler) ListScamLogs() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "AdminHandler.ListScamLogs")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		limit, offset, ok := pagination(c)
		if !ok {
			return
		}

		entries, total, err := h.waitlist.ListScamLogs(ctx, limit, offset)
		if err != nil {
			tracing.TraceErr(span, err)
			h.log.Errorf("Failed to list scam log entries: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": apierrors.MsgInternal})
			return
		}

		c.JSON(http.StatusOK, gin.H{"entries": entries, "total": total})
	}
}

func (h *AdminHandler) RemoveEntry() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "AdminHandler.RemoveEntry")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		id := c.Param("id")
		tracing.TagEntity(span, id)

		err := h.waitlist.RemoveEntry(ctx, id)
		if errors.Is(err, waitlisterrors.ErrEntryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": apierrors.MsgEntryNotFound})
			return
		}
		if err != nil {
			tracing.TraceErr(span, err)
			h.log.Errorf("Failed to remove waitlist entry %s: %v", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": apierrors.MsgInternal})
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// ResendConfirmation sends the confirmation for an entry that has not received one yet.
func (h *AdminHandler) ResendConfirmation() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "AdminHandler.ResendConfirmation")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		id := c.Param("id")
		tracing.TagEntity(span, id)

		err := h.waitlist.SendConfirmation(ctx, id)
		if errors.Is(err, waitlisterrors.ErrEntryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": apierrors.MsgEntryNotFound})
			return
		}
		if err != nil {
			tracing.TraceErr(span, err)
			h.log.Errorf("Failed to send confirmation for %s: %v", id, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to send confirmation"})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"status": "confirmation processed", "id": id})
	}
}

func pagination(c *gin.Context) (int, int, bool) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return 0, 0, false
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid offset"})
		return 0, 0, false
	}
	return limit, offset, true
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, errors.Errorf("invalid %s", name)
	}
	return value, nil
}
