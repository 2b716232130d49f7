package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	apierrors "github.com/customeros/waitlist/api/errors"
	"github.com/customeros/waitlist/dto"
	"github.com/customeros/waitlist/interfaces"
	waitlisterrors "github.com/customeros/waitlist/internal/errors"
	"github.com/customeros/waitlist/internal/logger"
	"github.com/customeros/waitlist/internal/tracing"
)

type WaitlistHandler struct {
	waitlist interfaces.WaitlistService
	log      logger.Logger
}

func NewWaitlistHandler(waitlist interfaces.WaitlistService, log logger.Logger) *WaitlistHandler {
	return &WaitlistHandler{
		waitlist: waitlist,
		log:      log,
	}
}

type JoinRequest struct {
	Email    string                 `json:"email"`
	Source   string                 `json:"source"`
	Metadata map[string]interface{} `json:"metadata"`
}

func (h *WaitlistHandler) Join() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "WaitlistHandler.Join")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var request JoinRequest
		if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Email) == "" {
			if err != nil {
				tracing.TraceErr(span, err)
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": apierrors.MsgMissingEmail})
			return
		}

		result, err := h.waitlist.Join(ctx, dto.JoinRequest{
			Email:     request.Email,
			Source:    strings.TrimSpace(request.Source),
			IPAddress: c.ClientIP(),
			Metadata:  request.Metadata,
		})
		if errors.Is(err, waitlisterrors.ErrAlreadyOnWaitlist) {
			c.JSON(http.StatusConflict, gin.H{"error": apierrors.MsgAlreadyOnWaitlist})
			return
		}
		if err != nil {
			tracing.TraceErr(span, err)
			h.log.Errorf("Failed to join waitlist: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": apierrors.MsgInternal})
			return
		}

		if !result.Verdict.Accepted {
			status, message := apierrors.Rejection(result.Verdict.Reason)
			c.JSON(status, gin.H{"error": message, "reason": result.Verdict.Reason})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"message": "Added to waitlist",
			"email":   result.Verdict.Email,
		})
	}
}
