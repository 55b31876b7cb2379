package httpapi

import (
	"context"
	"errors"
	"net/http"

	"outbound-calls/internal/audit"
	"outbound-calls/internal/calls"
	"outbound-calls/internal/dialer"
	"outbound-calls/internal/telephony"
	"outbound-calls/pkg/logger"

	"github.com/gin-gonic/gin"
)

// CallService is implemented by dialer.Service.
type CallService interface {
	StartCall(ctx context.Context, req telephony.CreateCallRequest) (dialer.StartResult, error)
	EndCall(ctx context.Context, conversationID string) (bool, error)
	Get(ctx context.Context, conversationID string) (calls.Call, error)
}

// EventLog lists the journal for one call.
type EventLog interface {
	List(ctx context.Context, conversationID string) ([]audit.Entry, error)
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Calls   CallService
	Journal EventLog
}

type startCallRequest struct {
	ConversationID  string            `json:"conversation_id"`
	To              string            `json:"to" binding:"required"`
	From            string            `json:"from" binding:"required"`
	Record          bool              `json:"record"`
	Digits          string            `json:"digits"`
	TelephonyParams map[string]string `json:"telephony_params"`
}

// StartCall places an outbound call.
func (h Handlers) StartCall(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "dialer not configured"})
		return
	}
	var req startCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json: to and from are required"})
		return
	}

	res, err := h.Calls.StartCall(c.Request.Context(), telephony.CreateCallRequest{
		ConversationID:  req.ConversationID,
		To:              req.To,
		From:            req.From,
		Record:          req.Record,
		Digits:          req.Digits,
		TelephonyParams: req.TelephonyParams,
	})
	if err != nil {
		writeError(c, err, res.ConversationID)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"conversation_id": res.ConversationID, "provider_call_id": res.ProviderCallID})
}

// EndCall hangs up a placed call.
func (h Handlers) EndCall(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "dialer not configured"})
		return
	}
	id := c.Param("conversation_id")
	ended, err := h.Calls.EndCall(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation_id": id, "ended": ended})
}

func (h Handlers) GetCall(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "dialer not configured"})
		return
	}
	call, err := h.Calls.Get(c.Request.Context(), c.Param("conversation_id"))
	if err != nil {
		writeError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, call)
}

// ListEvents returns every signal journalled for a call, oldest first.
func (h Handlers) ListEvents(c *gin.Context) {
	if h.Journal == nil || h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "journal not configured"})
		return
	}
	id := c.Param("conversation_id")
	if _, err := h.Calls.Get(c.Request.Context(), id); err != nil {
		writeError(c, err, "")
		return
	}
	entries, err := h.Journal.List(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "")
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"conversation_id": id, "events": entries})
}

// writeError maps domain and provider errors onto HTTP statuses.
func writeError(c *gin.Context, err error, conversationID string) {
	var (
		rejected  *telephony.RejectedRequestError
		provider  *telephony.ProviderError
		transport *telephony.TransportError
	)
	status, msg := http.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, dialer.ErrInvalidArgument):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, calls.ErrNotFound):
		status, msg = http.StatusNotFound, "call not found"
	case errors.Is(err, calls.ErrAlreadyExists):
		status, msg = http.StatusConflict, "conversation_id already in use"
	case errors.Is(err, dialer.ErrNotPlaced):
		status, msg = http.StatusConflict, err.Error()
	case errors.As(err, &rejected):
		status, msg = http.StatusUnprocessableEntity, rejected.Message
	case errors.As(err, &provider):
		status, msg = http.StatusBadGateway, provider.Error()
	case errors.As(err, &transport):
		status, msg = http.StatusGatewayTimeout, "telephony provider unreachable"
	}

	if status >= http.StatusInternalServerError {
		logger.FromGin(c).Error("request failed", "status", status, "err", err)
	}
	body := gin.H{"error": msg}
	if conversationID != "" {
		body["conversation_id"] = conversationID
	}
	c.AbortWithStatusJSON(status, body)
}
