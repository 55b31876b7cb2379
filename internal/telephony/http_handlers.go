package telephony

import (
	"context"
	"errors"
	"io"
	"net/http"

	"outbound-calls/internal/calls"
	"outbound-calls/internal/events"
	"outbound-calls/pkg/logger"

	"github.com/gin-gonic/gin"
)

const maxEventBytes = 64 << 10

// EventSink is the part of calls.Tracker the webhook handlers need.
type EventSink interface {
	Apply(ctx context.Context, ev events.Event) (calls.Result, error)
	ResolveProviderCallID(ctx context.Context, providerCallID string) (calls.Call, error)
}

// DecodeRecorder counts callbacks that could not be turned into events.
type DecodeRecorder interface {
	ObserveDecodeError(kind string)
}

// WebhookHandler converts provider callbacks and typed JSON events into
// domain events and hands them to the tracker. It makes no state decisions.
type WebhookHandler struct {
	Tracker  EventSink
	Registry *events.Registry
	Metrics  DecodeRecorder
}

// HandleStatus serves call progress callbacks.
func (h WebhookHandler) HandleStatus(c *gin.Context) {
	form, err := ParseStatusForm(c.Request)
	if err != nil {
		h.badForm(c, "status", err)
		return
	}
	call, ok := h.resolve(c, form.CallSid)
	if !ok {
		return
	}
	h.apply(c, form.Event(call.ConversationID))
}

// HandleAMD serves asynchronous answering machine detection callbacks.
func (h WebhookHandler) HandleAMD(c *gin.Context) {
	form, err := ParseAMDForm(c.Request)
	if err != nil {
		h.badForm(c, "amd", err)
		return
	}
	call, ok := h.resolve(c, form.CallSid)
	if !ok {
		return
	}
	ev, err := form.Event(call.ConversationID)
	if err != nil {
		h.rejected(c, err)
		return
	}
	h.apply(c, ev)
}

// HandleRecording serves recording status callbacks. Callbacks for
// recordings that are not final yet are acknowledged and dropped.
func (h WebhookHandler) HandleRecording(c *gin.Context) {
	form, err := ParseRecordingForm(c.Request)
	if err != nil {
		h.badForm(c, "recording", err)
		return
	}
	if !form.Ready() {
		logger.FromGin(c).Debug("recording callback skipped", "call_sid", form.CallSid, "recording_status", form.RecordingStatus)
		c.JSON(http.StatusOK, gin.H{"outcome": "skipped"})
		return
	}
	call, ok := h.resolve(c, form.CallSid)
	if !ok {
		return
	}
	h.apply(c, form.Event(call.ConversationID))
}

// HandleEvent accepts one typed event as JSON, discriminated by "type".
func (h WebhookHandler) HandleEvent(c *gin.Context) {
	if h.Registry == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "event registry not configured"})
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxEventBytes))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	ev, err := h.Registry.Decode(body)
	if err != nil {
		h.rejected(c, err)
		return
	}
	h.apply(c, ev)
}

func (h WebhookHandler) resolve(c *gin.Context, callSid string) (calls.Call, bool) {
	call, err := h.Tracker.ResolveProviderCallID(c.Request.Context(), callSid)
	switch {
	case err == nil:
		return call, true
	case errors.Is(err, calls.ErrNotFound):
		logger.FromGin(c).Warn("callback for unknown call", "call_sid", callSid)
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown call"})
	default:
		logger.FromGin(c).Error("call lookup failed", "call_sid", callSid, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
	}
	return calls.Call{}, false
}

func (h WebhookHandler) apply(c *gin.Context, ev events.Event) {
	if h.Tracker == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "tracker not configured"})
		return
	}
	res, err := h.Tracker.Apply(c.Request.Context(), ev)
	var de *events.DecodeError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"outcome": res.Outcome})
	case errors.As(err, &de):
		// already counted and logged by the tracker
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": de.Error()})
	case errors.Is(err, calls.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown call"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "apply failed"})
	}
}

func (h WebhookHandler) badForm(c *gin.Context, kind string, err error) {
	logger.FromGin(c).Warn("webhook form invalid", "kind", kind, "err", err)
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
}

func (h WebhookHandler) rejected(c *gin.Context, err error) {
	kind := events.KindPayload
	var de *events.DecodeError
	if errors.As(err, &de) {
		kind = de.Kind
	}
	logger.FromGin(c).Warn("webhook event rejected", "kind", kind, "err", err)
	if h.Metrics != nil {
		h.Metrics.ObserveDecodeError(kind)
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
