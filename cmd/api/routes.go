package main

import (
	"net/http"

	"outbound-calls/internal/audit"
	"outbound-calls/internal/auth"
	"outbound-calls/internal/dialer"
	"outbound-calls/internal/httpapi"
	"outbound-calls/internal/telephony"
	"outbound-calls/pkg/metrics"

	"github.com/gin-gonic/gin"
)

type routeDeps struct {
	auth     *auth.Manager
	metrics  *metrics.Manager
	dialer   *dialer.Service
	journal  *audit.Service
	webhooks telephony.WebhookHandler

	// signatures is nil when callback signature checks are disabled.
	signatures *telephony.SignatureValidator
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(d.metrics.Handler()))

	// Provider callbacks. Twilio authenticates with X-Twilio-Signature, not JWT.
	{
		var chain []gin.HandlerFunc
		if d.signatures != nil {
			chain = append(chain, d.signatures.Middleware())
		}
		wh := r.Group("", chain...)
		wh.POST("/webhooks/twilio/status", d.webhooks.HandleStatus)
		wh.POST("/webhooks/twilio/amd", d.webhooks.HandleAMD)
		wh.POST(telephony.RecordingCallbackPath, d.webhooks.HandleRecording)
	}

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(auth.RequireAccessToken(d.auth))
	{
		// Internal signal producers (conversation workers, detectors) post
		// typed events here.
		v1.POST("/events", auth.RequireScope(auth.ScopeCallsWrite), d.webhooks.HandleEvent)

		h := httpapi.Handlers{Calls: d.dialer, Journal: d.journal}

		calls := v1.Group("/calls")
		calls.POST("", auth.RequireScope(auth.ScopeCallsWrite), h.StartCall)
		calls.POST("/:conversation_id/end", auth.RequireScope(auth.ScopeCallsWrite), h.EndCall)
		calls.GET("/:conversation_id", auth.RequireScope(auth.ScopeCallsRead), h.GetCall)
		calls.GET("/:conversation_id/events", auth.RequireScope(auth.ScopeCallsRead), h.ListEvents)
	}
}
