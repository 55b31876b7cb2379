package tracing

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"outbound-calls/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestSetup_RequestLogsCarryIncomingTraceID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	shutdown := Setup("outbound-calls-test")
	defer func() { _ = shutdown(context.Background()) }()

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	r := gin.New()
	r.Use(logger.Middleware(base))
	r.GET("/x", func(c *gin.Context) {
		logger.From(c.Request.Context()).Info("inside")
		c.Status(http.StatusNoContent)
	})
	h := otelhttp.NewHandler(r, "outbound-calls-test")

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}

	line, _ := bytes.NewBuffer(buf.Bytes()).ReadBytes('\n')
	var first map[string]any
	if err := json.Unmarshal(line, &first); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if first["trace_id"] != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Fatalf("expected incoming trace id in log, got %v", first)
	}
	if first["span_id"] == "" || first["span_id"] == "00f067aa0ba902b7" {
		t.Fatalf("expected a server span id, got %v", first["span_id"])
	}
}

type countingExporter struct{ spans []sdktrace.ReadOnlySpan }

func (e *countingExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	e.spans = append(e.spans, spans...)
	return nil
}

func (e *countingExporter) Shutdown(context.Context) error { return nil }

func TestSetup_ShutdownFlushesSpans(t *testing.T) {
	exp := &countingExporter{}
	shutdown := Setup("outbound-calls-test", WithExporter(exp))

	h := otelhttp.NewHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), "healthz")
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if len(exp.spans) != 1 || exp.spans[0].Name() != "healthz" {
		t.Fatalf("expected the server span to be flushed, got %d spans", len(exp.spans))
	}
}
