package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"outbound-calls/internal/config"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	opCreateCall = "create_call"
	opEndCall    = "end_call"

	maxResponseBytes = 1 << 20
)

// Recorder receives provider request metrics. pkg/metrics.Manager implements it.
type Recorder interface {
	ObserveProviderRequest(op, result string, d time.Duration)
}

// Client talks to the Twilio Calls API.
//
// A Client is safe for concurrent use. Credentials and callback settings are
// fixed at construction.
type Client struct {
	accountSID string
	authToken  string
	apiBaseURL string
	baseURL    string

	statusCallbackURL string
	amd               config.AMDConfig

	http    *http.Client
	metrics Recorder
}

type Option func(*Client)

// WithHTTPClient replaces the default pooled, instrumented client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithRecorder(r Recorder) Option { return func(c *Client) { c.metrics = r } }

// WithAPIBaseURL points the client at another REST root (tests, regional edges).
func WithAPIBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.apiBaseURL = strings.TrimRight(u, "/")
		}
	}
}

func NewClient(cfg config.TwilioConfig, amd config.AMDConfig, opts ...Option) (*Client, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, errors.New("telephony: twilio account sid and auth token are required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("telephony: public base url is required")
	}
	if amd.Enabled && amd.CallbackURL == "" {
		return nil, errors.New("telephony: amd callback url is required when amd is enabled")
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	apiBase := cfg.APIBaseURL
	if apiBase == "" {
		apiBase = "https://api.twilio.com/2010-04-01"
	}

	c := &Client{
		accountSID:        cfg.AccountSID,
		authToken:         cfg.AuthToken,
		apiBaseURL:        strings.TrimRight(apiBase, "/"),
		baseURL:           strings.TrimSpace(cfg.BaseURL),
		statusCallbackURL: cfg.StatusCallbackURL,
		amd:               amd,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Name() string { return "twilio" }

// CreateCall places an outbound call and returns the provider call id.
func (c *Client) CreateCall(ctx context.Context, req CreateCallRequest) (sid string, err error) {
	if req.ConversationID == "" {
		return "", errors.New("telephony: conversation id is required")
	}

	ctx, span := tracer.Start(ctx, opCreateCall,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("conversation_id", req.ConversationID)),
	)
	start := time.Now()
	defer func() { c.finish(span, opCreateCall, start, err) }()

	var out struct {
		SID    string `json:"sid"`
		Status string `json:"status"`
	}
	status, err := c.post(ctx, opCreateCall, c.callsURL(), c.BuildCallParams(req), &out)
	if err != nil {
		return "", err
	}
	if out.SID == "" {
		return "", &ProviderError{Op: opCreateCall, StatusCode: status, Message: "response has no call sid"}
	}
	span.SetAttributes(attribute.String("provider_call_id", out.SID))
	return out.SID, nil
}

// EndCall asks the provider to hang up. It returns true only when the
// provider confirms the call is completed.
func (c *Client) EndCall(ctx context.Context, providerCallID string) (ended bool, err error) {
	if providerCallID == "" {
		return false, errors.New("telephony: provider call id is required")
	}

	ctx, span := tracer.Start(ctx, opEndCall,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("provider_call_id", providerCallID)),
	)
	start := time.Now()
	defer func() { c.finish(span, opEndCall, start, err) }()

	var out struct {
		Status string `json:"status"`
	}
	form := url.Values{"Status": {"completed"}}
	status, err := c.post(ctx, opEndCall, c.callURL(providerCallID), form, &out)
	if err != nil {
		return false, err
	}
	if out.Status != "completed" {
		return false, &ProviderError{
			Op:         opEndCall,
			StatusCode: status,
			Message:    fmt.Sprintf("provider reported status %q", out.Status),
			Err:        ErrNotCompleted,
		}
	}
	return true, nil
}

func (c *Client) callsURL() string {
	return fmt.Sprintf("%s/Accounts/%s/Calls.json", c.apiBaseURL, url.PathEscape(c.accountSID))
}

func (c *Client) callURL(providerCallID string) string {
	return fmt.Sprintf("%s/Accounts/%s/Calls/%s.json", c.apiBaseURL, url.PathEscape(c.accountSID), url.PathEscape(providerCallID))
}

// post sends one form-encoded request and decodes a 2xx JSON body into out.
// It returns the HTTP status code when a response was received.
func (c *Client) post(ctx context.Context, op, endpoint string, form url.Values, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, fmt.Errorf("telephony: %s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, &TransportError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		_ = json.Unmarshal(body, &apiErr)
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		if resp.StatusCode == http.StatusBadRequest {
			return resp.StatusCode, &RejectedRequestError{Op: op, Code: apiErr.Code, Message: apiErr.Message, MoreInfo: apiErr.MoreInfo}
		}
		return resp.StatusCode, &ProviderError{Op: op, StatusCode: resp.StatusCode, Code: apiErr.Code, Message: apiErr.Message}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, &ProviderError{Op: op, StatusCode: resp.StatusCode, Message: "malformed response body", Err: err}
	}
	return resp.StatusCode, nil
}

func (c *Client) finish(span trace.Span, op string, start time.Time, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	if c.metrics != nil {
		c.metrics.ObserveProviderRequest(op, ResultLabel(err), time.Since(start))
	}
}

// ResultLabel buckets a client error for metrics and logs.
func ResultLabel(err error) string {
	var rejected *RejectedRequestError
	var provider *ProviderError
	var transport *TransportError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &rejected):
		return "rejected"
	case errors.As(err, &provider):
		return "provider_error"
	case errors.As(err, &transport):
		return "transport_error"
	default:
		return "error"
	}
}
