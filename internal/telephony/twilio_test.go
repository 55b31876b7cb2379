package telephony

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"outbound-calls/internal/config"
)

type capturedRequest struct {
	Path     string
	Form     url.Values
	User     string
	Password string
	Type     string
}

type fakeTwilio struct {
	mu       sync.Mutex
	requests []capturedRequest
	status   int
	body     string
}

func (f *fakeTwilio) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	user, pass, _ := r.BasicAuth()
	f.mu.Lock()
	f.requests = append(f.requests, capturedRequest{
		Path:     r.URL.Path,
		Form:     r.PostForm,
		User:     user,
		Password: pass,
		Type:     r.Header.Get("Content-Type"),
	})
	status, body := f.status, f.body
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (f *fakeTwilio) last(t *testing.T) capturedRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatalf("expected a provider request")
	}
	return f.requests[len(f.requests)-1]
}

type providerObservation struct{ op, result string }

type fakeRecorder struct {
	mu  sync.Mutex
	obs []providerObservation
}

func (r *fakeRecorder) ObserveProviderRequest(op, result string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, providerObservation{op, result})
}

func testTwilioConfig(apiBase string) config.TwilioConfig {
	return config.TwilioConfig{
		AccountSID:     "AC123",
		AuthToken:      "token",
		APIBaseURL:     apiBase,
		BaseURL:        "calls.example.com",
		RequestTimeout: 2 * time.Second,
	}
}

func testAMD() config.AMDConfig {
	return config.AMDConfig{
		Enabled:         true,
		CallbackURL:     "https://calls.example.com/webhooks/twilio/amd",
		Mode:            "DetectMessageEnd",
		Timeout:         30,
		SpeechThreshold: 2000,
	}
}

func newTestClient(t *testing.T, fake *fakeTwilio, amd config.AMDConfig, statusURL string, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg := testTwilioConfig(srv.URL)
	cfg.StatusCallbackURL = statusURL
	c, err := NewClient(cfg, amd, opts...)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestCreateCallMinimal(t *testing.T) {
	fake := &fakeTwilio{status: http.StatusCreated, body: `{"sid":"CA1","status":"queued"}`}
	c := newTestClient(t, fake, config.AMDConfig{}, "")

	sid, err := c.CreateCall(context.Background(), CreateCallRequest{ConversationID: "conv-1", To: "15551234567", From: "15559876543"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sid != "CA1" {
		t.Fatalf("expected sid CA1, got %q", sid)
	}

	req := fake.last(t)
	if req.Path != "/Accounts/AC123/Calls.json" {
		t.Fatalf("unexpected path %q", req.Path)
	}
	if req.User != "AC123" || req.Password != "token" {
		t.Fatalf("expected basic auth with account credentials")
	}
	if req.Type != "application/x-www-form-urlencoded" {
		t.Fatalf("unexpected content type %q", req.Type)
	}
	if got := req.Form.Get("To"); got != "+15551234567" {
		t.Fatalf("To = %q", got)
	}
	if got := req.Form.Get("From"); got != "+15559876543" {
		t.Fatalf("From = %q", got)
	}
	want := `<Response><Connect><Stream url="wss://calls.example.com/connect_call/conv-1"></Stream></Connect></Response>`
	if got := req.Form.Get("Twiml"); got != want {
		t.Fatalf("Twiml = %q", got)
	}
	for _, k := range []string{"MachineDetection", "AsyncAmd", "StatusCallback", "StatusCallbackEvent", "Record", "SendDigits"} {
		if _, ok := req.Form[k]; ok {
			t.Fatalf("did not expect %s in %v", k, req.Form)
		}
	}
}

func TestBuildCallParamsWithOptionalBlocks(t *testing.T) {
	fake := &fakeTwilio{status: http.StatusCreated, body: `{"sid":"CA2"}`}
	c := newTestClient(t, fake, testAMD(), "https://calls.example.com/webhooks/twilio/status")

	v := c.BuildCallParams(CreateCallRequest{
		ConversationID: "conv-2",
		To:             "15551234567",
		From:           "15559876543",
		Record:         true,
		Digits:         "ww1234",
	})

	checks := map[string]string{
		"Record":                          "true",
		"RecordingStatusCallback":         "https://calls.example.com/twilio-recordings",
		"RecordingStatusCallbackMethod":   "POST",
		"SendDigits":                      "ww1234",
		"MachineDetection":                "DetectMessageEnd",
		"MachineDetectionTimeout":         "30",
		"AsyncAmd":                        "true",
		"AsyncAmdStatusCallback":          "https://calls.example.com/webhooks/twilio/amd",
		"AsyncAmdStatusCallbackMethod":    "POST",
		"MachineDetectionSpeechThreshold": "2000",
		"StatusCallback":                  "https://calls.example.com/webhooks/twilio/status",
		"StatusCallbackMethod":            "POST",
	}
	for k, want := range checks {
		if got := v.Get(k); got != want {
			t.Fatalf("%s = %q, want %q", k, got, want)
		}
	}
	if got := v["StatusCallbackEvent"]; len(got) != 8 || got[0] != "initiated" || got[7] != "failed" {
		t.Fatalf("unexpected StatusCallbackEvent %v", got)
	}
}

func TestBuildCallParamsDeterministic(t *testing.T) {
	c := newTestClient(t, &fakeTwilio{}, testAMD(), "https://calls.example.com/status")
	req := CreateCallRequest{
		ConversationID:  "conv-3",
		To:              "15551234567",
		From:            "15559876543",
		Record:          true,
		TelephonyParams: map[string]string{"Timeout": "20", "CallerName": "acme", "Trim": "trim-silence"},
	}

	first := c.BuildCallParams(req).Encode()
	for i := 0; i < 20; i++ {
		if got := c.BuildCallParams(req).Encode(); got != first {
			t.Fatalf("encoded body changed between calls:\n%s\n%s", first, got)
		}
	}
}

func TestBuildCallParamsClientFieldsWin(t *testing.T) {
	c := newTestClient(t, &fakeTwilio{}, config.AMDConfig{}, "")
	v := c.BuildCallParams(CreateCallRequest{
		ConversationID:  "conv-4",
		To:              "15551234567",
		From:            "15559876543",
		TelephonyParams: map[string]string{"To": "+19990000000", "Timeout": "15"},
	})
	if got := v.Get("To"); got != "+15551234567" {
		t.Fatalf("caller To should be replaced, got %q", got)
	}
	if got := v.Get("Timeout"); got != "15" {
		t.Fatalf("caller Timeout should pass through, got %q", got)
	}
}

func TestRecordingCallbackURL(t *testing.T) {
	cases := map[string]string{
		"calls.example.com":          "https://calls.example.com/twilio-recordings",
		"calls.example.com/":         "https://calls.example.com/twilio-recordings",
		"https://calls.example.com/": "https://calls.example.com/twilio-recordings",
		"http://localhost:8080":      "http://localhost:8080/twilio-recordings",
	}
	for base, want := range cases {
		c := &Client{baseURL: base}
		if got := c.RecordingCallbackURL(); got != want {
			t.Fatalf("base %q: got %q, want %q", base, got, want)
		}
	}
}

func TestConnectionDescriptorDeterministic(t *testing.T) {
	c := &Client{baseURL: "https://calls.example.com/"}
	a := c.ConnectionDescriptor("conv-5")
	b := c.ConnectionDescriptor("conv-5")
	if a != b {
		t.Fatalf("descriptor not deterministic")
	}
	want := `<Response><Connect><Stream url="wss://calls.example.com/connect_call/conv-5"></Stream></Connect></Response>`
	if a != want {
		t.Fatalf("got %q", a)
	}
}

func TestCreateCallErrorMapping(t *testing.T) {
	t.Run("400 rejected", func(t *testing.T) {
		rec := &fakeRecorder{}
		fake := &fakeTwilio{status: http.StatusBadRequest, body: `{"code":21211,"message":"Invalid 'To' Phone Number","more_info":"https://www.twilio.com/docs/errors/21211","status":400}`}
		c := newTestClient(t, fake, config.AMDConfig{}, "", WithRecorder(rec))

		_, err := c.CreateCall(context.Background(), CreateCallRequest{ConversationID: "c", To: "1", From: "2"})
		var rejected *RejectedRequestError
		if !errors.As(err, &rejected) {
			t.Fatalf("expected RejectedRequestError, got %T %v", err, err)
		}
		if rejected.Code != 21211 {
			t.Fatalf("expected provider code, got %d", rejected.Code)
		}
		if len(rec.obs) != 1 || rec.obs[0] != (providerObservation{opCreateCall, "rejected"}) {
			t.Fatalf("unexpected metrics %v", rec.obs)
		}
	})

	t.Run("500 provider error", func(t *testing.T) {
		fake := &fakeTwilio{status: http.StatusInternalServerError, body: `oops`}
		c := newTestClient(t, fake, config.AMDConfig{}, "")

		_, err := c.CreateCall(context.Background(), CreateCallRequest{ConversationID: "c", To: "1", From: "2"})
		var pe *ProviderError
		if !errors.As(err, &pe) {
			t.Fatalf("expected ProviderError, got %T %v", err, err)
		}
		if pe.StatusCode != http.StatusInternalServerError {
			t.Fatalf("unexpected status %d", pe.StatusCode)
		}
	})

	t.Run("2xx without sid", func(t *testing.T) {
		fake := &fakeTwilio{status: http.StatusCreated, body: `{"status":"queued"}`}
		c := newTestClient(t, fake, config.AMDConfig{}, "")

		_, err := c.CreateCall(context.Background(), CreateCallRequest{ConversationID: "c", To: "1", From: "2"})
		var pe *ProviderError
		if !errors.As(err, &pe) {
			t.Fatalf("expected ProviderError, got %T %v", err, err)
		}
	})

	t.Run("timeout is a transport error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		t.Cleanup(srv.Close)

		c, err := NewClient(testTwilioConfig(srv.URL), config.AMDConfig{}, WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
		if err != nil {
			t.Fatalf("NewClient: %v", err)
		}
		_, err = c.CreateCall(context.Background(), CreateCallRequest{ConversationID: "c", To: "1", From: "2"})
		var te *TransportError
		if !errors.As(err, &te) {
			t.Fatalf("expected TransportError, got %T %v", err, err)
		}
		if !te.Timeout() {
			t.Fatalf("expected timeout, got %v", te.Err)
		}
		var pe *ProviderError
		if errors.As(err, &pe) {
			t.Fatalf("timeout must not be a ProviderError")
		}
	})
}

func TestEndCall(t *testing.T) {
	t.Run("completed", func(t *testing.T) {
		fake := &fakeTwilio{status: http.StatusOK, body: `{"sid":"CA9","status":"completed"}`}
		c := newTestClient(t, fake, config.AMDConfig{}, "")

		ok, err := c.EndCall(context.Background(), "CA9")
		if err != nil || !ok {
			t.Fatalf("expected ended, got %v %v", ok, err)
		}
		req := fake.last(t)
		if req.Path != "/Accounts/AC123/Calls/CA9.json" {
			t.Fatalf("unexpected path %q", req.Path)
		}
		if req.Form.Get("Status") != "completed" {
			t.Fatalf("expected Status=completed, got %v", req.Form)
		}
	})

	t.Run("not completed", func(t *testing.T) {
		fake := &fakeTwilio{status: http.StatusOK, body: `{"sid":"CA9","status":"in-progress"}`}
		c := newTestClient(t, fake, config.AMDConfig{}, "")

		ok, err := c.EndCall(context.Background(), "CA9")
		if ok {
			t.Fatalf("expected false")
		}
		if !errors.Is(err, ErrNotCompleted) {
			t.Fatalf("expected ErrNotCompleted, got %v", err)
		}
	})

	t.Run("non-2xx", func(t *testing.T) {
		fake := &fakeTwilio{status: http.StatusNotFound, body: `{"code":20404,"message":"not found"}`}
		c := newTestClient(t, fake, config.AMDConfig{}, "")

		ok, err := c.EndCall(context.Background(), "CA9")
		var pe *ProviderError
		if ok || !errors.As(err, &pe) {
			t.Fatalf("expected ProviderError, got %v %v", ok, err)
		}
	})
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(config.TwilioConfig{BaseURL: "x"}, config.AMDConfig{}); err == nil {
		t.Fatalf("expected error without credentials")
	}
	if _, err := NewClient(config.TwilioConfig{AccountSID: "a", AuthToken: "b"}, config.AMDConfig{}); err == nil {
		t.Fatalf("expected error without base url")
	}
	cfg := testTwilioConfig("")
	if _, err := NewClient(cfg, config.AMDConfig{Enabled: true}); err == nil {
		t.Fatalf("expected error for amd without callback")
	}
}

func TestResultLabel(t *testing.T) {
	cases := map[string]error{
		"ok":              nil,
		"rejected":        &RejectedRequestError{},
		"provider_error":  &ProviderError{},
		"transport_error": &TransportError{Err: errors.New("x")},
		"error":           errors.New("other"),
	}
	for want, err := range cases {
		if got := ResultLabel(err); got != want {
			t.Fatalf("ResultLabel(%v) = %q, want %q", err, got, want)
		}
	}
}
