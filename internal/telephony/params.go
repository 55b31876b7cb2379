package telephony

import (
	"net/url"
	"strconv"
	"strings"
)

// RecordingCallbackPath is where recording status callbacks are delivered.
const RecordingCallbackPath = "/twilio-recordings"

// statusCallbackEvents are the call progress events subscribed to.
var statusCallbackEvents = []string{
	"initiated",
	"ringing",
	"answered",
	"completed",
	"busy",
	"no-answer",
	"canceled",
	"failed",
}

// BuildCallParams assembles the create-call form. It is pure: the same
// request and client settings always give the same form, and Encode on the
// result is byte-identical across calls.
//
// Caller TelephonyParams go in first; every field the client sets below
// replaces a caller entry with the same key.
func (c *Client) BuildCallParams(req CreateCallRequest) url.Values {
	v := url.Values{}
	for k, val := range req.TelephonyParams {
		v.Set(k, val)
	}

	v.Set("Twiml", c.ConnectionDescriptor(req.ConversationID))
	v.Set("To", "+"+req.To)
	v.Set("From", "+"+req.From)

	if req.Record {
		v.Set("Record", "true")
		v.Set("RecordingStatusCallback", c.RecordingCallbackURL())
		v.Set("RecordingStatusCallbackMethod", "POST")
	}

	if req.Digits != "" {
		v.Set("SendDigits", req.Digits)
	}

	if c.amd.Enabled {
		v.Set("MachineDetection", c.amd.Mode)
		v.Set("MachineDetectionTimeout", strconv.Itoa(c.amd.Timeout))
		v.Set("AsyncAmd", "true")
		v.Set("AsyncAmdStatusCallback", c.amd.CallbackURL)
		v.Set("AsyncAmdStatusCallbackMethod", "POST")
		v.Set("MachineDetectionSpeechThreshold", strconv.Itoa(c.amd.SpeechThreshold))
	}

	if c.statusCallbackURL != "" {
		v.Set("StatusCallback", c.statusCallbackURL)
		v.Set("StatusCallbackMethod", "POST")
		v["StatusCallbackEvent"] = append([]string(nil), statusCallbackEvents...)
	}
	return v
}

// AMDEnabled reports whether created calls arm answering machine detection.
func (c *Client) AMDEnabled() bool { return c.amd.Enabled }

// RecordingCallbackURL is the public base URL with https added when it has
// no scheme, without a trailing slash, plus RecordingCallbackPath.
func (c *Client) RecordingCallbackURL() string {
	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	base = strings.TrimSuffix(base, "/")
	return base + RecordingCallbackPath
}

// publicHost strips any scheme and trailing slash from the public base URL.
func publicHost(base string) string {
	base = strings.TrimSpace(base)
	for _, scheme := range []string{"https://", "http://", "wss://", "ws://"} {
		base = strings.TrimPrefix(base, scheme)
	}
	return strings.TrimRight(base, "/")
}
