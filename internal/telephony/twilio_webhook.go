package telephony

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"outbound-calls/internal/events"
)

// Twilio posts its callbacks as application/x-www-form-urlencoded. The forms
// below capture the fields this service acts on; everything else is ignored.
// Conversation ids are not part of any callback, so each form is turned into
// an event only after the caller has resolved CallSid to a conversation.

var ErrMissingCallSid = errors.New("telephony: callback has no CallSid")

// StatusForm is a call progress callback.
type StatusForm struct {
	CallSid        string
	AccountSid     string
	CallStatus     string
	SequenceNumber int
	CallDuration   int
}

func ParseStatusForm(r *http.Request) (StatusForm, error) {
	if err := r.ParseForm(); err != nil {
		return StatusForm{}, err
	}
	f := StatusForm{
		CallSid:    strings.TrimSpace(r.PostFormValue("CallSid")),
		AccountSid: r.PostFormValue("AccountSid"),
		CallStatus: strings.TrimSpace(r.PostFormValue("CallStatus")),
	}
	if f.CallSid == "" {
		return StatusForm{}, ErrMissingCallSid
	}
	f.SequenceNumber, _ = strconv.Atoi(r.PostFormValue("SequenceNumber"))
	f.CallDuration, _ = strconv.Atoi(r.PostFormValue("CallDuration"))
	return f, nil
}

// Event keeps the raw provider status; the tracker classifies it.
func (f StatusForm) Event(conversationID string) events.CallStatusEvent {
	return events.CallStatusEvent{
		Base:           events.Base{ID: conversationID},
		Status:         f.CallStatus,
		ProviderCallID: f.CallSid,
		SequenceNumber: f.SequenceNumber,
	}
}

// AMDForm is an asynchronous answering machine detection result.
type AMDForm struct {
	CallSid    string
	AnsweredBy string
	// DurationMillis is MachineDetectionDuration; zero when absent.
	DurationMillis int
	// Confidence is only present when a detector upstream supplies one.
	Confidence *float64
}

func ParseAMDForm(r *http.Request) (AMDForm, error) {
	if err := r.ParseForm(); err != nil {
		return AMDForm{}, err
	}
	f := AMDForm{
		CallSid:    strings.TrimSpace(r.PostFormValue("CallSid")),
		AnsweredBy: strings.TrimSpace(r.PostFormValue("AnsweredBy")),
	}
	if f.CallSid == "" {
		return AMDForm{}, ErrMissingCallSid
	}
	f.DurationMillis, _ = strconv.Atoi(r.PostFormValue("MachineDetectionDuration"))
	if raw := r.PostFormValue("Confidence"); raw != "" {
		if c, err := strconv.ParseFloat(raw, 64); err == nil {
			f.Confidence = &c
		}
	}
	return f, nil
}

// Verdict maps the provider AnsweredBy value onto a detection verdict.
// machine_start and every machine_end_* variant count as an answering machine.
func (f AMDForm) Verdict() (events.AnsweredBy, error) {
	v := strings.ToLower(f.AnsweredBy)
	switch {
	case v == "human":
		return events.AnsweredByHuman, nil
	case v == "machine_start", strings.HasPrefix(v, "machine_end"):
		return events.AnsweredByMachine, nil
	case v == "fax":
		return events.AnsweredByFax, nil
	case v == "unknown":
		return events.AnsweredByUnknown, nil
	default:
		return "", &events.DecodeError{Kind: events.KindClassification, Value: f.AnsweredBy, Err: events.ErrUnknownType}
	}
}

// Event builds the detection event. Without an explicit confidence a decided
// verdict reports 1.0 and unknown reports 0.
func (f AMDForm) Event(conversationID string) (events.DetectionEvent, error) {
	by, err := f.Verdict()
	if err != nil {
		return nil, err
	}
	confidence := 1.0
	if by == events.AnsweredByUnknown {
		confidence = 0
	}
	if f.Confidence != nil {
		confidence = *f.Confidence
	}
	var duration *float64
	if f.DurationMillis > 0 {
		secs := float64(f.DurationMillis) / 1000
		duration = &secs
	}
	return events.NewDetection(conversationID, by, confidence, duration)
}

// RecordingForm is a recording status callback.
type RecordingForm struct {
	CallSid         string
	RecordingSid    string
	RecordingURL    string
	RecordingStatus string
}

func ParseRecordingForm(r *http.Request) (RecordingForm, error) {
	if err := r.ParseForm(); err != nil {
		return RecordingForm{}, err
	}
	f := RecordingForm{
		CallSid:         strings.TrimSpace(r.PostFormValue("CallSid")),
		RecordingSid:    r.PostFormValue("RecordingSid"),
		RecordingURL:    strings.TrimSpace(r.PostFormValue("RecordingUrl")),
		RecordingStatus: strings.ToLower(strings.TrimSpace(r.PostFormValue("RecordingStatus"))),
	}
	if f.CallSid == "" {
		return RecordingForm{}, ErrMissingCallSid
	}
	return f, nil
}

// Ready reports whether the recording is final and has a URL.
func (f RecordingForm) Ready() bool {
	return f.RecordingURL != "" && (f.RecordingStatus == "" || f.RecordingStatus == "completed")
}

func (f RecordingForm) Event(conversationID string) events.RecordingEvent {
	return events.RecordingEvent{Base: events.Base{ID: conversationID}, RecordingURL: f.RecordingURL}
}
