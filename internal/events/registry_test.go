package events

import (
	"errors"
	"testing"
)

func TestDecodeBuildsEachVariant(t *testing.T) {
	r := NewRegistry()

	cases := []struct {
		name    string
		payload string
		want    Type
	}{
		{"connected", `{"type":"event_phone_call_connected","conversation_id":"c1","to_phone_number":"+1555","from_phone_number":"+1666"}`, TypePhoneCallConnected},
		{"ended", `{"type":"event_phone_call_ended","conversation_id":"c1","conversation_minutes":1.5}`, TypePhoneCallEnded},
		{"did not connect", `{"type":"event_phone_call_did_not_connect","conversation_id":"c1","telephony_status":"busy"}`, TypePhoneCallDidNotConnect},
		{"recording", `{"type":"event_recording","conversation_id":"c1","recording_url":"https://example.com/r.wav"}`, TypeRecording},
		{"action", `{"type":"event_action","conversation_id":"c1","action_input":{"k":"v"}}`, TypeAction},
		{"call status", `{"type":"event_call_status","conversation_id":"c1","status":"ringing"}`, TypeCallStatus},
		{"machine", `{"type":"answering_machine_detected","conversation_id":"c1","confidence":0.9}`, TypeAnsweringMachineDetected},
		{"human", `{"type":"human_detected","conversation_id":"c1","confidence":1}`, TypeHumanDetected},
		{"fax", `{"type":"fax_detected","conversation_id":"c1","confidence":1,"duration":2.5}`, TypeFaxDetected},
		{"unknown", `{"type":"unknown_detected","conversation_id":"c1","confidence":0}`, TypeUnknownDetected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := r.Decode([]byte(tc.payload))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if ev.Type() != tc.want {
				t.Fatalf("expected type %q, got %q", tc.want, ev.Type())
			}
			if ev.ConversationID() != "c1" {
				t.Fatalf("expected conversation id c1, got %q", ev.ConversationID())
			}
		})
	}
}

func TestDecodeAppliesDefaults(t *testing.T) {
	r := NewRegistry()

	ev, err := r.Decode([]byte(`{"type":"event_phone_call_ended","conversation_id":"c1"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ended := ev.(PhoneCallEndedEvent); ended.ConversationMinutes != 0 {
		t.Fatalf("expected default conversation_minutes 0, got %v", ended.ConversationMinutes)
	}

	ev, err = r.Decode([]byte(`{"type":"human_detected","conversation_id":"c1","confidence":0.7}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	det := ev.(DetectionEvent).Metadata()
	if det.Duration != nil {
		t.Fatalf("expected absent duration")
	}
	if det.Sender != SenderTwilioAMD {
		t.Fatalf("expected default sender twilio_amd, got %q", det.Sender)
	}
}

func TestDecodeStatusAlias(t *testing.T) {
	r := NewRegistry()
	ev, err := r.Decode([]byte(`{"type":"no_answer","conversation_id":"c1"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	st, ok := ev.(CallStatusEvent)
	if !ok {
		t.Fatalf("expected CallStatusEvent, got %T", ev)
	}
	if st.Status != "no_answer" || st.Type() != TypeCallStatus {
		t.Fatalf("unexpected status event: %+v", st)
	}
}

func TestDecodeRejectsUnknownDiscriminant(t *testing.T) {
	r := NewRegistry()
	_, err := r.Decode([]byte(`{"type":"event_transcript","conversation_id":"c1"}`))
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if !errors.Is(err, ErrUnknownType) || de.Value != "event_transcript" {
		t.Fatalf("unexpected decode error: %v", err)
	}

	if _, err := r.Decode([]byte(`{"conversation_id":"c1"}`)); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected missing type to fail, got %v", err)
	}
}

func TestDecodeRejectsMissingRequiredFields(t *testing.T) {
	r := NewRegistry()
	payloads := []string{
		`{"type":"event_phone_call_connected","conversation_id":"c1","to_phone_number":"+1"}`,
		`{"type":"event_recording","conversation_id":"c1"}`,
		`{"type":"human_detected","conversation_id":"c1"}`,
		`{"type":"event_call_status","status":"ringing"}`,
		`{"type":"event_phone_call_ended","conversation_id":""}`,
		`not json`,
	}
	for _, p := range payloads {
		if _, err := r.Decode([]byte(p)); err == nil {
			t.Fatalf("expected error for %s", p)
		} else if !errors.Is(err, ErrInvalidPayload) {
			t.Fatalf("expected ErrInvalidPayload for %s, got %v", p, err)
		}
	}
}

type voicemailLeftEvent struct {
	Base
	Seconds int `json:"seconds"`
}

func (voicemailLeftEvent) Type() Type { return "voicemail_left" }

func TestRegisterExtendsTaxonomy(t *testing.T) {
	r := NewRegistry()
	schema := []byte(`{"type":"object","required":["conversation_id","seconds"]}`)
	if err := r.Register("voicemail_left", schema, As[voicemailLeftEvent]()); err != nil {
		t.Fatalf("register: %v", err)
	}
	ev, err := r.Decode([]byte(`{"type":"voicemail_left","conversation_id":"c9","seconds":12}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v := ev.(voicemailLeftEvent); v.Seconds != 12 || v.ConversationID() != "c9" {
		t.Fatalf("unexpected event: %+v", v)
	}

	if err := r.Register(TypeRecording, nil, As[RecordingEvent]()); !errors.Is(err, ErrDuplicateType) {
		t.Fatalf("expected duplicate registration error, got %v", err)
	}
}
