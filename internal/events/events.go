package events

// Event is a decoded domain signal about one call attempt.
//
// Events are immutable value objects: constructed once when an inbound signal
// (provider webhook or internal detector) is decoded, consumed by the call
// tracker, then discarded. Compare them with Equal, not ==.
type Event interface {
	Type() Type
	ConversationID() string
}

// Type is the discriminant carried in the "type" field of every payload.
type Type string

const (
	TypePhoneCallConnected     Type = "event_phone_call_connected"
	TypePhoneCallEnded         Type = "event_phone_call_ended"
	TypePhoneCallDidNotConnect Type = "event_phone_call_did_not_connect"
	TypeRecording              Type = "event_recording"
	TypeAction                 Type = "event_action"
	TypeCallStatus             Type = "event_call_status"

	TypeAnsweringMachineDetected Type = "answering_machine_detected"
	TypeHumanDetected            Type = "human_detected"
	TypeFaxDetected              Type = "fax_detected"
	TypeUnknownDetected          Type = "unknown_detected"
)

// Per-status tags accepted as aliases of TypeCallStatus. A payload tagged
// "ringing" decodes into a CallStatusEvent whose Status is "ringing".
const (
	TypeCallInitiated Type = "initiated"
	TypeCallRinging   Type = "ringing"
	TypeCallAnswered  Type = "answered"
	TypeCallCompleted Type = "completed"
	TypeCallBusy      Type = "busy"
	TypeCallFailed    Type = "failed"
	TypeCallNoAnswer  Type = "no_answer"
	TypeCallCanceled  Type = "canceled"
)

// Sender tags the provenance of detection events.
type Sender string

const (
	SenderHuman        Sender = "human"
	SenderBot          Sender = "bot"
	SenderActionWorker Sender = "action_worker"
	SenderVectorDB     Sender = "vector_db"
	SenderConference   Sender = "conference"
	SenderTwilioAMD    Sender = "twilio_amd"
)

// Base carries the fields shared by every variant.
type Base struct {
	ID string `json:"conversation_id"`
}

func (b Base) ConversationID() string { return b.ID }

type PhoneCallConnectedEvent struct {
	Base
	ToPhoneNumber   string `json:"to_phone_number"`
	FromPhoneNumber string `json:"from_phone_number"`
}

func (PhoneCallConnectedEvent) Type() Type { return TypePhoneCallConnected }

type PhoneCallEndedEvent struct {
	Base
	ConversationMinutes float64 `json:"conversation_minutes"`
}

func (PhoneCallEndedEvent) Type() Type { return TypePhoneCallEnded }

type PhoneCallDidNotConnectEvent struct {
	Base
	TelephonyStatus string `json:"telephony_status"`
}

func (PhoneCallDidNotConnectEvent) Type() Type { return TypePhoneCallDidNotConnect }

type RecordingEvent struct {
	Base
	RecordingURL string `json:"recording_url"`
}

func (RecordingEvent) Type() Type { return TypeRecording }

type ActionEvent struct {
	Base
	ActionInput  map[string]any `json:"action_input,omitempty"`
	ActionOutput map[string]any `json:"action_output,omitempty"`
}

func (ActionEvent) Type() Type { return TypeAction }

// CallStatusEvent is a provider status callback. Status holds the raw provider
// spelling; classification into a call status happens in the state machine so
// that an unknown value fails there without touching stored state.
type CallStatusEvent struct {
	Base
	Status         string `json:"status"`
	ProviderCallID string `json:"provider_call_id,omitempty"`
	SequenceNumber int    `json:"sequence_number,omitempty"`
}

func (CallStatusEvent) Type() Type { return TypeCallStatus }
