package calls

import "time"

// Call is the authoritative record of one outbound call attempt.
//
// Status and AMDClassification move independently. Status only moves forward
// along the lifecycle (see Transition); AMDClassification is set once per
// armed detection window.
type Call struct {
	ConversationID  string `json:"conversation_id" db:"conversation_id"`
	ToPhoneNumber   string `json:"to_phone_number" db:"to_phone_number"`
	FromPhoneNumber string `json:"from_phone_number" db:"from_phone_number"`

	// ProviderCallID is assigned by the provider at creation time (Twilio CallSid).
	ProviderCallID string `json:"provider_call_id,omitempty" db:"provider_call_id"`

	Status            Status         `json:"status" db:"status"`
	AMDClassification Classification `json:"amd_classification" db:"amd_classification"`

	RecordRequested bool   `json:"record_requested" db:"record_requested"`
	RecordingURL    string `json:"recording_url,omitempty" db:"recording_url"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusInitiated Status = "initiated"
	StatusRinging   Status = "ringing"
	StatusAnswered  Status = "answered"
	StatusCompleted Status = "completed"
	StatusBusy      Status = "busy"
	StatusFailed    Status = "failed"
	StatusNoAnswer  Status = "no_answer"
	StatusCanceled  Status = "canceled"
)

// Terminal reports whether no further status change is possible.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusBusy, StatusFailed, StatusNoAnswer, StatusCanceled:
		return true
	default:
		return false
	}
}

func (s Status) Valid() bool {
	return s.Terminal() || s == StatusInitiated || s == StatusRinging || s == StatusAnswered
}

// Classification is the answering-machine-detection verdict for a call.
type Classification string

const (
	ClassificationHuman            Classification = "human"
	ClassificationAnsweringMachine Classification = "answering_machine"
	ClassificationFax              Classification = "fax"
	ClassificationUnknown          Classification = "unknown"
	ClassificationNotRequested     Classification = "not_requested"
	ClassificationPending          Classification = "pending"
)

// Decided reports whether a detection result has been recorded.
func (c Classification) Decided() bool {
	switch c {
	case ClassificationHuman, ClassificationAnsweringMachine, ClassificationFax, ClassificationUnknown:
		return true
	default:
		return false
	}
}
