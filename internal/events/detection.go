package events

// AnsweredBy is the answering-machine-detection verdict of a detection event.
type AnsweredBy string

const (
	AnsweredByHuman   AnsweredBy = "human"
	AnsweredByMachine AnsweredBy = "answering_machine"
	AnsweredByFax     AnsweredBy = "fax"
	AnsweredByUnknown AnsweredBy = "unknown"
)

// Detection holds the AMD metadata shared by the detection variants.
// Confidence and Duration are advisory and never drive call state.
type Detection struct {
	Base
	Sender     Sender   `json:"sender,omitempty"`
	Confidence float64  `json:"confidence"`
	Duration   *float64 `json:"duration,omitempty"`
}

func (d Detection) Metadata() Detection { return d }

// DetectionEvent is implemented by the four AMD leaf variants.
type DetectionEvent interface {
	Event
	AnsweredBy() AnsweredBy
	Metadata() Detection
}

type AnsweringMachineDetectedEvent struct{ Detection }

func (AnsweringMachineDetectedEvent) Type() Type             { return TypeAnsweringMachineDetected }
func (AnsweringMachineDetectedEvent) AnsweredBy() AnsweredBy { return AnsweredByMachine }

type HumanDetectedEvent struct{ Detection }

func (HumanDetectedEvent) Type() Type             { return TypeHumanDetected }
func (HumanDetectedEvent) AnsweredBy() AnsweredBy { return AnsweredByHuman }

type FaxDetectedEvent struct{ Detection }

func (FaxDetectedEvent) Type() Type             { return TypeFaxDetected }
func (FaxDetectedEvent) AnsweredBy() AnsweredBy { return AnsweredByFax }

type UnknownDetectedEvent struct{ Detection }

func (UnknownDetectedEvent) Type() Type             { return TypeUnknownDetected }
func (UnknownDetectedEvent) AnsweredBy() AnsweredBy { return AnsweredByUnknown }

// NewDetection builds the detection variant for a verdict. Sender defaults to
// twilio_amd.
func NewDetection(conversationID string, by AnsweredBy, confidence float64, duration *float64) (DetectionEvent, error) {
	d := Detection{Base: Base{ID: conversationID}, Sender: SenderTwilioAMD, Confidence: confidence, Duration: duration}
	switch by {
	case AnsweredByHuman:
		return HumanDetectedEvent{d}, nil
	case AnsweredByMachine:
		return AnsweringMachineDetectedEvent{d}, nil
	case AnsweredByFax:
		return FaxDetectedEvent{d}, nil
	case AnsweredByUnknown:
		return UnknownDetectedEvent{d}, nil
	default:
		return nil, &DecodeError{Kind: KindClassification, Value: string(by), Err: ErrUnknownType}
	}
}
