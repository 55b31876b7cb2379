package events

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kaptinlin/jsonschema"
)

// DecodeFunc builds one concrete variant from a payload that already passed
// the variant's schema.
type DecodeFunc func(data []byte) (Event, error)

type variant struct {
	schema *jsonschema.Schema
	decode DecodeFunc
}

// Registry maps discriminants to variant constructors. New variants are added
// with Register; existing variants are never modified.
//
// A Registry is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	variants map[Type]variant
}

// NewRegistry returns a registry with every built-in variant registered.
func NewRegistry() *Registry {
	r := &Registry{variants: make(map[Type]variant)}
	for _, b := range builtins() {
		if err := r.Register(b.typ, []byte(b.schema), b.decode); err != nil {
			// Built-in schemas are constants; failing here is a programming error.
			panic(err)
		}
	}
	return r
}

// Register adds a discriminant. schema may be nil to skip validation.
func (r *Registry) Register(t Type, schema []byte, decode DecodeFunc) error {
	if t == "" || decode == nil {
		return fmt.Errorf("events: register %q: type and decode func are required", t)
	}

	var compiled *jsonschema.Schema
	if len(schema) > 0 {
		compiler := jsonschema.NewCompiler()
		s, err := compiler.Compile(schema)
		if err != nil {
			return fmt.Errorf("events: compile schema for %q: %w", t, err)
		}
		compiled = s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.variants[t]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateType, t)
	}
	r.variants[t] = variant{schema: compiled, decode: decode}
	return nil
}

// Types lists the registered discriminants.
func (r *Registry) Types() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Type, 0, len(r.variants))
	for t := range r.variants {
		out = append(out, t)
	}
	return out
}

// Decode constructs exactly one variant from a JSON payload. Unknown
// discriminants and payloads that fail validation return *DecodeError.
func (r *Registry) Decode(data []byte) (Event, error) {
	var envelope struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, &DecodeError{Kind: KindPayload, Err: fmt.Errorf("%w: %v", ErrInvalidPayload, err)}
	}
	if envelope.Type == "" {
		return nil, &DecodeError{Kind: KindEventType, Err: ErrUnknownType}
	}

	r.mu.RLock()
	v, ok := r.variants[envelope.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, &DecodeError{Kind: KindEventType, Value: string(envelope.Type), Err: ErrUnknownType}
	}

	if v.schema != nil {
		result := v.schema.ValidateJSON(data)
		if !result.IsValid() {
			return nil, &DecodeError{
				Kind:  KindPayload,
				Value: string(envelope.Type),
				Err:   fmt.Errorf("%w: schema validation failed: %v", ErrInvalidPayload, result.Errors),
			}
		}
	}

	ev, err := v.decode(data)
	if err != nil {
		return nil, &DecodeError{Kind: KindPayload, Value: string(envelope.Type), Err: fmt.Errorf("%w: %v", ErrInvalidPayload, err)}
	}
	return ev, nil
}

// As is a DecodeFunc for variants that need no post-processing.
func As[T Event]() DecodeFunc {
	return func(data []byte) (Event, error) {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

func decodeDetection(build func(Detection) Event) DecodeFunc {
	return func(data []byte) (Event, error) {
		var d Detection
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		if d.Sender == "" {
			d.Sender = SenderTwilioAMD
		}
		return build(d), nil
	}
}

func decodeStatusAlias(status string) DecodeFunc {
	return func(data []byte) (Event, error) {
		var e CallStatusEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		e.Status = status
		return e, nil
	}
}

type builtin struct {
	typ    Type
	schema string
	decode DecodeFunc
}

func builtins() []builtin {
	out := []builtin{
		{TypePhoneCallConnected, schemaPhoneCallConnected, As[PhoneCallConnectedEvent]()},
		{TypePhoneCallEnded, schemaPhoneCallEnded, As[PhoneCallEndedEvent]()},
		{TypePhoneCallDidNotConnect, schemaPhoneCallDidNotConnect, As[PhoneCallDidNotConnectEvent]()},
		{TypeRecording, schemaRecording, As[RecordingEvent]()},
		{TypeAction, schemaAction, As[ActionEvent]()},
		{TypeCallStatus, schemaCallStatus, As[CallStatusEvent]()},
		{TypeAnsweringMachineDetected, schemaDetection, decodeDetection(func(d Detection) Event { return AnsweringMachineDetectedEvent{d} })},
		{TypeHumanDetected, schemaDetection, decodeDetection(func(d Detection) Event { return HumanDetectedEvent{d} })},
		{TypeFaxDetected, schemaDetection, decodeDetection(func(d Detection) Event { return FaxDetectedEvent{d} })},
		{TypeUnknownDetected, schemaDetection, decodeDetection(func(d Detection) Event { return UnknownDetectedEvent{d} })},
	}
	for _, alias := range []Type{
		TypeCallInitiated, TypeCallRinging, TypeCallAnswered, TypeCallCompleted,
		TypeCallBusy, TypeCallFailed, TypeCallNoAnswer, TypeCallCanceled,
	} {
		out = append(out, builtin{alias, schemaCallStatusAlias, decodeStatusAlias(string(alias))})
	}
	return out
}
