package telephony

import "context"

// Provider is the outbound call-control surface the dialer depends on.
//
// Rules:
// - No provider HTTP calls outside telephony adapters.
// - Implementations perform exactly one provider request per call and never
//   retry on their own.
type Provider interface {
	Name() string
	CreateCall(ctx context.Context, req CreateCallRequest) (string, error)
	EndCall(ctx context.Context, providerCallID string) (bool, error)
	ConnectionDescriptor(conversationID string) string
}

// CreateCallRequest describes one outbound call.
type CreateCallRequest struct {
	ConversationID string `json:"conversation_id"`

	// To and From are digits without the leading "+"; it is added on the wire.
	// Numbers are not validated here; the provider rejects bad ones.
	To   string `json:"to"`
	From string `json:"from"`

	Record bool   `json:"record,omitempty"`
	Digits string `json:"digits,omitempty"`

	// TelephonyParams are extra provider request fields. Fields the client sets
	// itself for this request take precedence over entries here.
	TelephonyParams map[string]string `json:"telephony_params,omitempty"`
}

var _ Provider = (*Client)(nil)
