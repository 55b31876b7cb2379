package audit

import "time"

// Entry is an immutable, append-only journal record of one inbound call signal.
//
// Invariants:
// - Entries are never updated or deleted.
// - conversation_id and event_type are required.
// - Every signal is journaled, including ignored and rejected ones, so the
//   stored call state can be explained from the journal alone.
//
// Storage (Postgres): table call_events with an INSERT-only policy.
type Entry struct {
	ID             string `json:"id" db:"id"`
	ConversationID string `json:"conversation_id" db:"conversation_id"`

	// EventType is the event discriminant ("event_call_status", "human_detected", ...).
	EventType string `json:"event_type" db:"event_type"`

	// Outcome is what the tracker did with the signal (applied, duplicate, stale, ...).
	Outcome string `json:"outcome" db:"outcome"`

	// Fingerprint is the sha256 of the canonical event encoding. Redeliveries of
	// the same signal share it.
	Fingerprint string `json:"fingerprint,omitempty" db:"fingerprint"`

	// Detail is a short human-readable note for ops (e.g. "answered -> busy").
	Detail string `json:"detail,omitempty" db:"detail"`

	// Payload is the canonical JSON of the event.
	Payload string `json:"payload,omitempty" db:"payload"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
