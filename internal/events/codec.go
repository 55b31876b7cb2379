package events

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// Encode returns the RFC 8785 canonical JSON form of e, including its "type".
// Decoding the result with a Registry yields an event Equal to e.
func Encode(e Event) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("events: encode nil event")
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("events: marshal %s: %w", e.Type(), err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("events: marshal %s: %w", e.Type(), err)
	}
	fields["type"] = string(e.Type())

	raw, err = json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("events: marshal %s: %w", e.Type(), err)
	}
	return jcs.Transform(raw)
}

// Fingerprint is the sha256 hex digest of the canonical encoding. Two
// deliveries of the same signal share a fingerprint.
func Fingerprint(e Event) (string, error) {
	canonical, err := Encode(e)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Equal reports structural equality of two events.
func Equal(a, b Event) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Type() != b.Type() {
		return false
	}
	ea, err := Encode(a)
	if err != nil {
		return false
	}
	eb, err := Encode(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ea, eb)
}
