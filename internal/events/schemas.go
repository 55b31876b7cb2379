package events

// JSON Schemas for the built-in variants. Every payload carries "type" and a
// non-empty "conversation_id"; variant fields are required unless they have a
// default (conversation_minutes, duration).

const schemaPhoneCallConnected = `{
  "type": "object",
  "required": ["type", "conversation_id", "to_phone_number", "from_phone_number"],
  "properties": {
    "type": {"type": "string"},
    "conversation_id": {"type": "string", "minLength": 1},
    "to_phone_number": {"type": "string"},
    "from_phone_number": {"type": "string"}
  }
}`

const schemaPhoneCallEnded = `{
  "type": "object",
  "required": ["type", "conversation_id"],
  "properties": {
    "type": {"type": "string"},
    "conversation_id": {"type": "string", "minLength": 1},
    "conversation_minutes": {"type": "number", "minimum": 0}
  }
}`

const schemaPhoneCallDidNotConnect = `{
  "type": "object",
  "required": ["type", "conversation_id", "telephony_status"],
  "properties": {
    "type": {"type": "string"},
    "conversation_id": {"type": "string", "minLength": 1},
    "telephony_status": {"type": "string"}
  }
}`

const schemaRecording = `{
  "type": "object",
  "required": ["type", "conversation_id", "recording_url"],
  "properties": {
    "type": {"type": "string"},
    "conversation_id": {"type": "string", "minLength": 1},
    "recording_url": {"type": "string", "minLength": 1}
  }
}`

const schemaAction = `{
  "type": "object",
  "required": ["type", "conversation_id"],
  "properties": {
    "type": {"type": "string"},
    "conversation_id": {"type": "string", "minLength": 1},
    "action_input": {"type": ["object", "null"]},
    "action_output": {"type": ["object", "null"]}
  }
}`

const schemaDetection = `{
  "type": "object",
  "required": ["type", "conversation_id", "confidence"],
  "properties": {
    "type": {"type": "string"},
    "conversation_id": {"type": "string", "minLength": 1},
    "sender": {"type": "string"},
    "confidence": {"type": "number"},
    "duration": {"type": ["number", "null"]}
  }
}`

const schemaCallStatus = `{
  "type": "object",
  "required": ["type", "conversation_id", "status"],
  "properties": {
    "type": {"type": "string"},
    "conversation_id": {"type": "string", "minLength": 1},
    "status": {"type": "string", "minLength": 1},
    "provider_call_id": {"type": "string"},
    "sequence_number": {"type": "integer", "minimum": 0}
  }
}`

// Per-status aliases take their status from the tag, so "status" is optional.
const schemaCallStatusAlias = `{
  "type": "object",
  "required": ["type", "conversation_id"],
  "properties": {
    "type": {"type": "string"},
    "conversation_id": {"type": "string", "minLength": 1},
    "provider_call_id": {"type": "string"},
    "sequence_number": {"type": "integer", "minimum": 0}
  }
}`
