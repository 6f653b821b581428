// Package audit provides tamper-evident audit logging for signing
// operations.
//
// Audit records are separate from technical logs:
//   - Audit failure = Operation failure
//   - Never log secrets (private keys, passphrases, PINs)
//   - All timestamps in UTC
//   - Hash chain for integrity verification
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// EventType represents the category of audit event.
type EventType string

const (
	// Envelope events
	EventEnvelopeSign   EventType = "ENVELOPE_SIGN"
	EventEnvelopeVerify EventType = "ENVELOPE_VERIFY"

	// Remote device events
	EventRemoteSign       EventType = "REMOTE_SIGN"
	EventRemoteAuthFailed EventType = "REMOTE_AUTH_FAILED"

	// Discovery events
	EventSoftCardList EventType = "SOFTCARD_LIST"

	// Key access events
	EventKeyAccessed EventType = "KEY_ACCESSED"
)

// Result represents the outcome of an audited operation.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// Actor represents who performed the action.
type Actor struct {
	Type string `json:"type" cbor:"type"`
	ID   string `json:"id" cbor:"id"`
	Host string `json:"host,omitempty" cbor:"host,omitempty"`
}

// Object represents what was acted upon.
type Object struct {
	Type    string `json:"type" cbor:"type"`                       // "envelope", "key", "softcard"
	Serial  string `json:"serial,omitempty" cbor:"serial,omitempty"`
	Subject string `json:"subject,omitempty" cbor:"subject,omitempty"`
	Path    string `json:"path,omitempty" cbor:"path,omitempty"`
}

// Context provides additional details about the operation.
type Context struct {
	Format    string `json:"format,omitempty" cbor:"format,omitempty"`       // envelope wire format
	Algorithm string `json:"algorithm,omitempty" cbor:"algorithm,omitempty"` // digest algorithm name
	KeySource string `json:"key_source,omitempty" cbor:"key_source,omitempty"`
	Device    string `json:"device,omitempty" cbor:"device,omitempty"` // remote device address
	Card      string `json:"card,omitempty" cbor:"card,omitempty"`
	Verified  bool   `json:"verified,omitempty" cbor:"verified,omitempty"`
	Reason    string `json:"reason,omitempty" cbor:"reason,omitempty"`
}

// Event represents a single audit log entry.
type Event struct {
	EventType EventType `json:"event_type" cbor:"event_type"`
	Timestamp string    `json:"timestamp" cbor:"timestamp"` // RFC3339 UTC
	Actor     Actor     `json:"actor" cbor:"actor"`
	Object    Object    `json:"object" cbor:"object"`
	Context   Context   `json:"context,omitempty" cbor:"context,omitempty"`
	Result    Result    `json:"result" cbor:"result"`
	HashPrev  string    `json:"hash_prev" cbor:"hash_prev"`
	Hash      string    `json:"hash" cbor:"hash"`
}

// NewEvent creates an audit event with current timestamp and actor info.
func NewEvent(eventType EventType, result Result) *Event {
	hostname, _ := os.Hostname()
	username := os.Getenv("USER")
	if username == "" {
		username = os.Getenv("USERNAME") // Windows
	}
	if username == "" {
		username = "unknown"
	}

	return &Event{
		EventType: eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Actor: Actor{
			Type: "user",
			ID:   username,
			Host: hostname,
		},
		Result: result,
	}
}

// WithObject sets the object field.
func (e *Event) WithObject(obj Object) *Event {
	e.Object = obj
	return e
}

// WithContext sets the context field.
func (e *Event) WithContext(ctx Context) *Event {
	e.Context = ctx
	return e
}

// WithActor overrides the default actor.
func (e *Event) WithActor(actor Actor) *Event {
	e.Actor = actor
	return e
}

// Validate checks that required fields are present.
func (e *Event) Validate() error {
	if e.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if e.Timestamp == "" {
		return fmt.Errorf("timestamp is required")
	}
	if e.Actor.Type == "" || e.Actor.ID == "" {
		return fmt.Errorf("actor type and id are required")
	}
	if e.Result == "" {
		return fmt.Errorf("result is required")
	}
	return nil
}

// CanonicalJSON returns the event as canonical JSON for hashing.
// The Hash field is excluded so the hash can be computed over it.
func (e *Event) CanonicalJSON() ([]byte, error) {
	type eventForHash struct {
		EventType EventType `json:"event_type"`
		Timestamp string    `json:"timestamp"`
		Actor     Actor     `json:"actor"`
		Object    Object    `json:"object"`
		Context   Context   `json:"context,omitempty"`
		Result    Result    `json:"result"`
		HashPrev  string    `json:"hash_prev"`
	}

	canonical := eventForHash{
		EventType: e.EventType,
		Timestamp: e.Timestamp,
		Actor:     e.Actor,
		Object:    e.Object,
		Context:   e.Context,
		Result:    e.Result,
		HashPrev:  e.HashPrev,
	}

	return json.Marshal(canonical)
}

// JSON returns the full event as JSON.
func (e *Event) JSON() ([]byte, error) {
	return json.Marshal(e)
}
