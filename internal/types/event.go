package types

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// EventType names the event-taxonomy members the Router must recognize for
// state transitions. The Router's dispatch table is closed over this
// set; anything else is treated as opaque pass-through.
type EventType string

const (
	EventInitSession    EventType = "init_session"
	EventResponseCancel EventType = "response.cancel"
	EventFunctionCall   EventType = "function.call"

	EventConnectionEstablished EventType = "connection.established"
	EventSessionCreated        EventType = "session.created"
	EventSessionUpdated        EventType = "session.updated"

	EventConversationItemCreated                     EventType = "conversation.item.created"
	EventConversationItemInputAudioTranscriptionDone EventType = "conversation.item.input_audio_transcription.completed"

	EventInputAudioBufferAppend        EventType = "input_audio_buffer.append"
	EventInputAudioBufferCommitted     EventType = "input_audio_buffer.committed"
	EventInputAudioBufferSpeechStarted EventType = "input_audio_buffer.speech_started"
	EventInputAudioBufferSpeechStopped EventType = "input_audio_buffer.speech_stopped"

	EventResponseCreated                EventType = "response.created"
	EventResponseDone                   EventType = "response.done"
	EventResponseTextDelta              EventType = "response.text.delta"
	EventResponseTextDone               EventType = "response.text.done"
	EventResponseAudioDelta             EventType = "response.audio.delta"
	EventResponseAudioDone              EventType = "response.audio.done"
	EventResponseAudioTranscriptDelta   EventType = "response.audio_transcript.delta"
	EventResponseAudioTranscriptDone    EventType = "response.audio_transcript.done"
	EventResponseFunctionCallArgsDelta  EventType = "response.function_call_arguments.delta"
	EventResponseFunctionCallArgsDone   EventType = "response.function_call_arguments.done"
	EventFunctionResponse               EventType = "function.response"

	EventRateLimitsUpdated EventType = "rate_limits.updated"
	EventError             EventType = "error"
)

// Event is a relay wire event: an opaque JSON object keyed by at least
// "type". The Router treats it as opaque except for a handful of event
// classes it needs to inspect for accounting and state tracking.
type Event map[string]interface{}

// Type returns the event's "type" field, or "" if missing/malformed.
func (e Event) Type() string {
	v, _ := e["type"].(string)
	return v
}

// EventID returns the event's "event_id" field, or "" if absent.
func (e Event) EventID() string {
	v, _ := e["event_id"].(string)
	return v
}

// NewEventID returns a relay-assigned event id of the form evt_<6-hex>.
func NewEventID() string {
	b := make([]byte, 3)
	_, _ = rand.Read(b)
	return "evt_" + hex.EncodeToString(b)
}

// StampEventID ensures e carries an event_id, assigning a fresh one if
// absent. Duplicate ids submitted by the client are permitted and are not
// deduplicated.
func StampEventID(e Event) Event {
	if id, ok := e["event_id"].(string); ok && id != "" {
		return e
	}
	e["event_id"] = NewEventID()
	return e
}

// NewErrorEvent synthesizes a relay-originated error event in the
// server-originated framing shape.
func NewErrorEvent(errType, code, message, param string) Event {
	errBody := map[string]interface{}{
		"type":    errType,
		"code":    code,
		"message": message,
	}
	if param != "" {
		errBody["param"] = param
	}
	return Event{
		"event_id": NewEventID(),
		"type":     string(EventError),
		"error":    errBody,
	}
}

// NewConnectionEstablished synthesizes the relay's first server-originated
// framing event.
func NewConnectionEstablished(now time.Time) Event {
	return Event{
		"type":      string(EventConnectionEstablished),
		"timestamp": now.UTC().Format(time.RFC3339),
	}
}

// NewSessionCreated synthesizes the session.created framing event carrying
// the relay-assigned session id.
func NewSessionCreated(sessionID string) Event {
	return Event{
		"type":       string(EventSessionCreated),
		"session_id": sessionID,
	}
}

// NewResponseCancel synthesizes a response.cancel event the Router sends
// upstream when speech_started interrupts an in-flight response.
func NewResponseCancel(responseID string) Event {
	return Event{
		"event_id":    NewEventID(),
		"type":        string(EventResponseCancel),
		"response_id": responseID,
	}
}

// NewFunctionResponse synthesizes a locally produced function.response
// event for an intercepted function.call.
func NewFunctionResponse(responseID string, result interface{}) Event {
	return Event{
		"event_id":    NewEventID(),
		"type":        string(EventFunctionResponse),
		"response_id": responseID,
		"result":      result,
	}
}

// StringField reads a string field from the event body, returning "" if
// absent or of the wrong type.
func StringField(e Event, key string) string {
	v, _ := e[key].(string)
	return v
}

// NestedString reads a string at e[outer][inner], used for nested string
// fields like error.code; numeric fields are read with NestedFloat.
func NestedString(e Event, outer, inner string) string {
	nested, ok := e[outer].(map[string]interface{})
	if !ok {
		return ""
	}
	v, _ := nested[inner].(string)
	return v
}

// NestedFloat reads a numeric field at e[outer][inner] as a float64;
// encoding/json decodes all JSON numbers into float64 by default.
func NestedFloat(e Event, outer, inner string) (float64, bool) {
	nested, ok := e[outer].(map[string]interface{})
	if !ok {
		return 0, false
	}
	v, ok := nested[inner].(float64)
	return v, ok
}
