package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStampEventID_AssignsWhenAbsent(t *testing.T) {
	ev := Event{"type": "input_audio_buffer.append"}
	ev = StampEventID(ev)

	assert.NotEmpty(t, ev.EventID())
}

func TestStampEventID_PreservesExisting(t *testing.T) {
	ev := Event{"type": "input_audio_buffer.append", "event_id": "evt_client123"}
	ev = StampEventID(ev)

	assert.Equal(t, "evt_client123", ev.EventID())
}

func TestEvent_Type_MissingReturnsEmpty(t *testing.T) {
	ev := Event{}
	assert.Empty(t, ev.Type())
}

func TestNewErrorEvent_ShapesErrorBody(t *testing.T) {
	ev := NewErrorEvent("invalid_request_error", "invalid_json", "could not parse frame", "")
	assert.Equal(t, string(EventError), ev.Type())

	errBody, ok := ev["error"].(map[string]interface{})
	require.True(t, ok, "expected error body to be a map")
	assert.Equal(t, "invalid_json", errBody["code"])

	_, hasParam := errBody["param"]
	assert.False(t, hasParam, "expected empty param to be omitted")
}

func TestNestedFloat_ReadsNestedNumber(t *testing.T) {
	ev := Event{"usage": map[string]interface{}{"input_tokens": float64(42)}}
	v, ok := NestedFloat(ev, "usage", "input_tokens")
	assert.True(t, ok)
	assert.Equal(t, float64(42), v)
}

func TestNestedFloat_MissingOuterReturnsFalse(t *testing.T) {
	ev := Event{}
	_, ok := NestedFloat(ev, "usage", "input_tokens")
	assert.False(t, ok)
}
