package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionConfigFromRaw_DropsUnknownKeys(t *testing.T) {
	raw := map[string]interface{}{
		"model":           "gpt-4o-realtime-preview-2024-12-17",
		"voice":           "alloy",
		"some_future_key": "should be dropped",
	}
	cfg := SessionConfigFromRaw(raw)

	assert.Equal(t, "gpt-4o-realtime-preview-2024-12-17", cfg.Model)
	assert.Equal(t, "alloy", cfg.Voice)
}

func TestSessionConfig_Sanitize_OmitsEmptyFields(t *testing.T) {
	cfg := SessionConfig{Model: "m1"}
	out := cfg.Sanitize()

	assert.Contains(t, out, "model")
	assert.NotContains(t, out, "voice")
	assert.NotContains(t, out, "temperature")
}

func TestSessionConfig_Fingerprint_ExcludesInstructionsAndTemperature(t *testing.T) {
	base := SessionConfig{
		Model:             "m1",
		Modalities:        []string{"text", "audio"},
		Voice:             "alloy",
		InputAudioFormat:  "pcm16",
		OutputAudioFormat: "pcm16",
	}
	withInstructions := base
	withInstructions.Instructions = "be terse"
	temp := 0.9
	withTemperature := base
	withTemperature.Temperature = &temp

	assert.Equal(t, base.Fingerprint(), withInstructions.Fingerprint(), "expected instructions to not affect fingerprint")
	assert.Equal(t, base.Fingerprint(), withTemperature.Fingerprint(), "expected temperature to not affect fingerprint")
}

func TestSessionConfig_Fingerprint_DiffersOnModalityOrderInsensitive(t *testing.T) {
	a := SessionConfig{Model: "m1", Modalities: []string{"text", "audio"}}
	b := SessionConfig{Model: "m1", Modalities: []string{"audio", "text"}}

	assert.Equal(t, a.Fingerprint(), b.Fingerprint(), "expected modality order to not affect fingerprint")
}

func TestSessionConfig_Fingerprint_DiffersOnTurnDetectionPresence(t *testing.T) {
	a := SessionConfig{Model: "m1"}
	b := SessionConfig{Model: "m1", TurnDetection: map[string]interface{}{"type": "server_vad"}}

	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint(), "expected turn_detection presence to affect fingerprint")
}

func TestSessionConfig_Fingerprint_DiffersOnModel(t *testing.T) {
	a := SessionConfig{Model: "m1"}
	b := SessionConfig{Model: "m2"}

	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint(), "expected different models to produce different fingerprints")
}
