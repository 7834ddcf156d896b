package types

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
)

// SessionConfig is the whitelist of fields a client may request for an
// upstream session. Any field not named here is silently dropped before
// the config reaches the Minter or the upstream wire.
type SessionConfig struct {
	Model                   string                 `json:"model,omitempty"`
	Modalities              []string               `json:"modalities,omitempty"`
	Instructions            string                 `json:"instructions,omitempty"`
	Voice                   string                 `json:"voice,omitempty"`
	InputAudioFormat        string                 `json:"input_audio_format,omitempty"`
	OutputAudioFormat       string                 `json:"output_audio_format,omitempty"`
	InputAudioTranscription map[string]interface{} `json:"input_audio_transcription,omitempty"`
	TurnDetection           map[string]interface{} `json:"turn_detection,omitempty"`
	Tools                   []interface{}          `json:"tools,omitempty"`
	ToolChoice              interface{}            `json:"tool_choice,omitempty"`
	Temperature             *float64               `json:"temperature,omitempty"`
	MaxResponseOutputTokens interface{}             `json:"max_response_output_tokens,omitempty"`
}

// SessionConfigFromRaw decodes a client-submitted, untrusted session_config
// object, keeping only the recognized whitelist keys. Unknown keys are
// dropped here, before the config ever reaches the Minter.
func SessionConfigFromRaw(raw map[string]interface{}) SessionConfig {
	var cfg SessionConfig
	b, err := json.Marshal(raw)
	if err != nil {
		return cfg
	}
	// Decoding into the concrete struct is itself the whitelist: any key
	// absent from SessionConfig's json tags is ignored by encoding/json.
	_ = json.Unmarshal(b, &cfg)
	return cfg
}

// Sanitize returns a map containing only the non-empty whitelisted fields,
// suitable for transmission to the upstream sessions endpoint. The Minter
// is the only caller; this is the single point where the outbound whitelist
// is enforced.
func (c SessionConfig) Sanitize() map[string]interface{} {
	out := map[string]interface{}{}
	if c.Model != "" {
		out["model"] = c.Model
	}
	if len(c.Modalities) > 0 {
		out["modalities"] = c.Modalities
	}
	if c.Instructions != "" {
		out["instructions"] = c.Instructions
	}
	if c.Voice != "" {
		out["voice"] = c.Voice
	}
	if c.InputAudioFormat != "" {
		out["input_audio_format"] = c.InputAudioFormat
	}
	if c.OutputAudioFormat != "" {
		out["output_audio_format"] = c.OutputAudioFormat
	}
	if len(c.InputAudioTranscription) > 0 {
		out["input_audio_transcription"] = c.InputAudioTranscription
	}
	if len(c.TurnDetection) > 0 {
		out["turn_detection"] = c.TurnDetection
	}
	if len(c.Tools) > 0 {
		out["tools"] = c.Tools
	}
	if c.ToolChoice != nil {
		out["tool_choice"] = c.ToolChoice
	}
	if c.Temperature != nil {
		out["temperature"] = *c.Temperature
	}
	if c.MaxResponseOutputTokens != nil {
		out["max_response_output_tokens"] = c.MaxResponseOutputTokens
	}
	return out
}

// Fingerprint identifies upstream-session identity: the subset of fields
// that determine whether a pooled session can be reused for a given
// request. Instructions and temperature deliberately do not participate —
// a reused session may receive a late session.update for those instead.
func (c SessionConfig) Fingerprint() string {
	modalities := append([]string(nil), c.Modalities...)
	sort.Strings(modalities)

	h := sha256.New()
	h.Write([]byte(c.Model))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(modalities, ",")))
	h.Write([]byte{0})
	h.Write([]byte(c.Voice))
	h.Write([]byte{0})
	h.Write([]byte(c.InputAudioFormat))
	h.Write([]byte{0})
	h.Write([]byte(c.OutputAudioFormat))
	h.Write([]byte{0})
	if len(c.TurnDetection) > 0 {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// DefaultSessionConfig mirrors the upstream's own documented defaults. It is
// not applied automatically: SessionConfigFromRaw leaves fields the client
// omits empty.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Model:             "gpt-4o-realtime-preview-2024-12-17",
		Modalities:        []string{"text", "audio"},
		Voice:             "alloy",
		InputAudioFormat:  "pcm16",
		OutputAudioFormat: "pcm16",
		InputAudioTranscription: map[string]interface{}{
			"model": "whisper-1",
		},
		TurnDetection: map[string]interface{}{
			"type":                "server_vad",
			"threshold":           0.5,
			"prefix_padding_ms":   300,
			"silence_duration_ms": 500,
			"create_response":     true,
		},
	}
}
