package router

import (
	"context"
	"encoding/base64"

	"github.com/rapidaai/relay/internal/accountant"
	"github.com/rapidaai/relay/internal/logging"
	"github.com/rapidaai/relay/internal/tools"
	"github.com/rapidaai/relay/internal/types"
	"github.com/rapidaai/relay/internal/upstream"
)

// audioBytesPerTick is the byte count of one ~20ms tick of 24kHz mono PCM16
// audio: 24000 samples/s * 2 bytes/sample * 0.02s.
const audioBytesPerTick = 24000 * 2 * 0.02

// Router drives the Event Router for one ClientConnection: two pumps
// sharing the connection's mutex-guarded ResponseState.
type Router struct {
	logger     logging.Logger
	accountant *accountant.Accountant
	registry   tools.Registry // nil disables function.call interception
}

// New builds a Router. registry may be nil to leave function.call
// interception disabled, which is the default.
func New(logger logging.Logger, acct *accountant.Accountant, registry tools.Registry) *Router {
	return &Router{logger: logger, accountant: acct, registry: registry}
}

// Run drives both pumps for conn until either the client socket or the
// upstream session closes, or an unrecoverable error occurs. It returns the
// reason the connection ended, as a CloseCode.
func (r *Router) Run(ctx context.Context, conn *ClientConnection, client ClientSocket, sess *upstream.Session) types.CloseCode {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The Frontend consumes the connection's init_session before Run is
	// called; record it so the pump treats the next client event as a
	// follow-up rather than as a missing init_session.
	conn.markFirstEvent()

	done := make(chan types.CloseCode, 2)

	go func() { done <- r.pumpClientToUpstream(ctx, conn, client, sess) }()
	go func() { done <- r.pumpUpstreamToClient(ctx, conn, client, sess) }()

	code := <-done
	cancel()
	<-done // wait for the other pump to observe cancellation and exit
	return code
}

// pumpClientToUpstream reads client-originated events, runs them through
// accounting and tool interception, and forwards them upstream.
func (r *Router) pumpClientToUpstream(ctx context.Context, conn *ClientConnection, client ClientSocket, sess *upstream.Session) types.CloseCode {
	for {
		ev, err := client.ReadEvent()
		if err != nil {
			select {
			case <-ctx.Done():
				return types.CloseNormal
			default:
			}
			r.logger.Debugw("client read ended", "connection", conn.ID, "error", err)
			return types.CloseNormal
		}

		if ev == nil {
			_ = client.WriteEvent(types.NewErrorEvent("invalid_request_error", "invalid_json", "invalid JSON payload", ""))
			continue
		}

		if ev.Type() == "" {
			_ = client.WriteEvent(types.NewErrorEvent("invalid_request_error", "invalid_event", "the 'type' field is missing", "type"))
			continue
		}

		ev = types.StampEventID(ev)

		isFirst := conn.markFirstEvent()
		switch ev.Type() {
		case string(types.EventInitSession):
			if !isFirst {
				_ = client.WriteEvent(types.NewErrorEvent("invalid_request_error", "invalid_init", "init_session must be the first event", "type"))
				return types.CloseInitTimeout
			}
			// init_session is consumed here, not forwarded. Under Run the
			// Frontend has already consumed the connection's init_session,
			// so one arriving here is a repeat and is rejected above.
			continue
		default:
			if isFirst {
				_ = client.WriteEvent(types.NewErrorEvent("invalid_request_error", "invalid_init", "first event must be init_session", "type"))
				return types.CloseInitTimeout
			}
		}

		if ev.Type() == string(types.EventInputAudioBufferAppend) {
			r.accountAudioInput(ctx, conn, ev)
		}

		if ev.Type() == string(types.EventFunctionCall) && r.registry != nil {
			if handled := r.interceptFunctionCall(ctx, client, ev); handled {
				continue
			}
		}

		if ev.Type() == string(types.EventResponseCancel) {
			conn.transition(func(types.ResponseState, string) (types.ResponseState, string) {
				return types.Idle, ""
			})
		}

		if !r.accountant.CheckAndConsume(conn.PrincipalID) {
			_ = client.WriteEvent(types.NewErrorEvent("rate_limit_error", "rate_limited", "rate limit exceeded", ""))
			continue
		}

		if err := sess.Send(ev); err != nil {
			r.logger.Warnw("failed to enqueue event upstream", "connection", conn.ID, "error", err)
			return types.CloseRelayInternal
		}
	}
}

func (r *Router) accountAudioInput(ctx context.Context, conn *ClientConnection, ev types.Event) {
	audioB64, _ := ev["audio"].(string)
	if audioB64 == "" {
		return
	}
	n, err := base64.StdEncoding.DecodeString(audioB64)
	if err != nil {
		return
	}
	ticks := int64(float64(len(n)) / audioBytesPerTick)
	if ticks > 0 {
		r.accountant.RecordAudioInput(ctx, conn.PrincipalID, ticks)
	}
}

// interceptFunctionCall handles a function.call locally against the
// configured Tool Registry when the tool name is known to it, synthesizing
// a function.response (or error) downstream and reporting true. When the
// tool is unknown it returns false so the caller forwards the call upstream
// unchanged.
func (r *Router) interceptFunctionCall(ctx context.Context, client ClientSocket, ev types.Event) bool {
	name, _ := ev["name"].(string)
	if !tools.Known(ctx, r.registry, name) {
		return false
	}

	params, _ := ev["parameters"].(map[string]interface{})
	responseID, _ := ev["response_id"].(string)

	result, err := r.registry.Call(ctx, name, params)
	if err != nil {
		_ = client.WriteEvent(types.NewErrorEvent("function_error", "function_call_failed", err.Error(), ""))
		return true
	}
	_ = client.WriteEvent(types.NewFunctionResponse(responseID, result))
	return true
}

// pumpUpstreamToClient reads upstream events, applies the connection's
// response-state machine, and forwards them to the client.
func (r *Router) pumpUpstreamToClient(ctx context.Context, conn *ClientConnection, client ClientSocket, sess *upstream.Session) types.CloseCode {
	for {
		select {
		case <-ctx.Done():
			return types.CloseNormal
		case ev, ok := <-sess.Recv():
			if !ok {
				_ = client.WriteEvent(types.NewErrorEvent("relay_error", "upstream_closed", "upstream connection closed", ""))
				return types.CloseNormal
			}

			if code, shouldClose := r.applyStateMachine(ctx, conn, sess, ev); shouldClose {
				_ = client.WriteEvent(ev)
				return code
			}

			if r.shouldDrop(conn, ev) {
				continue
			}

			if err := client.WriteEvent(ev); err != nil {
				r.logger.Debugw("client write failed", "connection", conn.ID, "error", err)
				return types.CloseNormal
			}
		}
	}
}

// shouldDrop implements the delta-drop rule: response.*.delta events for a
// response id other than the current one are silently dropped — a later
// response.cancel may have superseded them.
func (r *Router) shouldDrop(conn *ClientConnection, ev types.Event) bool {
	switch ev.Type() {
	case string(types.EventResponseTextDelta),
		string(types.EventResponseAudioDelta),
		string(types.EventResponseAudioTranscriptDelta):
		responseID, _ := ev["response_id"].(string)
		return responseID != "" && responseID != conn.CurrentResponseID()
	default:
		return false
	}
}

// applyStateMachine implements the per-connection ResponseState transitions
// and returns whether the connection must close.
func (r *Router) applyStateMachine(ctx context.Context, conn *ClientConnection, sess *upstream.Session, ev types.Event) (types.CloseCode, bool) {
	switch ev.Type() {
	case string(types.EventResponseCreated):
		responseID, _ := ev["response_id"].(string)
		if responseID == "" {
			responseID, _ = ev["id"].(string)
		}
		conn.transition(func(types.ResponseState, string) (types.ResponseState, string) {
			return types.Responding, responseID
		})

	case string(types.EventResponseDone):
		r.recordResponseDone(ctx, conn, ev)
		conn.transition(func(types.ResponseState, string) (types.ResponseState, string) {
			return types.Idle, ""
		})

	case string(types.EventRateLimitsUpdated):
		if limits, ok := ev["rate_limits"].([]interface{}); ok {
			conn.setRateLimits(limits)
		}

	case string(types.EventInputAudioBufferSpeechStarted):
		if conn.State() == types.Responding {
			responseID := conn.CurrentResponseID()
			_ = sess.Send(types.NewResponseCancel(responseID))
		}
		conn.transition(func(_ types.ResponseState, responseID string) (types.ResponseState, string) {
			return types.Processing, responseID
		})

	case string(types.EventInputAudioBufferSpeechStopped):
		conn.transition(func(_ types.ResponseState, responseID string) (types.ResponseState, string) {
			return types.Idle, responseID
		})

	case string(types.EventResponseAudioDelta):
		r.accountAudioOutput(ctx, conn, ev)

	case string(types.EventError):
		r.accountant.RecordError(ctx, conn.PrincipalID)
		if isFatalUpstreamError(ev) {
			conn.transition(func(types.ResponseState, string) (types.ResponseState, string) {
				return types.Error, ""
			})
			return types.CloseUpstreamFailed, true
		}
	}
	return types.CloseNormal, false
}

func (r *Router) recordResponseDone(ctx context.Context, conn *ClientConnection, ev types.Event) {
	input, _ := types.NestedFloat(ev, "usage", "input_tokens")
	output, _ := types.NestedFloat(ev, "usage", "output_tokens")
	cached, _ := types.NestedFloat(ev, "usage", "cached_tokens")
	r.accountant.RecordResponseDone(ctx, conn.PrincipalID, int64(input), int64(output), int64(cached))
}

func (r *Router) accountAudioOutput(ctx context.Context, conn *ClientConnection, ev types.Event) {
	audioB64, _ := ev["delta"].(string)
	if audioB64 == "" {
		return
	}
	n, err := base64.StdEncoding.DecodeString(audioB64)
	if err != nil {
		return
	}
	ticks := int64(float64(len(n)) / audioBytesPerTick)
	if ticks > 0 {
		r.accountant.RecordAudioOutput(ctx, conn.PrincipalID, ticks)
	}
}

func isFatalUpstreamError(ev types.Event) bool {
	code := types.NestedString(ev, "error", "code")
	switch code {
	case "auth_failed", "session_expired", "fatal_error":
		return true
	default:
		return false
	}
}
