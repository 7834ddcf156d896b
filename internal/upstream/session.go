// Package upstream implements the Upstream Session: one live WebSocket
// connection to the proprietary Realtime API, with heartbeat, bounded
// exponential reconnect, and a bounded, drop-oldest outbound queue.
package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rapidaai/relay/internal/logging"
	"github.com/rapidaai/relay/internal/types"
)

// State is the Upstream Session's lifecycle state.
type State int

const (
	Connecting State = iota
	Healthy
	Unhealthy
	Closed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Healthy:
		return "healthy"
	case Unhealthy:
		return "unhealthy"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

const (
	heartbeatInterval  = 20 * time.Second
	pongTimeout        = 10 * time.Second
	handshakeTimeout   = 30 * time.Second
	readLimitBytes     = 10 * 1024 * 1024
	maxReconnectTries  = 3
	maxReconnectWaitS  = 30
	outboundQueueDepth = 256
)

// Options configures a Session's dial target and credential.
type Options struct {
	WebSocketURL    string
	ProtocolVersion string
	Credential      types.EphemeralCredential
	SessionConfig   types.SessionConfig
	Fingerprint     string
}

// Session is one live (or reconnecting) connection to the upstream Realtime
// API. All exported methods are safe for concurrent use.
type Session struct {
	logger logging.Logger
	opts   Options

	mu            sync.Mutex
	conn          *websocket.Conn
	state         State
	lastHeartbeat time.Time
	reconnects    int
	dropCount     int64

	writeMu sync.Mutex

	out    chan types.Event
	in     chan types.Event
	closed chan struct{}
	once   sync.Once

	ctx    context.Context
	cancel context.CancelFunc
}

// New dials the upstream WebSocket and starts the session's background
// machinery (heartbeat, reader, writer). It returns once the opening
// handshake has completed.
func New(ctx context.Context, logger logging.Logger, opts Options) (*Session, error) {
	sessCtx, cancel := context.WithCancel(context.Background())
	s := &Session{
		logger: logger,
		opts:   opts,
		state:  Connecting,
		out:    make(chan types.Event, outboundQueueDepth),
		in:     make(chan types.Event, outboundQueueDepth),
		closed: make(chan struct{}),
		ctx:    sessCtx,
		cancel: cancel,
	}

	if err := s.dial(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("upstream: dial: %w", err)
	}

	go s.readLoop()
	go s.writeLoop()
	go s.heartbeatLoop()

	return s, nil
}

func (s *Session) dial(ctx context.Context) error {
	wsURL, err := url.Parse(s.opts.WebSocketURL)
	if err != nil {
		return fmt.Errorf("parsing websocket url: %w", err)
	}
	if s.opts.SessionConfig.Model != "" {
		q := wsURL.Query()
		q.Set("model", s.opts.SessionConfig.Model)
		wsURL.RawQuery = q.Encode()
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+s.opts.Credential.Value)
	if s.opts.ProtocolVersion != "" {
		headers.Set("OpenAI-Beta", s.opts.ProtocolVersion)
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, wsURL.String(), headers)
	if err != nil {
		return err
	}

	conn.SetReadLimit(readLimitBytes)
	conn.SetPongHandler(func(string) error {
		s.mu.Lock()
		s.lastHeartbeat = time.Now()
		s.mu.Unlock()
		return nil
	})

	s.mu.Lock()
	s.conn = conn
	s.state = Healthy
	s.reconnects = 0
	s.lastHeartbeat = time.Now()
	s.mu.Unlock()
	return nil
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// DropCount returns the number of outbound events dropped under queue
// pressure so far, for operator visibility.
func (s *Session) DropCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropCount
}

// Fingerprint returns the session-identity fingerprint it was opened with.
func (s *Session) Fingerprint() string { return s.opts.Fingerprint }

// Send enqueues an event on the bounded outbound queue. Non-blocking: on a
// full queue, the oldest pending non-audio event is dropped first, falling
// back to the oldest audio event so control events survive.
func (s *Session) Send(ev types.Event) error {
	if s.State() == Closed {
		return fmt.Errorf("upstream: %w", errSessionClosed)
	}
	select {
	case s.out <- ev:
		return nil
	default:
	}
	s.dropOldestAndEnqueue(ev)
	return nil
}

var errSessionClosed = fmt.Errorf("session closed")

func (s *Session) dropOldestAndEnqueue(ev types.Event) {
	// Drain once, preferring to evict a non-audio event so control traffic
	// survives under pressure; if none is found, evict the head regardless.
	buffered := make([]types.Event, 0, len(s.out))
drain:
	for {
		select {
		case e := <-s.out:
			buffered = append(buffered, e)
		default:
			break drain
		}
	}

	evicted := false
	result := make([]types.Event, 0, len(buffered)+1)
	for _, e := range buffered {
		if !evicted && e.Type() != string(types.EventInputAudioBufferAppend) {
			evicted = true
			continue
		}
		result = append(result, e)
	}
	if !evicted && len(result) > 0 {
		result = result[1:]
		evicted = true
	}
	result = append(result, ev)

	s.mu.Lock()
	s.dropCount++
	s.mu.Unlock()

	for _, e := range result {
		select {
		case s.out <- e:
		default:
			// Queue shrank back below capacity concurrently; nothing more
			// to do, the event is dropped silently but the counter already
			// reflects one drop for this Send call.
		}
	}
}

// Recv returns the channel of events received from upstream, in upstream
// order. The channel is closed when the session transitions to Closed.
func (s *Session) Recv() <-chan types.Event { return s.in }

// Close initiates a clean close of the session. Idempotent.
func (s *Session) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.state = Closed
		conn := s.conn
		s.mu.Unlock()

		if conn != nil {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		}
		s.cancel()
		close(s.closed)
		close(s.in)
	})
	return nil
}

func (s *Session) writeLoop() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case ev, ok := <-s.out:
			if !ok {
				return
			}
			if err := s.writeEvent(ev); err != nil {
				s.logger.Warnw("upstream write failed, triggering reconnect", "error", err)
				s.markUnhealthyAndReconnect(ev)
			}
		}
	}
}

func (s *Session) writeEvent(ev types.Event) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("no active connection")
	}
	return conn.WriteJSON(ev)
}

func (s *Session) readLoop() {
	for {
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn == nil {
			return
		}

		var ev types.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if s.State() == Closed {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debugf("upstream: connection closed normally")
				_ = s.Close()
				return
			}
			s.logger.Warnw("upstream read error, triggering reconnect", "error", err)
			s.markUnhealthyAndReconnect(nil)
			if s.State() == Closed {
				return
			}
			continue
		}

		select {
		case s.in <- ev:
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Session) heartbeatLoop() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			conn := s.conn
			lastBeat := s.lastHeartbeat
			s.mu.Unlock()
			if conn == nil {
				continue
			}
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				s.logger.Warnw("upstream ping failed, triggering reconnect", "error", err)
				s.markUnhealthyAndReconnect(nil)
				continue
			}
			if time.Since(lastBeat) > heartbeatInterval+pongTimeout {
				s.logger.Warnw("upstream pong timeout, triggering reconnect")
				s.markUnhealthyAndReconnect(nil)
			}
		}
	}
}

// markUnhealthyAndReconnect runs the bounded exponential reconnect ladder:
// up to three attempts, backoff min(30s, 2^n s). On exhaustion the
// session transitions to terminal Closed.
func (s *Session) markUnhealthyAndReconnect(requeue types.Event) {
	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return
	}
	s.state = Unhealthy
	if conn := s.conn; conn != nil {
		_ = conn.Close()
	}
	s.conn = nil
	s.mu.Unlock()

	if requeue != nil {
		select {
		case s.out <- requeue:
		default:
			s.dropOldestAndEnqueue(requeue)
		}
	}

	for attempt := 1; attempt <= maxReconnectTries; attempt++ {
		wait := backoff(attempt)
		s.logger.Infow("upstream reconnecting", "attempt", attempt, "wait", wait)
		select {
		case <-s.ctx.Done():
			return
		case <-time.After(wait):
		}

		dialCtx, cancel := context.WithTimeout(context.Background(), handshakeTimeout)
		err := s.dial(dialCtx)
		cancel()
		if err == nil {
			s.logger.Infow("upstream reconnected", "attempt", attempt)
			return
		}
		s.logger.Warnw("upstream reconnect attempt failed", "attempt", attempt, "error", err)
	}

	s.logger.Errorw("upstream reconnect ladder exhausted, closing session")
	_ = s.Close()
}

func backoff(attempt int) time.Duration {
	secs := 1 << attempt
	if secs > maxReconnectWaitS {
		secs = maxReconnectWaitS
	}
	return time.Duration(secs) * time.Second
}
