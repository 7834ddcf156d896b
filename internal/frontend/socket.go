// Package frontend implements the Relay Frontend: accepts client
// WebSocket upgrades, authenticates, binds Router to Upstream Session, and
// owns the full per-connection lifecycle.
package frontend

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rapidaai/relay/internal/router"
	"github.com/rapidaai/relay/internal/types"
)

const clientReadLimitBytes = 1 * 1024 * 1024

var _ router.ClientSocket = (*clientSocket)(nil)

// clientSocket adapts a gorilla/websocket connection to the Router's
// ClientSocket interface.
type clientSocket struct {
	conn *websocket.Conn
}

func newClientSocket(conn *websocket.Conn) *clientSocket {
	conn.SetReadLimit(clientReadLimitBytes)
	return &clientSocket{conn: conn}
}

// ReadEvent blocks for the next client frame. A frame that fails to parse
// as JSON yields (nil, nil); a socket-level failure yields (nil, err).
func (s *clientSocket) ReadEvent() (types.Event, error) {
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	var ev types.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, nil
	}
	return ev, nil
}

// ReadEventTimeout reads one frame, failing with an error if none arrives
// within timeout. Used only for the initial init_session wait.
func (s *clientSocket) ReadEventTimeout(timeout time.Duration) (types.Event, error) {
	_ = s.conn.SetReadDeadline(time.Now().Add(timeout))
	defer func() { _ = s.conn.SetReadDeadline(time.Time{}) }()
	return s.ReadEvent()
}

func (s *clientSocket) WriteEvent(ev types.Event) error {
	return s.conn.WriteJSON(ev)
}

func (s *clientSocket) Close(code types.CloseCode, reason string) error {
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(int(code), reason),
		time.Now().Add(time.Second))
	return s.conn.Close()
}
