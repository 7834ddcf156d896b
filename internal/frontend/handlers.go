package frontend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rapidaai/relay/internal/auth"
	"github.com/rapidaai/relay/internal/router"
	"github.com/rapidaai/relay/internal/types"
)

// handleUpgrade implements the Relay Frontend's per-connection lifecycle.
func (s *Server) handleUpgrade(c *gin.Context) {
	principal, err := s.authenticateUpgrade(c)
	if err != nil {
		var backendErr *auth.ErrBackendUnavailable
		if errors.As(err, &backendErr) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": types.CloseRelayInternal.Reason()})
			return
		}
		s.closeUpgradeWithError(c, types.CloseUnauthorized)
		return
	}

	if principal.Quotas.ConcurrentSessions > 0 &&
		s.connections.countForPrincipal(principal.ID) >= principal.Quotas.ConcurrentSessions {
		s.closeUpgradeWithError(c, types.CloseQuotaExceeded)
		return
	}
	s.accountant.ApplyTier(principal.ID, principal.Tier)

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warnw("websocket upgrade failed", "error", err)
		return
	}
	socket := newClientSocket(conn)
	defer func() { _ = socket.conn.Close() }()

	connectionID := uuid.NewString()
	s.connections.add(connectionID, principal.ID)
	defer s.connections.remove(connectionID)

	if err := socket.WriteEvent(types.NewConnectionEstablished(time.Now())); err != nil {
		return
	}

	sessionConfig, ok := s.awaitInitSession(socket)
	if !ok {
		_ = socket.Close(types.CloseInitTimeout, types.CloseInitTimeout.Reason())
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sess, err := s.pool.Acquire(ctx, sessionConfig)
	if err != nil {
		_ = socket.WriteEvent(types.NewErrorEvent("relay_error", "relay_init_failed", err.Error(), ""))
		_ = socket.Close(types.CloseRelayInternal, types.CloseRelayInternal.Reason())
		return
	}
	defer s.pool.Release(sess)

	sessionID := uuid.NewString()
	_ = socket.WriteEvent(types.NewSessionCreated(sessionID))
	s.logger.Debugw("session created", "connection", connectionID, "session", sessionID, "config", sessionConfig)

	clientConn := router.NewClientConnection(connectionID, principal.ID)
	r := router.New(s.logger, s.accountant, s.registry)

	closeCode := r.Run(ctx, clientConn, socket, sess)
	_ = socket.Close(closeCode, closeCode.Reason())
}

// authenticateUpgrade verifies the client's credentials and refreshes the
// principal's quota tier from the Credential Store before the connection is
// admitted, so a quota change takes effect on the next connection attempt
// even if the bearer token itself is still valid.
func (s *Server) authenticateUpgrade(c *gin.Context) (*types.Principal, error) {
	creds := types.Credentials{BearerToken: bearerFromHeader(c)}
	principal, err := s.store.Authenticate(c.Request.Context(), creds)
	if err != nil {
		return nil, err
	}
	if principal.Disabled {
		return nil, fmt.Errorf("principal disabled")
	}
	quotas, err := s.store.QuotaFor(c.Request.Context(), principal.ID)
	if err != nil {
		return nil, err
	}
	principal.Quotas = quotas
	return principal, nil
}

func (s *Server) closeUpgradeWithError(c *gin.Context, code types.CloseCode) {
	status := http.StatusUnauthorized
	if code == types.CloseQuotaExceeded {
		status = http.StatusForbidden
	}
	c.JSON(status, gin.H{"error": code.Reason()})
}

// awaitInitSession waits up to 5s for the first client frame and requires it
// to be init_session.
func (s *Server) awaitInitSession(socket *clientSocket) (types.SessionConfig, bool) {
	ev, err := socket.ReadEventTimeout(initSessionTimeout)
	if err != nil || ev == nil {
		return types.SessionConfig{}, false
	}
	if ev.Type() != string(types.EventInitSession) {
		return types.SessionConfig{}, false
	}
	raw, _ := ev["session_config"].(map[string]interface{})
	return types.SessionConfigFromRaw(raw), true
}
