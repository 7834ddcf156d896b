package frontend

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/rapidaai/relay/internal/accountant"
	"github.com/rapidaai/relay/internal/auth"
	"github.com/rapidaai/relay/internal/logging"
	"github.com/rapidaai/relay/internal/pool"
	"github.com/rapidaai/relay/internal/tools"
	"github.com/rapidaai/relay/internal/types"
)

const initSessionTimeout = 5 * time.Second

// Server is the Relay Frontend (G): a single gin engine serving the
// WebSocket upgrade endpoint plus the health/metrics/login HTTP surface.
type Server struct {
	logger     logging.Logger
	store      auth.Store
	pool       *pool.Pool
	accountant *accountant.Accountant
	registry   tools.Registry
	upgrader   websocket.Upgrader

	connections connectionTracker
}

// New builds the Relay Frontend's gin engine, wired to its collaborators.
func New(logger logging.Logger, store auth.Store, p *pool.Pool, acct *accountant.Accountant, registry tools.Registry) *Server {
	return &Server{
		logger:     logger,
		store:      store,
		pool:       p,
		accountant: acct,
		registry:   registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		connections: newConnectionTracker(),
	}
}

// Engine builds the gin.Engine serving the relay's HTTP/WebSocket surface.
func (s *Server) Engine() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Authorization", "Content-Type", "X-Api-Key"},
	}))

	engine.GET("/ws", s.handleUpgrade)
	engine.GET("/health", s.handleHealth)
	engine.GET("/metrics", s.handleMetrics)
	engine.POST("/login", s.handleLogin)

	return engine
}

func bearerFromHeader(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
