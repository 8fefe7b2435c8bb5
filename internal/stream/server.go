package stream

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server exposes the streaming Hub over plain net/http, for mounting
// alongside the REST API's gin router under /ws/*.
type Server struct {
	hub    *Hub
	logger *zap.Logger
}

// NewServer wraps hub for HTTP registration.
func NewServer(hub *Hub, logger *zap.Logger) *Server {
	return &Server{hub: hub, logger: logger}
}

// ServeHTTP upgrades the connection and hands it to the hub, using the
// request path to pick the client's default channel subscription.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}
	clientID := uuid.NewString()
	s.hub.Connect(clientID, conn, r.URL.Path)
}
