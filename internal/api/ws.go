package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/edgy2009/adboard/internal/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
	HandshakeTimeout: 10 * time.Second,
	// Dashboards are served from the board itself or from an operator's
	// laptop on the local network, so any origin is accepted.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler upgrades a dashboard connection and attaches it to the hub.
// The client then receives display and catalog messages until it drops.
func (s *Server) WSHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "ws"
	const method = "GET"

	if s.Hub == nil {
		s.Metrics.IncrementRequests(endpoint, method, "503")
		http.Error(w, "websocket hub unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error to the client.
		s.Logger.Warn("websocket upgrade failed",
			zap.Error(err),
			zap.String("remote", r.RemoteAddr))
		s.Metrics.IncrementRequests(endpoint, method, "400")
		return
	}

	client := ws.NewClient(s.Hub, conn)
	s.Hub.Register <- client
	client.Start()

	s.Metrics.IncrementRequests(endpoint, method, "101")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
}
