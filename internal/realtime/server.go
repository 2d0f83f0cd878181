package realtime

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/spec-kit/campus-service/internal/config"
	"github.com/spec-kit/campus-service/internal/observability"
)

// Server accepts websocket connections on /ws and attaches them to the hub.
type Server struct {
	hub        *Hub
	upgrader   websocket.Upgrader
	sendBuffer int
	logger     *zap.Logger
	metrics    *observability.Metrics
	httpServer *http.Server
}

// NewServer builds the realtime listener for cfg.Addr.
func NewServer(cfg config.RealtimeConfig, hub *Hub, logger *zap.Logger, metrics *observability.Metrics) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		hub:        hub,
		sendBuffer: cfg.SendBuffer,
		logger:     logger,
		metrics:    metrics,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", s)
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ServeHTTP upgrades the request and starts the client pumps.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade rejected", zap.Error(err))
		return
	}

	client := NewClient(s.hub, conn, s.sendBuffer, s.logger)
	s.hub.Register(client)
	s.metrics.ClientConnected()
	s.logger.Debug("realtime client connected", zap.String("client_id", client.ID()))

	go client.WritePump()
	go func() {
		client.ReadPump()
		s.metrics.ClientDisconnected()
		s.logger.Debug("realtime client disconnected", zap.String("client_id", client.ID()))
	}()
}

// ListenAndServe blocks until the listener fails or Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.logger.Info("realtime server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and closes the connected clients.
// Upgraded connections are hijacked, so http.Server.Shutdown does not track them.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if n := s.hub.CloseAll(); n > 0 {
		s.logger.Info("closed realtime clients", zap.Int("clients", n))
	}
	return err
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.ToLower(strings.TrimRight(origin, "/"))] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.ToLower(strings.TrimRight(origin, "/"))]
		return ok
	}
}
