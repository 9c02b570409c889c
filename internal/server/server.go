package server

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/lox/memorymatch/internal/game"
	"github.com/lox/memorymatch/internal/ledger"
	"github.com/lox/memorymatch/internal/prompt"
	"github.com/lox/memorymatch/internal/session"
)

//go:embed static/index.html
var static embed.FS

// ControllerFactory builds the session controller for one connection.
type ControllerFactory func(ui prompt.UI) *session.Controller

// Server serves the browser client and one game session per websocket.
type Server struct {
	router        *chi.Mux
	upgrader      websocket.Upgrader
	ledger        *ledger.Ledger
	newController ControllerFactory
	allowedOrigin string
	connections   map[*Connection]bool
	register      chan *Connection
	unregister    chan *Connection
	logger        *log.Logger
	mu            sync.RWMutex
	ctx           context.Context
	cancel        context.CancelFunc
}

// Option configures a Server.
type Option func(*Server)

// WithControllerFactory sets how per-connection controllers are built.
func WithControllerFactory(f ControllerFactory) Option {
	return func(s *Server) { s.newController = f }
}

// WithAllowedOrigin restricts websocket upgrades to one Origin. Empty
// allows any origin.
func WithAllowedOrigin(origin string) Option {
	return func(s *Server) { s.allowedOrigin = origin }
}

// NewServer creates a server backed by lg.
func NewServer(lg *ledger.Ledger, logger *log.Logger, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		ledger:      lg,
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		logger:      logger.WithPrefix("server"),
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.newController == nil {
		s.newController = func(ui prompt.UI) *session.Controller {
			return session.New(game.NewMachine(logger), lg, ui, logger)
		}
	}

	s.upgrader = websocket.Upgrader{
		CheckOrigin:     s.checkOrigin,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}

	s.router = chi.NewRouter()
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(chimw.Recoverer)

	s.router.Get("/", s.handleIndex)
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/ws", s.handleWebSocket)
	s.router.Route("/api", func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))
		r.Get("/scores", s.handleGetScores)
		r.Delete("/scores", s.handleClearScores)
	})

	go s.run()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Stop closes every connection.
func (s *Server) Stop() error {
	s.cancel()

	s.mu.Lock()
	for conn := range s.connections {
		_ = conn.Close()
	}
	s.connections = make(map[*Connection]bool)
	s.mu.Unlock()

	return nil
}

// ConnectionCount returns the number of open websockets.
func (s *Server) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections)
}

// run handles connection lifecycle
func (s *Server) run() {
	for {
		select {
		case conn := <-s.register:
			s.mu.Lock()
			s.connections[conn] = true
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info("Client connected", "conn", conn.ID(), "total", total)

		case conn := <-s.unregister:
			s.mu.Lock()
			delete(s.connections, conn)
			total := len(s.connections)
			s.mu.Unlock()
			_ = conn.Close()
			s.logger.Info("Client disconnected", "conn", conn.ID(), "total", total)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if s.allowedOrigin == "" {
		return true
	}
	return r.Header.Get("Origin") == s.allowedOrigin
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s.logger, s.newController)
	select {
	case s.register <- client:
	case <-s.ctx.Done():
		_ = client.Close()
		return
	}
	client.Start()

	go func() {
		<-client.Done()
		select {
		case s.unregister <- client:
		case <-s.ctx.Done():
		}
	}()
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := static.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, "missing client", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

type scoresResponse struct {
	Scores []ledger.Entry `json:"scores"`
}

func (s *Server) handleGetScores(w http.ResponseWriter, r *http.Request) {
	entries, err := s.ledger.Load(r.Context())
	if err != nil {
		s.logger.Error("Failed to load scores", "error", err, "requestId", chimw.GetReqID(r.Context()))
		http.Error(w, "failed to load scores", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []ledger.Entry{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(scoresResponse{Scores: entries})
}

func (s *Server) handleClearScores(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Clear(r.Context()); err != nil {
		s.logger.Error("Failed to clear scores", "error", err, "requestId", chimw.GetReqID(r.Context()))
		http.Error(w, "failed to clear scores", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
