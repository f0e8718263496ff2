// Package statusserver exposes the orchestrator's state and deploy
// approval over HTTP and WebSocket: /state returns a JSON busy/infra
// snapshot, /input approves a pending CDK deploy (the POST form of
// onInput(), used by `rebuildctl deploy-approve`), /notify reports a
// changed file, and /ws delivers whatever is passed to Broadcast. Nothing
// outside this package calls Broadcast, so the orchestrator's busy/idle
// edges are read by polling /state rather than pushed over /ws.
//
// Grounded on the teacher's internal/server/websocket.go hub pattern
// (register/unregister/broadcast channels drained by one goroutine,
// ping/pong keepalive, per-client send buffer) generalized from "push a
// reload command to a browser tab" to "push a busy-status edge or a
// deploy-approval prompt to any subscriber".
package statusserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/rebuildctl/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Orchestrator is the subset of internal/orchestrator.Orchestrator this
// server depends on, declared here to avoid a statusserver->orchestrator
// import cycle (orchestrator logs through internal/logging, which this
// package also uses, but never imports statusserver itself).
type Orchestrator interface {
	GetState() StateView
	OnInput()
	NotifyFileChanged(path string)
}

// StateView mirrors orchestrator.State; duplicated here (rather than
// imported) so this package has no compile-time dependency on
// internal/cdkstate's concrete state enum, only on its String() text.
type StateView struct {
	Busy       bool
	InfraBusy  bool
	InfraState string
}

// Event is the message Broadcast sends to every connected WebSocket
// client.
type Event struct {
	Type      string    `json:"type"` // "busy", "idle", "infra_busy", "infra_idle", "awaiting_approval"
	Timestamp time.Time `json:"timestamp"`
}

// Server serves the status WebSocket/HTTP endpoints described by
// SPEC_FULL.md's DOMAIN STACK section.
type Server struct {
	orch           Orchestrator
	host           string
	port           int
	allowedOrigins []string
	logger         logging.Logger

	httpServer *http.Server

	clientsMutex sync.RWMutex
	clients      map[*websocket.Conn]*client

	register   chan *client
	unregister chan *websocket.Conn
	broadcast  chan []byte
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Config configures the status server's listen address and WebSocket
// origin allowlist.
type Config struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// New creates a status server bound to orch. It does not start listening
// until Start is called.
func New(cfg Config, orch Orchestrator, logger logging.Logger) *Server {
	return &Server{
		orch:           orch,
		host:           cfg.Host,
		port:           cfg.Port,
		allowedOrigins: cfg.AllowedOrigins,
		logger:         logger,
		clients:        make(map[*websocket.Conn]*client),
		register:       make(chan *client, 16),
		unregister:     make(chan *websocket.Conn, 16),
		broadcast:      make(chan []byte, 64),
	}
}

// Start begins serving HTTP and the WebSocket hub. It returns once the
// listener is up; serving happens in background goroutines. The WebSocket
// hub runs until ctx is cancelled, the HTTP server until Shutdown.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/state", s.handleState)
	mux.HandleFunc("/input", s.handleInput)
	mux.HandleFunc("/notify", s.handleNotify)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.host, s.port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go s.runHub(ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("statusserver: listen failed: %w", err)
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}

// Shutdown gracefully stops the HTTP server. Open WebSocket connections
// are closed by the hub when the context given to Start is cancelled.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Broadcast pushes an event to every connected client. If the broadcast
// channel is full the event is dropped and a warning is logged.
func (s *Server) Broadcast(eventType string) {
	data, err := json.Marshal(Event{Type: eventType, Timestamp: time.Now()})
	if err != nil {
		return
	}
	select {
	case s.broadcast <- data:
	default:
		if s.logger != nil {
			s.logger.Warn(context.Background(), nil, "statusserver: broadcast channel full, dropping event", "type", eventType)
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: false})
	if err != nil {
		if s.logger != nil {
			s.logger.Warn(r.Context(), err, "statusserver: websocket upgrade failed")
		}
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 16)}
	go c.writePump()
	go c.readPump(s)

	s.register <- c
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true // non-browser clients (CLI, curl) don't send an Origin header
	}
	originURL, err := url.Parse(origin)
	if err != nil || (originURL.Scheme != "http" && originURL.Scheme != "https") {
		return false
	}
	if len(s.allowedOrigins) == 0 {
		return originURL.Hostname() == "localhost" || originURL.Hostname() == "127.0.0.1"
	}
	for _, allowed := range s.allowedOrigins {
		if originURL.Host == allowed {
			return true
		}
	}
	return false
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	state := s.orch.GetState()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(state)
}

// handleInput implements the POST form of onInput(): a host approves a
// pending deploy by POSTing here.
func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.orch.OnInput()
	w.WriteHeader(http.StatusAccepted)
}

// handleNotify lets an external collaborator (e.g. an editor plugin) push
// a raw file-change notification without going through the watcher.
func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Path == "" {
		http.Error(w, "invalid body: expected {\"path\": \"...\"}", http.StatusBadRequest)
		return
	}
	s.orch.NotifyFileChanged(body.Path)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) runHub(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return

		case c := <-s.register:
			s.clientsMutex.Lock()
			s.clients[c.conn] = c
			s.clientsMutex.Unlock()

		case conn := <-s.unregister:
			s.clientsMutex.Lock()
			if c, ok := s.clients[conn]; ok {
				delete(s.clients, conn)
				close(c.send)
			}
			s.clientsMutex.Unlock()

		case msg := <-s.broadcast:
			s.clientsMutex.RLock()
			var stale []*websocket.Conn
			for conn, c := range s.clients {
				select {
				case c.send <- msg:
				default:
					stale = append(stale, conn)
				}
			}
			s.clientsMutex.RUnlock()
			for _, conn := range stale {
				s.unregister <- conn
			}
		}
	}
}

func (s *Server) closeAll() {
	s.clientsMutex.Lock()
	defer s.clientsMutex.Unlock()
	for conn, c := range s.clients {
		close(c.send)
		_ = conn.Close(websocket.StatusNormalClosure, "server shutting down")
		delete(s.clients, conn)
	}
}

func (c *client) readPump(s *Server) {
	defer func() {
		s.unregister <- c.conn
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	}()
	c.conn.SetReadLimit(maxMessageSize)
	for {
		readCtx, cancel := context.WithTimeout(context.Background(), pongWait)
		_, _, err := c.conn.Read(readCtx)
		cancel()
		if err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
