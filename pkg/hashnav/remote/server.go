package remote

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/BrandonKowalski/hashnav/pkg/hashnav/constants"
	"github.com/BrandonKowalski/hashnav/pkg/hashnav/internal"
	"github.com/BrandonKowalski/hashnav/pkg/hashnav/router"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Router is the part of *router.Router the server drives.
type Router interface {
	Navigate(ctx context.Context, target string, opts ...router.NavigateOption) error
	Step(ctx context.Context, direction int) (bool, error)
	Capture(ctx context.Context, key constants.NavKey) (bool, error)
	HandleRemote(kind, name string) bool
	Subscribe(fn func(router.Navigation)) (cancel func())

	Hash() string
	ActiveRoute() string
	ActiveHash() string
	ActiveWidget() string
	State() string
	History() []string
	Routes() []string
	Navigations() int64
}

// ServerOptions configures a Server.
type ServerOptions struct {
	// Gatherer backs /metrics. Nil leaves the endpoint out.
	Gatherer prometheus.Gatherer

	// Logger defaults to the internal framework logger.
	Logger *slog.Logger
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

func (c *client) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Server exposes a router over HTTP.
type Server struct {
	router   Router
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]bool
	closed  bool

	unsubscribe func()
	wg          sync.WaitGroup
}

// NewServer creates a Server and subscribes it to r's navigations.
func NewServer(r Router, opts ServerOptions) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = internal.GetInternalLogger()
	}

	s := &Server{
		router:   r,
		gatherer: opts.Gatherer,
		logger:   logger,
		clients:  make(map[*client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
	}
	s.unsubscribe = r.Subscribe(s.onNavigation)
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)

	mux.Get("/state", s.handleState)
	mux.Post("/navigate", s.handleNavigate)
	mux.Post("/step", s.handleStep)
	mux.Post("/capture/{digit}", s.handleCapture)
	mux.Post("/remote", s.handleRemote)
	mux.Get("/ws", s.handleWebSocket)
	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	return mux
}

// Close drops the router subscription, disconnects every websocket client
// and waits for their handlers to return.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	s.unsubscribe()
	for _, c := range clients {
		c.conn.Close()
	}
	s.wg.Wait()
}

// ClientCount returns the number of connected websocket clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) state() State {
	return State{
		Route:   s.router.ActiveRoute(),
		Hash:    s.router.Hash(),
		Active:  s.router.ActiveHash(),
		State:   s.router.State(),
		Widget:  s.router.ActiveWidget(),
		History: s.router.History(),
		Routes:  s.router.Routes(),

		Navigations: s.router.Navigations(),
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req NavigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Hash == "" {
		writeError(w, http.StatusBadRequest, errors.New("hash is required"))
		return
	}

	if err := s.router.Navigate(r.Context(), req.Hash, req.Options()...); err != nil {
		s.logger.Error("remote navigate failed", "hash", req.Hash, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	req := StepRequest{Direction: -1}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	handled, err := s.router.Step(r.Context(), req.Direction)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, Handled{Handled: handled})
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "digit"))
	if err != nil || n < 0 || n > 9 {
		writeError(w, http.StatusBadRequest, errors.New("digit must be 0-9"))
		return
	}

	handled, err := s.router.Capture(r.Context(), constants.NavKey0+constants.NavKey(n))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, Handled{Handled: handled})
}

func (s *Server) handleRemote(w http.ResponseWriter, r *http.Request) {
	var req RemoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, Handled{Handled: s.router.HandleRemote(req.Kind, req.Name)})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.clients[c] = true
	s.wg.Add(1)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
		conn.Close()
		s.wg.Done()
	}()

	if err := c.send(Message{Type: TypeState, Hash: s.router.Hash(), Route: s.router.ActiveRoute()}); err != nil {
		return
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := c.ping(); err != nil {
					return
				}
			}
		}
	}()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket closed", "error", err)
			}
			return
		}
		if err := s.apply(r.Context(), msg); err != nil {
			c.send(Message{Type: TypeError, Error: err.Error()})
		}
	}
}

func (s *Server) apply(ctx context.Context, msg Message) error {
	switch msg.Type {
	case TypeNavigate:
		if msg.Hash == "" {
			return errors.New("navigate: hash is required")
		}
		var opts []router.NavigateOption
		if len(msg.Args) > 0 {
			opts = append(opts, router.WithArgs(msg.Args))
		}
		return s.router.Navigate(ctx, msg.Hash, opts...)
	case TypeStep:
		dir := msg.Direction
		if dir == 0 {
			dir = -1
		}
		_, err := s.router.Step(ctx, dir)
		return err
	case TypeRemote:
		s.router.HandleRemote(msg.Kind, msg.Name)
		return nil
	default:
		return errors.New("unknown message type " + strconv.Quote(msg.Type))
	}
}

func (s *Server) onNavigation(nav router.Navigation) {
	s.broadcast(Message{
		Type:  TypeNavigation,
		ID:    nav.ID,
		Hash:  s.router.Hash(),
		Route: nav.Route,
	})
}

func (s *Server) broadcast(msg Message) {
	s.mu.RLock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.RUnlock()

	for _, c := range clients {
		if err := c.send(msg); err != nil {
			s.logger.Debug("dropping websocket client", "error", err)
			c.conn.Close()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, Message{Type: TypeError, Error: err.Error()})
}
