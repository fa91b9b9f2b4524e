// Package dashboard serves the board over HTTP: a JSON API over the
// workspace stores and a WebSocket stream that pushes store changes, sync
// status, and widget readings to connected browsers.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/focusboard/focusboard/internal/board/store"
	"github.com/focusboard/focusboard/internal/board/view"
	"github.com/focusboard/focusboard/internal/board/widget"
	"github.com/focusboard/focusboard/internal/logging"
)

// MessageType defines the type of dashboard message
type MessageType string

const (
	// MessageTypeEntityUpdate indicates a record was created, updated, deleted, or committed
	MessageTypeEntityUpdate MessageType = "entity_update"

	// MessageTypeReload indicates a collection was reloaded from the remote
	MessageTypeReload MessageType = "reload"

	// MessageTypeStats carries board statistics
	MessageTypeStats MessageType = "stats"

	// MessageTypeSyncStatus carries per-collection sync state
	MessageTypeSyncStatus MessageType = "sync_status"

	MessageTypeClock   MessageType = "clock"
	MessageTypeWeather MessageType = "weather"
)

// Message represents a dashboard broadcast message
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// EntityUpdateData describes one store change.
type EntityUpdateData struct {
	Collection string `json:"collection"`
	Action     string `json:"action"`
	ID         string `json:"id,omitempty"`
	Record     any    `json:"record,omitempty"`
}

// SyncStatusData is the sync state of every collection.
type SyncStatusData struct {
	Remote bool           `json:"remote"`
	Stores []store.Status `json:"stores"`
}

// NewMessage marshals data into a message of the given type.
func NewMessage(typ MessageType, data any) (Message, error) {
	msg := Message{Type: typ, Timestamp: time.Now()}
	if data == nil {
		return msg, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return msg, fmt.Errorf("failed to marshal %s message: %w", typ, err)
	}
	msg.Data = raw
	return msg, nil
}

// Server manages WebSocket connections and the HTTP API.
type Server struct {
	addr      string
	listener  net.Listener
	server    *http.Server
	workspace *store.Workspace
	now       func() time.Time
	handler   http.Handler

	// WebSocket client management
	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	broadcast chan Message

	// Latest widget readings, replayed to new clients
	widgetMu sync.RWMutex
	tick     *widget.Tick
	weather  *widget.Report

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger logrus.FieldLogger
}

// Config holds server configuration
type Config struct {
	// Addr to listen on (default: 127.0.0.1:8080). Port 0 picks a free port.
	Addr string

	// Workspace backs the API. Required.
	Workspace *store.Workspace

	// Now is used for stats (default: time.Now)
	Now func() time.Time

	Logger logrus.FieldLogger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Addr: "127.0.0.1:8080",
		Now:  time.Now,
	}
}

// NewServer creates a dashboard server for config.Workspace.
func NewServer(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	def := DefaultConfig()
	if config.Addr == "" {
		config.Addr = def.Addr
	}
	if config.Now == nil {
		config.Now = def.Now
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		addr:      config.Addr,
		workspace: config.Workspace,
		now:       config.Now,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Message, 100),
		ctx:       ctx,
		cancel:    cancel,
		logger:    logging.Component(config.Logger, "dashboard"),
	}
	s.handler = s.routes()
	return s
}

// Handler returns the HTTP handler serving the API and WebSocket endpoint.
func (s *Server) Handler() http.Handler { return s.handler }

// Start begins serving and forwarding workspace events.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:     s.handler,
		ReadTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go s.broadcastLoop()

	if s.workspace != nil {
		events, stop := s.workspace.Subscribe()
		s.wg.Add(1)
		go s.forwardEvents(events, stop)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.WithField("addr", ln.Addr().String()).Info("dashboard server listening")
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("server error")
		}
	}()

	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	s.logger.Info("stopping dashboard server")

	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "Server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	var shutdownErr error
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}
	}

	s.wg.Wait()
	s.logger.Info("dashboard server stopped")
	return shutdownErr
}

// Broadcast sends a message to all connected clients
func (s *Server) Broadcast(msg Message) {
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
	default:
		s.logger.Warn("broadcast channel full, dropping message")
	}
}

func (s *Server) publish(typ MessageType, data any) {
	msg, err := NewMessage(typ, data)
	if err != nil {
		s.logger.WithError(err).Warn("dropping message")
		return
	}
	s.Broadcast(msg)
}

// OnTick records and broadcasts a clock reading. It fits widget.ClockConfig.OnTick.
func (s *Server) OnTick(t widget.Tick) {
	s.widgetMu.Lock()
	s.tick = &t
	s.widgetMu.Unlock()
	s.publish(MessageTypeClock, t)
}

// OnReport records and broadcasts a weather report. It fits widget.WeatherConfig.OnReport.
func (s *Server) OnReport(r widget.Report) {
	s.widgetMu.Lock()
	s.weather = &r
	s.widgetMu.Unlock()
	s.publish(MessageTypeWeather, weatherData(r))
}

type weatherMessage struct {
	widget.Report
	Display string `json:"display"`
}

func weatherData(r widget.Report) weatherMessage {
	return weatherMessage{Report: r, Display: r.String()}
}

func (s *Server) stats() view.Stats {
	snap := s.workspace.Snapshot()
	return view.ComputeStats(snap.Projects, snap.Tasks, s.now())
}

func (s *Server) syncStatus() SyncStatusData {
	return SyncStatusData{Remote: s.workspace.RemoteConfigured(), Stores: s.workspace.Status()}
}

// forwardEvents turns store events into broadcasts. Every change is followed
// by fresh stats, and sync-affecting events by a sync_status message.
func (s *Server) forwardEvents(events <-chan store.Event, stop func()) {
	defer s.wg.Done()
	defer stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Type {
			case store.EventReloaded:
				s.publish(MessageTypeReload, map[string]string{"collection": string(ev.Collection)})
			case store.EventSyncError:
			default:
				s.publish(MessageTypeEntityUpdate, EntityUpdateData{
					Collection: string(ev.Collection),
					Action:     string(ev.Type),
					ID:         ev.ID,
					Record:     ev.Record,
				})
			}
			switch ev.Type {
			case store.EventCreated, store.EventUpdated, store.EventDeleted, store.EventReloaded:
				s.publish(MessageTypeStats, s.stats())
			}
			switch ev.Type {
			case store.EventCommitted, store.EventSyncError, store.EventReloaded:
				s.publish(MessageTypeSyncStatus, s.syncStatus())
			}
		}
	}
}

// broadcastLoop handles message broadcasting to all clients
func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return

		case msg := <-s.broadcast:
			if msg.Timestamp.IsZero() {
				msg.Timestamp = time.Now()
			}
			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.WithError(err).Warn("failed to marshal message")
				continue
			}

			s.clientsMu.RLock()
			clients := make([]*websocket.Conn, 0, len(s.clients))
			for conn := range s.clients {
				clients = append(clients, conn)
			}
			s.clientsMu.RUnlock()

			for _, conn := range clients {
				if err := s.write(conn, data); err != nil {
					s.logger.WithError(err).Debug("failed to send to client")
					s.removeClient(conn)
				}
			}
		}
	}
}

func (s *Server) write(conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}

// handleWebSocket upgrades the connection and sends the current state:
// stats, sync status, and the latest widget readings.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	for _, msg := range s.welcome() {
		data, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		if err := s.write(conn, data); err != nil {
			_ = conn.Close(websocket.StatusInternalError, "")
			return
		}
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	clientCount := len(s.clients)
	s.clientsMu.Unlock()
	s.logger.WithField("clients", clientCount).Debug("client connected")

	s.wg.Add(1)
	go s.readLoop(conn)
}

func (s *Server) welcome() []Message {
	var out []Message
	add := func(typ MessageType, data any) {
		if msg, err := NewMessage(typ, data); err == nil {
			out = append(out, msg)
		}
	}
	if s.workspace != nil {
		add(MessageTypeStats, s.stats())
		add(MessageTypeSyncStatus, s.syncStatus())
	} else {
		add(MessageTypeStats, nil)
	}

	s.widgetMu.RLock()
	tick, weather := s.tick, s.weather
	s.widgetMu.RUnlock()
	if tick != nil {
		add(MessageTypeClock, *tick)
	}
	if weather != nil {
		add(MessageTypeWeather, weatherData(*weather))
	}
	return out
}

// readLoop keeps the connection open until the client goes away.
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.wg.Done()
	defer s.removeClient(conn)

	for {
		if _, _, err := conn.Read(s.ctx); err != nil {
			return
		}
	}
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	if _, exists := s.clients[conn]; !exists {
		s.clientsMu.Unlock()
		return
	}
	delete(s.clients, conn)
	clientCount := len(s.clients)
	s.clientsMu.Unlock()

	_ = conn.Close(websocket.StatusNormalClosure, "")
	s.logger.WithField("clients", clientCount).Debug("client disconnected")
}

// GetAddr returns the server's listening address
func (s *Server) GetAddr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the current number of connected clients
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}
