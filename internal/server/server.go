// Package server is a reference room server speaking the chat protocol over
// websockets. It keeps rooms and their recent history in memory.
package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/omochice/toy-room-chat/pkg/protocol"
)

const (
	// DefaultHistoryLimit is how many messages a room keeps for new joiners.
	DefaultHistoryLimit = 100

	outgoingBuffer = 64
	maxFrameSize   = 64 << 10
	writeWait      = 10 * time.Second
)

// ErrServerStopped is returned by Start after Stop.
var ErrServerStopped = errors.New("server stopped")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for simplicity
	},
}

// Options configures a Server.
type Options struct {
	Codec        protocol.Codec
	HistoryLimit int
	Logger       *slog.Logger
}

// Server represents a websocket room chat server
type Server struct {
	address      string
	listener     net.Listener
	server       *http.Server
	codec        protocol.Codec
	frameType    int
	historyLimit int
	log          *slog.Logger
	now          func() time.Time

	mu      sync.RWMutex
	clients map[*Client]bool
	rooms   map[protocol.RoomID]*room

	quit     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a new Server listening on address once started.
func New(address string, opts Options) *Server {
	if opts.Codec == nil {
		opts.Codec = protocol.JSONCodec{}
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	frameType := websocket.TextMessage
	if opts.Codec.Binary() {
		frameType = websocket.BinaryMessage
	}
	return &Server{
		address:      address,
		codec:        opts.Codec,
		frameType:    frameType,
		historyLimit: opts.HistoryLimit,
		log:          opts.Logger.With(slog.String("component", "server")),
		now:          time.Now,
		clients:      make(map[*Client]bool),
		rooms:        make(map[protocol.RoomID]*room),
		quit:         make(chan struct{}),
	}
}

// Handler returns the HTTP handler serving the websocket endpoint at /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Start listens and serves until Stop is called.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	s.log.Info("server started",
		slog.String("addr", listener.Addr().String()),
		slog.String("codec", s.codec.Name()))

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("failed to serve: %w", err)
	case <-s.quit:
		return ErrServerStopped
	}
}

// Stop closes the listener and every client connection and waits for the
// client goroutines to finish.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)

		s.mu.Lock()
		if s.server != nil {
			_ = s.server.Close()
		}
		for client := range s.clients {
			_ = client.conn.Close()
		}
		s.mu.Unlock()

		s.wg.Wait()
	})
}

// Addr returns the server's listening address
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// RoomCount returns the number of rooms with at least one member.
func (s *Server) RoomCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("failed to upgrade connection", slog.Any("error", err))
		return
	}
	conn.SetReadLimit(maxFrameSize)

	client := &Client{
		id:       uuid.NewString(),
		conn:     conn,
		outgoing: make(chan []byte, outgoingBuffer),
	}

	s.mu.Lock()
	select {
	case <-s.quit:
		s.mu.Unlock()
		_ = conn.Close()
		return
	default:
	}
	s.clients[client] = true
	s.wg.Add(2)
	s.mu.Unlock()

	s.log.Debug("client connected", slog.String("client", client.id), slog.String("remote", conn.RemoteAddr().String()))

	go s.writeLoop(client)
	go s.handleClient(client)
}

// handleClient reads requests from one client until its connection closes.
func (s *Server) handleClient(client *Client) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		s.leaveLocked(client)
		delete(s.clients, client)
		s.mu.Unlock()
		// No sender can reach the channel once the client is unregistered.
		close(client.outgoing)
		_ = client.conn.Close()
		s.log.Debug("client disconnected", slog.String("client", client.id))
	}()

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.log.Warn("websocket error", slog.String("client", client.id), slog.Any("error", err))
			}
			return
		}

		env, err := s.codec.Unmarshal(data)
		if err != nil {
			s.reply(client, protocol.ServerError{Message: "Malformed request"})
			continue
		}
		ev, err := protocol.DecodeOutbound(env)
		if err != nil {
			s.log.Debug("rejecting request", slog.String("event", env.Event), slog.Any("error", err))
			s.reply(client, protocol.ServerError{Message: "Unsupported request"})
			continue
		}
		s.dispatch(client, ev)
	}
}

func (s *Server) writeLoop(client *Client) {
	defer s.wg.Done()
	for data := range client.outgoing {
		_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.conn.WriteMessage(s.frameType, data); err != nil {
			s.log.Debug("failed to send to client", slog.String("client", client.id), slog.Any("error", err))
			_ = client.conn.Close()
			// Drain so the reader's close of the channel ends the loop.
			for range client.outgoing {
			}
			return
		}
	}
}

func (s *Server) encode(ev protocol.Event) ([]byte, error) {
	env, err := protocol.NewEnvelope(ev)
	if err != nil {
		return nil, err
	}
	return s.codec.Marshal(env)
}

// reply sends ev to one client.
func (s *Server) reply(client *Client, ev protocol.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.sendLocked(client, ev)
}

// sendLocked queues ev for client. The caller holds s.mu.
func (s *Server) sendLocked(client *Client, ev protocol.Event) {
	data, err := s.encode(ev)
	if err != nil {
		s.log.Error("failed to encode event", slog.String("event", ev.EventName()), slog.Any("error", err))
		return
	}
	client.enqueue(data, s.log)
}

// broadcastLocked queues ev for every member of r except skip. The caller
// holds s.mu.
func (s *Server) broadcastLocked(r *room, ev protocol.Event, skip *Client) {
	data, err := s.encode(ev)
	if err != nil {
		s.log.Error("failed to encode event", slog.String("event", ev.EventName()), slog.Any("error", err))
		return
	}
	for _, member := range r.members {
		if member != skip {
			member.enqueue(data, s.log)
		}
	}
}
