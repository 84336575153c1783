// Package ws serves the chat over HTTP: the WebSocket event channel plus the
// read-only JSON endpoints.
package ws

import (
	"encoding/json"
	"io"
	"livechat/infrastructure/session"
	"livechat/infrastructure/wire"
	"livechat/services"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const (
	writeTimeout   = 10 * time.Second
	maxMessageSize = 64 * 1024
)

type Server struct {
	log         *slog.Logger
	chatService services.IChatService
	pump        *session.Pump
	upgrader    websocket.Upgrader
}

func NewServer(log *slog.Logger, chatService services.IChatService, pump *session.Pump) *Server {
	return &Server{
		log:         log,
		chatService: chatService,
		pump:        pump,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Router returns the HTTP routes. Extra registrations (debug endpoints) are
// applied on the same router, behind the same logging middleware.
func (s *Server) Router(extra ...func(r *mux.Router)) http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.Methods(http.MethodGet).Path("/ws").HandlerFunc(s.sync)
	r.Methods(http.MethodGet).Path("/messages").HandlerFunc(s.messages)
	r.Methods(http.MethodGet).Path("/search").HandlerFunc(s.search)
	r.Methods(http.MethodGet).Path("/healthz").HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	for _, register := range extra {
		register(r)
	}
	return r
}

func (s *Server) logRequests(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		m := httpsnoop.CaptureMetrics(handler, writer, request)
		s.log.Debug("handled", "method", request.Method, "url", request.URL.Path, "duration", m.Duration, "status", m.Code)
	})
}

func (s *Server) sync(writer http.ResponseWriter, request *http.Request) {
	ws, err := s.upgrader.Upgrade(writer, request, nil)
	if err != nil {
		s.log.Warn("failed to upgrade", "error", err)
		return
	}
	defer ws.Close()
	ws.SetReadLimit(maxMessageSize)

	if err := s.pump.Serve(request.Context(), &Conn{ws: ws}); err != nil {
		s.log.Warn("WebSocket session ended", "remote", request.RemoteAddr, "error", err)
	}
}

func (s *Server) messages(writer http.ResponseWriter, request *http.Request) {
	messages, err := s.chatService.History(request.Context())
	if err != nil {
		s.log.Error("failed to load history", "error", err)
		writer.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(writer, wire.ToRecords(messages))
}

func (s *Server) search(writer http.ResponseWriter, request *http.Request) {
	messages, err := s.chatService.Search(request.Context(), request.URL.Query().Get("q"))
	if err != nil {
		s.log.Error("search failed", "error", err)
		writer.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(writer, wire.ToRecords(messages))
}

func (s *Server) writeJSON(writer http.ResponseWriter, v any) {
	writer.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(writer).Encode(v); err != nil {
		s.log.Warn("failed to write out", "error", err)
	}
}

// Conn adapts a WebSocket to the envelope stream of a session.
// Every frame is a JSON text message holding one envelope.
type Conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

func (c *Conn) Send(env wire.Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteJSON(env)
}

// Recv returns errors.ErrMalformedFrame for a frame that is not an
// envelope, the connection can still be read afterwards.
func (c *Conn) Recv() (wire.Envelope, error) {
	_, frame, err := c.ws.ReadMessage()
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return wire.Envelope{}, io.EOF
	}
	if err != nil {
		return wire.Envelope{}, err
	}
	return wire.DecodeEnvelope(frame)
}

func (c *Conn) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return c.ws.Close()
}
