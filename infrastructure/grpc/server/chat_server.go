package server

import (
	"context"
	"livechat/errors"
	"livechat/infrastructure/grpc/chatrpc"
	"livechat/infrastructure/session"
	"livechat/infrastructure/wire"
	"livechat/services"
	"log/slog"
)

type ChatServer struct {
	chatService services.IChatService
	pump        *session.Pump
	log         *slog.Logger
}

func NewChatServer(log *slog.Logger, chatService services.IChatService, pump *session.Pump) *ChatServer {
	return &ChatServer{chatService: chatService, pump: pump, log: log}
}

// Sync establishes a long-lived bidirectional stream for real-time delivery.
// The client sends "message", "likeMessage" and "commentMessage" events and
// receives every canonical record, its own included, starting with the history.
// It blocks until the client disconnects or the session falls behind.
func (s *ChatServer) Sync(stream chatrpc.SyncServer) error {
	err := s.pump.Serve(stream.Context(), streamConn{stream})
	if err != nil {
		s.log.Warn("Sync stream ended", "error", err)
		return errors.MapToGRPCError(err)
	}
	return nil
}

// Search is the read-only query surface of the full-text index.
func (s *ChatServer) Search(ctx context.Context, req *chatrpc.SearchRequest) (*chatrpc.SearchResponse, error) {
	messages, err := s.chatService.Search(ctx, req.Query)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &chatrpc.SearchResponse{Messages: wire.ToRecords(messages)}, nil
}

type streamConn struct {
	stream chatrpc.SyncServer
}

func (c streamConn) Send(env wire.Envelope) error {
	return c.stream.Send(&env)
}

func (c streamConn) Recv() (wire.Envelope, error) {
	env, err := c.stream.Recv()
	if err != nil {
		return wire.Envelope{}, err
	}
	return *env, nil
}
