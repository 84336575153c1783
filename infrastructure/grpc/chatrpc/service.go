// Package chatrpc describes the chat gRPC service. Messages are the wire
// envelopes and records themselves, carried with a JSON codec so that both
// transports share a single protocol.
package chatrpc

import (
	"context"
	"encoding/json"
	"livechat/infrastructure/wire"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const (
	ServiceName  = "chat.v1.ChatService"
	SyncMethod   = "/chat.v1.ChatService/Sync"
	SearchMethod = "/chat.v1.ChatService/Search"

	// CodecName is the content-subtype of every call ("application/grpc+json").
	CodecName = "json"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

// rawFrame is received undecoded so that a bad frame does not fail RecvMsg.
type rawFrame []byte

func (jsonCodec) Marshal(v any) ([]byte, error) {
	if f, ok := v.(*rawFrame); ok {
		return *f, nil
	}
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if f, ok := v.(*rawFrame); ok {
		*f = append((*f)[:0], data...)
		return nil
	}
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string { return CodecName }

type SearchRequest struct {
	Query string `json:"query"`
}

type SearchResponse struct {
	Messages []wire.Record `json:"messages"`
}

// ChatServiceServer is implemented by the server side of the service.
type ChatServiceServer interface {
	Sync(stream SyncServer) error
	Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error)
}

type SyncServer interface {
	Send(env *wire.Envelope) error
	Recv() (*wire.Envelope, error)
	grpc.ServerStream
}

type syncServer struct {
	grpc.ServerStream
}

func (s *syncServer) Send(env *wire.Envelope) error {
	return s.ServerStream.SendMsg(env)
}

// Recv returns errors.ErrMalformedFrame for a frame that is not an
// envelope, the stream can still be read afterwards.
func (s *syncServer) Recv() (*wire.Envelope, error) {
	var frame rawFrame
	if err := s.ServerStream.RecvMsg(&frame); err != nil {
		return nil, err
	}
	env, err := wire.DecodeEnvelope(frame)
	if err != nil {
		return nil, err
	}
	return &env, nil
}

func syncHandler(srv any, stream grpc.ServerStream) error {
	return srv.(ChatServiceServer).Sync(&syncServer{stream})
}

func searchHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SearchRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChatServiceServer).Search(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SearchMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ChatServiceServer).Search(ctx, req.(*SearchRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChatServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Search", Handler: searchHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Sync", Handler: syncHandler, ServerStreams: true, ClientStreams: true},
	},
	Metadata: "chat/v1/chat.json",
}

func RegisterChatServiceServer(s grpc.ServiceRegistrar, srv ChatServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client is the caller side of the service.
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// SyncClient is the client end of the event stream.
type SyncClient interface {
	Send(env *wire.Envelope) error
	SendRaw(frame []byte) error
	Recv() (*wire.Envelope, error)
	CloseSend() error
}

type syncClient struct {
	grpc.ClientStream
}

func (c *syncClient) Send(env *wire.Envelope) error {
	return c.ClientStream.SendMsg(env)
}

// SendRaw writes frame as is, without encoding.
func (c *syncClient) SendRaw(frame []byte) error {
	f := rawFrame(frame)
	return c.ClientStream.SendMsg(&f)
}

func (c *syncClient) Recv() (*wire.Envelope, error) {
	env := new(wire.Envelope)
	if err := c.ClientStream.RecvMsg(env); err != nil {
		return nil, err
	}
	return env, nil
}

// Sync opens the event stream. The history arrives first.
func (c *Client) Sync(ctx context.Context, opts ...grpc.CallOption) (SyncClient, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	stream, err := c.conn.NewStream(ctx, &ServiceDesc.Streams[0], SyncMethod, opts...)
	if err != nil {
		return nil, err
	}
	return &syncClient{stream}, nil
}

func (c *Client) Search(ctx context.Context, req *SearchRequest, opts ...grpc.CallOption) (*SearchResponse, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	out := new(SearchResponse)
	if err := c.conn.Invoke(ctx, SearchMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
