// Package client is the client runtime: it sends intents to the server and
// reconciles every received payload into a local timeline.
package client

import (
	"context"
	goerrors "errors"
	"fmt"
	"io"
	"livechat/domain/chat"
	"livechat/errors"
	"livechat/infrastructure/grpc/chatrpc"
	"livechat/infrastructure/wire"
	"livechat/infrastructure/ws"
	"livechat/projection"
	"log/slog"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// Transport is a connected event channel.
type Transport interface {
	Send(env wire.Envelope) error
	Recv() (wire.Envelope, error)
	Close() error
}

type Client struct {
	log       *slog.Logger
	token     string
	timeline  *projection.Timeline
	transport Transport
	closeOnce sync.Once
}

func New(log *slog.Logger, token string, transport Transport) *Client {
	return &Client{
		log:       log,
		token:     token,
		timeline:  projection.NewTimeline(token),
		transport: transport,
	}
}

func (c *Client) Token() string {
	return c.token
}

func (c *Client) Timeline() *projection.Timeline {
	return c.timeline
}

func (c *Client) Post(text string) error {
	return c.send(chat.PostMessageCommand{Text: text})
}

// Like toggles the like of this client on a message.
func (c *Client) Like(messageID string) error {
	return c.send(chat.ToggleLikeCommand{MessageID: messageID, ClientToken: c.token})
}

func (c *Client) Comment(messageID, text string) error {
	return c.send(chat.AddCommentCommand{MessageID: messageID, Text: text})
}

func (c *Client) send(cmd chat.Command) error {
	env, err := wire.EncodeCommand(cmd)
	if err != nil {
		return err
	}
	return c.transport.Send(env)
}

// Run receives payloads until the server closes the channel or ctx is done.
// onChange, when set, is called with the reconciled view after every payload.
func (c *Client) Run(ctx context.Context, onChange func(view []chat.Message)) error {
	go func() {
		<-ctx.Done()
		_ = c.Close()
	}()

	for {
		env, err := c.transport.Recv()
		if goerrors.Is(err, errors.ErrMalformedFrame) {
			c.log.Debug("Ignoring malformed frame", "error", err)
			continue
		}
		if err != nil {
			if ctx.Err() != nil || goerrors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		payload, err := wire.DecodePayload(env)
		if err != nil {
			c.log.Debug("Ignoring unexpected event", "event", env.Event, "error", err)
			continue
		}
		view := c.timeline.Apply(payload)
		if onChange != nil {
			onChange(view)
		}
	}
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() { err = c.transport.Close() })
	return err
}

// DialWebSocket connects to ws://host:port/ws.
func DialWebSocket(ctx context.Context, url string) (Transport, error) {
	return ws.Dial(ctx, url)
}

// DialGRPC opens the Sync stream of a gRPC server.
func DialGRPC(ctx context.Context, address string) (Transport, error) {
	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("could not connect to server at %s: %w", address, err)
	}
	ctx, cancel := context.WithCancel(ctx)
	stream, err := chatrpc.NewClient(conn).Sync(ctx)
	if err != nil {
		cancel()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}
	return &grpcTransport{conn: conn, stream: stream, cancel: cancel}, nil
}

type grpcTransport struct {
	conn   *grpc.ClientConn
	stream chatrpc.SyncClient
	cancel context.CancelFunc
	mu     sync.Mutex
}

func (t *grpcTransport) Send(env wire.Envelope) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stream.Send(&env)
}

func (t *grpcTransport) Recv() (wire.Envelope, error) {
	env, err := t.stream.Recv()
	if err != nil {
		if status.Code(err) == codes.Canceled {
			return wire.Envelope{}, io.EOF
		}
		return wire.Envelope{}, err
	}
	return *env, nil
}

func (t *grpcTransport) Close() error {
	t.mu.Lock()
	_ = t.stream.CloseSend()
	t.mu.Unlock()
	t.cancel()
	return t.conn.Close()
}
