package cli

import (
	"context"
	"fmt"
	"livechat/client"
	"log/slog"
	"slices"

	"github.com/mama165/sdk-go/logs"
	"github.com/spf13/cobra"
)

const (
	TransportWS   = "ws"
	TransportGRPC = "grpc"
)

var ValidTransports = []string{TransportWS, TransportGRPC}

// Dialer opens the event channel selected by the options.
type Dialer func(ctx context.Context, opts *RootOptions) (client.Transport, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Transport string
	WSURL     string
	GRPCAddr  string
	TokenFile string
	Colours   bool
	LogLevel  string

	Dial Dialer
	log  *slog.Logger
}

func (o *RootOptions) logger() *slog.Logger {
	if o.log == nil {
		o.log = logs.GetLoggerFromString(o.LogLevel)
	}
	return o.log
}

// connect dials the server and wraps the channel in a client bound to the local token.
func (o *RootOptions) connect(ctx context.Context) (*client.Client, error) {
	path := o.TokenFile
	if path == "" {
		path = client.DefaultTokenPath()
	}
	token, err := client.LoadOrCreateToken(path)
	if err != nil {
		return nil, err
	}
	transport, err := o.Dial(ctx, o)
	if err != nil {
		return nil, err
	}
	return client.New(o.logger(), token, transport), nil
}

func defaultDialer(ctx context.Context, opts *RootOptions) (client.Transport, error) {
	if opts.Transport == TransportGRPC {
		return client.DialGRPC(ctx, opts.GRPCAddr)
	}
	return client.DialWebSocket(ctx, opts.WSURL)
}

// NewRootCommand creates the root command of chatctl.
func NewRootCommand(cfg Config) *cobra.Command {
	opts := &RootOptions{Dial: defaultDialer}
	return newRootCommand(cfg, opts)
}

func newRootCommand(cfg Config, opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chatctl",
		Short: "Real-time group chat client",
		Long:  "Post, like, comment and watch the live timeline of a livechat server.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidTransports, opts.Transport) {
				return fmt.Errorf("invalid transport %q: must be one of %v", opts.Transport, ValidTransports)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Transport, "transport", cfg.Transport, "event channel (ws|grpc)")
	cmd.PersistentFlags().StringVar(&opts.WSURL, "ws-url", cfg.WSURL, "WebSocket endpoint")
	cmd.PersistentFlags().StringVar(&opts.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "gRPC server address")
	cmd.PersistentFlags().StringVar(&opts.TokenFile, "token-file", cfg.TokenFile, "file holding the client token")
	cmd.PersistentFlags().BoolVar(&opts.Colours, "colours", cfg.Colours, "colorized output")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", cfg.LogLevel, "log level")

	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewPostCommand(opts))
	cmd.AddCommand(NewLikeCommand(opts))
	cmd.AddCommand(NewCommentCommand(opts))
	cmd.AddCommand(NewSearchCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))

	return cmd
}
