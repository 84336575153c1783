package cli

import (
	"context"
	"fmt"
	"livechat/domain/chat"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

type WatchOptions struct {
	*RootOptions
	Once bool
}

func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the live timeline",
		Long: `Connect to the server and print the reconciled timeline after every update.

Examples:
  chatctl watch
  chatctl watch --transport grpc --grpc-addr localhost:50051
  chatctl watch --once`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, cmd)
		},
	}
	cmd.Flags().BoolVar(&opts.Once, "once", false, "print the history and exit")
	return cmd
}

func runWatch(opts *WatchOptions, cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c, err := opts.connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	w := cmd.OutOrStdout()
	return c.Run(ctx, func(view []chat.Message) {
		fmt.Fprintf(w, "--- %d messages ---\n", len(view))
		renderMessages(w, view, c.Token(), opts.Colours)
		if opts.Once {
			cancel()
		}
	})
}
