package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"livechat/domain/chat"
	"livechat/infrastructure/grpc/chatrpc"
	"livechat/infrastructure/wire"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func NewSearchCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search over the messages",
		Long: `Search the messages, most recent first.

The query accepts filters:
  --lang <iso 639-1>   language of the message
  --sender <name>      exact sender
  --limit <n>          number of results (max 100)

Examples:
  chatctl search badger
  chatctl search -- weather --lang en --limit 5`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			query := strings.Join(args, " ")
			var (
				messages []chat.Message
				err      error
			)
			if opts.Transport == TransportGRPC {
				messages, err = searchGRPC(ctx, opts.GRPCAddr, query)
			} else {
				messages, err = searchHTTP(ctx, opts.WSURL, query)
			}
			if err != nil {
				return err
			}
			if len(messages) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No message found")
				return nil
			}
			renderMessages(cmd.OutOrStdout(), messages, "", opts.Colours)
			return nil
		},
	}
	return cmd
}

func searchGRPC(ctx context.Context, address, query string) ([]chat.Message, error) {
	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("could not connect to server at %s: %w", address, err)
	}
	defer conn.Close()

	resp, err := chatrpc.NewClient(conn).Search(ctx, &chatrpc.SearchRequest{Query: query})
	if err != nil {
		return nil, err
	}
	return wire.FromRecords(resp.Messages), nil
}

// searchHTTP calls the /search endpoint served next to the WebSocket one.
func searchHTTP(ctx context.Context, wsURL, query string) ([]chat.Message, error) {
	endpoint, err := SearchURL(wsURL, query)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search failed: %s", resp.Status)
	}
	var records []wire.Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, err
	}
	return wire.FromRecords(records), nil
}

// SearchURL derives the search endpoint from the WebSocket one.
func SearchURL(wsURL, query string) (string, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "wss":
		u.Scheme = "https"
	default:
		u.Scheme = "http"
	}
	u.Path = strings.TrimSuffix(u.Path, "/ws") + "/search"
	u.RawQuery = url.Values{"q": {query}}.Encode()
	return u.String(), nil
}
