package cli

import (
	"context"
	"fmt"
	"livechat/client"
	"livechat/domain/chat"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

const defaultWait = 5 * time.Second

// intent sends one command once the history is known, then waits for the
// broadcast that reflects it. The server never acknowledges an event, the
// broadcast is the only confirmation.
type intent struct {
	send      func(c *client.Client, history []chat.Message) error
	confirmed func(c *client.Client, view []chat.Message) (chat.Message, bool)
}

func runIntent(cmd *cobra.Command, opts *RootOptions, wait time.Duration, in intent) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), wait)
	defer cancel()

	c, err := opts.connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	var (
		sendErr  error
		result   chat.Message
		found    bool
		received bool
	)
	runErr := c.Run(ctx, func(view []chat.Message) {
		if !received {
			received = true
			if sendErr = in.send(c, view); sendErr != nil {
				cancel()
			}
			return
		}
		if result, found = in.confirmed(c, view); found {
			cancel()
		}
	})
	switch {
	case sendErr != nil:
		return sendErr
	case found:
		renderMessage(cmd.OutOrStdout(), result, opts.Colours)
		return nil
	case runErr != nil:
		return runErr
	default:
		return fmt.Errorf("no broadcast received within %s, the event may have been rejected", wait)
	}
}

// resolveID accepts a full id or the unambiguous prefix shown by watch.
func resolveID(history []chat.Message, ref string) (chat.Message, error) {
	matches := lo.Filter(history, func(m chat.Message, _ int) bool {
		return m.ID == ref || strings.HasPrefix(m.ID, ref)
	})
	if exact, ok := lo.Find(matches, func(m chat.Message) bool { return m.ID == ref }); ok {
		return exact, nil
	}
	switch len(matches) {
	case 0:
		return chat.Message{}, fmt.Errorf("unknown message %q", ref)
	case 1:
		return matches[0], nil
	default:
		return chat.Message{}, fmt.Errorf("ambiguous message id %q matches %d messages", ref, len(matches))
	}
}

// echoes reports whether stored is the posted text, possibly censored.
// Censoring masks runes in place with a single replacement rune.
func echoes(posted, stored string) bool {
	if posted == stored {
		return true
	}
	p, s := []rune(posted), []rune(stored)
	if len(p) != len(s) {
		return false
	}
	var mask rune
	for i := range p {
		if p[i] == s[i] {
			continue
		}
		if mask == 0 {
			mask = s[i]
		}
		if s[i] != mask {
			return false
		}
	}
	return true
}

func find(view []chat.Message, id string) (chat.Message, bool) {
	return lo.Find(view, func(m chat.Message) bool { return m.ID == id })
}

func NewPostCommand(opts *RootOptions) *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:           "post <text>",
		Short:         "Publish a message",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return fmt.Errorf("message text must not be empty")
			}
			var known map[string]bool
			return runIntent(cmd, opts, wait, intent{
				send: func(c *client.Client, history []chat.Message) error {
					known = lo.SliceToMap(history, func(m chat.Message) (string, bool) { return m.ID, true })
					return c.Post(text)
				},
				confirmed: func(_ *client.Client, view []chat.Message) (chat.Message, bool) {
					return lo.Find(view, func(m chat.Message) bool { return !known[m.ID] && echoes(text, m.Text) })
				},
			})
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", defaultWait, "how long to wait for the broadcast")
	return cmd
}

func NewLikeCommand(opts *RootOptions) *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:           "like <message-id>",
		Short:         "Toggle your like on a message",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var target chat.Message
			return runIntent(cmd, opts, wait, intent{
				send: func(c *client.Client, history []chat.Message) error {
					var err error
					if target, err = resolveID(history, args[0]); err != nil {
						return err
					}
					return c.Like(target.ID)
				},
				confirmed: func(c *client.Client, view []chat.Message) (chat.Message, bool) {
					m, ok := find(view, target.ID)
					return m, ok && m.HasLiked(c.Token()) != target.HasLiked(c.Token())
				},
			})
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", defaultWait, "how long to wait for the broadcast")
	return cmd
}

func NewCommentCommand(opts *RootOptions) *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:           "comment <message-id> <text>",
		Short:         "Comment a message",
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args[1:], " "))
			if text == "" {
				return fmt.Errorf("comment text must not be empty")
			}
			var target chat.Message
			return runIntent(cmd, opts, wait, intent{
				send: func(c *client.Client, history []chat.Message) error {
					var err error
					if target, err = resolveID(history, args[0]); err != nil {
						return err
					}
					return c.Comment(target.ID, text)
				},
				confirmed: func(_ *client.Client, view []chat.Message) (chat.Message, bool) {
					m, ok := find(view, target.ID)
					return m, ok && len(m.Comments) > len(target.Comments)
				},
			})
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", defaultWait, "how long to wait for the broadcast")
	return cmd
}
