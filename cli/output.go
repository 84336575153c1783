package cli

import (
	"fmt"
	"io"
	"livechat/domain/chat"
	"strconv"
	"strings"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

// renderMessages prints a timeline, marking the messages liked by owner.
func renderMessages(w io.Writer, messages []chat.Message, owner string, colours bool) {
	table := newTable(w, []string{"Time", "ID", "Sender", "Text", "Likes", "Comments"})
	for _, m := range messages {
		likes := strconv.Itoa(m.Likes())
		sender := m.Sender
		if m.HasLiked(owner) {
			likes += " *"
			if colours {
				likes = color.New(color.FgRed).Render(likes)
			}
		}
		if colours {
			sender = color.New(color.FgCyan).Render(sender)
		}
		table.Append([]string{
			m.CreatedAt.Local().Format("15:04:05"),
			shortID(m.ID),
			sender,
			m.Text,
			likes,
			renderComments(m.Comments),
		})
	}
	table.Render()
}

func renderComments(comments []chat.Comment) string {
	texts := make([]string, 0, len(comments))
	for _, c := range comments {
		texts = append(texts, c.Text)
	}
	return strings.Join(texts, " | ")
}

func renderMessage(w io.Writer, m chat.Message, colours bool) {
	id := m.ID
	if colours {
		id = color.New(color.BgBlack, color.FgGreen).Render(id)
	}
	fmt.Fprintf(w, "%s %s: %s (%d likes, %d comments)\n", id, m.Sender, m.Text, m.Likes(), len(m.Comments))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
