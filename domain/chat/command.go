package chat

// Command is an intent coming from a connected client.
type Command interface {
	Name() string
}

type PostMessageCommand struct {
	Text   string
	Sender string
}

func (PostMessageCommand) Name() string { return "post-message" }

type ToggleLikeCommand struct {
	MessageID   string
	ClientToken string
}

func (ToggleLikeCommand) Name() string { return "toggle-like" }

type AddCommentCommand struct {
	MessageID string
	Text      string
}

func (AddCommentCommand) Name() string { return "add-comment" }
