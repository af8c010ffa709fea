package session

// Event is one inbound update, already stripped of transport details.
type Event interface {
	Chat() int64
}

// Command is a slash command such as "/start <uuid>".
type Command struct {
	ChatID int64
	Name   string
	Args   string
}

// Text is a plain message or a reply keyboard press.
type Text struct {
	ChatID int64
	Text   string
}

// Callback is an inline button press on the message MessageID.
type Callback struct {
	ChatID    int64
	QueryID   string
	MessageID int
	Data      string
}

func (c Command) Chat() int64  { return c.ChatID }
func (t Text) Chat() int64     { return t.ChatID }
func (c Callback) Chat() int64 { return c.ChatID }
