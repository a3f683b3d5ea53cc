package telegram

import (
	"context"
	"html"
	"strings"
)

// Update is the transport-neutral view of an inbound message or button press.
type Update struct {
	ID        int
	ChatID    int64
	UserID    int64
	Username  string
	FullName  string
	MessageID int

	Text     string
	Document *Document

	CallbackID   string
	CallbackData string
}

type Document struct {
	FileID   string
	FileName string
	Size     int64
}

func (u Update) IsCallback() bool {
	return u.CallbackID != ""
}

// Command returns the bot command name without the leading slash and the
// optional @botname suffix, or "" when the text is not a command.
func (u Update) Command() string {
	if u.IsCallback() || !strings.HasPrefix(u.Text, "/") {
		return ""
	}
	name := strings.Fields(u.Text)[0][1:]
	if i := strings.Index(name, "@"); i >= 0 {
		name = name[:i]
	}
	return name
}

// DisplayName is @username when set, the full name otherwise.
func (u Update) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return u.FullName
}

type Button struct {
	Text string
	Data string
}

// Keyboard is either an inline keyboard or a reply keyboard.
type Keyboard struct {
	Inline [][]Button
	Reply  [][]string
}

// InlineColumn puts each button on its own row.
func InlineColumn(buttons ...Button) *Keyboard {
	kb := &Keyboard{}
	for _, b := range buttons {
		kb.Inline = append(kb.Inline, []Button{b})
	}
	return kb
}

// InlineRow puts all buttons on one row.
func InlineRow(buttons ...Button) *Keyboard {
	return &Keyboard{Inline: [][]Button{buttons}}
}

// AddRow appends a row of inline buttons.
func (k *Keyboard) AddRow(buttons ...Button) *Keyboard {
	k.Inline = append(k.Inline, buttons)
	return k
}

// ReplyColumn builds a reply keyboard with one label per row.
func ReplyColumn(labels ...string) *Keyboard {
	kb := &Keyboard{}
	for _, l := range labels {
		kb.Reply = append(kb.Reply, []string{l})
	}
	return kb
}

// Sender is the outbound side of the bot.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string, kb *Keyboard) error
	SendDocument(ctx context.Context, chatID int64, name string, data []byte) error
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
	ClearKeyboard(ctx context.Context, chatID int64, messageID int) error
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
}

// Escape makes user supplied text safe for HTML parse mode.
func Escape(s string) string {
	return html.EscapeString(s)
}
