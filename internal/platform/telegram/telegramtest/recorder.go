// Package telegramtest provides an in-memory Sender and update builders for
// handler tests.
package telegramtest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"medcard-bot/internal/platform/telegram"
)

type Message struct {
	ChatID   int64
	Text     string
	Keyboard *telegram.Keyboard
}

type Document struct {
	ChatID int64
	Name   string
	Data   []byte
}

type Answer struct {
	CallbackID string
	Text       string
	Alert      bool
}

// Recorder implements telegram.Sender by recording every outbound call.
type Recorder struct {
	mu        sync.Mutex
	Messages  []Message
	Documents []Document
	Answers   []Answer
	Cleared   []int
	// Files backs DownloadFile, keyed by file id.
	Files map[string][]byte
	// ClearErr, when set, is returned by ClearKeyboard.
	ClearErr error
}

func NewRecorder() *Recorder {
	return &Recorder{Files: map[string][]byte{}}
}

func (r *Recorder) Send(_ context.Context, chatID int64, text string, kb *telegram.Keyboard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, Message{ChatID: chatID, Text: text, Keyboard: kb})
	return nil
}

func (r *Recorder) SendDocument(_ context.Context, chatID int64, name string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Documents = append(r.Documents, Document{ChatID: chatID, Name: name, Data: data})
	return nil
}

func (r *Recorder) AnswerCallback(_ context.Context, callbackID, text string, alert bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Answers = append(r.Answers, Answer{CallbackID: callbackID, Text: text, Alert: alert})
	return nil
}

func (r *Recorder) ClearKeyboard(_ context.Context, _ int64, messageID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ClearErr != nil {
		return r.ClearErr
	}
	r.Cleared = append(r.Cleared, messageID)
	return nil
}

func (r *Recorder) DownloadFile(_ context.Context, fileID string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.Files[fileID]
	if !ok {
		return nil, fmt.Errorf("file %q not found", fileID)
	}
	return data, nil
}

// LastText returns the text of the most recent message, or "".
func (r *Recorder) LastText() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[len(r.Messages)-1].Text
}

// Last returns the most recent message.
func (r *Recorder) Last() Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Messages) == 0 {
		return Message{}
	}
	return r.Messages[len(r.Messages)-1]
}

// Texts returns the text of every recorded message.
func (r *Recorder) Texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Messages))
	for _, m := range r.Messages {
		out = append(out, m.Text)
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = nil
	r.Documents = nil
	r.Answers = nil
	r.Cleared = nil
}

var nextID atomic.Int64

func id() int {
	return int(nextID.Add(1))
}

// Text builds a text message update from user chatID.
func Text(chatID int64, text string) telegram.Update {
	return telegram.Update{
		ID:        id(),
		ChatID:    chatID,
		UserID:    chatID,
		Username:  "tester",
		FullName:  "Test User",
		MessageID: id(),
		Text:      text,
	}
}

// Callback builds a button press on message 100.
func Callback(chatID int64, data string) telegram.Update {
	n := id()
	return telegram.Update{
		ID:           n,
		ChatID:       chatID,
		UserID:       chatID,
		Username:     "tester",
		MessageID:    100,
		CallbackID:   fmt.Sprintf("cb-%d", n),
		CallbackData: data,
	}
}

// File builds a document message.
func File(chatID int64, fileID, name string, size int64) telegram.Update {
	upd := Text(chatID, "")
	upd.Document = &telegram.Document{FileID: fileID, FileName: name, Size: size}
	return upd
}

// InlineData lists every callback payload of an inline keyboard.
func InlineData(kb *telegram.Keyboard) []string {
	if kb == nil {
		return nil
	}
	var out []string
	for _, row := range kb.Inline {
		for _, b := range row {
			out = append(out, b.Data)
		}
	}
	return out
}

// ButtonData returns the payload of the inline button labelled text.
func ButtonData(kb *telegram.Keyboard, text string) (string, bool) {
	if kb == nil {
		return "", false
	}
	for _, row := range kb.Inline {
		for _, b := range row {
			if b.Text == text {
				return b.Data, true
			}
		}
	}
	return "", false
}
