package telegram

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"medcard-bot/internal/session"
)

// FailureText is shown when a handler fails for reasons outside the user's control.
const FailureText = "⚠️ Что-то пошло не так. Попробуйте ещё раз чуть позже."

type HandlerFunc func(ctx context.Context, c *Context) error

type route struct {
	prefix  string
	handler HandlerFunc
}

// Router dispatches updates to handlers. Precedence for messages: bot
// command, exact menu label, then the session state prefix. Callbacks match
// on their data prefix. The longest matching prefix wins.
type Router struct {
	sender   Sender
	sessions session.Store
	log      *zap.Logger

	commands  map[string]HandlerFunc
	texts     map[string]HandlerFunc
	callbacks []route
	states    []route
	fallback  HandlerFunc
}

func NewRouter(sender Sender, sessions session.Store, log *zap.Logger) *Router {
	return &Router{
		sender:   sender,
		sessions: sessions,
		log:      log,
		commands: map[string]HandlerFunc{},
		texts:    map[string]HandlerFunc{},
	}
}

func (r *Router) Command(name string, h HandlerFunc) {
	r.commands[name] = h
}

// Text routes an exact message text, typically a reply keyboard label.
func (r *Router) Text(label string, h HandlerFunc) {
	r.texts[label] = h
}

func (r *Router) Callback(prefix string, h HandlerFunc) {
	r.callbacks = insertRoute(r.callbacks, prefix, h)
}

// State routes free text and documents while the session state has prefix.
func (r *Router) State(prefix string, h HandlerFunc) {
	r.states = insertRoute(r.states, prefix, h)
}

func (r *Router) Fallback(h HandlerFunc) {
	r.fallback = h
}

func insertRoute(routes []route, prefix string, h HandlerFunc) []route {
	routes = append(routes, route{prefix: prefix, handler: h})
	sort.SliceStable(routes, func(i, j int) bool {
		return len(routes[i].prefix) > len(routes[j].prefix)
	})
	return routes
}

func matchRoute(routes []route, key string) HandlerFunc {
	for _, rt := range routes {
		if strings.HasPrefix(key, rt.prefix) {
			return rt.handler
		}
	}
	return nil
}

// match reports whether the handler starts a new flow, in which case any
// pending state is abandoned.
func (r *Router) match(upd Update, s *session.Session) (HandlerFunc, bool) {
	if upd.IsCallback() {
		return matchRoute(r.callbacks, upd.CallbackData), false
	}
	if cmd := upd.Command(); cmd != "" {
		if h, ok := r.commands[cmd]; ok {
			return h, true
		}
	}
	if h, ok := r.texts[strings.TrimSpace(upd.Text)]; ok {
		return h, true
	}
	if s.State != "" {
		return matchRoute(r.states, s.State), false
	}
	return nil, false
}

// Dispatch handles one update, logging instead of returning errors. A
// panicking handler only fails its own update.
func (r *Router) Dispatch(ctx context.Context, upd Update) {
	log := r.log.With(
		zap.Int("update_id", upd.ID),
		zap.Int64("chat_id", upd.ChatID),
		zap.String("trace_id", uuid.NewString()),
	)
	defer func() {
		if p := recover(); p != nil {
			log.Error("handler panicked",
				zap.Any("panic", p),
				zap.Stack("stack"),
			)
			_ = r.sender.Send(ctx, upd.ChatID, FailureText, nil)
		}
	}()

	if err := r.Handle(ctx, upd); err != nil {
		log.Error("update handling failed", zap.Error(err))
		return
	}
	log.Debug("update handled", zap.Bool("callback", upd.IsCallback()))
}

// Handle runs the matching handler and persists the session afterwards. When
// the handler fails the session is left as it was before the update.
func (r *Router) Handle(ctx context.Context, upd Update) error {
	s, err := r.sessions.Get(ctx, upd.ChatID)
	if err != nil {
		_ = r.sender.Send(ctx, upd.ChatID, FailureText, nil)
		return err
	}

	c := &Context{Update: upd, Session: s, sender: r.sender, log: r.log}
	h, fresh := r.match(upd, s)
	if fresh {
		s.Reset()
	}
	if h == nil {
		h = r.fallback
	}

	var herr error
	if h != nil {
		herr = h(ctx, c)
	}
	if upd.IsCallback() && !c.answered {
		if err := r.sender.AnswerCallback(ctx, upd.CallbackID, "", false); err != nil {
			r.log.Warn("failed to answer callback", zap.Error(err))
		}
	}
	if herr != nil {
		_ = r.sender.Send(ctx, upd.ChatID, FailureText, nil)
		return herr
	}

	if s.Empty() {
		return r.sessions.Clear(ctx, upd.ChatID)
	}
	return r.sessions.Save(ctx, upd.ChatID, s)
}

// Context carries one update through a handler.
type Context struct {
	Update   Update
	Session  *session.Session
	sender   Sender
	log      *zap.Logger
	answered bool
}

func (c *Context) ChatID() int64 { return c.Update.ChatID }

func (c *Context) UserID() int64 { return c.Update.UserID }

func (c *Context) Text() string { return strings.TrimSpace(c.Update.Text) }

// Arg returns the callback data after prefix.
func (c *Context) Arg(prefix string) string {
	return strings.TrimPrefix(c.Update.CallbackData, prefix)
}

func (c *Context) Reply(ctx context.Context, text string, kb *Keyboard) error {
	return c.sender.Send(ctx, c.Update.ChatID, text, kb)
}

func (c *Context) ReplyDocument(ctx context.Context, name string, data []byte) error {
	return c.sender.SendDocument(ctx, c.Update.ChatID, name, data)
}

// Answer acknowledges the pressed button, optionally as an alert.
func (c *Context) Answer(ctx context.Context, text string, alert bool) error {
	if !c.Update.IsCallback() || c.answered {
		return nil
	}
	c.answered = true
	return c.sender.AnswerCallback(ctx, c.Update.CallbackID, text, alert)
}

// ClearKeyboard removes the inline keyboard from the message whose button
// was pressed. Failures are only logged: the message may be too old to edit
// or already deleted, and the answer itself is still valid.
func (c *Context) ClearKeyboard(ctx context.Context) {
	if !c.Update.IsCallback() {
		return
	}
	if err := c.sender.ClearKeyboard(ctx, c.Update.ChatID, c.Update.MessageID); err != nil {
		c.log.Warn("failed to clear keyboard",
			zap.Int64("chat_id", c.Update.ChatID),
			zap.Int("message_id", c.Update.MessageID),
			zap.Error(err),
		)
	}
}

func (c *Context) Download(ctx context.Context, fileID string) ([]byte, error) {
	return c.sender.DownloadFile(ctx, fileID)
}
