package telegram_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"medcard-bot/internal/platform/telegram"
	"medcard-bot/internal/platform/telegram/telegramtest"
	"medcard-bot/internal/session"
)

func newRouter() (*telegram.Router, *telegramtest.Recorder, *session.MemoryStore) {
	rec := telegramtest.NewRecorder()
	store := session.NewMemoryStore()
	return telegram.NewRouter(rec, store, zap.NewNop()), rec, store
}

func TestRouter_MenuLabelBeatsPendingState(t *testing.T) {
	r, rec, store := newRouter()
	ctx := context.Background()

	r.Text("🧪 Анализы", func(ctx context.Context, c *telegram.Context) error {
		assert.Empty(t, c.Session.State)
		return c.Reply(ctx, "labs menu", nil)
	})
	r.State("profile:", func(ctx context.Context, c *telegram.Context) error {
		return c.Reply(ctx, "profile step", nil)
	})

	s := session.New()
	s.State = "profile:fio"
	s.Set("fio", "draft")
	require.NoError(t, store.Save(ctx, 1, s))

	require.NoError(t, r.Handle(ctx, telegramtest.Text(1, "🧪 Анализы")))
	assert.Equal(t, "labs menu", rec.LastText())

	got, _ := store.Get(ctx, 1)
	assert.True(t, got.Empty())
}

func TestRouter_StatePrefixLongestWins(t *testing.T) {
	r, rec, store := newRouter()
	ctx := context.Background()

	r.State("labs:", func(ctx context.Context, c *telegram.Context) error {
		return c.Reply(ctx, "generic", nil)
	})
	r.State("labs:delete:", func(ctx context.Context, c *telegram.Context) error {
		return c.Reply(ctx, "delete", nil)
	})

	s := session.New()
	s.State = "labs:delete:confirm"
	require.NoError(t, store.Save(ctx, 5, s))

	require.NoError(t, r.Handle(ctx, telegramtest.Text(5, "да")))
	assert.Equal(t, "delete", rec.LastText())
}

func TestRouter_CallbackIsAnsweredOnce(t *testing.T) {
	r, rec, _ := newRouter()
	ctx := context.Background()

	r.Callback("exam|", func(ctx context.Context, c *telegram.Context) error {
		assert.Equal(t, "7", c.Arg("exam|"))
		return nil
	})
	r.Callback("alert|", func(ctx context.Context, c *telegram.Context) error {
		return c.Answer(ctx, "stale", true)
	})

	require.NoError(t, r.Handle(ctx, telegramtest.Callback(1, "exam|7")))
	require.NoError(t, r.Handle(ctx, telegramtest.Callback(1, "alert|x")))

	require.Len(t, rec.Answers, 2)
	assert.Empty(t, rec.Answers[0].Text)
	assert.Equal(t, "stale", rec.Answers[1].Text)
	assert.True(t, rec.Answers[1].Alert)
}

func TestRouter_FailedHandlerKeepsSession(t *testing.T) {
	r, rec, store := newRouter()
	ctx := context.Background()

	r.State("step", func(ctx context.Context, c *telegram.Context) error {
		c.Session.State = "changed"
		return errors.New("db is down")
	})

	s := session.New()
	s.State = "step"
	require.NoError(t, store.Save(ctx, 3, s))

	err := r.Handle(ctx, telegramtest.Text(3, "hello"))
	require.Error(t, err)
	assert.Equal(t, telegram.FailureText, rec.LastText())

	got, _ := store.Get(ctx, 3)
	assert.Equal(t, "step", got.State)
}

func TestRouter_DispatchRecoversFromPanic(t *testing.T) {
	r, rec, store := newRouter()
	ctx := context.Background()

	r.Text("boom", func(ctx context.Context, c *telegram.Context) error {
		var broken map[string]string
		broken["key"] = "value"
		return nil
	})
	r.Text("ping", func(ctx context.Context, c *telegram.Context) error {
		c.Session.State = "after"
		return c.Reply(ctx, "pong", nil)
	})

	assert.NotPanics(t, func() { r.Dispatch(ctx, telegramtest.Text(4, "boom")) })
	assert.Equal(t, telegram.FailureText, rec.LastText())

	// the chat keeps working after the failed update
	r.Dispatch(ctx, telegramtest.Text(4, "ping"))
	assert.Equal(t, "pong", rec.LastText())
	got, _ := store.Get(ctx, 4)
	assert.Equal(t, "after", got.State)
}

func TestRouter_ClearKeyboardFailureIsNotFatal(t *testing.T) {
	r, rec, store := newRouter()
	ctx := context.Background()
	rec.ClearErr = errors.New("Bad Request: message can't be edited")

	r.Callback("pick|", func(ctx context.Context, c *telegram.Context) error {
		c.ClearKeyboard(ctx)
		c.Session.State = "picked"
		return c.Reply(ctx, "ok", nil)
	})

	require.NoError(t, r.Handle(ctx, telegramtest.Callback(6, "pick|1")))
	assert.Equal(t, "ok", rec.LastText())
	assert.Empty(t, rec.Cleared)

	got, _ := store.Get(ctx, 6)
	assert.Equal(t, "picked", got.State)
}

func TestRouter_CommandAndFallback(t *testing.T) {
	r, rec, _ := newRouter()
	ctx := context.Background()

	r.Command("start", func(ctx context.Context, c *telegram.Context) error {
		return c.Reply(ctx, "hi "+c.Update.DisplayName(), nil)
	})
	r.Fallback(func(ctx context.Context, c *telegram.Context) error {
		return c.Reply(ctx, "unknown", nil)
	})

	require.NoError(t, r.Handle(ctx, telegramtest.Text(1, "/start@medcard_bot")))
	assert.Equal(t, "hi @tester", rec.LastText())

	require.NoError(t, r.Handle(ctx, telegramtest.Text(1, "something")))
	assert.Equal(t, "unknown", rec.LastText())
}

func TestServe_KeepsPerChatOrder(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	updates := make(chan telegram.Update)
	var mu sync.Mutex
	seen := map[int64][]int{}

	done := make(chan struct{})
	go func() {
		telegram.Serve(ctx, updates, 3, func(_ context.Context, u telegram.Update) {
			mu.Lock()
			seen[u.ChatID] = append(seen[u.ChatID], u.ID)
			mu.Unlock()
		})
		close(done)
	}()

	for i := 1; i <= 30; i++ {
		updates <- telegram.Update{ID: i, ChatID: int64(i % 4)}
	}
	close(updates)
	<-done

	total := 0
	for chat, ids := range seen {
		total += len(ids)
		for i := 1; i < len(ids); i++ {
			assert.Less(t, ids[i-1], ids[i], "chat %d out of order", chat)
		}
	}
	assert.Equal(t, 30, total)
}

func TestWebhook_RejectsWrongSecret(t *testing.T) {
	wh := telegram.NewWebhook("s3cret", nil, zap.NewNop())
	srv := httptest.NewServer(wh.Routes())
	defer srv.Close()

	body := `{"update_id":10,"message":{"message_id":1,"from":{"id":9,"first_name":"A"},"chat":{"id":9,"type":"private"},"date":0,"text":"hi"}}`

	resp, err := http.Post(srv.URL+"/telegram/webhook/wrong", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, err = http.Post(srv.URL+wh.Path(), "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	select {
	case upd := <-wh.Updates():
		assert.Equal(t, int64(9), upd.ChatID)
		assert.Equal(t, "hi", upd.Text)
	case <-time.After(time.Second):
		t.Fatal("update was not delivered")
	}
}

func TestWebhook_Health(t *testing.T) {
	wh := telegram.NewWebhook("", map[string]telegram.HealthCheck{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("refused") },
	}, zap.NewNop())

	rr := httptest.NewRecorder()
	wh.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), `"postgres":"ok"`)
	assert.Contains(t, rr.Body.String(), "refused")
}
