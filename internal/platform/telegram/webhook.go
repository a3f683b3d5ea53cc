package telegram

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Webhook receives updates pushed by Telegram and exposes them on Updates.
type Webhook struct {
	secret  string
	updates chan Update
	checks  map[string]HealthCheck
	log     *zap.Logger
}

func NewWebhook(secret string, checks map[string]HealthCheck, log *zap.Logger) *Webhook {
	return &Webhook{
		secret:  secret,
		updates: make(chan Update, 64),
		checks:  checks,
		log:     log,
	}
}

func (w *Webhook) Updates() <-chan Update {
	return w.updates
}

// Routes builds the HTTP surface: the update endpoint and a health probe.
func (w *Webhook) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/telegram/webhook/{secret}", w.receive)
	r.Get("/healthz", w.health)
	return r
}

// Path is the webhook path Telegram should be pointed at.
func (w *Webhook) Path() string {
	return "/telegram/webhook/" + w.secret
}

func (w *Webhook) receive(rw http.ResponseWriter, r *http.Request) {
	if w.secret != "" && chi.URLParam(r, "secret") != w.secret {
		http.Error(rw, "forbidden", http.StatusForbidden)
		return
	}

	var raw tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		http.Error(rw, "Invalid request", http.StatusBadRequest)
		return
	}

	upd, ok := FromAPI(raw)
	if !ok {
		rw.WriteHeader(http.StatusOK)
		return
	}

	select {
	case w.updates <- upd:
		rw.WriteHeader(http.StatusOK)
	case <-r.Context().Done():
		// Telegram retries undelivered updates
		w.log.Warn("webhook update dropped", zap.Int("update_id", upd.ID))
		rw.WriteHeader(http.StatusServiceUnavailable)
	}
}

func (w *Webhook) health(rw http.ResponseWriter, r *http.Request) {
	status := map[string]string{}
	code := http.StatusOK
	for name, check := range w.checks {
		if err := check(r.Context()); err != nil {
			status[name] = err.Error()
			code = http.StatusServiceUnavailable
			continue
		}
		status[name] = "ok"
	}

	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)
	json.NewEncoder(rw).Encode(status)
}
