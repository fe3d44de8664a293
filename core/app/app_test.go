package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/m3rciful/hookbot/core/hook"
	"github.com/m3rciful/hookbot/core/questions"
	"github.com/m3rciful/hookbot/core/stats"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadConfigInlineAndDatabase(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "1:file"
webhook:
  port: 8443
sessions:
  window: 30m
database:
  driver: pgx
  name: hookbot
`)
	t.Setenv("DB_HOST", "db.internal")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Telegram.Token != "1:file" || cfg.Webhook.Port != 8443 || cfg.Sessions.Window != 30*time.Minute {
		t.Fatalf("core config = %+v", cfg.Config)
	}
	if cfg.Database.Driver != "pgx" || cfg.Database.Host != "db.internal" || cfg.Database.Port != "5432" {
		t.Fatalf("database config = %+v", cfg.Database)
	}
	if cfg.CoreConfig() != &cfg.Config {
		t.Fatal("CoreConfig must point at the embedded config")
	}
}

func TestLoadConfigRequiresDatabaseName(t *testing.T) {
	path := writeConfig(t, "telegram:\n  token: \"1:a\"\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected missing database name error")
	}
}

type apiRecorder struct {
	mu    sync.Mutex
	texts []string
}

func (r *apiRecorder) handler(w http.ResponseWriter, req *http.Request) {
	var body struct {
		ChatID int64  `json:"chat_id"`
		Text   string `json:"text"`
	}
	_ = json.NewDecoder(req.Body).Decode(&body)
	r.mu.Lock()
	r.texts = append(r.texts, body.Text)
	r.mu.Unlock()
	_, _ = w.Write([]byte(`{"ok":true}`))
}

func newTestApp(t *testing.T, apiURL string) (*App, *stats.MemoryStore) {
	t.Helper()
	cfg := &Config{}
	cfg.Telegram.Token = "1:a"
	cfg.Telegram.APIURL = apiURL
	cfg.Telegram.SecretToken = "s3cret"
	cfg.Webhook.Register = true
	cfg.Webhook.URL = "https://bot.example.com/hook"
	if err := normalizeCore(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	sessions := stats.NewMemoryStore()
	a, err := New(context.Background(), cfg, Deps{
		Questions: questions.NewMemorySource(questions.Pair{Question: "Who are you?", Answer: "Hello! I am bot!"}),
		Sessions:  sessions,
		Clock:     func() time.Time { return time.Date(2026, 10, 16, 14, 30, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a, sessions
}

func TestAppEndToEnd(t *testing.T) {
	rec := &apiRecorder{}
	api := httptest.NewServer(http.HandlerFunc(rec.handler))
	defer api.Close()

	a, sessions := newTestApp(t, api.URL)
	h := a.Handler()

	for _, text := range []string{"Who are you?", questions.TimeQuestion, "???"} {
		body := `{"message":{"chat":{"id":42},"from":{"id":7},"text":"` + text + `"}}`
		req := httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader(body))
		req.Header.Set("X-Telegram-Bot-Api-Secret-Token", "s3cret")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("%q: status = %d", text, w.Code)
		}
	}

	want := []string{"Hello! I am bot!", "14:30", questions.FallbackText}
	rec.mu.Lock()
	got := append([]string(nil), rec.texts...)
	rec.mu.Unlock()
	if len(got) != len(want) {
		t.Fatalf("replies = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("replies = %v, want %v", got, want)
		}
	}
	if n := len(sessions.Sessions(7)); n != 1 {
		t.Fatalf("sessions = %d", n)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	var health map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &health)
	if health["questions"] != float64(2) || health["replies_sent"] != float64(3) {
		t.Fatalf("health = %v", health)
	}
}

func TestRunOptionsRegistersWebhook(t *testing.T) {
	a, _ := newTestApp(t, "http://127.0.0.1:1")
	opts, err := a.RunOptions()
	if err != nil {
		t.Fatalf("RunOptions: %v", err)
	}
	if opts.Webhook == nil || opts.Webhook.PublicURL != "https://bot.example.com/hook" || opts.Webhook.SecretToken != "s3cret" {
		t.Fatalf("webhook = %+v", opts.Webhook)
	}
	if opts.Handler == nil || opts.Config == nil || opts.OnStop == nil {
		t.Fatal("expected handler, config and stop hook")
	}
	if err := opts.OnStop(context.Background(), hook.Runtime{}); err != nil {
		t.Fatalf("OnStop: %v", err)
	}
}
