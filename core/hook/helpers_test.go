package hook

import (
	"bytes"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	coreconfig "github.com/m3rciful/hookbot/core/config"
	"github.com/m3rciful/hookbot/core/logger"
)

func testConfig() *coreconfig.Config {
	cfg := &coreconfig.Config{}
	cfg.Telegram.Token = "1:a"
	cfg.Limits.RequestTimeout = 2 * time.Second
	_ = coreconfig.Normalize(cfg)
	return cfg
}

func newLocalListener() (net.Listener, error) {
	return net.Listen("tcp", "127.0.0.1:0")
}

type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// line returns the first captured line containing every fragment.
func (b *logBuffer) line(fragments ...string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, l := range strings.Split(b.buf.String(), "\n") {
		matched := true
		for _, f := range fragments {
			if !strings.Contains(l, f) {
				matched = false
				break
			}
		}
		if matched && l != "" {
			return l, true
		}
	}
	return "", false
}

// captureLogs points the global logger at an in-memory buffer for one test.
func captureLogs(t *testing.T) *logBuffer {
	t.Helper()
	buf := &logBuffer{}
	prev := logger.L
	logger.L = slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	t.Cleanup(func() { logger.L = prev })
	return buf
}
