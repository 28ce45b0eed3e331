package logger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"testing"
)

// TestLogBuffer collects JSON log lines written concurrently by handlers
// under test.
type TestLogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *TestLogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *TestLogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// GetLogEntries decodes one JSON object per non-blank line.
func (b *TestLogBuffer) GetLogEntries() ([]map[string]interface{}, error) {
	var entries []map[string]interface{}
	sc := bufio.NewScanner(bytes.NewBufferString(b.String()))
	for line := 1; sc.Scan(); line++ {
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		entry := map[string]interface{}{}
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("log line %d: %w", line, err)
		}
		entries = append(entries, entry)
	}
	return entries, sc.Err()
}

// NewTestLogger returns a debug-level JSON logger and the buffer it writes to.
// The process-wide default logger is not touched.
func NewTestLogger(t *testing.T) (*TestLogBuffer, *slog.Logger) {
	t.Helper()
	buf := &TestLogBuffer{}
	return buf, slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
