package lsp

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
	"github.com/walteh/gotmpls-hybrid/pkg/debug"
	"github.com/walteh/gotmpls-hybrid/pkg/lsp/protocol"
)

// LSPWriter implements io.Writer to redirect zerolog JSON output to the
// client as window/logMessage notifications.
type LSPWriter struct {
	mu     sync.Mutex
	client protocol.Notifier
	ctx    context.Context
}

func NewLSPWriter(ctx context.Context, client protocol.Notifier) *LSPWriter {
	return &LSPWriter{
		client: client,
		ctx:    ctx,
	}
}

// ApplyLSPWriter returns a context whose logger writes to the client instead
// of the process output, keeping stdout free for the protocol.
func ApplyLSPWriter(ctx context.Context, client protocol.Notifier, level zerolog.Level) context.Context {
	return zerolog.New(NewLSPWriter(context.WithoutCancel(ctx), client)).
		Level(level).
		Hook(debug.TimeHook{}).
		Hook(debug.CallerHook{}).
		WithContext(ctx)
}

func (w *LSPWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var entry map[string]any
	if err := json.Unmarshal(p, &entry); err != nil {
		// not ours to report
		return len(p), nil
	}

	notification := protocol.LogMessageParams{
		Type:    protocol.ParseMessageTypeFromZerolog(take(entry, "level")),
		Message: take(entry, "message"),
		Time:    take(entry, "time"),
		Source:  take(entry, "caller"),
	}
	if len(entry) > 0 {
		notification.Extra = entry
	}

	if err := w.client.Notify(w.ctx, "window/logMessage", &notification); err != nil {
		return len(p), err
	}
	return len(p), nil
}

func take(entry map[string]any, key string) string {
	v, ok := entry[key].(string)
	if ok {
		delete(entry, key)
	}
	return v
}
