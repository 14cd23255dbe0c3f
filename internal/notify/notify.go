// Package notify provides sinks for the cart's user-visible status messages.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/nikolayk812/cartstore/internal/port"
)

type Nop struct{}

func (Nop) Notify(context.Context, port.Notification) {}

type logNotifier struct {
	logger *slog.Logger
}

// NewLog records every notification as an INFO log entry.
func NewLog(logger *slog.Logger) port.Notifier {
	return &logNotifier{logger: logger}
}

func (l *logNotifier) Notify(ctx context.Context, n port.Notification) {
	l.logger.InfoContext(ctx, n.Message,
		slog.String("kind", string(n.Kind)),
		slog.String("line_key", n.Key))
}

type writerNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter prints each message on its own line, write errors are dropped.
func NewWriter(w io.Writer) port.Notifier {
	return &writerNotifier{w: w}
}

func (w *writerNotifier) Notify(_ context.Context, n port.Notification) {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, _ = fmt.Fprintln(w.w, n.Message)
}

type multiNotifier []port.Notifier

func Multi(notifiers ...port.Notifier) port.Notifier {
	return multiNotifier(notifiers)
}

func (m multiNotifier) Notify(ctx context.Context, n port.Notification) {
	for _, notifier := range m {
		notifier.Notify(ctx, n)
	}
}
