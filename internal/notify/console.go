package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// ConsoleNotifier writes notifications as single lines to a writer.
type ConsoleNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleNotifier creates a notifier writing to w.
func NewConsoleNotifier(w io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{w: w}
}

var levelMarks = map[Level]string{
	Info:    "•",
	Success: "✓",
	Error:   "✗",
}

// Send implements Notifier.
func (c *ConsoleNotifier) Send(_ context.Context, n Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	line := fmt.Sprintf("%s %s", levelMarks[n.Level], n.Subject)
	if n.Body != "" {
		line += ": " + n.Body
	}
	_, err := fmt.Fprintln(c.w, line)
	return err
}

// LogNotifier records notifications in the structured log.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier logging to logger, or the default logger
// when nil.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Send implements Notifier.
func (l *LogNotifier) Send(ctx context.Context, n Notification) error {
	level := slog.LevelInfo
	if n.Level == Error {
		level = slog.LevelWarn
	}
	l.logger.Log(ctx, level, "notification",
		"level", n.Level.String(),
		"subject", n.Subject,
		"body", n.Body,
	)
	return nil
}
