// Package notify reports workflow events to the user.
package notify

import "context"

// Level is the severity of a notification.
type Level int

const (
	Info Level = iota
	Success
	Error
)

func (l Level) String() string {
	switch l {
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Notification represents a notification message.
type Notification struct {
	Level   Level
	Subject string
	Body    string
}

// Notifier is the interface for sending notifications.
type Notifier interface {
	// Send sends a notification.
	Send(ctx context.Context, notification Notification) error
}

// Discard drops every notification.
type Discard struct{}

// Send implements Notifier.
func (Discard) Send(context.Context, Notification) error { return nil }
