// Package notify carries transient user notifications (toasts) from the
// engines to whichever host presents them.
package notify

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Level classifies a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a single transient message.
type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Notifier receives notifications. Implementations must not block.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function into a Notifier.
type NotifierFunc func(Notification)

// Notify delegates to the underlying function.
func (fn NotifierFunc) Notify(n Notification) {
	if fn != nil {
		fn(n)
	}
}

// Error sends an error-level notification when n is non-nil.
func Error(n Notifier, message string) {
	if n == nil || message == "" {
		return
	}
	n.Notify(Notification{Level: LevelError, Message: message})
}

// Success sends a success-level notification when n is non-nil.
func Success(n Notifier, message string) {
	if n == nil || message == "" {
		return
	}
	n.Notify(Notification{Level: LevelSuccess, Message: message})
}

// Info sends an info-level notification when n is non-nil.
func Info(n Notifier, message string) {
	if n == nil || message == "" {
		return
	}
	n.Notify(Notification{Level: LevelInfo, Message: message})
}

// Logger writes notifications to a logrus logger. It is the default sink when
// a host does not present toasts itself.
type Logger struct {
	Log logrus.FieldLogger
}

// NewLogger returns a Logger notifier; a nil logger falls back to the logrus
// standard logger.
func NewLogger(log logrus.FieldLogger) *Logger {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Logger{Log: log}
}

// Notify implements Notifier.
func (l *Logger) Notify(n Notification) {
	if l == nil || l.Log == nil {
		return
	}
	entry := l.Log.WithField("notification", string(n.Level))
	switch n.Level {
	case LevelError:
		entry.Warn(n.Message)
	default:
		entry.Info(n.Message)
	}
}

// Recorder keeps every notification in memory. Hosts render them in bulk and
// tests assert on them.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

// Notify implements Notifier.
func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// Notifications returns a copy of the recorded notifications.
func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// Messages returns recorded messages for the given level; an empty level
// returns all messages.
func (r *Recorder) Messages(level Level) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, item := range r.items {
		if level == "" || item.Level == level {
			out = append(out, item.Message)
		}
	}
	return out
}

// Drain returns the recorded notifications and clears the recorder.
func (r *Recorder) Drain() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.items
	r.items = nil
	return out
}

var (
	_ Notifier = (*Logger)(nil)
	_ Notifier = (*Recorder)(nil)
	_ Notifier = NotifierFunc(nil)
)
