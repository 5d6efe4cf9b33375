// Package notify carries user-facing notifications raised by session and
// settings flows.
package notify

import (
	"context"
	"log"
	"sync"
)

// Category classifies a notification.
type Category string

const (
	CategoryError   Category = "error"
	CategorySuccess Category = "success"
)

// Action names the user action a notification reports on.
type Action string

const (
	ActionJoin   Action = "join"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Notification is one message shown to the user. A persistent notification
// stays until the user dismisses it.
type Notification struct {
	Category    Category
	Action      Action
	Title       string
	Description string
	Persistent  bool
}

// Notifier shows notifications to the user.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) {
	f(ctx, n)
}

// LogNotifier writes notifications through a log function.
type LogNotifier struct {
	Logf func(string, ...any)
}

// Notify logs n on one line.
func (l LogNotifier) Notify(_ context.Context, n Notification) {
	logf := l.Logf
	if logf == nil {
		logf = log.Printf
	}
	if n.Description == "" {
		logf("%s [%s] %s", n.Category, n.Action, n.Title)
		return
	}
	logf("%s [%s] %s: %s", n.Category, n.Action, n.Title, n.Description)
}

// Recorder keeps every notification it receives. It is safe for concurrent use.
type Recorder struct {
	mu            sync.Mutex
	notifications []Notification
}

// Notify records n.
func (r *Recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
}

// All returns a copy of the recorded notifications in arrival order.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.notifications))
	copy(out, r.notifications)
	return out
}

// Errors returns the recorded error notifications.
func (r *Recorder) Errors() []Notification {
	all := r.All()
	out := all[:0]
	for _, n := range all {
		if n.Category == CategoryError {
			out = append(out, n)
		}
	}
	return out
}

// Multi fans one notification out to several notifiers in order.
func Multi(notifiers ...Notifier) Notifier {
	return NotifierFunc(func(ctx context.Context, n Notification) {
		for _, notifier := range notifiers {
			if notifier != nil {
				notifier.Notify(ctx, n)
			}
		}
	})
}
