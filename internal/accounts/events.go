package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/acctmgr/internal/logging"
)

// EventKind names an account lifecycle change.
type EventKind string

const (
	EventCreated         EventKind = "created"
	EventPasswordChanged EventKind = "password_changed"
	EventPasswordReset   EventKind = "password_reset"
	EventDeleted         EventKind = "deleted"
	EventUIDChanged      EventKind = "user_id_changed"
)

// Event is delivered to listeners after the change is stored. Password is
// only set for created, password_changed and password_reset; NewUID only for
// user_id_changed.
type Event struct {
	Kind     EventKind
	UID      string
	NewUID   string
	Email    string
	Password string
}

// Listener reacts to account changes, e.g. by sending mail or dropping
// cached permissions.
type Listener interface {
	Notify(ctx context.Context, ev Event) error
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, ev Event) error

func (f ListenerFunc) Notify(ctx context.Context, ev Event) error { return f(ctx, ev) }

// LogListener writes every event to a logger. Passwords are never logged.
type LogListener struct {
	Log logging.Logger
}

func (l LogListener) Notify(ctx context.Context, ev Event) error {
	args := []any{"event", string(ev.Kind), "uid", ev.UID}
	if ev.NewUID != "" {
		args = append(args, "new_uid", ev.NewUID)
	}
	if ev.Email != "" {
		args = append(args, "email", ev.Email)
	}
	l.Log.Info(ctx, "account event", args...)
	return nil
}

// NotificationError reports listener failures after a mutation that was
// already stored. It is a warning; the change itself is not rolled back.
type NotificationError struct {
	Event EventKind
	Errs  []error
}

func (e *NotificationError) Error() string {
	msgs := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%s notification failed: %s", e.Event, strings.Join(msgs, "; "))
}

func (e *NotificationError) Unwrap() []error { return e.Errs }

// IsNotificationError reports whether err only carries listener failures.
func IsNotificationError(err error) bool {
	var ne *NotificationError
	return errors.As(err, &ne)
}
