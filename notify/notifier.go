package notify

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Style distinguishes how a notification is presented
type Style string

const (
	StyleError Style = "error"
	StyleInfo  Style = "info"
)

// Options accompany a notification
type Options struct {
	ID       uuid.UUID
	Duration time.Duration
	Style    Style
}

// Notifier presents a message to the user with a single dismiss action
type Notifier interface {
	Notify(message, action string, opts Options)
}

// NotifierFunc adapts a function to a Notifier
type NotifierFunc func(message, action string, opts Options)

func (f NotifierFunc) Notify(message, action string, opts Options) {
	f(message, action, opts)
}

// LogNotifier writes notifications to the global logger
type LogNotifier struct{}

var _ Notifier = LogNotifier{}

func (LogNotifier) Notify(message, action string, opts Options) {
	event := log.Info()
	if opts.Style == StyleError {
		event = log.Error()
	}
	event.
		Str("id", opts.ID.String()).
		Str("action", action).
		Dur("duration", opts.Duration).
		Msg(message)
}
