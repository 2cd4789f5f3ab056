package notify

import (
	"context"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-session/internal/metrics"
	"github.com/rs/zerolog/log"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const (
	DefaultWindow   = 2000 * time.Millisecond
	DefaultDuration = 5 * time.Second
	DefaultAction   = "Close"
)

// SessionCloser lets the handler sign out when an unauthorized error escapes the refresh protocol
type SessionCloser interface {
	IsAuthenticated() bool
	ClearSession(ctx context.Context) error
}

// Handler turns failures into user notifications. Identical failures arriving within the
// window of the previous one are dropped.
type Handler struct {
	notifier Notifier
	sessions SessionCloser
	window   time.Duration
	duration time.Duration
	verbose  bool
	metrics  *metrics.Metrics

	lock            sync.Mutex
	lastFingerprint string
	lastAt          time.Time
}

// Option configures a Handler
type Option func(*Handler)

// WithWindow sets the flood suppression window
func WithWindow(window time.Duration) Option {
	return func(h *Handler) {
		h.window = window
	}
}

// WithDuration sets how long a notification stays visible
func WithDuration(duration time.Duration) Option {
	return func(h *Handler) {
		h.duration = duration
	}
}

func WithSessionCloser(sessions SessionCloser) Option {
	return func(h *Handler) {
		h.sessions = sessions
	}
}

// WithVerbose logs suppressed and swallowed failures
func WithVerbose(verbose bool) Option {
	return func(h *Handler) {
		h.verbose = verbose
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// NewHandler creates a Handler dispatching to n
func NewHandler(n Notifier, opts ...Option) *Handler {
	h := &Handler{
		notifier: n,
		window:   DefaultWindow,
		duration: DefaultDuration,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle reports raw, which may be an error, a string or a recovered panic value
func (h *Handler) Handle(raw any) {
	err := toError(raw)
	if err == nil {
		return
	}

	if swallowed(err) {
		if h.verbose {
			log.Debug().Err(err).Msg("Swallowed failure")
		}
		h.metrics.Notification(metrics.NotificationSwallowed)
		return
	}

	status := StatusCode(err)
	if status == http.StatusUnauthorized && h.sessions != nil && h.sessions.IsAuthenticated() {
		log.Info().Msg("Unauthorized response with an active session, signing out")
		h.metrics.ForcedLogout()
		if clearErr := h.sessions.ClearSession(context.Background()); clearErr != nil {
			log.Err(clearErr).Msg("Failed to clear session")
		}
	}

	message := Message(err)
	if h.duplicate(fingerprint(err, message, status)) {
		if h.verbose {
			log.Debug().Err(err).Msg("Suppressed repeated failure")
		}
		h.metrics.Notification(metrics.NotificationSuppressed)
		return
	}

	log.Err(err).Int("status", status).Msg("Failure")
	h.notifier.Notify(message, DefaultAction, Options{
		ID:       uuid.New(),
		Duration: h.duration,
		Style:    StyleError,
	})
	h.metrics.Notification(metrics.NotificationShown)
}

// Recover reports a panic of the calling goroutine. It must be deferred directly.
func (h *Handler) Recover() {
	if v := recover(); v != nil {
		h.Handle(&PanicError{Value: v, Stack: debug.Stack()})
	}
}

// duplicate records fp as the latest attempt and reports whether it repeats the previous one
// within the window
func (h *Handler) duplicate(fp string) bool {
	now := NowTimeFunc()

	h.lock.Lock()
	defer h.lock.Unlock()
	dup := fp == h.lastFingerprint && now.Sub(h.lastAt) < h.window
	h.lastFingerprint = fp
	h.lastAt = now
	return dup
}
