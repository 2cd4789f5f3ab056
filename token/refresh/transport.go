package refresh

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-auth-session/authapi"
	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/internal/metrics"
	"github.com/jrsteele09/go-auth-session/token"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultRetryHeader = "X-Auth-Retry"
	DefaultTimeout     = 15 * time.Second
)

var _ http.RoundTripper = (*Transport)(nil)

// SessionStore is the part of the session store the transport reads tokens from and mutates
type SessionStore interface {
	GetAccessToken() string
	GetRefreshToken() string
	SetSession(ctx context.Context, pair token.Pair) error
	ClearSession(ctx context.Context) error
}

// Refresher exchanges a refresh token for a new token pair
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (token.Pair, error)
}

// RefresherFunc adapts a function to a Refresher
type RefresherFunc func(ctx context.Context, refreshToken string) (token.Pair, error)

func (f RefresherFunc) Refresh(ctx context.Context, refreshToken string) (token.Pair, error) {
	return f(ctx, refreshToken)
}

// Transport attaches the access token to outgoing requests and recovers from a 401 by refreshing
// the token once and retrying the request. Concurrent 401s for the same token share one refresh.
type Transport struct {
	base        http.RoundTripper
	sessions    SessionStore
	refresher   Refresher
	exemptPaths []string
	retryHeader string
	timeout     time.Duration
	metrics     *metrics.Metrics

	group singleflight.Group
}

// Option configures a Transport
type Option func(*Transport)

// WithBase sets the transport requests are sent through, http.DefaultTransport by default
func WithBase(base http.RoundTripper) Option {
	return func(t *Transport) {
		t.base = base
	}
}

// WithExemptPaths sets the path suffixes that are forwarded untouched, the auth routes by default
func WithExemptPaths(paths ...string) Option {
	return func(t *Transport) {
		t.exemptPaths = paths
	}
}

// WithRetryHeader sets the header marking a request re-issued after a refresh
func WithRetryHeader(name string) Option {
	return func(t *Transport) {
		t.retryHeader = name
	}
}

// WithTimeout bounds a refresh call
func WithTimeout(timeout time.Duration) Option {
	return func(t *Transport) {
		t.timeout = timeout
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Transport) {
		t.metrics = m
	}
}

// NewTransport creates the refresh coordinating transport
func NewTransport(sessions SessionStore, refresher Refresher, opts ...Option) *Transport {
	t := &Transport{
		base:        http.DefaultTransport,
		sessions:    sessions,
		refresher:   refresher,
		exemptPaths: authapi.ExemptPaths(),
		retryHeader: DefaultRetryHeader,
		timeout:     DefaultTimeout,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RoundTrip implements http.RoundTripper
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.isExempt(req.URL.Path) {
		return t.base.RoundTrip(req)
	}

	out, err := replayable(req)
	if err != nil {
		return nil, err
	}

	sentWith := t.sessions.GetAccessToken()
	resp, err := t.send(out, sentWith, false)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	if req.Header.Get(t.retryHeader) != "" {
		t.signOut(req.Context(), "retried request still unauthorized")
		return resp, nil
	}

	accessToken, err := t.refresh(req.Context(), sentWith)
	if err != nil {
		if req.Context().Err() != nil {
			drain(resp)
			return nil, req.Context().Err()
		}
		// the session was cleared; the caller sees the original 401
		return resp, nil
	}
	drain(resp)

	t.metrics.Retry()
	retryResp, err := t.send(out, accessToken, true)
	if err == nil && retryResp.StatusCode == http.StatusUnauthorized {
		t.signOut(req.Context(), "retried request still unauthorized")
	}
	return retryResp, err
}

// send issues a copy of req with the given access token
func (t *Transport) send(req *http.Request, accessToken string, retry bool) (*http.Response, error) {
	out := req.Clone(req.Context())
	if retry {
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("replay request body: %w", err)
			}
			out.Body = body
		}
		out.Header.Set(t.retryHeader, "1")
	}
	if accessToken != "" {
		token.Pair{AccessToken: accessToken}.OAuth2(time.Time{}).SetAuthHeader(out)
	}
	return t.base.RoundTrip(out)
}

// refresh returns the access token to retry with. It waits for the shared refresh of the stale
// token and gives up when ctx is done; the refresh itself carries on and its result still applies.
func (t *Transport) refresh(ctx context.Context, stale string) (string, error) {
	ch := t.group.DoChan(stale, func() (any, error) {
		return t.doRefresh(context.WithoutCancel(ctx), stale)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (t *Transport) doRefresh(ctx context.Context, stale string) (string, error) {
	current := t.sessions.GetAccessToken()
	if current != "" && current != stale {
		t.metrics.Refresh(metrics.RefreshSkipped)
		return current, nil
	}
	if current == "" && stale != "" {
		// signed out since the request was sent
		t.metrics.Refresh(metrics.RefreshSkipped)
		return "", fmt.Errorf("%w: %w", errors.ErrRefreshFailed, errors.ErrNoSession)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	refreshToken := t.sessions.GetRefreshToken()
	if refreshToken == "" {
		t.metrics.Refresh(metrics.RefreshFailure)
		t.signOut(ctx, "no refresh token")
		return "", fmt.Errorf("%w: %w", errors.ErrRefreshFailed, errors.ErrNoRefreshToken)
	}

	pair, err := t.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		err = fmt.Errorf("%w: %w", errors.ErrRefreshFailed, err)
		log.Warn().Err(err).Msg("Token refresh failed")
		t.metrics.Refresh(metrics.RefreshFailure)
		t.signOut(ctx, "refresh failed")
		return "", err
	}

	if err := t.sessions.SetSession(ctx, pair); err != nil {
		log.Err(err).Msg("Failed to persist refreshed session")
	}
	t.metrics.Refresh(metrics.RefreshSuccess)
	log.Debug().Msg("Access token refreshed")
	return pair.AccessToken, nil
}

func (t *Transport) signOut(ctx context.Context, reason string) {
	log.Info().Str("reason", reason).Msg("Signing out")
	t.metrics.ForcedLogout()
	if err := t.sessions.ClearSession(context.WithoutCancel(ctx)); err != nil {
		log.Err(err).Msg("Failed to clear session")
	}
}

func (t *Transport) isExempt(path string) bool {
	for _, suffix := range t.exemptPaths {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}

// replayable returns a copy of req whose body can be sent twice
func replayable(req *http.Request) (*http.Request, error) {
	out := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return out, nil
	}

	data, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("buffer request body: %w", err)
	}
	out.Body = io.NopCloser(bytes.NewReader(data))
	out.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	return out, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
