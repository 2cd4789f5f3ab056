package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jrsteele09/go-auth-session/authapi"
	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/internal/metrics"
	"github.com/jrsteele09/go-auth-session/notify"
	"github.com/jrsteele09/go-auth-session/sessions"
	"github.com/jrsteele09/go-auth-session/storage"
	"github.com/jrsteele09/go-auth-session/token/refresh"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Client is the application facing entry point. It restores the persisted session, sends API
// requests through the refreshing transport and reports failures to the notifier.
type Client struct {
	store    *sessions.Store
	auth     *authapi.Client
	api      *authapi.Client
	http     *http.Client
	failures *notify.Handler
	repo     storage.Repo
}

type options struct {
	repo       storage.Repo
	navigator  sessions.Navigator
	notifier   notify.Notifier
	base       http.RoundTripper
	registerer prometheus.Registerer
}

// Option configures a Client
type Option func(*options)

// WithRepo overrides the storage backend chosen by the configuration
func WithRepo(repo storage.Repo) Option {
	return func(o *options) {
		o.repo = repo
	}
}

// WithNavigator receives the login route when the session ends
func WithNavigator(navigator sessions.Navigator) Option {
	return func(o *options) {
		o.navigator = navigator
	}
}

// WithNotifier replaces the log notifier
func WithNotifier(notifier notify.Notifier) Option {
	return func(o *options) {
		o.notifier = notifier
	}
}

// WithBaseTransport sets the transport under the refresh coordinator
func WithBaseTransport(base http.RoundTripper) Option {
	return func(o *options) {
		o.base = base
	}
}

// WithRegisterer registers the client metrics
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// New wires the session store, transport, API client and failure notifier, then restores
// any persisted session.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*Client, error) {
	o := options{
		notifier: notify.LogNotifier{},
		base:     http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(&o)
	}

	repo := o.repo
	if repo == nil {
		var err error
		if repo, err = NewRepo(cfg); err != nil {
			return nil, fmt.Errorf("[client New] storage: %w", err)
		}
	}

	m := metrics.New(o.registerer, cfg.GetAppName())
	store := sessions.NewStore(repo, o.navigator,
		sessions.WithStorageKeys(cfg.GetTokenStorageKey(), cfg.GetUserStorageKey()),
		sessions.WithLoginRoute(cfg.GetLoginRoute()),
	)

	auth := authapi.New(cfg.GetAPIBaseURL(), &http.Client{Transport: o.base})
	transport := refresh.NewTransport(store, auth,
		refresh.WithBase(o.base),
		refresh.WithExemptPaths(authapi.ExemptPaths()...),
		refresh.WithRetryHeader(cfg.GetRetryHeader()),
		refresh.WithTimeout(cfg.GetRefreshTimeout()),
		refresh.WithMetrics(m),
	)
	httpClient := &http.Client{Transport: transport}

	c := &Client{
		store: store,
		auth:  auth,
		api:   authapi.New(cfg.GetAPIBaseURL(), httpClient),
		http:  httpClient,
		failures: notify.NewHandler(o.notifier,
			notify.WithSessionCloser(store),
			notify.WithWindow(cfg.GetNotifyDedupeWindow()),
			notify.WithDuration(cfg.GetNotifyDuration()),
			notify.WithVerbose(cfg.GetDebug()),
			notify.WithMetrics(m),
		),
		repo: repo,
	}

	if err := store.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("[client New] restore session: %w", err)
	}
	return c, nil
}

// Store returns the session store
func (c *Client) Store() *sessions.Store {
	return c.store
}

// HTTPClient returns the client whose requests carry the access token and survive its expiry
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Failures returns the handler failures are reported to
func (c *Client) Failures() *notify.Handler {
	return c.failures
}

// Login signs in and stores the session together with the returned user
func (c *Client) Login(ctx context.Context, email, password string) (*sessions.SessionUser, error) {
	resp, err := c.auth.Login(ctx, authapi.LoginRequest{Email: email, Password: password})
	if err != nil {
		c.failures.Handle(err)
		return nil, err
	}

	user := sessions.SessionUser{
		ID:    resp.ID,
		Email: resp.Email,
		Name:  resp.Name,
		Roles: resp.Roles,
	}
	if err := c.store.SetSessionWithUser(ctx, resp.Pair(), user); err != nil {
		return nil, err
	}
	log.Info().Str("email", resp.Email).Msg("Signed in")
	return c.store.CurrentUser(), nil
}

// Logout revokes the refresh token when possible and always ends the local session
func (c *Client) Logout(ctx context.Context) error {
	if refreshToken := c.store.GetRefreshToken(); refreshToken != "" {
		if err := c.auth.Logout(ctx, refreshToken); err != nil {
			log.Warn().Err(err).Msg("Logout call failed, clearing the local session anyway")
		}
	}
	return c.store.ClearSession(ctx)
}

// Register creates an account. It does not sign in.
func (c *Client) Register(ctx context.Context, req authapi.RegisterRequest) (json.RawMessage, error) {
	created, err := c.auth.Register(ctx, req)
	if err != nil {
		c.failures.Handle(err)
		return nil, err
	}
	return created, nil
}

// DoJSON calls an API endpoint with the current session and decodes the response data into out.
// Failures are reported to the notifier and returned.
func (c *Client) DoJSON(ctx context.Context, method, path string, in, out any) error {
	if err := c.api.Do(ctx, method, path, in, out); err != nil {
		c.failures.Handle(err)
		return err
	}
	return nil
}

// Close releases the storage backend
func (c *Client) Close() error {
	if closer, ok := c.repo.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
