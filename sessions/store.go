package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	ierrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/storage"
	"github.com/jrsteele09/go-auth-session/token"
	"github.com/jrsteele09/go-auth-session/token/jwt"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const (
	DefaultTokenKey   = "auth_tokens"
	DefaultUserKey    = "auth_user"
	DefaultLoginRoute = "/login"
)

var _ oauth2.TokenSource = (*Store)(nil)

// Store owns the token pair and the signed-in user. It is the only writer of the persisted
// session records; everything else reads through it and mutates through SetSession,
// SetSessionWithUser and ClearSession. Mutations are last-writer-wins and each one
// reaches storage before the next begins, so memory and the persisted records agree.
type Store struct {
	repo       storage.Repo
	navigator  Navigator
	tokenKey   string
	userKey    string
	loginRoute string

	mutate        sync.Mutex
	lock          sync.RWMutex
	pair          *token.Pair
	user          *SessionUser
	authenticated bool
	subscribers   map[uuid.UUID]chan State
}

// Option configures a Store
type Option func(*Store)

// WithStorageKeys overrides the keys the token pair and user record are stored under
func WithStorageKeys(tokenKey, userKey string) Option {
	return func(s *Store) {
		s.tokenKey = tokenKey
		s.userKey = userKey
	}
}

// WithLoginRoute sets the route ClearSession navigates to
func WithLoginRoute(route string) Option {
	return func(s *Store) {
		s.loginRoute = route
	}
}

// NewStore creates an empty store. Call Initialize to restore a persisted session.
func NewStore(repo storage.Repo, navigator Navigator, opts ...Option) *Store {
	s := &Store{
		repo:        repo,
		navigator:   navigator,
		tokenKey:    DefaultTokenKey,
		userKey:     DefaultUserKey,
		loginRoute:  DefaultLoginRoute,
		subscribers: make(map[uuid.UUID]chan State),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize restores the persisted session. A missing, corrupt, malformed or expired token pair
// leaves the store signed out without error; only storage failures are returned.
// The restored user is derived from the token and completed from the persisted display record.
func (s *Store) Initialize(ctx context.Context) error {
	s.mutate.Lock()
	defer s.mutate.Unlock()

	pair, err := s.readPair(ctx)
	if err != nil {
		s.reset()
		return err
	}
	persisted, err := s.readUser(ctx, true)
	if err != nil {
		s.reset()
		return err
	}

	if pair == nil || !jwt.IsValid(pair.AccessToken, NowTimeFunc()) {
		log.Debug().Bool("stored", pair != nil).Msg("No valid stored session")
		s.reset()
		return errors.Join(
			s.repo.Remove(ctx, s.tokenKey),
			s.repo.Remove(ctx, s.userKey),
		)
	}

	user := mergeUser(userFromToken(pair.AccessToken), persisted)

	s.lock.Lock()
	s.pair = pair
	s.user = user
	s.authenticated = true
	s.broadcastLocked()
	s.lock.Unlock()

	log.Debug().Str("email", user.Email).Msg("Session restored")
	return s.writeUser(ctx, user)
}

// SetSession stores a new token pair, typically after a refresh. The user is derived from the
// access token; the id and display name are kept from the current user when it is the same person.
func (s *Store) SetSession(ctx context.Context, pair token.Pair) error {
	derived := userFromToken(pair.AccessToken)

	s.mutate.Lock()
	defer s.mutate.Unlock()

	s.lock.Lock()
	user := derived
	if derived != nil && sameIdentity(derived, s.user) {
		user = mergeUser(derived, &SessionUser{ID: s.user.ID, Name: s.user.Name})
	}
	s.pair = &pair
	s.user = user
	s.authenticated = true
	s.broadcastLocked()
	s.lock.Unlock()

	return s.persist(ctx, pair, user)
}

// SetSessionWithUser stores a token pair together with the user returned by the login call.
// Fields the login response leaves empty are taken from the access token.
func (s *Store) SetSessionWithUser(ctx context.Context, pair token.Pair, user SessionUser) error {
	merged := mergeUser(&user, userFromToken(pair.AccessToken))

	s.mutate.Lock()
	defer s.mutate.Unlock()

	s.lock.Lock()
	s.pair = &pair
	s.user = merged
	s.authenticated = true
	s.broadcastLocked()
	s.lock.Unlock()

	return s.persist(ctx, pair, merged)
}

// ClearSession signs out: the persisted records are removed, subscribers see an unauthenticated
// state and the navigator is sent to the login route. Calling it repeatedly is safe.
func (s *Store) ClearSession(ctx context.Context) error {
	s.mutate.Lock()
	s.reset()
	err := errors.Join(
		s.repo.Remove(ctx, s.tokenKey),
		s.repo.Remove(ctx, s.userKey),
	)
	s.mutate.Unlock()

	if err != nil {
		log.Err(err).Msg("Failed to remove stored session")
	}

	if s.navigator != nil {
		s.navigator.Navigate(s.loginRoute)
	}
	return err
}

// GetAccessToken returns "" when signed out
func (s *Store) GetAccessToken() string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.pair == nil {
		return ""
	}
	return s.pair.AccessToken
}

// GetRefreshToken returns "" when signed out
func (s *Store) GetRefreshToken() string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.pair == nil {
		return ""
	}
	return s.pair.RefreshToken
}

func (s *Store) IsAuthenticated() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.authenticated
}

// CurrentUser returns a copy of the signed-in user or nil
func (s *Store) CurrentUser() *SessionUser {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.user.clone()
}

// State returns the current snapshot
func (s *Store) State() State {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.stateLocked()
}

// Token implements oauth2.TokenSource over the current session
func (s *Store) Token() (*oauth2.Token, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.pair == nil {
		return nil, ierrors.ErrNoSession
	}
	var expiry time.Time
	if claims, err := jwt.Decode(s.pair.AccessToken); err == nil {
		expiry = claims.ExpiresAt()
	}
	return s.pair.OAuth2(expiry), nil
}

// ResolveCurrentUserID finds the acting user's id even when the live token lacks one.
// It tries the in-memory user, then the persisted display record, then the raw access token claims.
func (s *Store) ResolveCurrentUserID(ctx context.Context) *int64 {
	s.lock.RLock()
	var fromCurrent *int64
	if s.user != nil && s.user.ID != nil {
		fromCurrent = jwt.NormalizeID(*s.user.ID)
	}
	accessToken := ""
	if s.pair != nil {
		accessToken = s.pair.AccessToken
	}
	s.lock.RUnlock()

	if fromCurrent != nil {
		return fromCurrent
	}

	if stored, err := s.readUser(ctx, false); err == nil && stored != nil && stored.ID != nil {
		return stored.ID
	}

	if accessToken != "" {
		if claims, err := jwt.Decode(accessToken); err == nil && claims.UserID != nil {
			return claims.UserID
		}
	}
	return nil
}

func (s *Store) reset() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.pair = nil
	s.user = nil
	s.authenticated = false
	s.broadcastLocked()
}

func (s *Store) stateLocked() State {
	return State{
		Authenticated: s.authenticated,
		User:          s.user.clone(),
	}
}

func (s *Store) persist(ctx context.Context, pair token.Pair, user *SessionUser) error {
	data, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("%w: marshal token pair: %w", ierrors.ErrStorage, err)
	}
	if err := s.repo.Set(ctx, s.tokenKey, string(data)); err != nil {
		log.Err(err).Msg("Failed to persist token pair")
		return err
	}
	if user == nil {
		return s.repo.Remove(ctx, s.userKey)
	}
	return s.writeUser(ctx, user)
}

func (s *Store) writeUser(ctx context.Context, user *SessionUser) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("%w: marshal user: %w", ierrors.ErrStorage, err)
	}
	if err := s.repo.Set(ctx, s.userKey, string(data)); err != nil {
		log.Err(err).Msg("Failed to persist session user")
		return err
	}
	return nil
}

// readPair returns nil for a missing or corrupt record. Corrupt records are discarded.
func (s *Store) readPair(ctx context.Context) (*token.Pair, error) {
	raw, ok, err := s.repo.Get(ctx, s.tokenKey)
	if err != nil || !ok {
		return nil, err
	}

	var pair token.Pair
	if err := json.Unmarshal([]byte(raw), &pair); err != nil || pair.IsZero() {
		log.Warn().Err(err).Str("key", s.tokenKey).Msg("Discarding corrupt stored token pair")
		return nil, s.repo.Remove(ctx, s.tokenKey)
	}
	return &pair, nil
}

// readUser returns nil for a missing or corrupt record, discarding corrupt records when asked.
// The id is accepted as a number or numeric string.
func (s *Store) readUser(ctx context.Context, discardCorrupt bool) (*SessionUser, error) {
	raw, ok, err := s.repo.Get(ctx, s.userKey)
	if err != nil || !ok {
		return nil, err
	}

	var record struct {
		ID    any      `json:"id"`
		Email string   `json:"email"`
		Name  string   `json:"name"`
		Roles []string `json:"roles"`
	}
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		if !discardCorrupt {
			return nil, nil
		}
		log.Warn().Err(err).Str("key", s.userKey).Msg("Discarding corrupt stored user")
		return nil, s.repo.Remove(ctx, s.userKey)
	}

	roles := record.Roles
	if roles == nil {
		roles = []string{}
	}
	return &SessionUser{
		ID:    jwt.NormalizeID(record.ID),
		Email: record.Email,
		Name:  record.Name,
		Roles: roles,
	}, nil
}

// userFromToken derives the user from access token claims, nil when the token cannot be decoded
func userFromToken(accessToken string) *SessionUser {
	claims, err := jwt.Decode(accessToken)
	if err != nil {
		return nil
	}
	return &SessionUser{
		ID:    claims.UserID,
		Email: claims.Email,
		Name:  claims.Name,
		Roles: claims.Roles,
	}
}

func sameIdentity(a, b *SessionUser) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Email == "" || b.Email == "" || strings.EqualFold(a.Email, b.Email)
}
