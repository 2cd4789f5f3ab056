package client_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-auth-session/authapi"
	"github.com/jrsteele09/go-auth-session/client"
	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/notify"
	"github.com/jrsteele09/go-auth-session/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secretStr = "1234"

// backend is a fake of the REST API issuing and accepting one access token at a time
type backend struct {
	t *testing.T

	lock          sync.Mutex
	generation    int
	validToken    string
	refreshFails  bool
	logoutFails   bool
	refreshCalls  int
	logoutCalls   int
	requestTokens []string
}

func newBackend(t *testing.T) (*backend, *httptest.Server) {
	b := &backend{t: t}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", b.login)
	mux.HandleFunc("POST /api/v1/auth/refresh", b.refresh)
	mux.HandleFunc("POST /api/v1/auth/logout", b.logout)
	mux.HandleFunc("POST /api/v1/auth/register", b.register)
	mux.HandleFunc("GET /api/v1/meals", b.meals)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *backend) mint() string {
	b.generation++
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"sub":   "x@y.com",
		"roles": "ROLE_EMPLOYEE",
		"gen":   b.generation,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secretStr))
	assert.NoError(b.t, err)
	b.validToken = signed
	return signed
}

// expire rejects the current access token from now on
func (b *backend) expire() {
	b.update(func(b *backend) { b.validToken = "expired" })
}

func (b *backend) update(fn func(b *backend)) {
	b.lock.Lock()
	defer b.lock.Unlock()
	fn(b)
}

type backendStats struct {
	refreshCalls  int
	logoutCalls   int
	requestTokens []string
}

func (b *backend) stats() backendStats {
	b.lock.Lock()
	defer b.lock.Unlock()
	return backendStats{
		refreshCalls:  b.refreshCalls,
		logoutCalls:   b.logoutCalls,
		requestTokens: append([]string{}, b.requestTokens...),
	}
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (b *backend) login(w http.ResponseWriter, r *http.Request) {
	var req authapi.LoginRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Password != "secret" {
		respond(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid email or password"})
		return
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	respond(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Login successful",
		"data": map[string]any{
			"accessToken":  b.mint(),
			"refreshToken": "r1",
			"tokenType":    "Bearer",
			"expiresIn":    3600,
			"id":           7,
			"email":        req.Email,
			"name":         "X",
			"roles":        []string{"ROLE_EMPLOYEE"},
		},
	})
}

func (b *backend) refresh(w http.ResponseWriter, r *http.Request) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.refreshCalls++
	if b.refreshFails {
		respond(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Refresh token expired"})
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"accessToken":  b.mint(),
			"refreshToken": fmt.Sprintf("r%d", b.generation),
			"tokenType":    "Bearer",
			"expiresIn":    3600,
		},
	})
}

func (b *backend) logout(w http.ResponseWriter, r *http.Request) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.logoutCalls++
	if b.logoutFails {
		respond(w, http.StatusInternalServerError, map[string]any{"success": false})
		return
	}
	respond(w, http.StatusOK, map[string]any{"success": true, "message": "Logged out"})
}

func (b *backend) register(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_, _ = io.WriteString(w, `{"success":false,"message":"","data":{"password":"Password must be at least 8 characters","email":"Invalid email format"}}`)
}

func (b *backend) meals(w http.ResponseWriter, r *http.Request) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.requestTokens = append(b.requestTokens, r.Header.Get("Authorization"))
	if r.Header.Get("Authorization") != "Bearer "+b.validToken {
		respond(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Token expired"})
		return
	}
	respond(w, http.StatusOK, map[string]any{"success": true, "data": []map[string]any{{"id": 1, "name": "Lunch"}}})
}

type testFixture struct {
	backend  *backend
	client   *client.Client
	notified *notifications
	routes   *[]string
}

type notifications struct {
	lock     sync.Mutex
	messages []string
}

func (n *notifications) Notify(message, _ string, _ notify.Options) {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.messages = append(n.messages, message)
}

func (n *notifications) all() []string {
	n.lock.Lock()
	defer n.lock.Unlock()
	return append([]string{}, n.messages...)
}

func setupEnv(t *testing.T, srv *httptest.Server, storageFile string) {
	t.Setenv("API_BASE_URL", srv.URL+"/api/v1/")
	t.Setenv("STORAGE_BACKEND", "file")
	t.Setenv("STORAGE_FILE", storageFile)
	t.Setenv("STORAGE_PASSPHRASE", "")
}

func newClient(t *testing.T, b *backend) *testFixture {
	t.Helper()
	f := &testFixture{backend: b, notified: &notifications{}, routes: &[]string{}}
	c, err := client.New(context.Background(), config.New(),
		client.WithNotifier(f.notified),
		client.WithNavigator(sessions.NavigatorFunc(func(route string) {
			*f.routes = append(*f.routes, route)
		})),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	f.client = c
	return f
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	b, srv := newBackend(t)
	setupEnv(t, srv, filepath.Join(t.TempDir(), "session.json"))
	return newClient(t, b)
}

func TestLogin(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	user, err := f.client.Login(ctx, "x@y.com", "secret")
	require.NoError(t, err)
	require.Equal(t, int64(7), *user.ID)
	require.Equal(t, "X", user.Name)
	require.True(t, f.client.Store().IsAuthenticated())
	require.True(t, f.client.Store().IsEmployee())
	require.Equal(t, int64(7), *f.client.Store().ResolveCurrentUserID(ctx))
}

func TestLogin_BadCredentialsNotified(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.client.Login(context.Background(), "x@y.com", "wrong")
	require.ErrorIs(t, err, errors.ErrAuthExpired)
	require.False(t, f.client.Store().IsAuthenticated())
	require.Equal(t, []string{"Invalid email or password"}, f.notified.all())
}

func TestDoJSON_RefreshesExpiredToken(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	_, err := f.client.Login(ctx, "x@y.com", "secret")
	require.NoError(t, err)
	f.backend.expire()

	var meals []map[string]any
	require.NoError(t, f.client.DoJSON(ctx, http.MethodGet, "/meals", nil, &meals))
	require.Len(t, meals, 1)

	stats := f.backend.stats()
	require.Equal(t, 1, stats.refreshCalls)
	require.Len(t, stats.requestTokens, 2)
	require.NotEqual(t, stats.requestTokens[0], stats.requestTokens[1])
	require.Equal(t, "Bearer "+f.client.Store().GetAccessToken(), stats.requestTokens[1])
	require.Equal(t, "r2", f.client.Store().GetRefreshToken())
	require.Equal(t, "X", f.client.Store().CurrentUser().Name)
	require.Empty(t, f.notified.all())
}

func TestDoJSON_ConcurrentRequestsShareOneRefresh(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	_, err := f.client.Login(ctx, "x@y.com", "secret")
	require.NoError(t, err)
	f.backend.expire()

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.client.DoJSON(ctx, http.MethodGet, "/meals", nil, nil))
		}()
	}
	wg.Wait()

	require.Equal(t, 1, f.backend.stats().refreshCalls)
}

func TestDoJSON_RefreshFailureSignsOut(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	_, err := f.client.Login(ctx, "x@y.com", "secret")
	require.NoError(t, err)
	f.backend.update(func(b *backend) {
		b.validToken = "expired"
		b.refreshFails = true
	})

	err = f.client.DoJSON(ctx, http.MethodGet, "/meals", nil, nil)
	require.ErrorIs(t, err, errors.ErrAuthExpired)

	require.False(t, f.client.Store().IsAuthenticated())
	require.Equal(t, "", f.client.Store().GetAccessToken())
	require.Equal(t, []string{"/login"}, *f.routes)
	require.Equal(t, []string{"Token expired"}, f.notified.all())
}

func TestLogout_BestEffort(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	_, err := f.client.Login(ctx, "x@y.com", "secret")
	require.NoError(t, err)
	f.backend.update(func(b *backend) { b.logoutFails = true })

	require.NoError(t, f.client.Logout(ctx))

	require.Equal(t, 1, f.backend.stats().logoutCalls)
	require.False(t, f.client.Store().IsAuthenticated())
	require.Equal(t, []string{"/login"}, *f.routes)
}

func TestRegister_ValidationMessageNotified(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.client.Register(context.Background(), authapi.RegisterRequest{Name: "Xi", Email: "x@y.com", Password: "longenough", Department: "IT"})
	require.ErrorIs(t, err, errors.ErrTransientRequest)
	require.Equal(t, []string{"Password must be at least 8 characters"}, f.notified.all())
}

func TestNew_RestoresPersistedSession(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	_, err := f.client.Login(ctx, "x@y.com", "secret")
	require.NoError(t, err)

	restarted := newClient(t, f.backend)

	store := restarted.client.Store()
	require.True(t, store.IsAuthenticated())
	require.Equal(t, f.client.Store().GetAccessToken(), store.GetAccessToken())
	user := store.CurrentUser()
	require.Equal(t, "X", user.Name)
	require.Equal(t, int64(7), *user.ID)
	require.Equal(t, []string{"ROLE_EMPLOYEE"}, user.Roles)
}

func TestNewRepo_UnknownBackendFallsBackToFile(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "carrier-pigeon")
	t.Setenv("STORAGE_FILE", filepath.Join(t.TempDir(), "session.json"))

	repo, err := client.NewRepo(config.New())
	require.NoError(t, err)
	require.NotNil(t, repo)
}

func TestNewRepo_Redis(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "redis")
	t.Setenv("REDIS_URL", "::not a url")

	_, err := client.NewRepo(config.New())
	require.ErrorIs(t, err, errors.ErrInvalidConfig)
}
