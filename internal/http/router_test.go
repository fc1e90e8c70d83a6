package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/account-service/internal/auth"
	"github.com/redmonkez12/account-service/internal/config"
	"github.com/redmonkez12/account-service/internal/logging"
	"github.com/redmonkez12/account-service/internal/profile"
	"github.com/redmonkez12/account-service/internal/user"
)

// memStore is an in-memory auth.UserStore for end-to-end router tests
type memStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*user.User
}

func newMemStore() *memStore {
	return &memStore{nextID: 1, users: make(map[int64]*user.User)}
}

func copyUser(u *user.User) *user.User {
	c := *u
	return &c
}

func (s *memStore) Insert(ctx context.Context, u *user.User) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return nil, user.ErrDuplicateEmail
		}
	}
	stored := copyUser(u)
	stored.ID = s.nextID
	stored.RegisteredAt = time.Now().UTC()
	s.nextID++
	s.users[stored.ID] = stored
	return copyUser(stored), nil
}

func (s *memStore) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, user.ErrNotFound
}

func (s *memStore) FindByID(ctx context.Context, id int64) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return copyUser(u), nil
}

func (s *memStore) Update(ctx context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return user.ErrNotFound
	}
	s.users[u.ID] = copyUser(u)
	return nil
}

func (s *memStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return user.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

// memLedger is an in-memory auth.Ledger
type memLedger struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func newMemLedger() *memLedger {
	return &memLedger{revoked: make(map[string]time.Time)}
}

func (l *memLedger) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.revoked[tokenID]
	return ok, nil
}

func (l *memLedger) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.revoked[tokenID] = expiresAt
	return nil
}

// memMailer captures outbound mail so tests can read verification tokens
type memMailer struct {
	mu   sync.Mutex
	sent []auth.MailParams
}

func (m *memMailer) Send(ctx context.Context, address string, template auth.Template, params auth.MailParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, params)
	return nil
}

func (m *memMailer) lastToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1].Token
}

func newTestRouter(t *testing.T) (http.Handler, *memMailer) {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{Port: "0", Env: "prod"},
		Auth: config.AuthConfig{
			SecretKey:       []byte("router test secret"),
			AccessTokenTTL:  time.Hour,
			RefreshTokenTTL: 30 * 24 * time.Hour,
		},
	}

	store := newMemStore()
	ledger := newMemLedger()
	mailer := &memMailer{}
	logger := logging.NewLogger(true)

	codec := auth.NewCodec(store, cfg.Auth.SecretKey)
	service := auth.NewService(store, ledger, codec, mailer, logger, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	guard := auth.NewGuard(codec, ledger)

	router := NewRouter(cfg, auth.NewHandler(service, logger), profile.NewHandler(store), guard, logger)
	return router, mailer
}

func do(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"api is running"}`, rec.Body.String())
}

func TestSwaggerDisabledInProduction(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/swagger/index.html", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAccountLifecycle(t *testing.T) {
	t.Parallel()
	router, mailer := newTestRouter(t)

	signup := map[string]string{
		"name":     "Test User",
		"email":    "test@example.com",
		"password": "password123",
	}

	// Signup succeeds and mails a verification token
	rec := do(t, router, http.MethodPost, "/auth/signup", "", signup)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Same address again is rejected
	rec = do(t, router, http.MethodPost, "/auth/signup", "", signup)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"msg":"email already exists"}`, rec.Body.String())

	login := map[string]string{"email": "test@example.com", "password": "password123"}

	// Login before verification fails and re-sends the token
	rec = do(t, router, http.MethodPost, "/auth/login", "", login)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"msg":"email not verified"}`, rec.Body.String())

	// Verify with the emailed refresh token
	rec = do(t, router, http.MethodPost, "/auth/verify", mailer.lastToken(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	confirm := decode[auth.TokenPair](t, rec)
	assert.NotEmpty(t, confirm.AccessToken)

	// Login now issues a full token pair
	rec = do(t, router, http.MethodPost, "/auth/login", "", login)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	pair := decode[auth.TokenPair](t, rec)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "Bearer", pair.TokenType)

	// Status reflects the account
	rec = do(t, router, http.MethodGet, "/auth/status", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[auth.StatusResponse](t, rec)
	assert.Equal(t, "Test User", status.Name)
	assert.Equal(t, "test@example.com", status.Email)

	// Refresh accepts only the refresh token
	rec = do(t, router, http.MethodPost, "/auth/refresh", pair.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, router, http.MethodPost, "/auth/refresh", pair.RefreshToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	refreshed := decode[auth.TokenPair](t, rec)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Empty(t, refreshed.RefreshToken)

	// Logout revokes the presented access token only
	rec = do(t, router, http.MethodPost, "/auth/logout", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/auth/status", pair.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, router, http.MethodGet, "/auth/status", refreshed.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/auth/verify"},
		{http.MethodPost, "/auth/refresh"},
		{http.MethodPost, "/auth/logout"},
		{http.MethodPost, "/auth/delete"},
		{http.MethodPost, "/auth/email"},
		{http.MethodPost, "/auth/password"},
		{http.MethodGet, "/auth/status"},
		{http.MethodGet, "/profile/@me"},
		{http.MethodPost, "/profile/@me"},
	}

	for _, p := range paths {
		t.Run(fmt.Sprintf("%s %s", p.method, p.path), func(t *testing.T) {
			rec := do(t, router, p.method, p.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"msg":"invalid token"}`, rec.Body.String())
		})
	}
}

func TestProfileRoundTrip(t *testing.T) {
	t.Parallel()
	router, mailer := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/auth/signup", "", map[string]string{
		"name":     "Test User",
		"email":    "profile@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodPost, "/auth/verify", mailer.lastToken(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	access := decode[auth.TokenPair](t, rec).AccessToken

	// Fresh accounts expose the signup name and empty optional fields
	rec = do(t, router, http.MethodGet, "/profile/@me", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	p := decode[profile.Profile](t, rec)
	assert.Equal(t, "Test User", p.Name)
	assert.Empty(t, p.Bio)

	// Name cannot be blanked
	rec = do(t, router, http.MethodPost, "/profile/@me", access, profile.Profile{Name: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	updated := profile.Profile{
		Name:     "Renamed User",
		Pronouns: "they/them",
		URL:      "https://example.com",
		Location: "Prague",
		Bio:      "Hello there.",
	}
	rec = do(t, router, http.MethodPost, "/profile/@me", access, updated)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/profile/@me", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, updated, decode[profile.Profile](t, rec))
}

func TestChangePasswordOverHTTP(t *testing.T) {
	t.Parallel()
	router, mailer := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/auth/signup", "", map[string]string{
		"name":     "Test User",
		"email":    "change@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodPost, "/auth/verify", mailer.lastToken(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "change@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	pair := decode[auth.TokenPair](t, rec)

	rec = do(t, router, http.MethodPost, "/auth/password", pair.AccessToken, map[string]string{
		"password": "password123", "new_password": "even better pass",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The old signing key is gone, so the old pair stops working
	rec = do(t, router, http.MethodGet, "/auth/status", pair.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, router, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "change@example.com", "password": "even better pass",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteAccountOverHTTP(t *testing.T) {
	t.Parallel()
	router, mailer := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/auth/signup", "", map[string]string{
		"name":     "Test User",
		"email":    "delete@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodPost, "/auth/verify", mailer.lastToken(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	access := decode[auth.TokenPair](t, rec).AccessToken

	rec = do(t, router, http.MethodPost, "/auth/delete", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/auth/status", access, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, router, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "delete@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"msg":"invalid email or password"}`, rec.Body.String())
}
