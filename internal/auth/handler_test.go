package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type authTestServer struct {
	server *httptest.Server
	client *http.Client
	clock  *testClock
}

func newAuthTestServer(t *testing.T) *authTestServer {
	t.Helper()

	clock := &testClock{now: time.Now().UTC()}
	store := NewMemoryStore()
	codec := NewTokenCodec("access-secret", "refresh-secret")
	codec.now = clock.Now
	service := NewService(store, store, codec)
	handler := NewHandler(service, false)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/register", handler.Register)
	mux.HandleFunc("POST /auth/login", handler.Login)
	mux.HandleFunc("POST /auth/refresh", handler.Refresh)
	mux.HandleFunc("POST /auth/logout", handler.Logout)
	mux.HandleFunc("GET /auth/me", handler.Me)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &authTestServer{
		server: server,
		client: &http.Client{Jar: jar},
		clock:  clock,
	}
}

func (s *authTestServer) post(t *testing.T, path string, payload any) *http.Response {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(encoded)
	} else {
		body = bytes.NewReader(nil)
	}

	resp, err := s.client.Post(s.server.URL+path, "application/json", body)
	require.NoError(t, err)
	return resp
}

func (s *authTestServer) get(t *testing.T, path, accessToken string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, s.server.URL+path, nil)
	require.NoError(t, err)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := s.client.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeSession(t *testing.T, resp *http.Response) sessionResponse {
	t.Helper()
	defer resp.Body.Close()

	var session sessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
	return session
}

func (s *authTestServer) refreshCookie(t *testing.T) *http.Cookie {
	t.Helper()

	parsed, err := url.Parse(s.server.URL)
	require.NoError(t, err)

	for _, cookie := range s.client.Jar.Cookies(parsed) {
		if cookie.Name == refreshCookieName {
			return cookie
		}
	}
	return nil
}

func TestRegisterEndpoint(t *testing.T) {
	ts := newAuthTestServer(t)

	resp := ts.post(t, "/auth/register", map[string]string{
		"email":    "user@example.com",
		"password": "Password1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	cookies := resp.Cookies()
	session := decodeSession(t, resp)
	assert.Equal(t, "user@example.com", session.User.Email)
	assert.NotEmpty(t, session.AccessToken)

	var refresh *http.Cookie
	for _, cookie := range cookies {
		if cookie.Name == refreshCookieName {
			refresh = cookie
		}
	}
	require.NotNil(t, refresh, "register must set the refresh cookie")
	assert.True(t, refresh.HttpOnly)
	assert.Equal(t, "/", refresh.Path)
	assert.Equal(t, http.SameSiteLaxMode, refresh.SameSite)
	assert.Equal(t, int((7 * 24 * time.Hour).Seconds()), refresh.MaxAge)
}

func TestRegisterEndpointRejections(t *testing.T) {
	ts := newAuthTestServer(t)

	resp := ts.post(t, "/auth/register", map[string]string{"email": "bad", "password": "Password1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = ts.post(t, "/auth/register", map[string]string{"email": "user@example.com", "password": "weakpass"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = ts.post(t, "/auth/register", map[string]string{"email": "user@example.com", "password": "Password1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = ts.post(t, "/auth/register", map[string]string{"email": "User@Example.com", "password": "Password1"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestLoginEndpoint(t *testing.T) {
	ts := newAuthTestServer(t)

	resp := ts.post(t, "/auth/register", map[string]string{"email": "user@example.com", "password": "Password1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = ts.post(t, "/auth/login", map[string]string{"email": "user@example.com", "password": "Password1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	session := decodeSession(t, resp)
	assert.Equal(t, "user@example.com", session.User.Email)

	resp = ts.post(t, "/auth/login", map[string]string{"email": "user@example.com", "password": "Nope12345!"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = ts.post(t, "/auth/login", map[string]string{"email": "", "password": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestRefreshEndpointRotation(t *testing.T) {
	ts := newAuthTestServer(t)

	resp := ts.post(t, "/auth/register", map[string]string{"email": "user@example.com", "password": "Password1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	original := ts.refreshCookie(t)
	require.NotNil(t, original)

	resp = ts.post(t, "/auth/refresh", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	rotated := ts.refreshCookie(t)
	require.NotNil(t, rotated)
	assert.NotEqual(t, original.Value, rotated.Value)

	// Replaying the original cookie must fail.
	req, err := http.NewRequest(http.MethodPost, ts.server.URL+"/auth/refresh", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: original.Value})
	replay, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, replay.StatusCode)
	replay.Body.Close()

	// The rotated cookie held by the jar still works.
	resp = ts.post(t, "/auth/refresh", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestRefreshEndpointWithoutCookie(t *testing.T) {
	ts := newAuthTestServer(t)

	resp := ts.post(t, "/auth/refresh", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestLogoutEndpointIdempotent(t *testing.T) {
	ts := newAuthTestServer(t)

	resp := ts.post(t, "/auth/register", map[string]string{"email": "user@example.com", "password": "Password1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = ts.post(t, "/auth/logout", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	for _, cookie := range resp.Cookies() {
		if cookie.Name == refreshCookieName {
			assert.Less(t, cookie.MaxAge, 0, "logout must clear the cookie")
		}
	}
	resp.Body.Close()

	// Second logout with the cookie already cleared.
	resp = ts.post(t, "/auth/logout", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestFullSessionLifecycle(t *testing.T) {
	ts := newAuthTestServer(t)

	resp := ts.post(t, "/auth/register", map[string]string{"email": "user@example.com", "password": "Password1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	session := decodeSession(t, resp)

	resp = ts.get(t, "/auth/me", session.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me struct {
		User PublicUser `json:"user"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&me))
	resp.Body.Close()
	assert.Equal(t, "user@example.com", me.User.Email)
	assert.NotNil(t, me.User.CreatedAt)

	// 15 minutes later the access token has lapsed.
	ts.clock.Advance(15*time.Minute + time.Second)

	resp = ts.get(t, "/auth/me", session.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// The refresh cookie is still good for a silent renewal.
	resp = ts.post(t, "/auth/refresh", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	renewed := decodeSession(t, resp)
	assert.NotEqual(t, session.AccessToken, renewed.AccessToken)

	resp = ts.get(t, "/auth/me", renewed.AccessToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestMeEndpointWithoutToken(t *testing.T) {
	ts := newAuthTestServer(t)

	resp := ts.get(t, "/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}
