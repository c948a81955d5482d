package auth

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/inkpressd/inkpress/pkg/pwdhash"
	"github.com/inkpressd/inkpress/server/model"
	"github.com/stretchr/testify/require"
)

func doLogin(t *testing.T, a *AuthServer, email, password string) (*httptest.ResponseRecorder, loginResponse) {
	body := strings.NewReader(`{"email": "` + email + `", "password": "` + password + `"}`)
	r := httptest.NewRequest("POST", "/api/auth/login", body)
	w := httptest.NewRecorder()
	a.HttpLogin(w, r, nil)
	resp := loginResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestLogin(t *testing.T) {
	a := newTestAuth(t)
	userID := createTestUser(t, a, "Alice@Example.com", false)

	// Email matching is case-insensitive
	w, resp := doLogin(t, a, "alice@example.com", "password123")
	require.Equal(t, userID, resp.UserID)
	require.NotEmpty(t, resp.BearerToken)

	// The DB holds the hash, never the plaintext
	session := model.Session{}
	a.db.Where("token = ?", pwdhash.HashSessionTokenBase64(resp.BearerToken)).Find(&session)
	require.NotZero(t, session.ID)

	// The cookie carries the plaintext token
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, SessionCookie, cookies[0].Name)
	require.Equal(t, resp.BearerToken, cookies[0].Value)

	// The token works for authentication
	cred, err := a.Authenticate(requestWithHeader(HeaderUserToken, resp.BearerToken), RouteInfo{})
	require.NoError(t, err)
	require.Equal(t, userID, cred.User.ID)

	require.Panics(t, func() { doLogin(t, a, "alice@example.com", "wrong") })
	require.Panics(t, func() { doLogin(t, a, "nobody@example.com", "password123") })
}

func TestLogout(t *testing.T) {
	a := newTestAuth(t)
	createTestUser(t, a, "alice@example.com", false)
	_, resp := doLogin(t, a, "alice@example.com", "password123")

	cred, err := a.Authenticate(requestWithHeader(HeaderUserToken, resp.BearerToken), RouteInfo{})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	a.HttpLogout(w, httptest.NewRequest("POST", "/api/auth/logout", nil), nil, cred)

	_, err = a.Authenticate(requestWithHeader(HeaderUserToken, resp.BearerToken), RouteInfo{})
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestPinFlow(t *testing.T) {
	a := newTestAuth(t)
	now := time.Now().Round(time.Second)
	a.timeNow = func() time.Time { return now }
	createTestUser(t, a, "alice@example.com", false)
	_, resp := doLogin(t, a, "alice@example.com", "password123")

	authenticate := func() *Credentials {
		cred, err := a.Authenticate(requestWithHeader(HeaderUserToken, resp.BearerToken), RouteInfo{})
		require.NoError(t, err)
		return cred
	}

	// Set a PIN
	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/auth/pin", strings.NewReader(`{"pin": "4321"}`))
	a.HttpSetPin(w, r, nil, authenticate())

	// Unlocking with the wrong PIN fails
	r = httptest.NewRequest("POST", "/api/auth/pin/unlock", strings.NewReader(`{"pin": "0000"}`))
	require.Panics(t, func() { a.HttpPinUnlock(httptest.NewRecorder(), r, nil, authenticate()) })
	require.False(t, authenticate().Session.HasElevatedPermission)

	// Unlocking with the right PIN elevates until now+PinElevationWindow
	r = httptest.NewRequest("POST", "/api/auth/pin/unlock", strings.NewReader(`{"pin": "4321"}`))
	a.HttpPinUnlock(httptest.NewRecorder(), r, nil, authenticate())
	cred := authenticate()
	require.True(t, cred.Session.HasElevatedPermission)
	require.WithinDuration(t, now.Add(PinElevationWindow), *loadSession(t, a.db, cred.Session.ID).PinExpiresAt, time.Second)

	// Locking drops elevation on every session of the account
	a.HttpPinLock(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/auth/pin/lock", nil), nil, authenticate())
	require.False(t, authenticate().Session.HasElevatedPermission)
	require.Nil(t, loadSession(t, a.db, cred.Session.ID).PinExpiresAt)
}

func TestApiKeyLifecycle(t *testing.T) {
	a := newTestAuth(t)
	createTestUser(t, a, "alice@example.com", false)
	_, login := doLogin(t, a, "alice@example.com", "password123")
	cred, err := a.Authenticate(requestWithHeader(HeaderUserToken, login.BearerToken), RouteInfo{})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/auth/apikeys", strings.NewReader(`{"name": "ci", "permissions": ["post.read"]}`))
	a.HttpCreateApiKey(w, r, nil, cred)
	resp := createApiKeyResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Key)

	keyCred, err := a.Authenticate(requestWithHeader(HeaderApiKey, resp.Key), RouteInfo{Permission: PermPostRead})
	require.NoError(t, err)
	require.Equal(t, cred.User.ID, keyCred.User.ID)

	// Only the hash is stored
	stored := model.ApiKey{}
	a.db.Where("id = ?", resp.ID).Find(&stored)
	require.NotEqual(t, resp.Key, stored.Key)
	require.Equal(t, pwdhash.HashSessionTokenBase64(resp.Key), stored.Key)

	// Unknown permissions are rejected at creation
	r = httptest.NewRequest("POST", "/api/auth/apikeys", strings.NewReader(`{"name": "bad", "permissions": ["post.obliterate"]}`))
	require.Panics(t, func() { a.HttpCreateApiKey(httptest.NewRecorder(), r, nil, cred) })
}

func TestSharedLinkLifecycle(t *testing.T) {
	a := newTestAuth(t)
	createTestUser(t, a, "alice@example.com", false)
	_, login := doLogin(t, a, "alice@example.com", "password123")
	cred, err := a.Authenticate(requestWithHeader(HeaderUserToken, login.BearerToken), RouteInfo{})
	require.NoError(t, err)

	// The target post must exist
	post := model.Post{Title: "T", Slug: "t", Content: "c", Status: model.PostStatusPublished, AuthorID: cred.User.ID}
	require.NoError(t, a.db.Create(&post).Error)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/auth/sharedlinks", strings.NewReader(`{"postId": 1, "slug": "friends"}`))
	a.HttpCreateSharedLink(w, r, nil, cred)
	resp := createSharedLinkResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Key)

	// The returned key and the slug both resolve
	linkCred, err := a.Authenticate(requestWithHeader(HeaderShareKey, resp.Key), RouteInfo{SharedLinkRoute: true})
	require.NoError(t, err)
	require.Equal(t, post.ID, linkCred.SharedLink.PostID)
	_, err = a.Authenticate(requestWithHeader(HeaderShareSlug, "friends"), RouteInfo{SharedLinkRoute: true})
	require.NoError(t, err)

	// Linking a nonexistent post fails
	r = httptest.NewRequest("POST", "/api/auth/sharedlinks", strings.NewReader(`{"postId": 999}`))
	require.Panics(t, func() { a.HttpCreateSharedLink(httptest.NewRecorder(), r, nil, cred) })
}
