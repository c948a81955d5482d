package auth

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"github.com/inkpressd/inkpress/pkg/pwdhash"
	"github.com/inkpressd/inkpress/server/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestAuth(t *testing.T) *AuthServer {
	logger := logs.NewTestingLog(t)
	db, err := dbh.OpenDB(logger, dbh.MakeSqliteConfig(filepath.Join(t.TempDir(), "test.sqlite")), model.Migrations(logger), 0)
	require.NoError(t, err)
	return NewAuthServer(db, logger)
}

func createTestUser(t *testing.T, a *AuthServer, email string, isAdmin bool) int64 {
	id, err := a.CreateUser(email, "Test User", "password123", isAdmin)
	require.NoError(t, err)
	return id
}

// createTestSession inserts a session whose plaintext token is 'token'.
// updatedAt lets tests control staleness.
func createTestSession(t *testing.T, a *AuthServer, userID int64, token string, updatedAt time.Time, pinExpiresAt *time.Time) int64 {
	session := model.Session{
		Token:        pwdhash.HashSessionTokenBase64(token),
		UserID:       userID,
		CreatedAt:    updatedAt,
		UpdatedAt:    updatedAt,
		PinExpiresAt: pinExpiresAt,
	}
	require.NoError(t, a.db.Create(&session).Error)
	return session.ID
}

func createTestApiKey(t *testing.T, a *AuthServer, userID int64, secret string, perms []Permission) int64 {
	key := model.ApiKey{
		Name:        "test key",
		Key:         pwdhash.HashSessionTokenBase64(secret),
		UserID:      userID,
		Permissions: JoinPermissions(perms),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	require.NoError(t, a.db.Create(&key).Error)
	return key.ID
}

func createTestSharedLink(t *testing.T, a *AuthServer, userID, postID int64, raw []byte, slug string, expiresAt *time.Time) int64 {
	link := model.SharedLink{
		Key:       encodeSharedLinkKey(raw),
		Slug:      slug,
		UserID:    userID,
		PostID:    postID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	require.NoError(t, a.db.Create(&link).Error)
	return link.ID
}

func requestWithHeader(key, value string) *http.Request {
	r := httptest.NewRequest("GET", "/api/posts", nil)
	r.Header.Set(key, value)
	return r
}

func loadSession(t *testing.T, db *gorm.DB, id int64) model.Session {
	session := model.Session{}
	db.Where("id = ?", id).Find(&session)
	require.NotZero(t, session.ID)
	return session
}
