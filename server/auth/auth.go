// Package auth resolves request credentials into an authenticated
// principal, and enforces route policy on the result.
//
// Four credential strategies exist: session tokens, API keys, shared-link
// keys and shared-link slugs. Exactly one strategy is used per request,
// picked by extractCredential's priority order. Resolution is single-shot:
// raw credential in, Credentials out, or a terminal error.
package auth

import (
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/inkpressd/inkpress/pkg/pwdhash"
	"github.com/inkpressd/inkpress/server/model"
	"gorm.io/gorm"
)

const (
	// SessionStaleAfter is how old a session's updated_at must be before a
	// successful resolution bumps it.
	SessionStaleAfter = time.Hour

	// PinRefreshWindow is the sliding elevation window: an elevated session
	// with less than this much elevation left gets extended to now+window.
	PinRefreshWindow = 5 * time.Minute

	// PinElevationWindow is the elevation granted by a successful PIN unlock.
	PinElevationWindow = 15 * time.Minute

	// Sessions idle longer than this are reaped by the sweeper.
	SessionIdleExpiry = 90 * 24 * time.Hour
)

// SessionContext is attached to Credentials resolved from a session token.
// HasElevatedPermission is derived at resolution time from pin_expires_at;
// it is never stored directly.
type SessionContext struct {
	ID                    int64
	HasElevatedPermission bool
}

// ApiKeyContext is attached to Credentials resolved from an API key.
type ApiKeyContext struct {
	ID          int64
	Permissions []Permission
}

// Credentials is the authenticated principal for one request.
// Exactly one of Session, ApiKey, SharedLink is populated.
type Credentials struct {
	User       model.User
	Session    *SessionContext
	ApiKey     *ApiKeyContext
	SharedLink *model.SharedLink
}

// RouteInfo is the per-endpoint policy metadata the route table supplies.
// The zero value is "any authenticated principal, API keys need PermAll".
type RouteInfo struct {
	URI             string
	AdminRoute      bool
	SharedLinkRoute bool
	// Permission an API key must hold. Empty defaults to PermAll;
	// PermNone disables the check.
	Permission Permission
}

type AuthServer struct {
	db          *gorm.DB
	log         logs.Log
	sweeperStop chan bool

	// Overridable for tests.
	timeNow func() time.Time
}

func NewAuthServer(db *gorm.DB, log logs.Log) *AuthServer {
	return &AuthServer{
		db:      db,
		log:     log,
		timeNow: time.Now,
	}
}

// Authenticate resolves the request's credential and applies route policy.
// On failure it returns one of the sentinel errors above (no credential,
// or a failed lookup) or a *ForbiddenError (valid credential, denied
// route). Callers attach the returned Credentials to the request context.
func (a *AuthServer) Authenticate(r *http.Request, route RouteInfo) (*Credentials, error) {
	cred, err := a.resolve(r)
	if err != nil {
		return nil, err
	}

	if route.AdminRoute && !cred.User.IsAdmin {
		a.log.Warnf("Denied access to admin only route: %v", route.URI)
		return nil, forbiddenf("Forbidden")
	}

	if cred.SharedLink != nil && !route.SharedLinkRoute {
		a.log.Warnf("Denied shared-link access to non-shared route: %v", route.URI)
		return nil, forbiddenf("Forbidden")
	}

	if cred.ApiKey != nil && route.Permission != PermNone {
		required := route.Permission
		if required == "" {
			required = PermAll
		}
		if !IsGranted(required, cred.ApiKey.Permissions) {
			return nil, forbiddenf("Missing required permission: %v", required)
		}
	}

	return cred, nil
}

func (a *AuthServer) resolve(r *http.Request) (*Credentials, error) {
	switch cred := extractCredential(r); cred.kind {
	case credentialShareKey:
		return a.resolveSharedLinkKey(cred.value)
	case credentialShareSlug:
		return a.resolveSharedLinkSlug(cred.value)
	case credentialSessionToken:
		return a.resolveSession(cred.value)
	case credentialApiKey:
		return a.resolveApiKey(cred.value)
	default:
		return nil, ErrAuthenticationRequired
	}
}

// resolveSession looks a session token up by its hash. A hit bumps a stale
// updated_at in the background, and maintains the sliding PIN elevation
// window. Both side effects are best-effort: their failure never fails
// the resolution.
func (a *AuthServer) resolveSession(token string) (*Credentials, error) {
	now := a.timeNow()
	hashed := pwdhash.HashSessionTokenBase64(token)

	session := model.Session{}
	a.db.Where("token = ?", hashed).Find(&session)
	if session.ID == 0 {
		return nil, ErrInvalidToken
	}
	if session.ExpiresAt != nil && !session.ExpiresAt.After(now) {
		return nil, ErrInvalidToken
	}
	user, ok := a.liveUser(session.UserID)
	if !ok {
		return nil, ErrInvalidToken
	}

	if now.Sub(session.UpdatedAt) > SessionStaleAfter {
		sessionID := session.ID
		go func() {
			err := a.db.Model(&model.Session{}).Where("id = ?", sessionID).Update("updated_at", now).Error
			if err != nil {
				a.log.Warnf("Failed to touch session %v: %v", sessionID, err)
			}
		}()
	}

	elevated := false
	if session.PinExpiresAt != nil {
		elevated = session.PinExpiresAt.After(now)
		if elevated && now.Add(PinRefreshWindow).After(*session.PinExpiresAt) {
			extended := now.Add(PinRefreshWindow)
			err := a.db.Model(&model.Session{}).Where("id = ?", session.ID).Update("pin_expires_at", extended).Error
			if err != nil {
				a.log.Warnf("Failed to extend pin elevation on session %v: %v", session.ID, err)
			}
		}
	}

	return &Credentials{
		User: user,
		Session: &SessionContext{
			ID:                    session.ID,
			HasElevatedPermission: elevated,
		},
	}, nil
}

func (a *AuthServer) resolveApiKey(key string) (*Credentials, error) {
	hashed := pwdhash.HashSessionTokenBase64(key)

	apiKey := model.ApiKey{}
	a.db.Where("key = ?", hashed).Find(&apiKey)
	if apiKey.ID == 0 {
		return nil, ErrInvalidApiKey
	}
	user, ok := a.liveUser(apiKey.UserID)
	if !ok {
		return nil, ErrInvalidApiKey
	}

	return &Credentials{
		User: user,
		ApiKey: &ApiKeyContext{
			ID:          apiKey.ID,
			Permissions: ParsePermissions(apiKey.Permissions),
		},
	}, nil
}

// encodeSharedLinkKey is the stored form of a share key.
func encodeSharedLinkKey(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}

// wireSharedLinkKey is the form clients send (URL-safe, no padding).
func wireSharedLinkKey(raw []byte) string {
	return base64.RawURLEncoding.EncodeToString(raw)
}

// resolveSharedLinkKey decodes the wire form of a share key and looks the
// link up by its stored (base64) representation. A key of exactly 100
// characters is hex; anything else is base64url. The split by length, not
// by format validity, is how the two historical key formats coexist.
func (a *AuthServer) resolveSharedLinkKey(key string) (*Credentials, error) {
	var raw []byte
	var err error
	if len(key) == 100 {
		raw, err = hex.DecodeString(key)
	} else {
		raw, err = base64.RawURLEncoding.DecodeString(key)
	}
	if err != nil {
		return nil, ErrInvalidShareKey
	}

	link := model.SharedLink{}
	a.db.Where("key = ?", encodeSharedLinkKey(raw)).Find(&link)
	cred, ok := a.liveSharedLink(link)
	if !ok {
		return nil, ErrInvalidShareKey
	}
	return cred, nil
}

func (a *AuthServer) resolveSharedLinkSlug(slug string) (*Credentials, error) {
	link := model.SharedLink{}
	a.db.Where("slug = ?", slug).Find(&link)
	cred, ok := a.liveSharedLink(link)
	if !ok {
		return nil, ErrInvalidShareSlug
	}
	return cred, nil
}

func (a *AuthServer) liveSharedLink(link model.SharedLink) (*Credentials, bool) {
	if link.ID == 0 {
		return nil, false
	}
	if link.ExpiresAt != nil && !link.ExpiresAt.After(a.timeNow()) {
		return nil, false
	}
	user, ok := a.liveUser(link.UserID)
	if !ok {
		return nil, false
	}
	linkCopy := link
	return &Credentials{
		User:       user,
		SharedLink: &linkCopy,
	}, true
}

// liveUser loads a user, treating soft-deleted users as absent. Every
// resolver goes through here, so a deleted user invalidates all of their
// sessions, API keys and shared links uniformly.
func (a *AuthServer) liveUser(userID int64) (model.User, bool) {
	user := model.User{}
	a.db.Where("id = ? AND deleted_at IS NULL", userID).Find(&user)
	return user, user.ID != 0
}
