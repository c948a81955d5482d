package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/cyclopcam/www"
	"github.com/inkpressd/inkpress/pkg/pwdhash"
	"github.com/inkpressd/inkpress/pkg/rando"
	"github.com/inkpressd/inkpress/server/model"
	"github.com/julienschmidt/httprouter"
)

const sessionTokenChars = 40
const apiKeySecretChars = 40
const sharedLinkKeyBytes = 32

// maxLoginBodyBytes bounds all the small JSON bodies in this file.
const maxLoginBodyBytes = 10 * 1024

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	DeviceOS   string `json:"deviceOS"`
	DeviceType string `json:"deviceType"`
}

type loginResponse struct {
	BearerToken string     `json:"bearerToken"`
	UserID      int64      `json:"userId"`
	IsAdmin     bool       `json:"isAdmin"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HttpLogin verifies an email+password pair and mints a session. The
// plaintext token goes back to the client in a cookie and in the JSON
// body; the database only ever sees its hash.
func (a *AuthServer) HttpLogin(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	req := loginRequest{}
	www.ReadJSON(w, r, &req, maxLoginBodyBytes)

	user := model.User{}
	a.db.Where("email_normalized = ? AND deleted_at IS NULL", normalizeEmail(req.Email)).Find(&user)
	if user.ID == 0 || !pwdhash.VerifyHash(req.Password, user.Password) {
		// Same response for unknown email and wrong password.
		www.Panic(http.StatusUnauthorized, "Invalid email or password")
	}

	token := rando.StrongRandomAlphaNumChars(sessionTokenChars)
	now := a.timeNow()
	session := model.Session{
		Token:      pwdhash.HashSessionTokenBase64(token),
		UserID:     user.ID,
		DeviceOS:   req.DeviceOS,
		DeviceType: req.DeviceType,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	www.Check(a.db.Create(&session).Error)

	a.log.Infof("User %v logged in (session %v)", user.ID, session.ID)

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	www.SendJSON(w, &loginResponse{
		BearerToken: token,
		UserID:      user.ID,
		IsAdmin:     user.IsAdmin,
		ExpiresAt:   session.ExpiresAt,
	})
}

// HttpLogout deletes the current session and clears the cookie.
// API keys and shared links have nothing to log out of.
func (a *AuthServer) HttpLogout(w http.ResponseWriter, r *http.Request, params httprouter.Params, cred *Credentials) {
	if cred.Session != nil {
		www.Check(a.db.Where("id = ?", cred.Session.ID).Delete(&model.Session{}).Error)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	www.SendOK(w)
}

type pinRequest struct {
	Pin string `json:"pin"`
}

// HttpSetPin sets (or replaces) the caller's PIN code.
func (a *AuthServer) HttpSetPin(w http.ResponseWriter, r *http.Request, params httprouter.Params, cred *Credentials) {
	a.requireSession(cred)
	req := pinRequest{}
	www.ReadJSON(w, r, &req, maxLoginBodyBytes)
	if len(req.Pin) < 4 {
		www.PanicBadRequestf("PIN must be at least 4 digits")
	}
	www.Check(a.db.Model(&model.User{}).Where("id = ?", cred.User.ID).Update("pin_code", pwdhash.HashPassword(req.Pin)).Error)
	www.SendOK(w)
}

// HttpPinUnlock verifies the caller's PIN and elevates the current session
// until now+PinElevationWindow.
func (a *AuthServer) HttpPinUnlock(w http.ResponseWriter, r *http.Request, params httprouter.Params, cred *Credentials) {
	a.requireSession(cred)
	req := pinRequest{}
	www.ReadJSON(w, r, &req, maxLoginBodyBytes)
	if len(cred.User.PinCode) == 0 {
		www.PanicBadRequestf("No PIN is configured")
	}
	if !pwdhash.VerifyHash(req.Pin, cred.User.PinCode) {
		www.Panic(http.StatusUnauthorized, "Invalid PIN")
	}
	expires := a.timeNow().Add(PinElevationWindow)
	www.Check(a.db.Model(&model.Session{}).Where("id = ?", cred.Session.ID).Update("pin_expires_at", expires).Error)
	www.SendJSON(w, map[string]time.Time{"pinExpiresAt": expires})
}

// HttpPinLock drops elevation on every session of the caller's account,
// not just the current one. Locking is all-or-nothing.
func (a *AuthServer) HttpPinLock(w http.ResponseWriter, r *http.Request, params httprouter.Params, cred *Credentials) {
	a.requireSession(cred)
	www.Check(a.db.Model(&model.Session{}).Where("user_id = ?", cred.User.ID).Update("pin_expires_at", nil).Error)
	www.SendOK(w)
}

func (a *AuthServer) requireSession(cred *Credentials) {
	if cred.Session == nil {
		www.PanicForbiddenf("This operation requires a logged-in session")
	}
}

/////////////////////////////////////////////////////////////////////////////
// Users

type createUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	IsAdmin  bool   `json:"isAdmin"`
}

// CreateUser inserts a new account. Exposed via the admin-only HTTP route,
// and used directly by the first-run bootstrap.
func (a *AuthServer) CreateUser(email, name, password string, isAdmin bool) (int64, error) {
	user := model.User{
		Email:           strings.TrimSpace(email),
		EmailNormalized: normalizeEmail(email),
		Name:            name,
		Password:        pwdhash.HashPassword(password),
		IsAdmin:         isAdmin,
		CreatedAt:       a.timeNow(),
	}
	if err := a.db.Create(&user).Error; err != nil {
		return 0, err
	}
	return user.ID, nil
}

func (a *AuthServer) HttpCreateUser(w http.ResponseWriter, r *http.Request, params httprouter.Params, cred *Credentials) {
	req := createUserRequest{}
	www.ReadJSON(w, r, &req, maxLoginBodyBytes)
	if normalizeEmail(req.Email) == "" || req.Password == "" {
		www.PanicBadRequestf("Email and password are required")
	}
	id, err := a.CreateUser(req.Email, req.Name, req.Password, req.IsAdmin)
	www.Check(err)
	www.SendJSONID(w, id)
}

func (a *AuthServer) HttpListUsers(w http.ResponseWriter, r *http.Request, params httprouter.Params, cred *Credentials) {
	users := []model.User{}
	www.Check(a.db.Where("deleted_at IS NULL").Order("id").Find(&users).Error)
	www.SendJSON(w, users)
}

// HttpDeleteUser soft-deletes an account and hard-deletes its sessions.
// API keys and shared links stay in place; the deleted_at filter in the
// resolvers is what invalidates them.
func (a *AuthServer) HttpDeleteUser(w http.ResponseWriter, r *http.Request, params httprouter.Params, cred *Credentials) {
	userID := www.ParseID(params.ByName("id"))
	if userID == cred.User.ID {
		www.PanicBadRequestf("You cannot delete your own account")
	}
	www.Check(a.db.Model(&model.User{}).Where("id = ? AND deleted_at IS NULL", userID).Update("deleted_at", a.timeNow()).Error)
	www.Check(a.db.Where("user_id = ?", userID).Delete(&model.Session{}).Error)
	a.log.Infof("User %v deleted by %v", userID, cred.User.ID)
	www.SendOK(w)
}

/////////////////////////////////////////////////////////////////////////////
// Sessions

func (a *AuthServer) HttpListSessions(w http.ResponseWriter, r *http.Request, params httprouter.Params, cred *Credentials) {
	sessions := []model.Session{}
	www.Check(a.db.Where("user_id = ?", cred.User.ID).Order("updated_at DESC").Find(&sessions).Error)
	www.SendJSON(w, sessions)
}

func (a *AuthServer) HttpDeleteSession(w http.ResponseWriter, r *http.Request, params httprouter.Params, cred *Credentials) {
	sessionID := www.ParseID(params.ByName("id"))
	www.Check(a.db.Where("id = ? AND user_id = ?", sessionID, cred.User.ID).Delete(&model.Session{}).Error)
	www.SendOK(w)
}

/////////////////////////////////////////////////////////////////////////////
// API keys

type createApiKeyRequest struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

type createApiKeyResponse struct {
	ID int64 `json:"id"`
	// Key is the plaintext secret. This response is the only time it exists
	// outside the client's hands.
	Key         string `json:"key"`
	Permissions string `json:"permissions"`
}

func parsePermissionList(names []string) []Permission {
	perms := []Permission{}
	for _, name := range names {
		p := Permission(name)
		if !IsValidPermission(p) {
			www.PanicBadRequestf("Unknown permission: %v", name)
		}
		perms = append(perms, p)
	}
	return perms
}

func (a *AuthServer) HttpCreateApiKey(w http.ResponseWriter, r *http.Request, params httprouter.Params, cred *Credentials) {
	req := createApiKeyRequest{}
	www.ReadJSON(w, r, &req, maxLoginBodyBytes)
	if req.Name == "" {
		www.PanicBadRequestf("API key name is required")
	}
	perms := parsePermissionList(req.Permissions)
	if len(perms) == 0 {
		perms = []Permission{PermAll}
	}

	secret := rando.StrongRandomAlphaNumChars(apiKeySecretChars)
	now := a.timeNow()
	key := model.ApiKey{
		Name:        req.Name,
		Key:         pwdhash.HashSessionTokenBase64(secret),
		UserID:      cred.User.ID,
		Permissions: JoinPermissions(perms),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	www.Check(a.db.Create(&key).Error)
	a.log.Infof("API key %v (%v) created by user %v", key.ID, key.Name, cred.User.ID)
	www.SendJSON(w, &createApiKeyResponse{
		ID:          key.ID,
		Key:         secret,
		Permissions: key.Permissions,
	})
}

func (a *AuthServer) HttpListApiKeys(w http.ResponseWriter, r *http.Request, params httprouter.Params, cred *Credentials) {
	keys := []model.ApiKey{}
	www.Check(a.db.Where("user_id = ?", cred.User.ID).Order("id").Find(&keys).Error)
	www.SendJSON(w, keys)
}

// HttpUpdateApiKey renames a key or replaces its permission set. The secret
// itself is immutable; rotation means delete and recreate.
func (a *AuthServer) HttpUpdateApiKey(w http.ResponseWriter, r *http.Request, params httprouter.Params, cred *Credentials) {
	keyID := www.ParseID(params.ByName("id"))
	req := createApiKeyRequest{}
	www.ReadJSON(w, r, &req, maxLoginBodyBytes)

	key := model.ApiKey{}
	a.db.Where("id = ? AND user_id = ?", keyID, cred.User.ID).Find(&key)
	if key.ID == 0 {
		www.PanicNotFound()
	}
	if req.Name != "" {
		key.Name = req.Name
	}
	if req.Permissions != nil {
		key.Permissions = JoinPermissions(parsePermissionList(req.Permissions))
	}
	key.UpdatedAt = a.timeNow()
	www.Check(a.db.Save(&key).Error)
	www.SendOK(w)
}

func (a *AuthServer) HttpDeleteApiKey(w http.ResponseWriter, r *http.Request, params httprouter.Params, cred *Credentials) {
	keyID := www.ParseID(params.ByName("id"))
	www.Check(a.db.Where("id = ? AND user_id = ?", keyID, cred.User.ID).Delete(&model.ApiKey{}).Error)
	www.SendOK(w)
}

/////////////////////////////////////////////////////////////////////////////
// Shared links

type createSharedLinkRequest struct {
	PostID    int64      `json:"postId"`
	Slug      string     `json:"slug"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

type createSharedLinkResponse struct {
	ID int64 `json:"id"`
	// Key is the base64url form clients put on the wire.
	Key  string `json:"key"`
	Slug string `json:"slug,omitempty"`
}

// HttpCreateSharedLink mints a share key for a single post. The key's wire
// form is base64url of 32 random bytes; we store the plain base64 of the
// same bytes, which is also what the resolver computes.
func (a *AuthServer) HttpCreateSharedLink(w http.ResponseWriter, r *http.Request, params httprouter.Params, cred *Credentials) {
	req := createSharedLinkRequest{}
	www.ReadJSON(w, r, &req, maxLoginBodyBytes)
	if req.PostID == 0 {
		www.PanicBadRequestf("postId is required")
	}
	post := model.Post{}
	a.db.Where("id = ?", req.PostID).Find(&post)
	if post.ID == 0 {
		www.PanicBadRequestf("No such post: %v", req.PostID)
	}

	raw := rando.StrongRandomBytes(sharedLinkKeyBytes)
	link := model.SharedLink{
		Key:       encodeSharedLinkKey(raw),
		Slug:      req.Slug,
		UserID:    cred.User.ID,
		PostID:    req.PostID,
		ExpiresAt: req.ExpiresAt,
		CreatedAt: a.timeNow(),
	}
	www.Check(a.db.Create(&link).Error)
	a.log.Infof("Shared link %v created for post %v by user %v", link.ID, req.PostID, cred.User.ID)
	www.SendJSON(w, &createSharedLinkResponse{
		ID:   link.ID,
		Key:  wireSharedLinkKey(raw),
		Slug: link.Slug,
	})
}

func (a *AuthServer) HttpListSharedLinks(w http.ResponseWriter, r *http.Request, params httprouter.Params, cred *Credentials) {
	links := []model.SharedLink{}
	www.Check(a.db.Where("user_id = ?", cred.User.ID).Order("id").Find(&links).Error)
	www.SendJSON(w, links)
}

func (a *AuthServer) HttpDeleteSharedLink(w http.ResponseWriter, r *http.Request, params httprouter.Params, cred *Credentials) {
	linkID := www.ParseID(params.ByName("id"))
	www.Check(a.db.Where("id = ? AND user_id = ?", linkID, cred.User.ID).Delete(&model.SharedLink{}).Error)
	www.SendOK(w)
}
