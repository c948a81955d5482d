package auth

import (
	"net/http"
	"strings"
)

// Credential names on the wire. Header lookups are case-insensitive
// (http.Header canonicalizes); query parameters are exact.
const (
	HeaderShareKey     = "x-inkpress-share-key"
	HeaderShareSlug    = "x-inkpress-share-slug"
	HeaderUserToken    = "x-inkpress-user-token"
	HeaderSessionToken = "x-inkpress-session-token"
	HeaderApiKey       = "x-api-key"

	QueryShareKey   = "key"
	QueryShareSlug  = "slug"
	QuerySessionKey = "sessionKey"
	QueryApiKey     = "apiKey"

	// SessionCookie is the cookie set by Login.
	SessionCookie = "inkpress_access_token"
)

type credentialKind int

const (
	credentialNone credentialKind = iota
	credentialShareKey
	credentialShareSlug
	credentialSessionToken
	credentialApiKey
)

type credential struct {
	kind  credentialKind
	value string
}

// extractCredential picks the one credential this request authenticates
// with. The priority order is part of the contract: a share key beats a
// share slug beats a session token beats an API key, and within the
// session-token category, custom headers beat the query parameter beat
// the Authorization header beat the cookie.
func extractCredential(r *http.Request) credential {
	query := r.URL.Query()

	if v := firstOf(r.Header.Get(HeaderShareKey), query.Get(QueryShareKey)); v != "" {
		return credential{credentialShareKey, v}
	}
	if v := firstOf(r.Header.Get(HeaderShareSlug), query.Get(QueryShareSlug)); v != "" {
		return credential{credentialShareSlug, v}
	}
	if v := firstOf(
		r.Header.Get(HeaderUserToken),
		r.Header.Get(HeaderSessionToken),
		query.Get(QuerySessionKey),
		bearerToken(r),
		cookieToken(r)); v != "" {
		return credential{credentialSessionToken, v}
	}
	if v := firstOf(r.Header.Get(HeaderApiKey), query.Get(QueryApiKey)); v != "" {
		return credential{credentialApiKey, v}
	}
	return credential{credentialNone, ""}
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func bearerToken(r *http.Request) string {
	kind, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(kind, "Bearer") {
		return token
	}
	return ""
}

func cookieToken(r *http.Request) string {
	cookie, _ := r.Cookie(SessionCookie)
	if cookie == nil {
		return ""
	}
	return cookie.Value
}
