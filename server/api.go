package server

import (
	"net/http"
	"time"

	"github.com/cyclopcam/www"
	"github.com/go-chi/httprate"
	"github.com/inkpressd/inkpress/server/auth"
	"github.com/julienschmidt/httprouter"
)

// authenticatedHandler is an HTTP handler that runs after Authenticate has
// produced a set of credentials.
type authenticatedHandler func(w http.ResponseWriter, r *http.Request, params httprouter.Params, cred *auth.Credentials)

func (s *Server) setupRoutes() http.Handler {
	router := httprouter.New()

	// protected wraps a handler in credential resolution and route policy.
	// Resolution failures become 401, policy failures 403.
	protected := func(method, route string, handler authenticatedHandler, info auth.RouteInfo) {
		info.URI = route
		www.Handle(s.Log, router, method, route, func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
			cred, err := s.auth.Authenticate(r, info)
			if err != nil {
				if _, isForbidden := err.(*auth.ForbiddenError); isForbidden {
					www.Panic(http.StatusForbidden, err.Error())
				}
				www.Panic(http.StatusUnauthorized, err.Error())
			}
			handler(w, r, params, cred)
		})
	}

	// ratelimited guards the credential-guessing surfaces (login, PIN
	// unlock) with a per-IP limit.
	ratelimited := func(method, route string, handle httprouter.Handle, requestLimit int, windowLength time.Duration) {
		limited := httprate.Limit(requestLimit, windowLength, httprate.WithKeyFuncs(httprate.KeyByIP))
		www.Handle(s.Log, router, method, route, func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
			limited(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handle(w, r, params)
			})).ServeHTTP(w, r)
		})
	}

	ratelimited("POST", "/api/auth/login", s.auth.HttpLogin, 5, time.Minute)

	protected("POST", "/api/auth/logout", s.auth.HttpLogout, auth.RouteInfo{Permission: auth.PermNone})
	protected("POST", "/api/auth/pin", s.auth.HttpSetPin, auth.RouteInfo{Permission: auth.PermNone})
	protected("POST", "/api/auth/pin/lock", s.auth.HttpPinLock, auth.RouteInfo{Permission: auth.PermNone})

	// PIN unlock is both rate limited and session protected, so it gets
	// the two wrappers stacked by hand.
	pinLimit := httprate.Limit(5, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))
	www.Handle(s.Log, router, "POST", "/api/auth/pin/unlock", func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		pinLimit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cred, err := s.auth.Authenticate(r, auth.RouteInfo{URI: "/api/auth/pin/unlock", Permission: auth.PermNone})
			if err != nil {
				www.Panic(http.StatusUnauthorized, err.Error())
			}
			s.auth.HttpPinUnlock(w, r, params, cred)
		})).ServeHTTP(w, r)
	})

	protected("GET", "/api/auth/sessions", s.auth.HttpListSessions, auth.RouteInfo{Permission: auth.PermSessionRead})
	protected("DELETE", "/api/auth/session/:id", s.auth.HttpDeleteSession, auth.RouteInfo{Permission: auth.PermSessionDelete})

	protected("POST", "/api/auth/users", s.auth.HttpCreateUser, auth.RouteInfo{AdminRoute: true})
	protected("GET", "/api/auth/users", s.auth.HttpListUsers, auth.RouteInfo{AdminRoute: true})
	protected("DELETE", "/api/auth/user/:id", s.auth.HttpDeleteUser, auth.RouteInfo{AdminRoute: true})

	protected("POST", "/api/auth/apikeys", s.auth.HttpCreateApiKey, auth.RouteInfo{Permission: auth.PermApiKeyWrite})
	protected("GET", "/api/auth/apikeys", s.auth.HttpListApiKeys, auth.RouteInfo{Permission: auth.PermApiKeyRead})
	protected("PUT", "/api/auth/apikey/:id", s.auth.HttpUpdateApiKey, auth.RouteInfo{Permission: auth.PermApiKeyWrite})
	protected("DELETE", "/api/auth/apikey/:id", s.auth.HttpDeleteApiKey, auth.RouteInfo{Permission: auth.PermApiKeyWrite})

	protected("POST", "/api/auth/sharedlinks", s.auth.HttpCreateSharedLink, auth.RouteInfo{Permission: auth.PermSharedLinkWrite})
	protected("GET", "/api/auth/sharedlinks", s.auth.HttpListSharedLinks, auth.RouteInfo{Permission: auth.PermSharedLinkRead})
	protected("DELETE", "/api/auth/sharedlink/:id", s.auth.HttpDeleteSharedLink, auth.RouteInfo{Permission: auth.PermSharedLinkWrite})

	// The /api/posts vs /api/post/:id split keeps httprouter's static and
	// parameterized subtrees from colliding.
	protected("GET", "/api/posts", s.posts.HttpListPosts, auth.RouteInfo{Permission: auth.PermPostRead})
	protected("GET", "/api/posts/search", s.posts.HttpSearchPosts, auth.RouteInfo{Permission: auth.PermPostRead})
	protected("GET", "/api/posts/slug/:slug", s.posts.HttpGetPostBySlug, auth.RouteInfo{Permission: auth.PermPostRead})
	protected("POST", "/api/posts", s.posts.HttpCreatePost, auth.RouteInfo{Permission: auth.PermPostWrite})
	protected("GET", "/api/post/:id", s.posts.HttpGetPost, auth.RouteInfo{Permission: auth.PermPostRead})
	protected("PUT", "/api/post/:id", s.posts.HttpUpdatePost, auth.RouteInfo{Permission: auth.PermPostWrite})
	protected("DELETE", "/api/post/:id", s.posts.HttpDeletePost, auth.RouteInfo{Permission: auth.PermPostDelete})

	protected("GET", "/api/shared/post", s.posts.HttpGetSharedPost, auth.RouteInfo{SharedLinkRoute: true, Permission: auth.PermNone})

	protected("POST", "/api/images", s.images.HttpUploadImage, auth.RouteInfo{Permission: auth.PermImageUpload})
	protected("GET", "/api/images", s.images.HttpListImages, auth.RouteInfo{Permission: auth.PermPostRead})
	protected("GET", "/api/image/:id", s.images.HttpGetImage, auth.RouteInfo{Permission: auth.PermPostRead})
	protected("DELETE", "/api/image/:id", s.images.HttpDeleteImage, auth.RouteInfo{AdminRoute: true})

	www.Handle(s.Log, router, "GET", "/api/ping", func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		www.SendOK(w)
	})

	return router
}
