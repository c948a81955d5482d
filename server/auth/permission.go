package auth

import "strings"

// Permission is a named action that an API key can be scoped to.
// Sessions and shared links don't carry permission sets: a session grants
// everything, and a shared link grants only its shared-link routes.
type Permission string

const (
	// PermAll is the wildcard. It is also the default requirement of a
	// protected route that doesn't name a permission.
	PermAll Permission = "all"

	PermPostRead   Permission = "post.read"
	PermPostWrite  Permission = "post.write"
	PermPostDelete Permission = "post.delete"

	PermImageUpload Permission = "image.upload"

	PermApiKeyRead  Permission = "apiKey.read"
	PermApiKeyWrite Permission = "apiKey.write"

	PermSharedLinkRead  Permission = "sharedLink.read"
	PermSharedLinkWrite Permission = "sharedLink.write"

	PermSessionRead   Permission = "session.read"
	PermSessionDelete Permission = "session.delete"

	// PermNone marks a route that API keys may call regardless of scope.
	// This is an explicit opt-out; the zero value defaults to PermAll.
	PermNone Permission = "none"
)

var allPermissions = map[Permission]bool{
	PermAll:             true,
	PermPostRead:        true,
	PermPostWrite:       true,
	PermPostDelete:      true,
	PermImageUpload:     true,
	PermApiKeyRead:      true,
	PermApiKeyWrite:     true,
	PermSharedLinkRead:  true,
	PermSharedLinkWrite: true,
	PermSessionRead:     true,
	PermSessionDelete:   true,
}

// IsValidPermission returns true if p names a grantable permission.
// PermNone is a route marker, not a grant.
func IsValidPermission(p Permission) bool {
	return p != PermNone && allPermissions[p]
}

// IsGranted returns true if the granted set covers the requested
// permission. PermAll in the granted set covers everything.
func IsGranted(requested Permission, granted []Permission) bool {
	for _, g := range granted {
		if g == PermAll || g == requested {
			return true
		}
	}
	return false
}

// ParsePermissions splits a comma-joined permission list, as stored on an
// API key row. Unknown names are dropped rather than granted.
func ParsePermissions(s string) []Permission {
	perms := []Permission{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if IsValidPermission(Permission(p)) {
			perms = append(perms, Permission(p))
		}
	}
	return perms
}

// JoinPermissions is the inverse of ParsePermissions.
func JoinPermissions(perms []Permission) string {
	parts := make([]string, 0, len(perms))
	for _, p := range perms {
		parts = append(parts, string(p))
	}
	return strings.Join(parts, ",")
}
