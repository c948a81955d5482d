package auth

import (
	"errors"
	"fmt"
)

// Resolution failures. These map to 401 at the route boundary.
// The message never includes the credential value itself.
var (
	ErrAuthenticationRequired = errors.New("Authentication required")
	ErrInvalidToken           = errors.New("Invalid user token")
	ErrInvalidApiKey          = errors.New("Invalid API key")
	ErrInvalidShareKey        = errors.New("Invalid share key")
	ErrInvalidShareSlug       = errors.New("Invalid share slug")
)

// ForbiddenError means the credential was valid but policy denies the
// route. Maps to 403. Reason is for logs; callers decide how much of it
// to surface to the client.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("Forbidden: %v", e.Reason)
}

func forbiddenf(format string, args ...interface{}) *ForbiddenError {
	return &ForbiddenError{Reason: fmt.Sprintf(format, args...)}
}
