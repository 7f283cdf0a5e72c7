package auth

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionStore persists the session token between runs.
type SessionStore struct {
	path string
}

// NewSessionStore returns a store backed by the given file path.
func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path}
}

// Load returns the persisted token, or "" when none is stored.
func (s *SessionStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", &Error{Message: "failed to read session file", Cause: err}
	}
	return strings.TrimSpace(string(data)), nil
}

// Save writes the token, creating the parent directory if needed.
func (s *SessionStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return &Error{Message: "failed to create settings directory", Cause: err}
	}
	if err := os.WriteFile(s.path, []byte(token+"\n"), 0o600); err != nil {
		return &Error{Message: "failed to write session file", Cause: err}
	}
	return nil
}

// Clear removes the persisted token. A missing file is not an error.
func (s *SessionStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return &Error{Message: "failed to delete session file", Cause: err}
	}
	return nil
}

// SessionHeaders returns the HTTP headers that authenticate REST
// requests made with a web session token, such as document downloads.
func SessionHeaders(token string) map[string]string {
	return map[string]string{
		"Cookie": sessionCookieName + "=" + token,
	}
}

// TokenValid reports whether the session token is still usable at the
// given instant. The token is issued by the server, so the signature is
// not checked here; only the embedded expiry matters. Tokens without an
// expiry claim are treated as expired.
func TokenValid(token string, now time.Time) bool {
	if token == "" {
		return false
	}
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.After(now)
}
