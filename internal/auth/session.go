package auth

import (
	"crypto/rand"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	sessionName = "forum-session"
	userIDKey   = "user_id"
)

// Sessions stores the logged-in user id in a signed cookie
type Sessions struct {
	store *sessions.CookieStore
}

// NewSessions creates a cookie session store. An empty secret gets a random
// key, which means sessions do not survive a restart.
func NewSessions(secret string, secure bool) (*Sessions, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate session key: %w", err)
		}
	}
	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   14 * 24 * 3600,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Sessions{store: store}, nil
}

// Login binds the session to userID
func (s *Sessions) Login(w http.ResponseWriter, r *http.Request, userID int64) error {
	session, _ := s.store.Get(r, sessionName)
	session.Values[userIDKey] = userID
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Logout clears the session cookie
func (s *Sessions) Logout(w http.ResponseWriter, r *http.Request) error {
	session, _ := s.store.Get(r, sessionName)
	delete(session.Values, userIDKey)
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// UserID returns the id bound to the request's session, if any.
// A tampered or expired cookie reads as anonymous.
func (s *Sessions) UserID(r *http.Request) (int64, bool) {
	session, err := s.store.Get(r, sessionName)
	if err != nil {
		return 0, false
	}
	id, ok := session.Values[userIDKey].(int64)
	return id, ok && id > 0
}
