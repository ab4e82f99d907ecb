package auth

import (
	"net/http"
	"time"

	"notes/internal/models"
)

const CookieName = "session_token"

// SetCookie starts a session for u. Without remember the cookie is
// dropped when the browser closes.
func (s *Sessions) SetCookie(w http.ResponseWriter, u *models.User, remember bool) error {
	token, expires, err := s.Issue(u, remember)
	if err != nil {
		return err
	}
	c := &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if remember {
		c.Expires = expires
		c.MaxAge = int(time.Until(expires).Seconds())
	}
	http.SetCookie(w, c)
	return nil
}

// ClearCookie drops the cookie on the client. The token itself stays valid
// until the user's session version changes.
func (s *Sessions) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		MaxAge:   -1,
	})
}

// FromRequest verifies the request's session cookie.
func (s *Sessions) FromRequest(r *http.Request) (Session, error) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return Session{}, ErrInvalidSession
	}
	return s.Parse(c.Value)
}
