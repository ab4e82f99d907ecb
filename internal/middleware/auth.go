package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"notes/internal/auth"
	"notes/internal/errs"
	"notes/internal/models"
)

// UserLookup resolves a session's user id to a live user.
type UserLookup interface {
	GetUserByID(ctx context.Context, id int) (*models.User, error)
}

// Auth resolves the session cookie to a user and adds it to the request
// context. Requests without a valid session continue as anonymous, as do
// sessions from before the user's last sign out.
func Auth(sessions *auth.Sessions, users UserLookup, logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessions.FromRequest(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		user, err := users.GetUserByID(r.Context(), sess.UserID)
		if err != nil {
			if !errors.Is(err, errs.ErrNotFound) {
				logger.Error("session user lookup failed", "user_id", sess.UserID, "error", err)
			}
			next.ServeHTTP(w, r)
			return
		}
		if user.SessionVersion != sess.Version {
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
	})
}

// RequireAuth sends anonymous requests to the login page, remembering
// where they were going.
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.UserFromContext(r.Context()); !ok {
			target := "/login?next=" + url.QueryEscape(r.URL.RequestURI())
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

// AnonymousOnly sends signed in users away from the register and login
// pages.
func AnonymousOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.UserFromContext(r.Context()); ok {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

// SafeNext returns next when it is a path on this site and "/" otherwise.
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") ||
		strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return next
}
