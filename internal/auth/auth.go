package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"notes/internal/models"
)

// Context key for the authenticated user
type contextKey string

const userKey contextKey = "user"

var ErrInvalidSession = errors.New("invalid session")

// Sessions issues and verifies the signed tokens carried in the session
// cookie. A token names a user id and the user's session version; bumping
// the version in the store invalidates every token issued before.
type Sessions struct {
	secret      []byte
	ttl         time.Duration
	rememberTTL time.Duration
	secure      bool
	now         func() time.Time
}

type SessionConfig struct {
	Secret      string
	TTL         time.Duration
	RememberTTL time.Duration
	Secure      bool // set the Secure cookie flag (HTTPS deployments)
}

// Session is what a verified token says about its holder.
type Session struct {
	UserID  int
	Version int
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Version int `json:"ver"`
}

func NewSessions(cfg SessionConfig) *Sessions {
	return &Sessions{
		secret:      []byte(cfg.Secret),
		ttl:         cfg.TTL,
		rememberTTL: cfg.RememberTTL,
		secure:      cfg.Secure,
		now:         time.Now,
	}
}

// Issue signs a token for u at its current session version. Remembered
// sessions live for the longer remember TTL.
func (s *Sessions) Issue(u *models.User, remember bool) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	if remember {
		expires = now.Add(s.rememberTTL)
	}
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(u.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Version: u.SessionVersion,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session: %w", err)
	}
	return token, expires, nil
}

// Parse validates the signature and expiry of token. Whether the version
// is still current is up to the caller.
func (s *Sessions) Parse(token string) (Session, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	userID, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return Session{}, fmt.Errorf("%w: bad subject", ErrInvalidSession)
	}
	return Session{UserID: userID, Version: claims.Version}, nil
}

// WithUser returns a copy of ctx carrying the authenticated user.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext retrieves the authenticated user, if any.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey).(*models.User)
	return u, ok && u != nil
}
