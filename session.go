package latch

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-router"
)

// DefaultSessionCookie is the cookie holding the session token
const DefaultSessionCookie = "latch_session"

// SessionClaims are the claims carried by session tokens
type SessionClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
}

var _ Subject = (*SessionClaims)(nil)

func (c *SessionClaims) GetUserID() string {
	if c == nil {
		return ""
	}
	return c.Subject
}

// SessionConfig configures the session middleware
type SessionConfig struct {
	Tokens     *TokenService
	CookieName string
	ContextKey string
	Logger     Logger
}

// NewSessionMiddleware resolves the session cookie into claims stored in
// the router locals. Requests without a valid session proceed anonymous;
// the access gate decides what they may reach.
func NewSessionMiddleware(cfg SessionConfig) router.MiddlewareFunc {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultSessionCookie
	}
	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}
	_, logger := ResolveLogger("latch.session", nil, cfg.Logger)

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			raw := ctx.Cookies(cfg.CookieName)
			if raw == "" || cfg.Tokens == nil {
				return next(ctx)
			}

			claims, err := cfg.Tokens.Validate(raw)
			if err != nil {
				logger.Debug("ignoring invalid session", "error", err)
				ClearSessionCookie(ctx, cfg.CookieName)
				return next(ctx)
			}

			ctx.Locals(cfg.ContextKey, claims)
			ctx.SetContext(WithSessionContext(ctx.Context(), claims))
			return next(ctx)
		}
	}
}

// SetSessionCookie stores the session token
func SetSessionCookie(ctx router.Context, name, token string, ttl time.Duration) {
	if name == "" {
		name = DefaultSessionCookie
	}
	ctx.Cookie(&router.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		SameSite: "Lax",
		Expires:  time.Now().Add(ttl),
	})
}

// ClearSessionCookie expires the session cookie
func ClearSessionCookie(ctx router.Context, name string) {
	if name == "" {
		name = DefaultSessionCookie
	}
	ctx.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		Expires:  time.Now().Add(-time.Hour),
	})
}
