package latch

import (
	"context"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-router"
)

// DefaultContextKey is the router locals key the session middleware uses
const DefaultContextKey = "user"

var sessionCtxKey = &contextKey{"session"}

type contextKey struct {
	name string
}

// Subject is an authenticated principal
type Subject interface {
	GetUserID() string
}

// WithSessionContext sets the session claims in the given context
func WithSessionContext(ctx context.Context, claims *SessionClaims) context.Context {
	return context.WithValue(ctx, sessionCtxKey, claims)
}

// SessionFromContext finds the session claims in the context
func SessionFromContext(ctx context.Context) (*SessionClaims, bool) {
	if ctx == nil {
		return nil, false
	}
	claims, ok := ctx.Value(sessionCtxKey).(*SessionClaims)
	return claims, ok && claims != nil
}

// GetRouterSubject extracts the authenticated subject from the router
// context locals. It understands Subject values, parsed *jwt.Token
// values and bare user id strings.
func GetRouterSubject(ctx router.Context, key string) (Subject, bool) {
	if key == "" {
		key = DefaultContextKey
	}

	switch raw := ctx.Locals(key).(type) {
	case nil:
		return nil, false
	case Subject:
		if raw == nil || strings.TrimSpace(raw.GetUserID()) == "" {
			return nil, false
		}
		return raw, true
	case *jwt.Token:
		return subjectFromToken(raw)
	case string:
		if strings.TrimSpace(raw) == "" {
			return nil, false
		}
		return userIDSubject(raw), true
	}

	return nil, false
}

func subjectFromToken(token *jwt.Token) (Subject, bool) {
	if token == nil || !token.Valid {
		return nil, false
	}

	switch claims := token.Claims.(type) {
	case *SessionClaims:
		if claims.Subject == "" {
			return nil, false
		}
		return claims, true
	case jwt.MapClaims:
		sub, err := claims.GetSubject()
		if err != nil || sub == "" {
			return nil, false
		}
		return userIDSubject(sub), true
	}

	return nil, false
}

type userIDSubject string

func (s userIDSubject) GetUserID() string {
	return string(s)
}
