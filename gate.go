package latch

import (
	"net/http"
	"net/url"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// DefaultLoginURL is where anonymous requests are redirected
const DefaultLoginURL = "/login"

// DefaultNextParam carries the original destination on login redirects
const DefaultNextParam = "next"

// GateConfig configures the access gate
type GateConfig struct {
	LoginURL   string
	NextParam  string
	ContextKey string
	Logger     Logger
}

// Gate admits requests based on the pairing state of the session user.
// It can be embedded in handler types or used through RequirePaired and
// RequireUnpaired.
type Gate struct {
	records    PairingRecords
	loginURL   string
	nextParam  string
	contextKey string
	logger     Logger
}

// NewGate returns a gate backed by the pairing store
func NewGate(records PairingRecords, cfg ...GateConfig) *Gate {
	var c GateConfig
	if len(cfg) > 0 {
		c = cfg[0]
	}
	if c.LoginURL == "" {
		c.LoginURL = DefaultLoginURL
	}
	if c.NextParam == "" {
		c.NextParam = DefaultNextParam
	}
	if c.ContextKey == "" {
		c.ContextKey = DefaultContextKey
	}
	_, logger := ResolveLogger("latch.gate", nil, c.Logger)

	return &Gate{
		records:    records,
		loginURL:   c.LoginURL,
		nextParam:  c.NextParam,
		contextKey: c.ContextKey,
		logger:     logger,
	}
}

// Decide resolves the admission for the current request
func (g *Gate) Decide(ctx router.Context, requirement PairingRequirement) (Admission, error) {
	subject, ok := GetRouterSubject(ctx, g.contextKey)
	if !ok {
		return AdmissionPolicy(false, false, requirement), nil
	}

	paired, err := g.records.ExistsForUser(ctx.Context(), subject.GetUserID())
	if err != nil {
		return AdmitForbid, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve pairing state")
	}

	return AdmissionPolicy(true, paired, requirement), nil
}

// Dispatch runs next when the request is admitted
func (g *Gate) Dispatch(ctx router.Context, requirement PairingRequirement, next router.HandlerFunc) error {
	admission, err := g.Decide(ctx, requirement)
	if err != nil {
		g.logger.Error("access gate failed", "error", err)
		return err
	}

	switch admission {
	case AdmitAllow:
		return next(ctx)
	case AdmitRedirect:
		return ctx.Redirect(g.LoginRedirectURL(ctx.OriginalURL()), http.StatusFound)
	}

	g.logger.Debug("access gate refused request", "path", ctx.OriginalURL(), "requires", requirement.String())
	return ErrLatchForbidden
}

// LoginRedirectURL returns the login URL carrying the original destination
func (g *Gate) LoginRedirectURL(destination string) string {
	if destination == "" {
		return g.loginURL
	}
	sep := "?"
	if strings.Contains(g.loginURL, "?") {
		sep = "&"
	}
	return g.loginURL + sep + url.Values{g.nextParam: {destination}}.Encode()
}

// RequirePaired only admits authenticated users with a pairing record
func RequirePaired(g *Gate) router.MiddlewareFunc {
	return g.middleware(RequirePairedState)
}

// RequireUnpaired only admits authenticated users without a pairing record
func RequireUnpaired(g *Gate) router.MiddlewareFunc {
	return g.middleware(RequireUnpairedState)
}

// RequireAuthenticated only checks for a session, pairing state is ignored
func RequireAuthenticated(g *Gate) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if _, ok := GetRouterSubject(ctx, g.contextKey); !ok {
				return ctx.Redirect(g.LoginRedirectURL(ctx.OriginalURL()), http.StatusFound)
			}
			return next(ctx)
		}
	}
}

// ContextKey returns the locals key holding the session subject
func (g *Gate) ContextKey() string {
	return g.contextKey
}

func (g *Gate) middleware(requirement PairingRequirement) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			return g.Dispatch(ctx, requirement, next)
		}
	}
}

// Handler is anything that can serve a routed request
type Handler interface {
	Handle(ctx router.Context) error
}

// GatedHandler composes a handler with a pairing requirement
type GatedHandler struct {
	*Gate
	Requirement PairingRequirement
	Handler     Handler
}

// Handle applies the gate before delegating
func (h GatedHandler) Handle(ctx router.Context) error {
	return h.Dispatch(ctx, h.Requirement, h.Handler.Handle)
}

// HandlerFunc returns the gated handler as a route handler
func (h GatedHandler) HandlerFunc() router.HandlerFunc {
	return h.Handle
}
