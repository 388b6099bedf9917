package latch

import (
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// MessageInvalidLogin is shown for every rejected login. Latch denials
// are not distinguished from bad credentials.
const MessageInvalidLogin = "Please enter a correct username and password."

// RouteAuthConfig configures the login and logout handlers
type RouteAuthConfig struct {
	CookieName      string
	SessionTTL      time.Duration
	LoginView       string
	ErrorView       string
	DefaultRedirect string
	LoginURL        string
	NextParam       string
	Logger          Logger
}

// RouteAuthenticator serves the host login form on top of an Auther and
// stores the issued session token in a cookie.
type RouteAuthenticator struct {
	auther *Auther
	cfg    RouteAuthConfig
	Logger Logger
	// ErrorHandler renders errors escaping the latch handlers
	ErrorHandler func(c router.Context, err error) error
}

// NewRouteAuthenticator creates the login handlers
func NewRouteAuthenticator(auther *Auther, cfg RouteAuthConfig) *RouteAuthenticator {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultSessionCookie
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}
	if cfg.LoginView == "" {
		cfg.LoginView = "login"
	}
	if cfg.ErrorView == "" {
		cfg.ErrorView = "errors/error"
	}
	if cfg.DefaultRedirect == "" {
		cfg.DefaultRedirect = "/"
	}
	if cfg.LoginURL == "" {
		cfg.LoginURL = DefaultLoginURL
	}
	if cfg.NextParam == "" {
		cfg.NextParam = DefaultNextParam
	}

	_, logger := ResolveLogger("latch.http", nil, cfg.Logger)
	a := &RouteAuthenticator{
		auther: auther,
		cfg:    cfg,
		Logger: logger,
	}
	a.ErrorHandler = a.defaultErrHandler
	return a
}

// LoginShow renders the login form
func (a *RouteAuthenticator) LoginShow(ctx router.Context) error {
	return ctx.Render(a.cfg.LoginView, router.ViewContext{
		"errors": map[string]string{},
		"next":   SafeRedirect(ctx.Query(a.cfg.NextParam), ""),
	})
}

// LoginPost verifies the submitted credentials. Any rejection, including
// an engaged latch, re-renders the form with the same message.
func (a *RouteAuthenticator) LoginPost(ctx router.Context) error {
	identifier := strings.TrimSpace(ctx.FormValue("identifier"))
	password := ctx.FormValue("password")
	next := SafeRedirect(ctx.FormValue(a.cfg.NextParam), a.cfg.DefaultRedirect)

	token, err := a.auther.Login(ctx.Context(), identifier, password)
	if err != nil {
		if !isLoginRejection(err) {
			return err
		}
		a.Logger.Info("login rejected", "identifier", identifier, "text_code", textCode(err))
		return ctx.Render(a.cfg.LoginView, router.ViewContext{
			"errors":     map[string]string{"__all__": MessageInvalidLogin},
			"identifier": identifier,
			"next":       next,
		})
	}

	SetSessionCookie(ctx, a.cfg.CookieName, token, a.cfg.SessionTTL)
	return ctx.Redirect(next, router.StatusSeeOther)
}

// Logout clears the session cookie and sends the user to the login page
func (a *RouteAuthenticator) Logout(ctx router.Context) error {
	ClearSessionCookie(ctx, a.cfg.CookieName)
	return ctx.Redirect(a.cfg.LoginURL, router.StatusSeeOther)
}

// ErrorMiddleware hands errors returned by downstream handlers to ErrorHandler
func (a *RouteAuthenticator) ErrorMiddleware() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			err := next(ctx)
			if err == nil {
				return nil
			}
			return a.ErrorHandler(ctx, err)
		}
	}
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	code := richErr.Code
	if code == 0 {
		code = http.StatusInternalServerError
	}

	a.Logger.Info(
		"handler error",
		"error", richErr.Message,
		"category", richErr.Category,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	message := richErr.Message
	if code >= http.StatusInternalServerError {
		message = "An unexpected server error occurred"
	}

	return c.Status(code).Render(a.cfg.ErrorView, router.ViewContext{
		"code":    code,
		"message": message,
	})
}

// SafeRedirect returns target when it is a local path, def otherwise.
// Absolute and protocol relative URLs are rejected.
func SafeRedirect(target, def string) string {
	target = strings.TrimSpace(target)
	if target == "" || !strings.HasPrefix(target, "/") {
		return def
	}
	if strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return def
	}
	return target
}

func isLoginRejection(err error) bool {
	for _, code := range []string{
		TextCodeInvalidCredential,
		TextCodeUserDisabled,
		TextCodeTooManyAttempts,
		TextCodeLatchLocked,
		TextCodeLatchUnavailable,
	} {
		if HasTextCode(err, code) {
			return true
		}
	}
	return false
}

func textCode(err error) string {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode
	}
	return ""
}
