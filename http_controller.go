package latch

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// RegisterLatchRoutes mounts the pairing, unpairing and status routes
func RegisterLatchRoutes(app RouteRegistrar, opts ...LatchControllerOption) *LatchController {
	controller := NewLatchController(opts...)

	unpaired := RequireUnpaired(controller.Gate)
	paired := RequirePaired(controller.Gate)
	authenticated := RequireAuthenticated(controller.Gate)

	app.Get(controller.Routes.Pair, controller.PairShow, unpaired).
		SetName("latch.pair")

	pairSubmit := []router.MiddlewareFunc{unpaired}
	if controller.Throttle != nil {
		pairSubmit = append(pairSubmit, controller.Throttle.Middleware())
	}
	app.Post(controller.Routes.Pair, controller.PairPost, pairSubmit...).
		SetName("latch.pair.submit")

	app.Get(controller.Routes.PairComplete, controller.PairComplete, authenticated).
		SetName("latch.pair.complete")

	app.Get(controller.Routes.Unpair, controller.UnpairShow, paired).
		SetName("latch.unpair")
	app.Post(controller.Routes.Unpair, controller.UnpairPost, paired).
		SetName("latch.unpair.submit")

	app.Get(controller.Routes.UnpairComplete, controller.UnpairComplete, authenticated).
		SetName("latch.unpair.complete")

	app.Get(controller.Routes.Status, controller.StatusGet, authenticated).
		SetName("latch.status")

	return controller
}

type LatchControllerRoutes struct {
	Pair           string
	PairComplete   string
	Unpair         string
	UnpairComplete string
	Status         string
}

type LatchControllerViews struct {
	Pair           string
	PairComplete   string
	Unpair         string
	UnpairComplete string
}

type LatchController struct {
	Logger   Logger
	Routes   *LatchControllerRoutes
	Views    *LatchControllerViews
	Pairer   *Pairer
	Unpairer *Unpairer
	Reporter *StatusReporter
	Gate     *Gate
	Throttle *PairingThrottle
}

type LatchControllerOption func(*LatchController) *LatchController

func WithControllerLogger(logger Logger) LatchControllerOption {
	return func(c *LatchController) *LatchController {
		_, c.Logger = ResolveLogger("latch.controller", nil, logger)
		return c
	}
}

func WithControllerRoutes(routes LatchControllerRoutes) LatchControllerOption {
	return func(c *LatchController) *LatchController {
		mergeString(&c.Routes.Pair, routes.Pair)
		mergeString(&c.Routes.PairComplete, routes.PairComplete)
		mergeString(&c.Routes.Unpair, routes.Unpair)
		mergeString(&c.Routes.UnpairComplete, routes.UnpairComplete)
		mergeString(&c.Routes.Status, routes.Status)
		return c
	}
}

func WithControllerViews(views LatchControllerViews) LatchControllerOption {
	return func(c *LatchController) *LatchController {
		mergeString(&c.Views.Pair, views.Pair)
		mergeString(&c.Views.PairComplete, views.PairComplete)
		mergeString(&c.Views.Unpair, views.Unpair)
		mergeString(&c.Views.UnpairComplete, views.UnpairComplete)
		return c
	}
}

func WithPairer(p *Pairer) LatchControllerOption {
	return func(c *LatchController) *LatchController {
		c.Pairer = p
		return c
	}
}

func WithUnpairer(u *Unpairer) LatchControllerOption {
	return func(c *LatchController) *LatchController {
		c.Unpairer = u
		return c
	}
}

func WithStatusReporter(r *StatusReporter) LatchControllerOption {
	return func(c *LatchController) *LatchController {
		c.Reporter = r
		return c
	}
}

func WithGate(g *Gate) LatchControllerOption {
	return func(c *LatchController) *LatchController {
		c.Gate = g
		return c
	}
}

func WithPairingThrottle(t *PairingThrottle) LatchControllerOption {
	return func(c *LatchController) *LatchController {
		c.Throttle = t
		return c
	}
}

func NewLatchController(opts ...LatchControllerOption) *LatchController {
	_, logger := ResolveLogger("latch.controller", nil, nil)
	c := &LatchController{
		Logger: logger,
		Routes: &LatchControllerRoutes{
			Pair:           "/latch/pair",
			PairComplete:   "/latch/pair/complete",
			Unpair:         "/latch/unpair",
			UnpairComplete: "/latch/unpair/complete",
			Status:         "/latch/status",
		},
		Views: &LatchControllerViews{
			Pair:           "latch/pair",
			PairComplete:   "latch/pair_complete",
			Unpair:         "latch/unpair",
			UnpairComplete: "latch/unpair_complete",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Gate == nil {
		panic("Missing Gate in latch controller...")
	}

	if c.Pairer == nil || c.Unpairer == nil {
		panic("Missing pairing workflows in latch controller...")
	}

	return c
}

func (a *LatchController) PairShow(ctx router.Context) error {
	return ctx.Render(a.Views.Pair, router.ViewContext{
		"errors": map[string]string{},
		"record": PairTokenForm{},
	})
}

func (a *LatchController) PairPost(ctx router.Context) error {
	userID, err := a.userID(ctx)
	if err != nil {
		return err
	}

	form := PairTokenForm{Token: strings.TrimSpace(ctx.FormValue("token"))}

	if _, err := a.Pairer.SubmitToken(ctx.Context(), userID, form.Token); err != nil {
		var pairErr *PairingValidationError
		if errors.As(err, &pairErr) {
			return ctx.Render(a.Views.Pair, router.ViewContext{
				"errors": pairErr.ValidationMap(),
				"record": form,
			})
		}

		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryValidation {
			return ctx.Render(a.Views.Pair, router.ViewContext{
				"errors": form.FieldErrors(),
				"record": form,
			})
		}

		a.Logger.Error("latch pairing failed", "user_id", userID, "error", err)
		return err
	}

	return ctx.Redirect(a.Routes.PairComplete, router.StatusSeeOther)
}

func (a *LatchController) PairComplete(ctx router.Context) error {
	return ctx.Render(a.Views.PairComplete, router.ViewContext{})
}

func (a *LatchController) UnpairShow(ctx router.Context) error {
	return ctx.Render(a.Views.Unpair, router.ViewContext{
		"unpair_error": nil,
	})
}

func (a *LatchController) UnpairPost(ctx router.Context) error {
	userID, err := a.userID(ctx)
	if err != nil {
		return err
	}

	if err := a.Unpairer.Unpair(ctx.Context(), userID); err != nil {
		var unpairErr *UnpairingError
		if errors.As(err, &unpairErr) {
			return ctx.Render(a.Views.Unpair, router.ViewContext{
				"unpair_error": unpairErr.ViewContext(),
			})
		}
		a.Logger.Error("latch unpairing failed", "user_id", userID, "error", err)
		return err
	}

	return ctx.Redirect(a.Routes.UnpairComplete, router.StatusSeeOther)
}

func (a *LatchController) UnpairComplete(ctx router.Context) error {
	return ctx.Render(a.Views.UnpairComplete, router.ViewContext{})
}

func (a *LatchController) StatusGet(ctx router.Context) error {
	if a.Reporter == nil {
		return goerrors.New("latch status reporter not configured", goerrors.CategoryInternal)
	}

	userID, err := a.userID(ctx)
	if err != nil {
		return err
	}

	report, err := a.Reporter.Report(ctx.Context(), userID)
	if err != nil {
		return err
	}

	return ctx.JSON(router.StatusOK, report)
}

func (a *LatchController) userID(ctx router.Context) (string, error) {
	subject, ok := GetRouterSubject(ctx, a.Gate.ContextKey())
	if !ok {
		return "", ErrLatchForbidden
	}
	return subject.GetUserID(), nil
}

func mergeString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
