package latch

import (
	"time"

	"github.com/goliatone/go-router"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/time/rate"
)

// DefaultPairingsPerMinute is the default pairing submission rate per user
const DefaultPairingsPerMinute = 5

// PairingThrottle limits how often a user may submit pairing tokens
type PairingThrottle struct {
	limiters   *ttlcache.Cache[string, *rate.Limiter]
	limit      rate.Limit
	burst      int
	contextKey string
}

// NewPairingThrottle allows perMinute submissions per user, with a burst
// of the same size. Idle limiters are evicted after idle.
func NewPairingThrottle(perMinute int, idle time.Duration) *PairingThrottle {
	if perMinute <= 0 {
		perMinute = DefaultPairingsPerMinute
	}
	if idle <= 0 {
		idle = 10 * time.Minute
	}

	cache := ttlcache.New(
		ttlcache.WithTTL[string, *rate.Limiter](idle),
	)

	return &PairingThrottle{
		limiters:   cache,
		limit:      rate.Every(time.Minute / time.Duration(perMinute)),
		burst:      perMinute,
		contextKey: DefaultContextKey,
	}
}

// WithContextKey sets the locals key holding the session subject
func (t *PairingThrottle) WithContextKey(key string) *PairingThrottle {
	if key != "" {
		t.contextKey = key
	}
	return t
}

// Start runs the eviction loop until Stop is called
func (t *PairingThrottle) Start() {
	t.limiters.Start()
}

func (t *PairingThrottle) Stop() {
	t.limiters.Stop()
}

// Allow reports whether userID may submit a token now
func (t *PairingThrottle) Allow(userID string) bool {
	item, _ := t.limiters.GetOrSet(userID, rate.NewLimiter(t.limit, t.burst))
	return item.Value().Allow()
}

// Middleware rejects submissions over the limit with ErrPairingThrottled.
// Anonymous requests pass through to the access gate.
func (t *PairingThrottle) Middleware() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			subject, ok := GetRouterSubject(ctx, t.contextKey)
			if !ok {
				return next(ctx)
			}
			if !t.Allow(subject.GetUserID()) {
				return richError(ErrPairingThrottled, nil, map[string]any{"user_id": subject.GetUserID()})
			}
			return next(ctx)
		}
	}
}
