// Package guard decides whether navigation may proceed. It owns the
// persisted authorization state: nothing else writes credentials, cached
// permissions or redirect signals.
package guard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/czhcheng27/project-playground/client/api"
	"github.com/czhcheng27/project-playground/client/gateway"
)

// Phase is the guard's position in its state machine.
type Phase string

const (
	// PhaseUnauthenticated means no usable credential; redirect to login.
	PhaseUnauthenticated Phase = "unauthenticated"
	// PhaseChecking means a permission fetch is in flight.
	PhaseChecking Phase = "checking"
	// PhaseAuthorized means the current route is granted.
	PhaseAuthorized Phase = "authorized"
	// PhaseForbidden means the account lacks the current route.
	PhaseForbidden Phase = "forbidden"
	// PhaseDegraded means the fetch failed but a cached permission set is
	// usable; navigation proceeds on stale data.
	PhaseDegraded Phase = "degraded"
	// PhaseOffline means the fetch failed with nothing cached; navigation
	// is blocked until a manual retry succeeds.
	PhaseOffline Phase = "offline"
)

// Decision is the settled outcome of one authorization check.
type Decision struct {
	Phase            Phase
	RedirectToLogin  bool
	RemainingRetries int
}

// MeFetcher fetches the signed-in account. *api.Client satisfies it.
type MeFetcher interface {
	Me(ctx context.Context) (*api.AccountData, error)
}

// Config collects controller dependencies.
type Config struct {
	Client       MeFetcher
	Store        StateRepository
	Logger       *slog.Logger
	PublicRoutes []string
	// OnChange receives the decision produced by an automatic retry.
	OnChange func(Decision)
	// RetryDelays overrides the auto-retry schedule; defaults to 2s/4s/8s.
	RetryDelays []time.Duration
}

// Controller runs the authorization state machine for route navigation.
type Controller struct {
	client      MeFetcher
	store       StateRepository
	logger      *slog.Logger
	public      map[string]struct{}
	onChange    func(Decision)
	retryDelays []time.Duration

	mu       sync.Mutex
	route    string
	attempts int
	timer    *time.Timer
	closed   bool
}

// NewController constructs a Controller.
func NewController(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	delays := cfg.RetryDelays
	if len(delays) == 0 {
		delays = []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}
	}
	public := make(map[string]struct{}, len(cfg.PublicRoutes))
	for _, route := range cfg.PublicRoutes {
		public[route] = struct{}{}
	}
	return &Controller{
		client:      cfg.Client,
		store:       cfg.Store,
		logger:      logger,
		public:      public,
		onChange:    cfg.OnChange,
		retryDelays: delays,
	}
}

// Resolve runs one authorization check for route. Public routes bypass the
// machine entirely. Changing route cancels any pending auto-retry.
func (c *Controller) Resolve(ctx context.Context, route string) Decision {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Decision{Phase: PhaseUnauthenticated, RedirectToLogin: true}
	}
	if route != c.route {
		c.cancelTimerLocked()
		c.route = route
	}
	c.mu.Unlock()

	if _, ok := c.public[route]; ok {
		return Decision{Phase: PhaseAuthorized}
	}
	return c.check(ctx, route)
}

// Retry re-runs the check for the current route on user request. It does
// not consume auto-retry budget.
func (c *Controller) Retry(ctx context.Context) Decision {
	c.mu.Lock()
	route := c.route
	c.cancelTimerLocked()
	c.mu.Unlock()
	return c.check(ctx, route)
}

// Remaining reports how many automatic retries are left.
func (c *Controller) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.retryDelays) - c.attempts
}

// Logout clears persisted credentials and stops pending retries. The caller
// resets the gateway registry alongside.
func (c *Controller) Logout() {
	c.mu.Lock()
	c.cancelTimerLocked()
	c.attempts = 0
	c.mu.Unlock()
	if err := c.store.Clear(); err != nil {
		c.logger.Warn("clear authorization state", slog.Any("error", err))
	}
}

// Close stops the controller. No state is mutated after Close returns.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelTimerLocked()
	c.closed = true
}

func (c *Controller) check(ctx context.Context, route string) Decision {
	state, err := c.store.Load()
	if err != nil {
		c.logger.Warn("load authorization state", slog.Any("error", err))
	}
	if !state.HasToken() {
		return c.settle(state, Decision{Phase: PhaseUnauthenticated, RedirectToLogin: true})
	}

	state.Phase = PhaseChecking
	c.saveState(state)

	account, err := c.client.Me(ctx)
	if err != nil {
		return c.settleFailure(state, route, err)
	}

	c.mu.Lock()
	c.attempts = 0
	c.mu.Unlock()

	// Replace the cached set only when it actually changed, so watchers
	// keyed on the set are not churned by identical refreshes.
	if !state.Permissions.Equal(account.Permissions) {
		state.Permissions = account.Permissions
	}

	phase := PhaseForbidden
	if route == "/" || state.Permissions.Allows(route, "read") {
		phase = PhaseAuthorized
	}
	return c.settle(state, Decision{Phase: phase, RemainingRetries: c.Remaining()})
}

// settleFailure maps a classified fetch failure onto a phase. Auth clears
// credentials; network and timeout degrade when a cached set exists and go
// offline when it does not; business and unknown degrade without automatic
// retry.
func (c *Controller) settleFailure(state AuthorizationState, route string, err error) Decision {
	kind := gateway.KindOf(err)
	c.logger.Warn("authorization check failed",
		slog.String("route", route),
		slog.String("kind", string(kind)),
		slog.Any("error", err))

	switch kind {
	case gateway.KindAuth:
		c.mu.Lock()
		c.attempts = 0
		c.cancelTimerLocked()
		c.mu.Unlock()
		if err := c.store.Clear(); err != nil {
			c.logger.Warn("clear authorization state", slog.Any("error", err))
		}
		return Decision{Phase: PhaseUnauthenticated, RedirectToLogin: true}

	case gateway.KindNetwork, gateway.KindTimeout:
		if len(state.Permissions) > 0 {
			c.scheduleRetry(route)
			return c.settle(state, Decision{Phase: PhaseDegraded, RemainingRetries: c.Remaining()})
		}
		return c.settle(state, Decision{Phase: PhaseOffline})

	default:
		return c.settle(state, Decision{Phase: PhaseDegraded, RemainingRetries: c.Remaining()})
	}
}

// scheduleRetry arms the next automatic retry with the next delay in the
// schedule. The timer callback re-checks the route it was armed for and
// drops silently if the controller moved on.
func (c *Controller) scheduleRetry(route string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.timer != nil || c.attempts >= len(c.retryDelays) {
		return
	}
	delay := c.retryDelays[c.attempts]
	c.attempts++
	c.timer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		c.timer = nil
		stale := c.closed || c.route != route
		c.mu.Unlock()
		if stale {
			return
		}
		decision := c.check(context.Background(), route)
		if c.onChange != nil {
			c.onChange(decision)
		}
	})
}

// cancelTimerLocked stops a pending automatic retry. The consumed budget
// stays consumed; only a successful fetch, an auth settlement or logout
// refills it.
func (c *Controller) cancelTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) settle(state AuthorizationState, decision Decision) Decision {
	state.Phase = decision.Phase
	c.saveState(state)
	return decision
}

func (c *Controller) saveState(state AuthorizationState) {
	if err := c.store.Save(state); err != nil {
		c.logger.Warn("save authorization state", slog.Any("error", err))
	}
}
