package portal

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/site-operator/go-sdk/internal/metrics"
	"github.com/site-operator/go-sdk/internal/utils"
	"github.com/site-operator/go-sdk/pkg/core"
)

// DefaultTargetTimeout bounds how long click and setValue actions wait for
// their target to become visible.
const DefaultTargetTimeout = 10 * time.Second

// Status of an executed plan.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Result is the outcome of ExecutePlan.
type Result struct {
	Status  Status `json:"status"`
	Details any    `json:"details,omitempty"`
}

// OK reports whether the plan succeeded.
func (r Result) OK() bool { return r.Status == StatusOK }

func errorResult(format string, args ...any) Result {
	return Result{Status: StatusError, Details: fmt.Sprintf(format, args...)}
}

// ExecuteFunc performs one resolved action in the host application.
type ExecuteFunc func(ctx context.Context, action Action) Result

// Handlers are optional host callbacks supplied at registration.
type Handlers struct {
	// ExecutePlan replaces the default executor, which publishes each
	// resolved action to OnAction listeners.
	ExecutePlan ExecuteFunc
}

// Bridge connects the chat core to the host application: it holds the
// registered AppContext, tracks which click targets are visible and
// executes agent actions.
type Bridge struct {
	mu            sync.RWMutex
	appContext    *AppContext
	handlers      Handlers
	visible       map[string]struct{}
	targetTimeout time.Duration
	logger        logrus.FieldLogger

	registered utils.Observers[AppContext]
	targets    utils.Observers[[]string]
	actions    utils.Observers[Action]
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithTargetTimeout overrides DefaultTargetTimeout.
func WithTargetTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.targetTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates a bridge with no portal registered.
func New(opts ...Option) *Bridge {
	l := logrus.New()
	l.SetOutput(io.Discard)
	b := &Bridge{
		visible:       make(map[string]struct{}),
		targetTimeout: DefaultTargetTimeout,
		logger:        l,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// RegisterPortal stores the host context and optional handlers, then
// notifies OnRegistered listeners.
func (b *Bridge) RegisterPortal(appContext AppContext, handlers *Handlers) {
	if appContext.V == "" {
		appContext.V = SchemaVersion
	}
	b.mu.Lock()
	b.appContext = &appContext
	if handlers != nil {
		b.handlers = *handlers
	} else {
		b.handlers = Handlers{}
	}
	b.mu.Unlock()

	b.logger.WithField("site", appContext.Site.Name).Info("portal registered")
	b.registered.Notify(appContext)
}

// Context returns the registered AppContext.
func (b *Bridge) Context() (AppContext, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.appContext == nil {
		return AppContext{}, false
	}
	return *b.appContext, true
}

// SetVisibleTargets replaces the set of visible target ids and notifies
// OnTargetsUpdated listeners.
func (b *Bridge) SetVisibleTargets(ids []string) {
	visible := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		visible[id] = struct{}{}
	}
	b.mu.Lock()
	b.visible = visible
	b.mu.Unlock()

	b.targets.Notify(append([]string(nil), ids...))
}

// IsVisible reports whether a target is currently visible.
func (b *Bridge) IsVisible(targetID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.visible[targetID]
	return ok
}

// OnRegistered is called after every RegisterPortal.
func (b *Bridge) OnRegistered(fn func(AppContext)) func() { return b.registered.Add(fn) }

// OnTargetsUpdated is called after every SetVisibleTargets.
func (b *Bridge) OnTargetsUpdated(fn func([]string)) func() { return b.targets.Add(fn) }

// OnAction receives actions resolved by the default executor.
func (b *Bridge) OnAction(fn func(Action)) func() { return b.actions.Add(fn) }

// WaitForTarget returns true once targetID is visible, or false when the
// timeout elapses or ctx ends. The listener is removed on every path.
func (b *Bridge) WaitForTarget(ctx context.Context, targetID string, timeout time.Duration) bool {
	found := make(chan struct{}, 1)
	remove := b.targets.Add(func(ids []string) {
		for _, id := range ids {
			if id == targetID {
				select {
				case found <- struct{}{}:
				default:
				}
				return
			}
		}
	})
	defer remove()

	if b.IsVisible(targetID) {
		return true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-found:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// ExecutePlan runs an action. Plans run their steps in order and stop at
// the first failure. Click and setValue wait for their target first. It
// never panics on bad input; every failure is reported in the Result.
func (b *Bridge) ExecutePlan(ctx context.Context, action Action) Result {
	b.mu.RLock()
	registered := b.appContext != nil
	handler := b.handlers.ExecutePlan
	b.mu.RUnlock()

	log := b.logger.WithField("action", action.Type)
	if !registered && handler == nil {
		log.Warn("no portal registered, cannot execute plan")
		return b.record(action, Result{Status: StatusError, Details: core.ErrNoPortal.Error()})
	}
	if err := action.Validate(); err != nil {
		log.WithError(err).Warn("invalid action")
		return b.record(action, errorResult("invalid action: %v", err))
	}

	res := b.execute(ctx, action, handler)
	if res.OK() {
		log.Debug("plan executed")
	} else {
		log.WithField("details", res.Details).Warn("plan failed")
	}
	return res
}

func (b *Bridge) execute(ctx context.Context, action Action, handler ExecuteFunc) Result {
	if action.Type == ActionPlan {
		for i, step := range action.Steps {
			if res := b.execute(ctx, step, handler); !res.OK() {
				return b.record(action, Result{Status: StatusError, Details: fmt.Sprintf("step %d (%s): %v", i, step.Type, res.Details)})
			}
		}
		return b.record(action, Result{Status: StatusOK})
	}

	if action.NeedsTarget() && !b.WaitForTarget(ctx, action.TargetID, b.targetTimeout) {
		if err := ctx.Err(); err != nil {
			return b.record(action, errorResult("waiting for target %s: %v", action.TargetID, err))
		}
		b.logger.WithError(core.ErrTargetNotVisible).WithField("target_id", action.TargetID).Warn("giving up on target")
		return b.record(action, errorResult("Target %s not found or not visible after timeout", action.TargetID))
	}

	if handler != nil {
		return b.record(action, handler(ctx, action))
	}
	b.actions.Notify(action)
	return b.record(action, Result{Status: StatusOK})
}

func (b *Bridge) record(action Action, res Result) Result {
	metrics.PortalActionsTotal.WithLabelValues(action.Type, string(res.Status)).Inc()
	return res
}
