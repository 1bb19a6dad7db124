package auth

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-admin-client/core"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/jonboulle/clockwork"
)

// RefreshTrigger starts a refresh on behalf of the monitor.
type RefreshTrigger interface {
	TriggerRefresh(ctx context.Context) error
}

type RefreshTriggerFunc func(ctx context.Context) error

func (f RefreshTriggerFunc) TriggerRefresh(ctx context.Context) error {
	if f == nil {
		return nil
	}
	return f(ctx)
}

// InFlightReporter exposes whether a refresh is already running.
type InFlightReporter interface {
	InFlight() bool
}

// Monitor periodically inspects the access token expiry and refreshes ahead
// of it. Missing tokens and undecodable expiries are skipped silently.
type Monitor struct {
	clock        clockwork.Clock
	accessor     *CredentialAccessor
	inflight     InFlightReporter
	trigger      RefreshTrigger
	interval     time.Duration
	lowWaterMark time.Duration
	logger       core.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type MonitorOption func(*Monitor)

func WithMonitorClock(clock clockwork.Clock) MonitorOption {
	return func(m *Monitor) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithMonitorTrigger replaces the default trigger (the coordinator itself),
// e.g. with a job enqueuer.
func WithMonitorTrigger(trigger RefreshTrigger) MonitorOption {
	return func(m *Monitor) {
		if trigger != nil {
			m.trigger = trigger
		}
	}
}

func WithMonitorLogger(logger core.Logger) MonitorOption {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func NewMonitor(coordinator *RefreshCoordinator, config core.MonitorConfig, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		clock:        clockwork.NewRealClock(),
		accessor:     coordinator.Accessor(),
		inflight:     coordinator,
		trigger:      coordinator,
		interval:     config.Interval,
		lowWaterMark: config.LowWaterMark,
	}
	if m.interval <= 0 {
		m.interval = core.DefaultMonitorInterval
	}
	if m.lowWaterMark <= 0 {
		m.lowWaterMark = core.DefaultMonitorLowWaterMark
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	m.logger = glog.Ensure(m.logger)
	return m
}

// Run blocks, checking the token every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()
	m.logger.Debug("refresh monitor started", "interval", m.interval.String(), "low_water_mark", m.lowWaterMark.String())

	for {
		select {
		case <-ctx.Done():
			m.logger.Debug("refresh monitor stopped")
			return
		case <-ticker.Chan():
			m.Check(ctx)
		}
	}
}

// Check runs one inspection and reports whether a refresh was triggered.
func (m *Monitor) Check(ctx context.Context) bool {
	pair, ok := m.accessor.Pair(ctx)
	if !ok {
		return false
	}
	state := ResolveTokenState(m.clock.Now(), pair, m.lowWaterMark)
	if !ShouldRefresh(state) {
		return false
	}
	if m.inflight != nil && m.inflight.InFlight() {
		return false
	}
	m.logger.Info("access token near expiry, refreshing", "expires_at", state.ExpiresAt.Format(time.RFC3339))
	if err := m.trigger.TriggerRefresh(ctx); err != nil {
		m.logger.Warn("proactive refresh failed", "error", err)
	}
	return true
}

// Start runs the monitor in the background. Calling Start twice is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		m.Run(runCtx)
	}(m.done)
}

// Stop cancels a started monitor and waits for it to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
