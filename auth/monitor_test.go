package auth

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-admin-client/core"
	"github.com/goliatone/go-admin-client/store/memory"
	"github.com/jonboulle/clockwork"
)

type stubInFlight struct {
	busy atomic.Bool
}

func (s *stubInFlight) InFlight() bool { return s.busy.Load() }

func newTestMonitor(t *testing.T, clock clockwork.Clock, pair core.CredentialPair, trigger RefreshTrigger) (*Monitor, *stubInFlight) {
	t.Helper()
	coordinator := NewRefreshCoordinator(core.Config{}, memory.New(pair), nil)
	t.Cleanup(coordinator.Close)
	monitor := NewMonitor(coordinator, core.MonitorConfig{Interval: time.Minute, LowWaterMark: 5 * time.Minute},
		WithMonitorClock(clock),
		WithMonitorTrigger(trigger),
	)
	inflight := &stubInFlight{}
	monitor.inflight = inflight
	return monitor, inflight
}

func TestMonitor_CheckTriggersInsideLowWaterMark(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var triggered atomic.Int32
	trigger := RefreshTriggerFunc(func(context.Context) error {
		triggered.Add(1)
		return nil
	})
	pair := core.CredentialPair{AccessToken: signedToken(t, clock.Now().Add(2*time.Minute)), RefreshToken: "r"}
	monitor, inflight := newTestMonitor(t, clock, pair, trigger)

	if !monitor.Check(context.Background()) {
		t.Fatalf("expected refresh to be triggered")
	}
	inflight.busy.Store(true)
	if monitor.Check(context.Background()) {
		t.Fatalf("expected no trigger while a refresh is in flight")
	}
	if triggered.Load() != 1 {
		t.Fatalf("expected one trigger, got %d", triggered.Load())
	}
}

func TestMonitor_CheckSkipsFreshMissingAndOpaqueTokens(t *testing.T) {
	clock := clockwork.NewFakeClock()
	trigger := RefreshTriggerFunc(func(context.Context) error {
		t.Errorf("trigger must not fire")
		return nil
	})
	pairs := []core.CredentialPair{
		{AccessToken: signedToken(t, clock.Now().Add(time.Hour)), RefreshToken: "r"},
		{},
		{AccessToken: "opaque", RefreshToken: "r"},
	}
	for _, pair := range pairs {
		monitor, _ := newTestMonitor(t, clock, pair, trigger)
		if monitor.Check(context.Background()) {
			t.Fatalf("expected no refresh for %+v", pair)
		}
	}
}

func TestMonitor_RunTicksOnInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fired := make(chan struct{}, 1)
	trigger := RefreshTriggerFunc(func(context.Context) error {
		select {
		case fired <- struct{}{}:
		default:
		}
		return nil
	})
	pair := core.CredentialPair{AccessToken: signedToken(t, clock.Now().Add(3*time.Minute)), RefreshToken: "r"}
	monitor, _ := newTestMonitor(t, clock, pair, trigger)

	monitor.Start(context.Background())
	defer monitor.Stop()

	clock.BlockUntil(1)
	select {
	case <-fired:
		t.Fatalf("trigger fired before the first tick")
	default:
	}
	clock.Advance(time.Minute)

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected trigger after one interval")
	}
}
