// Package gojob dispatches credential refreshes through go-job queues: the
// monitor enqueues a refresh message and a worker runs it with a bounded
// retry policy.
package gojob

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-admin-client/auth"
	"github.com/goliatone/go-admin-client/core"
	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/jonboulle/clockwork"
)

const (
	JobIDRefresh = "admin-client.refresh"

	defaultMaxAttempts    = 3
	defaultInitialBackoff = 500 * time.Millisecond
	defaultMaxBackoff     = 10 * time.Second
	defaultDedupWindow    = 30 * time.Second
)

// RefreshMessage is the payload carried by a refresh job.
type RefreshMessage struct {
	Profile     string
	Reason      string
	RequestedAt time.Time
}

// ToExecutionMessage maps a refresh request to go-job. Requests for the
// same profile inside one dedup window share an idempotency key.
func ToExecutionMessage(msg RefreshMessage, window time.Duration) *job.ExecutionMessage {
	profile := strings.TrimSpace(msg.Profile)
	if profile == "" {
		profile = "default"
	}
	requestedAt := msg.RequestedAt.UTC()
	if window <= 0 {
		window = defaultDedupWindow
	}
	bucket := requestedAt.Truncate(window).Unix()
	return &job.ExecutionMessage{
		JobID:      JobIDRefresh,
		ScriptPath: JobIDRefresh,
		Parameters: map[string]any{
			"profile":      profile,
			"reason":       strings.TrimSpace(msg.Reason),
			"requested_at": requestedAt.Format(time.RFC3339Nano),
		},
		IdempotencyKey: JobIDRefresh + ":" + profile + ":" + strconv.FormatInt(bucket, 10),
		DedupPolicy:    job.DedupPolicyDrop,
	}
}

// FromExecutionMessage reads a refresh request back. ok is false for
// messages of other jobs.
func FromExecutionMessage(msg *job.ExecutionMessage) (RefreshMessage, bool) {
	if msg == nil || strings.TrimSpace(msg.JobID) != JobIDRefresh {
		return RefreshMessage{}, false
	}
	out := RefreshMessage{
		Profile: stringParam(msg.Parameters, "profile"),
		Reason:  stringParam(msg.Parameters, "reason"),
	}
	if raw := stringParam(msg.Parameters, "requested_at"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			out.RequestedAt = parsed
		}
	}
	return out, true
}

// RefreshEnqueuer implements auth.RefreshTrigger by enqueuing a refresh job.
type RefreshEnqueuer struct {
	enqueuer queue.Enqueuer
	profile  string
	window   time.Duration
	clock    clockwork.Clock
}

func NewRefreshEnqueuer(enqueuer queue.Enqueuer, profile string) *RefreshEnqueuer {
	return &RefreshEnqueuer{
		enqueuer: enqueuer,
		profile:  profile,
		window:   defaultDedupWindow,
		clock:    clockwork.NewRealClock(),
	}
}

// WithClock replaces the clock used to stamp and bucket messages.
func (e *RefreshEnqueuer) WithClock(clock clockwork.Clock) *RefreshEnqueuer {
	if e != nil && clock != nil {
		e.clock = clock
	}
	return e
}

func (e *RefreshEnqueuer) TriggerRefresh(ctx context.Context) error {
	if e == nil || e.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	msg := ToExecutionMessage(RefreshMessage{
		Profile:     e.profile,
		Reason:      "proactive",
		RequestedAt: e.clock.Now(),
	}, e.window)
	if _, err := e.enqueuer.Enqueue(ctx, msg); err != nil {
		return fmt.Errorf("gojob: enqueue refresh: %w", err)
	}
	return nil
}

// RetryPolicy bounds queue retries to avoid unbounded retry loops.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// NormalizeAttempt enforces the bounds on a nack for the given attempt.
// Once attempt reaches MaxAttempts a retry becomes dead_letter when
// DeadLetterOnMax is set and failed otherwise.
func (p RetryPolicy) NormalizeAttempt(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Disposition == "" {
		out.Disposition = queue.NackDispositionRetry
	}
	if out.Disposition != queue.NackDispositionRetry {
		out.Delay = 0
		return out
	}
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if attempt >= p.maxAttempts() {
		out.Delay = 0
		out.Disposition = queue.NackDispositionFailed
		if p.DeadLetterOnMax {
			out.Disposition = queue.NackDispositionDeadLetter
		}
	}
	return out
}

func (p RetryPolicy) maxAttempts() int {
	if p.MaxAttempts > 0 {
		return p.MaxAttempts
	}
	return defaultMaxAttempts
}

type BackoffScheduler interface {
	NextDelay(attempt int) time.Duration
}

type ExponentialBackoff struct {
	Initial time.Duration
	Max     time.Duration
}

func (s ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	initial := s.Initial
	if initial <= 0 {
		initial = defaultInitialBackoff
	}
	maximum := s.Max
	if maximum <= 0 {
		maximum = defaultMaxBackoff
	}
	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maximum {
			return maximum
		}
	}
	return delay
}

// Refresher is the part of auth.RefreshCoordinator a refresh job needs.
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

// RefreshRunner handles dequeued refresh deliveries.
type RefreshRunner struct {
	refresher Refresher
	policy    RetryPolicy
	backoff   BackoffScheduler
	logger    core.Logger

	mu       sync.Mutex
	attempts map[string]int
}

func NewRefreshRunner(refresher Refresher, policy RetryPolicy, logger core.Logger) *RefreshRunner {
	return &RefreshRunner{
		refresher: refresher,
		policy:    policy,
		backoff:   ExponentialBackoff{},
		logger:    glog.Ensure(logger),
		attempts:  map[string]int{},
	}
}

func (r *RefreshRunner) WithBackoff(backoff BackoffScheduler) *RefreshRunner {
	if r != nil && backoff != nil {
		r.backoff = backoff
	}
	return r
}

// Handle runs one delivery. Successful refreshes are acked. Terminal auth
// failures are dead-lettered; anything else is retried with backoff until
// the policy marks it failed (or dead_letter with DeadLetterOnMax).
func (r *RefreshRunner) Handle(ctx context.Context, delivery queue.Delivery) error {
	if r == nil || r.refresher == nil {
		return fmt.Errorf("gojob: refresh runner is not configured")
	}
	if delivery == nil {
		return fmt.Errorf("gojob: delivery is required")
	}
	message := delivery.Message()
	request, ok := FromExecutionMessage(message)
	if !ok {
		return delivery.Nack(ctx, queue.NackOptions{Disposition: queue.NackDispositionDeadLetter, Reason: "unsupported job"})
	}
	key := message.IdempotencyKey
	attempt := r.nextAttempt(key)

	_, err := r.refresher.Refresh(ctx)
	if err == nil {
		r.forget(key)
		r.logger.Debug("refresh job completed", "profile", request.Profile, "attempt", attempt)
		return delivery.Ack(ctx)
	}

	nack := queue.NackOptions{
		Disposition: queue.NackDispositionRetry,
		Delay:       r.backoff.NextDelay(attempt),
		Reason:      err.Error(),
	}
	if auth.IsTerminal(err) {
		nack = queue.NackOptions{Disposition: queue.NackDispositionDeadLetter, Reason: err.Error()}
	}
	nack = r.policy.NormalizeAttempt(nack, attempt)
	if nack.Disposition != queue.NackDispositionRetry {
		r.forget(key)
	}
	r.logger.Warn("refresh job failed", "profile", request.Profile, "attempt", attempt, "disposition", string(nack.Disposition), "error", err)
	return delivery.Nack(ctx, nack)
}

// ProcessNext dequeues and handles one delivery.
func (r *RefreshRunner) ProcessNext(ctx context.Context, dequeuer queue.Dequeuer) error {
	if dequeuer == nil {
		return fmt.Errorf("gojob: dequeuer is required")
	}
	delivery, err := dequeuer.Dequeue(ctx)
	if err != nil {
		return err
	}
	return r.Handle(ctx, delivery)
}

func (r *RefreshRunner) nextAttempt(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[key]++
	return r.attempts[key]
}

func (r *RefreshRunner) forget(key string) {
	r.mu.Lock()
	delete(r.attempts, key)
	r.mu.Unlock()
}

// RunWithRetry refreshes in process with the same bounds, for callers
// without a queue.
func RunWithRetry(ctx context.Context, refresher Refresher, policy RetryPolicy, backoff BackoffScheduler) (int, error) {
	if refresher == nil {
		return 0, fmt.Errorf("gojob: refresher is required")
	}
	if backoff == nil {
		backoff = ExponentialBackoff{}
	}
	maxAttempts := policy.maxAttempts()
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		_, err := refresher.Refresh(ctx)
		if err == nil {
			return attempt, nil
		}
		lastErr = err
		if auth.IsTerminal(err) || attempt == maxAttempts {
			return attempt, err
		}
		delay := backoff.NextDelay(attempt)
		if policy.MaxDelay > 0 && delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
		if waitErr := waitWithContext(ctx, delay); waitErr != nil {
			return attempt, waitErr
		}
	}
	return maxAttempts, lastErr
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// LoggingHook reports worker events for refresh jobs.
type LoggingHook struct {
	logger core.Logger
}

func NewLoggingHook(logger core.Logger) *LoggingHook {
	return &LoggingHook{logger: glog.Ensure(logger)}
}

func (h *LoggingHook) OnStart(_ context.Context, event worker.Event) {
	h.logger.Debug("refresh job started", eventFields(event)...)
}

func (h *LoggingHook) OnSuccess(_ context.Context, event worker.Event) {
	h.logger.Info("refresh job succeeded", eventFields(event)...)
}

func (h *LoggingHook) OnFailure(_ context.Context, event worker.Event) {
	h.logger.Error("refresh job failed", eventFields(event)...)
}

func (h *LoggingHook) OnRetry(_ context.Context, event worker.Event) {
	h.logger.Warn("refresh job retrying", eventFields(event)...)
}

func eventFields(event worker.Event) []any {
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	fields := []any{"attempt", event.Attempt, "duration_ms", event.Duration.Milliseconds()}
	if message != nil {
		fields = append(fields, "job_id", message.JobID, "idempotency_key", message.IdempotencyKey)
	}
	if event.Delay > 0 {
		fields = append(fields, "delay", event.Delay.String())
	}
	if event.Err != nil {
		fields = append(fields, "error", event.Err.Error())
	}
	return fields
}

func stringParam(params map[string]any, key string) string {
	if params == nil {
		return ""
	}
	value, ok := params[key]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

var (
	_ auth.RefreshTrigger = (*RefreshEnqueuer)(nil)
	_ worker.Hook         = (*LoggingHook)(nil)
	_ Refresher           = (*auth.RefreshCoordinator)(nil)
)
