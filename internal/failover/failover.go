// Package failover drives the per-request attempt sequence over the
// effective backend list: primary first, then the failover chain, in
// cycles with a fixed backoff schedule. A daily-limit error on the
// primary puts it in cooldown for five minutes.
//
// The plan is passed by value on every invocation; the orchestrator
// never touches the shared catalog.
package failover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Davincible/llm-relay/internal/config"
	"github.com/Davincible/llm-relay/internal/metrics"
	"github.com/Davincible/llm-relay/internal/upstream"
)

const (
	maxCycles      = 10
	cooldownWindow = 300 * time.Second
	dayLimitMarker = "day limit exceeded"
)

// backoffSchedule holds the sleep between attempt cycles, saturating at
// the last entry.
var backoffSchedule = []time.Duration{
	2 * time.Second,
	4 * time.Second,
	8 * time.Second,
	15 * time.Second,
	15 * time.Second,
	30 * time.Second,
	30 * time.Second,
	60 * time.Second,
}

// ErrAllBackendsFailed is returned when every cycle was exhausted.
var ErrAllBackendsFailed = errors.New("All backends failed after 10 retry cycles")

// Client is the upstream surface the orchestrator drives.
type Client interface {
	Complete(ctx context.Context, req upstream.Request) ([]byte, error)
	Stream(ctx context.Context, req upstream.Request) (*upstream.Stream, error)
}

// Plan is the effective backend list for one request: the selected
// primary plus the failover chain derived by the handler.
type Plan struct {
	Primary  config.Backend
	Failover []config.Backend

	// Providers resolves each backend's provider credentials.
	Providers map[string]config.Provider
}

func (p Plan) provider(backend config.Backend) config.Provider {
	return p.Providers[backend.Provider()]
}

// Orchestrator holds the process-wide cooldown state shared by all
// requests; everything else is per-invocation.
type Orchestrator struct {
	client Client
	logger *slog.Logger

	mu                   sync.Mutex
	primaryCooldownUntil time.Time

	// Injected in tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(client Client, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		client: client,
		logger: logger,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// PrimaryCoolingDown reports whether the primary is currently excluded.
func (o *Orchestrator) PrimaryCoolingDown() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.now().Before(o.primaryCooldownUntil)
}

// startCooldown advances the cooldown window; it never shortens one
// already in place.
func (o *Orchestrator) startCooldown() {
	o.mu.Lock()
	defer o.mu.Unlock()

	until := o.now().Add(cooldownWindow)
	if until.After(o.primaryCooldownUntil) {
		o.primaryCooldownUntil = until
	}
}

// attemptList builds this cycle's ordered attempts, omitting the
// primary while it cools down. With an empty failover chain the primary
// is always attempted: a single-backend setup has nothing to hide
// behind.
func (o *Orchestrator) attemptList(plan Plan) []config.Backend {
	if len(plan.Failover) == 0 {
		return []config.Backend{plan.Primary}
	}

	if o.PrimaryCoolingDown() {
		return plan.Failover
	}

	return append([]config.Backend{plan.Primary}, plan.Failover...)
}

// Complete runs the buffered request through the attempt cycles and
// returns the winning response with the backend that produced it.
func (o *Orchestrator) Complete(ctx context.Context, requestID string, plan Plan, payload map[string]any, tokenCount int) ([]byte, config.Backend, error) {
	var lastErr error

	run := func(ctx context.Context, backend config.Backend) (any, error) {
		return o.client.Complete(ctx, upstream.Request{
			RequestID: requestID,
			Backend:   backend,
			Provider:  plan.provider(backend),
			Payload:   payload,
		})
	}

	result, backend, err := o.cycles(ctx, requestID, plan, payload, tokenCount, run, &lastErr)
	if err != nil {
		return nil, config.Backend{}, err
	}

	return result.([]byte), backend, nil
}

// Stream opens a stream through the attempt cycles. Success is an open
// stream; once the caller starts consuming it, mid-stream failures are
// not retried.
func (o *Orchestrator) Stream(ctx context.Context, requestID string, plan Plan, payload map[string]any, tokenCount int) (*upstream.Stream, config.Backend, error) {
	var lastErr error

	run := func(ctx context.Context, backend config.Backend) (any, error) {
		return o.client.Stream(ctx, upstream.Request{
			RequestID: requestID,
			Backend:   backend,
			Provider:  plan.provider(backend),
			Payload:   payload,
		})
	}

	result, backend, err := o.cycles(ctx, requestID, plan, payload, tokenCount, run, &lastErr)
	if err != nil {
		return nil, config.Backend{}, err
	}

	return result.(*upstream.Stream), backend, nil
}

// cycles is the shared attempt loop for both operation shapes.
func (o *Orchestrator) cycles(
	ctx context.Context,
	requestID string,
	plan Plan,
	payload map[string]any,
	tokenCount int,
	run func(ctx context.Context, backend config.Backend) (any, error),
	lastErr *error,
) (any, config.Backend, error) {
	originalModel, _ := payload["model"].(string)

	// Failover is active only when a failover chain is configured; a
	// single-backend setup gets one attempt and raw error propagation.
	if len(plan.Failover) == 0 {
		result, err := run(ctx, plan.Primary)
		if err != nil {
			return nil, config.Backend{}, err
		}

		return result, plan.Primary, nil
	}

	for cycle := 0; cycle < maxCycles; cycle++ {
		attempts := o.attemptList(plan)

	attempt:
		for _, backend := range attempts {
			if err := ctx.Err(); err != nil {
				return nil, config.Backend{}, err
			}

			result, err := run(ctx, backend)
			if err == nil {
				return result, backend, nil
			}

			*lastErr = err

			if errors.Is(err, context.Canceled) {
				return nil, config.Backend{}, err
			}

			if backend.Model == plan.Primary.Model && isDayLimitError(err) {
				o.startCooldown()
				o.logger.Warn("Primary hit daily limit, cooling down",
					"request_id", requestID,
					"backend", backend.Model,
					"cooldown", cooldownWindow,
				)

				// Restart the cycle over the failover chain only.
				break attempt
			}

			metrics.ObserveFailover(upstream.ClassifyCause(err.Error()))

			o.logger.Warn("Backend attempt failed, trying next",
				"request_id", requestID,
				"error_code", upstream.ErrorCode(err),
				"cause", upstream.ClassifyCause(err.Error()),
				"original_model", originalModel,
				"candidate", backend.Model,
				"token_count", tokenCount,
			)
		}

		if cycle+1 >= maxCycles {
			break
		}

		if err := o.sleep(ctx, backoffFor(cycle)); err != nil {
			return nil, config.Backend{}, err
		}
	}

	if *lastErr != nil {
		return nil, config.Backend{}, fmt.Errorf("%w: last error: %v", ErrAllBackendsFailed, *lastErr)
	}

	return nil, config.Backend{}, ErrAllBackendsFailed
}

func backoffFor(cycle int) time.Duration {
	if cycle >= len(backoffSchedule) {
		return backoffSchedule[len(backoffSchedule)-1]
	}

	return backoffSchedule[cycle]
}

func isDayLimitError(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), dayLimitMarker)
}
