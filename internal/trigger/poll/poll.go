// Package poll implements the polling-fallback trigger type used where a
// push subscription isn't available. Grounded on
// original_source/app/handlers/gmail_trigger_handler.go's
// GmailPollFallbackHandler (minimum 300s interval, per-tick item cap,
// "not recommended, prefer push" framing) generalized across integrations,
// with golang.org/x/time/rate providing the minimum-interval guard; back-off
// after a rate-limit signal skips the following tick (see Loop.tick).
package poll

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/orbitflow/orbitflow/internal/trigger"
)

// Poller is implemented once per integration's polling fallback. Poll
// fetches items newer than sinceToken, capped at maxItems, and reports
// whether the upstream signaled rate-limiting (a 429 or explicit
// rate-limit header) so the caller can back off.
type Poller interface {
	Name() string
	Poll(ctx context.Context, sinceToken string, maxItems int) (items []map[string]any, newToken string, rateLimited bool, err error)
	// MaxItemsPerTick bounds blast radius per tick (15 for Slack, 10 for
	// Gmail, 5 for GitHub per the source integrations).
	MaxItemsPerTick() int
}

// Loop runs one Poller on a fixed-plus-backoff interval against a single
// Registration.
type Loop struct {
	poller   Poller
	store    trigger.Store
	sink     trigger.Sink
	logger   *slog.Logger
	limiter  *rate.Limiter
	interval time.Duration

	mu          sync.Mutex
	backedOff   bool
	cancel      context.CancelFunc
}

// minInterval and maxInterval bound the configurable polling interval
// (60-300s depending on the upstream rate limit).
const (
	minInterval = 60 * time.Second
	maxInterval = 300 * time.Second
)

// NewLoop creates a polling Loop. interval is clamped to [minInterval,
// maxInterval].
func NewLoop(poller Poller, store trigger.Store, sink trigger.Sink, interval time.Duration, logger *slog.Logger) *Loop {
	if interval < minInterval {
		interval = minInterval
	}
	if interval > maxInterval {
		interval = maxInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		poller:   poller,
		store:    store,
		sink:     sink,
		logger:   logger,
		interval: interval,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Start runs the poll loop in a goroutine until Stop is called or ctx is
// cancelled.
func (l *Loop) Start(ctx context.Context, reg *trigger.Registration) {
	ctx, cancel := context.WithCancel(ctx)
	l.mu.Lock()
	l.cancel = cancel
	l.mu.Unlock()

	go l.run(ctx, reg)
}

// Stop halts the loop.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
	}
}

func (l *Loop) run(ctx context.Context, reg *trigger.Registration) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !reg.State.CanAccept() {
				continue
			}
			if err := l.limiter.Wait(ctx); err != nil {
				return
			}
			l.tick(reg)
		}
	}
}

// tick runs a single poll, firing one Event per returned item and
// advancing the resume token only if no rate-limit signal was observed.
// On a rate-limit signal the tick is skipped entirely (no items are
// processed) and the next tick's interval is doubled for one cycle, then
// reverts.
func (l *Loop) tick(reg *trigger.Registration) {
	sinceToken, _ := reg.Detail["resume_token"].(string)

	l.mu.Lock()
	wasBackedOff := l.backedOff
	l.backedOff = false
	l.mu.Unlock()
	if wasBackedOff {
		return
	}

	items, newToken, rateLimited, err := l.poller.Poll(context.Background(), sinceToken, l.poller.MaxItemsPerTick())
	if err != nil {
		l.logger.Error("poll failed", "poller", l.poller.Name(), "flow_id", reg.FlowID, "error", err)
		return
	}
	if rateLimited {
		l.mu.Lock()
		l.backedOff = true
		l.mu.Unlock()
		l.logger.Warn("poll rate limited, skipping this tick and doubling the next interval", "poller", l.poller.Name(), "flow_id", reg.FlowID)
		return
	}

	for _, item := range items {
		event := trigger.Event{
			TriggerType: trigger.TypePoll,
			FlowID:      reg.FlowID,
			UserID:      reg.UserID,
			Payload:     item,
		}
		if err := l.sink.Fire(event); err != nil {
			l.logger.Error("poll event fire failed", "poller", l.poller.Name(), "flow_id", reg.FlowID, "error", err)
		}
	}

	if reg.Detail == nil {
		reg.Detail = map[string]any{}
	}
	reg.Detail["resume_token"] = newToken
	reg.UpdatedAt = time.Now()
	if err := l.store.Save(reg); err != nil {
		l.logger.Error("failed to persist poll resume token", "poller", l.poller.Name(), "flow_id", reg.FlowID, "error", err)
	}
}
