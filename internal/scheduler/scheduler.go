// Package scheduler wires together the T2 scheduler process: the single
// cron.Cron instance cron triggers and push-channel renewals both run on,
// the poll loops bound to currently-armed poll registrations, and the
// startup resume pass that restores every armed registration's in-memory
// schedule after a restart (a fresh cron.Scheduler/push.Manager/poll.Loop
// starts with nothing scheduled; only the database remembers what was
// armed). Grounded on codeready-toolchain-tarsy's cmd/tarsy/main.go
// startup-ordering style (initialize dependencies, then hand them to
// whatever owns the long-running loop) generalized from a single HTTP
// server bootstrap to this repo's trigger-type fan-out.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/orbitflow/orbitflow/internal/trigger"
	"github.com/orbitflow/orbitflow/internal/trigger/cron"
	"github.com/orbitflow/orbitflow/internal/trigger/poll"
	"github.com/orbitflow/orbitflow/internal/trigger/push"
)

// Scheduler owns every time-driven trigger runtime: the shared cron.Cron
// instance, one push.Manager per configured provider, and the set of
// currently-running poll loops.
type Scheduler struct {
	logger *slog.Logger
	store  trigger.Store
	sink   trigger.Sink

	cronSched *cron.Scheduler
	push      map[string]*push.Manager
	pollers   map[string]poll.Poller
	pollInterval time.Duration

	mu    sync.Mutex
	loops map[uuid.UUID]*poll.Loop
}

// New creates a Scheduler. cronSched must already exist — push.Manager
// construction needs it to schedule renewals, so the caller builds it
// first and passes it in rather than this package owning construction
// order for every trigger type.
func New(cronSched *cron.Scheduler, store trigger.Store, sink trigger.Sink, pushManagers map[string]*push.Manager, pollers map[string]poll.Poller, pollInterval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if pushManagers == nil {
		pushManagers = map[string]*push.Manager{}
	}
	if pollers == nil {
		pollers = map[string]poll.Poller{}
	}
	return &Scheduler{
		logger:       logger,
		store:        store,
		sink:         sink,
		cronSched:    cronSched,
		push:         pushManagers,
		pollers:      pollers,
		pollInterval: pollInterval,
		loops:        make(map[uuid.UUID]*poll.Loop),
	}
}

// Start begins the shared cron.Cron goroutine, then resumes every
// StateArmed registration's in-memory schedule. A registration whose
// trigger type or provider this process isn't configured for is logged
// and skipped rather than treated as fatal, so one misconfigured
// integration doesn't block every other trigger from resuming.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cronSched.Start()

	armed, err := s.store.ListByState(trigger.StateArmed)
	if err != nil {
		return fmt.Errorf("loading armed registrations: %w", err)
	}

	for _, reg := range armed {
		if err := s.resume(ctx, reg); err != nil {
			s.logger.Error("failed to resume trigger", "trigger_id", reg.TriggerID, "trigger_type", reg.TriggerType, "error", err)
		}
	}
	s.logger.Info("scheduler resumed armed triggers", "count", len(armed))
	return nil
}

func (s *Scheduler) resume(ctx context.Context, reg *trigger.Registration) error {
	switch reg.TriggerType {
	case trigger.TypeCron:
		return s.cronSched.Resume(reg)
	case trigger.TypePush:
		provider, _ := reg.Args["provider"].(string)
		mgr, ok := s.push[provider]
		if !ok {
			return fmt.Errorf("no push provider registered for %q", provider)
		}
		return mgr.ResumeRenewal(reg)
	case trigger.TypePoll:
		return s.resumePoll(ctx, reg)
	case trigger.TypeWebhook:
		// Webhook routes are re-created by internal/trigger/webhook's Handler.Arm
		// at the time a flow registers its webhook, not at scheduler
		// startup — a webhook path has no timer to resume, only an HTTP
		// route, which this process mounts fresh on every boot.
		return nil
	default:
		return fmt.Errorf("unknown trigger type %q", reg.TriggerType)
	}
}

func (s *Scheduler) resumePoll(ctx context.Context, reg *trigger.Registration) error {
	integration, _ := reg.Args["integration"].(string)
	poller, ok := s.pollers[integration]
	if !ok {
		return fmt.Errorf("no poller registered for integration %q", integration)
	}

	loop := poll.NewLoop(poller, s.store, s.sink, s.pollInterval, s.logger)
	s.mu.Lock()
	s.loops[reg.TriggerID] = loop
	s.mu.Unlock()
	loop.Start(ctx, reg)
	return nil
}

// ArmPoll registers a new poll trigger and starts its loop immediately.
// poll.Loop itself exposes no Arm (unlike cron.Scheduler/webhook.Handler/
// push.Manager) since a poll trigger has no upstream subscribe call to
// make — this is the arm operation for poll triggers, owned here rather
// than in internal/trigger/poll, since starting the loop needs the same
// ctx lifetime the rest of the scheduler's loops share.
func (s *Scheduler) ArmPoll(ctx context.Context, poller poll.Poller, flowID uuid.UUID, userID string, firstStep map[string]any) (*trigger.Registration, error) {
	reg := &trigger.Registration{
		TriggerID:   uuid.New(),
		FlowID:      flowID,
		UserID:      userID,
		TriggerType: trigger.TypePoll,
		Args: map[string]any{
			"integration": poller.Name(),
			"first_step":  firstStep,
		},
		State: trigger.StateArmed,
	}
	if err := s.store.Save(reg); err != nil {
		return nil, fmt.Errorf("persisting poll registration for flow %s: %w", flowID, err)
	}

	loop := poll.NewLoop(poller, s.store, s.sink, s.pollInterval, s.logger)
	s.mu.Lock()
	s.loops[reg.TriggerID] = loop
	s.mu.Unlock()
	loop.Start(ctx, reg)
	return reg, nil
}

// DisarmPoll stops a poll trigger's loop and marks its registration
// disarmed. poll.Loop has no Disarm of its own (see ArmPoll's doc); this
// is the matching counterpart kept at the process-wiring layer.
func (s *Scheduler) DisarmPoll(reg *trigger.Registration) error {
	s.mu.Lock()
	loop, ok := s.loops[reg.TriggerID]
	delete(s.loops, reg.TriggerID)
	s.mu.Unlock()

	if ok {
		loop.Stop()
	}
	reg.State = trigger.StateDisarmed
	return s.store.Save(reg)
}

// Stop halts the cron scheduler and every running poll loop.
func (s *Scheduler) Stop() {
	s.cronSched.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, loop := range s.loops {
		loop.Stop()
	}
}
