// Package cron implements the time-trigger type: scheduling a flow's first
// step against a five-field cron expression and firing a trigger.Event at
// each scheduled instant. Grounded on
// original_source/app/handlers/cron_schedule.go's CronScheduleHandler
// (validate expression, schedule job keyed by flow id, duplicate
// schedules replace) and original_source/app/utils/cron_utils.py for field
// validation, re-expressed with github.com/robfig/cron/v3 in place of the
// original's scheduler-as-injected-argument and hand-rolled grammar check.
package cron

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/orbitflow/orbitflow/internal/trigger"
)

// Args is the schedule() payload for a cron trigger.
type Args struct {
	CronExpression string
	FlowID         uuid.UUID
	UserID         string
	FirstStep      map[string]any
}

// Scheduler owns a running *cron.Cron instance and the flow-id -> entry-id
// map needed to replace a flow's existing schedule rather than stacking a
// second one. One cron entry exists per flow at any time.
type Scheduler struct {
	logger *slog.Logger
	store  trigger.Store
	sink   trigger.Sink

	mu      sync.Mutex
	c       *cron.Cron
	entries map[uuid.UUID]cron.EntryID
}

// New creates a Scheduler. Start must be called before any job fires.
func New(store trigger.Store, sink trigger.Sink, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		logger:  logger,
		store:   store,
		sink:    sink,
		c:       cron.New(),
		entries: make(map[uuid.UUID]cron.EntryID),
	}
}

// Start begins the scheduler's internal goroutine.
func (s *Scheduler) Start() { s.c.Start() }

// Stop halts the scheduler and waits for any in-flight job to finish.
func (s *Scheduler) Stop() { <-s.c.Stop().Done() }

// validateExpression checks the expression has exactly five fields before
// handing it to robfig/cron, so a malformed expression is reported against
// the field it's wrong in rather than a generic parser error.
func validateExpression(expr string) error {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return fmt.Errorf("cron expression %q must have 5 fields (minute hour day month day_of_week), got %d", expr, len(fields))
	}
	return nil
}

// Arm validates the expression, registers a durable Registration, and
// schedules the job. Scheduling a second cron for the same FlowID replaces
// the first (one cron per flow).
func (s *Scheduler) Arm(args Args) (*trigger.Registration, error) {
	if err := validateExpression(args.CronExpression); err != nil {
		return nil, err
	}

	reg := &trigger.Registration{
		TriggerID:   uuid.New(),
		FlowID:      args.FlowID,
		UserID:      args.UserID,
		TriggerType: trigger.TypeCron,
		Args: map[string]any{
			"cron_expression": args.CronExpression,
			"first_step":      args.FirstStep,
		},
		State: trigger.StateNew,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prior, ok := s.entries[args.FlowID]; ok {
		s.c.Remove(prior)
		delete(s.entries, args.FlowID)
	}

	entryID, err := s.c.AddFunc(args.CronExpression, func() { s.fire(args) })
	if err != nil {
		reg.State = trigger.StateFailed
		if serr := s.store.Save(reg); serr != nil {
			s.logger.Error("failed to persist failed cron registration", "flow_id", args.FlowID, "error", serr)
		}
		return nil, fmt.Errorf("scheduling cron job for flow %s: %w", args.FlowID, err)
	}

	s.entries[args.FlowID] = entryID
	reg.State = trigger.StateArmed
	reg.Detail = map[string]any{"job_id": args.FlowID.String()}
	if err := s.store.Save(reg); err != nil {
		return nil, fmt.Errorf("persisting cron registration for flow %s: %w", args.FlowID, err)
	}

	s.logger.Info("cron trigger armed", "flow_id", args.FlowID, "expression", args.CronExpression)
	return reg, nil
}

// Resume re-registers an already-armed registration's cron job in the
// in-memory *cron.Cron after a process restart, without minting a new
// TriggerID or touching the persisted State. internal/scheduler calls this
// once per StateArmed cron registration at startup, since Arm always
// creates a fresh Registration and isn't suited to restoring one that
// already exists in the store.
func (s *Scheduler) Resume(reg *trigger.Registration) error {
	expr, _ := reg.Args["cron_expression"].(string)
	if err := validateExpression(expr); err != nil {
		return fmt.Errorf("resuming cron trigger %s: %w", reg.TriggerID, err)
	}
	firstStep, _ := reg.Args["first_step"].(map[string]any)
	args := Args{CronExpression: expr, FlowID: reg.FlowID, UserID: reg.UserID, FirstStep: firstStep}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prior, ok := s.entries[reg.FlowID]; ok {
		s.c.Remove(prior)
		delete(s.entries, reg.FlowID)
	}
	entryID, err := s.c.AddFunc(expr, func() { s.fire(args) })
	if err != nil {
		return fmt.Errorf("resuming cron job for flow %s: %w", reg.FlowID, err)
	}
	s.entries[reg.FlowID] = entryID
	return nil
}

// Disarm cancels a flow's scheduled job, if one exists, and marks its
// registration disarmed.
func (s *Scheduler) Disarm(reg *trigger.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, ok := s.entries[reg.FlowID]; ok {
		s.c.Remove(entryID)
		delete(s.entries, reg.FlowID)
	}
	reg.State = trigger.StateDisarmed
	return s.store.Save(reg)
}

// fire builds the TriggerEvent for a single scheduled instant and submits
// it to the sink. Missed firings are not replayed — if the process was
// down at the scheduled instant, that tick is simply lost; no catch-up is
// attempted, to avoid a stampede of backlogged firings after downtime.
func (s *Scheduler) fire(args Args) {
	event := trigger.Event{
		TriggerType: trigger.TypeCron,
		FlowID:      args.FlowID,
		UserID:      args.UserID,
		Payload: map[string]any{
			"first_step": args.FirstStep,
		},
	}
	if err := s.sink.Fire(event); err != nil {
		s.logger.Error("cron trigger fire failed", "flow_id", args.FlowID, "error", err)
	}
}
