// Package push implements the shared arm/receive/advance shape for
// change-stream push triggers (Drive, Gmail, GitHub, Slack Events).
// Grounded on original_source/app/handlers/{drive,gmail,github,slack}_trigger_handler.go:
// each source obtains an opaque resume token at arm-time, verifies an
// upstream signature on receive, and advances its token only after
// successful processing — on failure the token is left untouched so the
// next notification re-fetches the same window.
package push

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/orbitflow/orbitflow/internal/trigger"
	"github.com/orbitflow/orbitflow/internal/trigger/cron"
)

// Provider is implemented once per integration (Drive, Gmail, GitHub,
// Slack). Arm performs the upstream subscribe call and returns the
// initial resume token; Verify checks the upstream signature on an
// incoming notification; Extract turns a verified notification body into
// the change set since the stored resume token, and the new token to
// advance to.
type Provider interface {
	Name() string
	Arm(args Args) (resumeToken string, expiresAt time.Time, err error)
	Verify(headers http.Header, body []byte, secret string) error
	Extract(body []byte, sinceToken string) (changes []map[string]any, newToken string, err error)
	// RenewalFraction is the fraction of the channel's lifetime at which
	// a renewal should fire (6/7 for Gmail's 7-day channels).
	RenewalFraction() float64
}

// Args is the schedule() payload common to every push provider.
type Args struct {
	FlowID    uuid.UUID
	UserID    string
	FirstStep map[string]any
	Secret    string // webhook-signing secret, provider-specific
	Extra     map[string]any
}

// Manager owns one Provider and the registrations armed against it,
// including scheduling the periodic renewal tick through the same
// cron.Scheduler used for time triggers.
type Manager struct {
	provider Provider
	store    trigger.Store
	sink     trigger.Sink
	renewals *cron.Scheduler
	logger   *slog.Logger
}

// NewManager creates a push Manager for one provider.
func NewManager(provider Provider, store trigger.Store, sink trigger.Sink, renewals *cron.Scheduler, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{provider: provider, store: store, sink: sink, renewals: renewals, logger: logger}
}

// Arm subscribes with the upstream service, persists the Registration with
// its initial resume token and expiry, and schedules a renewal job at
// RenewalFraction of the channel's lifetime.
func (m *Manager) Arm(args Args) (*trigger.Registration, error) {
	resumeToken, expiresAt, err := m.provider.Arm(args)
	reg := &trigger.Registration{
		TriggerID:   uuid.New(),
		FlowID:      args.FlowID,
		UserID:      args.UserID,
		TriggerType: trigger.TypePush,
		Args: map[string]any{
			"provider":   m.provider.Name(),
			"first_step": args.FirstStep,
			"secret":     args.Secret,
		},
	}
	if err != nil {
		reg.State = trigger.StateFailed
		_ = m.store.Save(reg)
		return nil, fmt.Errorf("arming %s push channel for flow %s: %w", m.provider.Name(), args.FlowID, err)
	}

	reg.State = trigger.StateArmed
	reg.Detail = map[string]any{
		"resume_token": resumeToken,
		"expires_at":   expiresAt,
		"channel_id":   reg.TriggerID.String(),
	}
	if err := m.store.Save(reg); err != nil {
		return nil, fmt.Errorf("persisting %s push registration: %w", m.provider.Name(), err)
	}

	if m.renewals != nil && !expiresAt.IsZero() {
		m.scheduleRenewal(reg, args, expiresAt)
	}
	return reg, nil
}

// scheduleRenewal arms a one-shot-per-lifetime cron tick at
// RenewalFraction of the interval between now and expiresAt, reusing the
// same channel id so the downstream endpoint binding stays stable.
func (m *Manager) scheduleRenewal(reg *trigger.Registration, args Args, expiresAt time.Time) {
	lifetime := time.Until(expiresAt)
	if lifetime <= 0 {
		return
	}
	renewAt := time.Now().Add(time.Duration(float64(lifetime) * m.provider.RenewalFraction()))
	expr := fmt.Sprintf("%d %d %d %d *", renewAt.Minute(), renewAt.Hour(), renewAt.Day(), int(renewAt.Month()))
	if _, err := m.renewals.Arm(cron.Args{
		CronExpression: expr,
		FlowID:         args.FlowID,
		UserID:         args.UserID,
		FirstStep:      args.FirstStep,
	}); err != nil {
		m.logger.Error("failed to schedule push channel renewal", "flow_id", args.FlowID, "provider", m.provider.Name(), "error", err)
	}
}

// ResumeRenewal re-schedules a channel's renewal tick after a process
// restart, reading the expiry this provider stored in Detail at Arm time.
// A registration with no expires_at (or one whose provider doesn't set
// one) has nothing to resume. internal/scheduler calls this once per
// StateArmed push registration belonging to this provider at startup,
// since the in-memory renewal schedule built by Arm doesn't survive a
// restart even though the Registration itself does.
func (m *Manager) ResumeRenewal(reg *trigger.Registration) error {
	if m.renewals == nil {
		return nil
	}
	expiresAt, ok := parseExpiresAt(reg.Detail["expires_at"])
	if !ok || expiresAt.IsZero() {
		return nil
	}
	firstStep, _ := reg.Args["first_step"].(map[string]any)
	args := Args{FlowID: reg.FlowID, UserID: reg.UserID, FirstStep: firstStep}
	m.scheduleRenewal(reg, args, expiresAt)
	return nil
}

// parseExpiresAt reads Detail["expires_at"] as either a time.Time (set
// in-process by Arm within the same run) or an RFC3339 string (what it
// becomes once round-tripped through the JSONB-backed trigger store).
func parseExpiresAt(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		return parsed, err == nil
	default:
		return time.Time{}, false
	}
}

// Receive verifies and processes one incoming notification against a
// Registration. On success, the resume token is advanced; on any
// verification or extraction failure, Detail is left untouched so the
// next notification re-fetches the same window.
func (m *Manager) Receive(reg *trigger.Registration, headers http.Header, body []byte) error {
	if !reg.State.CanAccept() {
		return fmt.Errorf("registration %s is %s, not armed", reg.TriggerID, reg.State)
	}

	secret, _ := reg.Args["secret"].(string)
	if err := m.provider.Verify(headers, body, secret); err != nil {
		return fmt.Errorf("verifying %s notification: %w", m.provider.Name(), err)
	}

	sinceToken, _ := reg.Detail["resume_token"].(string)
	changes, newToken, err := m.provider.Extract(body, sinceToken)
	if err != nil {
		return fmt.Errorf("extracting %s changes: %w", m.provider.Name(), err)
	}

	firstStep, _ := reg.Args["first_step"].(map[string]any)
	for _, change := range changes {
		event := trigger.Event{
			TriggerType: trigger.TypePush,
			FlowID:      reg.FlowID,
			UserID:      reg.UserID,
			Payload: map[string]any{
				"first_step":   firstStep,
				"change":       change,
				"trigger_source": m.provider.Name(),
			},
		}
		if err := m.sink.Fire(event); err != nil {
			m.logger.Error("push event fire failed", "flow_id", reg.FlowID, "provider", m.provider.Name(), "error", err)
		}
	}

	reg.Detail["resume_token"] = newToken
	reg.UpdatedAt = time.Now()
	return m.store.Save(reg)
}

// Disarm marks the registration disarmed so events stop being accepted
// locally. It makes no upstream unsubscribe call and leaves any renewal
// job already scheduled in the cron.Scheduler in place.
func (m *Manager) Disarm(reg *trigger.Registration) error {
	reg.State = trigger.StateDisarmed
	return m.store.Save(reg)
}
