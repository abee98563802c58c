package push

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/orbitflow/orbitflow/internal/trigger"
	"github.com/orbitflow/orbitflow/internal/trigger/cron"
)

type fakeStore struct {
	saved []*trigger.Registration
}

func (s *fakeStore) Save(reg *trigger.Registration) error {
	cp := *reg
	s.saved = append(s.saved, &cp)
	return nil
}
func (s *fakeStore) Get(uuid.UUID) (*trigger.Registration, error)               { return nil, nil }
func (s *fakeStore) ListByState(trigger.State) ([]*trigger.Registration, error) { return nil, nil }
func (s *fakeStore) Delete(uuid.UUID) error                                     { return nil }

type fakeSink struct {
	events []trigger.Event
}

func (s *fakeSink) Fire(event trigger.Event) error {
	s.events = append(s.events, event)
	return nil
}

// fakeProvider is a scripted Provider for exercising Manager without a
// real upstream subscription.
type fakeProvider struct {
	armToken        string
	armExpiry       time.Time
	armErr          error
	verifyErr       error
	extractChanges  []map[string]any
	extractToken    string
	extractErr      error
	renewalFraction float64
}

func (p *fakeProvider) Name() string { return "fake" }
func (p *fakeProvider) Arm(args Args) (string, time.Time, error) {
	return p.armToken, p.armExpiry, p.armErr
}
func (p *fakeProvider) Verify(headers http.Header, body []byte, secret string) error {
	return p.verifyErr
}
func (p *fakeProvider) Extract(body []byte, sinceToken string) ([]map[string]any, string, error) {
	return p.extractChanges, p.extractToken, p.extractErr
}
func (p *fakeProvider) RenewalFraction() float64 { return p.renewalFraction }

func TestArm_PersistsTokenAndExpiry(t *testing.T) {
	expiry := time.Now().Add(time.Hour)
	provider := &fakeProvider{armToken: "tok-1", armExpiry: expiry}
	store := &fakeStore{}
	m := NewManager(provider, store, &fakeSink{}, nil, nil)

	reg, err := m.Arm(Args{FlowID: uuid.New(), UserID: "u1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg.State != trigger.StateArmed {
		t.Fatalf("expected StateArmed, got %v", reg.State)
	}
	if reg.Detail["resume_token"] != "tok-1" {
		t.Fatalf("expected resume_token=tok-1, got %v", reg.Detail["resume_token"])
	}
	if len(store.saved) != 1 {
		t.Fatalf("expected one persisted registration, got %d", len(store.saved))
	}
}

func TestArm_SubscribeFailureMarksFailed(t *testing.T) {
	provider := &fakeProvider{armErr: fakeErr("subscribe failed")}
	store := &fakeStore{}
	m := NewManager(provider, store, &fakeSink{}, nil, nil)

	_, err := m.Arm(Args{FlowID: uuid.New()})
	if err == nil {
		t.Fatal("expected an error when the upstream subscribe call fails")
	}
	if len(store.saved) != 1 || store.saved[0].State != trigger.StateFailed {
		t.Fatalf("expected a single persisted StateFailed registration, got %+v", store.saved)
	}
}

func TestReceive_AdvancesTokenOnSuccessAndFiresOnePerChange(t *testing.T) {
	provider := &fakeProvider{
		extractChanges: []map[string]any{{"id": "a"}, {"id": "b"}},
		extractToken:   "tok-2",
	}
	store := &fakeStore{}
	sink := &fakeSink{}
	m := NewManager(provider, store, sink, nil, nil)

	reg := &trigger.Registration{
		TriggerID: uuid.New(),
		FlowID:    uuid.New(),
		State:     trigger.StateArmed,
		Detail:    map[string]any{"resume_token": "tok-1"},
	}

	if err := m.Receive(reg, http.Header{}, []byte(`{}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sink.events) != 2 {
		t.Fatalf("expected 2 fired events, got %d", len(sink.events))
	}
	if reg.Detail["resume_token"] != "tok-2" {
		t.Fatalf("expected resume_token advanced to tok-2, got %v", reg.Detail["resume_token"])
	}
}

// TestReceive_VerifyFailureLeavesTokenUntouched is the documented
// on-failure contract: a bad signature must not advance the resume token,
// so the next notification re-fetches the same window.
func TestReceive_VerifyFailureLeavesTokenUntouched(t *testing.T) {
	provider := &fakeProvider{verifyErr: fakeErr("bad signature")}
	sink := &fakeSink{}
	m := NewManager(provider, &fakeStore{}, sink, nil, nil)

	reg := &trigger.Registration{
		TriggerID: uuid.New(),
		FlowID:    uuid.New(),
		State:     trigger.StateArmed,
		Detail:    map[string]any{"resume_token": "tok-1"},
	}

	if err := m.Receive(reg, http.Header{}, []byte(`{}`)); err == nil {
		t.Fatal("expected an error on signature verification failure")
	}
	if len(sink.events) != 0 {
		t.Fatalf("expected no events fired on verify failure, got %d", len(sink.events))
	}
	if reg.Detail["resume_token"] != "tok-1" {
		t.Fatalf("expected resume_token untouched on verify failure, got %v", reg.Detail["resume_token"])
	}
}

func TestReceive_ExtractFailureLeavesTokenUntouched(t *testing.T) {
	provider := &fakeProvider{extractErr: fakeErr("extract failed")}
	m := NewManager(provider, &fakeStore{}, &fakeSink{}, nil, nil)

	reg := &trigger.Registration{
		TriggerID: uuid.New(),
		FlowID:    uuid.New(),
		State:     trigger.StateArmed,
		Detail:    map[string]any{"resume_token": "tok-1"},
	}

	if err := m.Receive(reg, http.Header{}, []byte(`{}`)); err == nil {
		t.Fatal("expected an error on extraction failure")
	}
	if reg.Detail["resume_token"] != "tok-1" {
		t.Fatalf("expected resume_token untouched on extract failure, got %v", reg.Detail["resume_token"])
	}
}

func TestReceive_RejectsNonArmedRegistration(t *testing.T) {
	m := NewManager(&fakeProvider{}, &fakeStore{}, &fakeSink{}, nil, nil)
	reg := &trigger.Registration{TriggerID: uuid.New(), State: trigger.StateDisarmed}

	if err := m.Receive(reg, http.Header{}, []byte(`{}`)); err == nil {
		t.Fatal("expected Receive to reject a disarmed registration")
	}
}

func TestDisarm_MarksDisarmed(t *testing.T) {
	store := &fakeStore{}
	m := NewManager(&fakeProvider{}, store, &fakeSink{}, nil, nil)
	reg := &trigger.Registration{TriggerID: uuid.New(), State: trigger.StateArmed}

	if err := m.Disarm(reg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg.State != trigger.StateDisarmed {
		t.Fatalf("expected StateDisarmed, got %v", reg.State)
	}
}

func TestParseExpiresAt_HandlesTimeAndRFC3339String(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	if parsed, ok := parseExpiresAt(now); !ok || !parsed.Equal(now) {
		t.Fatalf("expected a time.Time value to parse through unchanged, got %v ok=%v", parsed, ok)
	}
	asString := now.Format(time.RFC3339)
	if parsed, ok := parseExpiresAt(asString); !ok || !parsed.Equal(now) {
		t.Fatalf("expected an RFC3339 string to parse to %v, got %v ok=%v", now, parsed, ok)
	}
	if _, ok := parseExpiresAt("not a time"); ok {
		t.Fatal("expected a malformed string to fail to parse")
	}
	if _, ok := parseExpiresAt(42); ok {
		t.Fatal("expected a non-time, non-string value to fail to parse")
	}
}

// TestArm_SchedulesRenewalAtFraction confirms a renewal job is armed in the
// shared cron.Scheduler when the provider reports an expiry.
func TestArm_SchedulesRenewalAtFraction(t *testing.T) {
	provider := &fakeProvider{
		armToken:        "tok-1",
		armExpiry:       time.Now().Add(time.Hour),
		renewalFraction: 6.0 / 7.0,
	}
	renewalStore := &fakeStore{}
	renewals := cron.New(renewalStore, &fakeSink{}, nil)
	flowID := uuid.New()
	m := NewManager(provider, &fakeStore{}, &fakeSink{}, renewals, nil)

	if _, err := m.Arm(Args{FlowID: flowID, UserID: "u1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(renewalStore.saved) != 1 || renewalStore.saved[0].State != trigger.StateArmed {
		t.Fatalf("expected one armed renewal job in the shared cron.Scheduler, got %+v", renewalStore.saved)
	}
}

// TestResumeRenewal_NoExpiryIsANoop confirms a registration without a
// stored expiry has nothing to resume, rather than erroring.
func TestResumeRenewal_NoExpiryIsANoop(t *testing.T) {
	renewals := cron.New(&fakeStore{}, &fakeSink{}, nil)
	m := NewManager(&fakeProvider{}, &fakeStore{}, &fakeSink{}, renewals, nil)
	reg := &trigger.Registration{FlowID: uuid.New(), Detail: map[string]any{}}

	if err := m.ResumeRenewal(reg); err != nil {
		t.Fatalf("expected no error when expires_at is absent, got %v", err)
	}
}

type fakeErrT string

func (e fakeErrT) Error() string { return string(e) }

func fakeErr(msg string) error { return fakeErrT(msg) }
