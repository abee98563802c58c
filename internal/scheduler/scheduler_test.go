package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/orbitflow/orbitflow/internal/trigger"
	"github.com/orbitflow/orbitflow/internal/trigger/cron"
	"github.com/orbitflow/orbitflow/internal/trigger/poll"
)

type memStore struct {
	mu    sync.Mutex
	regs  map[uuid.UUID]*trigger.Registration
}

func newMemStore() *memStore {
	return &memStore{regs: map[uuid.UUID]*trigger.Registration{}}
}

func (s *memStore) Save(reg *trigger.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regs[reg.TriggerID] = reg
	return nil
}

func (s *memStore) Get(triggerID uuid.UUID) (*trigger.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.regs[triggerID]
	if !ok {
		return nil, errors.New("not found")
	}
	return reg, nil
}

func (s *memStore) ListByState(state trigger.State) ([]*trigger.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*trigger.Registration
	for _, reg := range s.regs {
		if reg.State == state {
			out = append(out, reg)
		}
	}
	return out, nil
}

func (s *memStore) Delete(triggerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.regs, triggerID)
	return nil
}

type noopSink struct{}

func (noopSink) Fire(event trigger.Event) error { return nil }

type fakePoller struct{ name string }

func (p *fakePoller) Name() string          { return p.name }
func (p *fakePoller) MaxItemsPerTick() int  { return 5 }
func (p *fakePoller) Poll(ctx context.Context, sinceToken string, maxItems int) ([]map[string]any, string, bool, error) {
	return nil, sinceToken, false, nil
}

func newTestScheduler(store trigger.Store) *Scheduler {
	cronSched := cron.New(store, noopSink{}, nil)
	pollers := map[string]poll.Poller{"gmail": &fakePoller{name: "gmail"}}
	return New(cronSched, store, noopSink{}, nil, pollers, time.Minute, nil)
}

func TestScheduler_ArmPollThenDisarmPoll(t *testing.T) {
	store := newMemStore()
	s := newTestScheduler(store)

	reg, err := s.ArmPoll(context.Background(), &fakePoller{name: "gmail"}, uuid.New(), "user-1", map[string]any{"node": "gmail"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg.State != trigger.StateArmed {
		t.Fatalf("expected armed state, got %v", reg.State)
	}

	s.mu.Lock()
	_, running := s.loops[reg.TriggerID]
	s.mu.Unlock()
	if !running {
		t.Fatal("expected a poll loop to be tracked after ArmPoll")
	}

	if err := s.DisarmPoll(reg); err != nil {
		t.Fatalf("unexpected error disarming: %v", err)
	}
	if reg.State != trigger.StateDisarmed {
		t.Fatalf("expected disarmed state, got %v", reg.State)
	}

	s.mu.Lock()
	_, stillRunning := s.loops[reg.TriggerID]
	s.mu.Unlock()
	if stillRunning {
		t.Fatal("expected the poll loop to be removed after DisarmPoll")
	}
}

func TestScheduler_StartResumesArmedPollRegistrations(t *testing.T) {
	store := newMemStore()

	cronReg := &trigger.Registration{
		TriggerID:   uuid.New(),
		FlowID:      uuid.New(),
		UserID:      "user-1",
		TriggerType: trigger.TypeCron,
		Args:        map[string]any{"cron_expression": "*/5 * * * *"},
		State:       trigger.StateArmed,
	}
	pollReg := &trigger.Registration{
		TriggerID:   uuid.New(),
		FlowID:      uuid.New(),
		UserID:      "user-1",
		TriggerType: trigger.TypePoll,
		Args:        map[string]any{"integration": "gmail"},
		State:       trigger.StateArmed,
	}
	unresumableReg := &trigger.Registration{
		TriggerID:   uuid.New(),
		FlowID:      uuid.New(),
		UserID:      "user-1",
		TriggerType: trigger.TypePoll,
		Args:        map[string]any{"integration": "unconfigured-integration"},
		State:       trigger.StateArmed,
	}
	if err := store.Save(cronReg); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(pollReg); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(unresumableReg); err != nil {
		t.Fatal(err)
	}

	s := newTestScheduler(store)
	defer s.Stop()

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s.mu.Lock()
	_, resumed := s.loops[pollReg.TriggerID]
	_, notResumed := s.loops[unresumableReg.TriggerID]
	s.mu.Unlock()
	if !resumed {
		t.Fatal("expected the armed poll registration to resume a loop")
	}
	if notResumed {
		t.Fatal("expected no loop for an integration this process has no poller for")
	}
}
