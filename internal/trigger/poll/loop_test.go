package poll

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/orbitflow/orbitflow/internal/trigger"
)

// fakePoller hands back a scripted sequence of Poll results, one per call,
// repeating the last entry once the script is exhausted.
type fakePoller struct {
	mu      sync.Mutex
	calls   []pollCall
	results []pollResult
}

type pollCall struct {
	sinceToken string
	maxItems   int
}

type pollResult struct {
	items       []map[string]any
	newToken    string
	rateLimited bool
	err         error
}

func (p *fakePoller) Name() string { return "fake" }

func (p *fakePoller) Poll(ctx context.Context, sinceToken string, maxItems int) ([]map[string]any, string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, pollCall{sinceToken: sinceToken, maxItems: maxItems})
	idx := len(p.calls) - 1
	if idx >= len(p.results) {
		idx = len(p.results) - 1
	}
	r := p.results[idx]
	return r.items, r.newToken, r.rateLimited, r.err
}

func (p *fakePoller) MaxItemsPerTick() int { return 5 }

func (p *fakePoller) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

type fakeStore struct {
	mu    sync.Mutex
	saved []*trigger.Registration
}

func (s *fakeStore) Save(reg *trigger.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *reg
	s.saved = append(s.saved, &cp)
	return nil
}
func (s *fakeStore) Get(uuid.UUID) (*trigger.Registration, error)               { return nil, nil }
func (s *fakeStore) ListByState(trigger.State) ([]*trigger.Registration, error) { return nil, nil }
func (s *fakeStore) Delete(uuid.UUID) error                                     { return nil }

type fakeSink struct {
	mu     sync.Mutex
	events []trigger.Event
}

func (s *fakeSink) Fire(event trigger.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *fakeSink) fireCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func newTestReg() *trigger.Registration {
	return &trigger.Registration{
		TriggerID:   uuid.New(),
		FlowID:      uuid.New(),
		TriggerType: trigger.TypePoll,
		State:       trigger.StateArmed,
		Detail:      map[string]any{},
	}
}

// TestTick_FiresOneEventPerItemAndAdvancesToken exercises the normal path:
// items come back newer than sinceToken, each becomes an Event, and the
// resume token is persisted.
func TestTick_FiresOneEventPerItemAndAdvancesToken(t *testing.T) {
	poller := &fakePoller{results: []pollResult{
		{items: []map[string]any{{"id": "1"}, {"id": "2"}}, newToken: "tok-2"},
	}}
	store := &fakeStore{}
	sink := &fakeSink{}
	l := NewLoop(poller, store, sink, minInterval, nil)
	reg := newTestReg()

	l.tick(reg)

	if sink.fireCount() != 2 {
		t.Fatalf("expected 2 fired events, got %d", sink.fireCount())
	}
	if reg.Detail["resume_token"] != "tok-2" {
		t.Fatalf("expected resume_token advanced to tok-2, got %v", reg.Detail["resume_token"])
	}
	if len(store.saved) != 1 {
		t.Fatalf("expected the registration to be persisted once, got %d saves", len(store.saved))
	}
}

// TestTick_RateLimitedSkipsItemsAndBacksOffNextTick is the spec's polling
// backoff scenario: a rate-limited tick fires no events, doesn't advance
// the resume token, and causes exactly the following tick to be skipped
// entirely before polling resumes normally.
func TestTick_RateLimitedSkipsItemsAndBacksOffNextTick(t *testing.T) {
	poller := &fakePoller{results: []pollResult{
		{items: []map[string]any{{"id": "1"}}, rateLimited: true},
		{items: []map[string]any{{"id": "2"}}, newToken: "tok-2"},
	}}
	store := &fakeStore{}
	sink := &fakeSink{}
	l := NewLoop(poller, store, sink, minInterval, nil)
	reg := newTestReg()
	reg.Detail["resume_token"] = "tok-0"

	l.tick(reg) // rate limited: no events, no token advance, arms backoff
	if sink.fireCount() != 0 {
		t.Fatalf("expected no events fired on a rate-limited tick, got %d", sink.fireCount())
	}
	if reg.Detail["resume_token"] != "tok-0" {
		t.Fatalf("expected resume_token untouched after a rate-limited tick, got %v", reg.Detail["resume_token"])
	}

	l.tick(reg) // backed off: skipped entirely, poller not called again
	if poller.callCount() != 1 {
		t.Fatalf("expected the backed-off tick to skip polling entirely, got %d calls", poller.callCount())
	}

	l.tick(reg) // backoff consumed, polling resumes
	if poller.callCount() != 2 {
		t.Fatalf("expected polling to resume on the tick after backoff, got %d calls", poller.callCount())
	}
	if sink.fireCount() != 1 {
		t.Fatalf("expected the resumed tick's item to fire, got %d events", sink.fireCount())
	}
	if reg.Detail["resume_token"] != "tok-2" {
		t.Fatalf("expected resume_token advanced after the resumed tick, got %v", reg.Detail["resume_token"])
	}
}

// TestTick_PollErrorLeavesStateUntouched checks that a poll error neither
// fires events nor advances or persists the resume token.
func TestTick_PollErrorLeavesStateUntouched(t *testing.T) {
	poller := &fakePoller{results: []pollResult{
		{err: context.DeadlineExceeded},
	}}
	store := &fakeStore{}
	sink := &fakeSink{}
	l := NewLoop(poller, store, sink, minInterval, nil)
	reg := newTestReg()
	reg.Detail["resume_token"] = "tok-0"

	l.tick(reg)

	if sink.fireCount() != 0 {
		t.Fatalf("expected no events fired on a poll error, got %d", sink.fireCount())
	}
	if reg.Detail["resume_token"] != "tok-0" {
		t.Fatalf("expected resume_token untouched on a poll error, got %v", reg.Detail["resume_token"])
	}
	if len(store.saved) != 0 {
		t.Fatalf("expected no save on a poll error, got %d", len(store.saved))
	}
}

// TestNewLoop_ClampsIntervalToBounds checks the documented [60s, 300s]
// interval clamp.
func TestNewLoop_ClampsIntervalToBounds(t *testing.T) {
	poller := &fakePoller{results: []pollResult{{}}}
	tooSmall := NewLoop(poller, &fakeStore{}, &fakeSink{}, 0, nil)
	if tooSmall.interval != minInterval {
		t.Fatalf("expected interval clamped up to minInterval, got %v", tooSmall.interval)
	}
	tooBig := NewLoop(poller, &fakeStore{}, &fakeSink{}, 10*minInterval, nil)
	if tooBig.interval != maxInterval {
		t.Fatalf("expected interval clamped down to maxInterval, got %v", tooBig.interval)
	}
}

// TestRun_StopsWhenContextCancelled confirms the loop's goroutine returns
// once its context is cancelled rather than looping forever.
func TestRun_StopsWhenContextCancelled(t *testing.T) {
	poller := &fakePoller{results: []pollResult{{}}}
	l := NewLoop(poller, &fakeStore{}, &fakeSink{}, minInterval, nil)
	reg := newTestReg()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.run(ctx, reg)
		close(done)
	}()
	cancel()
	<-done
}
