package feedback

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/shopspring/decimal"
)

type fakeTimer struct {
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

type manualClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

func (m *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &fakeTimer{at: m.now + d, f: f}
	m.timers = append(m.timers, t)
	return t
}

// Advance moves the clock forward and fires due timers in order.
func (m *manualClock) Advance(d time.Duration) {
	m.mu.Lock()
	m.now += d
	var due []*fakeTimer
	for _, t := range m.timers {
		if !t.stopped && !t.fired && t.at <= m.now {
			t.fired = true
			due = append(due, t)
		}
	}
	m.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.f()
	}
}

func (m *manualClock) pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type erringAdder struct{}

func (erringAdder) AddItem(context.Context, cart.ProductRef, int) error {
	return errors.New("rejected")
}

func product() cart.ProductRef {
	return cart.ProductRef{ID: 1, Title: "Backpack", Price: decimal.RequireFromString("10.00")}
}

func newTestController(clock *manualClock) *Controller {
	return NewController(Timing{AddingDelay: 300 * time.Millisecond, SuccessHold: 1200 * time.Millisecond}, WithScheduler(clock))
}

func TestSequenceRunsThroughPhases(t *testing.T) {
	clock := &manualClock{}
	ctrl := newTestController(clock)
	store := cart.New("s1", cart.NewMemoryStorage())

	if err := ctrl.AddItemWithAnimation(context.Background(), store, product(), 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if store.TotalItems() != 1 {
		t.Fatalf("expected item added immediately, got %d", store.TotalItems())
	}
	if ctrl.Phase() != PhaseAdding || !ctrl.Busy() {
		t.Fatalf("expected adding, got %s", ctrl.Phase())
	}

	clock.Advance(299 * time.Millisecond)
	if ctrl.Phase() != PhaseAdding {
		t.Fatalf("expected adding before 300ms, got %s", ctrl.Phase())
	}
	clock.Advance(time.Millisecond)
	if ctrl.Phase() != PhaseSuccess {
		t.Fatalf("expected success at 300ms, got %s", ctrl.Phase())
	}
	clock.Advance(1200 * time.Millisecond)
	if ctrl.Phase() != PhaseIdle || ctrl.Busy() {
		t.Fatalf("expected idle at 1500ms, got %s", ctrl.Phase())
	}
}

func TestSecondAddCancelsStaleTimers(t *testing.T) {
	clock := &manualClock{}
	ctrl := newTestController(clock)
	store := cart.New("s1", cart.NewMemoryStorage())
	ctx := context.Background()

	_ = ctrl.AddItemWithAnimation(ctx, store, product(), 1)
	clock.Advance(1000 * time.Millisecond)
	if ctrl.Phase() != PhaseSuccess {
		t.Fatalf("expected success, got %s", ctrl.Phase())
	}

	_ = ctrl.AddItemWithAnimation(ctx, store, product(), 1)
	if ctrl.Phase() != PhaseAdding {
		t.Fatalf("expected restart in adding, got %s", ctrl.Phase())
	}
	if clock.pending() != 2 {
		t.Fatalf("expected only the new sequence pending, got %d timers", clock.pending())
	}

	// The first sequence would have gone idle at 1500ms.
	clock.Advance(500 * time.Millisecond)
	if ctrl.Phase() != PhaseSuccess {
		t.Fatalf("stale timer interfered, phase %s", ctrl.Phase())
	}
	clock.Advance(1000 * time.Millisecond)
	if ctrl.Phase() != PhaseIdle {
		t.Fatalf("expected idle, got %s", ctrl.Phase())
	}
	if store.TotalItems() != 2 {
		t.Fatalf("expected 2 items, got %d", store.TotalItems())
	}
}

func TestStaleCallbackIsIgnored(t *testing.T) {
	clock := &manualClock{}
	ctrl := newTestController(clock)
	store := cart.New("s1", cart.NewMemoryStorage())

	_ = ctrl.AddItemWithAnimation(context.Background(), store, product(), 1)
	stale := clock.timers[1]
	_ = ctrl.AddItemWithAnimation(context.Background(), store, product(), 1)

	// A timer that already started running when it was stopped still calls back.
	stale.f()
	if ctrl.Phase() != PhaseAdding {
		t.Fatalf("stale idle callback applied, phase %s", ctrl.Phase())
	}
}

func TestFailedAddDoesNotAnimate(t *testing.T) {
	clock := &manualClock{}
	ctrl := newTestController(clock)

	if err := ctrl.AddItemWithAnimation(context.Background(), erringAdder{}, product(), 1); err == nil {
		t.Fatal("expected add error")
	}
	if ctrl.Phase() != PhaseIdle || clock.pending() != 0 {
		t.Fatalf("expected no sequence, phase %s pending %d", ctrl.Phase(), clock.pending())
	}
}

func TestCloseStopsPendingTimers(t *testing.T) {
	clock := &manualClock{}
	ctrl := newTestController(clock)
	store := cart.New("s1", cart.NewMemoryStorage())
	ch, _ := ctrl.Subscribe()

	_ = ctrl.AddItemWithAnimation(context.Background(), store, product(), 1)
	ctrl.Close()
	if clock.pending() != 0 {
		t.Fatalf("expected timers stopped, %d pending", clock.pending())
	}
	clock.Advance(2 * time.Second)
	if ctrl.Phase() != PhaseIdle {
		t.Fatalf("expected idle after close, got %s", ctrl.Phase())
	}

	var got []Phase
	for p := range ch {
		got = append(got, p)
	}
	if len(got) != 2 || got[0] != PhaseIdle || got[1] != PhaseAdding {
		t.Fatalf("unexpected phases %v", got)
	}

	// Adds after close still reach the cart.
	if err := ctrl.AddItemWithAnimation(context.Background(), store, product(), 1); err != nil {
		t.Fatalf("add after close: %v", err)
	}
	if store.TotalItems() != 2 || ctrl.Phase() != PhaseIdle {
		t.Fatalf("unexpected state after close: items %d phase %s", store.TotalItems(), ctrl.Phase())
	}
}

func TestSubscribeReceivesTransitions(t *testing.T) {
	clock := &manualClock{}
	ctrl := newTestController(clock)
	store := cart.New("s1", cart.NewMemoryStorage())

	ch, cancel := ctrl.Subscribe()
	_ = ctrl.AddItemWithAnimation(context.Background(), store, product(), 1)
	clock.Advance(1500 * time.Millisecond)
	cancel()
	cancel()

	var got []Phase
	for p := range ch {
		got = append(got, p)
	}
	want := []Phase{PhaseIdle, PhaseAdding, PhaseSuccess, PhaseIdle}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestRegistryClosesEvictedControllers(t *testing.T) {
	clock := &manualClock{}
	reg, err := NewRegistry(1, Timing{}, WithScheduler(clock))
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	store := cart.New("s1", cart.NewMemoryStorage())

	first := reg.Get("s1")
	if reg.Get("s1") != first {
		t.Fatal("expected the same controller")
	}
	_ = first.AddItemWithAnimation(context.Background(), store, product(), 1)

	reg.Get("s2")
	if _, ok := reg.Lookup("s1"); ok {
		t.Fatal("expected s1 evicted")
	}
	if clock.pending() != 0 {
		t.Fatalf("evicted controller left %d timers", clock.pending())
	}

	second := reg.Get("s2")
	_ = second.AddItemWithAnimation(context.Background(), store, product(), 1)
	reg.Close()
	if clock.pending() != 0 {
		t.Fatalf("registry close left %d timers", clock.pending())
	}
}

func TestWallClockSequence(t *testing.T) {
	ctrl := NewController(Timing{AddingDelay: 5 * time.Millisecond, SuccessHold: 5 * time.Millisecond})
	store := cart.New("s1", cart.NewMemoryStorage())
	if err := ctrl.AddItemWithAnimation(context.Background(), store, product(), 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for ctrl.Busy() {
		if time.Now().After(deadline) {
			t.Fatalf("sequence did not finish, phase %s", ctrl.Phase())
		}
		time.Sleep(time.Millisecond)
	}
}
