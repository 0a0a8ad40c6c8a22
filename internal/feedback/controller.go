package feedback

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/cart"
)

// Phase is the add-to-cart feedback state shown to the shopper.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseAdding  Phase = "adding"
	PhaseSuccess Phase = "success"
)

const (
	DefaultAddingDelay = 300 * time.Millisecond
	DefaultSuccessHold = 1200 * time.Millisecond

	subscriberBuffer = 8
)

// Timer is a pending scheduled callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type wallClock struct{}

func (wallClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Adder is the cart operation the controller wraps.
type Adder interface {
	AddItem(ctx context.Context, product cart.ProductRef, quantity int) error
}

// Timing holds the delays of the feedback sequence.
type Timing struct {
	AddingDelay time.Duration
	SuccessHold time.Duration
}

func (t Timing) normalized() Timing {
	if t.AddingDelay <= 0 {
		t.AddingDelay = DefaultAddingDelay
	}
	if t.SuccessHold <= 0 {
		t.SuccessHold = DefaultSuccessHold
	}
	return t
}

// Controller sequences idle -> adding -> success -> idle around cart adds for
// one cart session. A new add cancels the timers of the previous sequence and
// restarts it.
type Controller struct {
	mu          sync.Mutex
	timing      Timing
	sched       Scheduler
	phase       Phase
	generation  uint64
	timers      []Timer
	subscribers map[uint64]chan Phase
	nextSub     uint64
	closed      bool
}

// Option configures optional controller behavior.
type Option func(*Controller)

// WithScheduler replaces the wall-clock timer source.
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) {
		if s != nil {
			c.sched = s
		}
	}
}

// NewController starts idle. Zero durations in timing fall back to the defaults.
func NewController(timing Timing, opts ...Option) *Controller {
	c := &Controller{
		timing:      timing.normalized(),
		sched:       wallClock{},
		phase:       PhaseIdle,
		subscribers: make(map[uint64]chan Phase),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// AddItemWithAnimation adds the product through adder and, on success,
// starts a fresh feedback sequence. Add errors are returned without touching
// the phase.
func (c *Controller) AddItemWithAnimation(ctx context.Context, adder Adder, product cart.ProductRef, quantity int) error {
	if err := adder.AddItem(ctx, product, quantity); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}

	c.generation++
	gen := c.generation
	c.stopTimersLocked()
	c.setPhaseLocked(PhaseAdding)
	c.timers = append(c.timers,
		c.sched.AfterFunc(c.timing.AddingDelay, func() { c.advance(gen, PhaseSuccess) }),
		c.sched.AfterFunc(c.timing.AddingDelay+c.timing.SuccessHold, func() { c.advance(gen, PhaseIdle) }),
	)
	return nil
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Busy reports whether a feedback sequence is in progress.
func (c *Controller) Busy() bool {
	return c.Phase() != PhaseIdle
}

// Subscribe streams phase changes, starting with the current phase. Slow
// subscribers miss intermediate phases. The returned func unsubscribes and
// closes the channel.
func (c *Controller) Subscribe() (<-chan Phase, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Phase, subscriberBuffer)
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	ch <- c.phase

	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subscribers[id]; ok {
				delete(c.subscribers, id)
				close(sub)
			}
		})
	}
}

// Close cancels pending timers, resets to idle and ends all subscriptions.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.generation++
	c.stopTimersLocked()
	c.phase = PhaseIdle
	for id, sub := range c.subscribers {
		delete(c.subscribers, id)
		close(sub)
	}
}

func (c *Controller) advance(gen uint64, next Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.generation {
		return
	}
	c.setPhaseLocked(next)
	if next == PhaseIdle {
		c.timers = nil
	}
}

func (c *Controller) setPhaseLocked(next Phase) {
	c.phase = next
	for _, sub := range c.subscribers {
		select {
		case sub <- next:
		default:
		}
	}
}

func (c *Controller) stopTimersLocked() {
	for _, t := range c.timers {
		t.Stop()
	}
	c.timers = nil
}
