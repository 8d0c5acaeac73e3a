package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jeertmans/jinglebox/internal/model"
)

// EventType indicates what happened to a plan entry.
type EventType int

const (
	// EventFired indicates an entry reached its fire time and was triggered.
	EventFired EventType = iota
	// EventMissed indicates an entry was past the grace window on wake.
	EventMissed
	// EventReplanned indicates the plan was replaced.
	EventReplanned
)

// Event signals scheduler activity to subscribers.
type Event struct {
	Type  EventType
	Entry model.PlannedJingle
}

// Scheduler sleeps until the next pending fire time and triggers playback.
// One goroutine, single timer armed for the earliest entry.
type Scheduler struct {
	mu     sync.RWMutex
	logger *slog.Logger

	plan   []model.PlannedJingle
	paused bool

	// Entries older than grace on wake are recorded as missed, not played.
	grace time.Duration

	onFire func(model.PlannedJingle)

	subscribers []chan Event

	// replanCh wakes the loop when the plan or pause state changes.
	replanCh chan struct{}
	stopCh   chan struct{}
	doneCh   chan struct{}

	running bool
}

// NewScheduler creates a scheduler with the given grace window.
func NewScheduler(grace time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		logger:   logger,
		grace:    grace,
		replanCh: make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// SetFireHandler sets the callback invoked when an entry fires.
// The callback runs on its own goroutine so slow playback setup cannot
// delay the next fire time.
func (s *Scheduler) SetFireHandler(fn func(model.PlannedJingle)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFire = fn
}

// SetPlan replaces the pending plan.
func (s *Scheduler) SetPlan(plan []model.PlannedJingle) {
	s.mu.Lock()
	s.plan = plan
	s.mu.Unlock()

	s.notify(Event{Type: EventReplanned})
	s.poke()
	s.logger.Debug("plan replaced", "pending", len(plan))
}

// Pending returns a copy of the pending plan entries, earliest first.
func (s *Scheduler) Pending() []model.PlannedJingle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.PlannedJingle, len(s.plan))
	copy(out, s.plan)
	return out
}

// Next returns the next pending entry, or nil when the plan is empty.
func (s *Scheduler) Next() *model.PlannedJingle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.plan) == 0 {
		return nil
	}
	p := s.plan[0]
	return &p
}

// Pause keeps the plan but suppresses firing.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()

	s.poke()
	s.logger.Info("scheduler paused")
}

// Resume re-arms the timer. Entries that became past while paused are
// dropped without playing.
func (s *Scheduler) Resume() {
	now := time.Now()

	s.mu.Lock()
	s.paused = false
	dropped := 0
	for len(s.plan) > 0 && !s.plan[0].FireTime.After(now) {
		s.plan = s.plan[1:]
		dropped++
	}
	s.mu.Unlock()

	s.poke()
	s.logger.Info("scheduler resumed", "dropped", dropped)
}

// Paused reports whether firing is suppressed.
func (s *Scheduler) Paused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused
}

// Subscribe returns a channel that receives scheduler events.
func (s *Scheduler) Subscribe() <-chan Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Event, 10)
	s.subscribers = append(s.subscribers, ch)
	return ch
}

// Start launches the timer loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.loop(ctx)

	s.logger.Debug("scheduler started", "grace", s.grace)
	return nil
}

// Stop terminates the timer loop and waits for it to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	<-s.doneCh
	s.logger.Debug("scheduler stopped")
}

// loop arms a single timer for the earliest pending entry, fires due
// entries on wake, and re-arms. A replan or pause/resume re-evaluates
// immediately.
func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.doneCh)

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		wait, armed := s.nextWait(time.Now())
		if armed {
			timer.Reset(wait)
		}

		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-s.replanCh:
			if armed && !timer.Stop() {
				<-timer.C
			}
		case <-timer.C:
			s.fireDue(time.Now())
		}
	}
}

// nextWait returns how long to sleep until the next entry, and whether a
// timer should be armed at all.
func (s *Scheduler) nextWait(now time.Time) (time.Duration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.paused || len(s.plan) == 0 {
		return 0, false
	}
	wait := s.plan[0].FireTime.Sub(now)
	if wait < 0 {
		wait = 0
	}
	return wait, true
}

// fireDue pops and triggers every entry whose fire time has passed.
func (s *Scheduler) fireDue(now time.Time) {
	for {
		s.mu.Lock()
		if s.paused || len(s.plan) == 0 || s.plan[0].FireTime.After(now) {
			s.mu.Unlock()
			return
		}
		entry := s.plan[0]
		s.plan = s.plan[1:]
		onFire := s.onFire
		s.mu.Unlock()

		if s.grace > 0 && now.Sub(entry.FireTime) > s.grace {
			s.logger.Warn("jingle missed its fire time",
				"name", entry.Jingle.DisplayName(),
				"planned", entry.FireTime,
				"late_by", now.Sub(entry.FireTime))
			s.notify(Event{Type: EventMissed, Entry: entry})
			continue
		}

		s.logger.Info("firing jingle",
			"name", entry.Jingle.DisplayName(),
			"file", entry.Jingle.File,
			"planned", entry.FireTime)

		if onFire != nil {
			go onFire(entry)
		}
		s.notify(Event{Type: EventFired, Entry: entry})
	}
}

// poke wakes the loop without blocking.
func (s *Scheduler) poke() {
	select {
	case s.replanCh <- struct{}{}:
	default:
	}
}

// notify sends an event to all subscribers (non-blocking).
func (s *Scheduler) notify(event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// Channel full, skip
		}
	}
}
