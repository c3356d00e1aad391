// Package actor implements the Veyra runtime's actor system: a registry of
// actors with bounded mailboxes, a round-robin scheduler, and a worker pool.
//
// Scheduling dispatches each popped message onto the worker pool while a
// per-actor execution guard is held, so messages for one actor are strictly
// serialized in mailbox order while distinct actors run in parallel. The
// scheduler is event-driven by default, woken by mailbox activity; a fixed
// 1 ms polling loop is available as a configured fallback.
package actor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// task pairs a dequeued envelope with its target actor for the worker pool.
type task struct {
	actor *Actor
	msg   *Message
}

// System is the actor runtime: registry, scheduler and worker pool. It is
// an explicit context object; independent systems are fully isolated.
type System struct {
	cfg Config

	// mu guards the registry and pairs with the work condition variable.
	mu     sync.Mutex
	work   *sync.Cond
	actors []*Actor
	nextID ID

	running    atomic.Bool
	terminated atomic.Bool

	// pollNanos is the polling scheduler period, adjustable at runtime.
	pollNanos atomic.Int64

	tasks      chan task
	dispatched atomic.Uint64

	schedWg  sync.WaitGroup
	workerWg sync.WaitGroup
}

// NewSystem creates an actor system with the given configuration. Zero
// fields fall back to defaults.
func NewSystem(cfg Config) *System {
	def := DefaultConfig()
	if cfg.MaxActors <= 0 {
		cfg.MaxActors = def.MaxActors
	}
	if cfg.MailboxSize <= 0 {
		cfg.MailboxSize = def.MailboxSize
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = def.WorkerCount
	}
	if cfg.SchedulerMode == "" {
		cfg.SchedulerMode = def.SchedulerMode
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}

	s := &System{
		cfg:    cfg,
		actors: make([]*Actor, 0, cfg.MaxActors),
	}
	s.work = sync.NewCond(&s.mu)
	s.pollNanos.Store(int64(cfg.PollInterval))
	return s
}

// SetPollInterval replaces the polling scheduler period. Non-positive values
// are ignored. Has no effect in event mode; configuration reloads use it.
func (s *System) SetPollInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	s.pollNanos.Store(int64(d))
}

// Start launches the scheduler and the worker pool.
func (s *System) Start() error {
	if s.terminated.Load() {
		return ErrStopped
	}
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("actor: system already running")
	}

	s.tasks = make(chan task, s.cfg.WorkerCount)

	s.workerWg.Add(s.cfg.WorkerCount)
	for i := 0; i < s.cfg.WorkerCount; i++ {
		go s.worker()
	}

	s.schedWg.Add(1)
	if s.cfg.SchedulerMode == SchedulerPoll {
		go s.pollSchedule()
	} else {
		go s.eventSchedule()
	}

	return nil
}

// Create registers a new actor with the given behavior and initial state.
// It fails when the behavior is absent, the registry is at capacity, or the
// system has been shut down.
func (s *System) Create(behavior Behavior, state any) (*Actor, error) {
	if s.terminated.Load() {
		return nil, ErrStopped
	}
	if behavior == nil {
		return nil, ErrNilBehavior
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.actors) >= s.cfg.MaxActors {
		return nil, ErrRegistryFull
	}

	s.nextID++
	a := newActor(s.nextID, behavior, state, s.cfg.MailboxSize)
	s.actors = append(s.actors, a)
	return a, nil
}

// Destroy stops the actor, drains and closes its mailbox, and removes it
// from the registry. Destroying a nil or already removed actor is a no-op.
func (s *System) Destroy(a *Actor) {
	if a == nil {
		return
	}

	a.stop()
	a.mailbox.Close()
	a.mailbox.Drain()

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.actors {
		if cur == a {
			s.actors = append(s.actors[:i], s.actors[i+1:]...)
			return
		}
	}
}

// Send enqueues a message onto the actor's mailbox, blocking while the
// mailbox is full and the system is running. It returns false when the
// system is not running or stops while the caller is blocked.
func (s *System) Send(a *Actor, msg *Message) bool {
	if a == nil || msg == nil || !s.running.Load() {
		return false
	}

	if !a.mailbox.Put(msg) {
		return false
	}

	s.mu.Lock()
	s.work.Signal()
	s.mu.Unlock()
	return true
}

// FindByID returns the registered actor with the given ID.
func (s *System) FindByID(id ID) (*Actor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.actors {
		if a.id == id {
			return a, true
		}
	}
	return nil, false
}

// Count returns the current registry size.
func (s *System) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.actors)
}

// IsRunning reports whether the scheduler is active.
func (s *System) IsRunning() bool {
	return s.running.Load()
}

// Stats returns a snapshot of system-wide counters.
func (s *System) Stats() SystemStats {
	return SystemStats{
		Actors:     s.Count(),
		Dispatched: s.dispatched.Load(),
		Running:    s.running.Load(),
	}
}

// Stop halts the scheduler and worker pool. Every mailbox is closed and all
// blocked senders are woken with a failed send; in-flight behaviors finish
// before the workers exit. Stop is idempotent.
func (s *System) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}

	s.mu.Lock()
	s.work.Broadcast()
	snapshot := make([]*Actor, len(s.actors))
	copy(snapshot, s.actors)
	s.mu.Unlock()

	for _, a := range snapshot {
		a.mailbox.Close()
	}

	s.schedWg.Wait()
	close(s.tasks)
	s.workerWg.Wait()
}

// Shutdown stops the system and destroys every remaining actor: mailboxes
// are drained and closed, the registry is released. The context bounds the
// wait for in-flight work.
func (s *System) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.shutdown()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *System) shutdown() {
	s.Stop()

	s.mu.Lock()
	snapshot := s.actors
	s.actors = nil
	s.mu.Unlock()

	for _, a := range snapshot {
		a.stop()
		a.mailbox.Close()
		a.mailbox.Drain()
	}

	s.terminated.Store(true)
}

// eventSchedule waits on the work condition variable and performs a
// round-robin dispatch pass whenever a mailbox gains a message or a worker
// finishes an execution.
func (s *System) eventSchedule() {
	defer s.schedWg.Done()

	for s.running.Load() {
		if s.dispatchRound() > 0 {
			continue
		}

		s.mu.Lock()
		for s.running.Load() && !s.runnableLocked() {
			s.work.Wait()
		}
		s.mu.Unlock()
	}
}

// pollSchedule scans the registry on a fixed interval. Latency is bounded
// by the poll period at the cost of idle wakeups.
func (s *System) pollSchedule() {
	defer s.schedWg.Done()

	for s.running.Load() {
		s.dispatchRound()
		time.Sleep(time.Duration(s.pollNanos.Load()))
	}
}

// dispatchRound inspects every actor once in registry order and dispatches
// at most one message per actor to the worker pool. Actors with an
// execution already in flight are skipped, preserving per-actor ordering.
func (s *System) dispatchRound() int {
	s.mu.Lock()
	snapshot := make([]*Actor, len(s.actors))
	copy(snapshot, s.actors)
	s.mu.Unlock()

	dispatched := 0
	for _, a := range snapshot {
		if !s.running.Load() {
			break
		}
		if !a.IsRunning() || a.inflight.Load() {
			continue
		}

		msg, ok := a.mailbox.TryGet()
		if !ok {
			continue
		}

		a.inflight.Store(true)
		s.tasks <- task{actor: a, msg: msg}
		s.dispatched.Add(1)
		dispatched++
	}
	return dispatched
}

func (s *System) runnableLocked() bool {
	for _, a := range s.actors {
		if a.IsRunning() && !a.inflight.Load() && !a.mailbox.IsEmpty() {
			return true
		}
	}
	return false
}

// worker executes dispatched behaviors. The envelope is dropped after the
// behavior returns; completion wakes the scheduler so the actor can be
// considered again.
func (s *System) worker() {
	defer s.workerWg.Done()

	for t := range s.tasks {
		t.actor.process(t.msg)
		t.actor.inflight.Store(false)

		s.mu.Lock()
		s.work.Signal()
		s.mu.Unlock()
	}
}
