package actor

import (
	"sync"
	"sync/atomic"
)

// Actor is a registered message-processing unit: a behavior, an exclusively
// owned opaque state, and a dedicated bounded mailbox. Lifecycle is
// Created → Running → Stopped; Stopped is terminal.
type Actor struct {
	id       ID
	behavior Behavior
	mailbox  *Mailbox

	// stateMu guards the opaque state pointer. The state is owned by the
	// actor: only its behavior should replace it, readers get snapshots.
	stateMu sync.Mutex
	state   any

	running atomic.Bool
	stopped atomic.Bool

	// inflight is the per-actor execution guard: while set, the scheduler
	// will not dispatch another message, so no two messages for the same
	// actor ever run concurrently.
	inflight  atomic.Bool
	processed atomic.Uint64
}

func newActor(id ID, behavior Behavior, state any, mailboxSize int) *Actor {
	a := &Actor{
		id:       id,
		behavior: behavior,
		state:    state,
		mailbox:  NewMailbox(mailboxSize),
	}
	a.running.Store(true)
	return a
}

// ID returns the actor's unique identifier.
func (a *Actor) ID() ID {
	return a.id
}

// State returns the actor's current opaque state.
func (a *Actor) State() any {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.state
}

// SetState replaces the actor's opaque state. Intended to be called from
// the actor's own behavior.
func (a *Actor) SetState(state any) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	a.state = state
}

// Mailbox returns the actor's bounded mailbox.
func (a *Actor) Mailbox() *Mailbox {
	return a.mailbox
}

// IsRunning reports whether the actor accepts scheduling.
func (a *Actor) IsRunning() bool {
	return a.running.Load() && !a.stopped.Load()
}

// Stats returns a snapshot of the actor's counters.
func (a *Actor) Stats() ActorStats {
	return ActorStats{
		ID:         a.id,
		Processed:  a.processed.Load(),
		MailboxLen: a.mailbox.Len(),
		Running:    a.IsRunning(),
	}
}

// process runs the behavior for one envelope. The envelope is dropped when
// the behavior returns; the payload stays sender-owned.
func (a *Actor) process(msg *Message) {
	if a.behavior != nil && a.IsRunning() {
		a.behavior.Receive(a, msg)
		a.processed.Add(1)
	}
}

// stop transitions the actor to its terminal state.
func (a *Actor) stop() {
	a.running.Store(false)
	a.stopped.Store(true)
}
