package actor

import (
	"errors"
	"time"
)

// ID is the unique identifier of an actor. IDs are assigned monotonically
// starting from 1; 0 is never a valid ID.
type ID uint32

// MessageType tags the category of a message envelope.
type MessageType uint32

// Message is the envelope delivered to an actor's behavior. The envelope is
// owned by the mailbox until dequeued and by the runtime until the behavior
// returns; the payload is always sender-owned and is never touched by the
// runtime after delivery.
type Message struct {
	// Type indicates the message category.
	Type MessageType

	// Payload is the sender-owned message body.
	Payload any

	// Sender is the ID of the sending actor, or 0.
	Sender ID
}

// Behavior handles the messages delivered to an actor. Implementations run
// one message at a time per actor; messages for distinct actors may run
// concurrently on the worker pool.
type Behavior interface {
	Receive(a *Actor, msg *Message)
}

// BehaviorFunc adapts a plain function to the Behavior interface.
type BehaviorFunc func(a *Actor, msg *Message)

// Receive implements Behavior.
func (f BehaviorFunc) Receive(a *Actor, msg *Message) { f(a, msg) }

// SchedulerMode selects how the scheduler discovers pending messages.
type SchedulerMode string

const (
	// SchedulerEvent wakes the scheduler on every enqueue and every
	// completed execution. This is the default.
	SchedulerEvent SchedulerMode = "event"

	// SchedulerPoll scans the registry on a fixed interval. Kept as a
	// fallback for environments where wakeup latency must be bounded by
	// the poll period alone.
	SchedulerPoll SchedulerMode = "poll"
)

// Config contains the tunable parameters of an actor system.
type Config struct {
	// MaxActors caps the registry size.
	MaxActors int

	// MailboxSize is the bounded capacity of every actor mailbox.
	MailboxSize int

	// WorkerCount is the size of the execution worker pool.
	WorkerCount int

	// SchedulerMode selects event-driven or polling dispatch.
	SchedulerMode SchedulerMode

	// PollInterval is the scan period in polling mode.
	PollInterval time.Duration
}

// DefaultConfig returns the default actor system parameters.
func DefaultConfig() Config {
	return Config{
		MaxActors:     1024,
		MailboxSize:   256,
		WorkerCount:   4,
		SchedulerMode: SchedulerEvent,
		PollInterval:  time.Millisecond,
	}
}

// Actor system errors.
var (
	ErrNilBehavior  = errors.New("actor: behavior is required")
	ErrRegistryFull = errors.New("actor: registry is at capacity")
	ErrNotRunning   = errors.New("actor: system is not running")
	ErrStopped      = errors.New("actor: system is stopped")
)

// ActorStats is a snapshot of one actor's counters.
type ActorStats struct {
	// ID of the actor.
	ID ID

	// Processed is the number of messages the behavior has handled.
	Processed uint64

	// MailboxLen is the number of queued messages.
	MailboxLen int

	// Running reports whether the actor accepts scheduling.
	Running bool
}

// SystemStats is a snapshot of system-wide counters.
type SystemStats struct {
	// Actors is the current registry size.
	Actors int

	// Dispatched is the number of messages handed to the worker pool.
	Dispatched uint64

	// Running reports whether the scheduler is active.
	Running bool
}
