// Package abi exposes the runtime as a flat, panic-free entry-point surface
// over one process-wide runtime instance. Embedders that cannot hold Go
// objects across a boundary call these functions instead of the package APIs.
//
// Every fallible operation reports failure through a nil or false result.
// Misuse, such as nil handles, setting a computed signal or calling before
// Init, is a reported failure or a no-op, never a crash.
package abi

import (
	"context"
	"sync"

	"github.com/veyra-lang/runtime/actor"
	"github.com/veyra-lang/runtime/boxed"
	"github.com/veyra-lang/runtime/config"
	"github.com/veyra-lang/runtime/heap"
	"github.com/veyra-lang/runtime/runtime"
	"github.com/veyra-lang/runtime/signal"
)

var (
	mu  sync.Mutex
	rt  *runtime.Runtime
	run bool
)

// current returns the process-wide runtime, or nil before Init.
func current() *runtime.Runtime {
	mu.Lock()
	defer mu.Unlock()
	return rt
}

// Init creates the process-wide runtime from cfg. A nil cfg uses defaults.
// A second Init without an intervening Shutdown returns false.
func Init(cfg *config.Config) bool {
	mu.Lock()
	defer mu.Unlock()
	if rt != nil {
		return false
	}

	r, err := runtime.New(cfg)
	if err != nil {
		return false
	}
	rt = r
	return true
}

// Run starts the runtime's subsystems. It returns false before Init or when
// the start fails; calling Run twice returns false.
func Run() bool {
	mu.Lock()
	defer mu.Unlock()
	if rt == nil || run {
		return false
	}
	if err := rt.Start(context.Background()); err != nil {
		return false
	}
	run = true
	return true
}

// Shutdown stops the runtime and releases it. Double shutdown is a no-op.
func Shutdown() {
	mu.Lock()
	r := rt
	started := run
	rt = nil
	run = false
	mu.Unlock()

	if r == nil {
		return
	}
	if started {
		r.Stop(context.Background())
	} else {
		// Never started; release what New reserved.
		r.Signals().Close()
		r.Heap().Close()
	}
}

// Version returns the runtime release string.
func Version() string {
	return runtime.Version()
}

// --- GC ---

// GCAlloc allocates size payload bytes and returns the managed pointer.
func GCAlloc(size int64) (heap.Ptr, bool) {
	r := current()
	if r == nil {
		return heap.Nil, false
	}
	p, err := r.Heap().Alloc(size, 0)
	if err != nil {
		return heap.Nil, false
	}
	return p, true
}

// GCCollect runs one synchronous collection cycle.
func GCCollect() {
	if r := current(); r != nil {
		r.Heap().Collect()
	}
}

// GCAddRoot registers p as always-reachable.
func GCAddRoot(p heap.Ptr) bool {
	r := current()
	if r == nil {
		return false
	}
	return r.Heap().AddRoot(p)
}

// GCRemoveRoot unregisters p from the root set.
func GCRemoveRoot(p heap.Ptr) {
	if r := current(); r != nil {
		r.Heap().RemoveRoot(p)
	}
}

// GCStats returns a snapshot of the heap counters.
func GCStats() (heap.Stats, bool) {
	r := current()
	if r == nil {
		return heap.Stats{}, false
	}
	return r.Heap().Stats(), true
}

// --- Signals ---

// SignalCreate creates a plain signal holding initial.
func SignalCreate(initial any) *signal.Signal {
	r := current()
	if r == nil {
		return nil
	}
	s, err := r.Signals().Create(initial)
	if err != nil {
		return nil
	}
	return s
}

// ComputedCreate creates a computed signal evaluated by fn.
func ComputedCreate(fn signal.ComputeFunc) *signal.Signal {
	r := current()
	if r == nil {
		return nil
	}
	s, err := r.Signals().CreateComputed(fn)
	if err != nil {
		return nil
	}
	return s
}

// ComputedDestroy removes the computed signal from the graph.
func ComputedDestroy(s *signal.Signal) {
	SignalDestroy(s)
}

// ComputedGet reads a computed signal's value, recomputing it when stale.
func ComputedGet(s *signal.Signal) any {
	return SignalGet(s)
}

// SignalDestroy removes the signal from the graph.
func SignalDestroy(s *signal.Signal) {
	r := current()
	if r == nil || s == nil {
		return
	}
	r.Signals().Destroy(s)
}

// SignalSet writes a plain signal's value and propagates. Setting a nil or
// computed signal reports failure.
func SignalSet(s *signal.Signal, value any) bool {
	if current() == nil || s == nil {
		return false
	}
	return s.Set(value) == nil
}

// SignalGet reads a signal's value, recomputing a stale computed signal.
func SignalGet(s *signal.Signal) any {
	if current() == nil || s == nil {
		return nil
	}
	return s.Get()
}

// SignalAddDependent links dep so it is refreshed when s changes.
func SignalAddDependent(s, dep *signal.Signal) bool {
	if current() == nil || s == nil || dep == nil {
		return false
	}
	return s.AddDependent(dep)
}

// --- Actors ---

// ActorCreate registers an actor with the given behavior and initial state.
func ActorCreate(behavior actor.Behavior, state any) *actor.Actor {
	r := current()
	if r == nil {
		return nil
	}
	a, err := r.Actors().Create(behavior, state)
	if err != nil {
		return nil
	}
	return a
}

// ActorDestroy stops the actor and removes it from the registry.
func ActorDestroy(a *actor.Actor) {
	if r := current(); r != nil {
		r.Actors().Destroy(a)
	}
}

// ActorSend enqueues a message for the actor, blocking on a full mailbox.
func ActorSend(a *actor.Actor, msgType actor.MessageType, payload any) bool {
	r := current()
	if r == nil || a == nil {
		return false
	}
	return r.Actors().Send(a, &actor.Message{Type: msgType, Payload: payload})
}

// ActorState returns the actor's private state.
func ActorState(a *actor.Actor) any {
	if current() == nil || a == nil {
		return nil
	}
	return a.State()
}

// ActorCount returns the number of registered actors.
func ActorCount() int {
	r := current()
	if r == nil {
		return 0
	}
	return r.Actors().Count()
}

// --- Boxed values ---

// ArrayCreate allocates an array of count elements of elemSize bytes.
func ArrayCreate(count, elemSize int64) (heap.Ptr, bool) {
	r := current()
	if r == nil {
		return heap.Nil, false
	}
	p, err := boxed.ArrayCreate(r.Heap(), count, elemSize)
	if err != nil {
		return heap.Nil, false
	}
	return p, true
}

// ArrayLength returns the element count of the array at p.
func ArrayLength(p heap.Ptr) int64 {
	r := current()
	if r == nil {
		return 0
	}
	return boxed.ArrayLength(r.Heap(), p)
}

// ArrayGet returns the element at index, or nil when out of bounds.
func ArrayGet(p heap.Ptr, index int64) []byte {
	r := current()
	if r == nil {
		return nil
	}
	return boxed.ArrayGet(r.Heap(), p, index)
}

// ArraySet copies value into the element at index.
func ArraySet(p heap.Ptr, index int64, value []byte) bool {
	r := current()
	if r == nil {
		return false
	}
	return boxed.ArraySet(r.Heap(), p, index, value)
}

// StringCreate allocates a boxed string holding s.
func StringCreate(s string) (heap.Ptr, bool) {
	r := current()
	if r == nil {
		return heap.Nil, false
	}
	p, err := boxed.StringCreate(r.Heap(), s)
	if err != nil {
		return heap.Nil, false
	}
	return p, true
}

// StringGet returns the contents of the boxed string at p.
func StringGet(p heap.Ptr) string {
	r := current()
	if r == nil {
		return ""
	}
	return boxed.StringGet(r.Heap(), p)
}

// StringLength returns the byte length of the boxed string at p.
func StringLength(p heap.Ptr) int64 {
	r := current()
	if r == nil {
		return 0
	}
	return boxed.StringLength(r.Heap(), p)
}

// ObjectCreate allocates an empty key/value object.
func ObjectCreate() (heap.Ptr, bool) {
	r := current()
	if r == nil {
		return heap.Nil, false
	}
	p, err := boxed.ObjectCreate(r.Heap())
	if err != nil {
		return heap.Nil, false
	}
	return p, true
}

// ObjectSet stores value under key.
func ObjectSet(p heap.Ptr, key string, value int64) bool {
	r := current()
	if r == nil {
		return false
	}
	return boxed.ObjectSet(r.Heap(), p, key, value)
}

// ObjectGet returns the value stored under key.
func ObjectGet(p heap.Ptr, key string) (int64, bool) {
	r := current()
	if r == nil {
		return 0, false
	}
	return boxed.ObjectGet(r.Heap(), p, key)
}
