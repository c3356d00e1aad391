// Package signal implements the reactive dependency graph of the Veyra
// runtime: plain signals, memoized computed signals, and push-based dirty
// propagation combined with pull-based reads.
//
// Graph mutation (Set, Get, dependent edits, propagation) is confined to a
// single goroutine, typically the program's main loop. Only the registry
// bookkeeping consulted by snapshots is safe to touch concurrently.
package signal

import (
	"errors"
	"fmt"
	"sync"

	"github.com/veyra-lang/runtime/heap"
)

// Signal graph errors.
var (
	ErrSetComputed = errors.New("signal: cannot set a computed signal")
	ErrNilCompute  = errors.New("signal: compute function is required")
	ErrClosed      = errors.New("signal: registry is closed")
)

// nodeCellSize is the heap footprint charged per signal node, mirroring the
// native node record. The cell ties signal lifetime into GC accounting; its
// payload carries no data.
const nodeCellSize = 48

// ComputeFunc produces the value of a computed signal from its dependencies.
type ComputeFunc func() any

// Signal is a reactive node. A plain signal holds a writable value; a
// computed signal derives its value from a compute function and memoizes it
// until a dependency changes.
type Signal struct {
	reg  *Registry
	cell heap.Ptr

	value any

	// dependents is insertion-ordered and duplicate-free.
	dependents []*Signal

	computed       bool
	compute        ComputeFunc
	needsRecompute bool
}

// Registry tracks every live signal and drives change propagation. It is an
// explicit context object bound to one heap; independent registries are
// fully isolated.
type Registry struct {
	h *heap.Heap

	// mu guards the registration list for concurrent snapshots. The graph
	// itself is single-goroutine, see the package comment.
	mu  sync.Mutex
	all []*Signal

	dirty       []*Signal
	propagating bool
	closed      bool
}

// NewRegistry creates a signal registry allocating through h.
func NewRegistry(h *heap.Heap, capacity int) *Registry {
	if capacity <= 0 {
		capacity = 64
	}
	return &Registry{
		h:   h,
		all: make([]*Signal, 0, capacity),
	}
}

// Create allocates a plain signal with the given initial value.
func (r *Registry) Create(initial any) (*Signal, error) {
	if r.isClosed() {
		return nil, ErrClosed
	}

	cell, err := r.h.Alloc(nodeCellSize, 0)
	if err != nil {
		return nil, fmt.Errorf("signal: failed to allocate node cell: %w", err)
	}

	s := &Signal{
		reg:        r,
		cell:       cell,
		value:      initial,
		dependents: make([]*Signal, 0, 8),
	}
	r.register(s)
	return s, nil
}

// CreateComputed allocates a computed signal and eagerly computes its
// initial value before returning.
func (r *Registry) CreateComputed(fn ComputeFunc) (*Signal, error) {
	if r.isClosed() {
		return nil, ErrClosed
	}
	if fn == nil {
		return nil, ErrNilCompute
	}

	cell, err := r.h.Alloc(nodeCellSize, 0)
	if err != nil {
		return nil, fmt.Errorf("signal: failed to allocate node cell: %w", err)
	}

	s := &Signal{
		reg:            r,
		cell:           cell,
		dependents:     make([]*Signal, 0, 8),
		computed:       true,
		compute:        fn,
		needsRecompute: true,
	}
	r.register(s)
	s.recompute()
	return s, nil
}

// Destroy unregisters the signal. The heap cell is not freed immediately:
// reclamation follows the collector's no-reclaim sweep semantics.
func (r *Registry) Destroy(s *Signal) {
	if s == nil {
		return
	}
	r.unregister(s)
}

// Propagate recomputes every dirty computed signal, iterating the dirty
// list exactly once in registration order. Registration order is not a
// topological order: a computed node discovered before one of its upstream
// dependencies may be recomputed stale within the same pass. A pull via
// Get re-establishes consistency.
func (r *Registry) Propagate() {
	if r.propagating {
		return
	}
	r.propagating = true

	for i := 0; i < len(r.dirty); i++ {
		s := r.dirty[i]
		if s != nil && s.computed && s.needsRecompute {
			s.recompute()
		}
	}
	r.dirty = r.dirty[:0]

	r.propagating = false
}

// Len returns the number of registered signals.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.all)
}

// Close drops the registration and dirty lists and refuses further creates.
// Remaining signals are merely unregistered; their heap cells are left to
// the collector.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.all = nil
	r.dirty = nil
}

// Set stores a new value on a plain signal, marks it dirty and runs
// propagation synchronously. Setting a computed signal is an error.
func (s *Signal) Set(value any) error {
	if s.computed {
		return ErrSetComputed
	}

	s.value = value
	s.reg.markDirty(s)
	s.reg.Propagate()
	return nil
}

// Get returns the current value. A computed signal that is flagged for
// recomputation recomputes lazily before returning, so reads are consistent
// even when push propagation has not yet run.
func (s *Signal) Get() any {
	if s.computed && s.needsRecompute {
		s.recompute()
	}
	return s.value
}

// AddDependent appends dep to the dependents list, keeping insertion order
// and rejecting duplicates.
func (s *Signal) AddDependent(dep *Signal) bool {
	if dep == nil {
		return false
	}
	for _, d := range s.dependents {
		if d == dep {
			return true
		}
	}
	s.dependents = append(s.dependents, dep)
	return true
}

// RemoveDependent removes dep from the dependents list.
func (s *Signal) RemoveDependent(dep *Signal) {
	for i, d := range s.dependents {
		if d == dep {
			s.dependents = append(s.dependents[:i], s.dependents[i+1:]...)
			return
		}
	}
}

// DependentCount returns the number of registered dependents.
func (s *Signal) DependentCount() int {
	return len(s.dependents)
}

// IsComputed reports whether this is a computed signal.
func (s *Signal) IsComputed() bool {
	return s.computed
}

// NeedsRecompute reports whether a computed signal is flagged dirty.
func (s *Signal) NeedsRecompute() bool {
	return s.computed && s.needsRecompute
}

// Cell returns the heap cell backing this signal.
func (s *Signal) Cell() heap.Ptr {
	return s.cell
}

func (s *Signal) recompute() {
	if s.compute == nil {
		return
	}
	s.value = s.compute()
	s.needsRecompute = false
}

// markDirty adds s to the dirty list and flags its transitive dependents.
// The presence check both de-duplicates the dirty list and bounds the
// recursion; the graph must be a DAG, true cycles are not detected.
func (r *Registry) markDirty(s *Signal) {
	for _, d := range r.dirty {
		if d == s {
			return
		}
	}
	r.dirty = append(r.dirty, s)

	for _, dep := range s.dependents {
		if dep.computed {
			dep.needsRecompute = true
		}
		r.markDirty(dep)
	}
}

func (r *Registry) register(s *Signal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, s)
}

func (r *Registry) unregister(s *Signal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, cur := range r.all {
		if cur == s {
			r.all = append(r.all[:i], r.all[i+1:]...)
			return
		}
	}
}

func (r *Registry) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
