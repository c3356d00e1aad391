// Package heap implements the managed heap of the Veyra runtime: a single
// contiguous arena with a bump allocator and a mark-and-sweep collector.
package heap

import (
	"encoding/binary"
	"errors"
	"sync"
)

// Ptr is a managed pointer: the byte offset of an object's payload inside
// the arena. The zero value is the nil pointer.
type Ptr int64

// Nil is the null managed pointer.
const Nil Ptr = 0

// Object flag bits stored in the header.
const (
	FlagMarked uint64 = 1 << iota
	FlagRoot
	FlagArray
	FlagString
	FlagObject
)

// headerSize is the number of bytes reserved in front of every payload:
// flags (8) | payload size (8) | next object (8), little-endian.
const headerSize = 24

// Allocation and heap errors.
var (
	ErrOutOfMemory     = errors.New("heap: arena exhausted")
	ErrBadSize         = errors.New("heap: allocation size must be positive")
	ErrBadTriggerRatio = errors.New("heap: trigger ratio must be within [0, 1]")
	ErrClosed          = errors.New("heap: heap is closed")
)

// Config contains the tunable parameters of a heap instance.
type Config struct {
	// SizeBytes is the size of the arena. The arena is reserved once at
	// creation and never grows.
	SizeBytes int64

	// RootCapacity is the initial capacity of the root set.
	RootCapacity int

	// TriggerRatio is the arena usage fraction above which Alloc runs a
	// collection before bumping the cursor. Zero disables threshold
	// collections; the heap then collects only on exhaustion.
	TriggerRatio float64
}

// DefaultConfig returns the default heap parameters.
func DefaultConfig() Config {
	return Config{
		SizeBytes:    1 << 20, // 1 MiB
		RootCapacity: 64,
	}
}

// Header is the decoded object header preceding every payload.
type Header struct {
	// Flags holds the object flag bits.
	Flags uint64

	// Size is the payload size in bytes.
	Size int64

	// Next is the payload pointer of the next object in the intrusive
	// allocation list, or Nil.
	Next Ptr
}

// Stats is a read-only snapshot of cumulative heap counters.
type Stats struct {
	// HeapSize is the arena size in bytes.
	HeapSize int64

	// UsedBytes is the total bytes consumed by the bump cursor.
	UsedBytes int64

	// FreeBytes is the remaining arena space.
	FreeBytes int64

	// ObjectCount is the number of live (unswept) objects.
	ObjectCount int64

	// CollectionCount is the number of completed collections.
	CollectionCount int64

	// TotalAllocated is the cumulative payload bytes ever allocated.
	TotalAllocated int64

	// TotalCollected is the cumulative payload bytes unlinked by sweeps.
	TotalCollected int64
}

// Heap owns the arena, the bump cursor, the intrusive object list and the
// root set. All operations are serialized behind one mutex so that
// allocation during a collection is well defined.
//
// Sweeping unlinks unreachable objects from the allocation list but never
// reclaims the underlying bump memory: there is no free list and no
// compaction. This is a deliberate simplification appropriate only for
// short-lived or arena-scoped runtimes.
type Heap struct {
	mu sync.Mutex

	arena   []byte
	cursor  int64
	objects Ptr // most-recent-first intrusive list head

	roots []Ptr

	tracer        Tracer
	triggerRatio  float64
	allocsSinceGC int64
	collecting    bool
	closed        bool

	stats Stats
}

// New creates a heap with one contiguous arena of cfg.SizeBytes bytes.
func New(cfg Config) (*Heap, error) {
	if cfg.SizeBytes <= headerSize {
		return nil, ErrBadSize
	}
	rootCap := cfg.RootCapacity
	if rootCap <= 0 {
		rootCap = DefaultConfig().RootCapacity
	}

	if cfg.TriggerRatio < 0 || cfg.TriggerRatio > 1 {
		return nil, ErrBadTriggerRatio
	}

	h := &Heap{
		arena:        make([]byte, cfg.SizeBytes),
		roots:        make([]Ptr, 0, rootCap),
		tracer:       OpaqueTracer{},
		triggerRatio: cfg.TriggerRatio,
	}
	h.stats.HeapSize = cfg.SizeBytes
	h.stats.FreeBytes = cfg.SizeBytes
	return h, nil
}

// SetTracer replaces the tracer used to discover interior references during
// the mark phase. The default OpaqueTracer reports none.
func (h *Heap) SetTracer(t Tracer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t != nil {
		h.tracer = t
	}
}

// SetTriggerRatio replaces the usage fraction above which Alloc collects
// before bumping the cursor. Out-of-range values are ignored. Safe to call
// while the heap is in use; configuration reloads use it.
func (h *Heap) SetTriggerRatio(r float64) {
	if r < 0 || r > 1 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.triggerRatio = r
}

// Alloc reserves size payload bytes with the given flags and returns the
// payload pointer. When the bump cursor would overrun the arena, one
// synchronous collection runs and the allocation is retried once; if space
// is still insufficient, ErrOutOfMemory is returned.
func (h *Heap) Alloc(size int64, flags uint64) (Ptr, error) {
	if size <= 0 {
		return Nil, ErrBadSize
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return Nil, ErrClosed
	}

	total := headerSize + align8(size)
	if h.triggerRatio > 0 && h.allocsSinceGC > 0 &&
		float64(h.cursor+total) > h.triggerRatio*float64(len(h.arena)) {
		h.collectLocked()
	}
	if h.cursor+total > int64(len(h.arena)) {
		h.collectLocked()
		if h.cursor+total > int64(len(h.arena)) {
			return Nil, ErrOutOfMemory
		}
	}

	hdrOff := h.cursor
	p := Ptr(hdrOff + headerSize)
	h.cursor += total

	h.writeHeader(p, Header{Flags: flags &^ FlagMarked, Size: size, Next: h.objects})
	h.objects = p

	h.allocsSinceGC++
	h.stats.ObjectCount++
	h.stats.UsedBytes += total
	h.stats.FreeBytes -= total
	h.stats.TotalAllocated += size

	return p, nil
}

// Collect runs one synchronous mark-and-sweep cycle. A collection requested
// while one is already in progress is a no-op.
func (h *Heap) Collect() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.collectLocked()
}

func (h *Heap) collectLocked() {
	if h.collecting {
		return
	}
	h.collecting = true

	h.markLocked()
	h.sweepLocked()

	h.collecting = false
	h.allocsSinceGC = 0
	h.stats.CollectionCount++
}

// markLocked clears every mark bit, then marks everything reachable from
// the root set. Payloads are opaque byte blobs: unless the configured
// tracer reports interior references, object-to-object edges that are not
// themselves roots are invisible to the collector.
func (h *Heap) markLocked() {
	for p := h.objects; p != Nil; {
		hdr := h.readHeader(p)
		h.setFlags(p, hdr.Flags&^FlagMarked)
		p = hdr.Next
	}

	var stack []Ptr
	for _, r := range h.roots {
		if h.isHeapPtrLocked(r) {
			stack = append(stack, r)
		}
	}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		hdr := h.readHeader(p)
		if hdr.Flags&FlagMarked != 0 {
			continue
		}
		h.setFlags(p, hdr.Flags|FlagMarked)

		payload := h.arena[p : int64(p)+hdr.Size]
		for _, q := range h.tracer.Trace(p, hdr.Flags, payload) {
			if h.isHeapPtrLocked(q) {
				stack = append(stack, q)
			}
		}
	}
}

// sweepLocked unlinks every unmarked object from the allocation list. The
// bump memory itself is not reclaimed.
func (h *Heap) sweepLocked() {
	prev := Nil
	p := h.objects
	for p != Nil {
		hdr := h.readHeader(p)
		next := hdr.Next

		if hdr.Flags&FlagMarked == 0 {
			if prev == Nil {
				h.objects = next
			} else {
				prevHdr := h.readHeader(prev)
				prevHdr.Next = next
				h.writeHeader(prev, prevHdr)
			}
			h.stats.ObjectCount--
			h.stats.TotalCollected += hdr.Size
		} else {
			prev = p
		}
		p = next
	}
}

// AddRoot registers a pointer as always-reachable. Duplicate registrations
// are collapsed. A root is a reference, never an ownership relation.
func (h *Heap) AddRoot(p Ptr) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || p == Nil {
		return false
	}

	for _, r := range h.roots {
		if r == p {
			return true
		}
	}
	h.roots = append(h.roots, p)
	return true
}

// RemoveRoot unregisters a pointer from the root set. The referent is not
// freed; only collector reachability changes.
func (h *Heap) RemoveRoot(p Ptr) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, r := range h.roots {
		if r == p {
			h.roots = append(h.roots[:i], h.roots[i+1:]...)
			return
		}
	}
}

// RootCount returns the number of registered roots.
func (h *Heap) RootCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.roots)
}

// IsHeapPtr reports whether p lies within the arena and could address a
// payload.
func (h *Heap) IsHeapPtr(p Ptr) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.isHeapPtrLocked(p)
}

func (h *Heap) isHeapPtrLocked(p Ptr) bool {
	return p >= headerSize && int64(p) < h.cursor
}

// HeaderOf returns the decoded header of the object at p.
func (h *Heap) HeaderOf(p Ptr) (Header, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.isHeapPtrLocked(p) {
		return Header{}, false
	}
	return h.readHeader(p), true
}

// SetFlags overwrites the flag bits of the object at p. The mark bit is
// owned by the collector and is preserved.
func (h *Heap) SetFlags(p Ptr, flags uint64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.isHeapPtrLocked(p) {
		return false
	}
	hdr := h.readHeader(p)
	h.setFlags(p, (flags&^FlagMarked)|(hdr.Flags&FlagMarked))
	return true
}

// Bytes returns the payload of the object at p as a mutable slice of
// exactly the allocated size, or nil when p is not a heap pointer.
func (h *Heap) Bytes(p Ptr) []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.isHeapPtrLocked(p) {
		return nil
	}
	hdr := h.readHeader(p)
	return h.arena[p : int64(p)+hdr.Size]
}

// Stats returns a snapshot of the cumulative heap counters.
func (h *Heap) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}

// Close releases the arena and all bookkeeping. Every managed pointer is
// invalid afterwards.
func (h *Heap) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	h.arena = nil
	h.objects = Nil
	h.roots = nil
	h.cursor = 0
}

func (h *Heap) readHeader(p Ptr) Header {
	off := int64(p) - headerSize
	return Header{
		Flags: binary.LittleEndian.Uint64(h.arena[off : off+8]),
		Size:  int64(binary.LittleEndian.Uint64(h.arena[off+8 : off+16])),
		Next:  Ptr(binary.LittleEndian.Uint64(h.arena[off+16 : off+24])),
	}
}

func (h *Heap) writeHeader(p Ptr, hdr Header) {
	off := int64(p) - headerSize
	binary.LittleEndian.PutUint64(h.arena[off:off+8], hdr.Flags)
	binary.LittleEndian.PutUint64(h.arena[off+8:off+16], uint64(hdr.Size))
	binary.LittleEndian.PutUint64(h.arena[off+16:off+24], uint64(hdr.Next))
}

func (h *Heap) setFlags(p Ptr, flags uint64) {
	off := int64(p) - headerSize
	binary.LittleEndian.PutUint64(h.arena[off:off+8], flags)
}

func align8(n int64) int64 {
	return (n + 7) &^ 7
}
