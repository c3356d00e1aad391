package heap

import (
	"encoding/binary"
	"testing"
)

func newTestHeap(t *testing.T, size int64) *Heap {
	t.Helper()
	h, err := New(Config{SizeBytes: size, RootCapacity: 64})
	if err != nil {
		t.Fatalf("Failed to create heap: %v", err)
	}
	return h
}

func TestAllocRoundtrip(t *testing.T) {
	h := newTestHeap(t, 1<<16)

	p, err := h.Alloc(13, 0)
	if err != nil {
		t.Fatalf("Failed to allocate: %v", err)
	}

	if !h.IsHeapPtr(p) {
		t.Errorf("Expected %d to be a heap pointer", p)
	}

	payload := h.Bytes(p)
	if len(payload) != 13 {
		t.Fatalf("Expected payload of 13 bytes, got %d", len(payload))
	}

	// Payload must be writable and stable across further allocations.
	for i := range payload {
		payload[i] = byte(i + 1)
	}
	if _, err := h.Alloc(64, 0); err != nil {
		t.Fatalf("Failed to allocate: %v", err)
	}
	payload = h.Bytes(p)
	for i := range payload {
		if payload[i] != byte(i+1) {
			t.Fatalf("Payload byte %d clobbered: got %d", i, payload[i])
		}
	}
}

func TestAllocRejectsBadSize(t *testing.T) {
	h := newTestHeap(t, 1<<16)

	if _, err := h.Alloc(0, 0); err != ErrBadSize {
		t.Errorf("Expected ErrBadSize for size 0, got %v", err)
	}
	if _, err := h.Alloc(-8, 0); err != ErrBadSize {
		t.Errorf("Expected ErrBadSize for negative size, got %v", err)
	}
}

func TestAllocExhaustion(t *testing.T) {
	h := newTestHeap(t, 256)

	// The arena is tiny; keep allocating until it fails.
	var err error
	for i := 0; i < 64; i++ {
		if _, err = h.Alloc(64, 0); err != nil {
			break
		}
	}
	if err != ErrOutOfMemory {
		t.Fatalf("Expected ErrOutOfMemory, got %v", err)
	}

	// The failed allocation must have triggered a collection attempt.
	if h.Stats().CollectionCount == 0 {
		t.Error("Expected a collection before reporting exhaustion")
	}
}

func TestTriggerRatioCollectsEarly(t *testing.T) {
	h, err := New(Config{SizeBytes: 1 << 12, RootCapacity: 8, TriggerRatio: 0.5})
	if err != nil {
		t.Fatalf("Failed to create heap: %v", err)
	}

	// Fill past half the arena; the next allocation must collect even
	// though plenty of space remains.
	for i := 0; i < 40; i++ {
		if _, err := h.Alloc(32, 0); err != nil {
			t.Fatalf("Failed to allocate: %v", err)
		}
	}
	if h.Stats().CollectionCount == 0 {
		t.Error("Expected a threshold-triggered collection")
	}
}

func TestTriggerRatioValidation(t *testing.T) {
	if _, err := New(Config{SizeBytes: 1 << 12, TriggerRatio: 1.5}); err != ErrBadTriggerRatio {
		t.Errorf("Expected ErrBadTriggerRatio, got %v", err)
	}
	if _, err := New(Config{SizeBytes: 1 << 12, TriggerRatio: -0.1}); err != ErrBadTriggerRatio {
		t.Errorf("Expected ErrBadTriggerRatio, got %v", err)
	}
}

func TestCollectKeepsRoots(t *testing.T) {
	h := newTestHeap(t, 1<<16)

	rooted, err := h.Alloc(32, 0)
	if err != nil {
		t.Fatalf("Failed to allocate: %v", err)
	}
	garbage, err := h.Alloc(32, 0)
	if err != nil {
		t.Fatalf("Failed to allocate: %v", err)
	}

	if !h.AddRoot(rooted) {
		t.Fatal("Failed to add root")
	}

	h.Collect()

	if _, ok := h.HeaderOf(rooted); !ok {
		t.Error("Rooted object should survive collection")
	}
	stats := h.Stats()
	if stats.ObjectCount != 1 {
		t.Errorf("Expected 1 live object after collect, got %d", stats.ObjectCount)
	}
	if stats.TotalCollected != 32 {
		t.Errorf("Expected 32 collected bytes, got %d", stats.TotalCollected)
	}
	_ = garbage
}

func TestCollectSweepsUnrooted(t *testing.T) {
	h := newTestHeap(t, 1<<16)

	for i := 0; i < 10; i++ {
		if _, err := h.Alloc(16, 0); err != nil {
			t.Fatalf("Failed to allocate: %v", err)
		}
	}

	h.Collect()

	stats := h.Stats()
	if stats.ObjectCount != 0 {
		t.Errorf("Expected 0 live objects, got %d", stats.ObjectCount)
	}
	if stats.TotalCollected != 160 {
		t.Errorf("Expected 160 collected bytes, got %d", stats.TotalCollected)
	}
}

func TestSweepDoesNotReclaimMemory(t *testing.T) {
	h := newTestHeap(t, 1<<16)

	if _, err := h.Alloc(128, 0); err != nil {
		t.Fatalf("Failed to allocate: %v", err)
	}

	before := h.Stats().FreeBytes
	h.Collect()
	after := h.Stats().FreeBytes

	// Swept objects are unlinked, not reclaimed: free space must not grow.
	if after > before {
		t.Errorf("FreeBytes grew from %d to %d after collect", before, after)
	}
}

func TestRemoveRootExposesObject(t *testing.T) {
	h := newTestHeap(t, 1<<16)

	p, err := h.Alloc(8, 0)
	if err != nil {
		t.Fatalf("Failed to allocate: %v", err)
	}
	h.AddRoot(p)
	h.Collect()
	if h.Stats().ObjectCount != 1 {
		t.Fatal("Rooted object swept")
	}

	// Removing the root does not free the referent; it only changes
	// reachability on the next collection.
	h.RemoveRoot(p)
	if h.Stats().ObjectCount != 1 {
		t.Error("RemoveRoot must not free the referent")
	}

	h.Collect()
	if h.Stats().ObjectCount != 0 {
		t.Error("Unrooted object should be swept")
	}
}

func TestAddRootDeduplicates(t *testing.T) {
	h := newTestHeap(t, 1<<16)

	p, err := h.Alloc(8, 0)
	if err != nil {
		t.Fatalf("Failed to allocate: %v", err)
	}

	h.AddRoot(p)
	h.AddRoot(p)
	h.AddRoot(p)

	if h.RootCount() != 1 {
		t.Errorf("Expected 1 root after duplicate adds, got %d", h.RootCount())
	}
}

func TestIsHeapPtr(t *testing.T) {
	h := newTestHeap(t, 1<<16)

	if h.IsHeapPtr(Nil) {
		t.Error("Nil must not be a heap pointer")
	}
	if h.IsHeapPtr(Ptr(1 << 20)) {
		t.Error("Out-of-arena offset must not be a heap pointer")
	}

	p, err := h.Alloc(8, 0)
	if err != nil {
		t.Fatalf("Failed to allocate: %v", err)
	}
	if !h.IsHeapPtr(p) {
		t.Error("Allocated pointer should be a heap pointer")
	}

	// The bump cursor itself is one past the last payload, not an object.
	cursor := Ptr(h.Stats().UsedBytes)
	if h.IsHeapPtr(cursor) {
		t.Error("Cursor offset must not be a heap pointer")
	}
}

func TestObjectFlags(t *testing.T) {
	h := newTestHeap(t, 1<<16)

	p, err := h.Alloc(8, FlagString)
	if err != nil {
		t.Fatalf("Failed to allocate: %v", err)
	}

	hdr, ok := h.HeaderOf(p)
	if !ok {
		t.Fatal("Header not found")
	}
	if hdr.Flags&FlagString == 0 {
		t.Error("Expected string flag to be set")
	}
	if hdr.Size != 8 {
		t.Errorf("Expected size 8, got %d", hdr.Size)
	}
}

// ptrTableTracer treats payloads as packed little-endian pointer tables.
type ptrTableTracer struct{}

func (ptrTableTracer) Trace(_ Ptr, _ uint64, payload []byte) []Ptr {
	var refs []Ptr
	for off := 0; off+8 <= len(payload); off += 8 {
		if p := Ptr(binary.LittleEndian.Uint64(payload[off : off+8])); p != Nil {
			refs = append(refs, p)
		}
	}
	return refs
}

func TestTypedTracerFollowsInteriorReferences(t *testing.T) {
	h := newTestHeap(t, 1<<16)
	h.SetTracer(ptrTableTracer{})

	child, err := h.Alloc(8, 0)
	if err != nil {
		t.Fatalf("Failed to allocate: %v", err)
	}
	parent, err := h.Alloc(8, 0)
	if err != nil {
		t.Fatalf("Failed to allocate: %v", err)
	}
	binary.LittleEndian.PutUint64(h.Bytes(parent), uint64(child))

	h.AddRoot(parent)
	h.Collect()

	if h.Stats().ObjectCount != 2 {
		t.Errorf("Expected parent and child to survive, got %d live objects",
			h.Stats().ObjectCount)
	}
}

func TestStatsAccumulate(t *testing.T) {
	h := newTestHeap(t, 1<<16)

	if _, err := h.Alloc(100, 0); err != nil {
		t.Fatalf("Failed to allocate: %v", err)
	}
	if _, err := h.Alloc(50, 0); err != nil {
		t.Fatalf("Failed to allocate: %v", err)
	}

	stats := h.Stats()
	if stats.TotalAllocated != 150 {
		t.Errorf("Expected 150 total allocated, got %d", stats.TotalAllocated)
	}
	if stats.ObjectCount != 2 {
		t.Errorf("Expected 2 objects, got %d", stats.ObjectCount)
	}
	if stats.UsedBytes+stats.FreeBytes != stats.HeapSize {
		t.Errorf("Used (%d) + free (%d) should equal heap size (%d)",
			stats.UsedBytes, stats.FreeBytes, stats.HeapSize)
	}

	h.Collect()
	h.Collect()
	if got := h.Stats().CollectionCount; got != 2 {
		t.Errorf("Expected 2 collections, got %d", got)
	}
}

func TestCloseInvalidatesHeap(t *testing.T) {
	h := newTestHeap(t, 1<<16)

	p, err := h.Alloc(8, 0)
	if err != nil {
		t.Fatalf("Failed to allocate: %v", err)
	}

	h.Close()
	h.Close() // double close is a no-op

	if _, err := h.Alloc(8, 0); err != ErrClosed {
		t.Errorf("Expected ErrClosed after close, got %v", err)
	}
	if h.Bytes(p) != nil {
		t.Error("Expected nil payload after close")
	}
}
