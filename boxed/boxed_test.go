package boxed

import (
	"encoding/binary"
	"testing"

	"github.com/veyra-lang/runtime/heap"
)

func newTestHeap(t *testing.T) *heap.Heap {
	t.Helper()
	h, err := heap.New(heap.Config{SizeBytes: 1 << 20, RootCapacity: 64})
	if err != nil {
		t.Fatalf("Failed to create heap: %v", err)
	}
	return h
}

func TestArrayCreateAndAccess(t *testing.T) {
	h := newTestHeap(t)

	arr, err := ArrayCreate(h, 4, 8)
	if err != nil {
		t.Fatalf("Failed to create array: %v", err)
	}

	if got := ArrayLength(h, arr); got != 4 {
		t.Errorf("Expected length 4, got %d", got)
	}

	hdr, ok := h.HeaderOf(arr)
	if !ok || hdr.Flags&heap.FlagArray == 0 {
		t.Error("Expected array flag on header")
	}

	// Elements start zeroed.
	for i := int64(0); i < 4; i++ {
		elem := ArrayGet(h, arr, i)
		if elem == nil {
			t.Fatalf("Element %d missing", i)
		}
		for _, b := range elem {
			if b != 0 {
				t.Fatalf("Element %d not zero-initialized", i)
			}
		}
	}

	val := make([]byte, 8)
	binary.LittleEndian.PutUint64(val, 0xdeadbeef)
	if !ArraySet(h, arr, 2, val) {
		t.Fatal("Failed to set element")
	}
	if got := binary.LittleEndian.Uint64(ArrayGet(h, arr, 2)); got != 0xdeadbeef {
		t.Errorf("Expected 0xdeadbeef, got %#x", got)
	}
}

func TestArrayBounds(t *testing.T) {
	h := newTestHeap(t)

	arr, err := ArrayCreate(h, 2, 4)
	if err != nil {
		t.Fatalf("Failed to create array: %v", err)
	}

	if ArrayGet(h, arr, 2) != nil {
		t.Error("Expected nil for out-of-bounds index")
	}
	if ArrayGet(h, arr, -1) != nil {
		t.Error("Expected nil for negative index")
	}
	if ArraySet(h, arr, 0, []byte{1, 2}) {
		t.Error("Expected set with wrong element width to fail")
	}
	if ArrayGet(h, heap.Nil, 0) != nil {
		t.Error("Expected nil for nil array")
	}
}

func TestArrayCreateRejectsBadShape(t *testing.T) {
	h := newTestHeap(t)

	if _, err := ArrayCreate(h, 0, 8); err == nil {
		t.Error("Expected error for zero count")
	}
	if _, err := ArrayCreate(h, 4, 0); err == nil {
		t.Error("Expected error for zero element size")
	}
}

func TestStringRoundtrip(t *testing.T) {
	h := newTestHeap(t)

	p, err := StringCreate(h, "hello, runtime")
	if err != nil {
		t.Fatalf("Failed to create string: %v", err)
	}

	if got := StringGet(h, p); got != "hello, runtime" {
		t.Errorf("Expected 'hello, runtime', got %q", got)
	}
	if got := StringLength(h, p); got != 14 {
		t.Errorf("Expected length 14, got %d", got)
	}

	hdr, ok := h.HeaderOf(p)
	if !ok || hdr.Flags&heap.FlagString == 0 {
		t.Error("Expected string flag on header")
	}
}

func TestEmptyString(t *testing.T) {
	h := newTestHeap(t)

	p, err := StringCreate(h, "")
	if err != nil {
		t.Fatalf("Failed to create empty string: %v", err)
	}
	if got := StringGet(h, p); got != "" {
		t.Errorf("Expected empty string, got %q", got)
	}
	if got := StringLength(h, p); got != 0 {
		t.Errorf("Expected length 0, got %d", got)
	}
}

func TestObjectSetGet(t *testing.T) {
	h := newTestHeap(t)

	obj, err := ObjectCreate(h)
	if err != nil {
		t.Fatalf("Failed to create object: %v", err)
	}

	hdr, ok := h.HeaderOf(obj)
	if !ok || hdr.Flags&heap.FlagObject == 0 {
		t.Error("Expected object flag on header")
	}

	if !ObjectSet(h, obj, "x", 7) {
		t.Fatal("Failed to set key x")
	}
	if !ObjectSet(h, obj, "y", -3) {
		t.Fatal("Failed to set key y")
	}

	if v, ok := ObjectGet(h, obj, "x"); !ok || v != 7 {
		t.Errorf("Expected x=7, got %d (ok=%v)", v, ok)
	}
	if v, ok := ObjectGet(h, obj, "y"); !ok || v != -3 {
		t.Errorf("Expected y=-3, got %d (ok=%v)", v, ok)
	}
	if _, ok := ObjectGet(h, obj, "missing"); ok {
		t.Error("Expected missing key to report absence")
	}
}

func TestObjectUpdateExistingKey(t *testing.T) {
	h := newTestHeap(t)

	obj, err := ObjectCreate(h)
	if err != nil {
		t.Fatalf("Failed to create object: %v", err)
	}

	ObjectSet(h, obj, "counter", 1)
	ObjectSet(h, obj, "counter", 2)

	if v, _ := ObjectGet(h, obj, "counter"); v != 2 {
		t.Errorf("Expected updated value 2, got %d", v)
	}
}

func TestObjectCapacityLimit(t *testing.T) {
	h, err := heap.New(heap.Config{SizeBytes: 1 << 21, RootCapacity: 64})
	if err != nil {
		t.Fatalf("Failed to create heap: %v", err)
	}

	obj, err := ObjectCreate(h)
	if err != nil {
		t.Fatalf("Failed to create object: %v", err)
	}

	for i := 0; i < ObjectCapacity; i++ {
		key := "k" + string(rune('a'+i%26)) + string(rune('0'+i/26))
		if !ObjectSet(h, obj, key, int64(i)) {
			t.Fatalf("Failed to set key %d", i)
		}
	}

	if ObjectSet(h, obj, "overflow", 1) {
		t.Error("Expected set on a full object to fail")
	}
}
