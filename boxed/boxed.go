// Package boxed provides the runtime's composite value helpers: arrays,
// strings and key/value objects laid out directly in heap payloads. They
// carry no algorithm of their own; they exist to exercise the heap's sizing
// and flag conventions on behalf of generated code.
//
// Boxed values are opaque blobs to the collector: one boxed value does not
// keep another alive unless the referencing value is itself a root or a
// typed tracer is installed on the heap.
package boxed

import (
	"encoding/binary"

	"github.com/veyra-lang/runtime/heap"
)

// lenWord is the size of the length prefix stored at the start of array and
// string payloads.
const lenWord = 8

// ObjectCapacity is the fixed number of key/value slots in an object.
// A full object rejects further distinct keys; this is a known scalability
// limit of the slot-table layout.
const ObjectCapacity = 256

// slotSize is one key/value pair: key string pointer (8) | value word (8).
const slotSize = 16

// ArrayCreate allocates an array of count elements of elemSize bytes each,
// zero-initialized. The element size is not stored; it is derived from the
// allocation size and the count.
func ArrayCreate(h *heap.Heap, count, elemSize int64) (heap.Ptr, error) {
	if count <= 0 || elemSize <= 0 {
		return heap.Nil, heap.ErrBadSize
	}

	p, err := h.Alloc(lenWord+count*elemSize, heap.FlagArray)
	if err != nil {
		return heap.Nil, err
	}
	binary.LittleEndian.PutUint64(h.Bytes(p)[:lenWord], uint64(count))
	return p, nil
}

// ArrayLength returns the element count of the array at p, or 0 when p is
// not a heap pointer.
func ArrayLength(h *heap.Heap, p heap.Ptr) int64 {
	payload := h.Bytes(p)
	if len(payload) < lenWord {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(payload[:lenWord]))
}

// ArrayGet returns the element at index as a mutable byte slice, or nil
// when the index is out of bounds.
func ArrayGet(h *heap.Heap, p heap.Ptr, index int64) []byte {
	payload := h.Bytes(p)
	if len(payload) < lenWord {
		return nil
	}

	count := int64(binary.LittleEndian.Uint64(payload[:lenWord]))
	if count <= 0 || index < 0 || index >= count {
		return nil
	}

	elemSize := (int64(len(payload)) - lenWord) / count
	off := lenWord + index*elemSize
	return payload[off : off+elemSize]
}

// ArraySet copies value into the element at index. The value must be
// exactly one element wide.
func ArraySet(h *heap.Heap, p heap.Ptr, index int64, value []byte) bool {
	elem := ArrayGet(h, p, index)
	if elem == nil || len(value) != len(elem) {
		return false
	}
	copy(elem, value)
	return true
}

// StringCreate allocates an immutable boxed string holding s.
func StringCreate(h *heap.Heap, s string) (heap.Ptr, error) {
	p, err := h.Alloc(lenWord+int64(len(s))+1, heap.FlagString)
	if err != nil {
		return heap.Nil, err
	}

	payload := h.Bytes(p)
	binary.LittleEndian.PutUint64(payload[:lenWord], uint64(len(s)))
	copy(payload[lenWord:], s)
	return p, nil
}

// StringGet returns the contents of the boxed string at p.
func StringGet(h *heap.Heap, p heap.Ptr) string {
	payload := h.Bytes(p)
	if len(payload) < lenWord {
		return ""
	}
	n := int64(binary.LittleEndian.Uint64(payload[:lenWord]))
	if n < 0 || lenWord+n > int64(len(payload)) {
		return ""
	}
	return string(payload[lenWord : lenWord+n])
}

// StringLength returns the byte length of the boxed string at p.
func StringLength(h *heap.Heap, p heap.Ptr) int64 {
	payload := h.Bytes(p)
	if len(payload) < lenWord {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(payload[:lenWord]))
}

// ObjectCreate allocates an empty key/value object with ObjectCapacity
// slots. Keys are boxed strings allocated on demand; values are opaque
// 64-bit words.
func ObjectCreate(h *heap.Heap) (heap.Ptr, error) {
	return h.Alloc(ObjectCapacity*slotSize, heap.FlagObject)
}

// ObjectSet stores value under key, updating an existing entry when the key
// is already present. It returns false when the object is full or p is not
// a heap pointer.
func ObjectSet(h *heap.Heap, p heap.Ptr, key string, value int64) bool {
	payload := h.Bytes(p)
	if len(payload) < ObjectCapacity*slotSize || key == "" {
		return false
	}

	for i := 0; i < ObjectCapacity; i++ {
		slot := payload[i*slotSize : (i+1)*slotSize]
		keyPtr := heap.Ptr(binary.LittleEndian.Uint64(slot[:8]))

		if keyPtr == heap.Nil {
			kp, err := StringCreate(h, key)
			if err != nil {
				return false
			}
			binary.LittleEndian.PutUint64(slot[:8], uint64(kp))
			binary.LittleEndian.PutUint64(slot[8:], uint64(value))
			return true
		}
		if StringGet(h, keyPtr) == key {
			binary.LittleEndian.PutUint64(slot[8:], uint64(value))
			return true
		}
	}
	return false
}

// ObjectGet returns the value stored under key.
func ObjectGet(h *heap.Heap, p heap.Ptr, key string) (int64, bool) {
	payload := h.Bytes(p)
	if len(payload) < ObjectCapacity*slotSize {
		return 0, false
	}

	for i := 0; i < ObjectCapacity; i++ {
		slot := payload[i*slotSize : (i+1)*slotSize]
		keyPtr := heap.Ptr(binary.LittleEndian.Uint64(slot[:8]))

		if keyPtr == heap.Nil {
			break // slots fill in order, first empty slot ends the table
		}
		if StringGet(h, keyPtr) == key {
			return int64(binary.LittleEndian.Uint64(slot[8:])), true
		}
	}
	return 0, false
}
