package heap

// Tracer discovers interior references of an object during the mark phase.
//
// The runtime's default semantics treats every payload as an opaque byte
// blob: composite values may only keep each other alive through explicit
// roots. A typed tracer can be installed to scan specific object layouts
// (arrays of pointers, key/value tables) without changing the sweep.
type Tracer interface {
	// Trace returns the managed pointers referenced by the object at p.
	// payload is the object's raw payload bytes; it must not be retained.
	Trace(p Ptr, flags uint64, payload []byte) []Ptr
}

// OpaqueTracer is the default tracer. It reports no interior references,
// preserving root-only reachability.
type OpaqueTracer struct{}

// Trace implements Tracer.
func (OpaqueTracer) Trace(Ptr, uint64, []byte) []Ptr { return nil }
