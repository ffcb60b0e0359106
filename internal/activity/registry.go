package activity

import "sync"

// Registry tracks activity values for the kernels a gateway manages:
// message timestamps, busy state and client connection counts. Records are
// created lazily on first access. Removed kernel IDs are ignored forever so
// that late events (a websocket disconnect arriving after kernel deletion)
// cannot start tracking the kernel again; accesses for ignored IDs land in
// a shared dummy record instead.
type Registry struct {
	mu          sync.RWMutex
	records     map[string]Record
	ignored     map[string]struct{}
	dummy       Record
	removalSink func(kernelID string, final Record)
}

func NewRegistry() *Registry {
	return &Registry{
		records: map[string]Record{},
		ignored: map[string]struct{}{},
		dummy:   newRecord(),
	}
}

// SetRemovalSink registers a callback invoked with a copy of the final
// record each time a live kernel is removed. Must be set before the
// registry is shared across goroutines.
func (r *Registry) SetRemovalSink(sink func(kernelID string, final Record)) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.removalSink = sink
	r.mu.Unlock()
}

// RecordFor returns the live record for kernelID, creating one populated
// with defaults on first access. Removed kernels get the shared dummy
// record. The returned map is a live reference and is not synchronized;
// concurrent mutation should go through Publish, Increment and Decrement.
func (r *Registry) RecordFor(kernelID string) Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recordFor(kernelID)
}

// Publish sets field to value for kernelID. Field names outside the
// recognized set are stored as-is.
func (r *Registry) Publish(kernelID, field string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recordFor(kernelID)[field] = value
}

// Increment adds one to an int field. Returns a *FieldTypeError and leaves
// the record unchanged when the stored value is not an int.
func (r *Registry) Increment(kernelID, field string) error {
	return r.add(kernelID, field, 1)
}

// Decrement subtracts one from an int field. Same error contract as
// Increment.
func (r *Registry) Decrement(kernelID, field string) error {
	return r.add(kernelID, field, -1)
}

func (r *Registry) add(kernelID, field string, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.recordFor(kernelID)
	n, ok := rec[field].(int)
	if !ok {
		return &FieldTypeError{KernelID: kernelID, Field: field, Value: rec[field]}
	}
	rec[field] = n + delta
	return nil
}

// Remove deletes the kernel's record and marks the ID ignored so it is
// never tracked again. Removing an untracked or already removed kernel is
// a no-op. The removal sink, if any, sees the final record of a live
// kernel.
func (r *Registry) Remove(kernelID string) {
	r.mu.Lock()
	rec, live := r.records[kernelID]
	var final Record
	if live {
		delete(r.records, kernelID)
		r.ignored[kernelID] = struct{}{}
		final = rec.clone()
	}
	sink := r.removalSink
	r.mu.Unlock()

	if live && sink != nil {
		sink(kernelID, final)
	}
}

// Peek returns a copy of the kernel's record without creating one.
// Untracked and ignored kernels report default values; the second result
// is false for them.
func (r *Registry) Peek(kernelID string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rec, ok := r.records[kernelID]; ok {
		return rec.clone(), true
	}
	return newRecord(), false
}

// Snapshot returns a deep copy of every live record keyed by kernel ID.
// Mutating the result never affects the registry.
func (r *Registry) Snapshot() map[string]Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Record, len(r.records))
	for id, rec := range r.records {
		out[id] = rec.clone()
	}
	return out
}

// recordFor resolves the record for kernelID. Callers hold r.mu.
func (r *Registry) recordFor(kernelID string) Record {
	if _, ok := r.ignored[kernelID]; ok {
		return r.dummyRecord()
	}
	rec, ok := r.records[kernelID]
	if !ok {
		rec = newRecord()
		r.records[kernelID] = rec
	}
	return rec
}

// dummyRecord is the single shared record handed out for ignored kernels.
// Writes for one ignored kernel are visible to every other ignored kernel.
// Returning fresh defaults instead only requires changing this accessor.
func (r *Registry) dummyRecord() Record {
	return r.dummy
}
