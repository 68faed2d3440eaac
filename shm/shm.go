// Package shm provides reference-counted shared byte regions, used as
// the backing storage for mapped GPU buffers and for byte payloads
// crossing the device protocol.
//
// On unix platforms a region is an anonymous memory mapping released
// with munmap when the last reference drops; elsewhere it is a heap
// slice. The owner of a region and every view aliasing it each hold
// one reference, so the storage stays valid until the last alias is
// detached.
package shm

import (
	"fmt"
	"sync/atomic"
)

// Region is an owned, reference-counted byte buffer. A new region
// starts with a reference count of one; Retain and Release adjust it,
// and the storage is freed when the count reaches zero.
//
// Region is not a synchronization primitive: readers and writers of
// the byte contents must be serialized by the caller, matching the
// single-context discipline of the gpu package.
type Region struct {
	data []byte
	refs atomic.Int64
}

// NewRegion allocates a zero-filled region of the given size.
func NewRegion(size uint64) (*Region, error) {
	data, err := alloc(int(size))
	if err != nil {
		return nil, fmt.Errorf("shm: allocating %d bytes: %w", size, err)
	}
	r := &Region{data: data}
	r.refs.Store(1)
	return r, nil
}

// FromBytes allocates a region holding a copy of b.
func FromBytes(b []byte) (*Region, error) {
	r, err := NewRegion(uint64(len(b)))
	if err != nil {
		return nil, err
	}
	copy(r.data, b)
	return r, nil
}

// Bytes returns the region's storage without copying. The slice
// aliases the shared memory; it must not be used after the caller's
// reference is released. Returns nil once the region is freed.
func (r *Region) Bytes() []byte {
	if r.refs.Load() <= 0 {
		return nil
	}
	return r.data
}

// Len returns the region size in bytes, or 0 once freed.
func (r *Region) Len() int {
	if r.refs.Load() <= 0 {
		return 0
	}
	return len(r.data)
}

// Retain adds a reference and returns the region for chaining.
func (r *Region) Retain() *Region {
	if r.refs.Add(1) <= 1 {
		panic("shm: Retain on released region")
	}
	return r
}

// Release drops a reference, freeing the storage when the count
// reaches zero. Releasing more times than retained is a programming
// error and panics.
func (r *Region) Release() error {
	n := r.refs.Add(-1)
	if n < 0 {
		panic("shm: Release without matching Retain")
	}
	if n > 0 {
		return nil
	}
	data := r.data
	r.data = nil
	if err := free(data); err != nil {
		return fmt.Errorf("shm: releasing region: %w", err)
	}
	return nil
}
