package gpu

import (
	"log/slog"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/webdom"
	"github.com/gogpu/webdom/shm"
	"github.com/gogpu/webdom/wire"
)

// mappingRegion is the owned storage and view registry behind a mapped
// buffer. It exists exactly while the buffer is in one of the mapped
// states (including MappingPending, where the storage is still empty);
// discarding it is what makes every outstanding view unusable.
type mappingRegion struct {
	// data holds rng.Len() bytes covering the mapped interval. Shared
	// with live views through its reference count. Empty until the map
	// response installs the device's bytes.
	data *shm.Region

	// rng is the mapped [start, end) interval within the buffer.
	rng wire.Range

	// mode is the map mode recorded at request time; it decides
	// whether unmap sends the bytes back as a write.
	mode gputypes.MapMode

	// views are the live external views, pairwise non-overlapping.
	views []*MappedView
}

// newMappingRegion creates a region with empty storage for a map
// request that is still pending.
func newMappingRegion(mode gputypes.MapMode, rng wire.Range) (*mappingRegion, error) {
	data, err := shm.NewRegion(0)
	if err != nil {
		return nil, err
	}
	return &mappingRegion{data: data, rng: rng, mode: mode}, nil
}

// newMappedRegion creates a region with zero-filled storage covering
// rng, for buffers mapped at creation.
func newMappedRegion(mode gputypes.MapMode, rng wire.Range) (*mappingRegion, error) {
	data, err := shm.NewRegion(rng.Len())
	if err != nil {
		return nil, err
	}
	return &mappingRegion{data: data, rng: rng, mode: mode}, nil
}

// install replaces the region storage with the bytes returned by the
// device, taking ownership of the reference.
func (r *mappingRegion) install(data *shm.Region) {
	r.releaseData()
	r.data = data
}

// viewAllowed reports whether rng may become a new view: it must lie
// within the mapped interval and not overlap any live view.
func (r *mappingRegion) viewAllowed(rng wire.Range) bool {
	if !r.rng.Contains(rng) {
		return false
	}
	for _, v := range r.views {
		if v.rng.Overlaps(rng) {
			return false
		}
	}
	return true
}

// addView creates, registers and returns a view over rng.
func (r *mappingRegion) addView(rng wire.Range) *MappedView {
	v := newMappedView(r.data, rng, rng.Start-r.rng.Start)
	r.views = append(r.views, v)
	return v
}

// discard detaches every live view and releases the region storage.
// The region must not be used afterwards.
func (r *mappingRegion) discard() {
	for _, v := range r.views {
		v.detach()
	}
	r.views = nil
	r.releaseData()
}

func (r *mappingRegion) releaseData() {
	if r.data == nil {
		return
	}
	if err := r.data.Release(); err != nil {
		webdom.Logger().Warn("gpu: releasing mapping storage",
			slog.String("range", r.rng.String()),
			slog.Any("error", err))
	}
	r.data = nil
}
