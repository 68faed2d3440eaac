package gpu

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/webdom"
	"github.com/gogpu/webdom/shm"
	"github.com/gogpu/webdom/wire"
)

// MappedView is a host-visible window over a sub-range of a mapped
// buffer. It aliases the shared mapping storage without copying:
// writes through Bytes are visible to the buffer and travel back to
// the device on unmap.
//
// A view stays usable only while its mapping is alive. Unmap and
// Destroy forcibly detach every outstanding view, after which Bytes
// fails. The view holds its own reference on the storage, so a slice
// obtained before detachment never points into freed memory.
type MappedView struct {
	data     *shm.Region
	rng      wire.Range
	off      uint64
	detached bool
}

// newMappedView creates a view over storage, where rng is the absolute
// byte range within the buffer and off its offset into the storage.
func newMappedView(data *shm.Region, rng wire.Range, off uint64) *MappedView {
	return &MappedView{data: data.Retain(), rng: rng, off: off}
}

// Bytes returns the aliased byte window. Fails with an
// Operation-class error once the view has been detached.
func (v *MappedView) Bytes() ([]byte, error) {
	if v.detached {
		return nil, fmt.Errorf("%w: mapped range %s has been detached", webdom.ErrOperation, v.rng)
	}
	return v.data.Bytes()[v.off : v.off+v.rng.Len()], nil
}

// Len returns the view length in bytes.
func (v *MappedView) Len() int {
	return int(v.rng.Len())
}

// Range returns the view's byte range within the buffer.
func (v *MappedView) Range() wire.Range {
	return v.rng
}

// Detached reports whether the view has been invalidated.
func (v *MappedView) Detached() bool {
	return v.detached
}

// detach invalidates the view and drops its storage reference.
// Idempotent.
func (v *MappedView) detach() {
	if v.detached {
		return
	}
	v.detached = true
	if err := v.data.Release(); err != nil {
		webdom.Logger().Warn("gpu: releasing view storage",
			slog.String("range", v.rng.String()),
			slog.Any("error", err))
	}
	v.data = nil
}
