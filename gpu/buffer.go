package gpu

import (
	"fmt"
	"log/slog"
	"math"
	"runtime"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/webdom"
	"github.com/gogpu/webdom/shm"
	"github.com/gogpu/webdom/wire"
)

// Mapped-range alignment rules: view offsets are 8-byte aligned and
// view sizes 4-byte aligned.
const (
	rangeOffsetAlign = 8
	rangeSizeAlign   = 4
)

// WholeSize passed as a size selects "the rest of the buffer" (for
// MapAsync) or "the rest of the mapped range" (for GetMappedRange).
const WholeSize = uint64(math.MaxUint64)

// BufferState represents the lifecycle state of a buffer. It is the
// single source of truth for which operations are legal.
type BufferState int

const (
	// StateUnmapped means the buffer is not mapped and may be mapped.
	StateUnmapped BufferState = iota
	// StateMappingPending means a map request is in flight.
	StateMappingPending
	// StateMapped means the device's bytes are available for host access.
	StateMapped
	// StateMappedAtCreation means the buffer was created pre-mapped for
	// writing.
	StateMappedAtCreation
	// StateDestroyed is terminal; only label access and re-destroy
	// remain legal.
	StateDestroyed
)

// String returns the string representation of BufferState.
func (s BufferState) String() string {
	switch s {
	case StateUnmapped:
		return "Unmapped"
	case StateMappingPending:
		return "MappingPending"
	case StateMapped:
		return "Mapped"
	case StateMappedAtCreation:
		return "MappedAtCreation"
	case StateDestroyed:
		return "Destroyed"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// BufferDescriptor describes a buffer at creation.
type BufferDescriptor struct {
	// Label is an optional debug name, mutable later via SetLabel.
	Label string

	// Size is the buffer size in bytes.
	Size uint64

	// Usage specifies how the buffer may be used.
	Usage gputypes.BufferUsage

	// MappedAtCreation creates the buffer pre-mapped for writing over
	// its whole size.
	MappedAtCreation bool
}

// Buffer is the scripting-side handle for a remote GPU buffer.
//
// All methods must be called from one logical execution context: the
// buffer takes no internal locks, relying on the caller's event loop
// to serialize operations and response delivery (see the package
// documentation).
//
// Lifecycle:
//  1. Create via NewBuffer
//  2. MapAsync returns a promise; the event loop delivers the response
//  3. GetMappedRange exposes zero-copy views while mapped
//  4. Unmap sends write-mapped contents back and detaches all views
//  5. Destroy releases the remote buffer; it also runs from a
//     finalizer so an abandoned buffer never leaks its remote resource
type Buffer struct {
	device *Device
	id     wire.BufferID
	size   uint64
	usage  gputypes.BufferUsage
	label  string

	state      BufferState
	region     *mappingRegion
	mapPromise *webdom.Promise

	// mapGen counts map requests. Each request's reply carries the
	// generation it was issued under, so a response outlived by its
	// request (cancelled by unmap/destroy, then superseded by a new
	// request) can be told apart from the response the buffer is
	// actually waiting for.
	mapGen uint64
}

// NewBuffer creates a buffer handle for the remote buffer identified
// by id. With desc.MappedAtCreation the buffer starts in
// MappedAtCreation with zero-filled storage over its whole size,
// otherwise Unmapped.
func NewBuffer(device *Device, id wire.BufferID, desc *BufferDescriptor) (*Buffer, error) {
	if device == nil {
		return nil, fmt.Errorf("%w: device is nil", webdom.ErrOperation)
	}
	if desc == nil {
		return nil, fmt.Errorf("%w: buffer descriptor is nil", webdom.ErrOperation)
	}

	b := &Buffer{
		device: device,
		id:     id,
		size:   desc.Size,
		usage:  desc.Usage,
		label:  desc.Label,
		state:  StateUnmapped,
	}

	if desc.MappedAtCreation {
		region, err := newMappedRegion(gputypes.MapModeWrite, wire.Range{Start: 0, End: desc.Size})
		if err != nil {
			return nil, err
		}
		b.region = region
		b.state = StateMappedAtCreation
	}

	// The finalizer only backstops leak prevention; correctness never
	// depends on its timing.
	runtime.SetFinalizer(b, (*Buffer).finalize)

	return b, nil
}

// ID returns the remote buffer identifier.
func (b *Buffer) ID() wire.BufferID {
	return b.id
}

// Size returns the buffer size in bytes.
func (b *Buffer) Size() uint64 {
	return b.size
}

// Usage returns the buffer usage flags.
func (b *Buffer) Usage() gputypes.BufferUsage {
	return b.usage
}

// State returns the current lifecycle state.
func (b *Buffer) State() BufferState {
	return b.state
}

// Label returns the buffer's debug label. Legal in every state.
func (b *Buffer) Label() string {
	return b.label
}

// SetLabel updates the buffer's debug label. Legal in every state.
func (b *Buffer) SetLabel(label string) {
	b.label = label
}

// MapAsync requests host access to [offset, offset+size) of the
// buffer and returns the promise for the request. Pass WholeSize to
// map through the end of the buffer.
//
// The guard order is fixed and observable through the error class:
//  1. With size == WholeSize, an offset at or past the end rejects
//     Operation-class with no state change and no message sent.
//  2. A buffer not in Unmapped (second map in flight, still mapped,
//     destroyed) records a validation error on the device and rejects
//     Abort-class; an already-pending request is not disturbed.
//  3. A mode other than exactly Read or Write records a validation
//     error and rejects Abort-class.
//
// A send failure rejects Operation-class and leaves the buffer
// Unmapped, so no orphaned MappingPending state can exist. Otherwise
// the buffer transitions to MappingPending; the promise settles when
// the event loop delivers the device's response.
func (b *Buffer) MapAsync(mode gputypes.MapMode, offset, size uint64) *webdom.Promise {
	promise := webdom.NewPromise()

	rangeSize := size
	if size == WholeSize {
		if offset >= b.size {
			promise.Reject(fmt.Errorf("%w: map offset %d out of range for buffer of %d bytes",
				webdom.ErrOperation, offset, b.size))
			return promise
		}
		rangeSize = b.size - offset
	}

	if b.state != StateUnmapped {
		b.device.ReportValidationError("buffer is not Unmapped")
		promise.Reject(fmt.Errorf("%w: cannot map buffer in state %s", webdom.ErrAbort, b.state))
		return promise
	}

	if mode != gputypes.MapModeRead && mode != gputypes.MapModeWrite {
		b.device.ReportValidationError("invalid MapMode flags")
		promise.Reject(fmt.Errorf("%w: invalid map mode %d", webdom.ErrAbort, mode))
		return promise
	}

	mapRange := wire.Range{Start: offset, End: offset + rangeSize}
	b.mapGen++
	gen := b.mapGen
	err := b.device.Conn().Send(wire.MapRequest{
		BufferID: b.id,
		DeviceID: b.device.ID(),
		Mode:     mode,
		Range:    mapRange,
		Reply: func(resp wire.MapResponse) {
			b.handleMapResponse(gen, resp)
		},
	})
	if err != nil {
		webdom.Logger().Warn("gpu: failed to send map request",
			slog.Uint64("buffer", uint64(b.id)),
			slog.Any("error", err))
		promise.Reject(fmt.Errorf("%w: sending map request: %v", webdom.ErrOperation, err))
		return promise
	}

	region, err := newMappingRegion(mode, mapRange)
	if err != nil {
		promise.Reject(fmt.Errorf("%w: %v", webdom.ErrOperation, err))
		return promise
	}

	b.state = StateMappingPending
	b.region = region
	b.mapPromise = promise

	webdom.Logger().Debug("gpu: map requested",
		slog.Uint64("buffer", uint64(b.id)),
		slog.String("range", mapRange.String()))

	return promise
}

// handleMapResponse is the reply callback for the map request issued
// under generation gen. The event loop runs it exactly once per
// request. A response whose generation is no longer current belongs to
// a request that unmap/destroy already settled and is dropped before
// it can touch the pending request's promise or region. A current
// success installs the device's bytes and resolves the promise; a
// current failure rejects Abort-class and leaves the state for Unmap
// to repair. Every path tells the device the request is complete.
func (b *Buffer) handleMapResponse(gen uint64, resp wire.MapResponse) {
	switch {
	case gen != b.mapGen:
		b.dropPayload(resp.Data)
	case resp.Err != "":
		promise := b.mapPromise
		b.mapPromise = nil
		webdom.Logger().Warn("gpu: could not map buffer",
			slog.Uint64("buffer", uint64(b.id)),
			slog.String("reason", resp.Err))
		b.dropPayload(resp.Data)
		if promise != nil {
			promise.Reject(fmt.Errorf("%w: %s", webdom.ErrAbort, resp.Err))
		}
	case b.state == StateMappingPending && b.region != nil:
		promise := b.mapPromise
		b.mapPromise = nil
		b.region.install(resp.Data)
		b.state = StateMapped
		webdom.Logger().Debug("gpu: buffer mapped",
			slog.Uint64("buffer", uint64(b.id)),
			slog.String("range", b.region.rng.String()))
		if promise != nil {
			promise.Resolve(nil)
		}
	default:
		// Current generation but the request was cancelled without a
		// successor; the promise is long settled and the bytes have
		// nowhere to go.
		b.dropPayload(resp.Data)
	}

	if err := b.device.Conn().Send(wire.MapCompleteNotify{BufferID: b.id}); err != nil {
		webdom.Logger().Warn("gpu: failed to send map completion",
			slog.Uint64("buffer", uint64(b.id)),
			slog.Any("error", err))
	}
}

// GetMappedRange creates a zero-copy view over [offset, offset+size)
// of the mapped buffer. Pass WholeSize for "through the end of the
// mapped range". All preconditions are required simultaneously and
// fail with an Operation-class error: the buffer is Mapped or
// MappedAtCreation, offset is 8-byte aligned, size is 4-byte aligned,
// the range lies within the mapped interval, and it overlaps no
// existing view.
func (b *Buffer) GetMappedRange(offset, size uint64) (*MappedView, error) {
	mappedEnd := uint64(0)
	if b.region != nil {
		mappedEnd = b.region.rng.End
	}

	rangeSize := size
	if size == WholeSize {
		if offset >= mappedEnd {
			return nil, fmt.Errorf("%w: range offset %d out of mapped range ending at %d",
				webdom.ErrOperation, offset, mappedEnd)
		}
		rangeSize = mappedEnd - offset
	}
	rng := wire.Range{Start: offset, End: offset + rangeSize}

	valid := b.state == StateMapped || b.state == StateMappedAtCreation
	valid = valid && offset%rangeOffsetAlign == 0 && rangeSize%rangeSizeAlign == 0
	valid = valid && b.region != nil && b.region.viewAllowed(rng)
	if !valid {
		return nil, fmt.Errorf("%w: invalid mapped range %s for buffer in state %s",
			webdom.ErrOperation, rng, b.state)
	}

	return b.region.addView(rng), nil
}

// Unmap releases host access. Idempotent: a buffer already Unmapped or
// Destroyed is left untouched. A pending map request is cancelled with
// an Operation-class rejection. A mapped buffer detaches every live
// view and delivers the mapping's final contents, mode and range to
// the device; a send failure on that one-way notification is logged
// and otherwise ignored. The buffer always ends Unmapped (unless
// Destroyed) with no mapping region.
func (b *Buffer) Unmap() error {
	switch b.state {
	case StateUnmapped, StateDestroyed:
		return nil
	case StateMappingPending:
		promise := b.mapPromise
		b.mapPromise = nil
		if promise != nil {
			promise.Reject(fmt.Errorf("%w: buffer was unmapped before mapping completed",
				webdom.ErrOperation))
		}
	case StateMapped, StateMappedAtCreation:
		payload, err := shm.FromBytes(b.region.data.Bytes())
		if err != nil {
			webdom.Logger().Warn("gpu: failed to snapshot mapping for unmap",
				slog.Uint64("buffer", uint64(b.id)),
				slog.Any("error", err))
		} else {
			sendErr := b.device.Conn().Send(wire.UnmapNotify{
				BufferID:  b.id,
				DeviceID:  b.device.ID(),
				Data:      payload,
				IsMapRead: b.region.mode == gputypes.MapModeRead,
				Range:     b.region.rng,
			})
			if sendErr != nil {
				webdom.Logger().Warn("gpu: failed to send buffer unmap",
					slog.Uint64("buffer", uint64(b.id)),
					slog.Any("error", sendErr))
				b.dropPayload(payload)
			}
		}
	}

	if b.region != nil {
		b.region.discard()
		b.region = nil
	}
	b.state = StateUnmapped
	return nil
}

// Destroy releases the remote buffer. Idempotent: destroying a
// Destroyed buffer is a no-op and sends nothing. A mapped buffer is
// unmapped first; a pending map request is rejected Abort-class. The
// one-way destroy notification is sent exactly once, and a send
// failure is logged and ignored.
func (b *Buffer) Destroy() error {
	switch b.state {
	case StateDestroyed:
		return nil
	case StateMappingPending:
		promise := b.mapPromise
		b.mapPromise = nil
		if promise != nil {
			promise.Reject(fmt.Errorf("%w: buffer was destroyed before mapping completed",
				webdom.ErrAbort))
		}
		b.region.discard()
		b.region = nil
		b.state = StateUnmapped
	case StateMapped, StateMappedAtCreation:
		if err := b.Unmap(); err != nil {
			return err
		}
	}

	if err := b.device.Conn().Send(wire.DestroyNotify{BufferID: b.id}); err != nil {
		webdom.Logger().Warn("gpu: failed to send buffer destroy",
			slog.Uint64("buffer", uint64(b.id)),
			slog.Any("error", err))
	}

	b.state = StateDestroyed
	runtime.SetFinalizer(b, nil)
	return nil
}

// finalize is the GC backstop for buffers abandoned without Destroy.
// Failures are logged, never propagated.
func (b *Buffer) finalize() {
	if err := b.Destroy(); err != nil {
		webdom.Logger().Warn("gpu: buffer destruction failed during finalization",
			slog.Uint64("buffer", uint64(b.id)),
			slog.Any("error", err))
	}
}

// dropPayload releases a protocol payload that will not be used.
func (b *Buffer) dropPayload(data *shm.Region) {
	if data == nil {
		return
	}
	if err := data.Release(); err != nil {
		webdom.Logger().Warn("gpu: releasing unused payload",
			slog.Uint64("buffer", uint64(b.id)),
			slog.Any("error", err))
	}
}
