package wire

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/webdom/shm"
)

// BufferID identifies a buffer on the remote device.
type BufferID uint64

// DeviceID identifies a device on the remote side.
type DeviceID uint64

// Range is a half-open [Start, End) byte interval.
type Range struct {
	Start, End uint64
}

// Len returns the range length in bytes.
func (r Range) Len() uint64 {
	return r.End - r.Start
}

// Contains reports whether other lies entirely within r.
func (r Range) Contains(other Range) bool {
	return other.Start >= r.Start && other.End <= r.End
}

// Overlaps reports whether the two ranges share any byte.
func (r Range) Overlaps(other Range) bool {
	return r.Start < other.End && other.Start < r.End
}

// String formats the range as [start, end).
func (r Range) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}

// Message is a protocol message sent to the remote device.
type Message interface {
	message()
}

// MapRequest asks the device to map a buffer range for host access.
// Reply is invoked with the response on the requester's event loop;
// the transport correlates request and response through it.
type MapRequest struct {
	BufferID BufferID
	DeviceID DeviceID
	Mode     gputypes.MapMode
	Range    Range
	Reply    func(MapResponse)
}

// MapResponse carries the mapped bytes or the device's error reason.
type MapResponse struct {
	Data *shm.Region
	Err  string
}

// UnmapNotify delivers the final mapping contents back to the device
// when a buffer is unmapped. One-way.
type UnmapNotify struct {
	BufferID  BufferID
	DeviceID  DeviceID
	Data      *shm.Region
	IsMapRead bool
	Range     Range
}

// DestroyNotify tells the device to release a buffer. One-way.
type DestroyNotify struct {
	BufferID BufferID
}

// MapCompleteNotify tells the device that the requester has finished
// handling a map response, success or failure, so server-side tracking
// for the request can be dropped. One-way.
type MapCompleteNotify struct {
	BufferID BufferID
}

func (MapRequest) message()        {}
func (UnmapNotify) message()       {}
func (DestroyNotify) message()     {}
func (MapCompleteNotify) message() {}

// Conn is the sending half of the channel to the remote device.
// Send is fire-and-forget: a nil return only means the message was
// accepted for delivery.
type Conn interface {
	Send(Message) error
}
