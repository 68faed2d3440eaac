package wire

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/webdom"
	"github.com/gogpu/webdom/shm"
)

// Loopback errors.
var (
	// ErrConnClosed is returned by Send when the loopback simulates a
	// dead channel.
	ErrConnClosed = errors.New("wire: connection closed")
)

// Loopback is an in-process stand-in for the remote device process.
// It owns the authoritative contents of every buffer, answers map
// requests, and applies write-backs from unmap notifications.
//
// Responses are not delivered inside Send: they are queued and handed
// to the requester's reply callback only when Flush runs, modelling
// the event-loop drain between issuing a map request and observing its
// response. All methods are meant to be called from the same logical
// context as the buffers under test.
type Loopback struct {
	buffers map[BufferID][]byte
	queue   []func()

	closed     bool
	failNext   string
	notifiable []Message
}

// NewLoopback creates an empty loopback device.
func NewLoopback() *Loopback {
	return &Loopback{buffers: make(map[BufferID][]byte)}
}

// CreateBuffer seeds a remote buffer of the given size, zero-filled.
func (l *Loopback) CreateBuffer(id BufferID, size uint64) {
	l.buffers[id] = make([]byte, size)
}

// SeedBuffer seeds a remote buffer with the given contents.
func (l *Loopback) SeedBuffer(id BufferID, contents []byte) {
	l.buffers[id] = append([]byte(nil), contents...)
}

// Contents returns a copy of a remote buffer's current contents, or
// nil if the buffer does not exist (never created, or destroyed).
func (l *Loopback) Contents(id BufferID) []byte {
	b, ok := l.buffers[id]
	if !ok {
		return nil
	}
	return append([]byte(nil), b...)
}

// Close makes every subsequent Send fail, simulating a dead channel.
func (l *Loopback) Close() {
	l.closed = true
}

// FailNextMap makes the next map request answer with the given error
// reason instead of bytes.
func (l *Loopback) FailNextMap(reason string) {
	l.failNext = reason
}

// Notifications returns the one-way messages received so far, in
// order.
func (l *Loopback) Notifications() []Message {
	return l.notifiable
}

// Send implements Conn.
func (l *Loopback) Send(m Message) error {
	if l.closed {
		return ErrConnClosed
	}
	switch msg := m.(type) {
	case MapRequest:
		l.queue = append(l.queue, func() {
			msg.Reply(l.respond(msg))
		})
	case UnmapNotify:
		l.notifiable = append(l.notifiable, msg)
		if !msg.IsMapRead {
			l.writeBack(msg)
		}
		if msg.Data != nil {
			if err := msg.Data.Release(); err != nil {
				webdom.Logger().Warn("wire: releasing unmap payload", slog.Any("error", err))
			}
		}
	case DestroyNotify:
		l.notifiable = append(l.notifiable, msg)
		delete(l.buffers, msg.BufferID)
	case MapCompleteNotify:
		l.notifiable = append(l.notifiable, msg)
	default:
		return fmt.Errorf("wire: unknown message type %T", m)
	}
	return nil
}

// Flush delivers every queued map response and returns how many were
// delivered. New deliveries queued while flushing (there are none in
// the current protocol) would wait for the next Flush.
func (l *Loopback) Flush() int {
	pending := l.queue
	l.queue = nil
	for _, deliver := range pending {
		deliver()
	}
	return len(pending)
}

// respond computes the reply for a map request at delivery time, so
// the bytes reflect the store as of the event-loop drain.
func (l *Loopback) respond(req MapRequest) MapResponse {
	if l.failNext != "" {
		reason := l.failNext
		l.failNext = ""
		return MapResponse{Err: reason}
	}
	contents, ok := l.buffers[req.BufferID]
	if !ok {
		return MapResponse{Err: fmt.Sprintf("unknown buffer %d", req.BufferID)}
	}
	if req.Range.End > uint64(len(contents)) || req.Range.Start > req.Range.End {
		return MapResponse{Err: fmt.Sprintf("map range %s out of bounds for buffer of %d bytes",
			req.Range, len(contents))}
	}
	data, err := shm.FromBytes(contents[req.Range.Start:req.Range.End])
	if err != nil {
		return MapResponse{Err: err.Error()}
	}
	return MapResponse{Data: data}
}

// writeBack applies a write-mapped unmap payload to the store.
func (l *Loopback) writeBack(msg UnmapNotify) {
	contents, ok := l.buffers[msg.BufferID]
	if !ok || msg.Data == nil {
		return
	}
	data := msg.Data.Bytes()
	if msg.Range.End > uint64(len(contents)) || uint64(len(data)) != msg.Range.Len() {
		webdom.Logger().Warn("wire: dropping malformed unmap write-back",
			slog.Uint64("buffer", uint64(msg.BufferID)),
			slog.String("range", msg.Range.String()),
			slog.Int("payload", len(data)))
		return
	}
	copy(contents[msg.Range.Start:msg.Range.End], data)
}
