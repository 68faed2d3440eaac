package gpu

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/webdom"
	"github.com/gogpu/webdom/wire"
)

// ErrorFilter selects which error class an error scope captures.
type ErrorFilter int

const (
	// FilterValidation captures validation errors.
	FilterValidation ErrorFilter = iota
	// FilterOutOfMemory captures allocation failures.
	FilterOutOfMemory
)

// errorScope is one entry of a device's error scope stack. Only the
// first error per scope is retained, per the WebGPU error model.
type errorScope struct {
	filter ErrorFilter
	err    error
}

// Device is the scripting-side handle for a remote device. It owns the
// connection buffers send on and the error scope stack that collects
// non-fatal validation failures.
type Device struct {
	id     wire.DeviceID
	conn   wire.Conn
	scopes []*errorScope
}

// NewDevice creates a device handle over the given connection.
func NewDevice(id wire.DeviceID, conn wire.Conn) *Device {
	return &Device{id: id, conn: conn}
}

// ID returns the remote device identifier.
func (d *Device) ID() wire.DeviceID {
	return d.id
}

// Conn returns the connection to the remote device.
func (d *Device) Conn() wire.Conn {
	return d.conn
}

// PushErrorScope opens a new error scope capturing the given filter.
func (d *Device) PushErrorScope(filter ErrorFilter) {
	d.scopes = append(d.scopes, &errorScope{filter: filter})
}

// PopErrorScope closes the innermost error scope and returns the first
// error it captured, or nil if none. Popping with no open scope is an
// Operation-class error.
func (d *Device) PopErrorScope() (error, error) {
	if len(d.scopes) == 0 {
		return nil, fmt.Errorf("%w: no error scope to pop", webdom.ErrOperation)
	}
	scope := d.scopes[len(d.scopes)-1]
	d.scopes = d.scopes[:len(d.scopes)-1]
	return scope.err, nil
}

// ReportValidationError records a validation failure on the innermost
// validation scope. With no matching scope open, the error goes to the
// diagnostic log instead; it never fails the caller.
func (d *Device) ReportValidationError(msg string) {
	for i := len(d.scopes) - 1; i >= 0; i-- {
		if d.scopes[i].filter != FilterValidation {
			continue
		}
		if d.scopes[i].err == nil {
			d.scopes[i].err = fmt.Errorf("%w: %s", webdom.ErrOperation, msg)
		}
		return
	}
	webdom.Logger().Warn("gpu: uncaptured validation error",
		slog.Uint64("device", uint64(d.id)),
		slog.String("message", msg))
}
