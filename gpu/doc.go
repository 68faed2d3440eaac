// Package gpu implements the scripting-layer GPU buffer object: the
// Unmapped/MappingPending/Mapped/MappedAtCreation/Destroyed lifecycle,
// the asynchronous map request/response protocol against the remote
// device, zero-copy mapped views over shared storage, and idempotent
// unmap/destroy teardown.
//
// All operations on a single buffer must run on one logical execution
// context; the package takes no internal locks between a buffer's own
// operations. Suspension happens only at MapAsync, whose promise is
// settled when the event loop drains the device's response queue.
package gpu
