// Package webdom provides scripting-layer DOM object implementations
// for a web engine: a WebGPU buffer mapping client, a 4x4 geometry
// matrix, a performance-timeline entry buffer, and a CSSOM stylesheet
// wrapper.
//
// # Overview
//
// The core of the module is the gpu subpackage, which implements the
// GPUBuffer lifecycle: an asynchronous map request/response protocol
// against a remote device process, zero-copy mapped views over shared
// byte storage, and strict unmap/destroy ordering. The remote side is
// abstracted behind the wire package's message contract; wire.Loopback
// provides an in-process device for tests and demos.
//
// # Quick Start
//
//	loop := wire.NewLoopback()
//	loop.CreateBuffer(7, 64)
//	dev := gpu.NewDevice(1, loop)
//	buf, _ := gpu.NewBuffer(dev, 7, &gpu.BufferDescriptor{
//	    Label: "staging",
//	    Size:  64,
//	    Usage: gputypes.BufferUsageMapWrite | gputypes.BufferUsageCopySrc,
//	})
//
//	p := buf.MapAsync(gputypes.MapModeWrite, 0, gpu.WholeSize)
//	loop.Flush() // drain the device event queue
//	<-p.Done()
//
//	view, _ := buf.GetMappedRange(0, gpu.WholeSize)
//	data, _ := view.Bytes()
//	copy(data, payload)
//	buf.Unmap() // delivers the bytes to the device, detaches the view
//
// # Architecture
//
// The module is organized into:
//   - Root package: error classes, promises, logging, the Matrix type
//   - gpu: buffer state machine, device error scopes, mapped views
//   - wire: protocol messages, the send contract, the loopback device
//   - shm: reference-counted shared byte regions (mmap-backed on unix)
//   - timeline: performance entry buffer and observers
//   - css: stylesheet wrapper
//
// All operations on a single buffer are expected to run on one logical
// execution context; responses are delivered when the surrounding event
// loop drains the device queue.
package webdom
