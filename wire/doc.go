// Package wire defines the message contract between the scripting-side
// GPU objects and the remote device process.
//
// All sends are fire-and-forget over an unreliable channel: a Conn may
// fail a send, and one-way notifications are never retried. Responses
// to map requests come back through the reply callback carried in the
// request, invoked when the surrounding event loop drains the device
// queue. Loopback implements both ends in-process for tests and demos.
package wire
